package board

import "driftboard/internal/schema"

// Mutation keys. At most one mutation may be in flight per (task, key); a
// custom field's key is its definition GID, scalar attributes use the
// synthetic keys below. A move claims the section key.
const (
	keyName      = "name"
	keyCompleted = "completed"
	keySection   = "section"
)

// Intent is a user-initiated request to change one attribute of one task or
// move it between columns.
type Intent interface {
	TaskGID() string
	mutationKey() string
}

// SetName renames a task.
type SetName struct {
	Task string
	Name string
}

func (i SetName) TaskGID() string     { return i.Task }
func (i SetName) mutationKey() string { return keyName }

// SetCompleted toggles a task's completion flag.
type SetCompleted struct {
	Task      string
	Completed bool
}

func (i SetCompleted) TaskGID() string     { return i.Task }
func (i SetCompleted) mutationKey() string { return keyCompleted }

// SetField replaces one custom field value. The value is already validated
// against its definition by construction.
type SetField struct {
	Task  string
	Value schema.FieldValue
}

func (i SetField) TaskGID() string     { return i.Task }
func (i SetField) mutationKey() string { return i.Value.DefinitionGID() }

// Move places a task into a section at the given position. The section
// reference and the destination order change atomically in the local model
// before the remote call is issued.
type Move struct {
	Task      string
	ToSection string
	Index     int
}

func (i Move) TaskGID() string     { return i.Task }
func (i Move) mutationKey() string { return keySection }
