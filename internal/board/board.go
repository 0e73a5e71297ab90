// Package board owns the canonical in-memory representation of a project's
// sections, tasks, and custom field definitions, and reconciles optimistic
// local edits with remote snapshots. The model has a single owner: the
// Reconciler's run loop. Everything else talks to it through messages.
package board

import (
	"driftboard/internal/schema"
)

// FieldState is one custom field value on a task. A degraded field kept its
// task but could not be coerced against the cached definition.
type FieldState struct {
	Value    schema.FieldValue
	Degraded bool
	Reason   string
}

// Task is the local representation of a remote task. ModifiedAt is the
// remote revision marker.
type Task struct {
	GID        string
	Name       string
	Completed  bool
	SectionGID string
	ModifiedAt string
	FieldOrder []string
	Fields     map[string]FieldState

	// wire carries the raw field payloads so fields can be re-coerced after
	// a definition refresh.
	wire []schema.WireField
}

// Section is one kanban column. TaskOrder is first-class local state: the
// remote API does not preserve client-visible order atomically.
type Section struct {
	GID       string
	Name      string
	TaskOrder []string
}

// Column pairs a section with its resolved tasks in order.
type Column struct {
	Section Section
	Tasks   []Task
}

// Snapshot is a read-only deep copy of the model handed to the UI layer.
type Snapshot struct {
	Loaded          bool
	Sections        []Section
	Tasks           map[string]Task
	Definitions     map[string]schema.FieldDefinition
	DefinitionOrder []string
	Pending         []PendingMutation
}

// Columns derives the kanban columns from section order and task state.
func (s Snapshot) Columns() []Column {
	cols := make([]Column, 0, len(s.Sections))
	for _, sec := range s.Sections {
		col := Column{Section: sec}
		for _, gid := range sec.TaskOrder {
			if task, ok := s.Tasks[gid]; ok {
				col.Tasks = append(col.Tasks, task)
			}
		}
		cols = append(cols, col)
	}
	return cols
}

// Task returns the task with the given GID, if present.
func (s Snapshot) Task(gid string) (Task, bool) {
	t, ok := s.Tasks[gid]
	return t, ok
}

// model is the reconciler-owned mutable state.
type model struct {
	sections []Section
	tasks    map[string]Task
	defs     map[string]schema.FieldDefinition
	defOrder []string
}

func newModel() model {
	return model{
		tasks: map[string]Task{},
		defs:  map[string]schema.FieldDefinition{},
	}
}

func (m *model) section(gid string) *Section {
	for i := range m.sections {
		if m.sections[i].GID == gid {
			return &m.sections[i]
		}
	}
	return nil
}

// removeFromOrder deletes a task GID from a section's order, if present.
func (m *model) removeFromOrder(sectionGID, taskGID string) {
	sec := m.section(sectionGID)
	if sec == nil {
		return
	}
	for i, gid := range sec.TaskOrder {
		if gid == taskGID {
			sec.TaskOrder = append(sec.TaskOrder[:i], sec.TaskOrder[i+1:]...)
			return
		}
	}
}

// insertIntoOrder places a task GID at the given position of a section's
// order, clamping out-of-range indexes.
func (m *model) insertIntoOrder(sectionGID, taskGID string, index int) {
	sec := m.section(sectionGID)
	if sec == nil {
		return
	}
	if index < 0 {
		index = 0
	}
	if index > len(sec.TaskOrder) {
		index = len(sec.TaskOrder)
	}
	order := make([]string, 0, len(sec.TaskOrder)+1)
	order = append(order, sec.TaskOrder[:index]...)
	order = append(order, taskGID)
	order = append(order, sec.TaskOrder[index:]...)
	sec.TaskOrder = order
}

func (m *model) snapshot(loaded bool, pending []PendingMutation) Snapshot {
	snap := Snapshot{
		Loaded:      loaded,
		Tasks:       make(map[string]Task, len(m.tasks)),
		Definitions: make(map[string]schema.FieldDefinition, len(m.defs)),
		Pending:     pending,
	}
	for _, sec := range m.sections {
		order := make([]string, len(sec.TaskOrder))
		copy(order, sec.TaskOrder)
		snap.Sections = append(snap.Sections, Section{GID: sec.GID, Name: sec.Name, TaskOrder: order})
	}
	for gid, task := range m.tasks {
		snap.Tasks[gid] = copyTask(task)
	}
	for gid, def := range m.defs {
		snap.Definitions[gid] = def
	}
	snap.DefinitionOrder = append(snap.DefinitionOrder, m.defOrder...)
	return snap
}

// setWireField replaces the cached wire entry for the field, appending when
// no entry exists yet.
func setWireField(wire []schema.WireField, wf schema.WireField) []schema.WireField {
	for i := range wire {
		if wire[i].GID == wf.GID {
			out := append([]schema.WireField(nil), wire...)
			out[i] = wf
			return out
		}
	}
	return append(append([]schema.WireField(nil), wire...), wf)
}

// removeWireField drops the cached wire entry for the field, if present.
func removeWireField(wire []schema.WireField, gid string) []schema.WireField {
	for i := range wire {
		if wire[i].GID == gid {
			out := append([]schema.WireField(nil), wire[:i]...)
			return append(out, wire[i+1:]...)
		}
	}
	return wire
}

func copyTask(t Task) Task {
	out := t
	out.FieldOrder = append([]string(nil), t.FieldOrder...)
	out.Fields = make(map[string]FieldState, len(t.Fields))
	for k, v := range t.Fields {
		out.Fields[k] = v
	}
	out.wire = nil
	return out
}
