package board

import "driftboard/internal/schema"

// MutationStatus tracks a pending mutation's life cycle.
type MutationStatus int

const (
	StatusInFlight MutationStatus = iota
	StatusCommitted
	StatusFailed
)

func (s MutationStatus) String() string {
	switch s {
	case StatusInFlight:
		return "in-flight"
	case StatusCommitted:
		return "committed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// PendingMutation is the visible record of an optimistic edit awaiting its
// remote outcome. Seq increases monotonically per reconciler.
type PendingMutation struct {
	Seq     uint64
	TaskGID string
	Key     string
	Status  MutationStatus
	Reason  string
}

type mutationKey struct {
	taskGID string
	key     string
}

// rollbackState captures everything needed to restore the model if the
// remote call fails. Only the slots relevant to the intent are populated.
// For field edits that includes the cached wire payload, which is kept in
// step with the typed value so definition refreshes re-coerce to the edit,
// not to the pre-edit server state.
type rollbackState struct {
	name       string
	completed  bool
	field      FieldState
	fieldSet   bool
	wireField  *schema.WireField
	sectionGID string
	orders     map[string][]string
}

// pendingRecord is the reconciler-internal companion of a PendingMutation.
type pendingRecord struct {
	PendingMutation
	intent Intent
	prev   rollbackState
}

// NotificationKind labels a state-change notification for the UI layer.
type NotificationKind int

const (
	// NoteCommitted: an optimistic mutation became authoritative.
	NoteCommitted NotificationKind = iota + 1
	// NoteRolledBack: an optimistic mutation was reverted (failure,
	// supersession, or reload); Reason carries a short explanation.
	NoteRolledBack
	// NoteReloaded: a fresh remote snapshot replaced the model wholesale.
	NoteReloaded
	// NoteReloadFailed: the reload failed; the last-known-good state stays.
	NoteReloadFailed
	// NoteDefinitionsRefreshed: custom field definitions were refetched and
	// task fields re-coerced.
	NoteDefinitionsRefreshed
	// NoteCreated: a new task was created remotely and added to the model.
	NoteCreated
	// NoteCreateFailed: task creation failed; Reason carries the cause.
	NoteCreateFailed
)

func (k NotificationKind) String() string {
	switch k {
	case NoteCommitted:
		return "committed"
	case NoteRolledBack:
		return "rolled_back"
	case NoteReloaded:
		return "reloaded"
	case NoteReloadFailed:
		return "reload_failed"
	case NoteDefinitionsRefreshed:
		return "definitions_refreshed"
	case NoteCreated:
		return "created"
	case NoteCreateFailed:
		return "create_failed"
	}
	return "unknown"
}

// Notification is emitted after every committed mutation, rollback, or
// completed reload so the UI layer can re-render.
type Notification struct {
	Kind    NotificationKind
	Seq     uint64
	TaskGID string
	Reason  string
}
