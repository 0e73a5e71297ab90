package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"driftboard/internal/api"
	"driftboard/internal/schema"
)

// Validation failures for Apply.
var (
	ErrNotLoaded      = errors.New("board: no snapshot loaded yet")
	ErrUnknownTask    = errors.New("board: unknown task")
	ErrUnknownSection = errors.New("board: unknown section")
	ErrUnknownField   = errors.New("board: unknown field definition")
	ErrShuttingDown   = errors.New("board: reconciler is shutting down")
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultNoteBuffer  = 64
)

// Reconciler owns the board model. All mutation flows through its run loop:
// intents apply an optimistic transition synchronously, the matching remote
// call runs as a free goroutine, and its result is reconciled back in the
// order results arrive. Superseded mutations are dropped regardless of
// arrival order.
type Reconciler struct {
	svc         Service
	projectGID  string
	callTimeout time.Duration
	logf        func(format string, args ...any)

	inbox   chan message
	notes   chan Notification
	started chan struct{}
	stopped chan struct{}

	// Everything below is touched only by the Run loop.
	m              model
	loaded         bool
	reloading      bool
	refreshingDefs bool
	nextSeq        uint64
	inflight       map[mutationKey]uint64
	records        map[uint64]*pendingRecord
	runCtx         context.Context
}

// Option customizes reconciler construction.
type Option func(*Reconciler)

// WithCallTimeout bounds each remote mutation call.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithLogger routes reconciliation diagnostics somewhere useful.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(r *Reconciler) {
		if logf != nil {
			r.logf = logf
		}
	}
}

// WithNotificationBuffer sizes the UI notification channel.
func WithNotificationBuffer(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.notes = make(chan Notification, n)
		}
	}
}

// New builds a reconciler for one project. Call Run before anything else.
func New(svc Service, projectGID string, opts ...Option) *Reconciler {
	r := &Reconciler{
		svc:         svc,
		projectGID:  projectGID,
		callTimeout: defaultCallTimeout,
		logf:        func(string, ...any) {},
		inbox:       make(chan message),
		notes:       make(chan Notification, defaultNoteBuffer),
		started:     make(chan struct{}),
		stopped:     make(chan struct{}),
		m:           newModel(),
		inflight:    map[mutationKey]uint64{},
		records:     map[uint64]*pendingRecord{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Messages consumed by the run loop.
type message interface{}

type applyMsg struct {
	intent Intent
	reply  chan applyReply
}

type applyReply struct {
	seq uint64
	err error
}

type snapshotMsg struct {
	reply chan Snapshot
}

type reloadMsg struct{}

type createMsg struct {
	name       string
	sectionGID string
	reply      chan error
}

type createDoneMsg struct {
	task       api.Task
	sectionGID string
	err        error
}

type resultMsg struct {
	seq     uint64
	task    api.Task
	hasTask bool
	err     error
}

type reloadDoneMsg struct {
	sections []api.Section
	tasks    []api.Task
	fields   []schema.WireField
	err      error
}

type defsDoneMsg struct {
	fields []schema.WireField
	err    error
}

// Notifications returns the stream of state-change events. The channel is
// buffered; when the consumer falls behind, the oldest event is dropped.
func (r *Reconciler) Notifications() <-chan Notification {
	return r.notes
}

// Run owns the model until ctx is cancelled. It must run in exactly one
// goroutine, started once.
func (r *Reconciler) Run(ctx context.Context) {
	r.runCtx = ctx
	close(r.started)
	defer close(r.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.inbox:
			switch m := msg.(type) {
			case applyMsg:
				m.reply <- r.handleApply(m.intent)
			case snapshotMsg:
				m.reply <- r.m.snapshot(r.loaded, r.pendingList())
			case reloadMsg:
				r.startReload()
			case createMsg:
				m.reply <- r.handleCreate(m)
			case createDoneMsg:
				r.handleCreateDone(m)
			case resultMsg:
				r.handleResult(m)
			case reloadDoneMsg:
				r.handleReloadDone(m)
			case defsDoneMsg:
				r.handleDefsDone(m)
			}
		}
	}
}

// Apply validates an intent, applies the optimistic transition, and starts
// the remote call. It returns the mutation sequence number.
func (r *Reconciler) Apply(ctx context.Context, intent Intent) (uint64, error) {
	reply := make(chan applyReply, 1)
	if err := r.post(ctx, applyMsg{intent: intent, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-reply:
		return res.seq, res.err
	}
}

// Snapshot returns a read-only deep copy of the current state.
func (r *Reconciler) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := r.post(ctx, snapshotMsg{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case snap := <-reply:
		return snap, nil
	}
}

// CreateTask creates a task remotely and adds it to the given section when
// the service confirms it. Completion is reported through the notification
// stream; the model is not touched until the task exists.
func (r *Reconciler) CreateTask(ctx context.Context, name, sectionGID string) error {
	reply := make(chan error, 1)
	if err := r.post(ctx, createMsg{name: name, sectionGID: sectionGID, reply: reply}); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-reply:
		return err
	}
}

// Reload requests a fresh remote snapshot. Completion is reported through
// the notification stream; a reload already in progress is not duplicated.
func (r *Reconciler) Reload(ctx context.Context) error {
	return r.post(ctx, reloadMsg{})
}

func (r *Reconciler) post(ctx context.Context, msg message) error {
	select {
	case <-r.started:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case r.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopped:
		return ErrShuttingDown
	}
}

// postFromWorker delivers results from call goroutines; it gives up when
// the run loop is gone.
func (r *Reconciler) postFromWorker(msg message) {
	select {
	case r.inbox <- msg:
	case <-r.stopped:
	}
}

func (r *Reconciler) notify(n Notification) {
	select {
	case r.notes <- n:
		return
	default:
	}
	// Consumer is behind: drop the oldest event to make room.
	select {
	case <-r.notes:
	default:
	}
	select {
	case r.notes <- n:
	default:
	}
}

func (r *Reconciler) pendingList() []PendingMutation {
	if len(r.records) == 0 {
		return nil
	}
	out := make([]PendingMutation, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.PendingMutation)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Seq > out[j].Seq; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// handleApply performs the optimistic transition and spawns the remote
// call. A newer intent on the same (task, key) supersedes the in-flight
// one: its eventual result will be discarded, and the new record inherits
// the older record's prior state so a later rollback restores the true
// original.
func (r *Reconciler) handleApply(intent Intent) applyReply {
	if !r.loaded {
		return applyReply{err: ErrNotLoaded}
	}
	task, ok := r.m.tasks[intent.TaskGID()]
	if !ok {
		return applyReply{err: fmt.Errorf("%w: %s", ErrUnknownTask, intent.TaskGID())}
	}

	var insertBefore string
	switch it := intent.(type) {
	case SetField:
		if _, ok := r.m.defs[it.Value.DefinitionGID()]; !ok {
			return applyReply{err: fmt.Errorf("%w: %s", ErrUnknownField, it.Value.DefinitionGID())}
		}
	case Move:
		dest := r.m.section(it.ToSection)
		if dest == nil {
			return applyReply{err: fmt.Errorf("%w: %s", ErrUnknownSection, it.ToSection)}
		}
		insertBefore = r.insertBeforeGID(it)
	}

	key := mutationKey{taskGID: intent.TaskGID(), key: intent.mutationKey()}
	prev := r.capturePrev(task, intent)
	if oldSeq, ok := r.inflight[key]; ok {
		if old, ok := r.records[oldSeq]; ok {
			prev = chainPrev(old.prev, prev)
			delete(r.records, oldSeq)
			r.notify(Notification{Kind: NoteRolledBack, Seq: oldSeq, TaskGID: old.TaskGID,
				Reason: "superseded by a newer edit"})
			r.logf("board: mutation %d superseded by a newer intent on %s/%s", oldSeq, key.taskGID, key.key)
		}
	}

	r.applyOptimistic(intent)

	r.nextSeq++
	seq := r.nextSeq
	rec := &pendingRecord{
		PendingMutation: PendingMutation{Seq: seq, TaskGID: intent.TaskGID(), Key: key.key, Status: StatusInFlight},
		intent:          intent,
		prev:            prev,
	}
	r.inflight[key] = seq
	r.records[seq] = rec

	go r.execute(seq, intent, insertBefore)
	return applyReply{seq: seq}
}

// handleCreate validates the request and spawns the remote creation. There
// is no optimistic transition: the task has no GID until the service assigns
// one.
func (r *Reconciler) handleCreate(msg createMsg) error {
	if !r.loaded {
		return ErrNotLoaded
	}
	if r.m.section(msg.sectionGID) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSection, msg.sectionGID)
	}
	if msg.name == "" {
		return fmt.Errorf("board: task name is required")
	}
	go func() {
		ctx, cancel := context.WithTimeout(r.runCtx, r.callTimeout)
		defer cancel()
		task, err := r.svc.CreateTask(ctx, r.projectGID, msg.name, msg.sectionGID)
		r.postFromWorker(createDoneMsg{task: task, sectionGID: msg.sectionGID, err: err})
	}()
	return nil
}

// handleCreateDone adds the confirmed task to the model. A failed placement
// still leaves a created task, which is kept; only a failed creation is
// reported as such.
func (r *Reconciler) handleCreateDone(msg createDoneMsg) {
	if msg.task.GID == "" {
		reason := "rejected by service"
		if msg.err != nil {
			reason = failureReason(msg.err)
		}
		r.logf("board: task creation failed: %v", msg.err)
		r.notify(Notification{Kind: NoteCreateFailed, Reason: reason})
		return
	}
	if msg.err != nil {
		r.logf("board: task %s created but placement failed: %v", msg.task.GID, msg.err)
	}
	sectionGID := msg.sectionGID
	if r.m.section(sectionGID) == nil {
		if len(r.m.sections) == 0 {
			r.logf("board: dropping created task %s: project has no sections", msg.task.GID)
			r.notify(Notification{Kind: NoteCreateFailed, TaskGID: msg.task.GID, Reason: "section no longer exists"})
			return
		}
		sectionGID = r.m.sections[0].GID
	}
	task := Task{
		GID:        msg.task.GID,
		Name:       msg.task.Name,
		Completed:  msg.task.Completed,
		SectionGID: sectionGID,
		ModifiedAt: msg.task.ModifiedAt,
		Fields:     map[string]FieldState{},
		wire:       msg.task.CustomFields,
	}
	coerceTaskFields(r.m.defs, &task, r.logf)
	r.m.tasks[task.GID] = task
	if sec := r.m.section(sectionGID); sec != nil {
		sec.TaskOrder = append(sec.TaskOrder, task.GID)
	}
	r.notify(Notification{Kind: NoteCreated, TaskGID: task.GID})
}

// execute runs the remote call for one mutation and posts the result back.
func (r *Reconciler) execute(seq uint64, intent Intent, insertBefore string) {
	ctx, cancel := context.WithTimeout(r.runCtx, r.callTimeout)
	defer cancel()

	var (
		task    api.Task
		hasTask bool
		err     error
	)
	switch it := intent.(type) {
	case SetName:
		task, err = r.svc.UpdateTask(ctx, it.Task, map[string]any{"name": it.Name})
		hasTask = err == nil
	case SetCompleted:
		task, err = r.svc.UpdateTask(ctx, it.Task, map[string]any{"completed": it.Completed})
		hasTask = err == nil
	case SetField:
		payload := map[string]any{"custom_fields": map[string]any{
			it.Value.DefinitionGID(): it.Value.UpdatePayload(),
		}}
		task, err = r.svc.UpdateTask(ctx, it.Task, payload)
		hasTask = err == nil
	case Move:
		err = r.svc.MoveTask(ctx, it.Task, it.ToSection, insertBefore)
	default:
		err = fmt.Errorf("board: unsupported intent %T", intent)
	}
	r.postFromWorker(resultMsg{seq: seq, task: task, hasTask: hasTask, err: err})
}

// insertBeforeGID translates a destination index into the GID of the task
// currently occupying it, skipping the moving task itself. Empty means
// append.
func (r *Reconciler) insertBeforeGID(it Move) string {
	dest := r.m.section(it.ToSection)
	if dest == nil {
		return ""
	}
	index := it.Index
	for _, gid := range dest.TaskOrder {
		if gid == it.Task {
			continue
		}
		if index == 0 {
			return gid
		}
		index--
	}
	return ""
}

func (r *Reconciler) capturePrev(task Task, intent Intent) rollbackState {
	switch it := intent.(type) {
	case SetName:
		return rollbackState{name: task.Name}
	case SetCompleted:
		return rollbackState{completed: task.Completed}
	case SetField:
		gid := it.Value.DefinitionGID()
		state, ok := task.Fields[gid]
		prev := rollbackState{field: state, fieldSet: ok}
		for _, wf := range task.wire {
			if wf.GID == gid {
				entry := wf
				prev.wireField = &entry
				break
			}
		}
		return prev
	case Move:
		prev := rollbackState{sectionGID: task.SectionGID, orders: map[string][]string{}}
		for _, gid := range []string{task.SectionGID, it.ToSection} {
			if sec := r.m.section(gid); sec != nil {
				prev.orders[gid] = append([]string(nil), sec.TaskOrder...)
			}
		}
		return prev
	}
	return rollbackState{}
}

// chainPrev merges the superseded record's prior state with the freshly
// captured one. The older state wins: it is the true original.
func chainPrev(old, fresh rollbackState) rollbackState {
	merged := old
	if fresh.orders != nil {
		if merged.orders == nil {
			merged.orders = map[string][]string{}
		}
		for gid, order := range fresh.orders {
			if _, ok := merged.orders[gid]; !ok {
				merged.orders[gid] = order
			}
		}
	}
	return merged
}

func (r *Reconciler) applyOptimistic(intent Intent) {
	task := r.m.tasks[intent.TaskGID()]
	switch it := intent.(type) {
	case SetName:
		task.Name = it.Name
	case SetCompleted:
		task.Completed = it.Completed
	case SetField:
		gid := it.Value.DefinitionGID()
		if _, ok := task.Fields[gid]; !ok {
			task.FieldOrder = append(task.FieldOrder, gid)
		}
		task.Fields[gid] = FieldState{Value: it.Value}
		// Echo the value into the cached wire payload so a definition
		// refresh re-coerces to the edit, not to the pre-edit server state.
		if def, ok := r.m.defs[gid]; ok {
			task.wire = setWireField(task.wire, it.Value.WireValue(def))
		}
	case Move:
		r.m.removeFromOrder(task.SectionGID, it.Task)
		r.m.removeFromOrder(it.ToSection, it.Task)
		r.m.insertIntoOrder(it.ToSection, it.Task, it.Index)
		task.SectionGID = it.ToSection
	}
	r.m.tasks[intent.TaskGID()] = task
}

func (r *Reconciler) rollback(rec *pendingRecord) {
	task, ok := r.m.tasks[rec.TaskGID]
	if !ok {
		return
	}
	switch rec.intent.(type) {
	case SetName:
		task.Name = rec.prev.name
	case SetCompleted:
		task.Completed = rec.prev.completed
	case SetField:
		if rec.prev.fieldSet {
			task.Fields[rec.Key] = rec.prev.field
		} else {
			delete(task.Fields, rec.Key)
			for i, gid := range task.FieldOrder {
				if gid == rec.Key {
					task.FieldOrder = append(task.FieldOrder[:i], task.FieldOrder[i+1:]...)
					break
				}
			}
		}
		if rec.prev.wireField != nil {
			task.wire = setWireField(task.wire, *rec.prev.wireField)
		} else {
			task.wire = removeWireField(task.wire, rec.Key)
		}
	case Move:
		task.SectionGID = rec.prev.sectionGID
		for gid, order := range rec.prev.orders {
			if sec := r.m.section(gid); sec != nil {
				sec.TaskOrder = append([]string(nil), order...)
			}
		}
	}
	r.m.tasks[rec.TaskGID] = task
}

// handleResult commits or rolls back one mutation. Results whose record was
// dropped (superseded or cancelled by a reload) are ignored: they target a
// value that is no longer authoritative.
func (r *Reconciler) handleResult(msg resultMsg) {
	rec, ok := r.records[msg.seq]
	if !ok {
		r.logf("board: discarding stale result for mutation %d", msg.seq)
		return
	}
	delete(r.records, msg.seq)
	key := mutationKey{taskGID: rec.TaskGID, key: rec.Key}
	if r.inflight[key] == msg.seq {
		delete(r.inflight, key)
	}

	if msg.err != nil {
		rec.Status = StatusFailed
		rec.Reason = failureReason(msg.err)
		r.rollback(rec)
		r.logf("board: mutation %d on %s/%s rolled back: %s", rec.Seq, rec.TaskGID, rec.Key, rec.Reason)
		r.notify(Notification{Kind: NoteRolledBack, Seq: rec.Seq, TaskGID: rec.TaskGID, Reason: rec.Reason})
		return
	}

	rec.Status = StatusCommitted
	if msg.hasTask {
		if task, ok := r.m.tasks[rec.TaskGID]; ok && msg.task.ModifiedAt != "" {
			task.ModifiedAt = msg.task.ModifiedAt
			r.m.tasks[rec.TaskGID] = task
		}
	}
	r.notify(Notification{Kind: NoteCommitted, Seq: rec.Seq, TaskGID: rec.TaskGID})
}

// failureReason produces the short user-facing reason string.
func failureReason(err error) string {
	var callErr *api.CallError
	if errors.As(err, &callErr) {
		switch callErr.Kind {
		case api.KindUnauthorized:
			return "credential rejected"
		case api.KindRateLimited:
			return "rate limited"
		case api.KindTransient, api.KindNetwork:
			return "service unavailable"
		default:
			return "rejected by service"
		}
	}
	return err.Error()
}

// startReload kicks off the snapshot fetch. Pending mutations keep running;
// they are cancelled only when the fresh snapshot actually arrives.
func (r *Reconciler) startReload() {
	if r.reloading {
		return
	}
	r.reloading = true
	go func() {
		ctx := r.runCtx
		var done reloadDoneMsg
		done.sections, done.err = r.svc.ListSections(ctx, r.projectGID)
		if done.err == nil {
			done.fields, done.err = r.svc.ListFields(ctx, r.projectGID)
		}
		if done.err == nil {
			source := r.svc.Tasks(r.projectGID)
			for {
				page, more, err := source.Next(ctx)
				if err != nil {
					done.err = err
					break
				}
				done.tasks = append(done.tasks, page...)
				if !more {
					break
				}
			}
		}
		r.postFromWorker(done)
	}()
}

// handleReloadDone applies reload-wins semantics: every still-in-flight
// mutation is rolled back (their late results will be discarded), then the
// fresh snapshot replaces the model wholesale. A failed reload leaves the
// last-known-good state visible.
func (r *Reconciler) handleReloadDone(msg reloadDoneMsg) {
	r.reloading = false
	if msg.err != nil {
		r.logf("board: reload failed: %v", msg.err)
		r.notify(Notification{Kind: NoteReloadFailed, Reason: failureReason(msg.err)})
		return
	}

	for _, rec := range sortedRecords(r.records) {
		rec.Status = StatusFailed
		rec.Reason = "cancelled by reload"
		r.notify(Notification{Kind: NoteRolledBack, Seq: rec.Seq, TaskGID: rec.TaskGID, Reason: rec.Reason})
	}
	r.records = map[uint64]*pendingRecord{}
	r.inflight = map[mutationKey]uint64{}

	m, staleDefs := r.buildModel(msg.sections, msg.tasks, msg.fields)
	r.m = m
	r.loaded = true
	r.notify(Notification{Kind: NoteReloaded})
	if staleDefs {
		r.startDefinitionRefresh()
	}
}

func sortedRecords(records map[uint64]*pendingRecord) []*pendingRecord {
	out := make([]*pendingRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Seq > out[j].Seq; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// startDefinitionRefresh refetches the project's field definitions after an
// unknown-option signal.
func (r *Reconciler) startDefinitionRefresh() {
	if r.refreshingDefs {
		return
	}
	r.refreshingDefs = true
	r.logf("board: stale definitions suspected, refreshing")
	go func() {
		fields, err := r.svc.ListFields(r.runCtx, r.projectGID)
		r.postFromWorker(defsDoneMsg{fields: fields, err: err})
	}()
}

// handleDefsDone swaps in the refreshed definitions and re-coerces every
// task's cached wire fields against them.
func (r *Reconciler) handleDefsDone(msg defsDoneMsg) {
	r.refreshingDefs = false
	if msg.err != nil {
		r.logf("board: definition refresh failed: %v", msg.err)
		return
	}
	r.m.defs = map[string]schema.FieldDefinition{}
	r.m.defOrder = nil
	for _, wf := range msg.fields {
		def, err := schema.DefinitionFromWire(wf)
		if err != nil {
			r.logf("board: skipping definition %s: %v", wf.GID, err)
			continue
		}
		r.m.defs[def.GID] = def
		r.m.defOrder = append(r.m.defOrder, def.GID)
	}
	for gid, task := range r.m.tasks {
		task.FieldOrder = nil
		task.Fields = map[string]FieldState{}
		coerceTaskFields(r.m.defs, &task, r.logf)
		r.m.tasks[gid] = task
	}
	r.notify(Notification{Kind: NoteDefinitionsRefreshed})
}

// buildModel assembles the local model from wire resources. Tasks with
// malformed field values are retained with the field degraded; an unknown
// enum option additionally reports the definitions as stale.
func (r *Reconciler) buildModel(sections []api.Section, tasks []api.Task, fields []schema.WireField) (model, bool) {
	m := newModel()
	for _, ws := range sections {
		m.sections = append(m.sections, Section{GID: ws.GID, Name: ws.Name})
	}
	for _, wf := range fields {
		def, err := schema.DefinitionFromWire(wf)
		if err != nil {
			r.logf("board: skipping definition %s: %v", wf.GID, err)
			continue
		}
		m.defs[def.GID] = def
		m.defOrder = append(m.defOrder, def.GID)
	}

	staleDefs := false
	for _, wt := range tasks {
		task := Task{
			GID:        wt.GID,
			Name:       wt.Name,
			Completed:  wt.Completed,
			ModifiedAt: wt.ModifiedAt,
			Fields:     map[string]FieldState{},
			wire:       wt.CustomFields,
		}
		sectionGID := ""
		if wt.Section != nil && m.section(wt.Section.GID) != nil {
			sectionGID = wt.Section.GID
		} else if len(m.sections) > 0 {
			// Every task must live in an existing section; strays land in
			// the first column.
			sectionGID = m.sections[0].GID
			r.logf("board: task %s has no known section, placing in %s", wt.GID, sectionGID)
		} else {
			r.logf("board: dropping task %s: project has no sections", wt.GID)
			continue
		}
		task.SectionGID = sectionGID

		if stale := coerceTaskFields(m.defs, &task, r.logf); stale {
			staleDefs = true
		}

		m.tasks[task.GID] = task
		if sec := m.section(sectionGID); sec != nil {
			sec.TaskOrder = append(sec.TaskOrder, task.GID)
		}
	}
	return m, staleDefs
}

// coerceTaskFields validates the task's cached wire fields against the
// given definitions, marking failures degraded. Returns true when an
// unknown option (or missing definition) suggests the definitions are
// stale.
func coerceTaskFields(defs map[string]schema.FieldDefinition, task *Task, logf func(string, ...any)) bool {
	stale := false
	for _, wf := range task.wire {
		if _, seen := task.Fields[wf.GID]; seen {
			continue
		}
		task.FieldOrder = append(task.FieldOrder, wf.GID)
		def, ok := defs[wf.GID]
		if !ok {
			task.Fields[wf.GID] = FieldState{Degraded: true, Reason: "field not in project definitions"}
			stale = true
			continue
		}
		value, err := schema.Coerce(def, wf)
		if err != nil {
			var unknown *schema.UnknownOptionError
			if errors.As(err, &unknown) {
				stale = true
			}
			task.Fields[wf.GID] = FieldState{Degraded: true, Reason: "malformed field value"}
			logf("board: task %s field %s degraded: %v", task.GID, wf.GID, err)
			continue
		}
		task.Fields[wf.GID] = FieldState{Value: value}
	}
	return stale
}
