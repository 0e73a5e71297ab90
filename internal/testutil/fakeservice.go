// Package testutil provides a controllable in-memory implementation of the
// board.Service interface for reconciler tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"driftboard/internal/api"
	"driftboard/internal/board"
	"driftboard/internal/schema"
)

// FakeService implements board.Service against fixtures. In manual mode,
// update and move calls park until the test releases them, which lets tests
// interleave remote completions deterministically.
type FakeService struct {
	mu          sync.Mutex
	sections    []api.Section
	fields      []schema.WireField
	fieldsQueue [][]schema.WireField
	taskPages   [][]api.Task

	sectionsErr error
	fieldsErr   error
	tasksErr    error
	createErr   error

	fieldsGate chan struct{}
	createSeq  int

	manual  bool
	updates chan *UpdateCall
	moves   chan *MoveCall
	creates chan CreateCall
}

// NewFakeService returns a fake in auto mode: remote calls succeed
// immediately.
func NewFakeService() *FakeService {
	return &FakeService{
		updates: make(chan *UpdateCall, 32),
		moves:   make(chan *MoveCall, 32),
		creates: make(chan CreateCall, 32),
	}
}

// SetManual switches the fake to manual completion mode.
func (f *FakeService) SetManual(manual bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manual = manual
}

// SetFixture replaces the reload fixture.
func (f *FakeService) SetFixture(sections []api.Section, fields []schema.WireField, taskPages [][]api.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = sections
	f.fields = fields
	f.taskPages = taskPages
}

// QueueFields makes the next ListFields call return the given definitions
// once, after which the standing fixture applies again.
func (f *FakeService) QueueFields(fields []schema.WireField) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fieldsQueue = append(f.fieldsQueue, fields)
}

// GateFields makes every ListFields call consume one token from the given
// channel before returning, so tests can hold a definition fetch open.
func (f *FakeService) GateFields(gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fieldsGate = gate
}

// FailCreate makes task creation fail with the given error (nil clears it).
func (f *FakeService) FailCreate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

// FailTasks makes task listing fail with the given error (nil clears it).
func (f *FakeService) FailTasks(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasksErr = err
}

func (f *FakeService) ListSections(ctx context.Context, projectGID string) ([]api.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sectionsErr != nil {
		return nil, f.sectionsErr
	}
	return append([]api.Section(nil), f.sections...), nil
}

func (f *FakeService) ListFields(ctx context.Context, projectGID string) ([]schema.WireField, error) {
	f.mu.Lock()
	gate := f.fieldsGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fieldsErr != nil {
		return nil, f.fieldsErr
	}
	if len(f.fieldsQueue) > 0 {
		next := f.fieldsQueue[0]
		f.fieldsQueue = f.fieldsQueue[1:]
		return append([]schema.WireField(nil), next...), nil
	}
	return append([]schema.WireField(nil), f.fields...), nil
}

func (f *FakeService) Tasks(projectGID string) board.TaskSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	pages := make([][]api.Task, len(f.taskPages))
	copy(pages, f.taskPages)
	return &fakeTaskSource{pages: pages, err: f.tasksErr}
}

type fakeTaskSource struct {
	pages [][]api.Task
	index int
	err   error
}

func (s *fakeTaskSource) Next(ctx context.Context) ([]api.Task, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if s.index >= len(s.pages) {
		return nil, false, nil
	}
	page := s.pages[s.index]
	s.index++
	return page, s.index < len(s.pages), nil
}

// UpdateCall is one captured UpdateTask invocation.
type UpdateCall struct {
	TaskGID string
	Fields  map[string]any
	release chan updateOutcome
}

type updateOutcome struct {
	task api.Task
	err  error
}

// Succeed completes the call with the given task payload.
func (c *UpdateCall) Succeed(task api.Task) { c.release <- updateOutcome{task: task} }

// Fail completes the call with an error.
func (c *UpdateCall) Fail(err error) { c.release <- updateOutcome{err: err} }

func (f *FakeService) UpdateTask(ctx context.Context, taskGID string, fields map[string]any) (api.Task, error) {
	call := &UpdateCall{TaskGID: taskGID, Fields: fields, release: make(chan updateOutcome, 1)}
	f.mu.Lock()
	manual := f.manual
	f.mu.Unlock()
	if !manual {
		call.release <- updateOutcome{task: api.Task{GID: taskGID}}
	}
	f.updates <- call
	select {
	case <-ctx.Done():
		return api.Task{}, ctx.Err()
	case out := <-call.release:
		return out.task, out.err
	}
}

// CreateCall is one captured CreateTask invocation.
type CreateCall struct {
	ProjectGID string
	Name       string
	SectionGID string
}

func (f *FakeService) CreateTask(ctx context.Context, projectGID, name, sectionGID string) (api.Task, error) {
	f.mu.Lock()
	err := f.createErr
	f.createSeq++
	gid := fmt.Sprintf("created-%d", f.createSeq)
	f.mu.Unlock()
	f.creates <- CreateCall{ProjectGID: projectGID, Name: name, SectionGID: sectionGID}
	if err != nil {
		return api.Task{}, err
	}
	return api.Task{GID: gid, Name: name}, nil
}

// NextCreate waits for the next captured create call.
func (f *FakeService) NextCreate(t *testing.T) CreateCall {
	t.Helper()
	select {
	case call := <-f.creates:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a create call")
		return CreateCall{}
	}
}

// MoveCall is one captured MoveTask invocation.
type MoveCall struct {
	TaskGID      string
	SectionGID   string
	InsertBefore string
	release      chan error
}

// Succeed completes the move.
func (c *MoveCall) Succeed() { c.release <- nil }

// Fail completes the move with an error.
func (c *MoveCall) Fail(err error) { c.release <- err }

func (f *FakeService) MoveTask(ctx context.Context, taskGID, sectionGID, insertBefore string) error {
	call := &MoveCall{TaskGID: taskGID, SectionGID: sectionGID, InsertBefore: insertBefore, release: make(chan error, 1)}
	f.mu.Lock()
	manual := f.manual
	f.mu.Unlock()
	if !manual {
		call.release <- nil
	}
	f.moves <- call
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-call.release:
		return err
	}
}

// NextUpdate waits for the next captured update call.
func (f *FakeService) NextUpdate(t *testing.T) *UpdateCall {
	t.Helper()
	select {
	case call := <-f.updates:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an update call")
		return nil
	}
}

// NextMove waits for the next captured move call.
func (f *FakeService) NextMove(t *testing.T) *MoveCall {
	t.Helper()
	select {
	case call := <-f.moves:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a move call")
		return nil
	}
}
