package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *sleepRecorder, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rec := &sleepRecorder{}
	c := New("test-token",
		WithBaseURL(srv.URL),
		WithSleep(rec.sleep),
		WithRetryPolicy(4, 100*time.Millisecond, 5*time.Second),
		WithPageLimit(2),
	)
	return c, rec, srv
}

func TestPaginationYieldsAllPagesOnceInOrder(t *testing.T) {
	pages := map[string]string{
		"": `{"data":[{"gid":"t1","name":"one"},{"gid":"t2","name":"two"}],"next_page":{"offset":"cursor-2"}}`,
		"cursor-2": `{"data":[{"gid":"t3","name":"three"},{"gid":"t4","name":"four"}],"next_page":{"offset":"cursor-3"}}`,
		"cursor-3": `{"data":[{"gid":"t5","name":"five"}]}`,
	}
	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bearer auth, got %q", got)
		}
		body, ok := pages[r.URL.Query().Get("offset")]
		if !ok {
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})
	c, _, _ := newTestClient(t, handler)

	tasks, err := Collect(context.Background(), c.Tasks("p1"))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if requests != 3 {
		t.Fatalf("expected 3 page requests, got %d", requests)
	}
	want := []string{"t1", "t2", "t3", "t4", "t5"}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i, gid := range want {
		if tasks[i].GID != gid {
			t.Fatalf("task %d: got %s want %s", i, tasks[i].GID, gid)
		}
	}
}

func TestPagerExhaustedSequenceStaysEmpty(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"gid":"s1","name":"Backlog"}]}`)
	})
	c, _, _ := newTestClient(t, handler)

	p := c.Sections("p1")
	items, more, err := p.Next(context.Background())
	if err != nil || more || len(items) != 1 {
		t.Fatalf("first page: items=%d more=%v err=%v", len(items), more, err)
	}
	items, more, err = p.Next(context.Background())
	if err != nil || more || items != nil {
		t.Fatalf("exhausted pager returned items=%v more=%v err=%v", items, more, err)
	}
}

func TestRateLimitedHonorsRetryAfterFloor(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			fmt.Fprint(w, `{"data":{"gid":"t1","name":"done"}}`)
		}
	})
	c, rec, _ := newTestClient(t, handler)

	task, err := c.GetTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Name != "done" {
		t.Fatalf("unexpected payload: %+v", task)
	}
	if got := c.RetryCount(); got != 2 {
		t.Fatalf("expected exactly 2 retries recorded, got %d", got)
	}
	delays := rec.recorded()
	if len(delays) != 2 {
		t.Fatalf("expected 2 waits, got %v", delays)
	}
	if delays[0] < 2*time.Second {
		t.Fatalf("first wait %s shorter than hinted 2s", delays[0])
	}
	if delays[1] < 1*time.Second {
		t.Fatalf("second wait %s shorter than hinted 1s", delays[1])
	}
}

func TestUnauthorizedSurfacesImmediatelyWithZeroRetries(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":[{"message":"Not Authorized"}]}`)
	})
	c, rec, _ := newTestClient(t, handler)

	_, err := c.GetTask(context.Background(), "t1")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if callErr.Kind != KindUnauthorized {
		t.Fatalf("expected unauthorized, got %s", callErr.Kind)
	}
	if calls != 1 || callErr.Retries != 0 || len(rec.recorded()) != 0 {
		t.Fatalf("expected single attempt with no waits: calls=%d retries=%d waits=%v",
			calls, callErr.Retries, rec.recorded())
	}
	if callErr.Err == nil || callErr.Err.Error() != "Not Authorized" {
		t.Fatalf("expected service message, got %v", callErr.Err)
	}
}

func TestForbiddenIsPermanentNotUnauthorized(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"errors":[{"message":"Forbidden"}]}`)
	})
	c, rec, _ := newTestClient(t, handler)

	_, err := c.GetTask(context.Background(), "t1")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
	// The credential was accepted but lacks permission; a new token will
	// not change the outcome.
	if callErr.Kind != KindPermanent {
		t.Fatalf("expected permanent, got %s", callErr.Kind)
	}
	if calls != 1 || len(rec.recorded()) != 0 {
		t.Fatalf("forbidden call was retried: calls=%d waits=%v", calls, rec.recorded())
	}
}

func TestTransientFailureIsRetriedWithBackoff(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"data":{"gid":"p1","name":"Board"}}`)
	})
	c, rec, _ := newTestClient(t, handler)

	project, err := c.GetProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if project.Name != "Board" {
		t.Fatalf("unexpected payload: %+v", project)
	}
	delays := rec.recorded()
	if len(delays) != 1 || delays[0] != 100*time.Millisecond {
		t.Fatalf("expected one base-delay wait, got %v", delays)
	}
}

func TestRetriesAreBoundedAndCapped(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rec := &sleepRecorder{}
	c := New("test-token",
		WithBaseURL(srv.URL),
		WithSleep(rec.sleep),
		WithRetryPolicy(3, 1*time.Second, 2*time.Second),
	)

	_, err := c.GetTask(context.Background(), "t1")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if callErr.Kind != KindTransient || callErr.Retries != 3 {
		t.Fatalf("expected transient after 3 retries, got kind=%s retries=%d", callErr.Kind, callErr.Retries)
	}
	delays := rec.recorded()
	want := []time.Duration{1 * time.Second, 2 * time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("got waits %v", delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("wait %d: got %s want %s (cap not applied)", i, delays[i], want[i])
		}
	}
}

func TestNonIdempotentMoveIsNeverRetried(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c, rec, _ := newTestClient(t, handler)

	err := c.MoveTask(context.Background(), "t1", "s2", "")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if callErr.Kind != KindPermanent {
		t.Fatalf("expected permanent after single attempt, got %s", callErr.Kind)
	}
	if calls != 1 || len(rec.recorded()) != 0 {
		t.Fatalf("move was retried: calls=%d waits=%v", calls, rec.recorded())
	}
}

func TestMoveSendsDataEnvelope(t *testing.T) {
	var got map[string]map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"data":{}}`)
	})
	c, _, _ := newTestClient(t, handler)

	if err := c.MoveTask(context.Background(), "t1", "s2", "t9"); err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	data := got["data"]
	if data["task"] != "t1" || data["insert_before"] != "t9" {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestCreateTaskSendsEnvelopeAndIsNeverRetried(t *testing.T) {
	var calls int
	var got map[string]map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost || r.URL.Path != "/tasks" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"data":{"gid":"t-new","name":"write tests"}}`)
	})
	c, rec, _ := newTestClient(t, handler)

	_, err := c.CreateTask(context.Background(), "p1", "write tests")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if callErr.Kind != KindPermanent || calls != 1 || len(rec.recorded()) != 0 {
		t.Fatalf("create was retried: kind=%s calls=%d waits=%v", callErr.Kind, calls, rec.recorded())
	}

	task, err := c.CreateTask(context.Background(), "p1", "write tests")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.GID != "t-new" {
		t.Fatalf("created gid = %q", task.GID)
	}
	data := got["data"]
	if data["name"] != "write tests" {
		t.Fatalf("unexpected body: %v", got)
	}
	projects, ok := data["projects"].([]any)
	if !ok || len(projects) != 1 || projects[0] != "p1" {
		t.Fatalf("unexpected projects field: %v", data["projects"])
	}
}

func TestCallTimeoutClassifiedTransient(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-token",
		WithBaseURL(srv.URL),
		WithTimeout(20*time.Millisecond),
		WithRetryPolicy(0, time.Millisecond, time.Millisecond),
	)

	_, err := c.GetTask(context.Background(), "t1")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if callErr.Kind != KindTransient {
		t.Fatalf("timeout should classify transient, got %s", callErr.Kind)
	}
}
