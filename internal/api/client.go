// Package api implements the authenticated client for the remote task
// service: request building, token-based pagination, failure classification,
// and retry with rate-limit aware backoff. Failures never panic; they
// resolve as typed *CallError values for the reconciler to consume.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"driftboard/internal/schema"
)

const (
	// DefaultBaseURL is the service's REST root.
	DefaultBaseURL = "https://app.asana.com/api/1.0"

	// DefaultPageLimit is the page size requested from list endpoints.
	DefaultPageLimit = 100

	// DefaultTimeout bounds each individual network call.
	DefaultTimeout = 10 * time.Second

	defaultMaxRetries = 4
	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxDelay   = 30 * time.Second
)

// Client makes authenticated calls against the task service. The credential
// is read-only after construction and safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	pageLimit  int
	sleep      func(ctx context.Context, d time.Duration) error
	logf       func(format string, args ...any)

	retryCount atomic.Int64
}

// Option customizes client construction.
type Option func(*Client)

// WithBaseURL points the client at a different service root (tests use an
// httptest server here).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(base, "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithHTTPClient overrides the authenticated transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout bounds each network call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryPolicy adjusts the bounded backoff loop.
func WithRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
		if maxDelay > 0 {
			c.maxDelay = maxDelay
		}
	}
}

// WithPageLimit adjusts the requested page size.
func WithPageLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.pageLimit = limit
		}
	}
}

// WithSleep injects the backoff wait (tests record delays instead of
// actually sleeping).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithLogger routes retry diagnostics somewhere useful.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Client) {
		if logf != nil {
			c.logf = logf
		}
	}
}

// New builds a client authenticated with the given bearer token. The token
// source is static; refresh is the credential owner's problem, not ours.
func New(token string, opts ...Option) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: oauth2.NewClient(context.Background(), src),
		timeout:    DefaultTimeout,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		pageLimit:  DefaultPageLimit,
		sleep:      sleepCtx,
		logf:       func(string, ...any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// RetryCount returns the total number of retries issued since construction.
func (c *Client) RetryCount() int {
	return int(c.retryCount.Load())
}

// GetProject fetches one project.
func (c *Client) GetProject(ctx context.Context, projectGID string) (Project, error) {
	var env envelope[Project]
	err := c.do(ctx, "get project", http.MethodGet, "/projects/"+projectGID, nil, nil, &env, true)
	return env.Data, err
}

// GetTask fetches one task with its custom field values.
func (c *Client) GetTask(ctx context.Context, taskGID string) (Task, error) {
	var env envelope[Task]
	err := c.do(ctx, "get task", http.MethodGet, "/tasks/"+taskGID, nil, nil, &env, true)
	return env.Data, err
}

// Tasks returns the lazy page sequence of a project's tasks.
func (c *Client) Tasks(projectGID string) *Pager[Task] {
	return newPager[Task](c, "list tasks", "/projects/"+projectGID+"/tasks", nil)
}

// Sections returns the lazy page sequence of a project's sections.
func (c *Client) Sections(projectGID string) *Pager[Section] {
	return newPager[Section](c, "list sections", "/projects/"+projectGID+"/sections", nil)
}

// ProjectFields returns the lazy page sequence of a project's custom field
// definitions.
func (c *Client) ProjectFields(projectGID string) *Pager[schema.WireField] {
	return newPager[schema.WireField](c, "list custom fields", "/projects/"+projectGID+"/custom_fields", nil)
}

// ListSections drives the section pager to completion.
func (c *Client) ListSections(ctx context.Context, projectGID string) ([]Section, error) {
	return Collect(ctx, c.Sections(projectGID))
}

// ListFields drives the custom field pager to completion.
func (c *Client) ListFields(ctx context.Context, projectGID string) ([]schema.WireField, error) {
	return Collect(ctx, c.ProjectFields(projectGID))
}

// CreateTask creates a task in a project. Creation is not idempotent (a
// blind retry could create duplicates), so failures surface after a single
// attempt and the caller reconciles.
func (c *Client) CreateTask(ctx context.Context, projectGID, name string) (Task, error) {
	body := map[string]any{
		"name":     name,
		"projects": []string{projectGID},
	}
	var env envelope[Task]
	err := c.do(ctx, "create task", http.MethodPost, "/tasks", nil, body, &env, false)
	return env.Data, err
}

// UpdateTask applies a full-value update to a task. Full-value updates are
// naturally idempotent, so the retry policy applies.
func (c *Client) UpdateTask(ctx context.Context, taskGID string, fields map[string]any) (Task, error) {
	var env envelope[Task]
	err := c.do(ctx, "update task", http.MethodPut, "/tasks/"+taskGID, nil, fields, &env, true)
	return env.Data, err
}

// MoveTask inserts a task into a section. The insert is positional, not
// idempotent: a blind retry could double-move, so failures surface after a
// single attempt and the caller reconciles.
func (c *Client) MoveTask(ctx context.Context, taskGID, sectionGID, insertBefore string) error {
	body := map[string]any{"task": taskGID}
	if insertBefore != "" {
		body["insert_before"] = insertBefore
	}
	return c.do(ctx, "move task", http.MethodPost, "/sections/"+sectionGID+"/addTask", nil, body, nil, false)
}

// do executes one logical call: a bounded retry loop around once. Request
// bodies are wrapped in the service's {"data": ...} envelope.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, out any, idempotent bool) error {
	var retries int
	for attempt := 0; ; attempt++ {
		callErr := c.once(ctx, op, method, path, query, body, out)
		if callErr == nil {
			return nil
		}
		callErr.Retries = retries
		if !idempotent && callErr.Retryable() {
			// Excluded from automatic retry; force caller-level
			// reconciliation instead of a possible double effect.
			c.logf("api: %s failed (%s), not retrying non-idempotent call", op, callErr.Kind)
			callErr.Kind = KindPermanent
			return callErr
		}
		if !callErr.Retryable() || attempt >= c.maxRetries {
			return callErr
		}
		delay := c.backoff(attempt)
		if callErr.Kind == KindRateLimited && callErr.RetryAfter > delay {
			delay = callErr.RetryAfter
		}
		c.logf("api: %s failed (%s), retrying in %s", op, callErr.Kind, delay)
		if err := c.sleep(ctx, delay); err != nil {
			callErr.Err = err
			return callErr
		}
		retries++
		c.retryCount.Add(1)
	}
}

// once performs a single HTTP exchange and classifies the outcome.
func (c *Client) once(ctx context.Context, op, method, path string, query url.Values, body any, out any) *CallError {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(map[string]any{"data": body})
		if err != nil {
			return &CallError{Kind: KindPermanent, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reqBody = bytes.NewReader(payload)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, reqURL, reqBody)
	if err != nil {
		return &CallError{Kind: KindPermanent, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A deadline on the per-call context is a timeout, classified
		// transient; everything else on the transport is a network failure.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &CallError{Kind: KindTransient, Op: op, Err: err}
		}
		return &CallError{Kind: KindNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return &CallError{Kind: KindPermanent, Op: op, Status: resp.StatusCode,
				Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	kind := classifyStatus(resp.StatusCode)
	callErr := &CallError{Kind: kind, Op: op, Status: resp.StatusCode}
	if kind == KindRateLimited {
		callErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	if msg := readErrorMessage(resp.Body); msg != "" {
		callErr.Err = errors.New(msg)
	}
	return callErr
}

// backoff returns the exponential delay for the given zero-based attempt,
// capped at maxDelay.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

// parseRetryAfter reads a Retry-After hint. Only the delta-seconds form is
// honored; anything else yields zero and the normal backoff applies.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// readErrorMessage extracts the first error message from the service's
// error payload, if the body holds one.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 8<<10))
	if err != nil {
		return ""
	}
	var body apiErrorBody
	if err := json.Unmarshal(data, &body); err != nil || len(body.Errors) == 0 {
		return strings.TrimSpace(string(data))
	}
	return body.Errors[0].Message
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
