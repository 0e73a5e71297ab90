package api

import (
	"fmt"
	"time"
)

// Kind classifies a failed call. The reconciler keys its commit/rollback
// decisions off this, never off raw status codes.
type Kind int

const (
	// KindUnauthorized means the credential was rejected. Never retried.
	KindUnauthorized Kind = iota + 1
	// KindRateLimited means the service asked us to slow down. Retried with
	// the server's Retry-After hint as a backoff floor.
	KindRateLimited
	// KindTransient covers 5xx and timeouts. Retried.
	KindTransient
	// KindPermanent covers everything that will not improve on retry.
	KindPermanent
	// KindNetwork covers transport-level failures. Retried like transient.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindNetwork:
		return "network"
	}
	return "unknown"
}

// CallError is the typed outcome of a failed endpoint call, surfaced only
// after the retry policy is exhausted (or immediately for non-retryable
// kinds).
type CallError struct {
	Kind       Kind
	Op         string
	Status     int
	RetryAfter time.Duration
	Retries    int
	Err        error
}

func (e *CallError) Error() string {
	msg := fmt.Sprintf("api: %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Retries > 0 {
		msg = fmt.Sprintf("%s after %d retries", msg, e.Retries)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CallError) Unwrap() error { return e.Err }

// Retryable reports whether the retry policy may re-issue the call.
func (e *CallError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTransient, KindNetwork:
		return true
	}
	return false
}

// classifyStatus maps a non-2xx HTTP status onto the failure taxonomy.
// 403 is a valid credential lacking permission, not a bad credential; a new
// token will not help, so it lands in Permanent rather than Unauthorized.
func classifyStatus(status int) Kind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status == 429:
		return KindRateLimited
	case status == 408 || status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
