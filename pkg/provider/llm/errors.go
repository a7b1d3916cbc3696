package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Class divides provider failures into the two outcomes the retry policy
// distinguishes.
type Class int

const (
	// ClassTransient marks failures that may succeed on retry: timeouts, rate
	// limits, 5xx responses, and malformed-but-plausibly-retryable output.
	ClassTransient Class = iota

	// ClassPermanent marks failures that will not succeed on retry without
	// intervention: invalid credentials, exhausted quota, rejected requests.
	ClassPermanent
)

// String returns the human-readable name of the class.
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure. Providers wrap every non-success
// outcome in an Error so callers never have to inspect SDK-specific types.
type Error struct {
	// Provider is the name of the backend that produced the failure.
	Provider string

	// Class is the retry eligibility of this failure.
	Class Class

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Provider, e.Class, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a transient failure attributed to provider.
func Transient(provider string, err error) *Error {
	return &Error{Provider: provider, Class: ClassTransient, Err: err}
}

// Permanent wraps err as a permanent failure attributed to provider.
func Permanent(provider string, err error) *Error {
	return &Error{Provider: provider, Class: ClassPermanent, Err: err}
}

// ClassOf reports the failure class of err.
//
// Unclassified errors default to transient: re-attempting a genuinely broken
// request wastes a bounded number of calls, whereas refusing to retry a
// recoverable one loses work. Context cancellation is never retried and is
// reported as permanent here; callers that care about cancellation as a
// distinct outcome should check ctx.Err() themselves.
func ClassOf(err error) Class {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Class
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassPermanent
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ClassTransient
	}
	return ClassTransient
}

// ClassifyStatus maps an HTTP status code from a provider API to a failure
// class. Rate limiting (429) and request timeout (408) are transient alongside
// all 5xx responses; every other 4xx is a request or credential problem that a
// retry cannot fix.
func ClassifyStatus(status int) Class {
	switch {
	case status == 408, status == 429:
		return ClassTransient
	case status >= 500:
		return ClassTransient
	default:
		return ClassPermanent
	}
}
