// Package resilience provides the bounded-retry policy that wraps every
// provider exchange in the pipeline.
//
// The central type is [Retryer]: it re-runs an attempt function on transient
// failures with exponential backoff up to a fixed ceiling, returns immediately
// on permanent failures, and aborts between attempts as soon as the context is
// cancelled. Failure classes come from [llm.ClassOf].
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"log/slog"
	"time"

	"scriptforge/pkg/provider/llm"
)

// Default retry parameters.
const (
	defaultMaxAttempts = 3
	defaultBackoff     = 1 * time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// Config holds tuning knobs for a [Retryer].
type Config struct {
	// MaxAttempts is the total number of calls permitted, including the first.
	// Default: 3.
	MaxAttempts int

	// Backoff is the wait before the second attempt. It doubles after each
	// further failure up to MaxBackoff. Default: 1s.
	Backoff time.Duration

	// MaxBackoff is the upper limit on the backoff duration. Default: 30s.
	MaxBackoff time.Duration
}

// Retryer executes attempt functions under the configured retry policy.
type Retryer struct {
	maxAttempts int
	backoff     time.Duration
	maxBackoff  time.Duration
}

// New creates a [Retryer] with the supplied configuration. Zero-value config
// fields are replaced with the defaults.
func New(cfg Config) *Retryer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	return &Retryer{
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		maxBackoff:  cfg.MaxBackoff,
	}
}

// MaxAttempts returns the configured attempt budget.
func (r *Retryer) MaxAttempts() int { return r.maxAttempts }

// Do runs fn until it succeeds, fails permanently, exhausts the attempt
// budget, or ctx is cancelled. It returns the number of calls actually made
// and the final error (nil on success).
//
// onRetry, if non-nil, is invoked after each failed attempt that will be
// retried, with the attempt number that failed, its error, and the wait before
// the next call. It is never invoked for the final attempt.
//
// Cancellation is observed both during an attempt (fn is expected to respect
// ctx) and during the backoff wait; in either case Do returns ctx.Err() so
// callers can distinguish cancellation from exhaustion.
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error, onRetry func(attempt int, err error, wait time.Duration)) (int, error) {
	wait := r.backoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			// The attempt failed because the run was cancelled mid-call.
			return attempt, ctxErr
		}
		if llm.ClassOf(err) == llm.ClassPermanent {
			return attempt, err
		}
		if attempt >= r.maxAttempts {
			return attempt, err
		}

		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
		slog.Debug("transient failure, backing off",
			"attempt", attempt, "wait", wait, "err", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}

		wait *= 2
		if wait > r.maxBackoff {
			wait = r.maxBackoff
		}
	}
}
