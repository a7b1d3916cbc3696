package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"scriptforge/internal/resilience"
	"scriptforge/pkg/provider/llm"
)

func fastConfig() resilience.Config {
	return resilience.Config{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		MaxBackoff:  4 * time.Millisecond,
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	t.Parallel()
	r := resilience.New(resilience.Config{})
	if got := r.MaxAttempts(); got != 3 {
		t.Errorf("default MaxAttempts: got %d, want 3", got)
	}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()
	r := resilience.New(fastConfig())

	calls := 0
	attempts, err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("got %d attempts and %d calls, want 1 and 1", attempts, calls)
	}
}

func TestDo_TransientRetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	r := resilience.New(fastConfig())

	calls := 0
	attempts, err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return llm.Transient("test", errors.New("busy"))
		}
		return nil
	}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("got %d attempts and %d calls, want 3 and 3", attempts, calls)
	}
}

func TestDo_TransientExhaustsBudget(t *testing.T) {
	t.Parallel()
	r := resilience.New(fastConfig())

	cause := llm.Transient("test", errors.New("still busy"))
	calls := 0
	attempts, err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return cause
	}, nil)

	if !errors.Is(err, cause) {
		t.Errorf("got error %v, want the last attempt error", err)
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("got %d attempts and %d calls, want 3 and 3", attempts, calls)
	}
}

func TestDo_PermanentReturnsImmediately(t *testing.T) {
	t.Parallel()
	r := resilience.New(fastConfig())

	cause := llm.Permanent("test", errors.New("bad credentials"))
	calls := 0
	attempts, err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return cause
	}, nil)

	if !errors.Is(err, cause) {
		t.Errorf("got error %v, want the permanent error", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("got %d attempts and %d calls, want 1 and 1", attempts, calls)
	}
}

func TestDo_UnclassifiedErrorsAreRetried(t *testing.T) {
	t.Parallel()
	r := resilience.New(fastConfig())

	calls := 0
	_, err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("something plain")
	}, nil)

	if err == nil {
		t.Fatal("expected error after exhaustion, got nil")
	}
	if calls != 3 {
		t.Errorf("got %d calls, want 3 (unclassified defaults to transient)", calls)
	}
}

func TestDo_OnRetryReportsAttemptAndBackoff(t *testing.T) {
	t.Parallel()
	r := resilience.New(resilience.Config{
		MaxAttempts: 4,
		Backoff:     time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	})

	type retry struct {
		attempt int
		wait    time.Duration
	}
	var retries []retry
	_, err := r.Do(context.Background(), func(context.Context) error {
		return llm.Transient("test", errors.New("busy"))
	}, func(attempt int, _ error, wait time.Duration) {
		retries = append(retries, retry{attempt, wait})
	})
	if err == nil {
		t.Fatal("expected error after exhaustion, got nil")
	}

	// onRetry fires after every failed attempt except the last.
	want := []retry{
		{1, time.Millisecond},
		{2, 2 * time.Millisecond}, // doubled
		{3, 2 * time.Millisecond}, // capped at MaxBackoff
	}
	if len(retries) != len(want) {
		t.Fatalf("got %d retries, want %d: %+v", len(retries), len(want), retries)
	}
	for i, r := range retries {
		if r != want[i] {
			t.Errorf("retry %d: got %+v, want %+v", i, r, want[i])
		}
	}
}

func TestDo_CancelledBeforeFirstAttempt(t *testing.T) {
	t.Parallel()
	r := resilience.New(fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	attempts, err := r.Do(ctx, func(context.Context) error {
		calls++
		return nil
	}, nil)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if attempts != 0 || calls != 0 {
		t.Errorf("got %d attempts and %d calls, want 0 and 0", attempts, calls)
	}
}

func TestDo_CancelledDuringAttempt(t *testing.T) {
	t.Parallel()
	r := resilience.New(fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	attempts, err := r.Do(ctx, func(context.Context) error {
		cancel()
		return llm.Transient("test", errors.New("interrupted"))
	}, nil)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("got %d attempts, want 1", attempts)
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	t.Parallel()
	r := resilience.New(resilience.Config{
		MaxAttempts: 3,
		Backoff:     time.Minute, // never elapses in a test
		MaxBackoff:  time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var attempts int
	var err error
	go func() {
		defer close(done)
		attempts, err = r.Do(ctx, func(context.Context) error {
			return llm.Transient("test", errors.New("busy"))
		}, func(int, error, time.Duration) {
			// First attempt failed; we are about to enter the backoff wait.
			cancel()
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation during backoff")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("got %d attempts, want 1", attempts)
	}
}
