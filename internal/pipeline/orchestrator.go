package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"scriptforge/internal/document"
	"scriptforge/internal/observe"
	"scriptforge/internal/prompt"
	"scriptforge/internal/resilience"
	"scriptforge/pkg/provider/llm"
)

// ErrAlreadyRunning is returned by [Orchestrator.Run] when a run is in flight.
var ErrAlreadyRunning = errors.New("pipeline: run already in progress")

// ErrNoProvider is returned by [New] when no provider is configured. A missing
// or unbuildable provider aborts the run before any job starts rather than
// failing every job individually.
var ErrNoProvider = errors.New("pipeline: no provider configured")

// CompletionIndex determines whether a record already has valid output.
// Lookups must be idempotent and side-effect-free, and must not fail for a
// non-existent output: absence means "not complete". Implementations treat
// underlying I/O failures as "not complete" (fail-open: re-process rather than
// silently skip) and log them at warning level.
type CompletionIndex interface {
	IsComplete(key string) bool
}

// OutputWriter persists one successful result. It returns the path (or other
// locator) of the written artifact. A write failure fails the job; the
// generated content is still surfaced through the event stream.
type OutputWriter interface {
	Write(rec Record, doc *document.Document) (string, error)
}

// Config assembles an [Orchestrator]'s collaborators and knobs.
type Config struct {
	// Provider is the AI backend used for every job in the run. Required.
	Provider llm.Provider

	// Prompts is the store jobs snapshot their template from. Required.
	Prompts *prompt.Store

	// Index is consulted before dispatch; complete records are skipped.
	// Required.
	Index CompletionIndex

	// Writer persists successful results. Required.
	Writer OutputWriter

	// Retry configures the per-job retry policy. Zero values use the
	// resilience defaults.
	Retry resilience.Config

	// Workers bounds concurrent jobs. Values below 1 mean strictly sequential
	// dispatch, the reference configuration.
	Workers int

	// Temperature and MaxTokens are passed through to every provider request.
	Temperature float64
	MaxTokens   int

	// Reprocess bypasses the completion index for this run, regenerating
	// records that already have output.
	Reprocess bool

	// Sink, if non-nil, receives every event synchronously.
	Sink Sink

	// Metrics, if non-nil, records job and provider telemetry.
	Metrics *observe.Metrics
}

// Orchestrator drives a set of records through the pipeline: it owns the work
// queue, filters through the completion index, snapshots the active prompt per
// job, wraps provider calls in the retry policy, applies all job state
// transitions, and emits progress events.
//
// All exported methods are safe for concurrent use. The orchestrator is the
// only component that mutates jobs.
type Orchestrator struct {
	provider llm.Provider
	prompts  *prompt.Store
	index    CompletionIndex
	writer   OutputWriter
	retry    *resilience.Retryer
	bus      *Bus
	metrics  *observe.Metrics

	workers     int
	temperature float64
	maxTokens   int
	reprocess   bool

	mu        sync.Mutex
	jobs      map[string]*Job // identity key → job
	queue     []*Job          // FIFO dispatch order
	next      int             // index of next undispatched job in queue
	running   bool
	cancelled bool
	cancel    func()
}

// New creates an [Orchestrator]. It fails fast on configuration problems so a
// bad setup aborts before any job starts.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if cfg.Prompts == nil {
		return nil, errors.New("pipeline: prompt store is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("pipeline: completion index is required")
	}
	if cfg.Writer == nil {
		return nil, errors.New("pipeline: output writer is required")
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		provider:    cfg.Provider,
		prompts:     cfg.Prompts,
		index:       cfg.Index,
		writer:      cfg.Writer,
		retry:       resilience.New(cfg.Retry),
		bus:         NewBus(0, cfg.Sink),
		metrics:     cfg.Metrics,
		workers:     workers,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		reprocess:   cfg.Reprocess,
		jobs:        make(map[string]*Job),
	}, nil
}

// Submit enqueues records for processing. Dispatch order follows the supplied
// sequence; a record whose identity key is already enqueued in this run is
// dropped, so at most one job exists per key per run. Submit returns the
// number of jobs actually added.
func (o *Orchestrator) Submit(records []Record) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	added := 0
	for _, rec := range records {
		key := rec.Key()
		if key == "" {
			slog.Warn("dropping record with empty identity key", "title", rec.Title)
			continue
		}
		if _, dup := o.jobs[key]; dup {
			slog.Debug("duplicate record key, keeping first", "key", key)
			continue
		}
		job := &Job{Record: rec, State: StatePending}
		o.jobs[key] = job
		o.queue = append(o.queue, job)
		added++
	}
	return added
}

// Run processes the queue to completion or cancellation. Per-job failures
// never abort the run; the orchestrator always proceeds to the next queued
// job. Run returns once the queue has drained (or been fully cancelled) and
// the completed event has been published.
//
// Run blocks; call it from a background goroutine to keep the control thread
// responsive.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.running = false
		o.cancel = nil
		o.mu.Unlock()
	}()

	g := &errgroup.Group{}
	g.SetLimit(o.workers)

	for {
		job := o.nextJob()
		if job == nil {
			break
		}
		if o.stopRequested(runCtx) {
			o.transition(job, StateCancelled, 0, nil, "")
			continue
		}
		g.Go(func() error {
			o.processJob(runCtx, job)
			return nil
		})
	}
	_ = g.Wait()

	counts := o.Counts()
	o.bus.Publish(Event{Type: EventTypeCompleted, Counts: counts})
	slog.Info("run complete",
		"succeeded", counts[StateSucceeded],
		"failed", counts[StateFailed],
		"skipped", counts[StateSkipped],
		"cancelled", counts[StateCancelled],
	)
	return nil
}

// Cancel requests that no further jobs start. A job already processing
// observes the signal before its next attempt or during its backoff wait and
// transitions to Cancelled; already-terminal jobs are unaffected. Cancel is
// safe to call at any time, including before Run.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.cancelled = true
	cancel := o.cancel
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// UpdatePrompt atomically replaces the active prompt template. It takes effect
// for the next dispatched job, never for one already processing.
func (o *Orchestrator) UpdatePrompt(tpl prompt.Template) {
	o.prompts.Replace(tpl)
	slog.Info("prompt template updated", "template", tpl.Name)
}

// Events returns all events with sequence number greater than seq, oldest
// first. Pass 0 for everything still buffered.
func (o *Orchestrator) Events(seq int64) []Event {
	return o.bus.Since(seq)
}

// Counts returns the number of jobs currently in each state.
func (o *Orchestrator) Counts() map[State]int {
	o.mu.Lock()
	defer o.mu.Unlock()

	counts := make(map[State]int)
	for _, job := range o.jobs {
		counts[job.State]++
	}
	return counts
}

// Job returns a copy of the job for key, and whether one exists.
func (o *Orchestrator) Job(key string) (Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[key]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// nextJob pops the next undispatched job in FIFO order, or nil when the queue
// is drained.
func (o *Orchestrator) nextJob() *Job {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.next >= len(o.queue) {
		return nil
	}
	job := o.queue[o.next]
	o.next++
	return job
}

// stopRequested reports whether cancellation has been signalled, either via
// Cancel or via the run context.
func (o *Orchestrator) stopRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

// processJob runs one job through its full lifecycle. All state mutation for
// the job happens here, on a single goroutine.
func (o *Orchestrator) processJob(ctx context.Context, job *Job) {
	key := job.Record.Key()

	if o.stopRequested(ctx) {
		o.transition(job, StateCancelled, 0, nil, "")
		return
	}

	if !o.reprocess && o.index.IsComplete(key) {
		o.transition(job, StateSkipped, 0, nil, "")
		return
	}

	// Dispatch: the snapshot is taken before the Processing event goes out, so
	// a sink that swaps the template on seeing the event affects later jobs
	// only, never this one.
	snap := o.prompts.Snapshot()
	o.transition(job, StateProcessing, 0, nil, "")

	start := time.Now()
	var doc *document.Document
	attempts, err := o.retry.Do(ctx, func(ctx context.Context) error {
		req, buildErr := o.buildRequest(snap, job.Record)
		if buildErr != nil {
			// A template that cannot render will not render on retry either.
			return llm.Permanent(o.provider.Name(), buildErr)
		}
		resp, callErr := o.complete(ctx, req)
		if callErr != nil {
			return callErr
		}
		parsed, parseErr := document.Parse(resp.Content)
		if parseErr != nil {
			// Malformed output is plausibly a one-off generation glitch.
			return llm.Transient(o.provider.Name(), parseErr)
		}
		doc = parsed
		return nil
	}, func(attempt int, attemptErr error, wait time.Duration) {
		// Internal retry loop: Processing → Processing with the attempt count.
		o.transition(job, StateProcessing, attempt, attemptErr, "")
	})

	if err != nil {
		if ctx.Err() != nil {
			o.transition(job, StateCancelled, attempts, nil, "")
			return
		}
		reason := fmt.Sprintf("gave up after %d attempts", attempts)
		if llm.ClassOf(err) == llm.ClassPermanent {
			reason = "will not retry"
		}
		o.finishJob(job, StateFailed, attempts, err, reason, start)
		return
	}

	path, writeErr := o.writer.Write(job.Record, doc)
	if writeErr != nil {
		// The document was generated; keep it on the job so the event stream
		// carries enough detail to retry the persist later. No re-generation
		// within this run.
		o.mu.Lock()
		job.Result = doc
		o.mu.Unlock()
		o.finishJob(job, StateFailed, attempts,
			fmt.Errorf("pipeline: persist %q: %w", key, writeErr), "persist failed", start)
		return
	}

	o.mu.Lock()
	job.Result = doc
	job.OutputPath = path
	o.mu.Unlock()
	o.finishJob(job, StateSucceeded, attempts, nil, "", start)
}

// finishJob applies a terminal transition and records job telemetry.
func (o *Orchestrator) finishJob(job *Job, to State, attempts int, err error, reason string, start time.Time) {
	o.transition(job, to, attempts, err, reason)
	if o.metrics != nil {
		o.metrics.JobDuration.Record(context.Background(), time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("state", to.String())))
	}
}

// complete performs one provider exchange, recording request metrics.
func (o *Orchestrator) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := o.provider.Complete(ctx, req)
	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = llm.ClassOf(err).String()
			o.metrics.ProviderErrors.Add(ctx, 1,
				metric.WithAttributes(attribute.String("provider", o.provider.Name())))
		}
		o.metrics.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", o.provider.Name()),
			attribute.String("status", status),
		))
	}
	return resp, err
}

// buildRequest renders the prompt snapshot against the record.
func (o *Orchestrator) buildRequest(snap prompt.Template, rec Record) (llm.Request, error) {
	meta := rec.Metadata
	if meta == nil {
		meta = map[string]any{
			"video_id":     rec.ID,
			"title":        rec.Title,
			"channel_name": rec.Channel,
			"duration":     rec.Duration,
		}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return llm.Request{}, fmt.Errorf("pipeline: marshal metadata for %q: %w", rec.Key(), err)
	}

	body, err := snap.Render(prompt.Input{
		Title:      rec.Title,
		Channel:    rec.Channel,
		Duration:   rec.Duration,
		Metadata:   string(metaJSON),
		Transcript: rec.Text,
	})
	if err != nil {
		return llm.Request{}, err
	}

	return llm.Request{
		System:      snap.System,
		Prompt:      body,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}, nil
}

// transition applies a state change to job and publishes the matching event.
// The orchestrator is the single writer for job state; a transition outside
// the state machine's table is a programming error and panics.
func (o *Orchestrator) transition(job *Job, to State, attempts int, err error, reason string) {
	o.mu.Lock()
	from := job.State
	if !validTransition(from, to) {
		o.mu.Unlock()
		panic(fmt.Sprintf("pipeline: illegal transition %s → %s for %q", from, to, job.Record.Key()))
	}
	job.State = to
	if attempts > 0 {
		job.Attempts = attempts
	}
	if err != nil {
		job.LastErr = err
	}
	outputPath := job.OutputPath
	o.mu.Unlock()

	event := Event{
		Type:    EventTypeState,
		Key:     job.Record.Key(),
		From:    from,
		To:      to,
		Attempt: attempts,
		Reason:  reason,
	}
	switch {
	case err != nil:
		event.Message = err.Error()
	case to == StateSucceeded:
		event.Message = outputPath
	}
	o.bus.Publish(event)

	if o.metrics != nil && to.Terminal() {
		o.metrics.JobsFinished.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("state", to.String())))
	}
}
