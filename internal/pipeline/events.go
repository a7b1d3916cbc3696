package pipeline

import (
	"sync"
	"time"
)

// EventType classifies messages emitted during a run.
type EventType string

const (
	// EventTypeState is emitted for every job state transition, including the
	// Processing → Processing retry loop.
	EventTypeState EventType = "state"

	// EventTypeCompleted is emitted once per run, when the queue drains or is
	// fully cancelled. It carries the terminal counts by state.
	EventTypeCompleted EventType = "completed"
)

// Event is a sequenced progress message consumed by the presentation layer.
// The core never references presentation state directly; it only publishes
// events.
type Event struct {
	// Seq is a monotonically increasing sequence number assigned on publish.
	Seq int64

	// Timestamp is when the event was published (UTC).
	Timestamp time.Time

	// Type distinguishes state transitions from run completion.
	Type EventType

	// Key is the identity key of the job this event concerns. Empty for
	// completed events.
	Key string

	// From and To describe the state transition for state events.
	From, To State

	// Attempt is the provider call count at the time of the event.
	Attempt int

	// Message carries a human-readable detail: the error for failed or
	// retrying jobs, the output path for succeeded ones.
	Message string

	// Reason classifies failures for display: "will not retry" for permanent
	// failures, "gave up after N attempts" for exhausted transient ones,
	// "persist failed" for local write errors. Empty otherwise.
	Reason string

	// Counts holds terminal counts by state for completed events.
	Counts map[State]int
}

// Sink receives events synchronously as they are published. A sink runs on the
// orchestrator's goroutines and must return quickly; hand off to a channel for
// anything slow.
type Sink func(Event)

// Bus stores recent events and provides incremental reads, so a presentation
// layer can render per-item status and aggregate progress without polling
// orchestrator internals.
type Bus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	sink      Sink
}

// NewBus creates a bounded in-memory event buffer. sink may be nil.
func NewBus(maxEvents int, sink Sink) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &Bus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		sink:      sink,
	}
}

// Publish assigns a sequence number and timestamp, appends the event, and
// invokes the sink if one is configured. Events for a given job are published
// in transition order; events for different jobs may interleave.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()
	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	sink := b.sink
	b.mu.Unlock()

	if sink != nil {
		sink(event)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
