package pipeline_test

import (
	"sync"
	"testing"

	"scriptforge/internal/pipeline"
)

func TestBus_PublishAssignsMonotonicSequence(t *testing.T) {
	t.Parallel()
	bus := pipeline.NewBus(10, nil)

	first := bus.Publish(pipeline.Event{Type: pipeline.EventTypeState, Key: "a"})
	second := bus.Publish(pipeline.Event{Type: pipeline.EventTypeState, Key: "b"})

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("sequence: got %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() || second.Timestamp.IsZero() {
		t.Error("published events should carry timestamps")
	}
}

func TestBus_SinceFiltersBySequence(t *testing.T) {
	t.Parallel()
	bus := pipeline.NewBus(10, nil)
	for range 5 {
		bus.Publish(pipeline.Event{Type: pipeline.EventTypeState})
	}

	all := bus.Since(0)
	if len(all) != 5 {
		t.Fatalf("Since(0): got %d events, want 5", len(all))
	}
	tail := bus.Since(3)
	if len(tail) != 2 {
		t.Fatalf("Since(3): got %d events, want 2", len(tail))
	}
	if tail[0].Seq != 4 || tail[1].Seq != 5 {
		t.Errorf("Since(3) sequences: got %d, %d, want 4, 5", tail[0].Seq, tail[1].Seq)
	}
	if got := bus.Since(5); len(got) != 0 {
		t.Errorf("Since(latest): got %d events, want 0", len(got))
	}
}

func TestBus_TrimsToMaxEvents(t *testing.T) {
	t.Parallel()
	bus := pipeline.NewBus(3, nil)
	for range 5 {
		bus.Publish(pipeline.Event{Type: pipeline.EventTypeState})
	}

	events := bus.Since(0)
	if len(events) != 3 {
		t.Fatalf("got %d buffered events, want 3", len(events))
	}
	// Oldest events are dropped first; sequence numbers keep counting.
	if events[0].Seq != 3 || events[2].Seq != 5 {
		t.Errorf("buffered sequences: got %d..%d, want 3..5", events[0].Seq, events[2].Seq)
	}
}

func TestBus_SinkReceivesEveryEvent(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var got []int64
	bus := pipeline.NewBus(10, func(ev pipeline.Event) {
		mu.Lock()
		got = append(got, ev.Seq)
		mu.Unlock()
	})

	bus.Publish(pipeline.Event{})
	bus.Publish(pipeline.Event{})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("sink sequences: got %v, want [1 2]", got)
	}
}
