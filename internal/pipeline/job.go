package pipeline

import "scriptforge/internal/document"

// State is the lifecycle state of a [Job].
type State int

const (
	// StatePending is the only initial state: the job is queued and untouched.
	StatePending State = iota

	// StateProcessing means the job has been dispatched and a prompt snapshot
	// taken. A job re-enters Processing on each internal retry.
	StateProcessing

	// StateSucceeded means the provider returned a valid document and the
	// output writer persisted it.
	StateSucceeded

	// StateFailed means the job ended with a permanent failure, exhausted its
	// retry budget, or could not be persisted.
	StateFailed

	// StateSkipped means the completion index reported the record already has
	// output; no provider call was made.
	StateSkipped

	// StateCancelled means a cancellation signal was observed before or during
	// processing; no partial output was persisted.
	StateCancelled
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateProcessing:
		return "processing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateSkipped, StateCancelled:
		return true
	default:
		return false
	}
}

// validTransition enforces the allowed state machine edges. Any transition not
// listed here is a defect in the orchestrator, not a silent no-op.
func validTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateProcessing || to == StateSkipped || to == StateCancelled
	case StateProcessing:
		// Processing → Processing is the internal retry loop.
		return to == StateProcessing || to == StateSucceeded ||
			to == StateFailed || to == StateCancelled
	default:
		// Terminal states admit nothing.
		return false
	}
}

// Job wraps exactly one [Record] with its mutable processing lifecycle for one
// run. The orchestrator exclusively owns Job mutation; other components
// request transitions and the orchestrator applies them, guaranteeing a single
// writer.
type Job struct {
	// Record is the unit of work this job processes.
	Record Record

	// State is the current lifecycle state.
	State State

	// Attempts is the number of provider calls made so far.
	Attempts int

	// LastErr is the most recent error, if any. Set for Failed jobs and for
	// jobs that retried before succeeding.
	LastErr error

	// Result is the generated document. Non-nil only once the provider has
	// returned a valid document (set even if persisting then fails, so the
	// error event can carry enough detail to retry later).
	Result *document.Document

	// OutputPath is where the result was persisted. Set on Succeeded.
	OutputPath string
}
