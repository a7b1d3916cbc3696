// Package pipeline implements the transcript processing pipeline: the record
// and job model, the per-job lifecycle state machine, the event stream, and
// the orchestrator that drives a batch of records through an AI provider under
// a retry policy.
package pipeline

// Record is an immutable description of one transcript-to-process unit.
// Records are produced by the discovery collaborator and are read-only once
// created; the orchestrator owns them for the duration of one run.
type Record struct {
	// ID is the stable identifier of the source video. It is the record's
	// identity key: two records with the same ID are the same unit of work.
	ID string

	// Title is the source video title.
	Title string

	// Channel is the originating channel name.
	Channel string

	// Duration is the video length as reported by the source.
	Duration string

	// Text is the full transcript, already joined into one string.
	Text string

	// Metadata is the raw source metadata, carried through for prompt
	// rendering. May be nil.
	Metadata map[string]any
}

// Key returns the record's identity key. It is pure and deterministic: the
// same record always yields the same key, and no I/O is involved.
func (r Record) Key() string { return r.ID }
