// Package document defines the structured output produced for each transcript
// and the tolerant parser that extracts it from raw model replies.
//
// Models are asked to reply with a single JSON object {title, summary, content}
// but real output is frequently wrapped in prose, markdown fences, or stray
// tokens. Parse strips everything outside the outermost braces before decoding,
// and validates minimum section lengths so that lazy or truncated generations
// are rejected as retryable failures rather than persisted.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Minimum lengths (in characters) for each section; anything shorter is
// treated as a failed generation worth retrying.
const (
	MinTitleLength   = 20
	MinSummaryLength = 100
	MinContentLength = 500
)

// ErrNoJSON is returned by Parse when the reply contains no JSON object at all.
var ErrNoJSON = errors.New("document: no JSON object in reply")

// ErrTooShort is returned (wrapped) by Parse when a required section is present
// but below its minimum length.
var ErrTooShort = errors.New("document: section below minimum length")

// Document is the structured result of reformatting one transcript.
type Document struct {
	// Title is a concise, descriptive plain-text title.
	Title string `json:"title"`

	// Summary is a short plain-text abstract covering every topic.
	Summary string `json:"summary"`

	// Content is the full restructured document in markdown.
	Content string `json:"content"`
}

// Parse extracts a Document from a raw model reply.
//
// The reply is trimmed to the span between the first '{' and the last '}'
// before JSON decoding, which tolerates leading prose and markdown fences.
// Missing fields and under-length sections are errors; callers decide whether
// to retry.
func Parse(reply string) (*Document, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}

	var doc Document
	if err := json.Unmarshal([]byte(reply[start:end+1]), &doc); err != nil {
		return nil, fmt.Errorf("document: decode reply: %w", err)
	}

	if doc.Title == "" || doc.Summary == "" || doc.Content == "" {
		return nil, fmt.Errorf("document: reply missing required fields (title/summary/content)")
	}
	if err := doc.validateLengths(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// validateLengths enforces the per-section minimum lengths. Lengths are
// character counts, so multi-byte scripts are held to the same bar as ASCII.
func (d *Document) validateLengths() error {
	title := utf8.RuneCountInString(d.Title)
	summary := utf8.RuneCountInString(d.Summary)
	content := utf8.RuneCountInString(d.Content)
	switch {
	case title <= MinTitleLength:
		return fmt.Errorf("%w: title is %d chars (min %d)", ErrTooShort, title, MinTitleLength)
	case summary <= MinSummaryLength:
		return fmt.Errorf("%w: summary is %d chars (min %d)", ErrTooShort, summary, MinSummaryLength)
	case content <= MinContentLength:
		return fmt.Errorf("%w: content is %d chars (min %d)", ErrTooShort, content, MinContentLength)
	}
	return nil
}
