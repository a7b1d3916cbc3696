// Package output persists generated documents and answers completion checks
// against them.
//
// Each successful result is written to <root>/<channel>/<title>.json, and a
// processed-log at <root>/.processed.json maps record identity keys to their
// artifact paths. A record counts as complete only when both its log entry and
// its artifact exist; a log entry whose artifact has been deleted means the
// record is reprocessed, matching how an operator expects deletion to behave.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scriptforge/internal/document"
	"scriptforge/internal/pipeline"
)

// indexFilename is the processed-log file kept inside the output root.
const indexFilename = ".processed.json"

// indexEntry records one completed generation.
type indexEntry struct {
	OutputPath  string    `json:"output_path"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Store implements the pipeline's OutputWriter and CompletionIndex against a
// directory tree. It is safe for concurrent use by a worker pool; per-run key
// dedup upstream guarantees no two writers share an artifact path.
type Store struct {
	root string

	mu    sync.Mutex
	index map[string]indexEntry
}

// Open creates a Store rooted at dir, creating the directory if needed and
// loading the processed-log. A missing or unreadable log is not an error: the
// store starts empty and every record is treated as not complete (fail-open).
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: create root %q: %w", dir, err)
	}

	s := &Store{
		root:  dir,
		index: make(map[string]indexEntry),
	}

	data, err := os.ReadFile(filepath.Join(dir, indexFilename))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run against this directory.
	case err != nil:
		slog.Warn("output: cannot read processed log, treating all records as unprocessed",
			"path", filepath.Join(dir, indexFilename), "err", err)
	default:
		if err := json.Unmarshal(data, &s.index); err != nil {
			slog.Warn("output: processed log is corrupt, treating all records as unprocessed",
				"path", filepath.Join(dir, indexFilename), "err", err)
			s.index = make(map[string]indexEntry)
		}
	}
	return s, nil
}

// IsComplete reports whether key already has persisted output. It never
// returns an error: absence means "not complete", and any I/O failure while
// checking is logged and treated as "not complete" so the record is
// re-processed rather than silently skipped.
func (s *Store) IsComplete(key string) bool {
	s.mu.Lock()
	entry, ok := s.index[key]
	s.mu.Unlock()
	if !ok {
		return false
	}

	if _, err := os.Stat(entry.OutputPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("output: cannot stat artifact, re-processing",
				"key", key, "path", entry.OutputPath, "err", err)
		} else {
			slog.Warn("output: artifact missing for processed record, re-processing",
				"key", key, "path", entry.OutputPath)
		}
		return false
	}
	return true
}

// Write persists doc as <root>/<channel>/<title>.json and records the key in
// the processed-log. It returns the artifact path.
func (s *Store) Write(rec pipeline.Record, doc *document.Document) (string, error) {
	channel := document.SanitizeFilename(rec.Channel)
	if channel == "" {
		channel = "unknown-channel"
	}
	name := document.SanitizeFilename(doc.Title)
	if name == "" {
		name = document.SanitizeFilename(rec.Key())
	}

	dir := filepath.Join(s.root, channel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: create channel dir %q: %w", dir, err)
	}

	path := filepath.Join(dir, name+".json")
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", fmt.Errorf("output: encode document for %q: %w", rec.Key(), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("output: write %q: %w", path, err)
	}

	s.mu.Lock()
	s.index[rec.Key()] = indexEntry{
		OutputPath:  path,
		ProcessedAt: time.Now().UTC(),
	}
	err = s.saveIndexLocked()
	s.mu.Unlock()
	if err != nil {
		// The artifact is on disk; a stale log only means a future run
		// re-checks it. Not worth failing the job over.
		slog.Warn("output: cannot update processed log", "err", err)
	}

	return path, nil
}

// saveIndexLocked writes the processed-log atomically via a temp file rename.
// Caller must hold s.mu.
func (s *Store) saveIndexLocked() error {
	data, err := json.MarshalIndent(s.index, "", "    ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.root, indexFilename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Compile-time interface assertions.
var (
	_ pipeline.CompletionIndex = (*Store)(nil)
	_ pipeline.OutputWriter    = (*Store)(nil)
)
