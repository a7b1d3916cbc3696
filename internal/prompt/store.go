package prompt

import "sync"

// Store holds the active [Template] and supports atomic replacement while
// snapshots are being taken from other goroutines.
//
// Readers never observe a partially written template: Snapshot copies the
// current value under a read lock, and Replace swaps the whole value under the
// write lock. No lock is held across a job's lifetime — a job works from its
// snapshot alone.
type Store struct {
	mu      sync.RWMutex
	current Template
}

// NewStore creates a Store seeded with tpl.
func NewStore(tpl Template) *Store {
	return &Store{current: tpl}
}

// Snapshot returns an independent copy of the active template. The copy is
// immutable for the lifetime of the job it serves; later Replace calls do not
// affect it.
func (s *Store) Snapshot() Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Template has only value-type fields, so a struct copy is a deep copy.
	return s.current
}

// Replace atomically installs tpl as the active template. The new template is
// visible to snapshots taken after Replace returns; snapshots already handed
// out are unaffected.
func (s *Store) Replace(tpl Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = tpl
}
