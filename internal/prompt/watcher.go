package prompt

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors a prompts file for edits and calls a callback when the file
// changes, so an operator can rewrite the active prompt in an editor while a
// batch is running. It uses polling (not fsnotify) to keep dependencies
// minimal.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(Template)

	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once

	// last known file state for change detection
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 2 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher creates a prompts file watcher. It loads the file once to verify
// it parses and to record its state, then starts polling in a background
// goroutine. onChange receives every subsequently loaded valid template;
// invalid edits are logged and skipped, keeping the previous template active.
//
// The initial template is returned so the caller can seed its [Store] with it.
func NewWatcher(path string, onChange func(Template), opts ...WatcherOption) (*Watcher, Template, error) {
	w := &Watcher{
		path:     path,
		interval: 2 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	tpl, hash, mtime, err := w.loadAndHash()
	if err != nil {
		return nil, Template{}, fmt.Errorf("prompt: watcher initial load: %w", err)
	}
	w.lastHash = hash
	w.lastMtime = mtime

	go w.poll()
	return w, tpl, nil
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// poll runs in a background goroutine, checking the prompts file periodically.
func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reads the prompts file and, if it has changed and is valid, calls
// onChange with the new template.
func (w *Watcher) check() {
	// Quick mtime check first to avoid hashing unchanged files.
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("prompt watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	tpl, hash, newMtime, err := w.loadAndHash()
	if err != nil {
		slog.Warn("prompt watcher: edited prompts file is invalid, keeping previous template",
			"path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		// File was touched but content is identical.
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}
	w.lastHash = hash
	w.lastMtime = newMtime
	w.mu.Unlock()

	slog.Info("prompt watcher: prompts reloaded", "path", w.path, "template", tpl.Name)

	if w.onChange != nil {
		w.onChange(tpl)
	}
}

// loadAndHash reads the prompts file, parses + validates it, and returns the
// template alongside the file's SHA-256 hash and modification time. If the
// file is invalid, it returns an error (the caller keeps the old template).
func (w *Watcher) loadAndHash() (Template, [sha256.Size]byte, time.Time, error) {
	var zeroHash [sha256.Size]byte

	data, err := os.ReadFile(w.path)
	if err != nil {
		return Template{}, zeroHash, time.Time{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return Template{}, zeroHash, time.Time{}, err
	}

	hash := sha256.Sum256(data)

	tpl, err := loadFromBytes(data)
	if err != nil {
		return Template{}, zeroHash, time.Time{}, err
	}

	return tpl, hash, info.ModTime(), nil
}
