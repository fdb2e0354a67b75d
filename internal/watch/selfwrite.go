// Package watch turns raw filesystem events on the vault into semantic
// entity change events, suppressing echoes of the application's own writes.
package watch

import (
	"sync"
	"time"
)

// DefaultSuppressionWindow is how long a self-write mark shields a path
// from being reported as an external change.
const DefaultSuppressionWindow = 2000 * time.Millisecond

// SelfWriteFilter remembers vault-relative paths the application itself has
// just written, so the watcher can tell its own echoes apart from external
// edits. Marks expire after the suppression window.
type SelfWriteFilter struct {
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	marks map[string]time.Time
}

// NewSelfWriteFilter creates a filter with the given suppression window.
// A non-positive window falls back to the default.
func NewSelfWriteFilter(window time.Duration) *SelfWriteFilter {
	if window <= 0 {
		window = DefaultSuppressionWindow
	}
	return &SelfWriteFilter{
		window: window,
		now:    time.Now,
		marks:  make(map[string]time.Time),
	}
}

// Mark records that path is about to be written by the application.
// Callers must mark before the bytes hit disk; marking after the write
// races the watcher. Stale entries older than twice the window are pruned
// on the way through to bound the map.
func (f *SelfWriteFilter) Mark(path string) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.marks[path] = now
	for p, at := range f.marks {
		if now.Sub(at) > 2*f.window {
			delete(f.marks, p)
		}
	}
}

// IsSelfWrite reports whether a mark for path exists and is younger than
// the suppression window. An expired mark is evicted.
func (f *SelfWriteFilter) IsSelfWrite(path string) bool {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	at, ok := f.marks[path]
	if !ok {
		return false
	}
	if now.Sub(at) >= f.window {
		delete(f.marks, path)
		return false
	}
	return true
}
