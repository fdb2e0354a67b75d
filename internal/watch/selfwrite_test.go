package watch

import (
	"testing"
	"time"
)

// fakeClock lets tests move the filter's notion of time forward.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testFilter(window time.Duration) (*SelfWriteFilter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)}
	f := NewSelfWriteFilter(window)
	f.now = clock.now
	return f, clock
}

func TestMarkThenIsSelfWrite(t *testing.T) {
	f, _ := testFilter(2 * time.Second)
	f.Mark("conversations/a.yaml")
	if !f.IsSelfWrite("conversations/a.yaml") {
		t.Error("fresh mark should be a self-write")
	}
	if f.IsSelfWrite("conversations/b.yaml") {
		t.Error("unmarked path should not be a self-write")
	}
}

func TestMarkExpires(t *testing.T) {
	f, clock := testFilter(2 * time.Second)
	f.Mark("riffs/x.md")

	clock.advance(1999 * time.Millisecond)
	if !f.IsSelfWrite("riffs/x.md") {
		t.Error("mark inside the window should hold")
	}

	clock.advance(2 * time.Millisecond)
	if f.IsSelfWrite("riffs/x.md") {
		t.Error("mark past the window should expire")
	}

	// The expired check evicted the entry; a re-mark starts a fresh window.
	f.Mark("riffs/x.md")
	if !f.IsSelfWrite("riffs/x.md") {
		t.Error("re-mark should start a fresh window")
	}
}

func TestMarkPrunesStaleEntries(t *testing.T) {
	f, clock := testFilter(time.Second)
	f.Mark("a")
	f.Mark("b")

	clock.advance(3 * time.Second) // past 2x window
	f.Mark("c")

	f.mu.Lock()
	n := len(f.marks)
	f.mu.Unlock()
	if n != 1 {
		t.Errorf("marks after prune = %d, want 1", n)
	}
}

func TestZeroWindowUsesDefault(t *testing.T) {
	f := NewSelfWriteFilter(0)
	if f.window != DefaultSuppressionWindow {
		t.Errorf("window = %v, want %v", f.window, DefaultSuppressionWindow)
	}
}
