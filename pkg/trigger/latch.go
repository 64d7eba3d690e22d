// Package trigger turns key presses and button edges into a single
// debounced "capture pending" flag.
package trigger

import (
	"sync/atomic"
	"time"
)

// Latch is the pending flag. One goroutine fires it (a key poll or a GPIO
// edge watcher), the kiosk loop reads and clears it. No locks needed.
type Latch struct {
	pending  atomic.Bool
	lastFire atomic.Int64 // unix nanos of the last accepted edge, 0 = never
	window   time.Duration
	now      func() time.Time
}

// NewLatch returns a latch that ignores fires within window of the last
// accepted one. A zero window disables debouncing.
func NewLatch(window time.Duration) *Latch {
	return &Latch{window: window, now: time.Now}
}

// Fire records an edge. It returns true only when the flag went from
// clear to pending; edges inside the debounce window and edges while a
// trigger is already pending are no-ops.
func (l *Latch) Fire() bool {
	now := l.now().UnixNano()
	if l.window > 0 {
		last := l.lastFire.Load()
		if last != 0 && now-last < int64(l.window) {
			return false
		}
		if !l.lastFire.CompareAndSwap(last, now) {
			return false
		}
	}
	return l.pending.CompareAndSwap(false, true)
}

// Pending reports whether a trigger is waiting to be handled.
func (l *Latch) Pending() bool {
	return l.pending.Load()
}

// Clear drops the pending trigger. Clearing an idle latch is a no-op.
func (l *Latch) Clear() {
	l.pending.Store(false)
}
