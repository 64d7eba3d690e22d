package trigger

import "sync/atomic"

// Key codes as returned by HighGUI's WaitKey.
const (
	KeySpace  = 32
	KeyEscape = 27
	NoKey     = -1
)

// KeyPoller returns the next pending key code, or NoKey.
type KeyPoller interface {
	PollKey() int
}

// KeyPollerFunc adapts a function to KeyPoller.
type KeyPollerFunc func() int

// PollKey implements KeyPoller.
func (f KeyPollerFunc) PollKey() int { return f() }

// Keyboard fires on a capture key and requests shutdown on a quit key.
// All other keys are ignored.
type Keyboard struct {
	poller     KeyPoller
	captureKey int
	quitKey    int
	latch      *Latch
	quit       atomic.Bool
}

// NewKeyboard builds a keyboard trigger reading from poller.
func NewKeyboard(poller KeyPoller, captureKey, quitKey int) *Keyboard {
	return &Keyboard{
		poller:     poller,
		captureKey: captureKey,
		quitKey:    quitKey,
		latch:      NewLatch(0),
	}
}

// Poll drains one key from the input queue. Call once per loop iteration.
func (k *Keyboard) Poll() {
	key := k.poller.PollKey()
	if key == NoKey {
		return
	}
	// WaitKey may carry modifier bits above the low byte.
	switch key & 0xff {
	case k.captureKey:
		k.latch.Fire()
	case k.quitKey:
		k.quit.Store(true)
	}
}

// Pending reports whether the capture key was pressed.
func (k *Keyboard) Pending() bool { return k.latch.Pending() }

// Clear drops the pending capture.
func (k *Keyboard) Clear() { k.latch.Clear() }

// QuitRequested reports whether the quit key was pressed.
func (k *Keyboard) QuitRequested() bool { return k.quit.Load() }

// Close is a no-op; the window owning the key queue is released by the display.
func (k *Keyboard) Close() error { return nil }
