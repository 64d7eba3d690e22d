package trigger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Defaults for the physical capture button.
const (
	DefaultPin      = "GPIO4"
	DefaultDebounce = 200 * time.Millisecond

	// edgePollInterval bounds how long Close waits for the watcher to notice.
	edgePollInterval = 100 * time.Millisecond
)

// ErrPinNotFound is returned when the GPIO pin name is unknown to the host.
var ErrPinNotFound = errors.New("trigger: gpio pin not found")

// EdgePin is the part of gpio.PinIO the button needs.
type EdgePin interface {
	WaitForEdge(timeout time.Duration) bool
	Halt() error
}

// Button fires the latch on rising edges of a digital input. Edges are
// watched on their own goroutine; the kiosk loop only ever reads the flag.
type Button struct {
	pin   EdgePin
	latch *Latch

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// OpenButton initializes the host GPIO drivers and configures name as a
// pulled-up input with rising-edge detection.
func OpenButton(name string, debounce time.Duration) (*Button, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("trigger: init gpio host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	if err := p.In(gpio.PullUp, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("trigger: configure %s: %w", name, err)
	}
	return NewButton(p, debounce), nil
}

// NewButton starts watching pin for edges.
func NewButton(pin EdgePin, debounce time.Duration) *Button {
	b := &Button{
		pin:   pin,
		latch: NewLatch(debounce),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go b.watch()
	return b
}

func (b *Button) watch() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}
		if b.pin.WaitForEdge(edgePollInterval) {
			b.latch.Fire()
		}
	}
}

// Poll is a no-op; edges arrive asynchronously.
func (b *Button) Poll() {}

// Pending reports whether the button was pressed.
func (b *Button) Pending() bool { return b.latch.Pending() }

// Clear drops the pending capture.
func (b *Button) Clear() { b.latch.Clear() }

// QuitRequested is always false: the button has no quit gesture.
func (b *Button) QuitRequested() bool { return false }

// Close stops the edge watcher and halts the pin exactly once.
func (b *Button) Close() error {
	b.closeOnce.Do(func() {
		close(b.stop)
		<-b.done
		b.closeErr = b.pin.Halt()
	})
	return b.closeErr
}
