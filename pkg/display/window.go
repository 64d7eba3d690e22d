// Package display owns the full-screen HighGUI window the kiosk draws on.
//
// Every render repaints the whole screen: content is scaled, rotated and
// centered on a black canvas, then presented. HighGUI only paints while
// its event loop runs, so presenting always pumps WaitKey; keys seen while
// previewing are kept for PollKey, keys seen while a still is held are
// dropped.
package display

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/canvas"
	"github.com/teslashibe/go-snapbooth/pkg/frame"
)

// ErrClosed is returned when rendering to a closed window.
var ErrClosed = errors.New("display: window closed")

// NoKey is returned by PollKey when no key was pressed.
const NoKey = -1

// Canvas size used when the screen cannot be queried.
const (
	FallbackWidth  = 1920
	FallbackHeight = 1080
)

// Config holds window configuration.
type Config struct {
	Name string

	// ScreenWidth and ScreenHeight size the canvas. Zero means query
	// the framebuffer.
	ScreenWidth  int
	ScreenHeight int

	Fullscreen bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Name:       "snapbooth",
		Fullscreen: true,
	}
}

// screen is the HighGUI surface. Swapped in tests.
type screen interface {
	show(m gocv.Mat)
	waitKey(ms int) int
	close()
}

type highgui struct {
	w *gocv.Window
}

func (h highgui) show(m gocv.Mat)    { h.w.IMShow(m) }
func (h highgui) waitKey(ms int) int { return h.w.WaitKey(ms) }
func (h highgui) close()             { h.w.Close() }

// Window is the kiosk's display surface.
type Window struct {
	screen screen
	size   image.Point
	logger *slog.Logger

	mu      sync.Mutex
	lastKey int
	closed  bool
}

// Open creates the window and sizes the canvas.
func Open(cfg Config) (*Window, error) {
	size := image.Pt(cfg.ScreenWidth, cfg.ScreenHeight)
	if size.X <= 0 || size.Y <= 0 {
		w, h, err := ScreenSize()
		if err != nil {
			log.Component("display").Warn("screen size unavailable, using fallback",
				"error", err, "width", FallbackWidth, "height", FallbackHeight)
			w, h = FallbackWidth, FallbackHeight
		}
		size = image.Pt(w, h)
	}

	win := gocv.NewWindow(cfg.Name)
	if cfg.Fullscreen {
		win.SetWindowProperty(gocv.WindowPropertyFullscreen, gocv.WindowFullscreen)
	}
	return newWindow(highgui{w: win}, size), nil
}

func newWindow(s screen, size image.Point) *Window {
	w := &Window{
		screen:  s,
		size:    size,
		logger:  log.Component("display"),
		lastKey: NoKey,
	}
	w.logger.Info("display ready", "width", size.X, "height", size.Y)
	return w
}

// Size returns the canvas size in pixels.
func (w *Window) Size() (width, height int) {
	return w.size.X, w.size.Y
}

// RenderFrame draws f at p and pumps events for one millisecond.
func (w *Window) RenderFrame(f *frame.Frame, p canvas.Placement) error {
	src, err := frameToMat(f)
	if err != nil {
		return err
	}
	defer src.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	if err := w.present(src, p); err != nil {
		return err
	}
	if k := w.screen.waitKey(1); k >= 0 {
		w.lastKey = k
	}
	return nil
}

// RenderStaticImage loads the image at path, draws it at p and holds it
// on screen for d.
func (w *Window) RenderStaticImage(path string, p canvas.Placement, d time.Duration) error {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return fmt.Errorf("display: could not read image %s", path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	if err := w.present(img, p); err != nil {
		return err
	}
	w.hold(d)
	return nil
}

// RenderText shows msg in large type and holds it for d.
func (w *Window) RenderText(msg string, d time.Duration) error {
	return w.renderCard(canvas.WordLines(msg), d)
}

// RenderResult shows label with its score beneath and holds it for d.
func (w *Window) RenderResult(label string, score float64, d time.Duration) error {
	return w.renderCard(canvas.ResultLines(label, score), d)
}

func (w *Window) renderCard(lines []canvas.TextLine, d time.Duration) error {
	card, err := canvas.TextCard(w.size.X, w.size.Y, lines)
	if err != nil {
		return err
	}
	m, err := frameToMat(frame.FromImage(card))
	if err != nil {
		return err
	}
	defer m.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	w.screen.show(m)
	w.hold(d)
	return nil
}

// PollKey returns the key seen by the last preview render, or NoKey.
// Each key is returned once.
func (w *Window) PollKey() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	k := w.lastKey
	w.lastKey = NoKey
	return k
}

// Close destroys the window. Safe to call more than once.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.screen.close()
	w.logger.Debug("display closed")
	return nil
}

// present composes src onto a black canvas at p and shows it.
// Caller holds w.mu.
func (w *Window) present(src gocv.Mat, p canvas.Placement) error {
	out, err := compose(src, p, w.size)
	if err != nil {
		return err
	}
	defer out.Close()
	w.screen.show(out)
	return nil
}

// hold keeps the current image up for d, pumping events and discarding
// keys. Caller holds w.mu.
func (w *Window) hold(d time.Duration) {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		ms := int(remaining / time.Millisecond)
		if ms < 1 {
			ms = 1
		}
		w.screen.waitKey(ms)
	}
}
