// Package kiosk drives the capture cycle: preview the camera live until a
// trigger fires, then freeze the frame, show it, produce a result, show
// that, and go back to previewing.
//
// The loop is single-threaded. It owns every component it is given and
// releases each exactly once when it stops, however it stops.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/canvas"
	"github.com/teslashibe/go-snapbooth/pkg/frame"
	"github.com/teslashibe/go-snapbooth/pkg/model"
	"github.com/teslashibe/go-snapbooth/pkg/result"
)

var (
	// ErrMissingDependency is returned by New when a component is nil.
	ErrMissingDependency = errors.New("kiosk: missing dependency")

	// ErrStopped is returned by Run on a loop that already ran.
	ErrStopped = errors.New("kiosk: loop already stopped")
)

// FrameSource yields camera frames.
type FrameSource interface {
	// Read blocks until the next frame. An error ends the loop.
	Read() (*frame.Frame, error)

	// Size is the frame size reported when the source opened.
	Size() (width, height int)

	Close() error
}

// Surface is the full-screen display.
type Surface interface {
	RenderFrame(f *frame.Frame, p canvas.Placement) error
	RenderStaticImage(path string, p canvas.Placement, d time.Duration) error
	RenderText(msg string, d time.Duration) error
	RenderResult(label string, score float64, d time.Duration) error
	Close() error
}

// Trigger requests captures and, for keyboards, shutdown.
type Trigger interface {
	// Poll gives polled sources a chance to read input. Called once per
	// preview iteration, after the frame is presented.
	Poll()
	Pending() bool
	Clear()
	QuitRequested() bool
	Close() error
}

// Deps are the components the loop drives. The loop takes ownership.
type Deps struct {
	Source   FrameSource
	Surface  Surface
	Trigger  Trigger
	Producer result.Producer
}

// Config holds loop configuration.
type Config struct {
	Geometry canvas.Geometry

	// ScratchPath receives the frozen frame on every capture, overwriting
	// the previous one.
	ScratchPath string

	// FreezeDuration is how long the frozen frame stays on screen.
	FreezeDuration time.Duration

	// ResultDuration is how long the result stays on screen.
	ResultDuration time.Duration
}

// Defaults.
const (
	DefaultScratchPath    = "/tmp/captured_image.jpg"
	DefaultFreezeDuration = time.Second
	DefaultResultDuration = 3 * time.Second
	DefaultRatio          = 1.8
)

// DefaultConfig returns production defaults for a 1920x1080 screen.
func DefaultConfig() Config {
	return Config{
		Geometry: canvas.Geometry{
			ScreenWidth:  1920,
			ScreenHeight: 1080,
			Ratio:        DefaultRatio,
		},
		ScratchPath:    DefaultScratchPath,
		FreezeDuration: DefaultFreezeDuration,
		ResultDuration: DefaultResultDuration,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	if c.ScratchPath == "" {
		return errors.New("kiosk: scratch path is required")
	}
	if c.FreezeDuration < 0 || c.ResultDuration < 0 {
		return errors.New("kiosk: durations must not be negative")
	}
	return nil
}

// State is the loop's position in the capture cycle.
type State int32

const (
	StatePreview State = iota
	StateResult
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StatePreview:
		return "preview"
	case StateResult:
		return "result"
	case StateShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Stats counts what the loop did.
type Stats struct {
	Frames   int64 // frames read
	Captures int64 // triggers handled
	Failures int64 // producer errors
}

// Loop is one kiosk session.
type Loop struct {
	config Config
	deps   Deps
	logger *slog.Logger

	// still is where frozen frames go, fixed from the source's size.
	still canvas.Placement

	state    atomic.Int32
	frames   atomic.Int64
	captures atomic.Int64
	failures atomic.Int64

	started   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a loop over deps.
func New(cfg Config, deps Deps) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: frame source", ErrMissingDependency)
	case deps.Surface == nil:
		return nil, fmt.Errorf("%w: surface", ErrMissingDependency)
	case deps.Trigger == nil:
		return nil, fmt.Errorf("%w: trigger", ErrMissingDependency)
	case deps.Producer == nil:
		return nil, fmt.Errorf("%w: result producer", ErrMissingDependency)
	}

	w, h := deps.Source.Size()
	l := &Loop{
		config: cfg,
		deps:   deps,
		logger: log.Component("kiosk"),
		still:  cfg.Geometry.Place(w, h),
	}
	if !l.still.Fits() {
		l.logger.Warn("content larger than the screen, edges will be clipped",
			"content", l.still.Size, "screen", cfg.Geometry.Screen())
	}
	return l, nil
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	if prev := State(l.state.Swap(int32(s))); prev != s {
		l.logger.Debug("state", "from", prev, "to", s)
	}
}

// Stats returns a snapshot of the counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Frames:   l.frames.Load(),
		Captures: l.captures.Load(),
		Failures: l.failures.Load(),
	}
}

// Run drives the loop until the trigger asks to quit, ctx is cancelled,
// or a frame read fails. Quit and cancellation return nil; a failed read
// returns its error. All components are released before Run returns,
// including when a panic unwinds it.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrStopped
	}
	defer l.shutdown()

	l.logger.Info("preview started",
		"screen", l.config.Geometry.Screen(), "ratio", l.config.Geometry.Ratio,
		"rotation", int(l.config.Geometry.Rotation))

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("stopping", "reason", err)
			return nil
		}
		l.setState(StatePreview)

		f, err := l.deps.Source.Read()
		if err != nil {
			l.logger.Error("frame read failed", "error", err)
			return fmt.Errorf("kiosk: read frame: %w", err)
		}
		l.frames.Add(1)

		if err := l.deps.Surface.RenderFrame(f, l.config.Geometry.Place(f.Width, f.Height)); err != nil {
			return fmt.Errorf("kiosk: render frame: %w", err)
		}

		l.deps.Trigger.Poll()
		if l.deps.Trigger.QuitRequested() {
			l.logger.Info("stopping", "reason", "quit requested")
			return nil
		}
		if l.deps.Trigger.Pending() {
			l.capture(ctx, f)
		}
	}
}

// capture runs one RESULT cycle for f. Nothing in it is fatal.
func (l *Loop) capture(ctx context.Context, f *frame.Frame) {
	l.setState(StateResult)
	n := l.captures.Add(1)
	logger := l.logger.With("capture", uuid.NewString())
	logger.Info("capture triggered", "count", n)

	start := time.Now()
	if err := f.Save(l.config.ScratchPath); err != nil {
		logger.Warn("scratch save failed, skipping freeze", "path", l.config.ScratchPath, "error", err)
	} else if err := l.deps.Surface.RenderStaticImage(l.config.ScratchPath, l.still, l.config.FreezeDuration); err != nil {
		logger.Warn("freeze render failed", "error", err)
	}

	res := l.produce(ctx, f, logger)
	logger.Info("result", "label", res.Label, "score", res.Score, "kind", res.Kind,
		"elapsed", time.Since(start).Round(time.Millisecond))

	var err error
	if res.Scored {
		err = l.deps.Surface.RenderResult(res.Label, res.Score, l.config.ResultDuration)
	} else {
		err = l.deps.Surface.RenderText(res.Label, l.config.ResultDuration)
	}
	if err != nil {
		logger.Warn("result render failed", "error", err)
	}

	l.deps.Trigger.Clear()
}

// produce calls the producer, turning errors and panics into the Failed
// sentinel. Unsupported output keeps its own sentinel and is not a failure.
func (l *Loop) produce(ctx context.Context, f *frame.Frame, logger *slog.Logger) (res result.Result) {
	defer func() {
		if p := recover(); p != nil {
			l.failures.Add(1)
			logger.Error("result producer panicked", "panic", p)
			res = result.FailedResult()
		}
	}()

	res, err := l.deps.Producer.Produce(ctx, f)
	if errors.Is(err, model.ErrUnsupportedOutput) && res.Label != "" {
		logger.Info("model output not displayable", "error", err)
		return res
	}
	if err != nil {
		l.failures.Add(1)
		logger.Warn("result producer failed", "error", err)
		if res.Label == "" {
			res = result.FailedResult()
		}
	}
	return res
}

// shutdown releases every component once and logs the outcome.
func (l *Loop) shutdown() {
	l.closeOnce.Do(func() {
		l.setState(StateShutdown)

		release := []struct {
			name  string
			close func() error
		}{
			{"frame source", l.deps.Source.Close},
			{"surface", l.deps.Surface.Close},
			{"result producer", l.deps.Producer.Close},
			{"trigger", l.deps.Trigger.Close},
		}

		var errs []error
		for _, r := range release {
			if err := safeClose(r.close); err != nil {
				errs = append(errs, fmt.Errorf("release %s: %w", r.name, err))
			}
		}
		l.closeErr = errors.Join(errs...)
		if l.closeErr != nil {
			l.logger.Warn("release errors", "error", l.closeErr)
		}

		s := l.Stats()
		l.logger.Info("kiosk stopped", "frames", s.Frames, "captures", s.Captures, "failures", s.Failures)
	})
}

// ReleaseError returns the joined errors from releasing components, once
// Run has returned.
func (l *Loop) ReleaseError() error {
	return l.closeErr
}

func safeClose(close func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return close()
}
