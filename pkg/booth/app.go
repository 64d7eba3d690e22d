package booth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/camera"
	"github.com/teslashibe/go-snapbooth/pkg/canvas"
	"github.com/teslashibe/go-snapbooth/pkg/display"
	"github.com/teslashibe/go-snapbooth/pkg/kiosk"
	"github.com/teslashibe/go-snapbooth/pkg/model"
	"github.com/teslashibe/go-snapbooth/pkg/model/dnn"
	"github.com/teslashibe/go-snapbooth/pkg/model/eim"
	"github.com/teslashibe/go-snapbooth/pkg/model/onnx"
	"github.com/teslashibe/go-snapbooth/pkg/result"
	"github.com/teslashibe/go-snapbooth/pkg/trigger"
)

// Screen is the display as the app uses it: a kiosk surface that also
// reports its size and feeds the keyboard trigger.
type Screen interface {
	kiosk.Surface
	trigger.KeyPoller
	Size() (width, height int)
}

// Component constructors. Swapped in tests.
var (
	openCamera = func(cfg camera.Config) (kiosk.FrameSource, error) {
		d, err := camera.Open(cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	openScreen = func(cfg display.Config) (Screen, error) {
		w, err := display.Open(cfg)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	openButton = func(pin string, debounce time.Duration) (trigger.Source, error) {
		b, err := trigger.OpenButton(pin, debounce)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	openModel = OpenModel
)

// OpenModel loads the model at path with the given backend ("auto" picks
// by extension).
func OpenModel(ctx context.Context, backend, path string) (model.Model, error) {
	b, err := model.ResolveBackend(backend, path)
	if err != nil {
		return nil, err
	}

	var m model.Model
	switch b {
	case model.BackendEIM:
		m, err = eim.Open(ctx, path, eim.DefaultConfig())
	case model.BackendONNX:
		m, err = onnx.Open(path, "")
	default:
		cfg := dnn.DefaultConfig()
		cfg.ModelPath = path
		m, err = dnn.Open(cfg)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// App is one kiosk process.
type App struct {
	config Config
	logger *slog.Logger

	source   kiosk.FrameSource
	screen   Screen
	trigger  kiosk.Trigger
	producer result.Producer
	loop     *kiosk.Loop
	ran      bool
}

// New creates an app from cfg.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Debug {
		log.Init("debug")
	}
	return &App{config: cfg, logger: log.Component("booth")}, nil
}

// Init opens the camera, display, trigger and producer, in that order.
// If one fails, the ones already open are closed.
func (a *App) Init(ctx context.Context) (err error) {
	var opened []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(opened) - 1; i >= 0; i-- {
			if cerr := opened[i](); cerr != nil {
				a.logger.Warn("cleanup after failed init", "error", cerr)
			}
		}
	}()

	a.logger.Info("starting kiosk", "trigger", a.config.Trigger, "producer", a.config.Producer)

	if a.source, err = openCamera(a.config.Camera); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	opened = append(opened, a.source.Close)

	if a.screen, err = openScreen(display.Config{
		Name:         "snapbooth",
		ScreenWidth:  a.config.ScreenWidth,
		ScreenHeight: a.config.ScreenHeight,
		Fullscreen:   true,
	}); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	opened = append(opened, a.screen.Close)

	if a.trigger, err = a.buildTrigger(); err != nil {
		return fmt.Errorf("trigger: %w", err)
	}
	opened = append(opened, a.trigger.Close)

	if a.producer, err = a.buildProducer(ctx); err != nil {
		return fmt.Errorf("producer: %w", err)
	}
	opened = append(opened, a.producer.Close)

	rotation, _ := canvas.ParseRotation(a.config.Rotation)
	w, h := a.screen.Size()
	a.loop, err = kiosk.New(kiosk.Config{
		Geometry: canvas.Geometry{
			ScreenWidth:  w,
			ScreenHeight: h,
			Ratio:        a.config.Ratio,
			Rotation:     rotation,
		},
		ScratchPath:    a.config.ScratchPath,
		FreezeDuration: a.config.Freeze,
		ResultDuration: a.config.Result,
	}, kiosk.Deps{
		Source:   a.source,
		Surface:  a.screen,
		Trigger:  a.trigger,
		Producer: a.producer,
	})
	if err != nil {
		return fmt.Errorf("kiosk: %w", err)
	}
	return nil
}

func (a *App) buildTrigger() (kiosk.Trigger, error) {
	keyboard := trigger.NewKeyboard(a.screen, trigger.KeySpace, trigger.KeyEscape)
	if a.config.Trigger == TriggerKeyboard {
		return keyboard, nil
	}

	button, err := openButton(a.config.Pin, a.config.Debounce)
	if err != nil {
		return nil, err
	}
	a.logger.Info("button armed", "pin", a.config.Pin, "debounce", a.config.Debounce)
	if a.config.Trigger == TriggerButton {
		return button, nil
	}
	return trigger.Any{button, keyboard}, nil
}

func (a *App) buildProducer(ctx context.Context) (result.Producer, error) {
	if a.config.Producer == ProducerWords {
		seed := a.config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		w, err := result.NewRandomWord(a.config.Words, seed)
		if err != nil {
			return nil, err
		}
		return w, nil
	}

	m, err := openModel(ctx, a.config.Backend, a.config.ModelPath)
	if err != nil {
		return nil, err
	}
	info := m.Info()
	a.logger.Info("model loaded", "name", info.Name, "owner", info.Owner,
		"labels", len(info.Labels), "input", fmt.Sprintf("%dx%d", info.InputWidth, info.InputHeight))
	return result.NewClassifier(m), nil
}

// Run drives the kiosk until quit, cancellation or a capture failure.
// A camera that stops delivering frames ends the session normally; the
// components are released either way.
func (a *App) Run(ctx context.Context) error {
	if a.loop == nil {
		return errors.New("booth: Run called before Init")
	}
	a.ran = true
	err := a.loop.Run(ctx)
	if errors.Is(err, camera.ErrCaptureFailure) {
		a.logger.Warn("camera stream ended", "error", err)
		return nil
	}
	return err
}

// Shutdown releases components when Run never took ownership of them.
func (a *App) Shutdown() error {
	if a.ran || a.loop == nil {
		return nil
	}
	a.ran = true
	return errors.Join(
		a.source.Close(),
		a.screen.Close(),
		a.producer.Close(),
		a.trigger.Close(),
	)
}

// Stats returns the kiosk counters.
func (a *App) Stats() kiosk.Stats {
	if a.loop == nil {
		return kiosk.Stats{}
	}
	return a.loop.Stats()
}
