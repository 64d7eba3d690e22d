// Package booth wires the kiosk together: camera, display, trigger and
// result producer chosen from configuration.
package booth

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-snapbooth/internal/config"
	"github.com/teslashibe/go-snapbooth/pkg/camera"
	"github.com/teslashibe/go-snapbooth/pkg/canvas"
	"github.com/teslashibe/go-snapbooth/pkg/kiosk"
	"github.com/teslashibe/go-snapbooth/pkg/model"
	"github.com/teslashibe/go-snapbooth/pkg/result"
	"github.com/teslashibe/go-snapbooth/pkg/trigger"
)

// Trigger modes.
const (
	TriggerKeyboard = "keyboard"
	TriggerButton   = "button"
	TriggerBoth     = "both"
)

// Producers.
const (
	ProducerWords      = "words"
	ProducerClassifier = "classifier"
)

// Config holds all configuration for the kiosk.
// Flag parsing is done in cmd/snapbooth/main.go; this struct is data only.
type Config struct {
	// Debug enables debug logging.
	Debug bool

	// Trigger is "keyboard", "button" or "both".
	Trigger string

	// Producer is "words" or "classifier".
	Producer string

	// Model settings, used by the classifier.
	ModelPath string
	Backend   string // "auto", "eim", "dnn" or "onnx"

	// Display geometry. Zero screen dimensions mean query the screen.
	Ratio        float64
	Rotation     int // degrees: 0, 90, -90 (270)
	ScreenWidth  int
	ScreenHeight int

	// Capture cycle.
	ScratchPath string
	Freeze      time.Duration
	Result      time.Duration

	// Button settings.
	Pin      string
	Debounce time.Duration

	// Word list settings. Seed 0 seeds from the clock.
	Words []string
	Seed  int64

	Camera camera.Config
}

// DefaultConfig returns the defaults of the keyboard/random-word kiosk.
func DefaultConfig() Config {
	return Config{
		Trigger:     TriggerKeyboard,
		Producer:    ProducerWords,
		Backend:     model.BackendAuto,
		Ratio:       kiosk.DefaultRatio,
		ScratchPath: kiosk.DefaultScratchPath,
		Freeze:      kiosk.DefaultFreezeDuration,
		Result:      kiosk.DefaultResultDuration,
		Pin:         trigger.DefaultPin,
		Debounce:    trigger.DefaultDebounce,
		Words:       append([]string(nil), result.DefaultWords...),
		Camera:      camera.DefaultConfig(),
	}
}

// LoadEnvConfig applies KIOSK_* environment variables. Call it before
// flag parsing so flags override the environment. An unknown camera preset
// is a *ConfigError.
func (c *Config) LoadEnvConfig() error {
	c.Debug = config.Bool("KIOSK_DEBUG", c.Debug)
	c.Trigger = config.String("KIOSK_TRIGGER", c.Trigger)
	c.Producer = config.String("KIOSK_PRODUCER", c.Producer)
	c.ModelPath = config.String("KIOSK_MODEL", c.ModelPath)
	c.Backend = config.String("KIOSK_BACKEND", c.Backend)
	c.Ratio = config.Float("KIOSK_RATIO", c.Ratio)
	c.Rotation = config.Int("KIOSK_ROTATION", c.Rotation)
	c.ScreenWidth = config.Int("KIOSK_SCREEN_WIDTH", c.ScreenWidth)
	c.ScreenHeight = config.Int("KIOSK_SCREEN_HEIGHT", c.ScreenHeight)
	c.ScratchPath = config.String("KIOSK_SCRATCH_PATH", c.ScratchPath)
	c.Freeze = config.Duration("KIOSK_FREEZE", c.Freeze)
	c.Result = config.Duration("KIOSK_RESULT", c.Result)
	c.Pin = config.String("KIOSK_GPIO_PIN", c.Pin)
	c.Debounce = config.Duration("KIOSK_DEBOUNCE", c.Debounce)
	c.Words = config.List("KIOSK_WORDS", c.Words)
	c.Seed = config.Int64("KIOSK_SEED", c.Seed)

	if name := config.String("KIOSK_CAMERA_PRESET", ""); name != "" {
		p := camera.GetPreset(name)
		if p == nil {
			return &ConfigError{Field: "Camera", Message: fmt.Sprintf("unknown camera preset %q (want %s)",
				name, strings.Join(camera.PresetNames(), ", "))}
		}
		c.Camera = *p
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Trigger {
	case TriggerKeyboard, TriggerButton, TriggerBoth:
	default:
		return &ConfigError{Field: "Trigger", Message: fmt.Sprintf("unknown trigger %q (want keyboard, button or both)", c.Trigger)}
	}

	switch c.Producer {
	case ProducerWords:
		if len(c.Words) == 0 {
			return &ConfigError{Field: "Words", Message: "word list is empty"}
		}
	case ProducerClassifier:
		if c.ModelPath == "" {
			return &ConfigError{Field: "ModelPath", Message: "a model path is required for the classifier"}
		}
		if _, err := model.ResolveBackend(c.Backend, c.ModelPath); err != nil {
			return &ConfigError{Field: "Backend", Message: err.Error()}
		}
	default:
		return &ConfigError{Field: "Producer", Message: fmt.Sprintf("unknown producer %q (want words or classifier)", c.Producer)}
	}

	if c.Ratio <= 0 {
		return &ConfigError{Field: "Ratio", Message: "ratio must be positive"}
	}
	if _, err := canvas.ParseRotation(c.Rotation); err != nil {
		return &ConfigError{Field: "Rotation", Message: err.Error()}
	}
	if c.ScreenWidth < 0 || c.ScreenHeight < 0 {
		return &ConfigError{Field: "Screen", Message: "screen dimensions must not be negative"}
	}
	if c.ScratchPath == "" {
		return &ConfigError{Field: "ScratchPath", Message: "scratch path is required"}
	}
	if c.Freeze < 0 || c.Result < 0 {
		return &ConfigError{Field: "Durations", Message: "freeze and result durations must not be negative"}
	}
	if c.Trigger != TriggerKeyboard {
		if strings.TrimSpace(c.Pin) == "" {
			return &ConfigError{Field: "Pin", Message: "a GPIO pin is required for the button"}
		}
		if c.Debounce < 0 {
			return &ConfigError{Field: "Debounce", Message: "debounce must not be negative"}
		}
	}
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "Camera", Message: strings.Join(errs, "; ")}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
