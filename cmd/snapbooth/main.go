// Snapbooth - camera kiosk
//
// Shows the camera full screen. SPACE (or the GPIO button) freezes the
// picture and shows a result: a random word, or the top label of an image
// classifier when a model is given. ESC quits.
//
//	snapbooth                        # keyboard, random words
//	snapbooth -trigger both model.eim
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/teslashibe/go-snapbooth/internal/config"
	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/booth"
	"github.com/teslashibe/go-snapbooth/pkg/camera"
)

func main() {
	cfg := parseFlags()

	level := config.String("KIOSK_LOG_LEVEL", "info")
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)

	app, err := booth.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	err = app.Run(ctx)
	if serr := app.Shutdown(); serr != nil {
		log.Warn("shutdown", "error", serr)
	}
	if err != nil {
		log.Error("runtime error", "error", err)
		os.Exit(1)
	}
}

// parseFlags builds the configuration: defaults, then .env and KIOSK_*
// variables, then flags.
func parseFlags() booth.Config {
	envFile := ".env"
	for i, arg := range os.Args[1:] {
		if v, ok := strings.CutPrefix(arg, "-env="); ok {
			envFile = v
		} else if (arg == "-env" || arg == "--env") && i+2 < len(os.Args) {
			envFile = os.Args[i+2]
		}
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg := booth.DefaultConfig()
	if err := cfg.LoadEnvConfig(); err != nil {
		usageError("KIOSK_CAMERA_PRESET: %v", err)
	}

	flag.String("env", envFile, "Dotenv file loaded before flags")
	debug := flag.Bool("debug", cfg.Debug, "Enable verbose debug logging")
	trig := flag.String("trigger", cfg.Trigger, "Capture trigger: keyboard, button, both")
	producer := flag.String("producer", cfg.Producer, "Result producer: words, classifier (implied by a model path)")
	backend := flag.String("backend", cfg.Backend, "Model backend: auto, eim, dnn, onnx")
	ratio := flag.Float64("ratio", cfg.Ratio, "Scale factor from camera frame to screen")
	rotate := flag.Int("rotate", cfg.Rotation, "Rotate the picture by 0, 90 or -90 degrees")
	screen := flag.String("screen", "", "Screen size WxH (default: query the display)")
	scratch := flag.String("scratch", cfg.ScratchPath, "Where the frozen frame is written")
	pin := flag.String("pin", cfg.Pin, "GPIO pin of the button")
	debounce := flag.Duration("debounce", cfg.Debounce, "Button debounce window")
	words := flag.String("words", strings.Join(cfg.Words, ","), "Comma-separated word list")
	seed := flag.Int64("seed", cfg.Seed, "Random word seed (0 = clock)")
	freeze := flag.Duration("freeze", cfg.Freeze, "How long the frozen frame is shown")
	resultFor := flag.Duration("result", cfg.Result, "How long the result is shown")
	preset := flag.String("camera", "", "Camera preset: default, legacy, 720p, 1080p")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [model]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg.Debug = *debug
	cfg.Trigger, cfg.Producer, cfg.Backend = *trig, *producer, *backend
	cfg.Ratio, cfg.Rotation = *ratio, *rotate
	cfg.ScratchPath, cfg.Pin, cfg.Debounce = *scratch, *pin, *debounce
	cfg.Seed, cfg.Freeze, cfg.Result = *seed, *freeze, *resultFor
	cfg.Words = splitWords(*words)

	if *screen != "" {
		w, h, err := parseSize(*screen)
		if err != nil {
			usageError("-screen: %v", err)
		}
		cfg.ScreenWidth, cfg.ScreenHeight = w, h
	}
	if *preset != "" {
		p := camera.GetPreset(*preset)
		if p == nil {
			usageError("-camera: unknown preset %q", *preset)
		}
		cfg.Camera = *p
	}

	switch flag.NArg() {
	case 0:
	case 1:
		cfg.ModelPath = flag.Arg(0)
		cfg.Producer = booth.ProducerClassifier
	default:
		usageError("expected at most one model path, got %d arguments", flag.NArg())
	}
	if cfg.Producer == booth.ProducerClassifier && cfg.ModelPath == "" {
		usageError("the classifier needs a model path")
	}
	return cfg
}

func usageError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	flag.Usage()
	os.Exit(2)
}

func splitWords(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("want WxH, got %q", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("width: %w", err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("height: %w", err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size must be positive, got %dx%d", w, h)
	}
	return w, h, nil
}
