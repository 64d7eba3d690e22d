// Camera test - probe the first working camera and save one frame
package main

import (
	"flag"
	"os"
	"time"

	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/camera"
	"github.com/teslashibe/go-snapbooth/pkg/kiosk"
)

func main() {
	preset := flag.String("preset", camera.PresetDefault, "Camera preset: default, legacy, 720p, 1080p")
	out := flag.String("scratch", kiosk.DefaultScratchPath, "Where to save the frame")
	frames := flag.Int("frames", 5, "Frames to read before saving (lets exposure settle)")
	flag.Parse()

	log.Init("debug")

	cfg := camera.GetPreset(*preset)
	if cfg == nil {
		log.Error("unknown preset", "preset", *preset, "available", camera.PresetNames())
		os.Exit(2)
	}

	dev, err := camera.Open(*cfg)
	if err != nil {
		log.Error("no camera", "error", err)
		os.Exit(1)
	}
	defer dev.Close()

	w, h := dev.Size()
	log.Info("camera opened", "index", dev.Index(), "width", w, "height", h)

	start := time.Now()
	n := max(*frames, 1)
	for i := 0; i < n; i++ {
		f, err := dev.Read()
		if err != nil {
			log.Error("read failed", "frame", i, "error", err)
			os.Exit(1)
		}
		if i < n-1 {
			continue
		}
		if err := f.Save(*out); err != nil {
			log.Error("save failed", "error", err)
			os.Exit(1)
		}
	}
	elapsed := time.Since(start)
	log.Info("frame saved", "path", *out, "frames", n,
		"fps", float64(n)/elapsed.Seconds())
}
