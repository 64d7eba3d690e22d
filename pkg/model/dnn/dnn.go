// Package dnn runs classification models through the OpenCV DNN module
// (ONNX, TensorFlow, Caffe, Darknet and Torch formats).
package dnn

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/frame"
	"github.com/teslashibe/go-snapbooth/pkg/model"
)

// Config holds DNN classifier configuration.
type Config struct {
	ModelPath  string
	ConfigPath string // optional network description (.pbtxt, .prototxt, .cfg)
	LabelsPath string // one label per line; defaults to <model>.labels or labels.txt beside it

	InputWidth  int
	InputHeight int
	Scale       float64
	SwapRB      bool
}

// DefaultConfig returns defaults matching the 96x96 RGB kiosk models.
func DefaultConfig() Config {
	return Config{
		InputWidth:  96,
		InputHeight: 96,
		Scale:       1.0 / 255.0,
		SwapRB:      true,
	}
}

// Classifier is a loaded OpenCV DNN network.
type Classifier struct {
	net    gocv.Net
	config Config
	info   model.Info

	mu     sync.Mutex
	closed bool
}

// Open loads the network and its labels.
func Open(cfg Config) (*Classifier, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: model file not found: %s", model.ErrModelLoad, cfg.ModelPath)
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, fmt.Errorf("%w: invalid input size %dx%d", model.ErrModelLoad, cfg.InputWidth, cfg.InputHeight)
	}

	labelsPath := cfg.LabelsPath
	if labelsPath == "" {
		labelsPath = findLabels(cfg.ModelPath)
	}
	var labels []string
	if labelsPath != "" {
		var err error
		if labels, err = ReadLabels(labelsPath); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrModelLoad, err)
		}
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: opencv could not read %s", model.ErrModelLoad, cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	c := &Classifier{
		net:    net,
		config: cfg,
		info: model.Info{
			Name:        strings.TrimSuffix(filepath.Base(cfg.ModelPath), filepath.Ext(cfg.ModelPath)),
			Labels:      labels,
			InputWidth:  cfg.InputWidth,
			InputHeight: cfg.InputHeight,
			Channels:    3,
		},
	}
	log.Component("dnn").Info("loaded network", "model", cfg.ModelPath, "labels", len(labels))
	return c, nil
}

// findLabels looks for a labels file next to the model.
func findLabels(modelPath string) string {
	candidates := []string{
		strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".labels",
		filepath.Join(filepath.Dir(modelPath), "labels.txt"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ReadLabels reads one label per line, skipping blank lines.
func ReadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

// Info implements model.Model.
func (c *Classifier) Info() model.Info {
	return c.info
}

// Infer implements model.Model.
func (c *Classifier) Infer(ctx context.Context, img image.Image) (*model.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInference, err)
	}

	f, ok := img.(*frame.Frame)
	if !ok || f.Order != frame.BGR {
		f = frame.FromImage(img)
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInference, err)
	}
	defer mat.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, model.ErrClosed
	}

	blob := gocv.BlobFromImage(mat, c.config.Scale, image.Pt(c.config.InputWidth, c.config.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), c.config.SwapRB, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", model.ErrInference, err)
	}
	return &model.Output{Classification: Scores(data, c.info.Labels)}, nil
}

// Scores maps a flat score vector onto labels. Unlabelled outputs are
// named by index.
func Scores(data []float32, labels []string) map[string]float64 {
	scores := make(map[string]float64, len(data))
	for i, v := range data {
		name := fmt.Sprintf("class_%d", i)
		if i < len(labels) {
			name = labels[i]
		}
		scores[name] = float64(v)
	}
	return scores
}

// Close releases the network.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.net.Close()
}
