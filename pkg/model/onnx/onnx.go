// Package onnx runs classification models through ONNX Runtime.
//
// A model is described by a JSON metadata file next to it, listing its
// tensor shapes and class names:
//
//	{"input_shape": [1, 3, 96, 96], "output_shape": [1, 4],
//	 "classes": ["Chêne", "Érable", "Frêne", "Banji"]}
package onnx

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/model"
)

// LibraryEnv names the environment variable holding the path to the
// onnxruntime shared library.
const LibraryEnv = "ONNXRUNTIME_LIB"

// Metadata describes a model's tensors and classes.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	InputName   string   `json:"input_name,omitempty"`
	OutputName  string   `json:"output_name,omitempty"`
}

// Validate checks that the shapes describe an NCHW image classifier.
func (m Metadata) Validate() error {
	if len(m.InputShape) != 4 {
		return fmt.Errorf("input_shape must be NCHW, got %v", m.InputShape)
	}
	for _, d := range m.InputShape {
		if d <= 0 {
			return fmt.Errorf("input_shape has a non-positive dimension: %v", m.InputShape)
		}
	}
	if c := m.InputShape[1]; c != 1 && c != 3 {
		return fmt.Errorf("input must have 1 or 3 channels, got %d", c)
	}
	if len(m.OutputShape) == 0 {
		return fmt.Errorf("output_shape is empty")
	}
	return nil
}

// Channels returns the input channel count.
func (m Metadata) Channels() int { return int(m.InputShape[1]) }

// Height returns the input height.
func (m Metadata) Height() int { return int(m.InputShape[2]) }

// Width returns the input width.
func (m Metadata) Width() int { return int(m.InputShape[3]) }

// ReadMetadata loads and validates a metadata file.
func ReadMetadata(path string) (Metadata, error) {
	var meta Metadata
	raw, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("parse metadata: %w", err)
	}
	if meta.InputName == "" {
		meta.InputName = "input"
	}
	if meta.OutputName == "" {
		meta.OutputName = "output"
	}
	if err := meta.Validate(); err != nil {
		return meta, err
	}
	return meta, nil
}

// MetadataPath returns the default metadata location for a model:
// the model path with its extension replaced by ".json".
func MetadataPath(modelPath string) string {
	return strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".json"
}

var (
	envOnce sync.Once
	envErr  error
)

func initEnvironment() error {
	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if lib := os.Getenv(LibraryEnv); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// Classifier is a loaded ONNX Runtime session with fixed input and
// output tensors.
type Classifier struct {
	meta    Metadata
	info    model.Info
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	mu     sync.Mutex
	closed bool
}

// Open loads the model at modelPath. An empty metadataPath means
// MetadataPath(modelPath).
func Open(modelPath, metadataPath string) (*Classifier, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: model file not found: %s", model.ErrModelLoad, modelPath)
	}
	if metadataPath == "" {
		metadataPath = MetadataPath(modelPath)
	}
	meta, err := ReadMetadata(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrModelLoad, err)
	}

	if err := initEnvironment(); err != nil {
		return nil, fmt.Errorf("%w: initialize onnxruntime: %v", model.ErrModelLoad, err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("%w: create input tensor: %v", model.ErrModelLoad, err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("%w: create output tensor: %v", model.ErrModelLoad, err)
	}
	session, err := ort.NewAdvancedSession(modelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("%w: create session: %v", model.ErrModelLoad, err)
	}

	c := &Classifier{
		meta:    meta,
		session: session,
		input:   input,
		output:  output,
		info: model.Info{
			Name:        strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
			Labels:      meta.Classes,
			InputWidth:  meta.Width(),
			InputHeight: meta.Height(),
			Channels:    meta.Channels(),
		},
	}
	log.Component("onnx").Info("loaded session",
		"model", modelPath, "classes", len(meta.Classes),
		"input", fmt.Sprintf("%v", meta.InputShape))
	return c, nil
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
	data := Preprocess(img, c.meta.Width(), c.meta.Height(), c.meta.Channels())

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, model.ErrClosed
	}

	copy(c.input.GetData(), data)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInference, err)
	}

	out := c.output.GetData()
	scores := make(map[string]float64, len(out))
	for i, v := range out {
		if i < len(c.meta.Classes) {
			scores[c.meta.Classes[i]] = float64(v)
		}
	}
	return &model.Output{Classification: scores}, nil
}

// Preprocess resizes img to width x height and lays it out as planar
// float32 in [0, 1]. One channel means BT.601 luma.
func Preprocess(img image.Image, width, height, channels int) []float32 {
	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	b := resized.Bounds()

	plane := width * height
	data := make([]float32, channels*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*width + x
			rf, gf, bf := float32(r)/65535.0, float32(g)/65535.0, float32(bl)/65535.0
			if channels == 1 {
				data[i] = 0.299*rf + 0.587*gf + 0.114*bf
				continue
			}
			data[i] = rf
			data[plane+i] = gf
			data[2*plane+i] = bf
		}
	}
	return data
}

// Close destroys the session and its tensors. The runtime environment
// stays up for other sessions.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.session != nil {
		err = c.session.Destroy()
	}
	c.input.Destroy()
	c.output.Destroy()
	return err
}
