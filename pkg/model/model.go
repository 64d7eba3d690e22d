// Package model defines the contract shared by the image-recognition
// backends. The backends themselves live in subpackages: eim (Edge Impulse
// runner), dnn (OpenCV DNN) and onnx (ONNX Runtime).
package model

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
)

// Sentinel errors for common conditions.
var (
	// ErrModelLoad is returned when a model cannot be loaded at startup.
	ErrModelLoad = errors.New("model: load failed")

	// ErrInference is returned when a single inference fails.
	ErrInference = errors.New("model: inference failed")

	// ErrUnsupportedOutput is returned when a model produces an output
	// shape the kiosk cannot display.
	ErrUnsupportedOutput = errors.New("model: unsupported output type")

	// ErrClosed is returned when a closed model is used.
	ErrClosed = errors.New("model: closed")
)

// Model is a loaded model, owned for the session lifetime.
type Model interface {
	// Info describes the loaded model.
	Info() Info

	// Infer runs the model on one image.
	Infer(ctx context.Context, img image.Image) (*Output, error)

	// Close releases the model.
	Close() error
}

// Info describes a loaded model.
type Info struct {
	Name        string
	Owner       string
	Labels      []string // defines the tie-break order for classification
	InputWidth  int
	InputHeight int
	Channels    int // 1 (grey) or 3 (RGB)
}

// Output is the raw result of one inference. Exactly one of the fields
// is normally set; a detection model that found nothing reports a
// non-nil, empty BoundingBoxes.
type Output struct {
	Classification map[string]float64
	BoundingBoxes  []BoundingBox
}

// BoundingBox is one object-detection result.
type BoundingBox struct {
	Label  string
	Score  float64
	X, Y   int
	Width  int
	Height int
}

// Backend names accepted by ResolveBackend.
const (
	BackendAuto = "auto"
	BackendEIM  = "eim"
	BackendDNN  = "dnn"
	BackendONNX = "onnx"
)

// ResolveBackend picks a backend for path. An explicit backend wins;
// "auto" (or empty) goes by file extension.
func ResolveBackend(backend, path string) (string, error) {
	switch strings.ToLower(backend) {
	case BackendEIM, BackendDNN, BackendONNX:
		return strings.ToLower(backend), nil
	case "", BackendAuto:
	default:
		return "", errors.New("model: unknown backend " + backend)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".eim":
		return BackendEIM, nil
	case ".onnx":
		return BackendONNX, nil
	default:
		return BackendDNN, nil
	}
}
