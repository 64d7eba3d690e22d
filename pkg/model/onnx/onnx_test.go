package onnx

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-snapbooth/pkg/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trees.json")
	writeFile(t, path, `{"input_shape":[1,3,96,96],"output_shape":[1,4],"classes":["Chêne","Érable","Frêne","Banji"]}`)

	meta, err := ReadMetadata(path)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if meta.Width() != 96 || meta.Height() != 96 || meta.Channels() != 3 {
		t.Errorf("geometry: got %dx%dx%d", meta.Width(), meta.Height(), meta.Channels())
	}
	if meta.InputName != "input" || meta.OutputName != "output" {
		t.Errorf("default tensor names: got %q/%q", meta.InputName, meta.OutputName)
	}
	if len(meta.Classes) != 4 || meta.Classes[1] != "Érable" {
		t.Errorf("classes: got %v", meta.Classes)
	}
}

func TestReadMetadata_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{`},
		{"flat input", `{"input_shape":[96,96],"output_shape":[1,4]}`},
		{"four channels", `{"input_shape":[1,4,96,96],"output_shape":[1,4]}`},
		{"zero dimension", `{"input_shape":[1,3,0,96],"output_shape":[1,4]}`},
		{"no output", `{"input_shape":[1,3,96,96]}`},
	}

	dir := t.TempDir()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, "meta.json")
			writeFile(t, path, tc.content)
			if _, err := ReadMetadata(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestMetadataPath(t *testing.T) {
	if got := MetadataPath("/models/trees.onnx"); got != "/models/trees.json" {
		t.Errorf("got %q", got)
	}
}

func TestOpen_MissingModel(t *testing.T) {
	_, err := Open("/nonexistent/model.onnx", "")
	if !errors.Is(err, model.ErrModelLoad) {
		t.Errorf("Open: got %v, want ErrModelLoad", err)
	}
}

func TestOpen_MissingMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	writeFile(t, path, "x")

	_, err := Open(path, "")
	if !errors.Is(err, model.ErrModelLoad) {
		t.Errorf("Open: got %v, want ErrModelLoad", err)
	}
}

func TestOpen_RealModel(t *testing.T) {
	modelPath := os.Getenv("SNAPBOOTH_TEST_ONNX")
	if modelPath == "" || os.Getenv(LibraryEnv) == "" {
		t.Skip("SNAPBOOTH_TEST_ONNX or " + LibraryEnv + " not set, skipping test")
	}

	c, err := Open(modelPath, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if len(c.Info().Labels) == 0 {
		t.Error("expected labels from metadata")
	}
}

func TestPreprocess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	data := Preprocess(img, 4, 4, 3)
	if len(data) != 3*16 {
		t.Fatalf("got %d values, want 48", len(data))
	}
	near := func(a, b float32) bool { return math.Abs(float64(a-b)) < 0.01 }
	if !near(data[0], 1) || !near(data[16], 0) || !near(data[32], 0.2) {
		t.Errorf("planar layout: r=%v g=%v b=%v", data[0], data[16], data[32])
	}

	grey := Preprocess(img, 4, 4, 1)
	if len(grey) != 16 {
		t.Fatalf("got %d grey values, want 16", len(grey))
	}
	if want := float32(0.299 + 0.114*0.2); !near(grey[5], want) {
		t.Errorf("luma: got %v, want %v", grey[5], want)
	}
}
