package frame

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		pix     int
		wantErr bool
	}{
		{name: "exact size", w: 2, h: 2, pix: 12},
		{name: "short buffer", w: 2, h: 2, pix: 11, wantErr: true},
		{name: "zero width", w: 0, h: 2, pix: 0, wantErr: true},
		{name: "negative height", w: 2, h: -1, pix: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.w, tc.h, BGR, make([]byte, tc.pix))
			if (err != nil) != tc.wantErr {
				t.Errorf("New: err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestAt_HonoursOrder(t *testing.T) {
	pix := []byte{10, 20, 30}

	bgr, _ := New(1, 1, BGR, pix)
	if got := bgr.At(0, 0); got != (color.RGBA{R: 30, G: 20, B: 10, A: 255}) {
		t.Errorf("BGR At: got %v", got)
	}

	rgb, _ := New(1, 1, RGB, pix)
	if got := rgb.At(0, 0); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("RGB At: got %v", got)
	}

	if got := rgb.At(5, 5); got != (color.RGBA{}) {
		t.Errorf("out of bounds At: got %v, want zero", got)
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(1, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	f := FromImage(img)
	if f.Width != 2 || f.Height != 1 || f.Order != BGR {
		t.Fatalf("FromImage: got %dx%d %v", f.Width, f.Height, f.Order)
	}
	if got := f.Pix[3:6]; got[0] != 50 || got[1] != 100 || got[2] != 200 {
		t.Errorf("FromImage pixel: got %v, want [50 100 200]", got)
	}
}

func TestClone_IsDeep(t *testing.T) {
	f := Black(2, 2)
	c := f.Clone()
	c.Pix[0] = 99
	if f.Pix[0] != 0 {
		t.Error("Clone shares pixel memory with the original")
	}
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captured_image.jpg")

	if err := Black(64, 48).Save(path); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := Black(32, 16).Save(path); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("scratch file not overwritten: got %dx%d", b.Dx(), b.Dy())
	}
}
