// Package frame holds the in-memory raster passed between the camera,
// the display and the result producers.
package frame

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ColorOrder is the byte order of one pixel in Pix.
type ColorOrder int

const (
	// BGR is what OpenCV capture devices produce.
	BGR ColorOrder = iota
	// RGB is what most models expect.
	RGB
)

func (o ColorOrder) String() string {
	if o == RGB {
		return "rgb"
	}
	return "bgr"
}

// Channels is the number of bytes per pixel.
const Channels = 3

// Frame is a width x height x 3 raster, row-major.
// It implements image.Image so it can be handed to encoders and resizers.
type Frame struct {
	Width  int
	Height int
	Order  ColorOrder
	Pix    []byte
}

// New wraps pix as a frame. pix must hold exactly width*height*3 bytes.
func New(width, height int, order ColorOrder, pix []byte) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame: invalid size %dx%d", width, height)
	}
	if want := width * height * Channels; len(pix) != want {
		return nil, fmt.Errorf("frame: got %d bytes, want %d for %dx%d", len(pix), want, width, height)
	}
	return &Frame{Width: width, Height: height, Order: order, Pix: pix}, nil
}

// Black allocates an all-zero BGR frame.
func Black(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Order:  BGR,
		Pix:    make([]byte, width*height*Channels),
	}
}

// FromImage copies any image into a BGR frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := Black(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i] = uint8(bl >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(r >> 8)
			i += Channels
		}
	}
	return f
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	i := (y*f.Width + x) * Channels
	p := f.Pix[i : i+Channels : i+Channels]
	if f.Order == RGB {
		return color.RGBA{R: p[0], G: p[1], B: p[2], A: 0xff}
	}
	return color.RGBA{R: p[2], G: p[1], B: p[0], A: 0xff}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Order: f.Order, Pix: pix}
}

// Save encodes the frame to path, overwriting any previous file.
// The format follows the extension (.jpg, .png, ...).
func (f *Frame) Save(path string) error {
	if err := imaging.Save(f, path, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("frame: save %s: %w", path, err)
	}
	return nil
}
