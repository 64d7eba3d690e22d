// Package canvas computes where content lands on the kiosk screen and
// rasterizes the text cards shown after a capture.
package canvas

import (
	"fmt"
	"image"
	"math"
)

// Rotation is a fixed per-deployment orientation correction in degrees.
type Rotation int

const (
	RotateNone               Rotation = 0
	Rotate90Clockwise        Rotation = 90
	Rotate90CounterClockwise Rotation = -90
)

// ParseRotation accepts 0, 90, -90 and 270 (an alias for -90).
func ParseRotation(deg int) (Rotation, error) {
	switch deg {
	case 0:
		return RotateNone, nil
	case 90:
		return Rotate90Clockwise, nil
	case -90, 270:
		return Rotate90CounterClockwise, nil
	}
	return RotateNone, fmt.Errorf("canvas: unsupported rotation %d (use 0, 90 or -90)", deg)
}

// Quarter reports whether the rotation swaps width and height.
func (r Rotation) Quarter() bool {
	return r == Rotate90Clockwise || r == Rotate90CounterClockwise
}

// Geometry is read-only for a session: the screen size, queried once at
// startup, and the resize ratio applied to every frame.
type Geometry struct {
	ScreenWidth  int
	ScreenHeight int
	Ratio        float64
	Rotation     Rotation
}

// Validate checks the geometry can place content.
func (g Geometry) Validate() error {
	if g.ScreenWidth <= 0 || g.ScreenHeight <= 0 {
		return fmt.Errorf("canvas: invalid screen size %dx%d", g.ScreenWidth, g.ScreenHeight)
	}
	if !(g.Ratio > 0) || math.IsInf(g.Ratio, 0) {
		return fmt.Errorf("canvas: resize ratio must be > 0, got %v", g.Ratio)
	}
	if _, err := ParseRotation(int(g.Rotation)); err != nil {
		return err
	}
	return nil
}

// Screen returns the screen size as a point.
func (g Geometry) Screen() image.Point {
	return image.Pt(g.ScreenWidth, g.ScreenHeight)
}

// Scale applies the ratio to one dimension.
func (g Geometry) Scale(dim int) int {
	// The epsilon keeps 0.3*10 style products from truncating to 2.
	return int(math.Floor(float64(dim)*g.Ratio + 1e-9))
}

// Place computes the rendered size and centering offset of a w x h source.
// offset = (screen - content) / 2, floored; it is negative when the
// content is larger than the screen.
func (g Geometry) Place(w, h int) Placement {
	scaled := image.Pt(g.Scale(w), g.Scale(h))
	size := scaled
	if g.Rotation.Quarter() {
		size = image.Pt(scaled.Y, scaled.X)
	}
	return Placement{
		Scaled:   scaled,
		Size:     size,
		Offset:   image.Pt(floorHalf(g.ScreenWidth-size.X), floorHalf(g.ScreenHeight-size.Y)),
		Rotation: g.Rotation,
		Screen:   g.Screen(),
	}
}

func floorHalf(v int) int {
	if v >= 0 {
		return v / 2
	}
	return -((-v + 1) / 2)
}

// Placement is where one piece of content goes on the screen.
type Placement struct {
	Scaled   image.Point // size after resizing, before rotation
	Size     image.Point // size on screen, after rotation
	Offset   image.Point // top-left corner on screen
	Rotation Rotation
	Screen   image.Point
}

// Rect is the content's bounding box in screen coordinates.
func (p Placement) Rect() image.Rectangle {
	return image.Rectangle{Min: p.Offset, Max: p.Offset.Add(p.Size)}
}

// Fits reports whether the content lies entirely within the screen.
func (p Placement) Fits() bool {
	return p.Rect().In(image.Rectangle{Max: p.Screen})
}

// Clip returns the visible part of the content: dst in screen coordinates
// and the matching src rectangle in content coordinates.
// ok is false when nothing is visible.
func (p Placement) Clip() (dst, src image.Rectangle, ok bool) {
	dst = p.Rect().Intersect(image.Rectangle{Max: p.Screen})
	if dst.Empty() {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	return dst, dst.Sub(p.Offset), true
}

// AspectRatio is width over height of the on-screen content.
func (p Placement) AspectRatio() float64 {
	if p.Size.Y == 0 {
		return 0
	}
	return float64(p.Size.X) / float64(p.Size.Y)
}
