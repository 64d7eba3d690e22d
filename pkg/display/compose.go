package display

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-snapbooth/pkg/canvas"
	"github.com/teslashibe/go-snapbooth/pkg/frame"
)

// frameToMat copies f into a BGR Mat.
func frameToMat(f *frame.Frame) (gocv.Mat, error) {
	m, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("display: frame to mat: %w", err)
	}
	if f.Order == frame.BGR {
		return m, nil
	}
	bgr := gocv.NewMat()
	gocv.CvtColor(m, &bgr, gocv.ColorRGBToBGR)
	m.Close()
	return bgr, nil
}

// compose scales and rotates src per p and copies the visible part onto
// a black canvas of the given size.
func compose(src gocv.Mat, p canvas.Placement, size image.Point) (gocv.Mat, error) {
	if p.Scaled.X <= 0 || p.Scaled.Y <= 0 {
		return gocv.NewMat(), fmt.Errorf("display: empty placement %v", p.Scaled)
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(src, &scaled, p.Scaled, 0, 0, gocv.InterpolationLinear)

	content := scaled
	if p.Rotation.Quarter() {
		rotated := gocv.NewMat()
		defer rotated.Close()
		flag := gocv.Rotate90Clockwise
		if p.Rotation == canvas.Rotate90CounterClockwise {
			flag = gocv.Rotate90CounterClockwise
		}
		gocv.Rotate(scaled, &rotated, flag)
		content = rotated
	}

	out := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8UC3)
	p.Screen = size
	dst, srcRect, ok := p.Clip()
	if !ok {
		return out, nil
	}

	region := content.Region(srcRect)
	defer region.Close()
	target := out.Region(dst)
	defer target.Close()
	region.CopyTo(&target)
	return out, nil
}
