package canvas

import (
	"image"
	"math"
	"testing"
)

func TestPlace(t *testing.T) {
	tests := []struct {
		name       string
		geo        Geometry
		w, h       int
		wantSize   image.Point
		wantOffset image.Point
	}{
		{
			name:       "upscale 1.8 on 1080p",
			geo:        Geometry{ScreenWidth: 1920, ScreenHeight: 1080, Ratio: 1.8},
			w:          640,
			h:          480,
			wantSize:   image.Pt(1152, 864),
			wantOffset: image.Pt(384, 108),
		},
		{
			name:       "downscale 0.2",
			geo:        Geometry{ScreenWidth: 800, ScreenHeight: 480, Ratio: 0.2},
			w:          640,
			h:          480,
			wantSize:   image.Pt(128, 96),
			wantOffset: image.Pt(336, 192),
		},
		{
			name:       "rotation swaps on-screen size",
			geo:        Geometry{ScreenWidth: 800, ScreenHeight: 480, Ratio: 0.5, Rotation: Rotate90CounterClockwise},
			w:          640,
			h:          480,
			wantSize:   image.Pt(240, 320),
			wantOffset: image.Pt(280, 80),
		},
		{
			name:       "synthetic 2x2 frame",
			geo:        Geometry{ScreenWidth: 1920, ScreenHeight: 1080, Ratio: 1.8},
			w:          2,
			h:          2,
			wantSize:   image.Pt(3, 3),
			wantOffset: image.Pt(958, 538),
		},
		{
			name:       "content larger than screen gives negative offset",
			geo:        Geometry{ScreenWidth: 100, ScreenHeight: 100, Ratio: 1},
			w:          131,
			h:          100,
			wantSize:   image.Pt(131, 100),
			wantOffset: image.Pt(-16, 0),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.geo.Place(tc.w, tc.h)
			if p.Size != tc.wantSize {
				t.Errorf("Size: got %v, want %v", p.Size, tc.wantSize)
			}
			if p.Offset != tc.wantOffset {
				t.Errorf("Offset: got %v, want %v", p.Offset, tc.wantOffset)
			}
		})
	}
}

func TestPlace_CenteringProperty(t *testing.T) {
	screens := []image.Point{{1920, 1080}, {1280, 720}, {800, 480}, {480, 800}}
	sources := []image.Point{{640, 480}, {1280, 720}, {320, 240}, {2, 2}, {1, 1}}
	ratios := []float64{0.2, 0.5, 1.0, 1.25, 1.8}

	for _, s := range screens {
		for _, src := range sources {
			for _, r := range ratios {
				geo := Geometry{ScreenWidth: s.X, ScreenHeight: s.Y, Ratio: r}
				p := geo.Place(src.X, src.Y)

				cw := int(math.Floor(float64(src.X)*r + 1e-9))
				ch := int(math.Floor(float64(src.Y)*r + 1e-9))
				if p.Size != image.Pt(cw, ch) {
					t.Fatalf("%v %v r=%v: size %v, want %dx%d", s, src, r, p.Size, cw, ch)
				}
				if cw <= s.X && ch <= s.Y {
					if p.Offset.X != (s.X-cw)/2 || p.Offset.Y != (s.Y-ch)/2 {
						t.Fatalf("%v %v r=%v: offset %v", s, src, r, p.Offset)
					}
					if !p.Fits() {
						t.Fatalf("%v %v r=%v: content %v outside canvas", s, src, r, p.Rect())
					}
				}
			}
		}
	}
}

func TestPlace_KeepsSourceAspectRatio(t *testing.T) {
	geo := Geometry{ScreenWidth: 1920, ScreenHeight: 1080, Ratio: 1.8}
	p := geo.Place(640, 480)

	want := 640.0 / 480.0
	if math.Abs(p.AspectRatio()-want) > 0.01 {
		t.Errorf("AspectRatio: got %.3f, want %.3f (width and height swapped?)", p.AspectRatio(), want)
	}
}

func TestClip(t *testing.T) {
	geo := Geometry{ScreenWidth: 100, ScreenHeight: 50, Ratio: 2}
	p := geo.Place(100, 50) // 200x100 at (-50,-25)

	dst, src, ok := p.Clip()
	if !ok {
		t.Fatal("Clip: expected visible content")
	}
	if dst != image.Rect(0, 0, 100, 50) {
		t.Errorf("dst: got %v", dst)
	}
	if src != image.Rect(50, 25, 150, 75) {
		t.Errorf("src: got %v", src)
	}
	if src.Size() != dst.Size() {
		t.Errorf("src and dst sizes differ: %v vs %v", src.Size(), dst.Size())
	}
}

func TestClip_NothingVisible(t *testing.T) {
	p := Placement{Size: image.Pt(10, 10), Offset: image.Pt(200, 200), Screen: image.Pt(100, 100)}
	if _, _, ok := p.Clip(); ok {
		t.Error("Clip: expected nothing visible")
	}
}

func TestGeometry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		geo     Geometry
		wantErr bool
	}{
		{name: "valid", geo: Geometry{ScreenWidth: 1920, ScreenHeight: 1080, Ratio: 1.8}},
		{name: "zero ratio", geo: Geometry{ScreenWidth: 1920, ScreenHeight: 1080, Ratio: 0}, wantErr: true},
		{name: "negative ratio", geo: Geometry{ScreenWidth: 1920, ScreenHeight: 1080, Ratio: -1}, wantErr: true},
		{name: "NaN ratio", geo: Geometry{ScreenWidth: 1920, ScreenHeight: 1080, Ratio: math.NaN()}, wantErr: true},
		{name: "no screen", geo: Geometry{Ratio: 1}, wantErr: true},
		{name: "odd rotation", geo: Geometry{ScreenWidth: 10, ScreenHeight: 10, Ratio: 1, Rotation: 45}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.geo.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate: err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseRotation(t *testing.T) {
	for deg, want := range map[int]Rotation{0: RotateNone, 90: Rotate90Clockwise, -90: Rotate90CounterClockwise, 270: Rotate90CounterClockwise} {
		got, err := ParseRotation(deg)
		if err != nil || got != want {
			t.Errorf("ParseRotation(%d): got %v, %v", deg, got, err)
		}
	}
	if _, err := ParseRotation(180); err == nil {
		t.Error("ParseRotation(180): expected error")
	}
}
