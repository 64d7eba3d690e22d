package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Font sizes and spacing used by the original kiosk layout.
const (
	LabelFontSize = 150
	ScoreFontSize = 40
	WordFontSize  = 400
	ScoreOffsetY  = 90
)

// TextLine is one line of centered text. OffsetY shifts the line's
// vertical center relative to the middle of the card.
type TextLine struct {
	Text    string
	Size    float64
	OffsetY int
}

// ResultLines lays out a label with its score beneath, formatted to two
// decimal places.
func ResultLines(label string, score float64) []TextLine {
	return []TextLine{
		{Text: label, Size: LabelFontSize},
		{Text: fmt.Sprintf("%.2f", score), Size: ScoreFontSize, OffsetY: ScoreOffsetY},
	}
}

// WordLines lays out a single large word.
func WordLines(word string) []TextLine {
	return []TextLine{{Text: word, Size: WordFontSize}}
}

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error

	facesMu sync.Mutex
	faces   = map[float64]font.Face{}
)

func face(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("canvas: parse font: %w", fontErr)
	}

	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(fontData, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("canvas: font face %v: %w", size, err)
	}
	faces[size] = f
	return f, nil
}

// TextCard renders lines in white on a black w x h card.
func TextCard(w, h int, lines []TextLine) (*image.RGBA, error) {
	card := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(card, card.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for _, line := range lines {
		if line.Text == "" {
			continue
		}
		fc, err := face(line.Size)
		if err != nil {
			return nil, err
		}
		d := &font.Drawer{
			Dst:  card,
			Src:  image.NewUniform(color.White),
			Face: fc,
		}
		m := fc.Metrics()
		width := d.MeasureString(line.Text)
		cx := fixed.I(w / 2)
		cy := fixed.I(h/2 + line.OffsetY)
		// Baseline such that the ascent/descent box is centered on cy.
		d.Dot = fixed.Point26_6{
			X: cx - width/2,
			Y: cy + (m.Ascent-m.Descent)/2,
		}
		d.DrawString(line.Text)
	}
	return card, nil
}
