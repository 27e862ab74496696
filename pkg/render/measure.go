package render

import (
	"fmt"
	"sync"

	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// TextMeasurer reports the extent of a label at a font size.
type TextMeasurer interface {
	Measure(text string, size float64) (w, h float64)
}

// FontMeasurer measures with the embedded Go Regular font. Faces are
// cached per size.
type FontMeasurer struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFontMeasurer parses the embedded font.
func NewFontMeasurer() (*FontMeasurer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go regular: %w", err)
	}
	return &FontMeasurer{font: f, faces: make(map[float64]font.Face)}, nil
}

// Face returns a face at size points and 72 DPI.
func (m *FontMeasurer) Face(size float64) (font.Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if face, ok := m.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(m.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	m.faces[size] = face
	return face, nil
}

func (m *FontMeasurer) Measure(text string, size float64) (float64, float64) {
	face, err := m.Face(size)
	if err != nil {
		return approxMeasure(text, size)
	}
	w := font.MeasureString(face, text)
	h := face.Metrics().Height
	return float64(w) / 64, float64(h) / 64
}

// CellMeasurer measures in terminal cells.
type CellMeasurer struct {
	CellWidth  float64
	CellHeight float64
}

func (m CellMeasurer) Measure(text string, _ float64) (float64, float64) {
	return float64(runewidth.StringWidth(text)) * m.CellWidth, m.CellHeight
}

// approxMeasure uses an average glyph width of 0.6em.
func approxMeasure(text string, size float64) (float64, float64) {
	return float64(runewidth.StringWidth(text)) * size * 0.6, size * 1.2
}
