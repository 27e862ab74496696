package render

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ha1tch/kgview/pkg/selection"
)

// Params holds the visual constants shared by every renderer.
type Params struct {
	NodeRadius      float64
	EdgeWidth       float64
	EdgeWidthActive float64
	RingWidth       float64
	RingWidthActive float64
	DimOpacity      float64
	LabelSize       float64 // edge label font size in world units
	NodeLabelSize   float64
	LabelPadding    float64
	EdgeColor       string
	EdgeColorActive string
	RingColor       string
	Background      string
}

// DefaultParams returns the standard look.
func DefaultParams() Params {
	return Params{
		NodeRadius:      12,
		EdgeWidth:       1.5,
		EdgeWidthActive: 3,
		RingWidth:       2,
		RingWidthActive: 4,
		DimOpacity:      0.15,
		LabelSize:       9,
		NodeLabelSize:   11,
		LabelPadding:    2,
		EdgeColor:       "#999999",
		EdgeColorActive: "#555555",
		RingColor:       "#ffffff",
		Background:      "#ffffff",
	}
}

// Style is the resolved appearance of one element.
type Style struct {
	Fill        colorful.Color
	Stroke      colorful.Color
	StrokeWidth float64
	Opacity     float64
	Emphasis    bool
	Dimmed      bool
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{R: 0.6, G: 0.6, B: 0.6}
	}
	return c
}

// NodeStyle resolves a node's appearance from the selection. With nothing
// highlighted every node is drawn at full opacity.
func NodeStyle(p Params, sel selection.State, id string, fill colorful.Color) Style {
	s := Style{
		Fill:        fill,
		Stroke:      mustHex(p.RingColor),
		StrokeWidth: p.RingWidth,
		Opacity:     1,
	}
	if sel.Empty() {
		return s
	}
	if !sel.HasNode(id) {
		s.Opacity = p.DimOpacity
		s.Dimmed = true
		return s
	}
	s.Emphasis = true
	if sel.Kind == selection.NodeSelected && sel.Node == id {
		s.StrokeWidth = p.RingWidthActive
		s.Stroke = mustHex(p.EdgeColorActive)
	}
	return s
}

// EdgeStyle resolves edge i's appearance from the selection.
func EdgeStyle(p Params, sel selection.State, i int) Style {
	s := Style{
		Stroke:      mustHex(p.EdgeColor),
		StrokeWidth: p.EdgeWidth,
		Opacity:     1,
	}
	if sel.Empty() {
		return s
	}
	if !sel.HasEdge(i) {
		s.Opacity = p.DimOpacity
		s.Dimmed = true
		return s
	}
	s.Emphasis = true
	s.Stroke = mustHex(p.EdgeColorActive)
	s.StrokeWidth = p.EdgeWidthActive
	return s
}
