// Package render projects a snapshot and its simulated bodies into a
// styled, renderer-neutral Frame, and writes frames as SVG or PNG.
package render

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ha1tch/kgview/pkg/force"
	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/graph"
	"github.com/ha1tch/kgview/pkg/selection"
)

// NodeGlyph is one projected node. Positions are in world space; apply
// Frame.View for screen space.
type NodeGlyph struct {
	ID     string
	Label  string
	Type   string
	Pos    geometry.Point
	Radius float64
	Style  Style
}

// EdgeGlyph is one projected edge with its curve, label anchor and
// label background box.
type EdgeGlyph struct {
	Index    int
	Source   string
	Target   string
	Label    string
	Path     geometry.Path
	Anchor   geometry.Point
	Box      geometry.Rect
	SelfLoop bool
	Style    Style
}

// LabelShown reports whether the edge label is drawn and clickable.
// Labels of dimmed edges are hidden while a selection is active.
func (g EdgeGlyph) LabelShown() bool {
	return g.Label != "" && !g.Style.Dimmed
}

// LegendEntry pairs a node type with its colour.
type LegendEntry struct {
	Type  string
	Color colorful.Color
}

// Frame is everything a renderer needs for one redraw.
type Frame struct {
	Width, Height float64
	View          Viewport
	Params        Params
	Nodes         []NodeGlyph
	Edges         []EdgeGlyph
	Legend        []LegendEntry
}

// Projector turns bodies into frames. It holds no per-tick state.
type Projector struct {
	params  Params
	curves  geometry.CurveParams
	measure TextMeasurer
	colors  *ColorMap
}

// NewProjector creates a projector. A nil measurer falls back to an
// average glyph width estimate.
func NewProjector(p Params, curves geometry.CurveParams, m TextMeasurer) *Projector {
	return &Projector{params: p, curves: curves, measure: m}
}

// SetColors replaces the type colour map.
func (pr *Projector) SetColors(m *ColorMap) { pr.colors = m }

// Colors returns the current type colour map.
func (pr *Projector) Colors() *ColorMap { return pr.colors }

// SetParams replaces the visual constants.
func (pr *Projector) SetParams(p Params) { pr.params = p }

func (pr *Projector) Params() Params { return pr.params }

func (pr *Projector) textSize(text string, size float64) (float64, float64) {
	if pr.measure == nil {
		return approxMeasure(text, size)
	}
	return pr.measure.Measure(text, size)
}

// Project builds the frame for the current tick. bodies must be in
// snapshot node order.
func (pr *Projector) Project(snap *graph.Snapshot, bodies []force.Body, view Viewport, sel selection.State, w, h float64) Frame {
	f := Frame{Width: w, Height: h, View: view, Params: pr.params}
	if snap == nil {
		return f
	}

	pos := make([]geometry.Point, len(snap.Nodes))
	for i := range snap.Nodes {
		if i < len(bodies) {
			pos[i] = bodies[i].Pos()
		}
	}

	f.Edges = make([]EdgeGlyph, len(snap.Edges))
	for i, e := range snap.Edges {
		si, _ := snap.NodeIndex(e.Source)
		ti, _ := snap.NodeIndex(e.Target)
		link := snap.Link(i)
		loop := e.IsSelfLoop()

		anchor := geometry.LabelAnchor(pos[si], pos[ti], link, loop, pr.curves)
		lw, lh := pr.textSize(e.Type, pr.params.LabelSize)

		f.Edges[i] = EdgeGlyph{
			Index:    i,
			Source:   e.Source,
			Target:   e.Target,
			Label:    e.Type,
			Path:     geometry.EdgePath(pos[si], pos[ti], link, loop, pr.curves),
			Anchor:   anchor,
			Box:      geometry.LabelBox(anchor, lw, lh, pr.params.LabelPadding),
			SelfLoop: loop,
			Style:    EdgeStyle(pr.params, sel, i),
		}
	}

	f.Nodes = make([]NodeGlyph, len(snap.Nodes))
	for i, n := range snap.Nodes {
		kind := n.Kind()
		f.Nodes[i] = NodeGlyph{
			ID:     n.ID,
			Label:  n.DisplayName(),
			Type:   kind,
			Pos:    pos[i],
			Radius: pr.params.NodeRadius,
			Style:  NodeStyle(pr.params, sel, n.ID, pr.colors.Color(kind)),
		}
	}

	for _, t := range pr.colors.Types() {
		f.Legend = append(f.Legend, LegendEntry{Type: t, Color: pr.colors.Color(t)})
	}
	return f
}

// Bounds returns the world-space box enclosing every node and edge path.
func (f Frame) Bounds() (geometry.Bounds, bool) {
	if len(f.Nodes) == 0 {
		return geometry.Bounds{}, false
	}
	b := geometry.Bounds{MinX: f.Nodes[0].Pos.X, MinY: f.Nodes[0].Pos.Y, MaxX: f.Nodes[0].Pos.X, MaxY: f.Nodes[0].Pos.Y}
	for _, n := range f.Nodes {
		b = b.Extend(geometry.Point{X: n.Pos.X - n.Radius, Y: n.Pos.Y - n.Radius})
		b = b.Extend(geometry.Point{X: n.Pos.X + n.Radius, Y: n.Pos.Y + n.Radius})
	}
	for _, e := range f.Edges {
		pb := e.Path.Bounds()
		b = b.Extend(geometry.Point{X: pb.MinX, Y: pb.MinY})
		b = b.Extend(geometry.Point{X: pb.MaxX, Y: pb.MaxY})
	}
	return b, true
}
