package geometry

import (
	"fmt"
	"math"
)

// PathKind distinguishes the three edge shapes.
type PathKind int

const (
	PathLine PathKind = iota // straight segment
	PathQuad                 // quadratic Bézier, multi-edge
	PathLoop                 // closed cubic Bézier, self-loop
)

func (k PathKind) String() string {
	switch k {
	case PathQuad:
		return "quad"
	case PathLoop:
		return "loop"
	}
	return "line"
}

// Path is a drawable edge curve in world coordinates.
//
//	PathLine: Start, End
//	PathQuad: Start, C1 (control), End
//	PathLoop: Start, C1, C2, End with Start == End
type Path struct {
	Kind       PathKind
	Start, End Point
	C1, C2     Point
}

// CurveParams configures edge curve generation.
type CurveParams struct {
	Spacing     float64 // perpendicular offset per multi-edge rank (K)
	LabelFactor float64 // fraction of the curve offset applied to label anchors
	LoopRadius  float64 // self-loop radius
	LoopSpacing float64 // extra radius per additional self-loop on the same node
	MinOffset   float64 // nudge for coincident endpoints
}

// DefaultCurveParams returns standard parameters.
func DefaultCurveParams() CurveParams {
	return CurveParams{
		Spacing:     30,
		LabelFactor: 0.5,
		LoopRadius:  30,
		LoopSpacing: 15,
		MinOffset:   1,
	}
}

// Offset is the signed perpendicular offset for a multi-edge rank:
// (index - (count-1)/2) * spacing. Offsets of one pair are symmetric about zero.
func Offset(index, count int, spacing float64) float64 {
	return (float64(index) - float64(count-1)/2) * spacing
}

// normal returns the unit normal of a->b, or ok=false for coincident points.
func normal(a, b Point, reversed bool) (n Point, ok bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist == 0 {
		return Point{}, false
	}
	n = Point{-dy / dist, dx / dist}
	if reversed {
		n = n.Scale(-1)
	}
	return n, true
}

// EdgePath computes the curve for one edge from its endpoint positions.
func EdgePath(src, dst Point, link Link, selfLoop bool, p CurveParams) Path {
	if selfLoop {
		return SelfLoop(src, link.Index, p)
	}

	n, ok := normal(src, dst, link.Reversed)
	if !ok {
		// Coincident endpoints: a short straight segment, never a division.
		return Path{Kind: PathLine, Start: src, End: Point{src.X + p.MinOffset, src.Y}}
	}
	if link.Count <= 1 {
		return Path{Kind: PathLine, Start: src, End: dst}
	}

	off := Offset(link.Index, link.Count, p.Spacing)
	ctrl := Midpoint(src, dst).Add(n.Scale(off))
	return Path{Kind: PathQuad, Start: src, C1: ctrl, End: dst}
}

// SelfLoop returns a closed loop rising above the node centre. Successive
// loops on the same node grow by LoopSpacing.
func SelfLoop(center Point, index int, p CurveParams) Path {
	r := p.LoopRadius + float64(index)*p.LoopSpacing
	// Control height chosen so the apex sits 1.5r above the centre.
	h := r * 2
	return Path{
		Kind:  PathLoop,
		Start: center,
		C1:    Point{center.X - r, center.Y - h},
		C2:    Point{center.X + r, center.Y - h},
		End:   center,
	}
}

// LabelAnchor returns where an edge label is centred: the chord midpoint
// pushed along the normal by the scaled multi-edge offset.
func LabelAnchor(src, dst Point, link Link, selfLoop bool, p CurveParams) Point {
	if selfLoop {
		return SelfLoop(src, link.Index, p).At(0.5)
	}
	mid := Midpoint(src, dst)
	if link.Count <= 1 {
		return mid
	}
	n, ok := normal(src, dst, link.Reversed)
	if !ok {
		return mid
	}
	off := Offset(link.Index, link.Count, p.Spacing) * p.LabelFactor
	return mid.Add(n.Scale(off))
}

// At evaluates the path at parameter t ∈ [0,1].
func (p Path) At(t float64) Point {
	switch p.Kind {
	case PathQuad:
		mt := 1 - t
		return Point{
			X: mt*mt*p.Start.X + 2*mt*t*p.C1.X + t*t*p.End.X,
			Y: mt*mt*p.Start.Y + 2*mt*t*p.C1.Y + t*t*p.End.Y,
		}
	case PathLoop:
		mt := 1 - t
		mt2, t2 := mt*mt, t*t
		return Point{
			X: mt2*mt*p.Start.X + 3*mt2*t*p.C1.X + 3*mt*t2*p.C2.X + t2*t*p.End.X,
			Y: mt2*mt*p.Start.Y + 3*mt2*t*p.C1.Y + 3*mt*t2*p.C2.Y + t2*t*p.End.Y,
		}
	}
	return Lerp(p.Start, p.End, t)
}

// Sample returns n+1 evenly spaced points along the path.
func (p Path) Sample(n int) []Point {
	if n < 1 {
		n = 1
	}
	pts := make([]Point, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = p.At(float64(i) / float64(n))
	}
	return pts
}

// D serialises the path as SVG path data.
func (p Path) D() string {
	switch p.Kind {
	case PathQuad:
		return fmt.Sprintf("M%.1f,%.1f Q%.1f,%.1f %.1f,%.1f",
			p.Start.X, p.Start.Y, p.C1.X, p.C1.Y, p.End.X, p.End.Y)
	case PathLoop:
		return fmt.Sprintf("M%.1f,%.1f C%.1f,%.1f %.1f,%.1f %.1f,%.1f",
			p.Start.X, p.Start.Y, p.C1.X, p.C1.Y, p.C2.X, p.C2.Y, p.End.X, p.End.Y)
	}
	return fmt.Sprintf("M%.1f,%.1f L%.1f,%.1f", p.Start.X, p.Start.Y, p.End.X, p.End.Y)
}

// Bounds returns the bounding box of the path's control polygon, which
// contains the curve.
func (p Path) Bounds() Bounds {
	pts := []Point{p.Start, p.End}
	switch p.Kind {
	case PathQuad:
		pts = append(pts, p.C1)
	case PathLoop:
		pts = append(pts, p.C1, p.C2)
	}
	b, _ := BoundsOf(pts)
	return b
}

// DistanceTo approximates the distance from q to the path by sampling.
func (p Path) DistanceTo(q Point) float64 {
	best := math.MaxFloat64
	pts := p.Sample(24)
	for i := 1; i < len(pts); i++ {
		if d := segmentDistance(q, pts[i-1], pts[i]); d < best {
			best = d
		}
	}
	return best
}

func segmentDistance(q, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return q.Dist(a)
	}
	t := ((q.X-a.X)*ab.X + (q.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return q.Dist(a.Add(ab.Scale(t)))
}

// LabelBox returns a background rectangle tightly fitted to a text extent
// of w×h centred on anchor, grown by pad on every side.
func LabelBox(anchor Point, w, h, pad float64) Rect {
	return Rect{X: anchor.X, Y: anchor.Y, W: w + 2*pad, H: h + 2*pad}
}
