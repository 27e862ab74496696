package render

import "github.com/ha1tch/kgview/pkg/geometry"

// HitKind identifies what a pointer landed on.
type HitKind int

const (
	HitNone HitKind = iota
	HitNode
	HitEdge
)

// Hit is the result of a pointer test.
type Hit struct {
	Kind HitKind
	Node string
	Edge int
}

// HitTest resolves a screen point. Nodes take priority over shown edge
// labels, which take priority over edge curves; tol is the curve tolerance in
// screen units. Later-drawn elements win ties.
func (f Frame) HitTest(screen geometry.Point, tol float64) Hit {
	k := f.View.K
	if k <= 0 {
		k = 1
	}
	p := f.View.Invert(screen)

	for i := len(f.Nodes) - 1; i >= 0; i-- {
		n := f.Nodes[i]
		if n.Pos.Dist(p) <= n.Radius+tol/k {
			return Hit{Kind: HitNode, Node: n.ID}
		}
	}
	for i := len(f.Edges) - 1; i >= 0; i-- {
		if f.Edges[i].LabelShown() && f.Edges[i].Box.Contains(p) {
			return Hit{Kind: HitEdge, Edge: f.Edges[i].Index}
		}
	}
	best, bestDist := -1, tol/k
	for i, e := range f.Edges {
		if d := e.Path.DistanceTo(p); d <= bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		return Hit{Kind: HitEdge, Edge: f.Edges[best].Index}
	}
	return Hit{}
}
