package render

import (
	"math"

	"github.com/ha1tch/kgview/pkg/geometry"
)

// Viewport is the pan/zoom transform from world to screen space:
// screen = world*K + (X, Y).
type Viewport struct {
	X, Y float64
	K    float64
}

// Identity is the unscaled, untranslated viewport.
func Identity() Viewport { return Viewport{K: 1} }

// Apply maps a world point to the screen.
func (v Viewport) Apply(p geometry.Point) geometry.Point {
	return geometry.Point{X: p.X*v.K + v.X, Y: p.Y*v.K + v.Y}
}

// Invert maps a screen point back to world space.
func (v Viewport) Invert(p geometry.Point) geometry.Point {
	return geometry.Point{X: (p.X - v.X) / v.K, Y: (p.Y - v.Y) / v.K}
}

// ApplyPath maps every control point of a path. The transform is affine so
// the curve shape is preserved.
func (v Viewport) ApplyPath(p geometry.Path) geometry.Path {
	p.Start = v.Apply(p.Start)
	p.End = v.Apply(p.End)
	p.C1 = v.Apply(p.C1)
	p.C2 = v.Apply(p.C2)
	return p
}

// Pan translates by a screen-space delta.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.X += dx
	v.Y += dy
	return v
}

// ZoomAt scales by factor about screen point p, keeping the world point
// under p fixed. The resulting K is clamped to [lo, hi].
func (v Viewport) ZoomAt(p geometry.Point, factor, lo, hi float64) Viewport {
	k := ClampZoom(v.K*factor, lo, hi)
	w := v.Invert(p)
	return Viewport{X: p.X - w.X*k, Y: p.Y - w.Y*k, K: k}
}

// ClampZoom limits k to [lo, hi]. Non-positive bounds are ignored.
func ClampZoom(k, lo, hi float64) float64 {
	if lo > 0 && k < lo {
		k = lo
	}
	if hi > 0 && k > hi {
		k = hi
	}
	return k
}

// LerpViewport interpolates between two viewports.
func LerpViewport(a, b Viewport, t float64) Viewport {
	return Viewport{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		K: a.K + (b.K-a.K)*t,
	}
}

// Near reports whether two viewports differ by less than eps in every term.
func (v Viewport) Near(o Viewport, eps float64) bool {
	return math.Abs(v.X-o.X) < eps && math.Abs(v.Y-o.Y) < eps && math.Abs(v.K-o.K) < eps
}
