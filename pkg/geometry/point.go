// Package geometry holds the pure transforms used to draw a snapshot:
// multi-edge indexing, edge curves, self-loops and label anchors.
package geometry

import "math"

// Point represents a 2D coordinate.
type Point struct {
	X, Y float64
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }
func (p Point) Dist(q Point) float64 { return p.Sub(q).Len() }
func Midpoint(a, b Point) Point { return Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2} }
func Lerp(a, b Point, t float64) Point { return Point{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t} }

// Rect represents an axis-aligned rectangle.
type Rect struct {
	X, Y float64 // Center
	W, H float64 // Full width and height
}

// Contains reports whether p lies inside the rectangle (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return math.Abs(p.X-r.X) <= r.W/2 && math.Abs(p.Y-r.Y) <= r.H/2
}

// Min returns the top-left corner.
func (r Rect) Min() Point { return Point{r.X - r.W/2, r.Y - r.H/2} }

// RectOverlap returns the overlap area between two rectangles.
// Returns 0 if they don't overlap.
func RectOverlap(a, b Rect) float64 {
	overlapX := (a.W/2 + b.W/2) - math.Abs(a.X-b.X)
	overlapY := (a.H/2 + b.H/2) - math.Abs(a.Y-b.Y)
	if overlapX <= 0 || overlapY <= 0 {
		return 0
	}
	return overlapX * overlapY
}

// Bounds is an axis-aligned bounding box in min/max form.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundsOf returns the bounding box of the points. ok is false when
// points is empty.
func BoundsOf(points []Point) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b = Bounds{points[0].X, points[0].Y, points[0].X, points[0].Y}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b, true
}

// Extend grows the box to include p.
func (b Bounds) Extend(p Point) Bounds {
	b.MinX = math.Min(b.MinX, p.X)
	b.MinY = math.Min(b.MinY, p.Y)
	b.MaxX = math.Max(b.MaxX, p.X)
	b.MaxY = math.Max(b.MaxY, p.Y)
	return b
}

// Pad grows the box by d on every side.
func (b Bounds) Pad(d float64) Bounds {
	return Bounds{b.MinX - d, b.MinY - d, b.MaxX + d, b.MaxY + d}
}

func (b Bounds) Width() float64 { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }
func (b Bounds) Center() Point { return Point{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2} }
