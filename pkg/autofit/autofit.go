// Package autofit frames the settled layout once per snapshot.
package autofit

import (
	"math"

	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/render"
)

// Params controls the fit.
type Params struct {
	Padding float64 // world units added around the node box
	MinBox  float64 // floor for each box dimension
	Margin  float64 // fraction of the viewport the box may fill
	MinZoom float64
	MaxZoom float64
	Frames  int // animation length; 0 jumps straight to the target
}

// DefaultParams returns the standard framing.
func DefaultParams() Params {
	return Params{
		Padding: 50,
		MinBox:  100,
		Margin:  0.9,
		MinZoom: 0.1,
		MaxZoom: 4,
		Frames:  30,
	}
}

// Fit returns the viewport that centres b in a vw x vh screen.
func Fit(b geometry.Bounds, vw, vh float64, p Params) render.Viewport {
	b = b.Pad(p.Padding)
	w := math.Max(b.Width(), p.MinBox)
	h := math.Max(b.Height(), p.MinBox)

	k := math.Min(vw/w, vh/h)
	if p.MaxZoom > 0 {
		k = math.Min(k, p.MaxZoom)
	}
	if p.Margin > 0 {
		k *= p.Margin
	}
	k = render.ClampZoom(k, p.MinZoom, p.MaxZoom)

	c := b.Center()
	return render.Viewport{X: vw/2 - c.X*k, Y: vh/2 - c.Y*k, K: k}
}

// Controller fires at most once per epoch. Reset starts a new epoch.
type Controller struct {
	params Params
	fired  bool
}

// New creates a controller.
func New(p Params) *Controller {
	return &Controller{params: p}
}

func (c *Controller) Params() Params { return c.params }

// Fired reports whether the current epoch has already been framed.
func (c *Controller) Fired() bool { return c.fired }

// Reset arms the controller for a new snapshot.
func (c *Controller) Reset() { c.fired = false }

// Settled handles the settle transition. The first call of an epoch
// returns an animation from the current viewport to the fit; later calls
// return false. An empty layout consumes the epoch without animating.
func (c *Controller) Settled(points []geometry.Point, from render.Viewport, vw, vh float64) (*Animation, bool) {
	if c.fired {
		return nil, false
	}
	c.fired = true
	b, ok := geometry.BoundsOf(points)
	if !ok || vw <= 0 || vh <= 0 {
		return nil, false
	}
	return NewAnimation(from, Fit(b, vw, vh, c.params), c.params.Frames), true
}

// Animation eases between two viewports over a fixed number of frames.
type Animation struct {
	from, to render.Viewport
	frame    int
	frames   int
}

// NewAnimation creates an animation. frames < 1 completes on the first Step.
func NewAnimation(from, to render.Viewport, frames int) *Animation {
	if frames < 1 {
		frames = 1
	}
	return &Animation{from: from, to: to, frames: frames}
}

// Target is the final viewport.
func (a *Animation) Target() render.Viewport { return a.to }

// Done reports whether the last frame has been produced.
func (a *Animation) Done() bool { return a.frame >= a.frames }

// Step advances one frame and returns the viewport to show.
func (a *Animation) Step() render.Viewport {
	if a.frame < a.frames {
		a.frame++
	}
	if a.frame >= a.frames {
		return a.to
	}
	return render.LerpViewport(a.from, a.to, EaseInOut(float64(a.frame)/float64(a.frames)))
}

// EaseInOut is the cubic in-out easing curve on [0, 1].
func EaseInOut(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	case t < 0.5:
		return 4 * t * t * t
	default:
		return 1 - math.Pow(-2*t+2, 3)/2
	}
}
