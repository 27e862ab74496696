package engine

import (
	"go.uber.org/zap"

	"github.com/ha1tch/kgview/pkg/autofit"
	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/render"
)

func (e *Engine) startTicker() {
	if e.closed || e.ticker.Running() {
		return
	}
	e.ticker.Start(e.Step)
}

// Animating reports whether a viewport animation is in progress.
func (e *Engine) Animating() bool { return e.anim != nil }

// Step advances the simulation and any viewport animation by one frame.
// The ticker stops once both are idle.
func (e *Engine) Step() {
	if e.closed {
		return
	}
	if e.anim != nil {
		e.view = e.anim.Step()
		if e.anim.Done() {
			e.anim = nil
		}
	}
	if !e.sim.Settled() && !e.sim.Tick() {
		e.settled()
	}
	if e.sim.Settled() && e.anim == nil {
		e.ticker.Stop()
	}
	e.changed()
}

// settled runs on the transition into the settled state.
func (e *Engine) settled() {
	e.log.Debug("layout settled",
		zap.Int("ticks", e.sim.Ticks()),
		zap.Float64("alpha", e.sim.Alpha()))
	if !e.opts.AutoFitEnabled {
		return
	}
	if anim, ok := e.fit.Settled(e.sim.Positions(), e.view, e.opts.Width, e.opts.Height); ok {
		e.anim = anim
	}
}

// Relax runs the simulation to rest synchronously and jumps straight to
// the auto-fit framing. It is meant for headless rendering and returns
// the ticks taken.
func (e *Engine) Relax() int {
	e.ticker.Stop()
	if _, ok := e.sim.Dragging(); ok {
		return 0
	}
	start := e.sim.Ticks()
	for e.sim.Tick() {
	}
	n := e.sim.Ticks() - start
	if e.opts.AutoFitEnabled && !e.fit.Fired() {
		e.settled()
	}
	if e.anim != nil {
		e.view = e.anim.Target()
		e.anim = nil
	}
	return n
}

// FitNow animates to frame every node, independent of the one-shot
// settle fit.
func (e *Engine) FitNow() {
	b, ok := geometry.BoundsOf(e.sim.Positions())
	if !ok {
		return
	}
	e.anim = autofit.NewAnimation(e.view, autofit.Fit(b, e.opts.Width, e.opts.Height, e.opts.AutoFit), e.opts.AutoFit.Frames)
	e.startTicker()
}

// Viewport returns the current pan/zoom transform.
func (e *Engine) Viewport() render.Viewport { return e.view }

// SetViewport replaces the transform and cancels any animation.
func (e *Engine) SetViewport(v render.Viewport) {
	v.K = render.ClampZoom(v.K, e.opts.AutoFit.MinZoom, e.opts.AutoFit.MaxZoom)
	e.view = v
	e.anim = nil
	e.changed()
}

// Pan moves the view by a screen delta.
func (e *Engine) Pan(dx, dy float64) {
	e.SetViewport(e.view.Pan(dx, dy))
}

// ZoomAt zooms by factor about a screen point.
func (e *Engine) ZoomAt(p geometry.Point, factor float64) {
	e.SetViewport(e.view.ZoomAt(p, factor, e.opts.AutoFit.MinZoom, e.opts.AutoFit.MaxZoom))
}

// ZoomIn and ZoomOut zoom about the screen centre by one step.
func (e *Engine) ZoomIn()  { e.ZoomAt(e.center(), e.opts.ZoomStep) }
func (e *Engine) ZoomOut() { e.ZoomAt(e.center(), 1/e.opts.ZoomStep) }

func (e *Engine) center() geometry.Point {
	return geometry.Point{X: e.opts.Width / 2, Y: e.opts.Height / 2}
}

// NodeAt returns the node drawn under screen point p.
func (e *Engine) NodeAt(p geometry.Point) (string, bool) {
	hit := e.Frame().HitTest(p, 0)
	if hit.Kind != render.HitNode {
		return "", false
	}
	return hit.Node, true
}

// BeginDrag pins the node under screen point p. It reports whether a node
// was grabbed.
func (e *Engine) BeginDrag(p geometry.Point) bool {
	id, ok := e.NodeAt(p)
	if !ok {
		return false
	}
	return e.BeginDragNode(id)
}

// BeginDragNode pins node id and reheats the layout.
func (e *Engine) BeginDragNode(id string) bool {
	if err := e.sim.StartDrag(id); err != nil {
		e.log.Debug("drag refused", zap.String("node", id), zap.Error(err))
		return false
	}
	e.startTicker()
	return true
}

// DragTo moves the pinned node to screen point p.
func (e *Engine) DragTo(p geometry.Point) error {
	if err := e.sim.DragTo(e.view.Invert(p)); err != nil {
		return err
	}
	e.changed()
	return nil
}

// EndDrag releases the pinned node. The layout keeps relaxing.
func (e *Engine) EndDrag() error {
	if err := e.sim.EndDrag(); err != nil {
		return err
	}
	e.startTicker()
	return nil
}

// Dragging reports the node being dragged.
func (e *Engine) Dragging() (string, bool) { return e.sim.Dragging() }

// PlaceNodes moves nodes to saved world positions and optionally pins
// them. Unknown ids are skipped. It returns how many nodes were placed.
func (e *Engine) PlaceNodes(pos map[string]geometry.Point, pin bool) int {
	n := 0
	for id, p := range pos {
		if e.sim.Place(id, p, pin) == nil {
			n++
		}
	}
	if n > 0 {
		e.changed()
	}
	return n
}
