package engine

import (
	"go.uber.org/zap"

	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/render"
	"github.com/ha1tch/kgview/pkg/selection"
)

// ClickTolerance is the screen distance within which a click lands on an
// edge curve.
const ClickTolerance = 4.0

// Selection returns the current selection.
func (e *Engine) Selection() selection.State { return e.sel }

// Dispatch applies a selection event. Selecting an edge prefetches every
// episode it cites. Styling changes never touch the simulation.
func (e *Engine) Dispatch(ev selection.Event) selection.State {
	next := selection.Reduce(e.snap, e.sel, ev)
	if next.Kind == selection.EdgeSelected && (e.sel.Kind != selection.EdgeSelected || e.sel.Edge != next.Edge) {
		if edge, ok := e.snap.Edge(next.Edge); ok && len(edge.Episodes) > 0 {
			n := e.episodes.Prefetch(edge.Episodes)
			e.log.Debug("episodes prefetched",
				zap.Int("edge", next.Edge),
				zap.Int("requested", n),
				zap.Int("cited", len(edge.Episodes)))
		}
	}
	e.sel = next
	e.changed()
	return next
}

// SelectNode selects a node and its neighbourhood.
func (e *Engine) SelectNode(id string) selection.State {
	return e.Dispatch(selection.ClickNode{ID: id})
}

// SelectEdge selects an edge and its endpoints.
func (e *Engine) SelectEdge(i int) selection.State {
	return e.Dispatch(selection.ClickEdge{Index: i})
}

// ClearSelection returns to idle.
func (e *Engine) ClearSelection() selection.State {
	return e.Dispatch(selection.Clear{})
}

// Click resolves a screen point and dispatches the matching event.
func (e *Engine) Click(p geometry.Point) render.Hit {
	hit := e.Frame().HitTest(p, ClickTolerance)
	switch hit.Kind {
	case render.HitNode:
		e.Dispatch(selection.ClickNode{ID: hit.Node})
	case render.HitEdge:
		e.Dispatch(selection.ClickEdge{Index: hit.Edge})
	default:
		e.Dispatch(selection.ClickBackground{})
	}
	return hit
}

// CycleNode moves the selection delta steps through the snapshot's nodes,
// wrapping at either end.
func (e *Engine) CycleNode(delta int) selection.State {
	n := len(e.snap.Nodes)
	if n == 0 {
		return e.sel
	}
	i := -1
	if e.sel.Kind == selection.NodeSelected {
		i, _ = e.snap.NodeIndex(e.sel.Node)
	}
	if i < 0 && delta < 0 {
		i = 0
	}
	return e.Dispatch(selection.NavigateNode{ID: e.snap.Nodes[wrap(i+delta, n)].ID})
}

// CycleEdge moves the selection delta steps through the snapshot's edges.
func (e *Engine) CycleEdge(delta int) selection.State {
	n := len(e.snap.Edges)
	if n == 0 {
		return e.sel
	}
	i := -1
	if e.sel.Kind == selection.EdgeSelected {
		i = e.sel.Edge
	} else if delta < 0 {
		i = 0
	}
	return e.Dispatch(selection.NavigateEdge{Index: wrap(i+delta, n)})
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// ToggleEpisode expands or collapses an episode in the details panel,
// fetching it on first expansion.
func (e *Engine) ToggleEpisode(id string) bool {
	open := e.episodes.Toggle(id)
	e.changed()
	return open
}
