package force

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/graph"
)

func triangle() *graph.Snapshot {
	return graph.NewSnapshot(graph.Document{
		Nodes: []graph.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Edges: []graph.Edge{
			{Source: "A", Target: "B"},
			{Source: "A", Target: "B"},
			{Source: "B", Target: "C"},
			{Source: "C", Target: "C"},
		},
	})
}

var origin = geometry.Point{X: 400, Y: 300}

func TestEmptySnapshotIsSettled(t *testing.T) {
	s := New(DefaultParams())
	s.Load(graph.NewSnapshot(graph.Document{}), origin)
	assert.True(t, s.Settled())
	assert.False(t, s.Tick())
}

func TestSettlesWithinBudget(t *testing.T) {
	p := DefaultParams()
	s := New(p)
	s.Load(triangle(), origin)
	require.False(t, s.Settled())

	n := s.Run(10 * p.MaxTicks)
	assert.True(t, s.Settled())
	assert.LessOrEqual(t, n, p.MaxTicks)
	assert.Less(t, s.Alpha(), p.AlphaMin)

	pts := s.Positions()
	require.Len(t, pts, 3)
	for i, a := range pts {
		assert.False(t, math.IsNaN(a.X) || math.IsNaN(a.Y), "body %d", i)
		for _, b := range pts[i+1:] {
			assert.Greater(t, a.Dist(b), 1.0)
		}
	}
}

func TestTickBudgetSettles(t *testing.T) {
	p := DefaultParams()
	p.MaxTicks = 5
	s := New(p)
	s.Load(triangle(), origin)
	assert.Equal(t, 5, s.Run(100))
	assert.True(t, s.Settled())
	assert.Greater(t, s.Alpha(), p.AlphaMin)
}

func TestAlphaDecaysMonotonically(t *testing.T) {
	s := New(DefaultParams())
	s.Load(triangle(), origin)
	prev := s.Alpha()
	for s.Tick() {
		assert.Less(t, s.Alpha(), prev)
		prev = s.Alpha()
	}
}

func TestDeterministicForSeed(t *testing.T) {
	a, b := New(DefaultParams()), New(DefaultParams())
	a.Load(triangle(), origin)
	b.Load(triangle(), origin)
	a.Run(1000)
	b.Run(1000)
	assert.Equal(t, a.Positions(), b.Positions())
}

func TestCenterPull(t *testing.T) {
	s := New(DefaultParams())
	s.Load(graph.NewSnapshot(graph.Document{Nodes: []graph.Node{{ID: "solo"}}}), origin)
	before, _ := s.Position("solo")
	s.Run(1000)
	after, _ := s.Position("solo")
	assert.Less(t, after.Dist(origin), before.Dist(origin))
}

func TestDragPinsAndReleases(t *testing.T) {
	p := DefaultParams()
	p.MaxTicks = 5
	s := New(p)
	s.Load(triangle(), origin)
	s.Run(100)
	require.True(t, s.Settled())

	require.NoError(t, s.StartDrag("A"))
	assert.False(t, s.Settled())
	assert.ErrorIs(t, s.StartDrag("B"), ErrAlreadyDragging)

	target := geometry.Point{X: 900, Y: 100}
	require.NoError(t, s.DragTo(target))
	for i := 0; i < 20; i++ {
		s.Tick()
	}
	// The budget does not end a run while a node is held.
	assert.False(t, s.Settled())
	assert.GreaterOrEqual(t, s.Alpha(), p.AlphaMin)
	pos, _ := s.Position("A")
	assert.Equal(t, target, pos)
	id, ok := s.Dragging()
	assert.True(t, ok)
	assert.Equal(t, "A", id)

	require.NoError(t, s.EndDrag())
	assert.ErrorIs(t, s.EndDrag(), ErrNotDragging)
	b, _ := s.Body("A")
	assert.False(t, b.Fixed)

	s.Run(1000)
	assert.True(t, s.Settled())
}

func TestDragErrors(t *testing.T) {
	s := New(DefaultParams())
	s.Load(triangle(), origin)
	assert.ErrorIs(t, s.DragTo(origin), ErrNotDragging)
	assert.ErrorIs(t, s.EndDrag(), ErrNotDragging)
	assert.ErrorIs(t, s.StartDrag("zzz"), graph.ErrUnknownNode)
}

func TestLoadDiscardsPriorState(t *testing.T) {
	s := New(DefaultParams())
	s.Load(triangle(), origin)
	require.NoError(t, s.StartDrag("A"))
	s.Run(10)

	s.Load(graph.NewSnapshot(graph.Document{Nodes: []graph.Node{{ID: "X"}}}), origin)
	_, dragging := s.Dragging()
	assert.False(t, dragging)
	assert.Equal(t, 1.0, s.Alpha())
	assert.Zero(t, s.Ticks())
	_, ok := s.Body("A")
	assert.False(t, ok)
	assert.Len(t, s.Bodies(), 1)
}

func TestPlaceAndUnpin(t *testing.T) {
	s := New(DefaultParams())
	s.Load(triangle(), origin)
	at := geometry.Point{X: -50, Y: 75}
	require.NoError(t, s.Place("B", at, true))
	s.Run(50)
	pos, _ := s.Position("B")
	assert.Equal(t, at, pos)

	require.NoError(t, s.Unpin("B"))
	s.Reheat(1)
	s.Run(50)
	pos, _ = s.Position("B")
	assert.NotEqual(t, at, pos)

	assert.ErrorIs(t, s.Place("nope", at, false), graph.ErrUnknownNode)
	assert.ErrorIs(t, s.Unpin("nope"), graph.ErrUnknownNode)
}
