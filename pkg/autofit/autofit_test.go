package autofit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/render"
)

func TestFitCentresBox(t *testing.T) {
	p := DefaultParams()
	p.Padding = 0
	p.Margin = 1
	b := geometry.Bounds{MinX: 0, MinY: 0, MaxX: 400, MaxY: 200}
	v := Fit(b, 800, 600, p)

	assert.InDelta(t, 2.0, v.K, 1e-9)
	c := v.Apply(geometry.Point{X: 200, Y: 100})
	assert.InDelta(t, 400, c.X, 1e-9)
	assert.InDelta(t, 300, c.Y, 1e-9)
}

func TestFitClampsZoom(t *testing.T) {
	p := DefaultParams()
	tiny := geometry.Bounds{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	assert.LessOrEqual(t, Fit(tiny, 8000, 6000, p).K, p.MaxZoom)

	huge := geometry.Bounds{MinX: 0, MinY: 0, MaxX: 1e7, MaxY: 1e7}
	assert.Equal(t, p.MinZoom, Fit(huge, 800, 600, p).K)
}

func TestFitCoincidentNodesUsesFloor(t *testing.T) {
	p := DefaultParams()
	p.Padding = 0
	p.Margin = 1
	b, ok := geometry.BoundsOf([]geometry.Point{{X: 5, Y: 5}, {X: 5, Y: 5}})
	require.True(t, ok)
	v := Fit(b, 800, 600, p)
	assert.InDelta(t, 4.0, v.K, 1e-9) // 600/100 capped at MaxZoom
	c := v.Apply(geometry.Point{X: 5, Y: 5})
	assert.InDelta(t, 400, c.X, 1e-9)
	assert.InDelta(t, 300, c.Y, 1e-9)
}

func TestControllerFiresOncePerEpoch(t *testing.T) {
	c := New(DefaultParams())
	pts := []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 100}}

	anim, ok := c.Settled(pts, render.Identity(), 800, 600)
	require.True(t, ok)
	require.NotNil(t, anim)
	assert.True(t, c.Fired())

	for i := 0; i < 3; i++ {
		_, ok = c.Settled(pts, render.Identity(), 800, 600)
		assert.False(t, ok)
	}

	c.Reset()
	_, ok = c.Settled(pts, render.Identity(), 800, 600)
	assert.True(t, ok)
}

func TestControllerEmptyLayout(t *testing.T) {
	c := New(DefaultParams())
	_, ok := c.Settled(nil, render.Identity(), 800, 600)
	assert.False(t, ok)
	assert.True(t, c.Fired())
}

func TestAnimation(t *testing.T) {
	from := render.Viewport{X: 0, Y: 0, K: 1}
	to := render.Viewport{X: 100, Y: -50, K: 2}
	a := NewAnimation(from, to, 4)

	var ks []float64
	for !a.Done() {
		ks = append(ks, a.Step().K)
	}
	require.Len(t, ks, 4)
	for i := 1; i < len(ks); i++ {
		assert.Greater(t, ks[i], ks[i-1])
	}
	assert.Equal(t, to, a.Step())
	assert.Equal(t, to, a.Target())

	instant := NewAnimation(from, to, 0)
	assert.Equal(t, to, instant.Step())
	assert.True(t, instant.Done())
}

func TestEaseInOut(t *testing.T) {
	assert.Equal(t, 0.0, EaseInOut(-1))
	assert.Equal(t, 1.0, EaseInOut(2))
	assert.InDelta(t, 0.5, EaseInOut(0.5), 1e-9)
	assert.Less(t, EaseInOut(0.25), 0.25)
	assert.Greater(t, EaseInOut(0.75), 0.75)
}
