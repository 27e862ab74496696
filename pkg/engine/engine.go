// Package engine ties the layout, selection, episode and framing
// components to a backend. Every method must be called from the goroutine
// that drains the engine's Poster; backend calls run elsewhere and post
// their results back.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ha1tch/kgview/pkg/autofit"
	"github.com/ha1tch/kgview/pkg/episode"
	"github.com/ha1tch/kgview/pkg/force"
	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/graph"
	"github.com/ha1tch/kgview/pkg/loop"
	"github.com/ha1tch/kgview/pkg/render"
	"github.com/ha1tch/kgview/pkg/selection"
)

// Backend supplies graph data. Implementations must be safe for
// concurrent use.
type Backend interface {
	Snapshot(ctx context.Context, q graph.Query) (graph.Document, error)
	Episode(ctx context.Context, id string) (graph.Episode, error)
	Groups(ctx context.Context) ([]string, error)
	DeleteGroup(ctx context.Context, group string) error
}

// Options configures an Engine.
type Options struct {
	Force          force.Params
	Render         render.Params
	Curves         geometry.CurveParams
	AutoFit        autofit.Params
	AutoFitEnabled bool
	Palette        []string

	Width, Height float64
	ZoomStep      float64

	TickInterval   time.Duration
	FetchTimeout   time.Duration
	EpisodeTimeout time.Duration
	Breaker        *episode.BreakerConfig

	Measurer render.TextMeasurer
	Logger   *zap.Logger

	// OnChange runs on the loop after any visible change.
	OnChange func()
}

// DefaultOptions returns options built from each component's defaults.
func DefaultOptions() Options {
	return Options{
		Force:          force.DefaultParams(),
		Render:         render.DefaultParams(),
		Curves:         geometry.DefaultCurveParams(),
		AutoFit:        autofit.DefaultParams(),
		AutoFitEnabled: true,
		Width:          1200,
		Height:         800,
		ZoomStep:       1.2,
		TickInterval:   16 * time.Millisecond,
		FetchTimeout:   30 * time.Second,
		EpisodeTimeout: 30 * time.Second,
	}
}

// Status summarises load, delete and simulation state for display.
type Status struct {
	Loading   bool
	Token     uint64
	LoadErr   error
	Deleting  string
	DeleteErr error
	Settled   bool
	Alpha     float64
	Ticks     int
	Dropped   int
}

// Engine is the interactive graph view model.
type Engine struct {
	backend Backend
	post    loop.Poster
	opts    Options
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	sim      *force.Simulation
	proj     *render.Projector
	fit      *autofit.Controller
	anim     *autofit.Animation
	ticker   *loop.Ticker
	episodes *episode.Cache

	snap  *graph.Snapshot
	sel   selection.State
	view  render.Viewport
	query graph.Query

	groups     []string
	token      uint64
	loadCancel context.CancelFunc
	status     Status
}

// New creates an engine with an empty snapshot.
func New(backend Backend, post loop.Poster, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1200, 800
	}
	if opts.ZoomStep <= 1 {
		opts.ZoomStep = 1.2
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}

	e := &Engine{
		backend: backend,
		post:    post,
		opts:    opts,
		log:     opts.Logger.Named("engine"),
		sim:     force.New(opts.Force),
		proj:    render.NewProjector(opts.Render, opts.Curves, opts.Measurer),
		fit:     autofit.New(opts.AutoFit),
		ticker:  loop.NewTicker(post, opts.TickInterval),
		snap:    graph.NewSnapshot(graph.Document{}),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.view = e.homeView()

	cacheOpts := []episode.Option{
		episode.WithLogger(opts.Logger.Named("episodes")),
		episode.WithNotify(post, func(string, episode.Status) { e.changed() }),
	}
	if opts.EpisodeTimeout > 0 {
		cacheOpts = append(cacheOpts, episode.WithTimeout(opts.EpisodeTimeout))
	}
	if opts.Breaker != nil {
		cacheOpts = append(cacheOpts, episode.WithBreaker(*opts.Breaker))
	}
	e.episodes = episode.New(backend.Episode, cacheOpts...)

	colors, err := render.NewColorMap(nil, opts.Palette)
	if err != nil {
		e.log.Warn("invalid palette, using default", zap.Error(err))
		colors, _ = render.NewColorMap(nil, nil)
		e.opts.Palette = nil
	}
	e.proj.SetColors(colors)
	return e
}

// homeView puts the world origin at the screen centre.
func (e *Engine) homeView() render.Viewport {
	return render.Viewport{X: e.opts.Width / 2, Y: e.opts.Height / 2, K: 1}
}

func (e *Engine) changed() {
	if e.opts.OnChange != nil && !e.closed {
		e.opts.OnChange()
	}
}

// Close stops the ticker and cancels every outstanding fetch. Results
// that arrive afterwards are dropped.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.ticker.Stop()
	e.cancel()
	e.episodes.Close()
}

// Snapshot returns the installed snapshot.
func (e *Engine) Snapshot() *graph.Snapshot { return e.snap }

// Query returns the query of the latest load request.
func (e *Engine) Query() graph.Query { return e.query }

// Simulation exposes the layout for read-only inspection.
func (e *Engine) Simulation() *force.Simulation { return e.sim }

// Episodes returns the episode cache.
func (e *Engine) Episodes() *episode.Cache { return e.episodes }

// NodeTypes returns the legend types of the current snapshot.
func (e *Engine) NodeTypes() []string { return e.proj.Colors().Types() }

// Colors returns the type colour map.
func (e *Engine) Colors() *render.ColorMap { return e.proj.Colors() }

// Groups returns the cached group filter list.
func (e *Engine) Groups() []string {
	return append([]string(nil), e.groups...)
}

// Status returns the current status.
func (e *Engine) Status() Status {
	s := e.status
	s.Token = e.token
	s.Settled = e.sim.Settled()
	s.Alpha = e.sim.Alpha()
	s.Ticks = e.sim.Ticks()
	s.Dropped = len(e.snap.Dropped)
	return s
}

// Frame projects the current state.
func (e *Engine) Frame() render.Frame {
	return e.proj.Project(e.snap, e.sim.Bodies(), e.view, e.sel, e.opts.Width, e.opts.Height)
}

// Size returns the viewport size in screen units.
func (e *Engine) Size() (w, h float64) { return e.opts.Width, e.opts.Height }

// Resize changes the viewport size without touching the layout.
func (e *Engine) Resize(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	e.opts.Width, e.opts.Height = w, h
	e.changed()
}

// SetPalette recolours node types. The simulation is not touched.
func (e *Engine) SetPalette(palette []string) error {
	colors, err := render.NewColorMap(e.snap.Types(), palette)
	if err != nil {
		return err
	}
	e.opts.Palette = palette
	e.proj.SetColors(colors)
	e.changed()
	return nil
}

// SetRenderParams replaces styling constants. The simulation is not touched.
func (e *Engine) SetRenderParams(p render.Params) {
	e.opts.Render = p
	e.proj.SetParams(p)
	e.changed()
}
