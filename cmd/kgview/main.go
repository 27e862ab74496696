// Command kgview explores temporal knowledge graphs: an interactive
// terminal view plus headless render, layout and info commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ha1tch/kgview/pkg/config"
	"github.com/ha1tch/kgview/pkg/engine"
	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/graph"
	"github.com/ha1tch/kgview/pkg/loop"
	"github.com/ha1tch/kgview/pkg/render"
	"github.com/ha1tch/kgview/pkg/source"
)

var version = "0.3.0"

var (
	styleBrand  = color.New(color.FgHiCyan, color.Bold)
	styleSubtle = color.New(color.FgHiBlack)
	styleGood   = color.New(color.FgGreen)
	styleBad    = color.New(color.FgRed)
)

// flags holds the persistent command line overrides.
type flags struct {
	configPath string
	group      string
	limit      int
	width      float64
	height     float64
	logLevel   string
}

// app is what every subcommand needs after the root pre-run.
type app struct {
	flags flags
	cfg   *config.Config
	log   *zap.Logger
}

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		styleBad.Fprintf(os.Stderr, "kgview: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "kgview",
		Short:         "Explore a temporal knowledge graph",
		Long:          styleBrand.Sprint("kgview") + " lays out entity graphs with a force simulation\nand lets you browse nodes, edges and the episodes behind them.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringVar(&a.flags.group, "group", "", "only show this group")
	pf.IntVar(&a.flags.limit, "limit", 0, "maximum number of nodes (0 for all)")
	pf.Float64Var(&a.flags.width, "width", 0, "canvas width")
	pf.Float64Var(&a.flags.height, "height", 0, "canvas height")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		viewCmd(a),
		renderCmd(a),
		layoutCmd(a),
		infoCmd(a),
	)
	return root
}

// setup loads the config, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	pf := cmd.Flags()
	if pf.Changed("group") {
		cfg.Source.Group = a.flags.group
	}
	if pf.Changed("limit") {
		cfg.Source.Limit = a.flags.limit
	}
	if pf.Changed("width") {
		cfg.View.Width = a.flags.width
	}
	if pf.Changed("height") {
		cfg.View.Height = a.flags.height
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logFile := cfg.LogFile
	if logFile == "" && cmd.Name() == "view" {
		// The view owns the terminal; without a log file stay silent.
		a.cfg, a.log = cfg, zap.NewNop()
		return nil
	}
	log, err := config.NewLogger(cfg.LogLevel, logFile)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// sourcePath picks the graph file from the arguments or the config.
func (a *app) sourcePath(args []string) (string, error) {
	if len(args) > 0 {
		a.cfg.Source.Path = args[0]
	}
	if a.cfg.Source.Path == "" {
		return "", errors.New("no graph file given (argument or [source] path)")
	}
	return a.cfg.Source.Path, nil
}

func (a *app) backend(path string) *source.File {
	opts := []source.Option{source.WithLogger(a.log)}
	if len(a.cfg.Source.HiddenPrefixes) > 0 {
		opts = append(opts, source.WithHiddenPrefixes(a.cfg.Source.HiddenPrefixes...))
	}
	return source.NewFile(path, opts...)
}

func (a *app) query() graph.Query {
	return graph.Query{Group: a.cfg.Source.Group, Limit: a.cfg.Source.Limit}
}

func (a *app) engineOptions() engine.Options {
	cfg := a.cfg
	opts := engine.DefaultOptions()
	opts.Force = cfg.ForceParams()
	opts.Render = cfg.RenderParams()
	opts.Curves = cfg.CurveParams()
	opts.AutoFit = cfg.AutoFitParams()
	opts.AutoFitEnabled = cfg.AutoFit.Enabled
	opts.Palette = cfg.Render.Palette
	opts.Width, opts.Height = cfg.View.Width, cfg.View.Height
	opts.ZoomStep = cfg.View.ZoomStep
	opts.TickInterval = cfg.Force.TickInterval.Duration
	opts.EpisodeTimeout = cfg.Episodes.Timeout.Duration
	opts.Breaker = cfg.BreakerConfig()
	opts.Logger = a.log
	return opts
}

// headless loads the snapshot synchronously and relaxes it. A saved
// layout seeds node positions first and its viewport wins over auto-fit.
// The returned engine has no running loop.
func (a *app) headless(ctx context.Context, path, layoutPath string, m render.TextMeasurer) (*engine.Engine, error) {
	opts := a.engineOptions()
	opts.Measurer = m
	q := loop.NewQueue()
	e := engine.New(a.backend(path), q.Post, opts)
	if err := e.LoadSync(ctx, a.query()); err != nil {
		e.Close()
		return nil, err
	}
	var saved *render.Viewport
	if layoutPath != "" {
		v, placed, err := applyLayout(e, layoutPath)
		if err != nil {
			e.Close()
			return nil, err
		}
		a.log.Info("layout restored", zap.String("path", layoutPath), zap.Int("placed", placed))
		saved = &v
	}
	ticks := e.Relax()
	if saved != nil {
		e.SetViewport(*saved)
	}
	a.log.Debug("layout relaxed", zap.Int("ticks", ticks))
	return e, nil
}

// applyLayout places saved node positions, pinning those saved as
// pinned. It returns the saved viewport and how many nodes were placed;
// ids missing from the snapshot are skipped.
func applyLayout(e *engine.Engine, path string) (render.Viewport, int, error) {
	l, err := config.ReadLayout(path)
	if err != nil {
		return render.Viewport{}, 0, err
	}
	free := make(map[string]geometry.Point, len(l.Nodes))
	pinned := make(map[string]geometry.Point)
	for id, n := range l.Nodes {
		p := geometry.Point{X: n.X, Y: n.Y}
		if n.Pinned {
			pinned[id] = p
		} else {
			free[id] = p
		}
	}
	placed := e.PlaceNodes(free, false) + e.PlaceNodes(pinned, true)
	return l.Viewport(), placed, nil
}
