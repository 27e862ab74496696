// Package config loads kgview settings from TOML and maps them onto the
// parameters of each engine component.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"github.com/ha1tch/kgview/pkg/autofit"
	"github.com/ha1tch/kgview/pkg/episode"
	"github.com/ha1tch/kgview/pkg/force"
	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/render"
)

// Config holds kgview configuration.
type Config struct {
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`

	Source   SourceConfig   `toml:"source"`
	Force    ForceConfig    `toml:"force"`
	Render   RenderConfig   `toml:"render"`
	AutoFit  AutoFitConfig  `toml:"autofit"`
	Episodes EpisodesConfig `toml:"episodes"`
	View     ViewConfig     `toml:"view"`
}

// SourceConfig selects the graph document and the initial query.
type SourceConfig struct {
	Path           string   `toml:"path"`
	Group          string   `toml:"group"`
	Limit          int      `toml:"limit"`
	HiddenPrefixes []string `toml:"hidden_prefixes"`
}

// ForceConfig tunes the simulation.
type ForceConfig struct {
	LinkDistance      float64  `toml:"link_distance"`
	LinkStrength      float64  `toml:"link_strength"`
	Charge            float64  `toml:"charge"`
	ChargeDistanceMin float64  `toml:"charge_distance_min"`
	ChargeDistanceMax float64  `toml:"charge_distance_max"`
	CenterStrength    float64  `toml:"center_strength"`
	CollideRadius     float64  `toml:"collide_radius"`
	AlphaMin          float64  `toml:"alpha_min"`
	AlphaDecay        float64  `toml:"alpha_decay"`
	VelocityDecay     float64  `toml:"velocity_decay"`
	MaxTicks          int      `toml:"max_ticks"`
	Seed              int64    `toml:"seed"`
	TickInterval      Duration `toml:"tick_interval"`
}

// RenderConfig controls styling and curve geometry.
type RenderConfig struct {
	Palette         []string `toml:"palette"`
	NodeRadius      float64  `toml:"node_radius"`
	DimOpacity      float64  `toml:"dim_opacity"`
	EdgeWidth       float64  `toml:"edge_width"`
	EdgeWidthActive float64  `toml:"edge_width_active"`
	LabelSize       float64  `toml:"label_size"`
	CurveSpacing    float64  `toml:"curve_spacing"`
	LabelFactor     float64  `toml:"label_factor"`
	LoopRadius      float64  `toml:"loop_radius"`
}

// AutoFitConfig controls framing after the layout settles.
type AutoFitConfig struct {
	Enabled bool    `toml:"enabled"`
	Padding float64 `toml:"padding"`
	MinBox  float64 `toml:"min_box"`
	Margin  float64 `toml:"margin"`
	Frames  int     `toml:"frames"`
}

// EpisodesConfig controls the episode cache.
type EpisodesConfig struct {
	Timeout          Duration `toml:"timeout"`
	Breaker          bool     `toml:"breaker"`
	FailureThreshold float64  `toml:"failure_threshold"`
	MinRequests      uint32   `toml:"min_requests"`
	BreakerTimeout   Duration `toml:"breaker_timeout"`
}

// ViewConfig sets the canvas and zoom limits.
type ViewConfig struct {
	Width    float64 `toml:"width"`
	Height   float64 `toml:"height"`
	MinZoom  float64 `toml:"min_zoom"`
	MaxZoom  float64 `toml:"max_zoom"`
	ZoomStep float64 `toml:"zoom_step"`
}

// Duration is a time.Duration written as a string such as "16ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	fp := force.DefaultParams()
	rp := render.DefaultParams()
	cp := geometry.DefaultCurveParams()
	ap := autofit.DefaultParams()
	bp := episode.DefaultBreakerConfig()
	return &Config{
		LogLevel: "info",
		Source:   SourceConfig{HiddenPrefixes: []string{"_"}},
		Force: ForceConfig{
			LinkDistance:      fp.LinkDistance,
			LinkStrength:      fp.LinkStrength,
			Charge:            fp.Charge,
			ChargeDistanceMin: fp.ChargeDistanceMin,
			ChargeDistanceMax: fp.ChargeDistanceMax,
			CenterStrength:    fp.CenterStrength,
			CollideRadius:     fp.CollideRadius,
			AlphaMin:          fp.AlphaMin,
			AlphaDecay:        fp.AlphaDecay,
			VelocityDecay:     fp.VelocityDecay,
			MaxTicks:          fp.MaxTicks,
			Seed:              fp.Seed,
			TickInterval:      Duration{16 * time.Millisecond},
		},
		Render: RenderConfig{
			Palette:         append([]string(nil), render.DefaultPalette...),
			NodeRadius:      rp.NodeRadius,
			DimOpacity:      rp.DimOpacity,
			EdgeWidth:       rp.EdgeWidth,
			EdgeWidthActive: rp.EdgeWidthActive,
			LabelSize:       rp.LabelSize,
			CurveSpacing:    cp.Spacing,
			LabelFactor:     cp.LabelFactor,
			LoopRadius:      cp.LoopRadius,
		},
		AutoFit: AutoFitConfig{
			Enabled: true,
			Padding: ap.Padding,
			MinBox:  ap.MinBox,
			Margin:  ap.Margin,
			Frames:  ap.Frames,
		},
		Episodes: EpisodesConfig{
			Timeout:          Duration{30 * time.Second},
			FailureThreshold: bp.FailureThreshold,
			MinRequests:      bp.MinRequests,
			BreakerTimeout:   Duration{bp.Timeout},
		},
		View: ViewConfig{
			Width:    1200,
			Height:   800,
			MinZoom:  ap.MinZoom,
			MaxZoom:  ap.MaxZoom,
			ZoomStep: 1.2,
		},
	}
}

// Dir returns the kgview config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ".kgview"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "kgview")
}

// DefaultPath is the config file used when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	cfg.expand()
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:default}. An unset variable without
// a default expands to the empty string.
func ExpandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := envPattern.FindStringSubmatch(m)
		if v, ok := os.LookupEnv(sub[1]); ok {
			return v
		}
		return sub[2]
	})
}

func (c *Config) expand() {
	c.LogLevel = ExpandEnv(c.LogLevel)
	c.LogFile = ExpandEnv(c.LogFile)
	c.Source.Path = ExpandEnv(c.Source.Path)
	c.Source.Group = ExpandEnv(c.Source.Group)
	for i, p := range c.Render.Palette {
		c.Render.Palette[i] = ExpandEnv(p)
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		add("log_level: %w", err)
	}
	if c.Source.Limit < 0 {
		add("source.limit must not be negative")
	}
	if c.Force.AlphaMin <= 0 || c.Force.AlphaMin >= 1 {
		add("force.alpha_min must be in (0, 1)")
	}
	if c.Force.AlphaDecay <= 0 || c.Force.AlphaDecay >= 1 {
		add("force.alpha_decay must be in (0, 1)")
	}
	if c.Force.VelocityDecay < 0 || c.Force.VelocityDecay > 1 {
		add("force.velocity_decay must be in [0, 1]")
	}
	if c.Force.MaxTicks < 0 {
		add("force.max_ticks must not be negative")
	}
	if c.Force.TickInterval.Duration <= 0 {
		add("force.tick_interval must be positive")
	}
	if c.Render.DimOpacity < 0 || c.Render.DimOpacity > 1 {
		add("render.dim_opacity must be in [0, 1]")
	}
	if c.Render.NodeRadius <= 0 {
		add("render.node_radius must be positive")
	}
	if _, err := render.NewColorMap(nil, c.Render.Palette); err != nil {
		add("render.palette: %w", err)
	}
	if c.AutoFit.MinBox <= 0 {
		add("autofit.min_box must be positive")
	}
	if c.AutoFit.Margin <= 0 || c.AutoFit.Margin > 1 {
		add("autofit.margin must be in (0, 1]")
	}
	if c.View.Width <= 0 || c.View.Height <= 0 {
		add("view.width and view.height must be positive")
	}
	if c.View.MinZoom <= 0 || c.View.MaxZoom <= 0 {
		add("view.min_zoom and view.max_zoom must be positive")
	} else if c.View.MinZoom > c.View.MaxZoom {
		add("view.min_zoom %.2f exceeds view.max_zoom %.2f", c.View.MinZoom, c.View.MaxZoom)
	}
	if c.View.ZoomStep <= 1 {
		add("view.zoom_step must be greater than 1")
	}
	if c.Episodes.Timeout.Duration <= 0 {
		add("episodes.timeout must be positive")
	}
	return errors.Join(errs...)
}

// ForceParams maps the force section onto simulation parameters.
func (c *Config) ForceParams() force.Params {
	p := force.DefaultParams()
	p.LinkDistance = c.Force.LinkDistance
	p.LinkStrength = c.Force.LinkStrength
	p.Charge = c.Force.Charge
	p.ChargeDistanceMin = c.Force.ChargeDistanceMin
	p.ChargeDistanceMax = c.Force.ChargeDistanceMax
	p.CenterStrength = c.Force.CenterStrength
	p.CollideRadius = c.Force.CollideRadius
	p.AlphaMin = c.Force.AlphaMin
	p.AlphaDecay = c.Force.AlphaDecay
	p.VelocityDecay = c.Force.VelocityDecay
	p.MaxTicks = c.Force.MaxTicks
	p.Seed = c.Force.Seed
	return p
}

// RenderParams maps the render section onto styling parameters.
func (c *Config) RenderParams() render.Params {
	p := render.DefaultParams()
	p.NodeRadius = c.Render.NodeRadius
	p.DimOpacity = c.Render.DimOpacity
	p.EdgeWidth = c.Render.EdgeWidth
	p.EdgeWidthActive = c.Render.EdgeWidthActive
	p.LabelSize = c.Render.LabelSize
	return p
}

// CurveParams maps the render section onto curve geometry.
func (c *Config) CurveParams() geometry.CurveParams {
	p := geometry.DefaultCurveParams()
	p.Spacing = c.Render.CurveSpacing
	p.LabelFactor = c.Render.LabelFactor
	p.LoopRadius = c.Render.LoopRadius
	return p
}

// AutoFitParams maps the autofit and view sections.
func (c *Config) AutoFitParams() autofit.Params {
	return autofit.Params{
		Padding: c.AutoFit.Padding,
		MinBox:  c.AutoFit.MinBox,
		Margin:  c.AutoFit.Margin,
		MinZoom: c.View.MinZoom,
		MaxZoom: c.View.MaxZoom,
		Frames:  c.AutoFit.Frames,
	}
}

// BreakerConfig returns the episode breaker settings, or nil when disabled.
func (c *Config) BreakerConfig() *episode.BreakerConfig {
	if !c.Episodes.Breaker {
		return nil
	}
	b := episode.DefaultBreakerConfig()
	b.FailureThreshold = c.Episodes.FailureThreshold
	b.MinRequests = c.Episodes.MinRequests
	b.Timeout = c.Episodes.BreakerTimeout.Duration
	return &b
}
