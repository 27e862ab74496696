package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/kgview/pkg/force"
	"github.com/ha1tch/kgview/pkg/render"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, force.DefaultParams(), cfg.ForceParams())
	assert.Equal(t, render.DefaultParams(), cfg.RenderParams())
	assert.Nil(t, cfg.BreakerConfig())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	t.Setenv("KGVIEW_DATA", "/data")
	path := writeConfig(t, `
log_level = "debug"

[source]
path = "${KGVIEW_DATA}/graph.json"
group = "${KGVIEW_GROUP:main}"
limit = 200

[force]
charge = -250.0
tick_interval = "33ms"

[render]
palette = ["#000000", "#ffffff"]

[episodes]
breaker = true
min_requests = 3

[view]
max_zoom = 8.0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/data/graph.json", cfg.Source.Path)
	assert.Equal(t, "main", cfg.Source.Group)
	assert.Equal(t, 200, cfg.Source.Limit)
	assert.Equal(t, -250.0, cfg.ForceParams().Charge)
	assert.Equal(t, 33*time.Millisecond, cfg.Force.TickInterval.Duration)
	assert.Equal(t, []string{"#000000", "#ffffff"}, cfg.Render.Palette)
	assert.Equal(t, 8.0, cfg.AutoFitParams().MaxZoom)
	// Unset keys keep their defaults.
	assert.Equal(t, Default().Force.LinkDistance, cfg.Force.LinkDistance)

	b := cfg.BreakerConfig()
	require.NotNil(t, b)
	assert.EqualValues(t, 3, b.MinRequests)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "[force]\nspringiness = 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "force.springiness")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "[force]\ntick_interval = \"soon\"\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zoom bounds", func(c *Config) { c.View.MinZoom, c.View.MaxZoom = 5, 2 }, "exceeds view.max_zoom"},
		{"zero zoom", func(c *Config) { c.View.MinZoom = 0 }, "must be positive"},
		{"palette", func(c *Config) { c.Render.Palette = []string{"blue"} }, "render.palette"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"opacity", func(c *Config) { c.Render.DimOpacity = 2 }, "dim_opacity"},
		{"alpha", func(c *Config) { c.Force.AlphaMin = 0 }, "alpha_min"},
		{"tick", func(c *Config) { c.Force.TickInterval = Duration{} }, "tick_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("KG_SET", "value")
	t.Setenv("KG_EMPTY", "")
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"${KG_SET}", "value"},
		{"${KG_SET:fallback}", "value"},
		{"${KG_UNSET_VAR:fallback}", "fallback"},
		{"${KG_UNSET_VAR}", ""},
		{"${KG_EMPTY:fallback}", ""},
		{"a-${KG_SET}-${KG_UNSET_VAR:b}", "a-value-b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandEnv(tt.in), tt.in)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Source.Path = "graph.yaml"
	cfg.Force.TickInterval = Duration{20 * time.Millisecond}
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/kgview", Dir())
	assert.Equal(t, "/tmp/xdg/kgview/config.toml", DefaultPath())
}

func TestNewLogger(t *testing.T) {
	file := filepath.Join(t.TempDir(), "kgview.log")
	log, err := NewLogger("warn", file)
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"msg":"shown"`)

	_, err = NewLogger("chatty", "")
	assert.Error(t, err)
}

func TestLayoutRoundTrip(t *testing.T) {
	bodies := []force.Body{
		{ID: "A", X: 1.5, Y: -2},
		{ID: "node with spaces", X: 10, Y: 20, Fixed: true, FX: 10, FY: 20},
	}
	l := NewLayout(render.Viewport{X: 5, Y: 6, K: 1.25}, bodies)

	var buf bytes.Buffer
	require.NoError(t, WriteLayout(&buf, l))
	assert.Contains(t, buf.String(), `[nodes."node with spaces"]`)

	path := filepath.Join(t.TempDir(), "layout.toml")
	require.NoError(t, SaveLayout(path, l))
	got, err := ReadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, l, got)
	assert.Equal(t, []string{"A", "node with spaces"}, got.IDs())
	assert.Equal(t, 1.25, got.Viewport().K)
}

func TestReadLayoutRejectsFutureVersion(t *testing.T) {
	path := writeConfig(t, "version = 99\n")
	_, err := ReadLayout(path)
	assert.Error(t, err)
}
