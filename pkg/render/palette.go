package render

import (
	"fmt"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultColor is used for nodes whose type is missing or unknown.
const DefaultColor = "#999999"

// DefaultPalette is the ten-colour categorical scheme.
var DefaultPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// ColorMap assigns palette colours to node types. Types are sorted so the
// assignment is stable for a given type set.
type ColorMap struct {
	types    []string
	colors   map[string]colorful.Color
	fallback colorful.Color
}

// NewColorMap builds a map over the distinct types. An empty palette
// selects DefaultPalette.
func NewColorMap(types, palette []string) (*ColorMap, error) {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	parsed := make([]colorful.Color, len(palette))
	for i, hex := range palette {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		parsed[i] = c
	}
	fallback, _ := colorful.Hex(DefaultColor)

	sorted := make([]string, 0, len(types))
	seen := make(map[string]bool)
	for _, t := range types {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	m := &ColorMap{
		types:    sorted,
		colors:   make(map[string]colorful.Color, len(sorted)),
		fallback: fallback,
	}
	for i, t := range sorted {
		m.colors[t] = parsed[i%len(parsed)]
	}
	return m, nil
}

// Color returns the colour for a type.
func (m *ColorMap) Color(t string) colorful.Color {
	if m == nil {
		c, _ := colorful.Hex(DefaultColor)
		return c
	}
	if c, ok := m.colors[t]; ok {
		return c
	}
	return m.fallback
}

// Hex returns the colour for a type as "#rrggbb".
func (m *ColorMap) Hex(t string) string { return m.Color(t).Hex() }

// Types returns the sorted types the map was built for.
func (m *ColorMap) Types() []string {
	if m == nil {
		return nil
	}
	return m.types
}

// Fade blends c toward bg; opacity 1 returns c unchanged.
func Fade(c, bg colorful.Color, opacity float64) colorful.Color {
	return bg.BlendRgb(c, opacity).Clamped()
}
