package config

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/ha1tch/kgview/pkg/force"
	"github.com/ha1tch/kgview/pkg/render"
)

// LayoutVersion is the current layout.toml schema.
const LayoutVersion = 1

// Layout is a saved arrangement: the viewport and every node position.
type Layout struct {
	Version int                     `toml:"version"`
	View    ViewLayout              `toml:"view"`
	Nodes   map[string]NodePosition `toml:"nodes"`
}

// ViewLayout is the saved pan/zoom transform.
type ViewLayout struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	K float64 `toml:"k"`
}

// NodePosition is one saved node.
type NodePosition struct {
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	Pinned bool    `toml:"pinned,omitempty"`
}

// NewLayout captures the current viewport and bodies.
func NewLayout(view render.Viewport, bodies []force.Body) Layout {
	l := Layout{
		Version: LayoutVersion,
		View:    ViewLayout{X: view.X, Y: view.Y, K: view.K},
		Nodes:   make(map[string]NodePosition, len(bodies)),
	}
	for _, b := range bodies {
		l.Nodes[b.ID] = NodePosition{X: b.X, Y: b.Y, Pinned: b.Fixed}
	}
	return l
}

// Viewport returns the saved transform.
func (l Layout) Viewport() render.Viewport {
	return render.Viewport{X: l.View.X, Y: l.View.Y, K: l.View.K}
}

// IDs returns the saved node ids in sorted order.
func (l Layout) IDs() []string {
	ids := make([]string, 0, len(l.Nodes))
	for id := range l.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WriteLayout encodes l as TOML.
func WriteLayout(w io.Writer, l Layout) error {
	return toml.NewEncoder(w).Encode(l)
}

// ReadLayout decodes a layout file.
func ReadLayout(path string) (Layout, error) {
	var l Layout
	if _, err := toml.DecodeFile(path, &l); err != nil {
		return Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	if l.Version > LayoutVersion {
		return Layout{}, fmt.Errorf("read layout %s: unsupported version %d", path, l.Version)
	}
	if l.View.K == 0 {
		l.View.K = 1
	}
	return l, nil
}

// SaveLayout writes l to path.
func SaveLayout(path string, l Layout) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteLayout(f, l); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
