package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/kgview/pkg/config"
	"github.com/ha1tch/kgview/pkg/engine"
	"github.com/ha1tch/kgview/pkg/graph"
	"github.com/ha1tch/kgview/pkg/selection"
	"github.com/ha1tch/kgview/pkg/source"
)

func sampleDoc() graph.Document {
	return graph.Document{
		Nodes: []graph.Node{
			{ID: "A", Name: "Alice", Type: "Person", GroupID: "g1"},
			{ID: "B", Name: "Bob", Type: "Person", GroupID: "g1"},
			{ID: "C", Name: "Acme", Type: "Company", GroupID: "g2"},
		},
		Edges: []graph.Edge{
			{Source: "A", Target: "B", Type: "KNOWS"},
			{Source: "B", Target: "C", Type: "WORKS_AT", Episodes: []string{"e1", "e2"}},
		},
		Episodes: []graph.Episode{
			{ID: "e1", Name: "hired", Content: "Bob joined Acme", GroupID: "g1"},
			{ID: "e2", Name: "promoted", Content: "Bob promoted", GroupID: "g2"},
		},
	}
}

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.json")
	data, err := graph.Encode(sampleDoc(), graph.FormatJSON)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newTestViewer(t *testing.T) (*Viewer, tcell.SimulationScreen) {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(120, 40)

	opts := engine.DefaultOptions()
	opts.TickInterval = time.Hour
	opts.Force.MaxTicks = 200
	v := NewViewer(s, opts, source.NewFile(writeDoc(t)))
	t.Cleanup(func() {
		v.Close()
		s.Fini()
	})
	return v, s
}

// syncUntil runs the viewer loop until cond holds.
func syncUntil(t *testing.T, v *Viewer, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v.Sync()
		if cond() {
			return
		}
		require.True(t, time.Now().Before(deadline), "condition not met")
		time.Sleep(time.Millisecond)
	}
}

func screenText(s tcell.SimulationScreen) string {
	cells, w, _ := s.GetContents()
	var sb strings.Builder
	for i, c := range cells {
		if len(c.Runes) > 0 {
			sb.WriteRune(c.Runes[0])
		} else {
			sb.WriteByte(' ')
		}
		if (i+1)%w == 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func loadViewer(t *testing.T) (*Viewer, tcell.SimulationScreen) {
	t.Helper()
	v, s := newTestViewer(t)
	v.Start(graph.Query{})
	syncUntil(t, v, func() bool {
		return !v.Engine().Status().Loading && len(v.Engine().Snapshot().Nodes) == 3 && len(v.Engine().Groups()) == 2
	})
	v.Engine().Relax()
	v.Sync()
	return v, s
}

func TestViewerDrawsLegendAndStatus(t *testing.T) {
	_, s := loadViewer(t)
	text := screenText(s)
	assert.Contains(t, text, "Types")
	assert.Contains(t, text, "Company")
	assert.Contains(t, text, "Person")
	assert.Contains(t, text, "3 nodes  2 edges")
	assert.Contains(t, text, "Group: all (2)")
}

func TestViewerClickSelectsNode(t *testing.T) {
	v, s := loadViewer(t)
	eng := v.Engine()

	pos, ok := eng.Simulation().Position("C")
	require.True(t, ok)
	x, y := pointCell(eng.Viewport().Apply(pos))
	cols, rows := v.canvasSize()
	require.Less(t, x, cols)
	require.Less(t, y, rows)

	v.Handle(tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone))
	v.Handle(tcell.NewEventMouse(x, y, tcell.ButtonNone, tcell.ModNone))
	assert.Equal(t, selection.NodeSelected, eng.Selection().Kind)
	assert.Equal(t, "C", eng.Selection().Node)
	_, dragging := eng.Dragging()
	assert.False(t, dragging)

	v.Sync()
	assert.Contains(t, screenText(s), "1 neighbours, 1 edges")

	v.Handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	assert.Equal(t, selection.Idle, eng.Selection().Kind)
}

func TestViewerClickKeepsLayoutAtRest(t *testing.T) {
	v, _ := loadViewer(t)
	eng := v.Engine()
	require.True(t, eng.Simulation().Settled())
	before := eng.Simulation().Positions()

	pos, _ := eng.Simulation().Position("C")
	x, y := pointCell(eng.Viewport().Apply(pos))
	v.Handle(tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone))
	v.Handle(tcell.NewEventMouse(x, y, tcell.ButtonNone, tcell.ModNone))
	require.Equal(t, "C", eng.Selection().Node)

	for range 20 {
		eng.Step()
	}
	assert.True(t, eng.Simulation().Settled())
	assert.Equal(t, before, eng.Simulation().Positions())
}

func TestViewerDragMovesNode(t *testing.T) {
	v, _ := loadViewer(t)
	eng := v.Engine()

	pos, _ := eng.Simulation().Position("A")
	x, y := pointCell(eng.Viewport().Apply(pos))
	v.Handle(tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone))
	_, ok := eng.Dragging()
	require.False(t, ok)

	v.Handle(tcell.NewEventMouse(x+5, y+2, tcell.Button1, tcell.ModNone))
	id, ok := eng.Dragging()
	require.True(t, ok)
	assert.Equal(t, "A", id)
	moved, _ := eng.Simulation().Position("A")
	assert.NotEqual(t, pos, moved)

	v.Handle(tcell.NewEventMouse(x+5, y+2, tcell.ButtonNone, tcell.ModNone))
	_, ok = eng.Dragging()
	assert.False(t, ok)
	assert.Equal(t, selection.Idle, eng.Selection().Kind)
}

func TestViewerEpisodePanel(t *testing.T) {
	v, s := loadViewer(t)
	eng := v.Engine()

	eng.SelectEdge(1)
	syncUntil(t, v, func() bool {
		_, ok1 := eng.Episodes().Get("e1")
		_, ok2 := eng.Episodes().Get("e2")
		return ok1 && ok2
	})
	assert.Contains(t, screenText(s), "hired")
	assert.Contains(t, screenText(s), "promoted")

	v.Handle(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	v.Sync()
	assert.Contains(t, screenText(s), "Bob joined Acme")

	v.Handle(tcell.NewEventKey(tcell.KeyRune, 'j', tcell.ModNone))
	v.Handle(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	v.Sync()
	id, ok := eng.Episodes().Expanded()
	require.True(t, ok)
	assert.Equal(t, "e2", id)
	assert.Contains(t, screenText(s), "Bob promoted")
}

func TestViewerGroupCycleAndDelete(t *testing.T) {
	v, _ := loadViewer(t)
	eng := v.Engine()

	v.Handle(tcell.NewEventKey(tcell.KeyRune, 'g', tcell.ModNone))
	assert.Equal(t, "g1", eng.Query().Group)
	syncUntil(t, v, func() bool { return !eng.Status().Loading })
	assert.Len(t, eng.Snapshot().Nodes, 2)

	v.Handle(tcell.NewEventKey(tcell.KeyRune, 'D', tcell.ModNone))
	assert.Empty(t, eng.Status().Deleting)
	assert.Contains(t, v.message, "press D again")

	v.Handle(tcell.NewEventKey(tcell.KeyRune, 'D', tcell.ModNone))
	assert.Equal(t, "g1", eng.Status().Deleting)
	syncUntil(t, v, func() bool { return eng.Status().Deleting == "" && !eng.Status().Loading })

	assert.NoError(t, eng.Status().DeleteErr)
	assert.Equal(t, []string{"g2"}, eng.Groups())
	assert.Empty(t, eng.Query().Group)
	assert.Len(t, eng.Snapshot().Nodes, 1)
}

func TestViewerQuit(t *testing.T) {
	v, _ := newTestViewer(t)
	assert.True(t, v.Handle(tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone)))
	assert.False(t, v.Handle(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  []string
	}{
		{"", 10, []string{""}},
		{"short", 10, []string{"short"}},
		{"one two three", 7, []string{"one two", "three"}},
		{"a\nb", 10, []string{"a", "b"}},
		{"unbreakableword", 4, []string{"unbreakableword"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapText(tt.in, tt.width))
		})
	}
}

func TestPrintInfo(t *testing.T) {
	color.NoColor = true
	snap := graph.NewSnapshot(sampleDoc())
	var buf bytes.Buffer
	printInfo(&buf, "graph.json", graph.Query{}, snap, 2, []string{"g1", "g2"})

	out := buf.String()
	assert.Contains(t, out, "graph.json")
	assert.Regexp(t, `Nodes\s+3`, out)
	assert.Regexp(t, `Edges\s+2`, out)
	assert.Regexp(t, `Episodes\s+2`, out)
	assert.Regexp(t, `Person\s+2`, out)
	assert.Contains(t, out, "g1, g2")
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "missing.toml")
	cmd := newRootCmd(&app{})
	cmd.SetArgs(append(args, "--config", cfg, "--log-level", "error"))
	cmd.SetOut(&bytes.Buffer{})
	return cmd.Execute()
}

func TestRenderCommand(t *testing.T) {
	doc := writeDoc(t)
	dir := t.TempDir()

	svg := filepath.Join(dir, "out.svg")
	require.NoError(t, runCLI(t, "render", doc, "-o", svg, "--title", "people"))
	data, err := os.ReadFile(svg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))
	assert.Contains(t, string(data), "Acme")

	png := filepath.Join(dir, "out.png")
	require.NoError(t, runCLI(t, "render", doc, "-o", png, "--supersample", "1"))
	data, err = os.ReadFile(png)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))

	dot := filepath.Join(dir, "out.dot")
	require.NoError(t, runCLI(t, "render", doc, "-o", dot))
	data, err = os.ReadFile(dot)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"B" -> "C"`)

	assert.Error(t, runCLI(t, "render", doc, "-o", filepath.Join(dir, "out.gif")))
	assert.Error(t, runCLI(t, "render", doc))
}

func TestLayoutCommandRoundTrip(t *testing.T) {
	doc := writeDoc(t)
	out := filepath.Join(t.TempDir(), "layout.toml")
	require.NoError(t, runCLI(t, "layout", doc, "-o", out))

	l, err := config.ReadLayout(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, l.IDs())
	assert.Greater(t, l.View.K, 0.0)

	// Restoring keeps the saved viewport.
	svg := filepath.Join(t.TempDir(), "out.svg")
	require.NoError(t, runCLI(t, "render", doc, "-o", svg, "--layout", out))
}

func TestGroupFlagFilters(t *testing.T) {
	doc := writeDoc(t)
	out := filepath.Join(t.TempDir(), "layout.toml")
	require.NoError(t, runCLI(t, "layout", doc, "-o", out, "--group", "g2"))
	l, err := config.ReadLayout(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, l.IDs())
}

func TestMissingSource(t *testing.T) {
	assert.ErrorContains(t, runCLI(t, "info"), "no graph file")
}
