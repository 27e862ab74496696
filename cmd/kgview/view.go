package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ha1tch/kgview/pkg/config"
	"github.com/ha1tch/kgview/pkg/engine"
	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/graph"
	"github.com/ha1tch/kgview/pkg/loop"
	"github.com/ha1tch/kgview/pkg/render"
	"github.com/ha1tch/kgview/pkg/selection"
)

// Canvas cells map to engine screen units at this size, which keeps
// the roughly 1:2 aspect of terminal cells.
const (
	cellW        = 8.0
	cellH        = 16.0
	sidebarWidth = 38
	panStep      = 40.0
)

// MessageType controls how status bar messages are styled.
type MessageType int

const (
	MsgInfo MessageType = iota
	MsgError
	MsgSuccess
)

// Viewer is the interactive terminal front end. All of its state, and
// the engine's, is touched only from the event loop goroutine.
type Viewer struct {
	screen tcell.Screen
	eng    *engine.Engine
	queue  *loop.Queue
	log    *zap.Logger

	title      string
	layoutPath string
	restore    bool
	zoomStep   float64

	buttons   tcell.ButtonMask
	last      geometry.Point
	moved     bool
	candidate string // node under the press, grabbed on first motion
	grabbed   bool

	episodeCursor int
	confirmDelete string
	message       string
	messageType   MessageType
	quit          bool
}

func viewCmd(a *app) *cobra.Command {
	var layoutPath string
	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Browse a graph interactively in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.sourcePath(args)
			if err != nil {
				return err
			}
			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("initialise screen: %w", err)
			}
			defer screen.Fini()
			screen.EnableMouse()
			screen.Clear()

			v := NewViewer(screen, a.engineOptions(), a.backend(path))
			defer v.Close()
			v.title = filepath.Base(path)
			v.layoutPath = layoutPath
			v.restore = layoutPath != ""
			v.Start(a.query())
			v.Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&layoutPath, "layout", "", "layout file to restore on start and write with 's'")
	return cmd
}

// NewViewer creates a viewer drawing on screen. The screen must already
// be initialised.
func NewViewer(screen tcell.Screen, opts engine.Options, backend engine.Backend) *Viewer {
	v := &Viewer{
		screen:   screen,
		queue:    loop.NewQueue(),
		log:      opts.Logger,
		zoomStep: opts.ZoomStep,
	}
	if v.log == nil {
		v.log = zap.NewNop()
	}
	if v.zoomStep <= 1 {
		v.zoomStep = 1.2
	}
	opts.Measurer = render.CellMeasurer{CellWidth: cellW, CellHeight: cellH}
	v.eng = engine.New(backend, v.post, opts)
	v.resize()
	return v
}

// post hands fn to the event loop and wakes it. The closure sits in the
// queue, so a dropped wake-up only delays it to the next event.
func (v *Viewer) post(fn func()) {
	v.queue.Post(fn)
	_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// Start requests the group list and the first snapshot.
func (v *Viewer) Start(q graph.Query) {
	v.eng.RefreshGroups()
	v.eng.Load(q)
}

// Close stops the engine.
func (v *Viewer) Close() { v.eng.Close() }

// Engine exposes the engine for tests.
func (v *Viewer) Engine() *engine.Engine { return v.eng }

// Run processes events until the user quits.
func (v *Viewer) Run() {
	for !v.quit {
		v.Sync()
		ev := v.screen.PollEvent()
		if ev == nil {
			return
		}
		v.Handle(ev)
	}
}

// Sync runs posted closures and redraws.
func (v *Viewer) Sync() {
	v.queue.Drain()
	v.restoreLayout()
	v.draw()
	v.screen.Show()
}

// Handle applies one terminal event. It reports false once the user has
// asked to quit.
func (v *Viewer) Handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
		v.resize()
	case *tcell.EventKey:
		v.handleKey(ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	case *tcell.EventInterrupt:
		// Posted work; drained on the next Sync.
	}
	return !v.quit
}

func (v *Viewer) canvasSize() (cols, rows int) {
	w, h := v.screen.Size()
	return max(w-sidebarWidth, 10), max(h-2, 3)
}

func (v *Viewer) resize() {
	cols, rows := v.canvasSize()
	v.eng.Resize(float64(cols)*cellW, float64(rows)*cellH)
}

// cellPoint is the engine screen point at the centre of a cell.
func cellPoint(x, y int) geometry.Point {
	return geometry.Point{X: (float64(x) + 0.5) * cellW, Y: (float64(y) + 0.5) * cellH}
}

// pointCell is the cell containing an engine screen point.
func pointCell(p geometry.Point) (int, int) {
	return int(p.X / cellW), int(p.Y / cellH)
}

func (v *Viewer) showMessage(msg string, t MessageType) {
	v.message = msg
	v.messageType = t
}

func (v *Viewer) handleKey(ev *tcell.EventKey) {
	if !(ev.Key() == tcell.KeyRune && ev.Rune() == 'D') {
		v.confirmDelete = ""
	}

	switch ev.Key() {
	case tcell.KeyCtrlC:
		v.quit = true
	case tcell.KeyEscape:
		v.eng.ClearSelection()
		v.message = ""
	case tcell.KeyUp:
		v.eng.Pan(0, panStep)
	case tcell.KeyDown:
		v.eng.Pan(0, -panStep)
	case tcell.KeyLeft:
		v.eng.Pan(panStep, 0)
	case tcell.KeyRight:
		v.eng.Pan(-panStep, 0)
	case tcell.KeyTab:
		v.navigated(v.eng.CycleNode(1))
	case tcell.KeyBacktab:
		v.navigated(v.eng.CycleNode(-1))
	case tcell.KeyEnter:
		v.toggleEpisode()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			v.quit = true
		case '+', '=':
			v.eng.ZoomIn()
		case '-':
			v.eng.ZoomOut()
		case 'f':
			v.eng.FitNow()
		case 'r':
			v.eng.Reload()
			v.showMessage("reloading", MsgInfo)
		case 'g':
			v.cycleGroup()
		case 'D':
			v.deleteGroup()
		case 'e':
			v.navigated(v.eng.CycleEdge(1))
		case 'E':
			v.navigated(v.eng.CycleEdge(-1))
		case 'j':
			v.moveEpisodeCursor(1)
		case 'k':
			v.moveEpisodeCursor(-1)
		case ' ':
			v.toggleEpisode()
		case 's':
			v.saveLayout()
		}
	}
}

func (v *Viewer) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	p := cellPoint(x, y)
	btn := ev.Buttons()
	cols, rows := v.canvasSize()
	inCanvas := x < cols && y < rows

	switch {
	case btn&tcell.WheelUp != 0:
		if inCanvas {
			v.eng.ZoomAt(p, v.zoomStep)
		}
		return
	case btn&tcell.WheelDown != 0:
		if inCanvas {
			v.eng.ZoomAt(p, 1/v.zoomStep)
		}
		return
	}

	down := btn&tcell.Button1 != 0
	wasDown := v.buttons&tcell.Button1 != 0
	switch {
	case down && !wasDown:
		if !inCanvas {
			break
		}
		v.moved = false
		v.candidate, _ = v.eng.NodeAt(p)
		v.last = p
		v.buttons = btn
	case down && wasDown:
		if p == v.last {
			break
		}
		if !v.moved && v.candidate != "" {
			v.grabbed = v.eng.BeginDragNode(v.candidate)
		}
		v.moved = true
		if v.grabbed {
			if err := v.eng.DragTo(p); err != nil {
				v.log.Debug("drag", zap.Error(err))
			}
		} else {
			v.eng.Pan(p.X-v.last.X, p.Y-v.last.Y)
		}
		v.last = p
	case !down && wasDown:
		if v.grabbed {
			if err := v.eng.EndDrag(); err != nil {
				v.log.Debug("end drag", zap.Error(err))
			}
		}
		if !v.moved {
			v.eng.Click(p)
			v.navigated(v.eng.Selection())
		}
		v.grabbed = false
		v.candidate = ""
		v.buttons = 0
	}
}

// navigated resets the episode cursor after the selection changes.
func (v *Viewer) navigated(selection.State) {
	v.episodeCursor = 0
}

// selectedEpisodes returns the episodes cited by the selected edge.
func (v *Viewer) selectedEpisodes() []string {
	sel := v.eng.Selection()
	if sel.Kind != selection.EdgeSelected {
		return nil
	}
	e, ok := v.eng.Snapshot().Edge(sel.Edge)
	if !ok {
		return nil
	}
	return e.Episodes
}

func (v *Viewer) moveEpisodeCursor(delta int) {
	n := len(v.selectedEpisodes())
	if n == 0 {
		return
	}
	v.episodeCursor = (v.episodeCursor + delta + n) % n
}

func (v *Viewer) toggleEpisode() {
	ids := v.selectedEpisodes()
	if v.episodeCursor >= len(ids) {
		return
	}
	v.eng.ToggleEpisode(ids[v.episodeCursor])
}

func (v *Viewer) cycleGroup() {
	groups := append([]string{""}, v.eng.Groups()...)
	q := v.eng.Query()
	next := 0
	for i, g := range groups {
		if g == q.Group {
			next = (i + 1) % len(groups)
			break
		}
	}
	q.Group = groups[next]
	v.eng.Load(q)
	v.showMessage("group: "+groupLabel(q.Group), MsgInfo)
}

func (v *Viewer) deleteGroup() {
	group := v.eng.Query().Group
	if group == "" {
		v.showMessage("choose a group with g first", MsgError)
		return
	}
	if v.confirmDelete != group {
		v.confirmDelete = group
		v.showMessage(fmt.Sprintf("press D again to delete %s", group), MsgError)
		return
	}
	v.confirmDelete = ""
	v.eng.DeleteGroup(group)
	v.showMessage("deleting "+group, MsgInfo)
}

func (v *Viewer) saveLayout() {
	path := v.layoutPath
	if path == "" {
		path = "layout.toml"
	}
	l := config.NewLayout(v.eng.Viewport(), v.eng.Simulation().Bodies())
	if err := config.SaveLayout(path, l); err != nil {
		v.showMessage(err.Error(), MsgError)
		return
	}
	v.showMessage(fmt.Sprintf("saved %d positions to %s", len(l.Nodes), path), MsgSuccess)
}

// restoreLayout places saved positions once the first snapshot is in.
func (v *Viewer) restoreLayout() {
	if !v.restore || v.eng.Status().Loading || v.eng.Status().Token == 0 {
		return
	}
	v.restore = false
	if _, _, err := applyLayout(v.eng, v.layoutPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			v.showMessage(err.Error(), MsgError)
		}
		return
	}
	v.showMessage("layout restored", MsgSuccess)
}

func groupLabel(g string) string {
	if g == "" {
		return "all"
	}
	return g
}
