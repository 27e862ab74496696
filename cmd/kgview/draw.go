package main

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/ha1tch/kgview/pkg/episode"
	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/render"
	"github.com/ha1tch/kgview/pkg/selection"
)

// Styles
var (
	styleDefault  = tcell.StyleDefault
	styleSidebar  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSidebarH = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleDim      = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleCursor   = tcell.StyleDefault.Background(tcell.ColorDarkGray).Foreground(tcell.ColorWhite)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgError = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgOK    = tcell.StyleDefault.Foreground(tcell.ColorLightGreen).Background(tcell.ColorNavy)
	styleHelp     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleBorder   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// terminalBackground is what dimmed glyphs fade towards.
var terminalBackground = colorful.Color{}

func (v *Viewer) draw() {
	v.screen.Clear()
	w, h := v.screen.Size()
	cols, rows := v.canvasSize()

	f := v.eng.Frame()
	v.drawEdges(f, cols, rows)
	v.drawNodes(f, cols, rows)
	v.drawSidebar(cols, h-2)
	v.drawStatusBar(w, h)
}

func tcellColor(c colorful.Color, opacity float64) tcell.Color {
	if opacity < 1 {
		c = render.Fade(c, terminalBackground, opacity)
	}
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func (v *Viewer) setCell(x, y, cols, rows int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= cols || y >= rows {
		return
	}
	v.screen.SetContent(x, y, r, nil, style)
}

func (v *Viewer) drawEdges(f render.Frame, cols, rows int) {
	for _, g := range f.Edges {
		style := styleDefault.Foreground(tcellColor(g.Style.Stroke, g.Style.Opacity))
		dot := '·'
		if g.Style.Emphasis {
			style = style.Bold(true)
			dot = '•'
		}

		path := f.View.ApplyPath(g.Path)
		chord := path.At(0).Dist(path.At(1))
		n := max(int(chord/(cellW/2)), 24)
		samples := path.Sample(n)
		for _, p := range samples {
			x, y := pointCell(p)
			v.setCell(x, y, cols, rows, dot, style)
		}
		v.drawArrow(f, g, samples, cols, rows, style)
	}

	// Labels go on top of every curve.
	for _, g := range f.Edges {
		if !g.LabelShown() {
			continue
		}
		x, y := pointCell(f.View.Apply(g.Anchor))
		label := runewidth.Truncate(g.Label, 20, "…")
		x -= runewidth.StringWidth(label) / 2
		style := styleDim
		if g.Style.Emphasis {
			style = styleSidebar.Bold(true)
		}
		v.drawClipped(x, y, cols, rows, label, style)
	}
}

// drawArrow marks the direction of an edge just outside its target node.
func (v *Viewer) drawArrow(f render.Frame, g render.EdgeGlyph, samples []geometry.Point, cols, rows int, style tcell.Style) {
	if g.SelfLoop || len(samples) < 2 {
		return
	}
	target := samples[len(samples)-1]
	margin := f.Params.NodeRadius*f.View.K + cellW
	for i := len(samples) - 2; i >= 0; i-- {
		if samples[i].Dist(target) < margin {
			continue
		}
		d := samples[i+1].Sub(samples[i])
		var r rune
		switch {
		case abs(d.X) >= 2*abs(d.Y) && d.X > 0:
			r = '→'
		case abs(d.X) >= 2*abs(d.Y):
			r = '←'
		case d.Y > 0:
			r = '↓'
		default:
			r = '↑'
		}
		x, y := pointCell(samples[i])
		v.setCell(x, y, cols, rows, r, style)
		return
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func (v *Viewer) drawNodes(f render.Frame, cols, rows int) {
	sel := v.eng.Selection()
	for _, n := range f.Nodes {
		x, y := pointCell(f.View.Apply(n.Pos))
		style := styleDefault.Foreground(tcellColor(n.Style.Fill, n.Style.Opacity))
		glyph := '●'
		if sel.Kind == selection.NodeSelected && sel.Node == n.ID {
			glyph = '◉'
			style = style.Bold(true)
		}
		if id, ok := v.eng.Dragging(); ok && id == n.ID {
			style = style.Reverse(true)
		}
		v.setCell(x, y, cols, rows, glyph, style)

		label := runewidth.Truncate(n.Label, 18, "…")
		labelStyle := styleSidebar
		if n.Style.Opacity < 1 {
			labelStyle = styleDim
		} else if n.Style.Emphasis {
			labelStyle = labelStyle.Bold(true)
		}
		v.drawClipped(x+2, y, cols, rows, label, labelStyle)
	}
}

func (v *Viewer) drawClipped(x, y, cols, rows int, s string, style tcell.Style) {
	for _, r := range s {
		v.setCell(x, y, cols, rows, r, style)
		x += runewidth.RuneWidth(r)
	}
}

func (v *Viewer) drawString(x, y int, s string, style tcell.Style) int {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	return x
}

// sidebar accumulates lines for the right-hand panel.
type sidebar struct {
	v      *Viewer
	x, y   int
	width  int
	bottom int
}

func (s *sidebar) line(text string, style tcell.Style) {
	if s.y >= s.bottom {
		return
	}
	s.v.drawString(s.x, s.y, runewidth.Truncate(text, s.width, "…"), style)
	s.y++
}

func (s *sidebar) wrapped(text, indent string, style tcell.Style) {
	for _, l := range wrapText(text, s.width-runewidth.StringWidth(indent)) {
		s.line(indent+l, style)
	}
}

func (s *sidebar) gap() { s.y++ }

func (v *Viewer) drawSidebar(x, bottom int) {
	for y := 0; y < bottom; y++ {
		v.screen.SetContent(x, y, '│', nil, styleBorder)
	}
	s := &sidebar{v: v, x: x + 2, width: sidebarWidth - 3, bottom: bottom}

	title := v.title
	if title == "" {
		title = "kgview"
	}
	s.line(title, styleSidebarH)

	st := v.eng.Status()
	q := v.eng.Query()
	s.line(fmt.Sprintf("Group: %s (%d)", groupLabel(q.Group), len(v.eng.Groups())), styleSidebar)
	switch {
	case st.Loading:
		s.line("Loading…", styleDim)
	case st.Settled:
		s.line(fmt.Sprintf("Settled after %d ticks", st.Ticks), styleDim)
	default:
		s.line(fmt.Sprintf("Cooling α=%.3f", st.Alpha), styleDim)
	}
	if st.Deleting != "" {
		s.line("Deleting "+st.Deleting+"…", styleDim)
	}
	if st.LoadErr != nil {
		s.wrapped(st.LoadErr.Error(), "", styleError)
	}
	if st.DeleteErr != nil {
		s.wrapped(st.DeleteErr.Error(), "", styleError)
	}
	s.gap()

	colors := v.eng.Colors()
	if types := v.eng.NodeTypes(); len(types) > 0 {
		s.line("Types", styleSidebarH)
		for _, t := range types {
			if s.y >= s.bottom {
				break
			}
			v.screen.SetContent(s.x, s.y, '●', nil, styleDefault.Foreground(tcellColor(colors.Color(t), 1)))
			v.drawString(s.x+2, s.y, runewidth.Truncate(t, s.width-2, "…"), styleSidebar)
			s.y++
		}
		s.gap()
	}

	v.drawSelection(s)
}

func (v *Viewer) drawSelection(s *sidebar) {
	sel := v.eng.Selection()
	snap := v.eng.Snapshot()
	switch sel.Kind {
	case selection.NodeSelected:
		n, ok := snap.Node(sel.Node)
		if !ok {
			return
		}
		s.line(n.DisplayName(), styleSidebarH)
		if k := n.Kind(); k != "" {
			s.line(k, styleDim)
		}
		if n.GroupID != "" {
			s.line("group "+n.GroupID, styleDim)
		}
		if n.Summary != "" {
			s.wrapped(n.Summary, "", styleSidebar)
		}
		s.line(fmt.Sprintf("%d neighbours, %d edges", len(sel.Nodes)-1, len(sel.Edges)), styleDim)

	case selection.EdgeSelected:
		e, ok := snap.Edge(sel.Edge)
		if !ok {
			return
		}
		s.line(e.Type, styleSidebarH)
		src, _ := snap.Node(e.Source)
		dst, _ := snap.Node(e.Target)
		s.line(src.DisplayName()+" → "+dst.DisplayName(), styleSidebar)
		if e.Fact != "" {
			s.wrapped(e.Fact, "", styleSidebar)
		}
		if len(e.Episodes) == 0 {
			return
		}
		s.gap()
		s.line("Episodes", styleSidebarH)
		cache := v.eng.Episodes()
		expanded, _ := cache.Expanded()
		for i, id := range e.Episodes {
			v.drawEpisode(s, cache, id, i == v.episodeCursor, id == expanded)
		}

	default:
		s.line("Click a node or edge", styleDim)
	}
}

func (v *Viewer) drawEpisode(s *sidebar, cache *episode.Cache, id string, cursor, expanded bool) {
	marker := "▸ "
	if expanded {
		marker = "▾ "
	}
	name := id
	status := cache.Status(id)
	ep, loaded := cache.Get(id)
	if loaded && ep.Name != "" {
		name = ep.Name
	}
	style := styleSidebar
	if cursor {
		style = styleCursor
	}
	switch status {
	case episode.Loading:
		s.line(marker+name+" (loading)", style)
	case episode.NotRequested:
		s.line(marker+name+" (not loaded)", style)
	default:
		s.line(marker+name, style)
	}
	if expanded && loaded {
		if ep.SourceDescription != "" {
			s.line("  "+ep.SourceDescription, styleDim)
		}
		s.wrapped(ep.Content, "  ", styleSidebar)
	}
}

func (v *Viewer) drawStatusBar(w, h int) {
	y := h - 1
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, y, ' ', nil, styleStatus)
	}
	snap := v.eng.Snapshot()
	info := fmt.Sprintf("%d nodes  %d edges  zoom %.2f", len(snap.Nodes), len(snap.Edges), v.eng.Viewport().K)
	v.drawString(1, y, info, styleStatus)

	if v.message != "" {
		style := styleStatus
		switch v.messageType {
		case MsgError:
			style = styleMsgError
		case MsgSuccess:
			style = styleMsgOK
		}
		msg := runewidth.Truncate(v.message, w/2, "…")
		v.drawString(w-runewidth.StringWidth(msg)-2, y, msg, style)
	}

	y = h - 2
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	v.drawString(1, y, helpString, styleHelp)
}

const helpString = "Drag:Move/Pan  Wheel,+/-:Zoom  Arrows:Pan  Tab:Node  e:Edge  j/k,Enter:Episode  f:Fit  g:Group  D:Delete  r:Reload  s:Save  q:Quit"

// wrapText breaks s into lines no wider than width cells.
func wrapText(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var cur strings.Builder
		curW := 0
		for _, word := range strings.Fields(para) {
			ww := runewidth.StringWidth(word)
			if curW > 0 && curW+1+ww > width {
				lines = append(lines, cur.String())
				cur.Reset()
				curW = 0
			}
			if curW > 0 {
				cur.WriteByte(' ')
				curW++
			}
			cur.WriteString(word)
			curW += ww
		}
		lines = append(lines, cur.String())
	}
	return lines
}
