package render

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// SVGOptions controls SVG output.
type SVGOptions struct {
	Title      string
	Legend     bool
	NodeLabels bool
	EdgeLabels bool
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Legend: true, NodeLabels: true, EdgeLabels: true}
}

// SVG renders a frame as a standalone SVG document. World content sits in
// a group carrying the viewport transform.
func SVG(f Frame, opts SVGOptions) string {
	p := f.Params
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<defs>
  <marker id="arrowhead" viewBox="0 -5 10 10" refX="%.1f" refY="0" markerWidth="6" markerHeight="6" orient="auto">
    <path d="M0,-5L10,0L0,5" fill="%s"/>
  </marker>
</defs>
<style>
  .edge { fill: none; }
  .edge-label { font-family: sans-serif; font-size: %.0fpx; text-anchor: middle; dominant-baseline: middle; fill: #333; }
  .edge-label-bg { fill: white; }
  .node-label { font-family: sans-serif; font-size: %.0fpx; fill: #333; }
  .legend { font-family: sans-serif; font-size: 12px; fill: #333; }
  .title { font-family: sans-serif; font-size: 18px; font-weight: bold; text-anchor: middle; }
</style>
`, f.Width, f.Height, f.Width, f.Height, p.NodeRadius+10, p.EdgeColor, p.LabelSize, p.NodeLabelSize))

	sb.WriteString(fmt.Sprintf(`<rect width="%.0f" height="%.0f" fill="%s"/>
`, f.Width, f.Height, p.Background))

	sb.WriteString(fmt.Sprintf(`<g transform="translate(%.2f,%.2f) scale(%.4f)">
`, f.View.X, f.View.Y, f.View.K))

	// Edges first, under nodes.
	for _, e := range f.Edges {
		sb.WriteString(fmt.Sprintf(`<path d="%s" class="edge" stroke="%s" stroke-width="%.1f" stroke-opacity="%.2f"`,
			e.Path.D(), e.Style.Stroke.Hex(), e.Style.StrokeWidth, e.Style.Opacity))
		if !e.SelfLoop {
			sb.WriteString(` marker-end="url(#arrowhead)"`)
		}
		sb.WriteString("/>\n")
	}

	if opts.EdgeLabels {
		for _, e := range f.Edges {
			if e.Label == "" {
				continue
			}
			tl := e.Box.Min()
			sb.WriteString(fmt.Sprintf(`<g opacity="%.2f"><rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" class="edge-label-bg"/><text x="%.1f" y="%.1f" class="edge-label">%s</text></g>
`, e.Style.Opacity, tl.X, tl.Y, e.Box.W, e.Box.H, e.Anchor.X, e.Anchor.Y, html.EscapeString(e.Label)))
		}
	}

	for _, n := range f.Nodes {
		sb.WriteString(fmt.Sprintf(`<g opacity="%.2f"><circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" stroke="%s" stroke-width="%.1f"/>`,
			n.Style.Opacity, n.Pos.X, n.Pos.Y, n.Radius, n.Style.Fill.Hex(), n.Style.Stroke.Hex(), n.Style.StrokeWidth))
		if opts.NodeLabels && n.Label != "" {
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" class="node-label">%s</text>`,
				n.Pos.X+n.Radius+4, n.Pos.Y+p.NodeLabelSize/3, html.EscapeString(n.Label)))
		}
		sb.WriteString("</g>\n")
	}
	sb.WriteString("</g>\n")

	if opts.Legend {
		for i, l := range f.Legend {
			y := 20 + float64(i)*18
			sb.WriteString(fmt.Sprintf(`<circle cx="16" cy="%.0f" r="6" fill="%s"/><text x="28" y="%.0f" class="legend">%s</text>
`, y, l.Color.Hex(), y+4, html.EscapeString(l.Type)))
		}
	}

	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%.0f" y="25" class="title">%s</text>
`, f.Width/2, html.EscapeString(opts.Title)))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// WriteSVG writes SVG(f, opts) to w.
func WriteSVG(w io.Writer, f Frame, opts SVGOptions) error {
	_, err := io.WriteString(w, SVG(f, opts))
	return err
}
