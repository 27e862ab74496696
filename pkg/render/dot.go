package render

import (
	"fmt"
	"io"
	"strings"
)

// DOT converts a frame to Graphviz DOT. Node positions are emitted as
// pinned pos attributes in points, so `neato -n` reproduces the layout.
func DOT(f Frame, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    node [shape=circle, style=filled, fontname=\"Helvetica\", fontsize=11, label=\"\"];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=9];\n")
	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(title)))
	}
	sb.WriteString("\n")

	for _, n := range f.Nodes {
		// Graphviz y grows upwards.
		sb.WriteString(fmt.Sprintf("    \"%s\" [xlabel=\"%s\", fillcolor=\"%s\", width=%.2f, pos=\"%.1f,%.1f!\"];\n",
			escapeDOT(n.ID), escapeDOT(n.Label), n.Style.Fill.Hex(),
			2*n.Radius/72, n.Pos.X, -n.Pos.Y))
	}
	sb.WriteString("\n")

	for _, e := range f.Edges {
		attrs := []string{fmt.Sprintf("color=\"%s\"", e.Style.Stroke.Hex())}
		if e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=\"%s\"", escapeDOT(e.Label)))
		}
		if e.Style.Emphasis {
			attrs = append(attrs, fmt.Sprintf("penwidth=%.1f", e.Style.StrokeWidth))
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" -> \"%s\" [%s];\n",
			escapeDOT(e.Source), escapeDOT(e.Target), strings.Join(attrs, ", ")))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// WriteDOT writes DOT(f, title) to w.
func WriteDOT(w io.Writer, f Frame, title string) error {
	_, err := io.WriteString(w, DOT(f, title))
	return err
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
