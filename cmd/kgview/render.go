package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ha1tch/kgview/pkg/render"
)

func renderCmd(a *app) *cobra.Command {
	var (
		output      string
		layoutPath  string
		title       string
		noLegend    bool
		noLabels    bool
		supersample int
	)
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Lay out a graph and write it as SVG, PNG or DOT",
		Example: `  kgview render graph.json -o graph.svg
  kgview render graph.yaml -o graph.png --supersample 3
  kgview render graph.json -o graph.svg --layout layout.toml
  kgview render graph.json -o graph.dot && neato -n -Tpdf graph.dot -o graph.pdf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.sourcePath(args)
			if err != nil {
				return err
			}
			if output == "" {
				return fmt.Errorf("an output file is required (-o)")
			}
			ext := strings.ToLower(filepath.Ext(output))
			switch ext {
			case ".svg", ".png", ".dot":
			default:
				return fmt.Errorf("unsupported output format %q (want .svg, .png or .dot)", ext)
			}

			fm, err := render.NewFontMeasurer()
			if err != nil {
				return err
			}
			e, err := a.headless(cmd.Context(), path, layoutPath, fm)
			if err != nil {
				return err
			}
			defer e.Close()
			frame := e.Frame()

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			switch ext {
			case ".svg":
				opts := render.DefaultSVGOptions()
				opts.Title = title
				opts.Legend = !noLegend
				opts.NodeLabels = !noLabels
				opts.EdgeLabels = !noLabels
				err = render.WriteSVG(f, frame, opts)
			case ".png":
				opts := render.DefaultPNGOptions()
				opts.Legend = !noLegend
				opts.NodeLabels = !noLabels
				opts.EdgeLabels = !noLabels
				if supersample > 0 {
					opts.Supersample = supersample
				}
				err = render.WritePNG(f, frame, opts)
			case ".dot":
				err = render.WriteDOT(f, frame, title)
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			a.log.Info("frame written",
				zap.String("output", output),
				zap.Int("nodes", len(frame.Nodes)),
				zap.Int("edges", len(frame.Edges)))
			fmt.Printf("%s %s\n", styleGood.Sprint("wrote"), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.svg, .png or .dot)")
	cmd.Flags().StringVar(&layoutPath, "layout", "", "restore node positions and viewport from a layout file")
	cmd.Flags().StringVar(&title, "title", "", "SVG or DOT title")
	cmd.Flags().BoolVar(&noLegend, "no-legend", false, "omit the type legend")
	cmd.Flags().BoolVar(&noLabels, "no-labels", false, "omit node and edge labels")
	cmd.Flags().IntVar(&supersample, "supersample", 0, "PNG supersampling factor")
	return cmd
}
