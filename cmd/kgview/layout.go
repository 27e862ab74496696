package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ha1tch/kgview/pkg/config"
)

func layoutCmd(a *app) *cobra.Command {
	var output, from string
	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Settle the layout and export node positions as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.sourcePath(args)
			if err != nil {
				return err
			}
			e, err := a.headless(cmd.Context(), path, from, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			l := config.NewLayout(e.Viewport(), e.Simulation().Bodies())
			if output == "" || output == "-" {
				return config.WriteLayout(os.Stdout, l)
			}
			if err := config.SaveLayout(output, l); err != nil {
				return err
			}
			fmt.Printf("%s %s (%d nodes)\n", styleGood.Sprint("wrote"), output, len(l.Nodes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "layout file (default stdout)")
	cmd.Flags().StringVar(&from, "from", "", "start from a previously saved layout")
	return cmd
}
