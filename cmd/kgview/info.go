package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ha1tch/kgview/pkg/graph"
)

func infoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Show graph statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.sourcePath(args)
			if err != nil {
				return err
			}
			src := a.backend(path)
			ctx := cmd.Context()
			doc, err := src.Snapshot(ctx, a.query())
			if err != nil {
				return err
			}
			groups, err := src.Groups(ctx)
			if err != nil {
				return err
			}
			printInfo(os.Stdout, path, a.query(), graph.NewSnapshot(doc), len(doc.Episodes), groups)
			return nil
		},
	}
}

func printInfo(w io.Writer, path string, q graph.Query, snap *graph.Snapshot, stored int, groups []string) {
	st := snap.Stats()

	styleBrand.Fprintln(w, path)
	if q.Group != "" || q.Limit > 0 {
		styleSubtle.Fprintf(w, "  group=%q limit=%d\n", q.Group, q.Limit)
	}
	fmt.Fprintln(w)

	row := func(label string, v int) {
		fmt.Fprintf(w, "  %-14s %d\n", label, v)
	}
	row("Nodes", st.Nodes)
	row("Edges", st.Edges)
	row("Multi-edges", st.MultiPairs)
	row("Self-loops", st.SelfLoops)
	row("Episodes", st.Episodes)
	row("Stored", stored)
	if st.Dropped > 0 {
		styleBad.Fprintf(w, "  %-14s %d\n", "Dropped", st.Dropped)
	} else {
		row("Dropped", 0)
	}

	if len(st.ByType) > 0 {
		fmt.Fprintln(w)
		styleSubtle.Fprintln(w, "  Types")
		types := make([]string, 0, len(st.ByType))
		for t := range st.ByType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			name := t
			if name == "" {
				name = "(untyped)"
			}
			fmt.Fprintf(w, "    %-20s %d\n", name, st.ByType[t])
		}
	}

	fmt.Fprintln(w)
	if len(groups) == 0 {
		styleSubtle.Fprintln(w, "  No groups")
		return
	}
	styleSubtle.Fprintln(w, "  Groups")
	fmt.Fprintf(w, "    %s\n", strings.Join(groups, ", "))
}
