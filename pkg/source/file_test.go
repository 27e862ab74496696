package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/kgview/pkg/graph"
)

func sampleDoc() graph.Document {
	return graph.Document{
		Nodes: []graph.Node{
			{ID: "A", Name: "Alice", Type: "Person", GroupID: "g1"},
			{ID: "B", Name: "Bob", Type: "Person", GroupID: "g1"},
			{ID: "C", Name: "Acme", Type: "Company", GroupID: "g2"},
			{ID: "S", Name: "sys", GroupID: "_system"},
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

func writeDoc(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data, err := graph.Encode(sampleDoc(), graph.FormatFor(path))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSnapshot(t *testing.T) {
	for _, name := range []string{"graph.json", "graph.yaml"} {
		t.Run(name, func(t *testing.T) {
			f := NewFile(writeDoc(t, name))
			ctx := context.Background()

			all, err := f.Snapshot(ctx, graph.Query{})
			require.NoError(t, err)
			assert.Len(t, all.Nodes, 4)
			assert.Len(t, all.Edges, 2)

			g1, err := f.Snapshot(ctx, graph.Query{Group: "g1"})
			require.NoError(t, err)
			assert.Len(t, g1.Nodes, 2)
			require.Len(t, g1.Edges, 1)
			assert.Equal(t, "KNOWS", g1.Edges[0].Type)

			limited, err := f.Snapshot(ctx, graph.Query{Limit: 1})
			require.NoError(t, err)
			assert.Len(t, limited.Nodes, 1)
			assert.Empty(t, limited.Edges)
		})
	}
}

func TestEpisode(t *testing.T) {
	f := NewFile(writeDoc(t, "graph.json"))
	ep, err := f.Episode(context.Background(), "e2")
	require.NoError(t, err)
	assert.Equal(t, "promoted", ep.Name)

	_, err = f.Episode(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrEpisodeNotFound)
}

func TestGroupsHidesInternal(t *testing.T) {
	f := NewFile(writeDoc(t, "graph.json"))
	groups, err := f.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, groups)

	all := NewFile(f.Path(), WithHiddenPrefixes())
	groups, err = all.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"_system", "g1", "g2"}, groups)
}

func TestDeleteGroup(t *testing.T) {
	f := NewFile(writeDoc(t, "graph.yaml"))
	ctx := context.Background()

	require.NoError(t, f.DeleteGroup(ctx, "g1"))
	groups, err := f.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g2"}, groups)

	doc, err := f.Document(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)
	assert.Empty(t, doc.Edges)
	require.Len(t, doc.Episodes, 1)
	assert.Equal(t, "e2", doc.Episodes[0].ID)

	assert.ErrorIs(t, f.DeleteGroup(ctx, "g1"), ErrGroupNotFound)

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDeleteGroupKeepsMode(t *testing.T) {
	path := writeDoc(t, "graph.json")
	require.NoError(t, os.Chmod(path, 0o640))

	require.NoError(t, NewFile(path).DeleteGroup(context.Background(), "g2"))
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())
}

func TestReadErrors(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	_, err := f.Snapshot(context.Background(), graph.Query{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewFile(writeDoc(t, "graph.json"))
	_, err = g.Groups(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
