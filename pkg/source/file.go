// Package source provides backends that supply snapshots, episodes and
// group lists to the engine.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ha1tch/kgview/pkg/graph"
)

var (
	// ErrGroupNotFound is returned when deleting a group no node belongs to.
	ErrGroupNotFound = errors.New("group not found")
	// ErrEpisodeNotFound is returned for an unknown episode id.
	ErrEpisodeNotFound = errors.New("episode not found")
)

// File serves a JSON or YAML graph document from disk. The file is re-read
// on every call so external edits show up on reload.
type File struct {
	path   string
	format graph.Format
	hidden []string
	log    *zap.Logger

	mu sync.Mutex // serialises rewrites
}

// Option configures a File.
type Option func(*File)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *File) { f.log = l }
}

// WithHiddenPrefixes hides groups whose id starts with any prefix from
// Groups. The default hides ids starting with "_".
func WithHiddenPrefixes(prefixes ...string) Option {
	return func(f *File) { f.hidden = prefixes }
}

// NewFile creates a backend over path. The format follows the extension.
func NewFile(path string, opts ...Option) *File {
	f := &File{
		path:   path,
		format: graph.FormatFor(path),
		hidden: []string{"_"},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

func (f *File) read(ctx context.Context) (graph.Document, error) {
	if err := ctx.Err(); err != nil {
		return graph.Document{}, err
	}
	doc, err := graph.ReadFile(f.path)
	if err != nil {
		return graph.Document{}, fmt.Errorf("read %s: %w", f.path, err)
	}
	return doc, nil
}

// Document returns the whole unfiltered document.
func (f *File) Document(ctx context.Context) (graph.Document, error) {
	return f.read(ctx)
}

// Snapshot returns the document filtered by q.
func (f *File) Snapshot(ctx context.Context, q graph.Query) (graph.Document, error) {
	doc, err := f.read(ctx)
	if err != nil {
		return graph.Document{}, err
	}
	out := doc.Filter(q)
	f.log.Debug("snapshot served",
		zap.String("group", q.Group),
		zap.Int("limit", q.Limit),
		zap.Int("nodes", len(out.Nodes)),
		zap.Int("edges", len(out.Edges)))
	return out, nil
}

// Episode returns one episode by id.
func (f *File) Episode(ctx context.Context, id string) (graph.Episode, error) {
	doc, err := f.read(ctx)
	if err != nil {
		return graph.Episode{}, err
	}
	for _, ep := range doc.Episodes {
		if ep.ID == id {
			return ep, nil
		}
	}
	return graph.Episode{}, fmt.Errorf("episode %q: %w", id, ErrEpisodeNotFound)
}

// Groups returns the sorted visible group ids.
func (f *File) Groups(ctx context.Context) ([]string, error) {
	doc, err := f.read(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, g := range doc.Groups() {
		if !f.isHidden(g) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *File) isHidden(group string) bool {
	for _, p := range f.hidden {
		if p != "" && strings.HasPrefix(group, p) {
			return true
		}
	}
	return false
}

// DeleteGroup removes every node, edge and episode belonging to group and
// rewrites the file in place.
func (f *File) DeleteGroup(ctx context.Context, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read(ctx)
	if err != nil {
		return err
	}

	out := graph.Document{}
	gone := make(map[string]bool)
	for _, n := range doc.Nodes {
		if n.GroupID == group {
			gone[n.ID] = true
			continue
		}
		out.Nodes = append(out.Nodes, n)
	}
	if len(gone) == 0 {
		return fmt.Errorf("delete %q: %w", group, ErrGroupNotFound)
	}
	for _, e := range doc.Edges {
		if !gone[e.Source] && !gone[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	for _, ep := range doc.Episodes {
		if ep.GroupID != group {
			out.Episodes = append(out.Episodes, ep)
		}
	}

	data, err := graph.Encode(out, f.format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	if err := writeAtomic(f.path, data); err != nil {
		return err
	}
	f.log.Info("group deleted",
		zap.String("group", group),
		zap.Int("nodes", len(gone)),
		zap.Int("edges", len(doc.Edges)-len(out.Edges)))
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.Chmod(name, mode); err != nil {
		os.Remove(name)
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
