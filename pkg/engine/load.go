package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/graph"
	"github.com/ha1tch/kgview/pkg/render"
	"github.com/ha1tch/kgview/pkg/selection"
)

// Load requests a new snapshot and returns its token. The running
// simulation stops at once; the previous snapshot stays on screen until
// the result arrives. Only the most recent request is ever installed.
func (e *Engine) Load(q graph.Query) uint64 {
	if e.closed {
		return e.token
	}
	e.token++
	token := e.token
	e.query = q
	e.ticker.Stop()
	if e.loadCancel != nil {
		e.loadCancel()
	}
	ctx, cancel := context.WithTimeout(e.ctx, e.opts.FetchTimeout)
	e.loadCancel = cancel
	e.status.Loading = true
	e.log.Debug("snapshot requested",
		zap.Uint64("token", token),
		zap.String("group", q.Group),
		zap.Int("limit", q.Limit))

	go func() {
		defer cancel()
		doc, err := e.backend.Snapshot(ctx, q)
		e.post(func() { e.receive(token, doc, err) })
	}()
	e.changed()
	return token
}

// Reload repeats the latest query.
func (e *Engine) Reload() uint64 { return e.Load(e.query) }

func (e *Engine) receive(token uint64, doc graph.Document, err error) {
	if e.closed {
		return
	}
	if token != e.token {
		e.log.Debug("stale snapshot discarded",
			zap.Uint64("token", token),
			zap.Uint64("latest", e.token))
		return
	}
	e.status.Loading = false
	e.loadCancel = nil
	if err != nil {
		e.status.LoadErr = fmt.Errorf("load snapshot: %w", err)
		e.log.Warn("snapshot load failed", zap.Uint64("token", token), zap.Error(err))
		e.changed()
		return
	}
	e.Install(doc)
}

// LoadSync fetches and installs a snapshot on the calling goroutine. It is
// meant for headless use where no loop is running.
func (e *Engine) LoadSync(ctx context.Context, q graph.Query) error {
	e.token++
	e.query = q
	doc, err := e.backend.Snapshot(ctx, q)
	if err != nil {
		e.status.LoadErr = fmt.Errorf("load snapshot: %w", err)
		return e.status.LoadErr
	}
	e.Install(doc)
	e.ticker.Stop()
	return nil
}

// Install replaces the snapshot wholesale and restarts the layout. The
// selection is cleared and auto-fit is re-armed.
func (e *Engine) Install(doc graph.Document) {
	snap := graph.NewSnapshot(doc)
	for _, d := range snap.Dropped {
		e.log.Debug("edge dropped",
			zap.String("source", d.Source),
			zap.String("target", d.Target),
			zap.String("type", d.Type))
	}

	colors, err := render.NewColorMap(snap.Types(), e.opts.Palette)
	if err != nil {
		colors, _ = render.NewColorMap(snap.Types(), nil)
	}

	e.snap = snap
	e.proj.SetColors(colors)
	e.sel = selection.State{}
	e.status.LoadErr = nil
	e.anim = nil
	e.fit.Reset()
	e.view = e.homeView()
	e.sim.Load(snap, geometry.Point{})
	if e.sim.Settled() {
		e.settled()
	}

	e.log.Info("snapshot installed",
		zap.Uint64("token", e.token),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
		zap.Int("dropped", len(snap.Dropped)))

	e.startTicker()
	e.changed()
}

// RefreshGroups fetches the group filter list.
func (e *Engine) RefreshGroups() {
	if e.closed {
		return
	}
	ctx, cancel := context.WithTimeout(e.ctx, e.opts.FetchTimeout)
	go func() {
		defer cancel()
		groups, err := e.backend.Groups(ctx)
		e.post(func() {
			if e.closed {
				return
			}
			if err != nil {
				e.log.Warn("group list failed", zap.Error(err))
				return
			}
			e.groups = groups
			e.changed()
		})
	}()
}

// DeleteGroup asks the backend to delete group. On success the group
// leaves the filter list and the view reloads; on failure the list is
// unchanged and Status().DeleteErr is set.
func (e *Engine) DeleteGroup(group string) {
	if e.closed || group == "" {
		return
	}
	e.status.Deleting = group
	e.status.DeleteErr = nil
	ctx, cancel := context.WithTimeout(e.ctx, e.opts.FetchTimeout)
	go func() {
		defer cancel()
		err := e.backend.DeleteGroup(ctx, group)
		e.post(func() { e.deleted(group, err) })
	}()
	e.changed()
}

func (e *Engine) deleted(group string, err error) {
	if e.closed {
		return
	}
	e.status.Deleting = ""
	if err != nil {
		e.status.DeleteErr = fmt.Errorf("delete group %q: %w", group, err)
		e.log.Warn("group delete failed", zap.String("group", group), zap.Error(err))
		e.changed()
		return
	}
	e.groups = slices.DeleteFunc(e.groups, func(g string) bool { return g == group })
	e.log.Info("group deleted", zap.String("group", group))

	q := e.query
	if q.Group == group {
		q.Group = ""
	}
	e.Load(q)
}

// Err returns the most recent load or delete error.
func (e *Engine) Err() error {
	return errors.Join(e.status.LoadErr, e.status.DeleteErr)
}
