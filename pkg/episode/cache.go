// Package episode is a lazy, memoised store of episode annotations keyed by
// id. Concurrent requests for one id share a single fetch; failures are
// logged and leave the id retryable.
package episode

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ha1tch/kgview/pkg/graph"
	"github.com/ha1tch/kgview/pkg/loop"
)

// ErrClosed is returned by Load after Close.
var ErrClosed = errors.New("episode cache closed")

// Fetcher retrieves one episode.
type Fetcher func(ctx context.Context, id string) (graph.Episode, error)

// Status is the load state of one id.
type Status int

const (
	NotRequested Status = iota
	Loading
	Loaded
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "not-requested"
	}
}

type entry struct {
	status  Status
	episode graph.Episode
}

// Cache is safe for concurrent use.
type Cache struct {
	fetch   Fetcher
	log     *zap.Logger
	timeout time.Duration
	post    loop.Poster
	onEvent func(id string, st Status)
	breaker *BreakerConfig

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu       sync.Mutex
	entries  map[string]*entry
	expanded string
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for fetch failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithTimeout bounds each fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// WithNotify posts fn through post whenever an id changes status.
func WithNotify(post loop.Poster, fn func(id string, st Status)) Option {
	return func(c *Cache) {
		c.post = post
		c.onEvent = fn
	}
}

// New creates a cache over fetch.
func New(fetch Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetch:   fetch,
		log:     zap.NewNop(),
		timeout: 30 * time.Second,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker != nil {
		c.fetch = guard(c.fetch, *c.breaker, c.log)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Status returns the load state of id.
func (c *Cache) Status(id string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.status
	}
	return NotRequested
}

// Get returns a loaded episode.
func (c *Cache) Get(id string) (graph.Episode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok && e.status == Loaded {
		return e.episode, true
	}
	return graph.Episode{}, false
}

// Request starts a background fetch for id unless it is already loading
// or loaded. It reports whether a fetch was started.
func (c *Cache) Request(id string) bool {
	if c.ctx.Err() != nil || !c.begin(id) {
		return false
	}
	go func() {
		if _, err := c.wait(c.ctx, id); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("episode fetch failed", zap.String("episode", id), zap.Error(err))
		}
	}()
	return true
}

// Prefetch requests every id and returns how many fetches were started.
func (c *Cache) Prefetch(ids []string) int {
	n := 0
	for _, id := range ids {
		if c.Request(id) {
			n++
		}
	}
	return n
}

// Load returns the episode for id, fetching it or joining an in-flight
// fetch as needed.
func (c *Cache) Load(ctx context.Context, id string) (graph.Episode, error) {
	if ep, ok := c.Get(id); ok {
		return ep, nil
	}
	if c.ctx.Err() != nil {
		return graph.Episode{}, ErrClosed
	}
	c.begin(id)
	return c.wait(ctx, id)
}

// Toggle flips the expanded episode. Expanding an id that is not loaded
// requests it; collapsing never fetches. It returns the new expanded state.
func (c *Cache) Toggle(id string) bool {
	c.mu.Lock()
	if c.expanded == id {
		c.expanded = ""
		c.mu.Unlock()
		return false
	}
	c.expanded = id
	c.mu.Unlock()
	c.Request(id)
	return true
}

// Expanded returns the expanded episode id.
func (c *Cache) Expanded() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded, c.expanded != ""
}

// Close cancels in-flight fetches.
func (c *Cache) Close() {
	c.cancel()
}

// begin moves id from NotRequested to Loading.
func (c *Cache) begin(id string) bool {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok && e.status != NotRequested {
		c.mu.Unlock()
		return false
	}
	c.entries[id] = &entry{status: Loading}
	c.mu.Unlock()
	c.changed(id, Loading)
	return true
}

func (c *Cache) wait(ctx context.Context, id string) (graph.Episode, error) {
	ch := c.group.DoChan(id, func() (any, error) {
		return c.load(id)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return graph.Episode{}, r.Err
		}
		return r.Val.(graph.Episode), nil
	case <-ctx.Done():
		return graph.Episode{}, ctx.Err()
	}
}

// load runs inside the singleflight group. The fetch is detached from any
// single waiter's context so one cancelled caller cannot fail the others.
func (c *Cache) load(id string) (graph.Episode, error) {
	if ep, ok := c.Get(id); ok {
		return ep, nil
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	ep, err := c.fetch(ctx, id)

	c.mu.Lock()
	if err != nil {
		delete(c.entries, id)
	} else {
		c.entries[id] = &entry{status: Loaded, episode: ep}
	}
	c.mu.Unlock()

	if err != nil {
		c.changed(id, NotRequested)
		return graph.Episode{}, err
	}
	c.changed(id, Loaded)
	return ep, nil
}

func (c *Cache) changed(id string, st Status) {
	if c.post == nil || c.onEvent == nil {
		return
	}
	fn := c.onEvent
	c.post(func() { fn(id, st) })
}
