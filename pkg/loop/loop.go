// Package loop provides the single-owner scheduling primitives the engine
// runs on: a Poster that hands closures to the owning goroutine, an
// unbounded Queue implementing it for headless hosts, and a Ticker that
// posts periodic steps.
package loop

import (
	"context"
	"sync"
	"time"
)

// Poster schedules fn to run on the goroutine that owns the engine state.
// Implementations must not block and must not run fn inline.
type Poster func(fn func())

// Queue is an unbounded closure queue. Post may be called from any
// goroutine; Drain and Run must be called from the owning goroutine.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Post appends fn. It never blocks.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len reports the number of queued closures.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs every closure queued at the time of the call and returns how
// many ran. Closures posted while draining run on the next call.
func (q *Queue) Drain() int {
	q.mu.Lock()
	fns := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Wait blocks until something has been posted or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	return q.RunUntil(ctx, func() bool { return false })
}

// RunUntil drains the queue until done reports true or ctx is done.
func (q *Queue) RunUntil(ctx context.Context, done func() bool) error {
	for {
		q.Drain()
		if done() {
			return nil
		}
		if err := q.Wait(ctx); err != nil {
			return err
		}
	}
}

// Ticker posts a step closure at a fixed interval. Starting a new run or
// stopping invalidates every step already posted by the previous run.
type Ticker struct {
	post     Poster
	interval time.Duration

	mu    sync.Mutex
	stop  chan struct{}
	epoch uint64
}

// NewTicker creates a stopped ticker.
func NewTicker(post Poster, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Ticker{post: post, interval: interval}
}

// Interval returns the step interval.
func (t *Ticker) Interval() time.Duration { return t.interval }

// Start begins posting step, replacing any previous run.
func (t *Ticker) Start(step func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.epoch++
	stop := make(chan struct{})
	t.stop = stop
	go t.run(stop, t.epoch, step)
}

// Stop halts the current run. It is safe to call when stopped.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.epoch++
}

// Running reports whether a run is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *Ticker) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Ticker) live(epoch uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil && t.epoch == epoch
}

func (t *Ticker) run(stop <-chan struct{}, epoch uint64, step func()) {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			t.post(func() {
				if t.live(epoch) {
					step()
				}
			})
		}
	}
}
