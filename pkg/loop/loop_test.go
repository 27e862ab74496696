package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsInOrder(t *testing.T) {
	q := NewQueue()
	var got []int
	for i := 0; i < 3; i++ {
		q.Post(func() { got = append(got, i) })
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, q.Drain())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Zero(t, q.Drain())
}

func TestQueueDefersNestedPosts(t *testing.T) {
	q := NewQueue()
	ran := false
	q.Post(func() { q.Post(func() { ran = true }) })
	q.Drain()
	assert.False(t, ran)
	q.Drain()
	assert.True(t, ran)
}

func TestQueueConcurrentPost(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	count := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Post(func() { count++ })
		}()
	}
	wg.Wait()
	q.Drain()
	assert.Equal(t, 50, count)
}

func TestRunUntil(t *testing.T) {
	q := NewQueue()
	done := false
	go func() {
		time.Sleep(5 * time.Millisecond)
		q.Post(func() { done = true })
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.RunUntil(ctx, func() bool { return done }))
}

func TestRunStopsOnCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Run(ctx), context.Canceled)
}

func TestTickerPostsUntilStopped(t *testing.T) {
	q := NewQueue()
	tk := NewTicker(q.Post, time.Millisecond)
	assert.False(t, tk.Running())

	steps := 0
	tk.Start(func() { steps++ })
	assert.True(t, tk.Running())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.RunUntil(ctx, func() bool { return steps >= 3 }))

	tk.Stop()
	assert.False(t, tk.Running())
	before := steps
	time.Sleep(5 * time.Millisecond)
	q.Drain()
	assert.Equal(t, before, steps)
}

func TestTickerRestartDropsStaleSteps(t *testing.T) {
	q := NewQueue()
	tk := NewTicker(q.Post, time.Millisecond)
	old, fresh := 0, 0
	tk.Start(func() { old++ })
	time.Sleep(5 * time.Millisecond)

	// Steps from the first run are already queued; they must not run.
	tk.Start(func() { fresh++ })
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.RunUntil(ctx, func() bool { return fresh >= 2 }))
	tk.Stop()
	assert.Zero(t, old)
}
