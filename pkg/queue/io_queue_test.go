package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridsched/dispatch/pkg/types"
)

func TestSharedIoQueueFIFO(t *testing.T) {
	q := NewSharedIoQueue()

	first := types.NewTask(nil)
	second := types.NewTask(nil)
	require.NoError(t, q.Enqueue(first))
	require.NoError(t, q.Enqueue(second))
	assert.Equal(t, 2, q.Size())

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, first.ID(), got.ID())

	got, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, second.ID(), got.ID())

	_, ok = q.TryDequeue()
	assert.False(t, ok)
	assert.True(t, q.Empty())
}

func TestSharedIoQueueTerminate(t *testing.T) {
	q := NewSharedIoQueue()
	q.Terminate()
	q.Terminate() // idempotent

	assert.ErrorIs(t, q.Enqueue(types.NewTask(nil)), types.ErrTerminated)
}

func TestSharedIoQueueStats(t *testing.T) {
	q := NewSharedIoQueue()
	require.NoError(t, q.Enqueue(types.NewTask(nil)))

	stats := q.Stats()
	assert.Equal(t, int64(1), stats.PostedCount)
	assert.Equal(t, 1, stats.NumElements)

	q.ResetStats()
	assert.Equal(t, int64(0), q.Stats().PostedCount)
}

func TestIoQueueExecutesOwnTasks(t *testing.T) {
	shared := NewSharedIoQueue()
	q := NewIoQueue(0, shared, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	executed := make(chan struct{})
	require.NoError(t, q.Enqueue(types.NewTaskOnQueue(func(ctx context.Context) error {
		close(executed)
		return nil
	}, types.QueueAt(0))))

	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not execute own task")
	}

	assert.Eventually(t, func() bool {
		stats := q.Stats()
		return stats.CompletedCount == 1 && stats.SharedQueueCompletedCount == 0
	}, 2*time.Second, 10*time.Millisecond)

	q.Terminate()
	<-done
}

func TestIoQueueStealsFromSharedQueue(t *testing.T) {
	shared := NewSharedIoQueue()
	q := NewIoQueue(0, shared, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	executed := make(chan struct{})
	require.NoError(t, shared.Enqueue(types.NewTask(func(ctx context.Context) error {
		close(executed)
		return nil
	})))

	// the worker sleeps until someone clears its empty condition
	q.SignalEmptyCondition(false)

	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not steal from shared queue")
	}

	assert.Eventually(t, func() bool {
		stats := q.Stats()
		return stats.CompletedCount == 1 && stats.SharedQueueCompletedCount == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, shared.Empty())

	q.Terminate()
	<-done
}

func TestIoQueueDrainsOwnBeforeShared(t *testing.T) {
	shared := NewSharedIoQueue()
	q := NewIoQueue(0, shared, nil, nil)

	order := make(chan string, 2)
	require.NoError(t, shared.Enqueue(types.NewTask(func(ctx context.Context) error {
		order <- "shared"
		return nil
	})))
	require.NoError(t, q.Enqueue(types.NewTaskOnQueue(func(ctx context.Context) error {
		order <- "own"
		return nil
	}, types.QueueAt(0))))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	first := <-order
	second := <-order
	assert.Equal(t, "own", first)
	assert.Equal(t, "shared", second)

	q.Terminate()
	<-done
}

func TestIoQueueSignalEmptyConditionWhileIdle(t *testing.T) {
	shared := NewSharedIoQueue()
	q := NewIoQueue(0, shared, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	// let the worker go idle, then hand work through the shared pool
	time.Sleep(50 * time.Millisecond)

	executed := make(chan struct{})
	require.NoError(t, shared.Enqueue(types.NewTask(func(ctx context.Context) error {
		close(executed)
		return nil
	})))
	q.SignalEmptyCondition(false)

	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("idle worker did not wake on signal")
	}

	q.Terminate()
	<-done
}

func TestIoQueueEnqueueAfterTerminate(t *testing.T) {
	q := NewIoQueue(0, NewSharedIoQueue(), nil, nil)
	q.Terminate()
	q.Terminate()

	assert.ErrorIs(t, q.Enqueue(types.NewTask(nil)), types.ErrTerminated)
}
