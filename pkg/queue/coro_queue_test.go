package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridsched/dispatch/internal/affinity"
	"github.com/hybridsched/dispatch/internal/testutils"
	"github.com/hybridsched/dispatch/pkg/types"
)

func TestCoroQueueEnqueueSizeEmpty(t *testing.T) {
	q := NewCoroQueue(0, nil, nil)

	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Size())

	require.NoError(t, q.Enqueue(types.NewTask(nil)))
	require.NoError(t, q.Enqueue(types.NewTask(nil)))

	assert.False(t, q.Empty())
	assert.Equal(t, 2, q.Size())
}

func TestCoroQueueStatsSnapshot(t *testing.T) {
	q := NewCoroQueue(0, nil, nil)

	require.NoError(t, q.Enqueue(types.NewTask(nil)))
	stats := q.Stats()
	assert.Equal(t, int64(1), stats.PostedCount)
	assert.Equal(t, 1, stats.NumElements)

	// a snapshot is a value: later queue activity must not leak into it
	require.NoError(t, q.Enqueue(types.NewTask(nil)))
	assert.Equal(t, int64(1), stats.PostedCount)
	assert.Equal(t, int64(2), q.Stats().PostedCount)
}

func TestCoroQueueResetStats(t *testing.T) {
	q := NewCoroQueue(0, nil, nil)
	require.NoError(t, q.Enqueue(types.NewTask(nil)))

	q.ResetStats()
	stats := q.Stats()
	assert.Equal(t, int64(0), stats.PostedCount)
	// pending work is still pending, only the counters were cleared
	assert.Equal(t, 1, stats.NumElements)
	assert.Equal(t, 1, q.Size())
}

func TestCoroQueueEnqueueAfterTerminate(t *testing.T) {
	q := NewCoroQueue(0, nil, nil)
	q.Terminate()

	err := q.Enqueue(types.NewTask(nil))
	assert.ErrorIs(t, err, types.ErrTerminated)
	assert.Equal(t, 0, q.Size())
}

func TestCoroQueueTerminateIdempotent(t *testing.T) {
	q := NewCoroQueue(0, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Terminate()
		}()
	}
	wg.Wait()

	assert.ErrorIs(t, q.Enqueue(types.NewTask(nil)), types.ErrTerminated)
}

func TestCoroQueueRunExecutesInOrder(t *testing.T) {
	q := NewCoroQueue(0, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	var mu sync.Mutex
	var order []int
	executed := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, q.Enqueue(types.NewTask(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			executed <- struct{}{}
			return nil
		})))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-executed:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for task execution")
		}
	}

	mu.Lock()
	assert.Equal(t, []int{0, 1, 2}, order)
	mu.Unlock()

	assert.Eventually(t, func() bool {
		return q.Stats().CompletedCount == 3
	}, 2*time.Second, 10*time.Millisecond)

	q.Terminate()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after terminate")
	}
}

func TestCoroQueueRunStopsOnContextCancel(t *testing.T) {
	q := NewCoroQueue(0, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestCoroQueueRecoversFromPanic(t *testing.T) {
	var handlerMu sync.Mutex
	var handled []error
	handler := func(err error) error {
		handlerMu.Lock()
		handled = append(handled, err)
		handlerMu.Unlock()
		return nil
	}

	q := NewCoroQueue(0, nil, handler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	require.NoError(t, q.Enqueue(types.NewTaskWithID("panicky", func(ctx context.Context) error {
		panic("kaboom")
	})))
	require.NoError(t, q.Enqueue(types.NewTask(func(ctx context.Context) error {
		return errors.New("plain failure")
	})))

	assert.Eventually(t, func() bool {
		return q.Stats().ErrorCount == 2
	}, 2*time.Second, 10*time.Millisecond)

	handlerMu.Lock()
	defer handlerMu.Unlock()
	require.Len(t, handled, 2)

	var taskErr *types.TaskError
	require.True(t, errors.As(handled[0], &taskErr))
	assert.Equal(t, "panicky", taskErr.TaskID)
	assert.Contains(t, taskErr.Error(), "panic")
}

func TestCoroQueueLastTaskTime(t *testing.T) {
	mock := testutils.NewMockClock(t)
	q := NewCoroQueue(0, testutils.NewClockWrapper(mock), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	executed := make(chan struct{})
	require.NoError(t, q.Enqueue(types.NewTask(func(ctx context.Context) error {
		close(executed)
		return nil
	})))
	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not execute task")
	}

	assert.Eventually(t, func() bool {
		return q.LastTaskTime().Equal(mock.Now())
	}, 2*time.Second, 10*time.Millisecond)

	q.Terminate()
	<-done
}

func TestCoroQueuePinToCoreValidation(t *testing.T) {
	q := NewCoroQueue(0, nil, nil)

	assert.Error(t, q.PinToCore(-1))
	assert.Error(t, q.PinToCore(affinity.NumCPU()))
	assert.NoError(t, q.PinToCore(0))
}

func TestCoroQueueRunWithPinnedCore(t *testing.T) {
	q := NewCoroQueue(0, nil, nil)
	require.NoError(t, q.PinToCore(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	executed := make(chan struct{})
	require.NoError(t, q.Enqueue(types.NewTask(func(ctx context.Context) error {
		close(executed)
		return nil
	})))

	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("pinned worker did not execute task")
	}

	q.Terminate()
	<-done
}
