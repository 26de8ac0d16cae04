package queue

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"

	"github.com/hybridsched/dispatch/internal/affinity"
	"github.com/hybridsched/dispatch/pkg/types"
)

// CoroQueue holds pending cooperative tasks for a single worker
// goroutine. Enqueue order is preserved relative to the worker's own
// draining order; there is no ordering guarantee across queues.
type CoroQueue struct {
	id int

	mu    sync.Mutex
	cond  *sync.Cond
	tasks deque.Deque[types.Task]
	stats Statistics

	terminated atomic.Bool
	pinnedCore int

	lastTaskTime int64 // Unix nanosecond timestamp, atomic

	clock        types.Clock
	errorHandler types.ErrorHandler
}

// NewCoroQueue creates a coroutine queue with the given index
func NewCoroQueue(id int, clock types.Clock, handler types.ErrorHandler) *CoroQueue {
	if clock == nil {
		clock = types.NewRealClock()
	}
	q := &CoroQueue{
		id:           id,
		pinnedCore:   -1,
		clock:        clock,
		errorHandler: handler,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// ID returns the queue's index
func (q *CoroQueue) ID() int {
	return q.id
}

// Enqueue appends a task and wakes the worker
func (q *CoroQueue) Enqueue(task types.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.terminated.Load() {
		return types.ErrTerminated
	}

	q.tasks.PushBack(task)
	q.stats.PostedCount++
	q.cond.Signal()
	return nil
}

// Size returns the number of pending tasks
func (q *CoroQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Len()
}

// Empty reports whether no tasks are pending
func (q *CoroQueue) Empty() bool {
	return q.Size() == 0
}

// Stats returns a snapshot of the queue's counters
func (q *CoroQueue) Stats() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := q.stats
	snapshot.NumElements = q.tasks.Len()
	return snapshot
}

// ResetStats zeroes the queue's own counters
func (q *CoroQueue) ResetStats() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stats.Reset()
}

// LastTaskTime returns when the worker last started a task
func (q *CoroQueue) LastTaskTime() time.Time {
	return time.Unix(0, atomic.LoadInt64(&q.lastTaskTime))
}

// PinToCore requests that the queue's worker be bound to the given
// hardware execution unit. Must be called before the worker starts;
// fails if the core index is outside the available range.
func (q *CoroQueue) PinToCore(core int) error {
	if core < 0 || core >= affinity.NumCPU() {
		return fmt.Errorf("core index %d out of range [0, %d)", core, affinity.NumCPU())
	}
	q.pinnedCore = core
	return nil
}

// Terminate permanently stops the queue. Idempotent: only the first
// call wakes the worker, later calls return immediately.
func (q *CoroQueue) Terminate() {
	if !q.terminated.CompareAndSwap(false, true) {
		return
	}
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Run is the worker loop: it drains and executes tasks until the queue
// is terminated or ctx is cancelled. Run pins the goroutine's thread to
// the requested core first, when one was set via PinToCore.
func (q *CoroQueue) Run(ctx context.Context) {
	if q.pinnedCore >= 0 {
		if err := affinity.Pin(q.pinnedCore); err == nil {
			defer affinity.Unpin()
		}
	}

	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	for {
		q.mu.Lock()
		for q.tasks.Len() == 0 && !q.terminated.Load() && ctx.Err() == nil {
			q.cond.Wait()
		}
		if q.terminated.Load() || ctx.Err() != nil {
			q.mu.Unlock()
			return
		}
		task := q.tasks.PopFront()
		q.mu.Unlock()

		q.runTask(ctx, task)
	}
}

// runTask executes one task and updates the queue's counters
func (q *CoroQueue) runTask(ctx context.Context, task types.Task) {
	atomic.StoreInt64(&q.lastTaskTime, q.clock.Now().UnixNano())

	err := executeTask(ctx, task)

	q.mu.Lock()
	if err != nil {
		q.stats.ErrorCount++
	} else {
		q.stats.CompletedCount++
	}
	q.mu.Unlock()

	if err != nil && q.errorHandler != nil {
		// the handler's own error is not propagated further
		_ = q.errorHandler(err)
	}
}

// executeTask executes a task with panic recovery support
func executeTask(ctx context.Context, task types.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			switch v := r.(type) {
			case error:
				err = types.NewTaskError(task.ID(), fmt.Errorf("panic: %w", v))
			default:
				err = types.NewTaskError(task.ID(), fmt.Errorf("panic: %v\n%s", v, buf[:n]))
			}
		}
	}()

	return task.Execute(ctx)
}
