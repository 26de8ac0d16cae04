package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"

	"github.com/hybridsched/dispatch/pkg/types"
)

// IoQueue holds blocking-IO tasks for a single worker goroutine. Each
// instance keeps a reference to the one shared overflow queue: whenever
// its own queue is drained the worker steals from the shared pool before
// going back to sleep.
type IoQueue struct {
	id     int
	shared *SharedIoQueue

	mu    sync.Mutex
	cond  *sync.Cond
	tasks deque.Deque[types.Task]
	stats Statistics

	// isEmpty is the worker's wait predicate: true while the worker
	// believes neither its own queue nor the shared pool has work.
	// SignalEmptyCondition(false) clears it so the worker re-checks.
	isEmpty bool

	terminated atomic.Bool

	lastTaskTime int64 // Unix nanosecond timestamp, atomic

	clock        types.Clock
	errorHandler types.ErrorHandler
}

// NewIoQueue creates an IO queue with the given index, backed by the
// shared overflow queue
func NewIoQueue(id int, shared *SharedIoQueue, clock types.Clock, handler types.ErrorHandler) *IoQueue {
	if clock == nil {
		clock = types.NewRealClock()
	}
	q := &IoQueue{
		id:           id,
		shared:       shared,
		isEmpty:      true,
		clock:        clock,
		errorHandler: handler,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// ID returns the queue's index
func (q *IoQueue) ID() int {
	return q.id
}

// Enqueue appends a task and wakes the worker
func (q *IoQueue) Enqueue(task types.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.terminated.Load() {
		return types.ErrTerminated
	}

	q.tasks.PushBack(task)
	q.stats.PostedCount++
	q.isEmpty = false
	q.cond.Signal()
	return nil
}

// SignalEmptyCondition updates the worker's wait predicate. Signalling
// false wakes an idle worker so it re-checks the shared queue.
func (q *IoQueue) SignalEmptyCondition(isEmpty bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.isEmpty = isEmpty
	if !isEmpty {
		q.cond.Broadcast()
	}
}

// Size returns the number of tasks pending on this queue (the shared
// pool is counted separately)
func (q *IoQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Len()
}

// Empty reports whether no tasks are pending on this queue
func (q *IoQueue) Empty() bool {
	return q.Size() == 0
}

// Stats returns a snapshot of the queue's counters
func (q *IoQueue) Stats() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := q.stats
	snapshot.NumElements = q.tasks.Len()
	return snapshot
}

// ResetStats zeroes the queue's own counters
func (q *IoQueue) ResetStats() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stats.Reset()
}

// LastTaskTime returns when the worker last started a task
func (q *IoQueue) LastTaskTime() time.Time {
	return time.Unix(0, atomic.LoadInt64(&q.lastTaskTime))
}

// Terminate permanently stops the queue; idempotent
func (q *IoQueue) Terminate() {
	if !q.terminated.CompareAndSwap(false, true) {
		return
	}
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Run is the worker loop: it drains its own queue first, then steals
// from the shared pool, until the queue is terminated or ctx is
// cancelled
func (q *IoQueue) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	for {
		q.mu.Lock()
		for q.tasks.Len() == 0 && q.isEmpty && !q.terminated.Load() && ctx.Err() == nil {
			q.cond.Wait()
		}
		if q.terminated.Load() || ctx.Err() != nil {
			q.mu.Unlock()
			return
		}

		var task types.Task
		fromShared := false
		if q.tasks.Len() > 0 {
			task = q.tasks.PopFront()
		} else if shared, ok := q.shared.TryDequeue(); ok {
			task = shared
			fromShared = true
		} else {
			// both queues drained; sleep until the next signal
			q.isEmpty = true
			q.mu.Unlock()
			continue
		}
		q.mu.Unlock()

		q.runTask(ctx, task, fromShared)
	}
}

// runTask executes one task and updates the queue's counters
func (q *IoQueue) runTask(ctx context.Context, task types.Task, fromShared bool) {
	atomic.StoreInt64(&q.lastTaskTime, q.clock.Now().UnixNano())

	err := executeTask(ctx, task)

	q.mu.Lock()
	if err != nil {
		q.stats.ErrorCount++
	} else {
		q.stats.CompletedCount++
		if fromShared {
			q.stats.SharedQueueCompletedCount++
		}
	}
	q.mu.Unlock()

	if err != nil && q.errorHandler != nil {
		_ = q.errorHandler(err)
	}
}
