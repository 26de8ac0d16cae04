package queue

import (
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"

	"github.com/hybridsched/dispatch/pkg/types"
)

// SharedIoQueue is the single pooled overflow queue for IO work that is
// not bound to a specific worker. It has no worker of its own: every IO
// worker races to steal from it via TryDequeue.
type SharedIoQueue struct {
	mu    sync.Mutex
	tasks deque.Deque[types.Task]
	stats Statistics

	terminated atomic.Bool
}

// NewSharedIoQueue creates the shared overflow queue
func NewSharedIoQueue() *SharedIoQueue {
	return &SharedIoQueue{}
}

// Enqueue appends a task to the pool
func (q *SharedIoQueue) Enqueue(task types.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.terminated.Load() {
		return types.ErrTerminated
	}

	q.tasks.PushBack(task)
	q.stats.PostedCount++
	return nil
}

// TryDequeue removes and returns the oldest pending task, or false when
// the pool is empty
func (q *SharedIoQueue) TryDequeue() (types.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.tasks.Len() == 0 {
		return nil, false
	}
	return q.tasks.PopFront(), true
}

// Size returns the number of pending tasks
func (q *SharedIoQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Len()
}

// Empty reports whether no tasks are pending
func (q *SharedIoQueue) Empty() bool {
	return q.Size() == 0
}

// Stats returns a snapshot of the queue's counters. Completions are
// counted by the IO queue that executed the task, not here.
func (q *SharedIoQueue) Stats() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := q.stats
	snapshot.NumElements = q.tasks.Len()
	return snapshot
}

// ResetStats zeroes the queue's own counters
func (q *SharedIoQueue) ResetStats() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stats.Reset()
}

// Terminate permanently stops the queue; idempotent
func (q *SharedIoQueue) Terminate() {
	q.terminated.CompareAndSwap(false, true)
}
