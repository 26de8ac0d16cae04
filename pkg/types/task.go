package types

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// taskIDCounter is the global task ID counter
var taskIDCounter int64

// Task defines a unit of work routed by the dispatcher. A task carries a
// mutable queue id: the dispatcher rewrites it when it resolves AnyQueue
// to a concrete coroutine queue, so after Post returns the caller can
// observe where the task landed.
//
// Tasks are shared by reference: the caller and the queue may both hold
// the same Task while it is pending. A nil Task passed to the posting
// operations is a deliberate no-op, not an error.
type Task interface {
	// Execute executes the task
	Execute(ctx context.Context) error

	// ID returns the task ID (for tracking and error reporting)
	ID() string

	// QueueID returns the task's requested or resolved queue id
	QueueID() QueueID

	// SetQueueID overwrites the task's queue id
	SetQueueID(id QueueID)
}

// ErrorHandler defines an error handling function invoked by queue
// workers when a task execution fails
type ErrorHandler func(error) error

// BasicTask is the basic implementation of the Task interface
type BasicTask struct {
	id string
	fn func(ctx context.Context) error

	mu      sync.Mutex
	queueID QueueID
}

// NewTask creates a task that lets the dispatcher pick its queue
func NewTask(fn func(ctx context.Context) error) *BasicTask {
	return NewTaskOnQueue(fn, AnyQueue())
}

// NewTaskOnQueue creates a task bound to the given queue id
func NewTaskOnQueue(fn func(ctx context.Context) error, id QueueID) *BasicTask {
	n := atomic.AddInt64(&taskIDCounter, 1)
	return &BasicTask{
		id:      fmt.Sprintf("task-%d", n),
		fn:      fn,
		queueID: id,
	}
}

// NewTaskWithID creates a task with a custom ID
func NewTaskWithID(id string, fn func(ctx context.Context) error) *BasicTask {
	return &BasicTask{
		id:      id,
		fn:      fn,
		queueID: AnyQueue(),
	}
}

// Execute executes the task
func (t *BasicTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return fmt.Errorf("task %s has no execution function", t.id)
	}
	return t.fn(ctx)
}

// ID returns the task ID
func (t *BasicTask) ID() string {
	return t.id
}

// QueueID returns the task's current queue id
func (t *BasicTask) QueueID() QueueID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queueID
}

// SetQueueID overwrites the task's queue id
func (t *BasicTask) SetQueueID(id QueueID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queueID = id
}
