package queue

import (
	"context"

	"github.com/hybridsched/dispatch/pkg/types"
)

// Queue is the contract every queue owned by the dispatcher core
// supports. Placement, sizing, statistics and termination all go
// through this surface; the wait/wake mechanics behind it belong to
// the individual implementations.
type Queue interface {
	// Enqueue appends a task; fails with types.ErrTerminated after Terminate
	Enqueue(task types.Task) error

	// Size returns the number of pending tasks
	Size() int

	// Empty reports whether no tasks are pending
	Empty() bool

	// Stats returns a snapshot of the queue's counters
	Stats() Statistics

	// ResetStats zeroes the queue's own counters
	ResetStats()

	// Terminate permanently stops the queue; idempotent
	Terminate()
}

// Runner is implemented by queues that drain themselves on a dedicated
// worker goroutine
type Runner interface {
	// Run drains and executes tasks until termination or ctx cancellation
	Run(ctx context.Context)
}

var (
	_ Queue  = (*CoroQueue)(nil)
	_ Queue  = (*IoQueue)(nil)
	_ Queue  = (*SharedIoQueue)(nil)
	_ Runner = (*CoroQueue)(nil)
	_ Runner = (*IoQueue)(nil)
)
