// Package queue provides the coroutine, IO and shared-IO queues driven
// by the dispatcher core
package queue

// Statistics is an aggregable bag of per-queue counters. It is a value
// type: aggregation over several queues always merges into a fresh value,
// so a snapshot handed to a caller is never a live view into queue state.
type Statistics struct {
	// PostedCount is the number of tasks enqueued on the queue
	PostedCount int64

	// CompletedCount is the number of tasks executed to completion
	CompletedCount int64

	// ErrorCount is the number of tasks that returned an error or panicked
	ErrorCount int64

	// SharedQueueCompletedCount is the number of tasks an IO worker stole
	// from the shared queue and completed
	SharedQueueCompletedCount int64

	// NumElements is the number of tasks pending at snapshot time
	NumElements int
}

// Add returns the combination of s and other. Addition is associative
// and commutative, so aggregation order never changes the result.
func (s Statistics) Add(other Statistics) Statistics {
	return Statistics{
		PostedCount:               s.PostedCount + other.PostedCount,
		CompletedCount:            s.CompletedCount + other.CompletedCount,
		ErrorCount:                s.ErrorCount + other.ErrorCount,
		SharedQueueCompletedCount: s.SharedQueueCompletedCount + other.SharedQueueCompletedCount,
		NumElements:               s.NumElements + other.NumElements,
	}
}

// Merge accumulates other into s in place
func (s *Statistics) Merge(other Statistics) {
	*s = s.Add(other)
}

// Reset zeroes all counters
func (s *Statistics) Reset() {
	*s = Statistics{}
}
