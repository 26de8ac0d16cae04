// Package types defines core interfaces and types for the dispatch library
package types

import "fmt"

// queue id sentinels, kept out of the public API surface
const (
	anyQueue = -2
	allQueue = -1
)

// QueueID identifies the destination of a task. It is one of three
// variants: AnyQueue (let the dispatcher pick a queue), AllQueues
// (aggregate over every queue of a family, read-only operations only),
// or a concrete queue index obtained via QueueAt.
type QueueID struct {
	id int
}

// AnyQueue returns the id that lets the dispatcher choose queue placement
func AnyQueue() QueueID {
	return QueueID{id: anyQueue}
}

// AllQueues returns the id that aggregates over every queue of a family
func AllQueues() QueueID {
	return QueueID{id: allQueue}
}

// QueueAt returns the id of the concrete queue at index n.
// Negative indices are normalized to AnyQueue semantics only through
// the named constructors; QueueAt with n < 0 yields an id that fails
// range validation everywhere it is used.
func QueueAt(n int) QueueID {
	return QueueID{id: n}
}

// IsAny reports whether the dispatcher should pick the queue
func (q QueueID) IsAny() bool {
	return q.id == anyQueue
}

// IsAll reports whether the id aggregates over a queue family
func (q QueueID) IsAll() bool {
	return q.id == allQueue
}

// Index returns the concrete queue index and true, or 0 and false when
// the id is one of the Any/All variants (or malformed)
func (q QueueID) Index() (int, bool) {
	if q.id < 0 {
		return 0, false
	}
	return q.id, true
}

// String returns the string representation of QueueID
func (q QueueID) String() string {
	switch q.id {
	case anyQueue:
		return "any"
	case allQueue:
		return "all"
	default:
		return fmt.Sprintf("%d", q.id)
	}
}

// QueueType selects a queue family
type QueueType int

const (
	// QueueTypeCoro selects the cooperative-task queues
	QueueTypeCoro QueueType = iota
	// QueueTypeIO selects the blocking-IO queues
	QueueTypeIO
	// QueueTypeAll selects both families combined (read-only operations)
	QueueTypeAll
)

// String returns the string representation of QueueType
func (qt QueueType) String() string {
	switch qt {
	case QueueTypeCoro:
		return "coro"
	case QueueTypeIO:
		return "io"
	case QueueTypeAll:
		return "all"
	default:
		return "unknown"
	}
}
