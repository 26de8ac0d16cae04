// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrTerminated indicates the dispatcher (or a queue) has been terminated
	ErrTerminated = errors.New("dispatcher is terminated")

	// ErrAlreadyStarted indicates the dispatcher workers are already running
	ErrAlreadyStarted = errors.New("dispatcher is already started")

	// ErrQueueIDNotAllowed indicates a concrete queue id was supplied together
	// with QueueTypeAll on an aggregate query
	ErrQueueIDNotAllowed = errors.New("queue id cannot be specified when aggregating all queue types")
)

// ConfigError represents an invalid dispatcher configuration detected at
// construction time. The dispatcher is not usable after one is returned.
type ConfigError struct {
	// Reason describes what was wrong with the configuration
	Reason string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid dispatcher configuration: %s", e.Reason)
}

// NewConfigError creates a new ConfigError
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError checks if an error is a ConfigError
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// QueueRangeError represents a concrete queue id outside the valid index
// range for a queue family. The attempted operation had no effect.
type QueueRangeError struct {
	// Type is the queue family the id was checked against
	Type QueueType

	// ID is the offending queue id
	ID QueueID

	// Count is the number of queues in the family
	Count int
}

// Error implements the error interface
func (e *QueueRangeError) Error() string {
	return fmt.Sprintf("queue id %s out of range for %s queues (count %d)", e.ID, e.Type, e.Count)
}

// NewQueueRangeError creates a new QueueRangeError
func NewQueueRangeError(qt QueueType, id QueueID, count int) *QueueRangeError {
	return &QueueRangeError{Type: qt, ID: id, Count: count}
}

// IsQueueRangeError checks if an error is a QueueRangeError
func IsQueueRangeError(err error) bool {
	var rangeErr *QueueRangeError
	return errors.As(err, &rangeErr)
}

// TaskError represents an error raised while executing a task, carrying
// the id of the task that failed
type TaskError struct {
	// TaskID identifies the failed task
	TaskID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Cause)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// NewTaskError creates a new TaskError
func NewTaskError(taskID string, cause error) *TaskError {
	return &TaskError{TaskID: taskID, Cause: cause}
}
