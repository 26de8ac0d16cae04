// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/hybridsched/dispatch/pkg/types"
)

// NewMockClock creates a mock clock for testing
func NewMockClock(t testing.TB) *quartz.Mock {
	return quartz.NewMock(t)
}

// ClockWrapper wraps quartz.Mock to implement our Clock interface
type ClockWrapper struct {
	*quartz.Mock
}

// NewClockWrapper creates a new ClockWrapper
func NewClockWrapper(mock *quartz.Mock) *ClockWrapper {
	return &ClockWrapper{Mock: mock}
}

// Now returns the current mock time
func (c *ClockWrapper) Now() time.Time {
	return c.Mock.Now()
}

// After returns a channel that delivers the current time after the duration
func (c *ClockWrapper) After(d time.Duration) <-chan time.Time {
	timer := c.Mock.NewTimer(d)
	return timer.C
}

// Since returns the time elapsed since t
func (c *ClockWrapper) Since(t time.Time) time.Duration {
	return c.Mock.Since(t)
}

// NewTimer creates a new Timer
func (c *ClockWrapper) NewTimer(d time.Duration) types.Timer {
	return &TimerWrapper{timer: c.Mock.NewTimer(d)}
}

// TimerWrapper wraps a quartz timer to implement our Timer interface
type TimerWrapper struct {
	timer *quartz.Timer
}

// C returns the timer channel
func (t *TimerWrapper) C() <-chan time.Time {
	return t.timer.C
}

// Stop stops the timer
func (t *TimerWrapper) Stop() bool {
	return t.timer.Stop()
}

// Reset resets the timer
func (t *TimerWrapper) Reset(d time.Duration) bool {
	return t.timer.Reset(d)
}

var _ types.Clock = (*ClockWrapper)(nil)
