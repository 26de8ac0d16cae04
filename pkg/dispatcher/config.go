package dispatcher

import (
	"github.com/hybridsched/dispatch/internal/affinity"
	"github.com/hybridsched/dispatch/pkg/types"
)

// Config defines configuration for the dispatcher core
type Config struct {
	// NumCoroutineThreads is the number of coroutine queues (one worker
	// each); -1 means use the number of available hardware execution units
	NumCoroutineThreads int

	// NumIoThreads is the number of blocking-IO queues (one worker each)
	NumIoThreads int

	// PinCoroutineThreadsToCores binds coroutine worker i to core i
	PinCoroutineThreadsToCores bool

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// ErrorHandler is invoked by workers when a task execution fails
	ErrorHandler types.ErrorHandler
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		NumCoroutineThreads:        -1,
		NumIoThreads:               5,
		PinCoroutineThreadsToCores: false,
		Clock:                      types.NewRealClock(),
	}
}

// validate resolves the coroutine thread count and checks feasibility.
// Returns the resolved count or a ConfigError.
func (c *Config) validate() (int, error) {
	numCoro := c.NumCoroutineThreads
	if numCoro == -1 {
		numCoro = affinity.NumCPU()
	}
	if numCoro < 1 {
		return 0, types.NewConfigError("number of coroutine threads must be positive, got %d", c.NumCoroutineThreads)
	}
	if c.NumIoThreads < 0 {
		return 0, types.NewConfigError("number of io threads must be non-negative, got %d", c.NumIoThreads)
	}
	if c.PinCoroutineThreadsToCores && numCoro > affinity.NumCPU() {
		return 0, types.NewConfigError("number of queues (%d) exceeds cores (%d)", numCoro, affinity.NumCPU())
	}
	return numCoro, nil
}
