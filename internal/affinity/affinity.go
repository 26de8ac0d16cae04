// Package affinity provides thread-to-core pinning for queue workers.
//
// Pinning binds the calling goroutine's OS thread to a single hardware
// execution unit for cache locality. On platforms without an affinity
// syscall the operations degrade to locking the goroutine to its thread.
package affinity

import (
	"fmt"
	"runtime"
)

// NumCPU returns the number of available hardware execution units
func NumCPU() int {
	return runtime.NumCPU()
}

// Pin locks the calling goroutine to its OS thread and binds that thread
// to the given core. Must be called from the goroutine that will run on
// the core; pair with Unpin when the goroutine exits.
func Pin(core int) error {
	if core < 0 || core >= NumCPU() {
		return fmt.Errorf("core index %d out of range [0, %d)", core, NumCPU())
	}
	runtime.LockOSThread()
	if err := platformPin(core); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("pin to core %d: %w", core, err)
	}
	return nil
}

// Unpin clears the thread's core binding and releases the goroutine
// from its OS thread
func Unpin() {
	platformUnpin()
	runtime.UnlockOSThread()
}
