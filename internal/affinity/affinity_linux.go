//go:build linux

package affinity

import (
	"golang.org/x/sys/unix"
)

// platformPin binds the current OS thread to the specified core
func platformPin(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}

// platformUnpin restores the thread's affinity to all cores
func platformUnpin() {
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < NumCPU(); i++ {
		set.Set(i)
	}
	// best effort; the thread is released back to the scheduler either way
	_ = unix.SchedSetaffinity(0, &set)
}
