//go:build !linux

package affinity

// platformPin is a no-op on platforms without a thread-affinity syscall;
// the goroutine is still locked to its OS thread by Pin.
func platformPin(core int) error {
	return nil
}

// platformUnpin is a no-op on platforms without a thread-affinity syscall
func platformUnpin() {
}
