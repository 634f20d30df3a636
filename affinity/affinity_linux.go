//go:build linux

// Package affinity pins the calling OS thread to a single CPU core. The
// ingest loop must call Pin before it begins servicing connections and
// must not release the OS thread lock afterward.
package affinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to its current OS thread and restricts
// that thread's CPU affinity mask to the single core given by core.
func Pin(core int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(core)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity core=%d: %w", core, err)
	}
	return nil
}
