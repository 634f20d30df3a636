//go:build !linux

package affinity

import "runtime"

// Pin is a no-op on non-Linux platforms: sched_setaffinity has no portable
// equivalent, and the writer is only ever deployed on Linux hosts next to
// the shared-memory file. It still locks the OS thread so the ingest loop
// keeps a stable thread identity.
func Pin(core int) error {
	runtime.LockOSThread()
	return nil
}
