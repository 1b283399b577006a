//go:build !linux

package probe

import "runtime"

// Pin locks the calling goroutine to its OS thread. Thread affinity is only
// set on Linux; elsewhere the scheduler may still migrate the thread.
func Pin(n int) (unpin func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}
