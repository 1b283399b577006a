//go:build linux

package probe

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/anas-shakeel/perflab/internal/logging"
)

// Pin locks the calling goroutine to its OS thread and restricts that thread
// to logical CPU n. The returned function restores the previous affinity and
// unlocks the thread. A negative n only locks the thread.
func Pin(n int) (unpin func(), err error) {
	runtime.LockOSThread()
	if n < 0 {
		return runtime.UnlockOSThread, nil
	}

	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("read cpu affinity: %w", err)
	}

	var set unix.CPUSet
	set.Set(n)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("pin to cpu %d: %w", n, err)
	}

	return func() {
		if err := unix.SchedSetaffinity(0, &prev); err != nil {
			logging.Logger().Warn("restore cpu affinity failed", "error", err)
		}
		runtime.UnlockOSThread()
	}, nil
}
