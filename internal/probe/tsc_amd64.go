//go:build amd64

package probe

import "github.com/klauspost/cpuid"

// rdtscp reads the time stamp counter after all prior instructions have
// retired. Implemented in tsc_amd64.s.
func rdtscp() uint64

func tscAvailable() bool {
	return cpuid.CPU.RDTSCP()
}
