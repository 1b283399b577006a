package probe

import (
	"runtime"

	"github.com/klauspost/cpuid"
	"golang.org/x/sys/cpu"
)

// Host describes the machine a measurement ran on.
type Host struct {
	Brand        string // CPU brand string, empty when cpuid cannot tell
	LogicalCores int
	Vector       string // widest vector ISA the compiler may target: avx512, avx2, sse2, neon or scalar
}

// DescribeHost inspects the CPU once; cheap enough to call per run.
func DescribeHost() Host {
	h := Host{
		Brand:        cpuid.CPU.BrandName,
		LogicalCores: cpuid.CPU.LogicalCores,
		Vector:       vectorISA(),
	}
	if h.LogicalCores <= 0 {
		h.LogicalCores = runtime.NumCPU()
	}
	return h
}

func vectorISA() string {
	switch {
	case cpu.X86.HasAVX512F:
		return "avx512"
	case cpu.X86.HasAVX2:
		return "avx2"
	case cpu.X86.HasSSE2:
		return "sse2"
	case cpu.ARM64.HasASIMD:
		return "neon"
	default:
		return "scalar"
	}
}
