//go:build !amd64

package probe

// No portable way to read a cycle counter; New never selects tsc here.
func rdtscp() uint64 { return 0 }

func tscAvailable() bool { return false }
