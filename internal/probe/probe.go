// Package probe brackets a region of code and reports how many processor
// cycles and how much wall-clock time it took.
//
// Two cycle counter backends exist:
//
//	tsc        RDTSCP on amd64 CPUs that report support for it
//	monotonic  Go's monotonic clock in nanoseconds, available everywhere
//
// Hardware counters are only comparable on one logical core, so callers
// measuring with tsc should hold the goroutine on one CPU with [Pin].
// Cycle counts are informational; nothing in perflab depends on them for
// correctness.
package probe

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/anas-shakeel/perflab/internal/logging"
)

// ErrTSCUnavailable is returned when the tsc backend is requested on a CPU
// (or architecture) without RDTSCP.
var ErrTSCUnavailable = errors.New("tsc backend unavailable: cpu does not support RDTSCP")

// CycleCounter returns monotonically increasing counter snapshots.
type CycleCounter interface {
	Cycles() uint64
	Name() string
}

// Mode selects a cycle counter backend.
type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeTSC       Mode = "tsc"
	ModeMonotonic Mode = "monotonic"
)

// ParseMode converts a flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAuto, ModeTSC, ModeMonotonic:
		return m, nil
	default:
		return "", fmt.Errorf("invalid probe mode %q: must be auto, tsc or monotonic", s)
	}
}

// NoTSCEnv reports whether the PERFLAB_NO_TSC environment variable asks the
// auto mode to skip the hardware counter.
func NoTSCEnv() bool {
	val := os.Getenv("PERFLAB_NO_TSC")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// TSCAvailable reports whether the tsc backend can run on this machine.
func TSCAvailable() bool {
	return tscAvailable()
}

type tscCounter struct{}

func (tscCounter) Cycles() uint64 { return rdtscp() }
func (tscCounter) Name() string   { return string(ModeTSC) }

// monotonicCounter counts nanoseconds since it was created.
type monotonicCounter struct {
	base time.Time
}

func (m monotonicCounter) Cycles() uint64 { return uint64(time.Since(m.base)) }
func (monotonicCounter) Name() string     { return string(ModeMonotonic) }

// Probe pairs a cycle counter with the wall clock.
type Probe struct {
	counter CycleCounter
}

// New selects a backend for mode.
func New(mode Mode) (*Probe, error) {
	log := logging.Logger()

	switch mode {
	case ModeTSC:
		if !tscAvailable() {
			return nil, ErrTSCUnavailable
		}
		return &Probe{counter: tscCounter{}}, nil

	case ModeMonotonic:
		return &Probe{counter: monotonicCounter{base: time.Now()}}, nil

	case ModeAuto, "":
		if tscAvailable() && !NoTSCEnv() {
			log.Debug("probe backend selected", "backend", ModeTSC)
			return &Probe{counter: tscCounter{}}, nil
		}
		log.Debug("probe backend selected", "backend", ModeMonotonic, "tsc_available", tscAvailable())
		return &Probe{counter: monotonicCounter{base: time.Now()}}, nil

	default:
		return nil, fmt.Errorf("invalid probe mode %q", mode)
	}
}

// WithCounter wraps an arbitrary counter, mostly for tests.
func WithCounter(c CycleCounter) *Probe {
	return &Probe{counter: c}
}

// Backend returns the name of the active cycle counter.
func (p *Probe) Backend() string {
	return p.counter.Name()
}

// Hardware reports whether cycle counts come from a hardware counter rather
// than the clock.
func (p *Probe) Hardware() bool {
	_, ok := p.counter.(tscCounter)
	return ok
}

// Span is an open measurement started by [Probe.Start].
type Span struct {
	counter CycleCounter
	wall    time.Time
	cycles  uint64
}

// Sample is the result of a closed span.
type Sample struct {
	Cycles  uint64
	Elapsed time.Duration
}

// Start opens a span. The cycle counter is read last so the clock read is
// outside the measured region.
func (p *Probe) Start() Span {
	wall := time.Now()
	return Span{counter: p.counter, wall: wall, cycles: p.counter.Cycles()}
}

// Stop closes the span. The cycle counter is read first.
func (s Span) Stop() Sample {
	end := s.counter.Cycles()
	elapsed := time.Since(s.wall)

	var cycles uint64
	if end > s.cycles {
		cycles = end - s.cycles
	}
	return Sample{Cycles: cycles, Elapsed: elapsed}
}
