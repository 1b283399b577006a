// Package convolve applies 3x3 integer kernels to RGB images and measures the
// cost of doing so.
//
// Two implementations share one contract:
//
//	Naive      reads every neighbourhood through the image accessor, sums per
//	           channel, divides and clamps. This is the reference.
//	Optimized  copies the image into channel planes, sums entries of a 9x256
//	           precomputed table, shifts instead of dividing, and stores the
//	           absolute value.
//
// # Interior policy
//
// Both convolvers write only interior pixels, x in [1, W-2] and y in [1, H-2].
// Naive never touches the border of dst; Optimized copies zeroed border
// planes into dst. Either way a freshly created dst keeps black borders.
// Images narrower or shorter than 3 pixels have no interior and convolve to
// nothing.
//
// # Divergence
//
// Optimized is close to, not identical with, Naive:
//
//   - table entries are truncated after scaling by 1<<filters.LookupScale, so
//     results can be one below the exact quotient (uniform 100 under gauss
//     gives 99);
//   - a negative sum becomes its absolute value instead of being clamped to 0.
//
// Both saturate at 255.
package convolve

import (
	"errors"
	"fmt"
	"time"

	"github.com/anas-shakeel/perflab/internal/filters"
	"github.com/anas-shakeel/perflab/internal/probe"
)

var ErrDimensionMismatch = errors.New("output image dimensions differ from input")

// Source is read access to an RGB image with 8 bit channels.
type Source interface {
	Width() int
	Height() int
	GetPixel(x, y int) (r, g, b uint8)
}

// Canvas is an image the convolvers can write to.
type Canvas interface {
	Source
	SetPixel(x, y int, r, g, b uint8)
}

// Options tune a convolution run.
type Options struct {
	// Probe times the run. A monotonic probe is created when nil.
	Probe *probe.Probe

	// Iterations repeats the whole pass to amortise timer overhead.
	// Values below 1 mean a single pass.
	Iterations int
}

func (o Options) iterations() int {
	return max(o.Iterations, 1)
}

func (o Options) probe() (*probe.Probe, error) {
	if o.Probe != nil {
		return o.Probe, nil
	}
	return probe.New(probe.ModeMonotonic)
}

// Func is the signature shared by Naive and Optimized.
type Func func(src Source, dst Canvas, k filters.Kernel, opts Options) (Measurement, error)

// Method names accepted by ByName.
const (
	MethodSane   = "sane"
	MethodLookup = "lookup"
)

// ByName returns the convolver registered under name.
func ByName(name string) (Func, error) {
	switch name {
	case MethodSane:
		return Naive, nil
	case MethodLookup:
		return Optimized, nil
	default:
		return nil, fmt.Errorf("unknown method %q: must be %s or %s", name, MethodSane, MethodLookup)
	}
}

// prepare checks the arguments every convolver shares.
func prepare(src Source, dst Canvas, k filters.Kernel) error {
	if src.Width() != dst.Width() || src.Height() != dst.Height() {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch,
			src.Width(), src.Height(), dst.Width(), dst.Height())
	}
	return k.Validate()
}

// Measurement is what one convolution run cost.
type Measurement struct {
	Method     string
	Backend    string // probe backend the cycles came from
	Width      int
	Height     int
	Iterations int
	Cycles     uint64
	Elapsed    time.Duration
}

func newMeasurement(method string, p *probe.Probe, src Source, iterations int, s probe.Sample) Measurement {
	return Measurement{
		Method:     method,
		Backend:    p.Backend(),
		Width:      src.Width(),
		Height:     src.Height(),
		Iterations: iterations,
		Cycles:     s.Cycles,
		Elapsed:    s.Elapsed,
	}
}

// Pixels is the number of pixels processed, counting every iteration.
func (m Measurement) Pixels() int {
	return m.Width * m.Height * max(m.Iterations, 1)
}

// CyclesPerPixel is the cycle delta divided by Pixels.
func (m Measurement) CyclesPerPixel() float64 {
	if m.Pixels() == 0 {
		return 0
	}
	return float64(m.Cycles) / float64(m.Pixels())
}

// NsPerPixel is the wall-clock time divided by Pixels.
func (m Measurement) NsPerPixel() float64 {
	if m.Pixels() == 0 {
		return 0
	}
	return float64(m.Elapsed.Nanoseconds()) / float64(m.Pixels())
}
