package convolve

import (
	"github.com/anas-shakeel/perflab/internal/filters"
	"github.com/anas-shakeel/perflab/internal/logging"
	"github.com/anas-shakeel/perflab/internal/utils"
)

// Lookup holds each kernel weight multiplied by every possible byte value,
// scaled up by filters.LookupScale bits and divided by the kernel divisor:
//
//	l[k][v] = (v * weight[k] << LookupScale) / divisor
//
// Division truncates toward zero.
type Lookup [9][256]int32

// NewLookup builds the table for k. k must be valid.
func NewLookup(k filters.Kernel) *Lookup {
	var l Lookup
	for i, w := range k.Values {
		for v := range 256 {
			l[i][v] = (int32(v) * w << filters.LookupScale) / k.Divisor
		}
	}
	return &l
}

// applyPlane filters the interior of one plane. in and out are row-major
// planes of width*height bytes.
func (l *Lookup) applyPlane(in, out []uint8, width, height int) {
	for y := 1; y < height-1; y++ {
		top := in[(y-1)*width : y*width]
		mid := in[y*width : (y+1)*width]
		bot := in[(y+1)*width : (y+2)*width]
		dst := out[y*width : (y+1)*width]

		for x := 1; x < width-1; x++ {
			total := l[0][top[x-1]] + l[1][top[x]] + l[2][top[x+1]] +
				l[3][mid[x-1]] + l[4][mid[x]] + l[5][mid[x+1]] +
				l[6][bot[x-1]] + l[7][bot[x]] + l[8][bot[x+1]]

			// Downshift (divide by 1<<LookupScale), then fold negatives
			dst[x] = utils.AbsByte(total >> filters.LookupScale)
		}
	}
}

// Optimized applies k through planar buffers and a precomputed table. The
// plane copy and table build happen before the measured region; interleaving
// back into dst happens after it.
func Optimized(src Source, dst Canvas, k filters.Kernel, opts Options) (Measurement, error) {
	if err := prepare(src, dst, k); err != nil {
		return Measurement{}, err
	}
	p, err := opts.probe()
	if err != nil {
		return Measurement{}, err
	}

	log := logging.Logger()
	width, height := src.Width(), src.Height()
	iterations := opts.iterations()

	in := PlanesOf(src)
	out := NewPlanes(width, height)
	lookup := NewLookup(k)
	log.Debug("lookup path prepared", "planes_bytes", len(in.pix), "plane_stride", in.PlaneStride(),
		"table_entries", 9*256)

	span := p.Start()
	for range iterations {
		for c := range channels {
			lookup.applyPlane(in.Plane(c), out.Plane(c), width, height)
		}
	}
	sample := span.Stop()

	out.WriteTo(dst)

	m := newMeasurement(MethodLookup, p, src, iterations, sample)
	log.Debug("convolution finished", "method", m.Method, "backend", m.Backend,
		"iterations", iterations, "cycles", m.Cycles, "elapsed", m.Elapsed)
	return m, nil
}
