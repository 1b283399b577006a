package convolve

import (
	"github.com/anas-shakeel/perflab/internal/filters"
	"github.com/anas-shakeel/perflab/internal/logging"
	"github.com/anas-shakeel/perflab/internal/utils"
)

// Naive applies k to every interior pixel of src, one pixel at a time, and
// writes the result to dst. Border pixels of dst are left untouched.
func Naive(src Source, dst Canvas, k filters.Kernel, opts Options) (Measurement, error) {
	if err := prepare(src, dst, k); err != nil {
		return Measurement{}, err
	}
	p, err := opts.probe()
	if err != nil {
		return Measurement{}, err
	}

	width, height := src.Width(), src.Height()
	iterations := opts.iterations()

	span := p.Start()
	for range iterations {
		for y := 1; y < height-1; y++ {
			for x := 1; x < width-1; x++ {
				// Sum the product of each of the 9 pixels and its weight
				var rTotal, gTotal, bTotal int32
				for i := range 3 {
					for j := range 3 {
						r, g, b := src.GetPixel(x+j-1, y+i-1)
						w := k.Weight(i, j)
						rTotal += int32(r) * w
						gTotal += int32(g) * w
						bTotal += int32(b) * w
					}
				}
				dst.SetPixel(x, y,
					utils.ClampByte(rTotal/k.Divisor),
					utils.ClampByte(gTotal/k.Divisor),
					utils.ClampByte(bTotal/k.Divisor))
			}
		}
	}
	sample := span.Stop()

	m := newMeasurement(MethodSane, p, src, iterations, sample)
	logging.Logger().Debug("convolution finished", "method", m.Method, "backend", m.Backend,
		"cycles", m.Cycles, "elapsed", m.Elapsed)
	return m, nil
}
