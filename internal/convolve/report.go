package convolve

import (
	"fmt"
	"io"

	"github.com/anas-shakeel/perflab/internal/probe"
)

// WriteReport prints m one metric per line. The format is for people, not
// for parsing.
func (m Measurement) WriteReport(w io.Writer) error {
	unit := "Cycles"
	if m.Backend != string(probe.ModeTSC) {
		// Without a hardware counter the cycle column holds nanoseconds
		unit = "Cycles (" + m.Backend + " ns)"
	}

	_, err := fmt.Fprintf(w,
		"Method: %s (%dx%d, %d pass(es))\n"+
			"%s: %d\n"+
			"Ns: %d\n"+
			"Cycles per pixel: %.2f\n"+
			"Ns per pixel: %.2f\n",
		m.Method, m.Width, m.Height, max(m.Iterations, 1),
		unit, m.Cycles,
		m.Elapsed.Nanoseconds(),
		m.CyclesPerPixel(),
		m.NsPerPixel())
	return err
}
