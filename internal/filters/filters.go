// Filters hold the fixed 3x3 convolution kernels known to perflab
package filters

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

var (
	ErrUnknownFilter  = errors.New("unknown filter")
	ErrZeroDivisor    = errors.New("invalid kernel: divisor must not be zero")
	ErrKernelOverflow = errors.New("invalid kernel: weights overflow 32-bit accumulation")
)

// LookupScale is the fixed-point shift applied to lookup table entries.
// Lives here so Validate can bound the scaled accumulation too.
const LookupScale = 8

// Kernel is a 3x3 grid of weights (row-major, top-left first) and a divisor.
type Kernel struct {
	Values  [9]int32
	Divisor int32
}

// Validate reports whether the kernel can be applied without a zero divide and
// without overflowing an int32 accumulator, for both the direct sum
// (9 * 255 * |w|) and the scaled lookup sum (9 * (255 * |w| << LookupScale)).
func (k Kernel) Validate() error {
	if k.Divisor == 0 {
		return ErrZeroDivisor
	}

	var worst int64
	for _, w := range k.Values {
		worst += 255 * abs64(int64(w))
	}
	if worst<<LookupScale > math.MaxInt32 {
		return ErrKernelOverflow
	}

	return nil
}

// Weight returns the weight at kernel row i, column j.
func (k Kernel) Weight(i, j int) int32 {
	return k.Values[i*3+j]
}

// Table is an immutable mapping from filter name to kernel.
type Table struct {
	kernels map[string]Kernel
	names   []string
}

// Creates a table from the given kernels, validating each of them
func NewTable(kernels map[string]Kernel) (*Table, error) {
	t := &Table{kernels: make(map[string]Kernel, len(kernels))}

	for name, k := range kernels {
		if name == "" {
			return nil, errors.New("invalid filter: name must not be empty")
		}
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("filter %q: %w", name, err)
		}
		t.kernels[name] = k
		t.names = append(t.names, name)
	}
	slices.Sort(t.names)

	return t, nil
}

// Default returns the table with the gauss, vline and hline filters.
func Default() *Table {
	t, err := NewTable(map[string]Kernel{
		"gauss": {
			Values:  [9]int32{0, 4, 0, 4, 8, 4, 0, 4, 0},
			Divisor: 24,
		},
		"vline": {
			Values:  [9]int32{-1, 0, 1, -2, 0, 2, -1, 0, 1},
			Divisor: 1,
		},
		"hline": {
			Values:  [9]int32{-1, -2, -1, 0, 0, 0, 1, 2, 1},
			Divisor: 1,
		},
	})
	if err != nil {
		// The built-in kernels are constants; failing here is a programming error.
		panic(err)
	}
	return t
}

// Lookup returns the kernel registered under name.
func (t *Table) Lookup(name string) (Kernel, error) {
	k, ok := t.kernels[name]
	if !ok {
		return Kernel{}, fmt.Errorf("%w %q: must be one of %s", ErrUnknownFilter, name, strings.Join(t.names, ", "))
	}
	return k, nil
}

// Names returns the registered filter names in sorted order.
func (t *Table) Names() []string {
	return slices.Clone(t.names)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
