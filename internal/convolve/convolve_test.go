package convolve

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/anas-shakeel/perflab/internal/bmp"
	"github.com/anas-shakeel/perflab/internal/filters"
	"github.com/anas-shakeel/perflab/internal/logging"
	"github.com/anas-shakeel/perflab/internal/probe"
)

var identity = filters.Kernel{Values: [9]int32{0, 0, 0, 0, 1, 0, 0, 0, 0}, Divisor: 1}

func kernel(t testing.TB, name string) filters.Kernel {
	t.Helper()
	k, err := filters.Default().Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q) failed: %v", name, err)
	}
	return k
}

func newImage(t testing.TB, width, height int) *bmp.BitmapImage {
	t.Helper()
	b, err := bmp.CreateBitmap(width, height)
	if err != nil {
		t.Fatalf("CreateBitmap(%d, %d) failed: %v", width, height, err)
	}
	return b
}

func uniform(t testing.TB, width, height int, r, g, b uint8) *bmp.BitmapImage {
	img := newImage(t, width, height)
	for y := range height {
		for x := range width {
			img.SetPixel(x, y, r, g, b)
		}
	}
	return img
}

func noise(t testing.TB, width, height int, seed uint64) *bmp.BitmapImage {
	img := newImage(t, width, height)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for y := range height {
		for x := range width {
			img.SetPixel(x, y, uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)))
		}
	}
	return img
}

// run applies f into a fresh output image.
func run(t testing.TB, f Func, src *bmp.BitmapImage, k filters.Kernel) *bmp.BitmapImage {
	t.Helper()
	dst := newImage(t, src.Width(), src.Height())
	if _, err := f(src, dst, k, Options{}); err != nil {
		t.Fatalf("convolution failed: %v", err)
	}
	return dst
}

var convolvers = []struct {
	name string
	f    Func
}{
	{MethodSane, Naive},
	{MethodLookup, Optimized},
}

func isBorder(x, y, width, height int) bool {
	return x == 0 || y == 0 || x == width-1 || y == height-1
}

func TestDimensionsAndBorders(t *testing.T) {
	sizes := [][2]int{{1, 1}, {2, 2}, {3, 3}, {1, 7}, {7, 2}, {5, 5}, {17, 9}}

	for _, c := range convolvers {
		for _, name := range []string{"gauss", "vline", "hline"} {
			for _, size := range sizes {
				src := noise(t, size[0], size[1], 1)
				dst := run(t, c.f, src, kernel(t, name))

				if dst.Width() != src.Width() || dst.Height() != src.Height() {
					t.Fatalf("%s/%s: output %dx%d, want %dx%d", c.name, name,
						dst.Width(), dst.Height(), src.Width(), src.Height())
				}
				for y := range size[1] {
					for x := range size[0] {
						if !isBorder(x, y, size[0], size[1]) {
							continue
						}
						if r, g, b := dst.GetPixel(x, y); r != 0 || g != 0 || b != 0 {
							t.Errorf("%s/%s %dx%d: border (%d, %d) = (%d, %d, %d), want black",
								c.name, name, size[0], size[1], x, y, r, g, b)
						}
					}
				}
			}
		}
	}
}

func TestNaiveLeavesBorderUntouched(t *testing.T) {
	src := noise(t, 6, 5, 2)
	dst := uniform(t, 6, 5, 1, 2, 3)

	if _, err := Naive(src, dst, kernel(t, "gauss"), Options{}); err != nil {
		t.Fatalf("Naive failed: %v", err)
	}
	for y := range 5 {
		for x := range 6 {
			if !isBorder(x, y, 6, 5) {
				continue
			}
			if r, g, b := dst.GetPixel(x, y); r != 1 || g != 2 || b != 3 {
				t.Fatalf("border (%d, %d) overwritten: (%d, %d, %d)", x, y, r, g, b)
			}
		}
	}
}

func TestEdgeKernelsCancelOnUniformImage(t *testing.T) {
	src := uniform(t, 8, 6, 200, 17, 90)

	for _, c := range convolvers {
		for _, name := range []string{"vline", "hline"} {
			dst := run(t, c.f, src, kernel(t, name))
			for y := 1; y < 5; y++ {
				for x := 1; x < 7; x++ {
					if r, g, b := dst.GetPixel(x, y); r != 0 || g != 0 || b != 0 {
						t.Fatalf("%s/%s: (%d, %d) = (%d, %d, %d), want 0", c.name, name, x, y, r, g, b)
					}
				}
			}
		}
	}
}

func TestGaussPreservesUniformImage(t *testing.T) {
	src := uniform(t, 7, 7, 100, 37, 255)
	dst := run(t, Naive, src, kernel(t, "gauss"))

	for y := 1; y < 6; y++ {
		for x := 1; x < 6; x++ {
			if r, g, b := dst.GetPixel(x, y); r != 100 || g != 37 || b != 255 {
				t.Fatalf("(%d, %d) = (%d, %d, %d), want (100, 37, 255)", x, y, r, g, b)
			}
		}
	}
}

func TestOptimizedGaussTruncation(t *testing.T) {
	// 4*floor(400*256/24) + floor(800*256/24) = 25597, >> 8 = 99
	src := uniform(t, 3, 3, 100, 0, 255)
	dst := run(t, Optimized, src, kernel(t, "gauss"))

	if r, g, b := dst.GetPixel(1, 1); r != 99 || g != 0 || b != 255 {
		t.Errorf("center: got (%d, %d, %d), want (99, 0, 255)", r, g, b)
	}
}

func TestAllZeroGauss(t *testing.T) {
	src := newImage(t, 5, 5)
	dst := run(t, Naive, src, kernel(t, "gauss"))

	for y := range 5 {
		for x := range 5 {
			if r, g, b := dst.GetPixel(x, y); r != 0 || g != 0 || b != 0 {
				t.Fatalf("(%d, %d) = (%d, %d, %d), want 0", x, y, r, g, b)
			}
		}
	}
}

// columns builds a 3x3 grey image whose columns hold left, mid and right.
func columns(t testing.TB, left, mid, right uint8) *bmp.BitmapImage {
	img := newImage(t, 3, 3)
	for y := range 3 {
		img.SetPixel(0, y, left, left, left)
		img.SetPixel(1, y, mid, mid, mid)
		img.SetPixel(2, y, right, right, right)
	}
	return img
}

func TestVlineSingleInteriorPixel(t *testing.T) {
	k := kernel(t, "vline")

	tests := []struct {
		name             string
		left, right      uint8
		naive, optimized uint8
	}{
		// -(10+2*10+10) + (60+2*60+60) = 200
		{"rising", 10, 60, 200, 200},
		// -200 clamps to 0 but folds to 200 on the lookup path
		{"falling", 60, 10, 0, 200},
		// 4*(250-0) = 1000 saturates on both paths
		{"saturating", 0, 250, 255, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := columns(t, tt.left, 50, tt.right)

			if r, _, _ := run(t, Naive, src, k).GetPixel(1, 1); r != tt.naive {
				t.Errorf("Naive: got %d, want %d", r, tt.naive)
			}
			if r, _, _ := run(t, Optimized, src, k).GetPixel(1, 1); r != tt.optimized {
				t.Errorf("Optimized: got %d, want %d", r, tt.optimized)
			}
		})
	}
}

func TestOptimizedMatchesNaiveWithinDivergence(t *testing.T) {
	src := noise(t, 31, 23, 7)

	t.Run("gauss", func(t *testing.T) {
		naive := run(t, Naive, src, kernel(t, "gauss"))
		fast := run(t, Optimized, src, kernel(t, "gauss"))

		// Truncated table entries can only lose, and by less than one unit
		for y := range src.Height() {
			for x := range src.Width() {
				nr, ng, nb := naive.GetPixel(x, y)
				fr, fg, fb := fast.GetPixel(x, y)
				for _, d := range []int{int(nr) - int(fr), int(ng) - int(fg), int(nb) - int(fb)} {
					if d < 0 || d > 1 {
						t.Fatalf("(%d, %d): naive (%d, %d, %d) vs lookup (%d, %d, %d)",
							x, y, nr, ng, nb, fr, fg, fb)
					}
				}
			}
		}
	})

	for _, name := range []string{"vline", "hline"} {
		t.Run(name, func(t *testing.T) {
			naive := run(t, Naive, src, kernel(t, name))
			fast := run(t, Optimized, src, kernel(t, name))

			// Divisor 1 makes the table exact; only negative sums differ
			for y := range src.Height() {
				for x := range src.Width() {
					nr, ng, nb := naive.GetPixel(x, y)
					fr, fg, fb := fast.GetPixel(x, y)
					for _, p := range [][2]uint8{{nr, fr}, {ng, fg}, {nb, fb}} {
						if p[0] != 0 && p[0] != p[1] {
							t.Fatalf("(%d, %d): naive %d vs lookup %d", x, y, p[0], p[1])
						}
					}
				}
			}
		})
	}
}

func TestOptimizedIdentityKernel(t *testing.T) {
	src := noise(t, 9, 6, 3)
	dst := run(t, Optimized, src, identity)

	for y := range 6 {
		for x := range 9 {
			r, g, b := dst.GetPixel(x, y)
			if isBorder(x, y, 9, 6) {
				if r != 0 || g != 0 || b != 0 {
					t.Fatalf("border (%d, %d) not black", x, y)
				}
				continue
			}
			sr, sg, sb := src.GetPixel(x, y)
			if r != sr || g != sg || b != sb {
				t.Fatalf("(%d, %d): got (%d, %d, %d), want (%d, %d, %d)", x, y, r, g, b, sr, sg, sb)
			}
		}
	}
}

func TestDeterministic(t *testing.T) {
	src := noise(t, 12, 12, 4)
	for _, c := range convolvers {
		a := run(t, c.f, src, kernel(t, "hline"))
		b := run(t, c.f, src, kernel(t, "hline"))
		for y := range 12 {
			for x := range 12 {
				if a.Pixels[y][x] != b.Pixels[y][x] {
					t.Fatalf("%s: (%d, %d) differs between runs", c.name, x, y)
				}
			}
		}
	}
}

func TestErrors(t *testing.T) {
	src := newImage(t, 4, 4)
	for _, c := range convolvers {
		if _, err := c.f(src, newImage(t, 4, 5), kernel(t, "gauss"), Options{}); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("%s: mismatched output: got %v, want ErrDimensionMismatch", c.name, err)
		}
		if _, err := c.f(src, newImage(t, 4, 4), filters.Kernel{}, Options{}); !errors.Is(err, filters.ErrZeroDivisor) {
			t.Errorf("%s: zero divisor: got %v, want ErrZeroDivisor", c.name, err)
		}
	}
}

func TestMeasurement(t *testing.T) {
	src := noise(t, 10, 8, 5)
	p, err := probe.New(probe.ModeMonotonic)
	if err != nil {
		t.Fatalf("probe.New failed: %v", err)
	}

	for _, c := range convolvers {
		m, err := c.f(src, newImage(t, 10, 8), kernel(t, "gauss"), Options{Probe: p, Iterations: 3})
		if err != nil {
			t.Fatalf("%s failed: %v", c.name, err)
		}
		if m.Method != c.name {
			t.Errorf("Method: got %q, want %q", m.Method, c.name)
		}
		if m.Backend != "monotonic" {
			t.Errorf("Backend: got %q, want monotonic", m.Backend)
		}
		if m.Iterations != 3 || m.Pixels() != 240 {
			t.Errorf("Iterations/Pixels: got %d/%d, want 3/240", m.Iterations, m.Pixels())
		}
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{MethodSane, MethodLookup} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q) failed: %v", name, err)
		}
	}
	if _, err := ByName("disgusting"); err == nil {
		t.Error("ByName(disgusting) should fail")
	}
}

func TestConvolversLogAtDebugOnly(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })

	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	p, err := probe.New(probe.ModeAuto)
	if err != nil {
		t.Fatalf("probe.New failed: %v", err)
	}
	src := noise(t, 6, 5, 3)
	for _, f := range []Func{Naive, Optimized} {
		if _, err := f(src, newImage(t, 6, 5), kernel(t, "gauss"), Options{Probe: p}); err != nil {
			t.Fatalf("convolution failed: %v", err)
		}
	}

	if buf.Len() == 0 {
		t.Fatal("nothing logged at debug level")
	}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, "level=DEBUG") {
			t.Errorf("record above debug level: %s", line)
		}
	}
}
