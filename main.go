// Perflab applies a 3x3 convolution filter to a 24 bit bitmap and reports
// what it cost per pixel, in processor cycles and in nanoseconds.
//
// Usage:
//
//	perflab [flags] <filter> <bmp file path>
//	perflab gauss photo.bmp                            # sane way, writes sane_output.bmp
//	perflab -method lookup -iterations 500 vline photo.bmp
//	perflab -method both -o edges.bmp hline photo.bmp  # writes edges_sane.bmp and edges_lookup.bmp
//
// Set PERFLAB_NO_TSC=1 to measure with the monotonic clock even where the
// hardware cycle counter is available.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/anas-shakeel/perflab/internal/bmp"
	"github.com/anas-shakeel/perflab/internal/convolve"
	"github.com/anas-shakeel/perflab/internal/filters"
	"github.com/anas-shakeel/perflab/internal/logging"
	"github.com/anas-shakeel/perflab/internal/probe"
)

const methodBoth = "both"

// Wide images turn the terminal preview into noise
const maxPreviewWidth = 80

type options struct {
	filter     string
	input      string
	output     string
	methods    []string
	iterations int
	probeMode  probe.Mode
	cpu        int
	info       bool
	preview    bool
	verbose    bool
}

func main() {
	table := filters.Default()

	opts, err := parseArgs(os.Args[1:], table, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, opts.verbose)
	logging.SetLogger(logger)

	if err := run(opts, table, os.Stdout); err != nil {
		logger.Error("perflab failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseArgs reads flags and the two positional arguments. Usage problems are
// printed to stderr and returned as errors.
func parseArgs(args []string, table *filters.Table, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("perflab", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts      options
		method    string
		probeMode string
	)
	fs.StringVar(&method, "method", convolve.MethodSane, "Convolution to run: sane, lookup or both")
	fs.StringVar(&opts.output, "o", "", "Output bmp path (default: <method>_output.bmp)")
	fs.IntVar(&opts.iterations, "iterations", 1, "Number of full passes to time")
	fs.StringVar(&probeMode, "probe", string(probe.ModeAuto), "Cycle counter: auto, tsc or monotonic")
	fs.IntVar(&opts.cpu, "cpu", 0, "Logical CPU to pin to while measuring with tsc (-1 disables pinning)")
	fs.BoolVar(&opts.info, "info", false, "Print the input bitmap metadata")
	fs.BoolVar(&opts.preview, "preview", false, "Print the output image as coloured blocks (small images only)")
	fs.BoolVar(&opts.verbose, "v", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: perflab [flags] <filter> <bmp file path>\n\n")
		fmt.Fprintf(stderr, "Filters: %s\n\nFlags:\n", strings.Join(table.Names(), ", "))
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	fail := func(format string, a ...any) (options, error) {
		err := fmt.Errorf(format, a...)
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		fs.Usage()
		return options{}, err
	}

	if fs.NArg() != 2 {
		return fail("expected <filter> and <bmp file path>, got %d argument(s)", fs.NArg())
	}
	opts.filter, opts.input = fs.Arg(0), fs.Arg(1)

	switch method {
	case convolve.MethodSane, convolve.MethodLookup:
		opts.methods = []string{method}
	case methodBoth:
		opts.methods = []string{convolve.MethodSane, convolve.MethodLookup}
	default:
		return fail("invalid method %q: must be sane, lookup or both", method)
	}

	if opts.iterations < 1 {
		return fail("invalid iterations %d: must be at least 1", opts.iterations)
	}

	mode, err := probe.ParseMode(probeMode)
	if err != nil {
		return fail("%v", err)
	}
	opts.probeMode = mode

	return opts, nil
}

// outputPath returns where the result of method is saved.
func (o options) outputPath(method string) string {
	if o.output == "" {
		return method + "_output.bmp"
	}
	if len(o.methods) == 1 {
		return o.output
	}
	ext := filepath.Ext(o.output)
	return strings.TrimSuffix(o.output, ext) + "_" + method + ext
}

// run resolves the filter, loads the input, applies every requested method
// and saves each result.
func run(opts options, table *filters.Table, stdout io.Writer) error {
	log := logging.Logger()

	k, err := table.Lookup(opts.filter)
	if err != nil {
		return err
	}

	input, err := bmp.ReadBitmap(opts.input)
	if err != nil {
		return err
	}
	if opts.info {
		input.WriteMetadata(stdout)
	}

	p, err := probe.New(opts.probeMode)
	if err != nil {
		return err
	}

	host := probe.DescribeHost()
	log.Info("measuring", "filter", opts.filter, "size", fmt.Sprintf("%dx%d", input.Width(), input.Height()),
		"backend", p.Backend(), "cpu", host.Brand, "vector", host.Vector, "iterations", opts.iterations)

	if p.Hardware() && opts.cpu >= 0 {
		unpin, err := probe.Pin(opts.cpu)
		if err != nil {
			log.Warn("cycle counts may mix cores", "error", err)
		} else {
			defer unpin()
		}
	}

	for _, method := range opts.methods {
		apply, err := convolve.ByName(method)
		if err != nil {
			return err
		}

		output, err := bmp.CreateBitmap(input.Width(), input.Height())
		if err != nil {
			return err
		}

		m, err := apply(input, output, k, convolve.Options{Probe: p, Iterations: opts.iterations})
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
		if err := m.WriteReport(stdout); err != nil {
			return err
		}

		path := opts.outputPath(method)
		if err := output.Save(path); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		log.Info("saved output", "method", method, "path", path)

		if opts.preview {
			if output.Width() > maxPreviewWidth {
				log.Warn("preview skipped", "width", output.Width(), "max", maxPreviewWidth)
				continue
			}
			if err := output.Preview(stdout); err != nil {
				return err
			}
		}
	}

	return nil
}
