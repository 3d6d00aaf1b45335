// Command zsmooth removes quantization banding from a depth image and writes a float EXR.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vearutop/zsmooth"
	"github.com/vearutop/zsmooth/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	inputFile  string
	outputFile string

	largeScale          int
	fineScale           int
	boost               float32
	detailThreshold     float32
	decomposeRangeSigma float64
	spatialSigma        float64
	rangeSigma          float64

	blackPoint float64
	whitePoint float64

	compression string
	workers     int
	backend     string
	previewFile string
	previewSize uint
	logLevel    string
}

var flagAliases = map[string]string{
	"i": "input_file",
	"o": "output_file",
}

func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	name = strings.ReplaceAll(name, "-", "_")
	if full, ok := flagAliases[name]; ok {
		name = full
	}
	return pflag.NormalizedName(name)
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var f flags
	defaults := zsmooth.DefaultFilterConfig()

	cmd := &cobra.Command{
		Use:           "zsmooth",
		Short:         "Reduce banding in a depth image and save it as a float EXR",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return process(cmd.Flags(), f, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalizeFlag)
	fs.SortFlags = false

	fs.StringVarP(&f.inputFile, "input_file", "i", "input.png", "input depth image (PNG, JPEG, TIFF, BMP, WebP, GIF or EXR)")
	fs.StringVarP(&f.outputFile, "output_file", "o", "output.exr", "output single-channel float EXR")
	fs.IntVar(&f.largeScale, "large_scale", defaults.LargeScale, "diameter of the coarse smoothing pass")
	fs.IntVar(&f.fineScale, "fine_scale", defaults.FineScale, "diameter of the detail smoothing pass")
	fs.Float32Var(&f.boost, "boost", defaults.Boost, "detail boost factor")
	fs.Float32Var(&f.detailThreshold, "detail_threshold", defaults.DetailThreshold, "minimum detail magnitude kept on the boosted layer")
	fs.Float64Var(&f.decomposeRangeSigma, "decompose_range_sigma", defaults.DecomposeRangeSigma, "range sigma of the banding reduction passes")
	fs.Float64Var(&f.spatialSigma, "spatial_sigma", defaults.SpatialSigma, "spatial sigma of the final pass")
	fs.Float64Var(&f.rangeSigma, "range_sigma", defaults.RangeSigma, "range sigma of the final pass")
	fs.Float64Var(&f.blackPoint, "black_point", 0, "input value mapped to 0, requires --white_point")
	fs.Float64Var(&f.whitePoint, "white_point", 1, "input value mapped to 1, requires --black_point")
	fs.StringVar(&f.compression, "compression", "zip", "EXR compression: none, zips or zip")
	fs.IntVar(&f.workers, "workers", runtime.GOMAXPROCS(0), "number of filter workers")
	fs.StringVar(&f.backend, "backend", "go", "edge-preserving filter backend: "+strings.Join(zsmooth.Backends(), ", "))
	fs.StringVar(&f.previewFile, "preview_file", "", "optional 16-bit PNG preview of the result")
	fs.UintVar(&f.previewSize, "preview_size", 512, "maximum preview width and height, 0 keeps full size")
	fs.StringVar(&f.logLevel, "log_level", "info", "log level: debug, info, warn or error")

	return cmd
}

func rangeBounds(fs *pflag.FlagSet, f flags) (*zsmooth.DynamicRangeBounds, error) {
	hasBlack, hasWhite := fs.Changed("black_point"), fs.Changed("white_point")
	if !hasBlack && !hasWhite {
		return nil, nil
	}
	if hasBlack != hasWhite {
		return nil, &zsmooth.InvalidRangeError{
			Black: f.blackPoint, White: f.whitePoint,
			Reason: "both --black_point and --white_point must be provided together",
		}
	}
	b := &zsmooth.DynamicRangeBounds{Black: f.blackPoint, White: f.whitePoint}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func process(fs *pflag.FlagSet, f flags, stdout, stderr io.Writer) error {
	log, err := logging.NewConsole(stderr, f.logLevel)
	if err != nil {
		return err
	}

	bounds, err := rangeBounds(fs, f)
	if err != nil {
		return err
	}

	cfg := zsmooth.FilterConfig{
		LargeScale:          f.largeScale,
		FineScale:           f.fineScale,
		Boost:               f.boost,
		DetailThreshold:     f.detailThreshold,
		DecomposeRangeSigma: f.decomposeRangeSigma,
		SpatialSigma:        f.spatialSigma,
		RangeSigma:          f.rangeSigma,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	compression, err := zsmooth.ParseCompression(f.compression)
	if err != nil {
		return &zsmooth.InvalidConfigError{Field: "compression", Reason: err.Error()}
	}
	if f.workers < 1 {
		return &zsmooth.InvalidConfigError{Field: "workers", Reason: "must be at least 1"}
	}

	pass, release, err := zsmooth.NewBackend(f.backend, f.workers)
	if err != nil {
		return err
	}
	defer release()

	fmt.Fprintln(stdout, "Processing depth image:", f.inputFile)
	fmt.Fprintln(stdout, "Output will be saved as:", f.outputFile)
	if bounds != nil {
		fmt.Fprintf(stdout, "Extending dynamic range: Black point = %g, White point = %g\n", bounds.Black, bounds.White)
	}

	err = zsmooth.ProcessFile(f.inputFile, f.outputFile, func(o *zsmooth.Options) {
		o.Config = cfg
		o.Bounds = bounds
		o.Pass = pass
		o.Logger = log
		o.Compression = compression
		o.PreviewOut = f.previewFile
		o.PreviewSize = f.previewSize
	})
	if err != nil {
		return errors.WithMessage(err, "processing failed")
	}

	fmt.Fprintln(stdout, "Processed depth image saved as", f.outputFile)
	return nil
}
