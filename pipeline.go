package zsmooth

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Stage is a pipeline state. A run moves strictly forward through the stages.
type Stage int

// Pipeline stages.
const (
	StageLoaded Stage = iota
	StageRangeAdjusted
	StageBandingReduced
	StageSmoothed
	StageSerialized
)

func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "loaded"
	case StageRangeAdjusted:
		return "range_adjusted"
	case StageBandingReduced:
		return "banding_reduced"
	case StageSmoothed:
		return "smoothed"
	case StageSerialized:
		return "serialized"
	}
	return "unknown"
}

// stepEdgeThreshold is a little below one 8-bit quantization level.
const stepEdgeThreshold = 0.5 / 255

// Options controls a pipeline run.
type Options struct {
	Config FilterConfig
	// Bounds enables the black/white point remap instead of min/max normalization.
	Bounds *DynamicRangeBounds
	// Pass is the edge-preserving filter, Bilateral{} when nil.
	Pass   EdgeAwarePass
	Logger zerolog.Logger

	Compression Compression
	PreviewOut  string
	PreviewSize uint

	OnStage  func(s Stage, img *Image)
	OnLayers func(l *Layers)
	OnResult func(res *Result)
}

// Result holds the outcome of a run.
type Result struct {
	Image *Image
	// StepEdgesIn and StepEdgesOut count quantization steps before and after filtering.
	StepEdgesIn  int
	StepEdgesOut int
}

func defaultOptions() Options {
	return Options{
		Config:      DefaultFilterConfig(),
		Logger:      zerolog.Nop(),
		Compression: CompressionZip,
		PreviewSize: 512,
	}
}

func buildOptions(opts []func(o *Options)) Options {
	opt := defaultOptions()
	for _, applyOpt := range opts {
		applyOpt(&opt)
	}
	if opt.Pass == nil {
		opt.Pass = Bilateral{}
	}
	return opt
}

// Process runs range adjustment, banding reduction and final smoothing on img.
// img is not modified.
func Process(img *Image, opts ...func(o *Options)) (*Result, error) {
	opt := buildOptions(opts)
	return process(img, opt)
}

func process(img *Image, opt Options) (*Result, error) {
	log := opt.Logger.With().Str("component", "pipeline").Logger()
	start := time.Now()

	if img.empty() {
		return nil, ErrEmptyImage
	}
	if err := opt.Config.Validate(); err != nil {
		return nil, err
	}
	if opt.Bounds != nil {
		if err := opt.Bounds.Validate(); err != nil {
			return nil, err
		}
	}

	stage := func(s Stage, out *Image) {
		log.Debug().Stringer("stage", s).Int("width", out.W).Int("height", out.H).Msg("stage complete")
		if opt.OnStage != nil {
			opt.OnStage(s, out)
		}
	}
	stage(StageLoaded, img)

	var (
		adjusted *Image
		err      error
	)
	if opt.Bounds != nil {
		adjusted, err = ExtendDynamicRange(img, opt.Bounds.Black, opt.Bounds.White)
	} else {
		adjusted, err = Normalize(img)
	}
	if err != nil {
		return nil, err
	}
	stage(StageRangeAdjusted, adjusted)

	reduced, layers, err := reduceBanding(adjusted, opt.Config, opt.Pass)
	if err != nil {
		return nil, errors.Wrap(err, "reduce banding")
	}
	if opt.OnLayers != nil {
		opt.OnLayers(layers)
	}
	stage(StageBandingReduced, reduced)

	smoothed, err := FinalSmooth(reduced, opt.Config, opt.Pass)
	if err != nil {
		return nil, err
	}
	stage(StageSmoothed, smoothed)

	res := &Result{
		Image:        smoothed,
		StepEdgesIn:  CountStepEdges(adjusted, stepEdgeThreshold),
		StepEdgesOut: CountStepEdges(smoothed, stepEdgeThreshold),
	}
	log.Info().
		Int("width", img.W).
		Int("height", img.H).
		Bool("range_extended", opt.Bounds != nil).
		Int("step_edges_in", res.StepEdgesIn).
		Int("step_edges_out", res.StepEdgesOut).
		Dur("elapsed", time.Since(start)).
		Msg("depth image processed")

	if opt.OnResult != nil {
		opt.OnResult(res)
	}
	return res, nil
}

// ProcessFile decodes inPath, processes it and writes a single-channel float EXR to outPath.
// If Options.PreviewOut is set, a PNG preview is written as well. Both files are staged
// before either is moved into place, so nothing is written when any step fails.
func ProcessFile(inPath, outPath string, opts ...func(o *Options)) error {
	opt := buildOptions(opts)

	img, err := DecodeFile(inPath)
	if err != nil {
		return err
	}
	opt.Logger.Debug().Str("component", "pipeline").Str("path", inPath).
		Int("width", img.W).Int("height", img.H).Msg("image decoded")

	res, err := process(img, opt)
	if err != nil {
		return err
	}

	data, err := encodeEXRBytes(res.Image, opt.Compression)
	if err != nil {
		return &EncodeError{Path: outPath, Err: err}
	}
	exrFile, err := stageFile(outPath, data)
	if err != nil {
		return &EncodeError{Path: outPath, Err: err}
	}

	var previewFile *stagedFile
	if opt.PreviewOut != "" {
		preview, err := encodePreviewPNG(res.Image, opt.PreviewSize)
		if err == nil {
			previewFile, err = stageFile(opt.PreviewOut, preview)
		}
		if err != nil {
			exrFile.discard()
			return errors.Wrap(err, "write preview")
		}
	}

	if err := exrFile.commit(); err != nil {
		if previewFile != nil {
			previewFile.discard()
		}
		return &EncodeError{Path: outPath, Err: err}
	}
	if previewFile != nil {
		if err := previewFile.commit(); err != nil {
			_ = os.Remove(exrFile.path)
			return errors.Wrap(err, "write preview")
		}
	}

	opt.Logger.Debug().Str("component", "pipeline").Stringer("stage", StageSerialized).
		Str("path", outPath).Stringer("compression", opt.Compression).Msg("stage complete")
	if opt.OnStage != nil {
		opt.OnStage(StageSerialized, res.Image)
	}
	return nil
}
