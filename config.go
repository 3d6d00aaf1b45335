package zsmooth

import "math"

// FilterConfig holds the parameters of the banding reduction and final smoothing stages.
type FilterConfig struct {
	// LargeScale is the neighbourhood diameter and spatial sigma of the coarse pass.
	LargeScale int
	// FineScale is the neighbourhood diameter and spatial sigma of the detail pass.
	FineScale int
	// Boost multiplies the detail layer, values above 1 sharpen.
	Boost float32
	// DetailThreshold is the minimum absolute detail that keeps a pixel on the boosted layer.
	DetailThreshold float32
	// DecomposeRangeSigma is the range sigma of both banding reduction passes.
	DecomposeRangeSigma float64

	// SpatialSigma and RangeSigma drive the final edge-preserving pass.
	SpatialSigma float64
	RangeSigma   float64
}

// DefaultFilterConfig returns the stock parameters.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		LargeScale:          defaultLargeScale,
		FineScale:           defaultFineScale,
		Boost:               defaultBoost,
		DetailThreshold:     defaultDetailThreshold,
		DecomposeRangeSigma: defaultDecomposeRangeSigma,
		SpatialSigma:        defaultSpatialSigma,
		RangeSigma:          defaultRangeSigma,
	}
}

// Validate checks every field is within its domain.
// FineScale smaller than LargeScale is expected but not required.
func (c FilterConfig) Validate() error {
	switch {
	case c.LargeScale < 1:
		return &InvalidConfigError{Field: "large_scale", Reason: "must be at least 1"}
	case c.FineScale < 1:
		return &InvalidConfigError{Field: "fine_scale", Reason: "must be at least 1"}
	case !finite(float64(c.Boost)) || c.Boost < 0:
		return &InvalidConfigError{Field: "boost", Reason: "must be a finite non-negative number"}
	case !finite(float64(c.DetailThreshold)) || c.DetailThreshold < 0:
		return &InvalidConfigError{Field: "detail_threshold", Reason: "must be a finite non-negative number"}
	case !finite(c.DecomposeRangeSigma) || c.DecomposeRangeSigma <= 0:
		return &InvalidConfigError{Field: "decompose_range_sigma", Reason: "must be positive"}
	case !finite(c.SpatialSigma) || c.SpatialSigma <= 0:
		return &InvalidConfigError{Field: "spatial_sigma", Reason: "must be positive"}
	case !finite(c.RangeSigma) || c.RangeSigma <= 0:
		return &InvalidConfigError{Field: "range_sigma", Reason: "must be positive"}
	}
	return nil
}

func (c FilterConfig) largePass() SmoothParams {
	return SmoothParams{Diameter: c.LargeScale, SigmaColor: c.DecomposeRangeSigma, SigmaSpace: float64(c.LargeScale)}
}

func (c FilterConfig) finePass() SmoothParams {
	return SmoothParams{Diameter: c.FineScale, SigmaColor: c.DecomposeRangeSigma, SigmaSpace: float64(c.FineScale)}
}

func (c FilterConfig) finalPass() SmoothParams {
	return SmoothParams{Diameter: -1, SigmaColor: c.RangeSigma, SigmaSpace: c.SpatialSigma}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
