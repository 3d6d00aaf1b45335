package zsmooth

const (
	defaultLargeScale          = 15
	defaultFineScale           = 3
	defaultBoost               = 1.5
	defaultDetailThreshold     = 0.02
	defaultSpatialSigma        = 50.0
	defaultRangeSigma          = 0.1
	defaultDecomposeRangeSigma = 0.1
)

const (
	// Rec. 601 weights, as used for raster colour to gray conversion.
	lumaR601 = 0.299
	lumaG601 = 0.587
	lumaB601 = 0.114

	// Rec. 709 weights for linear (EXR) RGB.
	lumaR709 = 0.2126
	lumaG709 = 0.7152
	lumaB709 = 0.0722
)
