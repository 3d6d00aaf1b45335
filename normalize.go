package zsmooth

import (
	"github.com/ajroetker/go-highway/hwy/contrib/vec"
)

// Normalize rescales img to [0, 1] using its own minimum and maximum.
// A constant image has no range to stretch and yields *DegenerateInputError.
func Normalize(img *Image) (*Image, error) {
	return normalize(img, "normalize")
}

func normalize(img *Image, stage string) (*Image, error) {
	if img.empty() {
		return nil, ErrEmptyImage
	}
	lo, hi := vec.BaseMinMax(img.Pix)
	span := hi - lo
	if !(span > 0) || !finite(float64(span)) {
		return nil, &DegenerateInputError{Stage: stage, Min: lo, Max: hi}
	}

	out := NewImage(img.W, img.H)
	for i, v := range img.Pix {
		out.Pix[i] = (v - lo) / span
	}
	return out, nil
}

// ExtendDynamicRange clips img to [black, white] and maps that interval linearly onto [0, 1].
// The result lies in [0, 1] exactly.
func ExtendDynamicRange(img *Image, black, white float64) (*Image, error) {
	b, w := float32(black), float32(white)
	if !(w > b) || !finite(black) || !finite(white) {
		return nil, &InvalidRangeError{Black: black, White: white, Reason: "white point must be greater than black point"}
	}
	if img.empty() {
		return nil, ErrEmptyImage
	}

	span := w - b
	out := NewImage(img.W, img.H)
	for i, v := range img.Pix {
		switch {
		case !(v >= b):
			v = b
		case v > w:
			v = w
		}
		out.Pix[i] = (v - b) / span
	}
	return out, nil
}
