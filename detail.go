package zsmooth

import (
	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"github.com/pkg/errors"
)

// BoostDetail blends a sharpened fine layer with a coarse layer.
//
// The detail layer is img - fine. Where its magnitude exceeds threshold the pixel is taken
// from fine + detail*boost, elsewhere from large. Inputs are left untouched.
func BoostDetail(img, fine, large *Image, boost, threshold float32) (*Image, error) {
	if img.empty() {
		return nil, ErrEmptyImage
	}
	if fine.empty() || large.empty() || !sameSize(img, fine) || !sameSize(img, large) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "image %dx%d, fine %dx%d, large %dx%d",
			img.W, img.H, fine.W, fine.H, large.W, large.H)
	}

	n := len(img.Pix)
	detail := make([]float32, n)
	vec.BaseSubTo(detail, img.Pix, fine.Pix)

	out := NewImage(img.W, img.H)
	copy(out.Pix, fine.Pix)
	vec.BaseMulConstAddTo(out.Pix, boost, detail)

	for i, d := range detail {
		if d > threshold || -d > threshold {
			continue
		}
		out.Pix[i] = large.Pix[i]
	}
	return out, nil
}
