package zsmooth

import (
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Layers holds the intermediate results of one banding reduction run.
type Layers struct {
	Large   *Image
	Fine    *Image
	Blended *Image
}

// ReduceBanding suppresses quantization steps while keeping genuine discontinuities.
//
// It smooths img at the large and fine scales, blends them with BoostDetail and
// renormalizes the blend to [0, 1].
func ReduceBanding(img *Image, cfg FilterConfig, pass EdgeAwarePass) (*Image, error) {
	out, _, err := reduceBanding(img, cfg, pass)
	return out, err
}

func reduceBanding(img *Image, cfg FilterConfig, pass EdgeAwarePass) (*Image, *Layers, error) {
	if img.empty() {
		return nil, nil, ErrEmptyImage
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	layers := &Layers{}

	// Both passes only read img.
	var g errgroup.Group
	g.Go(func() error {
		large, err := pass.Smooth(img, cfg.largePass())
		if err != nil {
			return errors.Wrap(err, "large scale pass")
		}
		layers.Large = large
		return nil
	})
	g.Go(func() error {
		fine, err := pass.Smooth(img, cfg.finePass())
		if err != nil {
			return errors.Wrap(err, "fine scale pass")
		}
		layers.Fine = fine
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	blended, err := BoostDetail(img, layers.Fine, layers.Large, cfg.Boost, cfg.DetailThreshold)
	if err != nil {
		return nil, nil, err
	}
	layers.Blended = blended

	out, err := normalize(blended, "reduce banding")
	if err != nil {
		return nil, nil, err
	}
	return out, layers, nil
}

// FinalSmooth runs the closing edge-preserving pass with automatic extent.
// Its output range is not renormalized.
func FinalSmooth(img *Image, cfg FilterConfig, pass EdgeAwarePass) (*Image, error) {
	if img.empty() {
		return nil, ErrEmptyImage
	}
	out, err := pass.Smooth(img, cfg.finalPass())
	if err != nil {
		return nil, errors.Wrap(err, "final smoothing pass")
	}
	return out, nil
}
