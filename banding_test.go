package zsmooth

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPass struct {
	mu     sync.Mutex
	params []SmoothParams
	smooth EdgeAwarePass
}

func (r *recordingPass) Smooth(img *Image, p SmoothParams) (*Image, error) {
	r.mu.Lock()
	r.params = append(r.params, p)
	r.mu.Unlock()

	if r.smooth == nil {
		return img.Clone(), nil
	}
	return r.smooth.Smooth(img, p)
}

func TestReduceBanding_passParameters(t *testing.T) {
	pass := &recordingPass{}
	cfg := DefaultFilterConfig()

	img := staircase(64, 4, 4)
	out, err := ReduceBanding(img, cfg, pass)
	require.NoError(t, err)

	assert.ElementsMatch(t, []SmoothParams{cfg.largePass(), cfg.finePass()}, pass.params)

	// Identity passes leave no detail, so the result is the normalized large layer.
	want, err := Normalize(img)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, out.Pix)
}

func TestReduceBanding_renormalizes(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.LargeScale = 7
	cfg.Boost = 25
	cfg.DetailThreshold = 0

	out, err := ReduceBanding(noiseImage(32, 32, 8), cfg, Bilateral{})
	require.NoError(t, err)

	lo, hi := minMax(out.Pix)
	assert.Equal(t, float32(0), lo)
	assert.Equal(t, float32(1), hi)
}

func TestReduceBanding_layers(t *testing.T) {
	img := staircase(64, 4, 4)
	_, layers, err := reduceBanding(img, testConfig(), Bilateral{})
	require.NoError(t, err)

	for _, l := range []*Image{layers.Large, layers.Fine, layers.Blended} {
		require.NotNil(t, l)
		assert.Equal(t, img.W, l.W)
		assert.Equal(t, img.H, l.H)
	}
}

func TestReduceBanding_passError(t *testing.T) {
	failure := errors.New("filter exploded")
	pass := EdgeAwarePassFunc(func(img *Image, p SmoothParams) (*Image, error) {
		if p.Diameter == 3 {
			return nil, failure
		}
		return img.Clone(), nil
	})

	_, err := ReduceBanding(staircase(16, 2, 2), DefaultFilterConfig(), pass)
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure))
	assert.Contains(t, err.Error(), "fine scale pass")
}

func TestReduceBanding_invalidConfig(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.LargeScale = 0

	_, err := ReduceBanding(staircase(16, 2, 2), cfg, Bilateral{})

	var ce *InvalidConfigError
	assert.True(t, errors.As(err, &ce))
}

func TestFinalSmooth_tinyRangeSigma(t *testing.T) {
	img := noiseImage(40, 30, 10)
	lo, hi := minMax(img.Pix)
	// Only neighbours closer than one range LUT bin can contribute.
	tol := 3 * float64(hi-lo) / expBins

	cfg := testConfig()
	blurred, err := FinalSmooth(img, cfg, Bilateral{})
	require.NoError(t, err)
	assert.Greater(t, maxAbsDiff(img.Pix, blurred.Pix), 0.05, "default range sigma must smooth noise")

	cfg.RangeSigma = 1e-6
	once, err := FinalSmooth(img, cfg, Bilateral{})
	require.NoError(t, err)
	twice, err := FinalSmooth(once, cfg, Bilateral{})
	require.NoError(t, err)

	assert.LessOrEqual(t, maxAbsDiff(img.Pix, once.Pix), tol)
	assert.LessOrEqual(t, maxAbsDiff(img.Pix, twice.Pix), tol)
}

func TestFinalSmooth_rampNearIdentity(t *testing.T) {
	cfg := testConfig()
	cfg.RangeSigma = 1e-6

	img := staircase(256, 6, 1)
	out, err := FinalSmooth(img, cfg, Bilateral{})
	require.NoError(t, err)

	// Adjacent levels are 1/255 apart, far beyond the range kernel.
	assert.LessOrEqual(t, maxAbsDiff(img.Pix, out.Pix), 1e-6)
}

func TestFinalSmooth_parameters(t *testing.T) {
	pass := &recordingPass{}
	cfg := DefaultFilterConfig()

	_, err := FinalSmooth(staircase(8, 2, 2), cfg, pass)
	require.NoError(t, err)
	assert.Equal(t, []SmoothParams{{Diameter: -1, SigmaColor: cfg.RangeSigma, SigmaSpace: cfg.SpatialSigma}}, pass.params)
}
