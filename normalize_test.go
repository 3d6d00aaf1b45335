package zsmooth

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	img := imageFrom(2, 2, 2, 4, 6, 10)
	out, err := Normalize(img)
	require.NoError(t, err)

	assert.Equal(t, []float32{0, 0.25, 0.5, 1}, out.Pix)
	assert.Equal(t, []float32{2, 4, 6, 10}, img.Pix, "input must not change")
}

func TestNormalize_range(t *testing.T) {
	img := noiseImage(33, 17, 1)
	for i := range img.Pix {
		img.Pix[i] = img.Pix[i]*7 - 3
	}

	out, err := Normalize(img)
	require.NoError(t, err)

	lo, hi := minMax(out.Pix)
	assert.Equal(t, float32(0), lo)
	assert.Equal(t, float32(1), hi)
}

func TestNormalize_constant(t *testing.T) {
	_, err := Normalize(imageFrom(2, 1, 0.3, 0.3))

	var de *DegenerateInputError
	require.True(t, errors.As(err, &de), "%v", err)
	assert.Equal(t, float32(0.3), de.Min)
	assert.Equal(t, float32(0.3), de.Max)
}

func TestNormalize_empty(t *testing.T) {
	_, err := Normalize(NewImage(0, 0))
	assert.True(t, errors.Is(err, ErrEmptyImage))

	_, err = Normalize(nil)
	assert.True(t, errors.Is(err, ErrEmptyImage))
}

func TestExtendDynamicRange(t *testing.T) {
	img := imageFrom(5, 1, -0.5, 0.2, 0.5, 0.8, 1.3)
	out, err := ExtendDynamicRange(img, 0.2, 0.8)
	require.NoError(t, err)

	assert.Equal(t, float32(0), out.Pix[0])
	assert.Equal(t, float32(0), out.Pix[1])
	assert.InDelta(t, 0.5, out.Pix[2], 1e-6)
	assert.Equal(t, float32(1), out.Pix[3])
	assert.Equal(t, float32(1), out.Pix[4])
}

func TestExtendDynamicRange_bounded(t *testing.T) {
	img := noiseImage(40, 40, 2)
	for i := range img.Pix {
		img.Pix[i] = img.Pix[i]*3 - 1
	}
	out, err := ExtendDynamicRange(img, 0.1, 0.7)
	require.NoError(t, err)

	for _, v := range out.Pix {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestExtendDynamicRange_matchesNormalize(t *testing.T) {
	img := noiseImage(16, 16, 3)
	for i := range img.Pix {
		img.Pix[i] = 0.2 + img.Pix[i]*0.6
	}
	img.Pix[0] = 0.2
	img.Pix[1] = 0.8

	extended, err := ExtendDynamicRange(img, 0.2, 0.8)
	require.NoError(t, err)
	normalized, err := Normalize(img)
	require.NoError(t, err)

	if diff := cmp.Diff(normalized.Pix, extended.Pix, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Fatalf("unexpected difference (-normalized +extended):\n%s", diff)
	}
}

func TestExtendDynamicRange_invalid(t *testing.T) {
	img := imageFrom(2, 1, 0, 1)
	for _, bw := range [][2]float64{{0.5, 0.5}, {0.8, 0.2}, {math.NaN(), 0.5}, {0, math.Inf(1)}} {
		_, err := ExtendDynamicRange(img, bw[0], bw[1])

		var re *InvalidRangeError
		assert.True(t, errors.As(err, &re), "%v: %v", bw, err)
	}
}
