package zsmooth

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	assert.Contains(t, Backends(), "go")

	pass, release, err := NewBackend("go", 3)
	require.NoError(t, err)
	defer release()

	b, ok := pass.(Bilateral)
	require.True(t, ok)
	require.NotNil(t, b.Pool)
	assert.Equal(t, 3, b.Pool.NumWorkers())

	pass, release1, err := NewBackend("go", 1)
	require.NoError(t, err)
	defer release1()
	assert.Equal(t, Bilateral{}, pass)
}

func TestNewBackend_unknown(t *testing.T) {
	_, _, err := NewBackend("quantum", 1)

	var ce *InvalidConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "backend", ce.Field)
}

func TestRegisterBackend(t *testing.T) {
	RegisterBackend("identity", func(int) (EdgeAwarePass, func(), error) {
		return EdgeAwarePassFunc(func(img *Image, _ SmoothParams) (*Image, error) {
			return img.Clone(), nil
		}), func() {}, nil
	})

	pass, release, err := NewBackend("identity", 8)
	require.NoError(t, err)
	defer release()

	img := staircase(4, 1, 1)
	out, err := pass.Smooth(img, SmoothParams{})
	require.NoError(t, err)
	assert.Equal(t, img.Pix, out.Pix)
}
