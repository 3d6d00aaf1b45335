package zsmooth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountStepEdges(t *testing.T) {
	assert.Equal(t, 0, CountStepEdges(nil, 0))
	assert.Equal(t, 0, CountStepEdges(imageFrom(2, 2, 1, 1, 1, 1), 0))

	img := imageFrom(3, 2,
		0, 0.1, 0.1,
		0, 0.1, 0.5,
	)
	// Horizontal: 0->0.1 twice, 0.1->0.5 once. Vertical: 0.1->0.5 once.
	assert.Equal(t, 4, CountStepEdges(img, 0.05))
	assert.Equal(t, 2, CountStepEdges(img, 0.2))

	// 255 steps per row of an 8-bit staircase.
	assert.Equal(t, 255*3, CountStepEdges(staircase(1024, 3, 4), 0.003))
}
