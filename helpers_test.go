package zsmooth

import (
	"math"
	"math/rand"
)

func imageFrom(w, h int, pix ...float32) *Image {
	img := NewImage(w, h)
	copy(img.Pix, pix)
	return img
}

// staircase renders a horizontal ramp quantized to 8 bits, stepWidth pixels per level.
func staircase(w, h, stepWidth int) *Image {
	img := NewImage(w, h)
	for y := 0; y < h; y++ {
		row := img.Row(y)
		for x := range row {
			row[x] = float32(x/stepWidth) / 255
		}
	}
	return img
}

// stepImage is 0 on the left half and 1 on the right half.
func stepImage(w, h int) *Image {
	img := NewImage(w, h)
	for y := 0; y < h; y++ {
		row := img.Row(y)
		for x := w / 2; x < w; x++ {
			row[x] = 1
		}
	}
	return img
}

func noiseImage(w, h int, seed int64) *Image {
	rnd := rand.New(rand.NewSource(seed))
	img := NewImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = rnd.Float32()
	}
	return img
}

func minMax(pix []float32) (lo, hi float32) {
	lo, hi = pix[0], pix[0]
	for _, v := range pix[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func testConfig() FilterConfig {
	cfg := DefaultFilterConfig()
	cfg.SpatialSigma = 5
	return cfg
}

func stddev(pix []float32) float64 {
	var sum, sq float64
	for _, v := range pix {
		sum += float64(v)
	}
	mean := sum / float64(len(pix))
	for _, v := range pix {
		d := float64(v) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(pix)))
}

func maxAbsDiff(a, b []float32) float64 {
	var m float64
	for i := range a {
		if d := math.Abs(float64(a[i] - b[i])); d > m {
			m = d
		}
	}
	return m
}
