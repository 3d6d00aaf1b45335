package zsmooth

import (
	"math"
	"sync"

	himage "github.com/ajroetker/go-highway/hwy/contrib/image"
	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
)

// SmoothParams parameterizes one edge-preserving pass.
//
// Diameter is the neighbourhood size in pixels, zero or negative derives it from SigmaSpace.
// SigmaColor controls edge sensitivity in sample units, SigmaSpace the spatial falloff in pixels.
// Non-positive sigmas are treated as 1.
type SmoothParams struct {
	Diameter   int
	SigmaColor float64
	SigmaSpace float64
}

// Radius returns the effective kernel radius.
func (p SmoothParams) Radius() int {
	radius := p.Diameter / 2
	if p.Diameter <= 0 {
		radius = int(math.RoundToEven(p.sigmaSpace() * 1.5))
	}
	if radius < 1 {
		radius = 1
	}
	return radius
}

func (p SmoothParams) sigmaColor() float64 {
	if p.SigmaColor <= 0 {
		return 1
	}
	return p.SigmaColor
}

func (p SmoothParams) sigmaSpace() float64 {
	if p.SigmaSpace <= 0 {
		return 1
	}
	return p.SigmaSpace
}

// EdgeAwarePass is an edge-preserving smoothing primitive.
// Implementations must not modify img.
type EdgeAwarePass interface {
	Smooth(img *Image, p SmoothParams) (*Image, error)
}

// EdgeAwarePassFunc adapts a function to EdgeAwarePass.
type EdgeAwarePassFunc func(img *Image, p SmoothParams) (*Image, error)

// Smooth implements EdgeAwarePass.
func (f EdgeAwarePassFunc) Smooth(img *Image, p SmoothParams) (*Image, error) {
	return f(img, p)
}

// Bilateral is a pure Go bilateral filter with cv::bilateralFilter parameter semantics.
// Borders are mirrored. Results do not depend on the number of workers.
type Bilateral struct {
	// Pool spreads rows across workers, nil runs on the calling goroutine.
	Pool *workerpool.Pool
}

const (
	expBins = 1 << 12
	// Images whose range is below float32 epsilon pass through unchanged.
	flatRange = 1.1920929e-07
)

type spatialKernel struct {
	dx, dy []int
	weight []float32
}

type kernelKey struct {
	radius int
	sigma  float64
}

var kernelCache sync.Map

func getSpatialKernel(radius int, sigmaSpace float64) *spatialKernel {
	key := kernelKey{radius: radius, sigma: sigmaSpace}
	if cached, ok := kernelCache.Load(key); ok {
		return cached.(*spatialKernel)
	}
	coeff := -0.5 / (sigmaSpace * sigmaSpace)
	k := &spatialKernel{}
	for i := -radius; i <= radius; i++ {
		for j := -radius; j <= radius; j++ {
			r := math.Sqrt(float64(i*i + j*j))
			if r > float64(radius) {
				continue
			}
			k.dy = append(k.dy, i)
			k.dx = append(k.dx, j)
			k.weight = append(k.weight, float32(math.Exp(r*r*coeff)))
		}
	}
	kernelCache.Store(key, k)
	return k
}

// rangeLUT tabulates exp(-d^2/2s^2) over [0, span] with linear interpolation between bins.
type rangeLUT struct {
	scale float32
	table []float32
}

func newRangeLUT(span float32, sigmaColor float64) *rangeLUT {
	coeff := -0.5 / (sigmaColor * sigmaColor)
	scale := float64(expBins) / float64(span)
	lut := &rangeLUT{scale: float32(scale), table: make([]float32, expBins+2)}
	last := float32(1)
	for i := range lut.table {
		if last > 0 {
			d := float64(i) / scale
			lut.table[i] = float32(math.Exp(d * d * coeff))
			last = lut.table[i]
		}
	}
	return lut
}

func (l *rangeLUT) weight(d float32) float32 {
	if d < 0 {
		d = -d
	}
	alpha := d * l.scale
	idx := int(alpha)
	if idx >= expBins+1 {
		return 0
	}
	alpha -= float32(idx)
	return l.table[idx] + alpha*(l.table[idx+1]-l.table[idx])
}

// Smooth implements EdgeAwarePass.
func (b Bilateral) Smooth(img *Image, p SmoothParams) (*Image, error) {
	if img.empty() {
		return nil, ErrEmptyImage
	}
	lo, hi := vec.BaseMinMax(img.Pix)
	if !finite(float64(hi - lo)) {
		return nil, &DegenerateInputError{Stage: "bilateral", Min: lo, Max: hi}
	}
	if hi-lo < flatRange {
		return img.Clone(), nil
	}

	radius := p.Radius()
	kern := getSpatialKernel(radius, p.sigmaSpace())
	lut := newRangeLUT(hi-lo, p.sigmaColor())
	padded, stride := mirrorPad(img, radius)

	offsets := make([]int, len(kern.dx))
	for k := range offsets {
		offsets[k] = kern.dy[k]*stride + kern.dx[k]
	}

	out := NewImage(img.W, img.H)
	b.parallelRows(img.H, func(start, end int) {
		for y := start; y < end; y++ {
			row := out.Row(y)
			base := (y+radius)*stride + radius
			for x := range row {
				c := base + x
				center := padded[c]
				var sum, wsum float32
				for k, off := range offsets {
					v := padded[c+off]
					w := kern.weight[k] * lut.weight(v-center)
					sum += w * v
					wsum += w
				}
				row[x] = sum / wsum
			}
		}
	})
	return out, nil
}

func (b Bilateral) parallelRows(total int, fn func(start, end int)) {
	if b.Pool == nil {
		fn(0, total)
		return
	}
	b.Pool.ParallelFor(total, fn)
}

// mirrorPad copies img into a buffer extended by radius pixels on each side.
func mirrorPad(img *Image, radius int) ([]float32, int) {
	stride := img.W + 2*radius
	rows := img.H + 2*radius
	padded := make([]float32, stride*rows)
	for py := 0; py < rows; py++ {
		src := img.Row(himage.Mirror(py-radius, img.H))
		dst := padded[py*stride : (py+1)*stride]
		copy(dst[radius:radius+img.W], src)
		for i := 0; i < radius; i++ {
			dst[i] = src[himage.Mirror(i-radius, img.W)]
			dst[radius+img.W+i] = src[himage.Mirror(img.W+i, img.W)]
		}
	}
	return padded, stride
}
