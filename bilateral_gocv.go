//go:build gocv

package zsmooth

import (
	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

func init() {
	RegisterBackend("opencv", func(int) (EdgeAwarePass, func(), error) {
		return OpenCVBilateral{}, func() {}, nil
	})
}

// OpenCVBilateral runs cv::bilateralFilter through gocv.
type OpenCVBilateral struct{}

// Smooth implements EdgeAwarePass.
func (OpenCVBilateral) Smooth(img *Image, p SmoothParams) (*Image, error) {
	if img.empty() {
		return nil, ErrEmptyImage
	}

	data := make([]byte, 4*len(img.Pix))
	vec.EncodeFloat32s(data, img.Pix)
	src, err := gocv.NewMatFromBytes(img.H, img.W, gocv.MatTypeCV32F, data)
	if err != nil {
		return nil, errors.Wrap(err, "opencv input")
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.BilateralFilter(src, &dst, p.Diameter, p.SigmaColor, p.SigmaSpace)
	if dst.Empty() || dst.Rows() != img.H || dst.Cols() != img.W {
		return nil, errors.New("opencv bilateral filter produced no output")
	}

	out := NewImage(img.W, img.H)
	for y := 0; y < img.H; y++ {
		row := out.Row(y)
		for x := range row {
			row[x] = dst.GetFloatAt(y, x)
		}
	}
	return out, nil
}
