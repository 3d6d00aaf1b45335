package zsmooth

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	_ "image/gif"  // GIF decoder.
	_ "image/jpeg" // JPEG decoder.
	_ "image/png"  // PNG decoder.
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // BMP decoder.
	_ "golang.org/x/image/tiff" // TIFF decoder.
	_ "golang.org/x/image/webp" // WebP decoder.
)

// DecodeFile reads a depth image from path.
// Failures are reported as *DecodeError.
func DecodeFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	img, err := DecodeImage(data)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Path = path
			return nil, de
		}
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

// DecodeImage decodes an OpenEXR or raster image into a single channel.
//
// 8-bit gray samples are divided by 255, 16-bit gray samples by 65535 and EXR samples are
// kept as they are. Colour images are reduced to Rec. 601 luma at 16-bit precision.
func DecodeImage(data []byte) (*Image, error) {
	if isEXR(data) {
		img, err := DecodeEXR(data)
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, &DecodeError{Err: ErrEmptyImage}
	}

	out := NewImage(w, h)
	switch m := src.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := out.Row(y)
			line := m.Pix[y*m.Stride : y*m.Stride+w]
			for x, v := range line {
				row[x] = float32(v) / 255
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			row := out.Row(y)
			line := m.Pix[y*m.Stride : y*m.Stride+2*w]
			for x := range row {
				row[x] = float32(binary.BigEndian.Uint16(line[2*x:])) / 65535
			}
		}
	case *image.NRGBA:
		// Alpha is dropped, colour channels are stored unpremultiplied.
		for y := 0; y < h; y++ {
			row := out.Row(y)
			line := m.Pix[y*m.Stride : y*m.Stride+4*w]
			for x := range row {
				p := line[4*x : 4*x+3]
				row[x] = (lumaR601*float32(p[0]) + lumaG601*float32(p[1]) + lumaB601*float32(p[2])) / 255
			}
		}
	default:
		for y := 0; y < h; y++ {
			row := out.Row(y)
			for x := range row {
				row[x] = luma16(src.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return out, nil
}

// luma16 ignores alpha: premultiplied colours are converted back before weighting.
func luma16(c color.Color) float32 {
	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return (lumaR601*float32(n.R) + lumaG601*float32(n.G) + lumaB601*float32(n.B)) / 65535
}

func isEXR(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == exrMagic
}
