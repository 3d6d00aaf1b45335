package zsmooth

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// WriteEXRFile encodes img as a single-channel float EXR and stores it at path.
// The file only appears once it is completely written. Failures are reported as *EncodeError.
func WriteEXRFile(path string, img *Image, compression Compression) error {
	data, err := encodeEXRBytes(img, compression)
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	return nil
}

func encodeEXRBytes(img *Image, compression Compression) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeEXR(&buf, img, compression); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PreviewImage scales img into a 16-bit gray image that fits size x size.
// Samples are clamped to [0, 1]. Zero size keeps the original dimensions.
func PreviewImage(img *Image, size uint) (image.Image, error) {
	if img.empty() {
		return nil, ErrEmptyImage
	}
	gray := image.NewGray16(image.Rect(0, 0, img.W, img.H))
	for y := 0; y < img.H; y++ {
		for x, v := range img.Row(y) {
			gray.SetGray16(x, y, color.Gray16{Y: toGray16(v)})
		}
	}
	if size == 0 || (uint(img.W) <= size && uint(img.H) <= size) {
		return gray, nil
	}
	return resize.Thumbnail(size, size, gray, resize.Lanczos3), nil
}

// WritePreviewPNG stores a quick-look PNG of img at path.
func WritePreviewPNG(path string, img *Image, size uint) error {
	data, err := encodePreviewPNG(img, size)
	if err != nil {
		return err
	}
	return errors.Wrap(writeFileAtomic(path, data), "write preview")
}

func encodePreviewPNG(img *Image, size uint) ([]byte, error) {
	preview, err := PreviewImage(img, size)
	if err != nil {
		return nil, errors.Wrap(err, "preview")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, preview); err != nil {
		return nil, errors.Wrap(err, "encode preview")
	}
	return buf.Bytes(), nil
}

// stagedFile is a fully written temporary file waiting to be renamed into place.
type stagedFile struct {
	tmp  string
	path string
}

func stageFile(path string, data []byte) (*stagedFile, error) {
	path = filepath.Clean(path)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sf := &stagedFile{tmp: tmp.Name(), path: path}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		sf.discard()
		return nil, errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		sf.discard()
		return nil, errors.WithStack(err)
	}
	if err := os.Chmod(sf.tmp, 0o644); err != nil {
		sf.discard()
		return nil, errors.WithStack(err)
	}
	return sf, nil
}

func (sf *stagedFile) commit() error {
	if err := os.Rename(sf.tmp, sf.path); err != nil {
		sf.discard()
		return errors.WithStack(err)
	}
	return nil
}

func (sf *stagedFile) discard() {
	_ = os.Remove(sf.tmp)
}

func writeFileAtomic(path string, data []byte) error {
	sf, err := stageFile(path, data)
	if err != nil {
		return err
	}
	return sf.commit()
}

func toGray16(v float32) uint16 {
	return uint16(clamp01(v)*65535.0 + 0.5)
}

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
