package zsmooth

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyImage is returned for images without pixels.
	ErrEmptyImage = errors.New("empty image")
	// ErrDimensionMismatch is returned when stage inputs differ in size.
	ErrDimensionMismatch = errors.New("image dimensions do not match")
)

// DecodeError reports an unreadable or unsupported input image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("could not read image: %v", e.Err)
	}
	return fmt.Sprintf("could not read image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure to persist the output image.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("error saving EXR: %v", e.Err)
	}
	return fmt.Sprintf("error saving EXR file %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// InvalidRangeError reports an unusable black/white point pair.
type InvalidRangeError struct {
	Black, White float64
	Reason       string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid dynamic range (black=%g, white=%g): %s", e.Black, e.White, e.Reason)
}

// DegenerateInputError is returned when an image has no dynamic range to normalize.
type DegenerateInputError struct {
	Stage    string
	Min, Max float32
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%s: cannot normalize image with range [%g, %g]", e.Stage, e.Min, e.Max)
}

// InvalidConfigError reports a FilterConfig field out of its domain.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
