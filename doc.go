// Package zsmooth removes quantization banding from single-channel depth images.
//
// An input image is first mapped to [0, 1], either by its own minimum and maximum or by an
// explicit black and white point. Two edge-preserving passes at a large and a fine scale are
// blended by detail magnitude, renormalized, and smoothed once more. The result is written as a
// single-channel 32-bit float OpenEXR image.
package zsmooth
