package zsmooth

// Image is a single-channel float32 raster.
// Pix is stored row-major without padding, len(Pix) == W*H.
type Image struct {
	W, H int
	Pix  []float32
}

// NewImage allocates a zero-filled image.
func NewImage(w, h int) *Image {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Image{W: w, H: h, Pix: make([]float32, w*h)}
}

// Clone returns a deep copy.
func (img *Image) Clone() *Image {
	out := &Image{W: img.W, H: img.H, Pix: make([]float32, len(img.Pix))}
	copy(out.Pix, img.Pix)
	return out
}

// Row returns the samples of row y.
func (img *Image) Row(y int) []float32 {
	return img.Pix[y*img.W : (y+1)*img.W]
}

func (img *Image) empty() bool {
	return img == nil || img.W <= 0 || img.H <= 0 || len(img.Pix) < img.W*img.H
}

func sameSize(a, b *Image) bool {
	return a.W == b.W && a.H == b.H && len(a.Pix) == len(b.Pix)
}

// DynamicRangeBounds selects the black and white points of a linear remap.
// Both values are in [0, 1] and Black < White.
type DynamicRangeBounds struct {
	Black float64
	White float64
}

// Validate checks 0 <= Black < White <= 1.
func (b DynamicRangeBounds) Validate() error {
	switch {
	case !(b.Black >= 0 && b.Black <= 1):
		return &InvalidRangeError{Black: b.Black, White: b.White, Reason: "black point outside [0, 1]"}
	case !(b.White >= 0 && b.White <= 1):
		return &InvalidRangeError{Black: b.Black, White: b.White, Reason: "white point outside [0, 1]"}
	case !(b.White > b.Black):
		return &InvalidRangeError{Black: b.Black, White: b.White, Reason: "white point must be greater than black point"}
	}
	return nil
}
