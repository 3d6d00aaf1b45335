package zsmooth_test

import (
	"fmt"
	"os"

	"github.com/vearutop/zsmooth"
)

func ExampleNormalize() {
	img := zsmooth.NewImage(4, 1)
	copy(img.Pix, []float32{2, 4, 6, 10})

	out, err := zsmooth.Normalize(img)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(out.Pix)

	// Output:
	// [0 0.25 0.5 1]
}

func ExampleExtendDynamicRange() {
	img := zsmooth.NewImage(4, 1)
	copy(img.Pix, []float32{0, 0.2, 0.8, 1})

	out, err := zsmooth.ExtendDynamicRange(img, 0.2, 0.8)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(out.Pix)

	_, err = zsmooth.ExtendDynamicRange(img, 0.8, 0.2)
	fmt.Println(err)

	// Output:
	// [0 0 1 1]
	// invalid dynamic range (black=0.8, white=0.2): white point must be greater than black point
}

func ExampleProcessFile() {
	err := zsmooth.ProcessFile("testdata/depth.png", "depth.exr", func(o *zsmooth.Options) {
		o.Bounds = &zsmooth.DynamicRangeBounds{Black: 0.1, White: 0.9}
		o.Compression = zsmooth.CompressionZips
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
