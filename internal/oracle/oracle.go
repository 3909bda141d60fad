// Package oracle computes the same convolution as internal/convolve, but
// serially over the whole image in one strip with no rank decomposition.
// It is the reference the parallel pipeline's result is checked against on
// every run.
package oracle

import (
	"context"

	"github.com/gostencil/imgtransform/internal/convolve"
	"github.com/gostencil/imgtransform/internal/kernel"
	"github.com/gostencil/imgtransform/internal/raster"
	"github.com/gostencil/imgtransform/internal/strip"
)

// Run applies k to img using a single strip spanning the whole image
// (padding derived from k, numThreads fixed at 1) and returns the result as
// a whole image. This is the bit-exact reference: no row partition, no
// thread split, no halo exchange, so its only source of difference from the
// parallel path is a genuine convolution bug.
func Run(ctx context.Context, img *raster.Image, k kernel.Kernel) (*raster.Image, error) {
	in, out := strip.Allocate(img.Height, img.Width, k.Padding())
	defer in.Release()
	defer out.Release()

	for y := 0; y < img.Height; y++ {
		copy(in.RealRow(y), img.Row(y))
	}

	if err := convolve.Apply(ctx, in, out, k, 1); err != nil {
		return nil, err
	}

	result := raster.NewImage(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		copy(result.Row(y), out.Row(y))
	}
	return result, nil
}

// Equal reports whether a and b agree on every pixel. The driver runs this
// check after every parallel pass.
func Equal(a, b *raster.Image) bool {
	if a.Width != b.Width || a.Height != b.Height {
		return false
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return false
		}
	}
	return true
}

// FirstMismatch returns the (x, y) of the first pixel where a and b differ,
// and ok=false if they agree everywhere. Used to produce a diagnostic when
// Equal fails.
func FirstMismatch(a, b *raster.Image) (x, y int, ok bool) {
	if a.Width != b.Width || a.Height != b.Height {
		return 0, 0, true
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return i % a.Width, i / a.Width, true
		}
	}
	return 0, 0, false
}
