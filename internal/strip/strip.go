// Package strip manages the padded input strip and output strip each rank
// convolves over. Both dimensions of the input strip are padded uniformly
// (vertical halo rows and horizontal zero columns), so internal/convolve
// has a single loop body shared by the scatter/gather and collective-I/O
// ingest paths.
//
// Backing arrays are drawn from a size-classed sync.Pool, adapted from the
// bucketed byte-pool idiom in the teacher's internal/pool package, rebucketed
// here in pixel counts. The driver runs the parallel pipeline and then the
// serial oracle in the same process, so the oracle's whole-image strip can
// take a buffer the ranks released if one of the same size class is still
// in the pool.
package strip

import (
	"sync"

	"github.com/gostencil/imgtransform/internal/raster"
)

// Size classes for the pixel-buffer pool, in number of pixels.
const (
	sizeClass1K   = 1024
	sizeClass16K  = 16384
	sizeClass256K = 262144
	sizeClass4M   = 4194304
	sizeClass64M  = 67108864
)

var classes = [5]int{sizeClass1K, sizeClass16K, sizeClass256K, sizeClass4M, sizeClass64M}

var pools [5]sync.Pool

func init() {
	for i := range pools {
		n := classes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]raster.Pixel, n)
				return &b
			},
		}
	}
}

func bucketIndex(n int) int {
	for i, c := range classes {
		if n <= c {
			return i
		}
	}
	return len(classes) - 1
}

// getPixels returns a pixel slice of at least n elements from the pool,
// zeroed and truncated to exactly n elements.
func getPixels(n int) []raster.Pixel {
	idx := bucketIndex(n)
	bp := pools[idx].Get().(*[]raster.Pixel)
	b := *bp
	if cap(b) < n {
		b = make([]raster.Pixel, n)
	} else {
		b = b[:n]
		clear(b)
	}
	return b
}

// putPixels returns a pixel slice previously obtained from getPixels to the
// pool. Slices smaller than the smallest size class are not pooled.
func putPixels(b []raster.Pixel) {
	c := cap(b)
	if c < sizeClass1K {
		return
	}
	idx := bucketIndex(c)
	b = b[:cap(b)]
	pools[idx].Put(&b)
}

// Strip is a rank-local padded input buffer: `padding` halo rows, then
// `Height` real rows, then `padding` halo rows, each row `Width + 2*padding`
// pixels wide.
type Strip struct {
	Height  int // local_height: number of real (non-halo) rows
	Width   int // W: number of real (non-halo) columns
	Padding int
	stride  int // Width + 2*Padding
	Pix     []raster.Pixel
}

// paddedHeight returns Height + 2*Padding.
func (s *Strip) paddedHeight() int { return s.Height + 2*s.Padding }

// Row returns the full padded row at padded row index y (y in
// [0, Height+2*Padding)), including halo columns.
func (s *Strip) Row(y int) []raster.Pixel {
	return s.Pix[y*s.stride : (y+1)*s.stride]
}

// RealRow returns the real (non-halo) columns of real row index y (y in
// [0, Height)), i.e. padded row y+Padding with the horizontal halo trimmed.
func (s *Strip) RealRow(y int) []raster.Pixel {
	full := s.Row(y + s.Padding)
	return full[s.Padding : s.Padding+s.Width]
}

// At returns the pixel at padded coordinates (x, y), x,y both including
// their halo offset.
func (s *Strip) At(x, y int) raster.Pixel {
	return s.Pix[y*s.stride+x]
}

// Release returns the strip's backing array to the pool. The strip must not
// be used afterward.
func (s *Strip) Release() {
	putPixels(s.Pix)
	s.Pix = nil
}

// OutputStrip is a rank-local unpadded output buffer: `Height` rows of
// `Width` pixels each.
type OutputStrip struct {
	Height, Width int
	Pix           []raster.Pixel
}

// Row returns output row y.
func (o *OutputStrip) Row(y int) []raster.Pixel {
	return o.Pix[y*o.Width : (y+1)*o.Width]
}

// Release returns the output strip's backing array to the pool.
func (o *OutputStrip) Release() {
	putPixels(o.Pix)
	o.Pix = nil
}

// Allocate returns a zero-initialized padded input strip and a
// zero-initialized output strip sized for localHeight real rows, width W,
// and the given padding.
func Allocate(localHeight, width, padding int) (*Strip, *OutputStrip) {
	stride := width + 2*padding
	paddedHeight := localHeight + 2*padding

	in := &Strip{
		Height:  localHeight,
		Width:   width,
		Padding: padding,
		stride:  stride,
		Pix:     getPixels(stride * paddedHeight),
	}
	out := &OutputStrip{
		Height: localHeight,
		Width:  width,
		Pix:    getPixels(width * localHeight),
	}
	return in, out
}
