// Package convolve implements the bounded, saturating per-pixel stencil
// that is the heart of the engine, plus the thread parallelism within a
// single rank.
//
// Row parallelism follows the static contiguous split used by the teacher's
// internal/lossy row-parallel YUV conversion (encode.go):
// startY := wi*h/n; endY := (wi+1)*h/n, one goroutine per worker, joined by
// receiving one completion value per worker from a channel. Because strips
// are padded in both dimensions
// (internal/strip), the same loop body serves both ingest paths.
package convolve

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/gostencil/imgtransform/internal/kernel"
	"github.com/gostencil/imgtransform/internal/raster"
	"github.com/gostencil/imgtransform/internal/strip"
)

// Apply computes in's convolution with k into out, using up to numThreads
// concurrent workers over a static, contiguous row partition. Each output
// row is written by exactly one worker; the input strip is read-only.
//
// numThreads is bounded with a semaphore.Weighted rather than launching
// one goroutine per row outright: a fixed-size pool of CPU-bound workers,
// no unbounded fan-out.
func Apply(ctx context.Context, in *strip.Strip, out *strip.OutputStrip, k kernel.Kernel, numThreads int) error {
	if numThreads < 1 {
		numThreads = 1
	}
	height := out.Height
	if numThreads > height {
		numThreads = height
	}
	if height == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(int64(numThreads))
	errCh := make(chan error, numThreads)
	launched := 0

	for w := 0; w < numThreads; w++ {
		startY := w * height / numThreads
		endY := (w + 1) * height / numThreads
		if startY == endY {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		launched++
		go func(startY, endY int) {
			defer sem.Release(1)
			convolveRows(in, out, k, startY, endY)
			errCh <- nil
		}(startY, endY)
	}

	for i := 0; i < launched; i++ {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}

// convolveRows computes output rows [startY, endY) of out from in's padded
// strip. Accumulation order is fixed at row-major i then j, independent of
// how the caller splits rows across threads, so the floating-point result
// stays bit-stable regardless of thread count.
func convolveRows(in *strip.Strip, out *strip.OutputStrip, k kernel.Kernel, startY, endY int) {
	p := k.Padding()
	width := out.Width

	for y := startY; y < endY; y++ {
		dst := out.Row(y)
		for x := 0; x < width; x++ {
			var accR, accG, accB float64
			for i := -p; i <= p; i++ {
				for j := -p; j <= p; j++ {
					px := in.At(x+p+j, y+p+i)
					kv := k.At(i+p, j+p)
					accR += float64(px.R) * kv
					accG += float64(px.G) * kv
					accB += float64(px.B) * kv
				}
			}
			dst[x] = raster.Pixel{
				R: saturate(accR),
				G: saturate(accG),
				B: saturate(accB),
			}
		}
	}
}

// saturate clamps v to [0, 255] before truncating to 8 bits, so an
// out-of-range accumulator clips to white or black instead of wrapping.
func saturate(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
