// Package scatter implements the scatter/gather ingest/egress path: rank 0
// owns the whole image, decoded through internal/bmp, and distributes rows
// to every rank; after convolution, rank 0 reassembles the whole output.
//
// Ranks share one address space, so the MPI_Scatterv/MPI_Gatherv wire
// transfer becomes a buffered channel per rank carrying a pixel slice, the
// same collective shape (rank 0 sends, every rank receives exactly its
// share, in rank order) without serializing bytes that never leave the
// process.
package scatter

import (
	"context"
	"fmt"
	"io"

	"github.com/gostencil/imgtransform/internal/bmp"
	"github.com/gostencil/imgtransform/internal/partition"
	"github.com/gostencil/imgtransform/internal/raster"
	"github.com/gostencil/imgtransform/internal/strip"

	imgtransform "github.com/gostencil/imgtransform"
)

// Source holds the state rank 0 assembles before scattering: the decoded
// whole image and its partition.
type Source struct {
	Image     *raster.Image
	Partition *partition.Partition
}

// Load is run by rank 0 only: it decodes the whole image and computes the
// partition for numRanks and the kernel's padding.
func Load(r io.Reader, numRanks, padding int) (*Source, error) {
	img, err := bmp.Decode(r)
	if err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindInvalidFormat, err)
	}
	p, err := partition.Compute(img.Height, img.Width, numRanks)
	if err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindAllocationFailure, err)
	}
	if err := p.CheckFeasible(padding); err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindPartitionInfeasible, err)
	}
	return &Source{Image: img, Partition: p}, nil
}

// Channels is the set of per-rank channels rank 0 uses to scatter input
// rows and gather output rows. One Channels value is shared by the whole
// group for the duration of one run.
type Channels struct {
	toRank   []chan []raster.Pixel
	fromRank []chan []raster.Pixel
}

// NewChannels allocates scatter/gather channels for numRanks ranks.
func NewChannels(numRanks int) *Channels {
	c := &Channels{
		toRank:   make([]chan []raster.Pixel, numRanks),
		fromRank: make([]chan []raster.Pixel, numRanks),
	}
	for i := range c.toRank {
		c.toRank[i] = make(chan []raster.Pixel, 1)
		c.fromRank[i] = make(chan []raster.Pixel, 1)
	}
	return c
}

// ScatterFrom is run by rank 0: it slices src.Image's rows per the
// partition and sends each rank its real rows, in rank order.
func ScatterFrom(ctx context.Context, ch *Channels, src *Source) error {
	for i, rk := range src.Partition.Ranks {
		rows := make([]raster.Pixel, rk.LocalHeight*src.Image.Width)
		copy(rows, src.Image.Pix[rk.RowOffset*src.Image.Width:(rk.RowOffset+rk.LocalHeight)*src.Image.Width])
		select {
		case ch.toRank[i] <- rows:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ReceiveInto is run by every rank: it receives its real rows and copies
// them into the strip's real-row region (padded strip indices
// [padding, padding+localHeight)).
func ReceiveInto(ctx context.Context, ch *Channels, rank int, s *strip.Strip) error {
	select {
	case rows := <-ch.toRank[rank]:
		width := s.Width
		for y := 0; y < s.Height; y++ {
			copy(s.RealRow(y), rows[y*width:(y+1)*width])
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendResult is run by every rank: it sends its output strip back to rank 0.
func SendResult(ctx context.Context, ch *Channels, rank int, out *strip.OutputStrip) error {
	rows := make([]raster.Pixel, len(out.Pix))
	copy(rows, out.Pix)
	select {
	case ch.fromRank[rank] <- rows:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GatherInto is run by rank 0: it reassembles the whole output image from
// every rank's result, draining the gather channels in rank order so the
// assembled buffer is rank-order contiguous regardless of completion order.
func GatherInto(ctx context.Context, ch *Channels, p *partition.Partition, width int) (*raster.Image, error) {
	img := raster.NewImage(width, p.Height)
	for i, rk := range p.Ranks {
		select {
		case rows := <-ch.fromRank[i]:
			copy(img.Pix[rk.RowOffset*width:(rk.RowOffset+rk.LocalHeight)*width], rows)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return img, nil
}

// Save is run by rank 0: it writes the assembled image as a BMP.
func Save(w io.Writer, img *raster.Image) error {
	if err := bmp.Encode(w, img); err != nil {
		return imgtransform.Abort(imgtransform.ErrorKindIoWrite, fmt.Errorf("scatter: writing output: %w", err))
	}
	return nil
}
