// Package collio implements the collective-I/O ingest/egress path: every
// rank reads its own strip directly from a shared BMP file and writes its
// output strip back to a shared BMP file, with rank 0 writing the header.
//
// "Collective" here means every rank performs the operation itself; all
// ranks pass through a cluster.Group barrier after the header read
// (ReadHeader) and, in the driver, before any strip write. This is the
// Go analogue of MPI_File_read_at_all / MPI_File_write_at_all, realized
// over *os.File's ReadAt/WriteAt instead of a wire protocol, since every
// rank already shares the same *os.File handle in one process.
package collio

import (
	"context"
	"fmt"
	"io"
	"os"

	imgtransform "github.com/gostencil/imgtransform"
	"github.com/gostencil/imgtransform/internal/bmp"
	"github.com/gostencil/imgtransform/internal/cluster"
	"github.com/gostencil/imgtransform/internal/partition"
	"github.com/gostencil/imgtransform/internal/raster"
	"github.com/gostencil/imgtransform/internal/strip"
)

// ReadHeader is run by every rank: it reads the 54-byte header at offset 0
// and validates it, then waits at the group barrier so no rank proceeds
// until every rank has validated the same header.
func ReadHeader(ctx context.Context, g *cluster.Group, f *os.File) (bmp.Header, error) {
	buf := make([]byte, bmp.HeaderSize)
	_, readErr := f.ReadAt(buf, 0)
	if readErr != nil && readErr != io.EOF {
		return bmp.Header{}, g.AbortAll(imgtransform.ErrorKindIoRead, fmt.Errorf("collio: reading header: %w", readErr))
	}

	header, parseErr := bmp.ParseHeader(buf)
	if parseErr != nil {
		return bmp.Header{}, g.AbortAll(imgtransform.ErrorKindInvalidFormat, parseErr)
	}

	if err := g.Barrier(ctx); err != nil {
		return bmp.Header{}, err
	}
	return header, nil
}

// startFileRow returns the first bottom-up file row owned by rank i.
func startFileRow(rank int, p *partition.Partition) int {
	q := p.Height / p.NumRanks
	r := p.Height % p.NumRanks
	if rank < r {
		return p.Height - (rank+1)*(q+1)
	}
	return p.Height - (rank+1)*q - r
}

// ReadStrip is run by every rank: it reads its local_height(rank)
// contiguous file rows, reflects them vertically and byte-swizzles them
// exactly as the sequential decoder would, and writes them into s's
// real-row region.
func ReadStrip(f *os.File, rank int, p *partition.Partition, s *strip.Strip) error {
	stride := bmp.Stride(p.Width)
	local := p.Ranks[rank].LocalHeight
	buf := make([]byte, local*stride)

	start := startFileRow(rank, p)
	offset := int64(bmp.HeaderSize) + int64(start)*int64(stride)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return imgtransform.Abort(imgtransform.ErrorKindIoRead, fmt.Errorf("collio: reading rank %d strip: %w", rank, err))
	}

	for y := 0; y < local; y++ {
		fileRow := buf[y*stride : y*stride+p.Width*3]
		// File rows for this strip are stored bottom-up; row y=0 in the
		// buffer is the strip's last image row.
		dst := s.RealRow(local - 1 - y)
		for x := 0; x < p.Width; x++ {
			dst[x] = raster.Pixel{
				B: fileRow[3*x],
				G: fileRow[3*x+1],
				R: fileRow[3*x+2],
			}
		}
	}
	return nil
}

// WriteHeader is run by rank 0 only, as a non-collective write, before any
// rank writes its strip.
func WriteHeader(f *os.File, p *partition.Partition) error {
	buf := make([]byte, bmp.HeaderSize)
	bmp.WriteHeader(buf, p.Width, p.Height)
	if _, err := f.WriteAt(buf, 0); err != nil {
		return imgtransform.Abort(imgtransform.ErrorKindIoWrite, fmt.Errorf("collio: writing header: %w", err))
	}
	return nil
}

// WriteStrip is run by every rank, after the header write has completed
// (gated by a barrier in the caller): it writes its output strip at the
// matching file offset, row-reversed and byte-swizzled.
func WriteStrip(f *os.File, rank int, p *partition.Partition, out *strip.OutputStrip) error {
	stride := bmp.Stride(p.Width)
	local := p.Ranks[rank].LocalHeight
	buf := make([]byte, local*stride)

	for y := 0; y < local; y++ {
		src := out.Row(local - 1 - y)
		fileRow := buf[y*stride : y*stride+p.Width*3]
		for x := 0; x < p.Width; x++ {
			fileRow[3*x] = src[x].B
			fileRow[3*x+1] = src[x].G
			fileRow[3*x+2] = src[x].R
		}
	}

	start := startFileRow(rank, p)
	offset := int64(bmp.HeaderSize) + int64(start)*int64(stride)
	if _, err := f.WriteAt(buf, offset); err != nil {
		return imgtransform.Abort(imgtransform.ErrorKindIoWrite, fmt.Errorf("collio: writing rank %d strip: %w", rank, err))
	}
	return nil
}
