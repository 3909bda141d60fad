// Package halo implements the pairwise halo exchange between neighboring
// ranks in the linear chain [0, P).
//
// Each adjacent pair of ranks is connected by a Link: two capacity-1
// channels, one per direction. A rank sends and then receives for each
// direction in turn; each channel carries exactly one message per run, so
// the send always lands in the empty buffer without waiting for the
// partner, and no rank can block on a partner that is itself blocked on
// the same exchange, the same guarantee MPI_Sendrecv gives.
package halo

import (
	"context"

	"github.com/gostencil/imgtransform/internal/raster"
	"github.com/gostencil/imgtransform/internal/strip"
)

// Link connects rank i and rank i+1. down carries rows from rank i to
// rank i+1 (i's bottom real rows into i+1's top halo); up carries rows
// from rank i+1 to rank i (i+1's top real rows into i's bottom halo).
type Link struct {
	down chan []raster.Pixel
	up   chan []raster.Pixel
}

func newLink() *Link {
	return &Link{
		down: make(chan []raster.Pixel, 1),
		up:   make(chan []raster.Pixel, 1),
	}
}

// NewLinks builds the P-1 links joining P ranks into a chain.
func NewLinks(numRanks int) []*Link {
	if numRanks <= 1 {
		return nil
	}
	links := make([]*Link, numRanks-1)
	for i := range links {
		links[i] = newLink()
	}
	return links
}

// Exchange performs the halo exchange for rank `rank` of `numRanks`, using
// `links` (as returned by NewLinks) to talk to its neighbors. Ranks at the
// image edges have no outward neighbor, so that side of their halo stays
// zero.
func Exchange(ctx context.Context, rank, numRanks int, links []*Link, s *strip.Strip) error {
	padding := s.Padding

	if rank > 0 {
		below := links[rank-1] // link between rank-1 and rank
		top := cloneRows(s, padding, padding)
		if err := send(ctx, below.up, top); err != nil {
			return err
		}
		recv, err := receive(ctx, below.down)
		if err != nil {
			return err
		}
		copyIntoHalo(s, 0, recv)
	}

	if rank < numRanks-1 {
		above := links[rank] // link between rank and rank+1
		bottom := cloneRows(s, s.Height, padding)
		if err := send(ctx, above.down, bottom); err != nil {
			return err
		}
		recv, err := receive(ctx, above.up)
		if err != nil {
			return err
		}
		copyIntoHalo(s, s.Height+padding, recv)
	}

	return nil
}

// cloneRows copies `count` real rows of s starting at padded row `start`
// (including horizontal halo columns, so the receiver can copy them
// straight into its own padded strip) into a fresh slice.
func cloneRows(s *strip.Strip, start, count int) []raster.Pixel {
	width := s.Width + 2*s.Padding
	out := make([]raster.Pixel, count*width)
	for i := 0; i < count; i++ {
		copy(out[i*width:(i+1)*width], s.Row(start+i))
	}
	return out
}

// copyIntoHalo writes rows (laid out the same way cloneRows produced them)
// into s starting at padded row `start`.
func copyIntoHalo(s *strip.Strip, start int, rows []raster.Pixel) {
	width := s.Width + 2*s.Padding
	count := len(rows) / width
	for i := 0; i < count; i++ {
		copy(s.Row(start+i), rows[i*width:(i+1)*width])
	}
}

func send(ctx context.Context, ch chan<- []raster.Pixel, rows []raster.Pixel) error {
	select {
	case ch <- rows:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func receive(ctx context.Context, ch <-chan []raster.Pixel) ([]raster.Pixel, error) {
	select {
	case rows := <-ch:
		return rows, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
