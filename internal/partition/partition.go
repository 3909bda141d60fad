// Package partition implements the row-strip decomposition: given an image
// height H and a rank count P, it computes each rank's strip height, its
// global row range, and the byte counts/offsets used to scatter and gather
// whole-image buffers.
package partition

import "fmt"

// ErrInfeasible is returned when a kernel's padding would require a
// multi-hop halo exchange: some rank's local height is smaller than the
// padding, and the halo protocol in internal/halo only exchanges with
// immediate neighbors.
type ErrInfeasible struct {
	Rank, LocalHeight, Padding int
}

func (e *ErrInfeasible) Error() string {
	return fmt.Sprintf("partition: rank %d has local height %d, smaller than padding %d", e.Rank, e.LocalHeight, e.Padding)
}

// Rank describes one rank's share of the image.
type Rank struct {
	LocalHeight int // local_height(i)
	RowOffset   int // first global image row this rank owns
	ByteOffset  int // byte offset into the whole-image pixel buffer
	ByteCount   int // LocalHeight * W * 3
}

// Partition holds the per-rank decomposition of an H-row, W-wide image
// across P ranks.
type Partition struct {
	Height, Width, NumRanks int
	Ranks                   []Rank
}

// Compute derives the partition for an H-row, W-wide image across P ranks.
// Rank i owns q+1 rows if i < r else q rows, where q = H/P and r = H mod P;
// rank 0 owns the topmost rows, rank P-1 the bottommost. This is the only
// partition rule a conforming implementation may use.
func Compute(height, width, numRanks int) (*Partition, error) {
	q := height / numRanks
	r := height % numRanks

	p := &Partition{Height: height, Width: width, NumRanks: numRanks, Ranks: make([]Rank, numRanks)}
	rowOffset := 0
	byteOffset := 0
	for i := 0; i < numRanks; i++ {
		local := q
		if i < r {
			local++
		}
		byteCount := local * width * 3
		p.Ranks[i] = Rank{
			LocalHeight: local,
			RowOffset:   rowOffset,
			ByteOffset:  byteOffset,
			ByteCount:   byteCount,
		}
		rowOffset += local
		byteOffset += byteCount
	}
	return p, nil
}

// CheckFeasible returns ErrInfeasible if any rank's local height is smaller
// than padding, since the halo exchange only talks to immediate neighbors
// and can't reach far enough to fill a strip thinner than its own padding.
func (p *Partition) CheckFeasible(padding int) error {
	for i, rk := range p.Ranks {
		if rk.LocalHeight < padding {
			return &ErrInfeasible{Rank: i, LocalHeight: rk.LocalHeight, Padding: padding}
		}
	}
	return nil
}

// SendCounts returns the byte count for each rank, suitable for a
// scatter/gather descriptor.
func (p *Partition) SendCounts() []int {
	counts := make([]int, len(p.Ranks))
	for i, rk := range p.Ranks {
		counts[i] = rk.ByteCount
	}
	return counts
}

// Offsets returns the byte offset for each rank, suitable for a
// scatter/gather descriptor.
func (p *Partition) Offsets() []int {
	offsets := make([]int, len(p.Ranks))
	for i, rk := range p.Ranks {
		offsets[i] = rk.ByteOffset
	}
	return offsets
}
