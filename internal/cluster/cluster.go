// Package cluster is the rank-group runtime the rest of the stencil engine
// is built on. The original design assumes P cooperating processes
// provided by an external message-passing runtime (MPI); this rendition
// runs every rank as a goroutine in one process instead, so this package
// is that runtime. It supplies the collective barrier, the global-abort
// propagation, and the per-rank context every other component depends on.
package cluster

import (
	"context"
	"os"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	imgtransform "github.com/gostencil/imgtransform"
)

// DefaultRanks is used when IMGTRANSFORM_RANKS is unset or invalid.
const DefaultRanks = 4

// RanksFromEnv returns the simulated rank count: IMGTRANSFORM_RANKS if set
// to a positive integer, otherwise DefaultRanks. Go has no mpirun to launch
// P processes, so the rank count is ambient configuration rather than a
// CLI argument, leaving the CLI's own positional arguments unchanged.
func RanksFromEnv() int {
	if v := os.Getenv("IMGTRANSFORM_RANKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultRanks
}

// Group is a set of P ranks cooperating through barriers and channels,
// standing in for MPI_COMM_WORLD. A Group is single-use: create one per
// run via New, launch rank bodies with Go, then Wait.
type Group struct {
	P       int
	ctx     context.Context
	cancel  context.CancelCauseFunc
	eg      *errgroup.Group
	barrier *barrier
}

// New builds a Group of p ranks.
func New(parent context.Context, p int) *Group {
	ctx, cancel := context.WithCancelCause(parent)
	eg, ctx := errgroup.WithContext(ctx)
	return &Group{
		P:       p,
		ctx:     ctx,
		cancel:  cancel,
		eg:      eg,
		barrier: newBarrier(p),
	}
}

// Context is the group-wide context: cancelled the moment any rank aborts.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Go launches fn as rank's body, tracked by the group's errgroup: the first
// non-nil error returned by any rank cancels the group's context and is
// the error Wait eventually returns.
func (g *Group) Go(rank int, fn func(rank int) error) {
	g.eg.Go(func() error {
		return fn(rank)
	})
}

// Wait blocks until every rank's body has returned, then returns the first
// error observed (if any). This is the Go analogue of MPI_Finalize
// observing a prior MPI_Abort.
func (g *Group) Wait() error {
	return g.eg.Wait()
}

// Barrier blocks the calling rank until all P ranks have called Barrier,
// modeling a collective call that every rank must enter in the same order.
// It returns early with a context error if the group has been aborted.
func (g *Group) Barrier(ctx context.Context) error {
	return g.barrier.wait(ctx)
}

// AbortAll cancels the group so every other rank observes failure at its
// next Barrier or channel operation, and returns the FatalError that the
// caller should itself return from its rank body.
func (g *Group) AbortAll(kind imgtransform.ErrorKind, err error) error {
	fatal := imgtransform.Abort(kind, err)
	g.cancel(fatal)
	g.barrier.abort()
	return fatal
}

// barrier is a reusable cyclic barrier for P goroutines, built on the
// classic generation-counter pattern: each cycle gets its own channel,
// closed by whichever goroutine's arrival completes the cycle.
type barrier struct {
	mu      sync.Mutex
	n       int
	count   int
	gen     chan struct{}
	aborted chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, gen: make(chan struct{}), aborted: make(chan struct{})}
}

func (b *barrier) abort() {
	select {
	case <-b.aborted:
	default:
		close(b.aborted)
	}
}

func (b *barrier) wait(ctx context.Context) error {
	b.mu.Lock()
	gen := b.gen
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen = make(chan struct{})
		close(gen)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-gen:
		return nil
	case <-b.aborted:
		return causeOrErr(ctx)
	case <-ctx.Done():
		return causeOrErr(ctx)
	}
}

// causeOrErr returns the cancellation cause if one was recorded (e.g. the
// FatalError passed to AbortAll), falling back to ctx.Err().
func causeOrErr(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}
