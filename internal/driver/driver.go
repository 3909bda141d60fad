// Package driver orchestrates one end-to-end run: build the rank group,
// run the parallel pipeline over the chosen ingest/egress path, then
// independently re-run the serial oracle and report whether the two
// results agree, mirroring the original program's tail-end behavior
// (original_source/image_transformer.c) of checking parallel output
// against a serial reference on every invocation, not just in tests.
package driver

import (
	"context"
	"fmt"
	"os"

	imgtransform "github.com/gostencil/imgtransform"
	"github.com/gostencil/imgtransform/internal/bmp"
	"github.com/gostencil/imgtransform/internal/cluster"
	"github.com/gostencil/imgtransform/internal/collio"
	"github.com/gostencil/imgtransform/internal/convolve"
	"github.com/gostencil/imgtransform/internal/halo"
	"github.com/gostencil/imgtransform/internal/kernel"
	"github.com/gostencil/imgtransform/internal/oracle"
	"github.com/gostencil/imgtransform/internal/partition"
	"github.com/gostencil/imgtransform/internal/raster"
	"github.com/gostencil/imgtransform/internal/scatter"
	"github.com/gostencil/imgtransform/internal/strip"
)

// Path selects the ingest/egress strategy: scatter/gather through rank 0,
// or collective I/O with every rank touching the file directly.
type Path int

const (
	// PathScatter is the default path: rank 0 decodes the whole image and
	// scatters rows; rank 0 gathers and encodes the result.
	PathScatter Path = iota
	// PathCollIO has every rank read and write its own strip directly.
	PathCollIO
)

// Result is what one run reports.
type Result struct {
	Path         Path
	NumRanks     int
	NumThreads   int
	Operation    string
	ResultsAgree bool
	MismatchX    int
	MismatchY    int
}

// Run executes one convolution of inputPath into outputPath using the
// named operation, numRanks simulated ranks and numThreads worker threads
// per rank, via the given path. It always re-verifies the parallel result
// against the serial oracle before returning.
func Run(ctx context.Context, path Path, inputPath, outputPath, operation string, numRanks, numThreads int) (*Result, error) {
	k, ok := kernel.Lookup(operation)
	if !ok {
		return nil, imgtransform.Abort(imgtransform.ErrorKindUnknownOperation, fmt.Errorf("driver: unknown operation %q", operation))
	}

	var parallel *raster.Image
	var err error
	switch path {
	case PathCollIO:
		parallel, err = runCollIO(ctx, inputPath, outputPath, k, numRanks, numThreads)
	default:
		parallel, err = runScatter(ctx, inputPath, outputPath, k, numRanks, numThreads)
	}
	if err != nil {
		return nil, err
	}

	input, err := loadWholeImage(inputPath)
	if err != nil {
		return nil, err
	}
	serial, err := oracle.Run(ctx, input, k)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Path:       path,
		NumRanks:   numRanks,
		NumThreads: numThreads,
		Operation:  operation,
	}
	if oracle.Equal(parallel, serial) {
		res.ResultsAgree = true
	} else {
		res.MismatchX, res.MismatchY, _ = oracle.FirstMismatch(parallel, serial)
	}
	return res, nil
}

func loadWholeImage(path string) (*raster.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindIoOpen, err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindInvalidFormat, err)
	}
	return img, nil
}

// runScatter drives the scatter/gather path: rank 0 loads and scatters,
// every rank convolves its strip after a halo exchange, rank 0 gathers and
// saves.
func runScatter(ctx context.Context, inputPath, outputPath string, k kernel.Kernel, numRanks, numThreads int) (*raster.Image, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindIoOpen, err)
	}
	defer in.Close()

	src, err := scatter.Load(in, numRanks, k.Padding())
	if err != nil {
		return nil, err
	}

	ch := scatter.NewChannels(numRanks)
	links := halo.NewLinks(numRanks)
	g := cluster.New(ctx, numRanks)

	g.Go(0, func(rank int) error {
		return scatter.ScatterFrom(g.Context(), ch, src)
	})

	for i := 0; i < numRanks; i++ {
		rank := i
		g.Go(rank, func(rank int) error {
			localHeight := src.Partition.Ranks[rank].LocalHeight
			s, out := strip.Allocate(localHeight, src.Partition.Width, k.Padding())
			defer s.Release()
			defer out.Release()

			if err := scatter.ReceiveInto(g.Context(), ch, rank, s); err != nil {
				return err
			}
			if err := halo.Exchange(g.Context(), rank, numRanks, links, s); err != nil {
				return err
			}
			if err := convolve.Apply(g.Context(), s, out, k, numThreads); err != nil {
				return err
			}
			return scatter.SendResult(g.Context(), ch, rank, out)
		})
	}

	var gathered *raster.Image
	g.Go(0, func(rank int) error {
		var err error
		gathered, err = scatter.GatherInto(g.Context(), ch, src.Partition, src.Partition.Width)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindIoOpen, err)
	}
	defer out.Close()
	if err := scatter.Save(out, gathered); err != nil {
		return nil, err
	}
	return gathered, nil
}

// runCollIO drives the collective-I/O path: every rank reads its own file
// strip directly, convolves after a halo exchange, and writes its own
// output strip directly.
func runCollIO(ctx context.Context, inputPath, outputPath string, k kernel.Kernel, numRanks, numThreads int) (*raster.Image, error) {
	header, err := readHeaderOnly(inputPath)
	if err != nil {
		return nil, err
	}

	p, err := partition.Compute(header.Height, header.Width, numRanks)
	if err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindAllocationFailure, err)
	}
	if err := p.CheckFeasible(k.Padding()); err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindPartitionInfeasible, err)
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindIoOpen, err)
	}
	defer in.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindIoOpen, err)
	}
	defer outFile.Close()
	if err := outFile.Truncate(int64(bmp.HeaderSize) + int64(header.Height)*int64(bmp.Stride(header.Width))); err != nil {
		return nil, imgtransform.Abort(imgtransform.ErrorKindIoWrite, err)
	}

	links := halo.NewLinks(numRanks)
	g := cluster.New(ctx, numRanks)

	results := make([]*strip.OutputStrip, numRanks)
	for i := 0; i < numRanks; i++ {
		rank := i
		g.Go(rank, func(rank int) error {
			if _, err := collio.ReadHeader(g.Context(), g, in); err != nil {
				return err
			}
			localHeight := p.Ranks[rank].LocalHeight
			s, out := strip.Allocate(localHeight, p.Width, k.Padding())
			defer s.Release()

			if err := collio.ReadStrip(in, rank, p, s); err != nil {
				return err
			}
			if err := halo.Exchange(g.Context(), rank, numRanks, links, s); err != nil {
				return err
			}
			if err := convolve.Apply(g.Context(), s, out, k, numThreads); err != nil {
				return err
			}

			if rank == 0 {
				if err := collio.WriteHeader(outFile, p); err != nil {
					return err
				}
			}
			if err := g.Barrier(g.Context()); err != nil {
				return err
			}
			if err := collio.WriteStrip(outFile, rank, p, out); err != nil {
				return err
			}
			results[rank] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	assembled := raster.NewImage(p.Width, p.Height)
	for i, rk := range p.Ranks {
		for y := 0; y < rk.LocalHeight; y++ {
			copy(assembled.Row(rk.RowOffset+y), results[i].Row(y))
		}
		results[i].Release()
	}
	return assembled, nil
}

// readHeaderOnly opens path just long enough to parse its BMP header.
func readHeaderOnly(path string) (bmp.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return bmp.Header{}, imgtransform.Abort(imgtransform.ErrorKindIoOpen, err)
	}
	defer f.Close()

	buf := make([]byte, bmp.HeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return bmp.Header{}, imgtransform.Abort(imgtransform.ErrorKindIoRead, err)
	}
	h, err := bmp.ParseHeader(buf)
	if err != nil {
		return bmp.Header{}, imgtransform.Abort(imgtransform.ErrorKindInvalidFormat, err)
	}
	return h, nil
}
