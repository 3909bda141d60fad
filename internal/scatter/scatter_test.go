package scatter

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/gostencil/imgtransform/internal/bmp"
	"github.com/gostencil/imgtransform/internal/raster"
	"github.com/gostencil/imgtransform/internal/strip"
)

func makeTestBMP(t *testing.T, width, height int) []byte {
	t.Helper()
	img := raster.NewImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, raster.Pixel{R: uint8(y), G: uint8(x), B: uint8(x + y)})
		}
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestScatterGatherRoundTrip(t *testing.T) {
	const width, height, numRanks = 5, 9, 3
	data := makeTestBMP(t, width, height)

	src, err := Load(bytes.NewReader(data), numRanks, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := NewChannels(numRanks)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ScatterFrom(ctx, ch, src); err != nil {
			t.Errorf("ScatterFrom: %v", err)
		}
	}()

	strips := make([]*strip.Strip, numRanks)
	for i := 0; i < numRanks; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			s, _ := strip.Allocate(src.Partition.Ranks[rank].LocalHeight, width, 0)
			if err := ReceiveInto(ctx, ch, rank, s); err != nil {
				t.Errorf("ReceiveInto(%d): %v", rank, err)
				return
			}
			strips[rank] = s
		}(i)
	}
	wg.Wait()

	// Verify every rank received exactly its rows, identity-pass-through.
	for i, rk := range src.Partition.Ranks {
		s := strips[i]
		for y := 0; y < rk.LocalHeight; y++ {
			globalY := rk.RowOffset + y
			row := s.RealRow(y)
			for x := 0; x < width; x++ {
				want := raster.Pixel{R: uint8(globalY), G: uint8(x), B: uint8(x + globalY)}
				if row[x] != want {
					t.Errorf("rank %d row %d col %d = %+v, want %+v", i, y, x, row[x], want)
				}
			}
		}
	}

	// Now gather identity outputs back and confirm round trip.
	for i := 0; i < numRanks; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			s := strips[rank]
			out := &strip.OutputStrip{Height: s.Height, Width: s.Width, Pix: make([]raster.Pixel, s.Height*s.Width)}
			for y := 0; y < s.Height; y++ {
				copy(out.Row(y), s.RealRow(y))
			}
			if err := SendResult(ctx, ch, rank, out); err != nil {
				t.Errorf("SendResult(%d): %v", rank, err)
			}
		}(i)
	}

	gathered, err := GatherInto(ctx, ch, src.Partition, width)
	wg.Wait()
	if err != nil {
		t.Fatalf("GatherInto: %v", err)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if gathered.At(x, y) != src.Image.At(x, y) {
				t.Errorf("gathered (%d,%d) = %+v, want %+v", x, y, gathered.At(x, y), src.Image.At(x, y))
			}
		}
	}
}

func TestLoadRejectsInfeasiblePartition(t *testing.T) {
	data := makeTestBMP(t, 4, 4)
	// 4 ranks over 4 rows => local height 1 per rank; padding 2 is
	// infeasible (halo would need to reach 2 ranks away).
	if _, err := Load(bytes.NewReader(data), 4, 2); err == nil {
		t.Fatal("Load: want PartitionInfeasible error, got nil")
	}
}

func TestLoadRejectsBadFormat(t *testing.T) {
	if _, err := Load(bytes.NewReader([]byte("not a bmp")), 1, 0); err == nil {
		t.Fatal("Load: want InvalidFormat error, got nil")
	}
}
