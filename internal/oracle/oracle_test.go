package oracle

import (
	"context"
	"testing"

	"github.com/gostencil/imgtransform/internal/kernel"
	"github.com/gostencil/imgtransform/internal/raster"
)

func TestRunIdentity(t *testing.T) {
	img := raster.NewImage(4, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, raster.Pixel{R: uint8(y), G: uint8(x), B: uint8(x + y)})
		}
	}
	got, err := Run(context.Background(), img, kernel.Identity3)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(img, got) {
		x, y, _ := FirstMismatch(img, got)
		t.Fatalf("identity kernel changed pixel (%d,%d): got %+v, want %+v", x, y, got.At(x, y), img.At(x, y))
	}
}

func TestEqualDetectsSizeMismatch(t *testing.T) {
	a := raster.NewImage(3, 3)
	b := raster.NewImage(4, 3)
	if Equal(a, b) {
		t.Fatal("Equal: want false for mismatched dimensions")
	}
}

func TestFirstMismatchLocatesDifference(t *testing.T) {
	a := raster.NewImage(3, 2)
	b := raster.NewImage(3, 2)
	b.Set(2, 1, raster.Pixel{R: 9})
	x, y, ok := FirstMismatch(a, b)
	if !ok {
		t.Fatal("FirstMismatch: want ok=true")
	}
	if x != 2 || y != 1 {
		t.Errorf("FirstMismatch = (%d,%d), want (2,1)", x, y)
	}
}

func TestBoxBlurMatchesHandComputedCorner(t *testing.T) {
	k, ok := kernel.Lookup("BOXBLUR")
	if !ok {
		t.Fatal("BOXBLUR not registered")
	}
	img := raster.NewImage(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, raster.Pixel{R: 255, G: 255, B: 255})
		}
	}
	got, err := Run(context.Background(), img, k)
	if err != nil {
		t.Fatal(err)
	}
	// All nine taps land on either the white square or zero padding; only
	// the four interior taps are white, so each channel averages 255*4/9.
	want := uint8((255 * 4) / 9)
	p := got.At(0, 0)
	if p.R != want || p.G != want || p.B != want {
		t.Errorf("corner = %+v, want R=G=B=%d", p, want)
	}
}
