package kernel

import (
	"math"
	"testing"
)

func TestLookupKnownNames(t *testing.T) {
	for _, name := range Names {
		k, ok := Lookup(name)
		if !ok {
			t.Errorf("Lookup(%q): not found", name)
			continue
		}
		if k.Size != 3 && k.Size != 5 {
			t.Errorf("Lookup(%q): size = %d, want 3 or 5", name, k.Size)
		}
		if len(k.Coefficients) != k.Size*k.Size {
			t.Errorf("Lookup(%q): %d coefficients, want %d", name, len(k.Coefficients), k.Size*k.Size)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("ridge"); ok {
		t.Error("Lookup(\"ridge\"): want not found (case-sensitive), got found")
	}
	if _, ok := Lookup("SOBEL"); ok {
		t.Error("Lookup(\"SOBEL\"): want not found, got found")
	}
}

func TestPadding(t *testing.T) {
	k3, _ := Lookup("RIDGE")
	if k3.Padding() != 1 {
		t.Errorf("RIDGE padding = %d, want 1", k3.Padding())
	}
	k5, _ := Lookup("GAUSSIANBLUR5")
	if k5.Padding() != 2 {
		t.Errorf("GAUSSIANBLUR5 padding = %d, want 2", k5.Padding())
	}
}

func TestBoxBlurSumsToOne(t *testing.T) {
	k, _ := Lookup("BOXBLUR")
	sum := 0.0
	for _, c := range k.Coefficients {
		sum += c
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("BOXBLUR coefficients sum to %v, want 1", sum)
	}
}

func TestGaussianBlur5SumsToOne(t *testing.T) {
	k, _ := Lookup("GAUSSIANBLUR5")
	sum := 0.0
	for _, c := range k.Coefficients {
		sum += c
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("GAUSSIANBLUR5 coefficients sum to %v, want 1", sum)
	}
}

func TestUnsharp5SumsToOne(t *testing.T) {
	k, _ := Lookup("UNSHARP5")
	sum := 0.0
	for _, c := range k.Coefficients {
		sum += c
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("UNSHARP5 coefficients sum to %v, want 1", sum)
	}
}

func TestIdentityKernels(t *testing.T) {
	if Identity1.Padding() != 0 {
		t.Errorf("Identity1 padding = %d, want 0", Identity1.Padding())
	}
	if Identity3.At(1, 1) != 1 {
		t.Errorf("Identity3 center = %v, want 1", Identity3.At(1, 1))
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == 1 && j == 1 {
				continue
			}
			if Identity3.At(i, j) != 0 {
				t.Errorf("Identity3.At(%d,%d) = %v, want 0", i, j, Identity3.At(i, j))
			}
		}
	}
}
