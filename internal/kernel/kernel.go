// Package kernel holds the table of named convolution kernels the CLI
// dispatches on. This table is not part of the stencil engine's core: the
// core (internal/convolve) consumes a Kernel as an opaque square matrix,
// but a complete program needs a concrete registry the same way cmd/gwebp
// needs a concrete preset table.
package kernel

import "fmt"

// Kernel is a square matrix of K*K real coefficients with K odd.
type Kernel struct {
	Size         int // K
	Coefficients []float64
}

// Padding returns K/2.
func (k Kernel) Padding() int {
	return k.Size / 2
}

// At returns the coefficient at row i, column j, both in [0, Size).
func (k Kernel) At(i, j int) float64 {
	return k.Coefficients[i*k.Size+j]
}

func newKernel(size int, coeffs ...float64) Kernel {
	if len(coeffs) != size*size {
		panic(fmt.Sprintf("kernel: %d coefficients for size %d", len(coeffs), size))
	}
	return Kernel{Size: size, Coefficients: coeffs}
}

// Identity1 is the 1x1 identity kernel [1], used by the 1x1 identity-kernel
// convolution test.
var Identity1 = newKernel(1, 1)

// Identity3 is the 3x3 kernel that is zero everywhere except a central 1.
var Identity3 = newKernel(3,
	0, 0, 0,
	0, 1, 0,
	0, 0, 0,
)

var registry = map[string]Kernel{
	"RIDGE": newKernel(3,
		0, -1, 0,
		-1, 4, -1,
		0, -1, 0,
	),
	"EDGE": newKernel(3,
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	),
	"SHARPEN": newKernel(3,
		0, -1, 0,
		-1, 5, -1,
		0, -1, 0,
	),
	"BOXBLUR": newKernel(3,
		1.0/9, 1.0/9, 1.0/9,
		1.0/9, 1.0/9, 1.0/9,
		1.0/9, 1.0/9, 1.0/9,
	),
	"GAUSSIANBLUR3": newKernel(3,
		1.0/16, 2.0/16, 1.0/16,
		2.0/16, 4.0/16, 2.0/16,
		1.0/16, 2.0/16, 1.0/16,
	),
	"GAUSSIANBLUR5": newKernel(5,
		1.0/256, 4.0/256, 6.0/256, 4.0/256, 1.0/256,
		4.0/256, 16.0/256, 24.0/256, 16.0/256, 4.0/256,
		6.0/256, 24.0/256, 36.0/256, 24.0/256, 6.0/256,
		4.0/256, 16.0/256, 24.0/256, 16.0/256, 4.0/256,
		1.0/256, 4.0/256, 6.0/256, 4.0/256, 1.0/256,
	),
	"UNSHARP5": newKernel(5,
		1.0/-256, 4.0/-256, 6.0/-256, 4.0/-256, 1.0/-256,
		4.0/-256, 16.0/-256, 24.0/-256, 16.0/-256, 4.0/-256,
		6.0/-256, 24.0/-256, 476.0/256, 24.0/-256, 6.0/-256,
		4.0/-256, 16.0/-256, 24.0/-256, 16.0/-256, 4.0/-256,
		1.0/-256, 4.0/-256, 6.0/-256, 4.0/-256, 1.0/-256,
	),
}

// Names are the seven documented operation tokens.
var Names = []string{
	"RIDGE", "EDGE", "SHARPEN", "BOXBLUR", "GAUSSIANBLUR3", "GAUSSIANBLUR5", "UNSHARP5",
}

// Lookup returns the kernel registered for the given operation token. The
// token must match exactly (case-sensitive).
func Lookup(operation string) (Kernel, bool) {
	k, ok := registry[operation]
	return k, ok
}
