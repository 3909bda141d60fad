// Package imgtransform applies a 2-D convolution kernel to a 24-bit BMP
// image using a simulated distributed-memory row decomposition (goroutines
// standing in for MPI ranks) combined with intra-rank thread parallelism.
//
// See internal/driver for the orchestration, internal/convolve for the
// per-pixel stencil, and internal/cluster for the rank-group abstraction
// that replaces MPI_COMM_WORLD.
package imgtransform

import "fmt"

// ErrorKind classifies a fatal error, matching the error kinds in the
// system's error-handling design: every kind is fatal and global, there is
// no partial success, and a single rank's failure terminates the whole run.
type ErrorKind int

const (
	// ErrorKindInvalidUsage signals a wrong argument count or non-positive
	// thread count.
	ErrorKindInvalidUsage ErrorKind = iota
	// ErrorKindUnknownOperation signals an operation token that is not in
	// the kernel registry.
	ErrorKindUnknownOperation
	// ErrorKindIoOpen signals a file that could not be opened.
	ErrorKindIoOpen
	// ErrorKindIoRead signals a read that returned a short count or failed.
	ErrorKindIoRead
	// ErrorKindIoWrite signals a write that returned a short count or failed.
	ErrorKindIoWrite
	// ErrorKindInvalidFormat signals a file that is not a 24-bpp BMP.
	ErrorKindInvalidFormat
	// ErrorKindAllocationFailure signals a buffer allocation failure.
	ErrorKindAllocationFailure
	// ErrorKindPartitionInfeasible signals local_height(i) < padding for
	// some rank.
	ErrorKindPartitionInfeasible
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInvalidUsage:
		return "InvalidUsage"
	case ErrorKindUnknownOperation:
		return "UnknownOperation"
	case ErrorKindIoOpen:
		return "IoOpen"
	case ErrorKindIoRead:
		return "IoRead"
	case ErrorKindIoWrite:
		return "IoWrite"
	case ErrorKindInvalidFormat:
		return "InvalidFormat"
	case ErrorKindAllocationFailure:
		return "AllocationFailure"
	case ErrorKindPartitionInfeasible:
		return "PartitionInfeasible"
	default:
		return "Unknown"
	}
}

// FatalError is the sentinel carried across the rank group on any
// unrecoverable error. Propagation is global: the first FatalError
// observed by any rank cancels the whole run (internal/cluster.Group).
type FatalError struct {
	Kind ErrorKind
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Abort builds a FatalError for the given kind and underlying cause.
func Abort(kind ErrorKind, err error) *FatalError {
	return &FatalError{Kind: kind, Err: err}
}
