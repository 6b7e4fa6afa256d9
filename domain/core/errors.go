package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrNilKernel         = errors.New("transition kernel is nil")
	ErrInvalidNumIter    = errors.New("number of iterations must be positive")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrStartDimension    = errors.New("invalid chain dimension")
	ErrInvalidTimeBudget = errors.New("time budget must not be negative")
	ErrUnknownKernel     = errors.New("unknown transition kernel")
	ErrUnknownTarget     = errors.New("unknown target distribution")

	// Kernel contract errors
	ErrProposalShape = errors.New("malformed proposal")

	// Result errors
	ErrInvariantViolated = errors.New("chain invariant violated")
)

// Error constructors with context
func NewDimensionError(what string, expected, got int) error {
	return fmt.Errorf("%w: %s has length %d, expected %d", ErrDimensionMismatch, what, got, expected)
}

// NewStartDimensionError rejects a run whose dimension or start state is unusable.
// It matches both ErrStartDimension and ErrDimensionMismatch.
func NewStartDimensionError(what string, expected, got int) error {
	return fmt.Errorf("%w: %w: %s has length %d, expected %d", ErrStartDimension, ErrDimensionMismatch, what, got, expected)
}

func NewProposalShapeError(iteration, expected, got int) error {
	return fmt.Errorf("%w at iteration %d: length %d, expected %d", ErrProposalShape, iteration, got, expected)
}

func NewInvariantError(iteration int, reason string) error {
	return fmt.Errorf("%w at iteration %d: %s", ErrInvariantViolated, iteration, reason)
}

// IsConfigurationError reports errors raised before sampling starts. Dimension
// mismatches raised by a kernel or target during sampling are not included.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrNilKernel) ||
		errors.Is(err, ErrInvalidNumIter) ||
		errors.Is(err, ErrStartDimension) ||
		errors.Is(err, ErrInvalidTimeBudget) ||
		errors.Is(err, ErrUnknownKernel) ||
		errors.Is(err, ErrUnknownTarget)
}
