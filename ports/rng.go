package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for a specific run and consumer.
	// Distinct consumers (accept/reject draws, proposals, target noise) get
	// independent streams so that adding draws in one does not shift another.
	Stream(ctx context.Context, runID, consumer string, baseSeed uint64) (*rand.Rand, error)
}
