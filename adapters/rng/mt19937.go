package rng

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/mathext/prng"
)

// MT19937Adapter implements ports.RNGPort on top of gonum's Mersenne Twister
type MT19937Adapter struct{}

// NewMT19937Adapter creates the production RNG adapter
func NewMT19937Adapter() *MT19937Adapter {
	return &MT19937Adapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *MT19937Adapter) SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return New(mix(seed, name)), nil
}

// Stream creates a deterministic stream for a run and consumer pair
func (a *MT19937Adapter) Stream(ctx context.Context, runID, consumer string, baseSeed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return New(mix(mix(baseSeed, runID), consumer)), nil
}

// New returns a math/rand/v2 generator driven by a seeded MT19937 source
func New(seed uint64) *rand.Rand {
	src := prng.NewMT19937()
	src.Seed(seed)
	return rand.New(src)
}

// mix folds a label into a seed with djb2 so that named streams are independent
func mix(seed uint64, label string) uint64 {
	if label == "" {
		return seed
	}
	var hash uint64 = 5381
	for _, c := range label {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return seed ^ (hash * 0x9E3779B97F4A7C15)
}
