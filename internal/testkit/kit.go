package testkit

import (
	"context"
	"math/rand/v2"

	"kameleon/adapters/rng"
	"kameleon/ports"
)

// TestKit bundles deterministic collaborators for tests
type TestKit struct {
	rngAdapter *rng.MT19937Adapter
}

// NewTestKit creates a new test kit
func NewTestKit() *TestKit {
	return &TestKit{rngAdapter: rng.NewMT19937Adapter()}
}

// RNGAdapter returns the seeded RNG port
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rngAdapter
}

// Rand returns a named deterministic stream
func (t *TestKit) Rand(name string, seed uint64) *rand.Rand {
	r, err := t.rngAdapter.SeededStream(context.Background(), name, seed)
	if err != nil {
		panic(err)
	}
	return r
}
