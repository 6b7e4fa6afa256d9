package mcmc

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mathext/prng"

	"kameleon/ports"
)

// DefaultProgressInterval is the wall-clock cadence of progress messages
const DefaultProgressInterval = 5 * time.Second

// Option configures a Driver
type Option func(*Driver)

// WithLogger injects the logger used for progress and debug messages
func WithLogger(logger ports.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRand sets the source of the uniform accept/reject draws. Reproducible
// runs need a caller-seeded generator.
func WithRand(rng *rand.Rand) Option {
	return func(d *Driver) {
		if rng != nil {
			d.rng = rng
		}
	}
}

// WithClock replaces the wall clock, mainly for tests
func WithClock(clock ports.Clock) Option {
	return func(d *Driver) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithProgressInterval sets how often progress is logged. Zero disables progress messages.
func WithProgressInterval(interval time.Duration) Option {
	return func(d *Driver) {
		d.progressInterval = interval
	}
}

// RunOptions are the per-run switches of Driver.Run
type RunOptions struct {
	// RecomputeLogPDF makes the kernel re-evaluate the current state's log
	// density every iteration instead of trusting the cached value. Needed
	// when the density is a stochastic estimate.
	RecomputeLogPDF bool
	// TimeBudget bounds total sampling time measured from the first
	// iteration's timestamp. Zero means no budget.
	TimeBudget time.Duration
}

func defaultRand() *rand.Rand {
	src := prng.NewMT19937()
	src.Seed(0)
	return rand.New(src)
}
