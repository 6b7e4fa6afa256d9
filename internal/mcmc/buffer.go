package mcmc

import (
	"time"

	"kameleon/domain/chain"
)

// buffer holds the per-iteration arrays at full capacity. Sample and
// proposal rows are carved from one flat arena each.
type buffer struct {
	samples   [][]float64
	proposals [][]float64
	accepted  []bool
	accProb   []float64
	logPDF    []float64
	times     []time.Time
	stepSizes []chain.StepSize
}

func newBuffer(numIter, dim int) *buffer {
	return &buffer{
		samples:   rows(numIter, dim),
		proposals: rows(numIter, dim),
		accepted:  make([]bool, numIter),
		accProb:   make([]float64, numIter),
		logPDF:    make([]float64, numIter),
		times:     make([]time.Time, numIter),
		stepSizes: make([]chain.StepSize, numIter),
	}
}

func rows(n, dim int) [][]float64 {
	arena := make([]float64, n*dim)
	out := make([][]float64, n)
	for i := range out {
		out[i] = arena[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return out
}

// trim hands the first n iterations over as a result
func (b *buffer) trim(n int) *chain.Result {
	return &chain.Result{
		Samples:   b.samples[:n:n],
		Proposals: b.proposals[:n:n],
		Accepted:  b.accepted[:n:n],
		AccProb:   b.accProb[:n:n],
		LogPDF:    b.logPDF[:n:n],
		Times:     b.times[:n:n],
		StepSizes: b.stepSizes[:n:n],
	}
}
