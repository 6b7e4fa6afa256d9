package kernels

import (
	"fmt"
	"math/rand/v2"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"kameleon/domain/chain"
	"kameleon/ports"
)

// AdaptiveMetropolis is the adaptive Metropolis kernel of Haario et al.
// (2001). After a warm-up it periodically replaces the proposal covariance
// with the empirical covariance of the chain history plus Gamma2*I, and
// proposes x' ~ N(x, step^2 * Sigma). The proposal stays symmetric.
type AdaptiveMetropolis struct {
	*Base
	// Gamma2 regularises the empirical covariance
	Gamma2 float64
	// WarmUp is the number of iterations before the first adaptation
	WarmUp int
	// AdaptEvery is the adaptation period in iterations
	AdaptEvery int

	rng    *rand.Rand
	noise  *distmv.Normal
	cov    *mat.SymDense
	adapts int
}

// NewAdaptiveMetropolis creates the kernel with an identity initial covariance
func NewAdaptiveMetropolis(target ports.Target, stepSize float64, gamma2 float64, warmUp, adaptEvery int, rng *rand.Rand, opts ...Option) (*AdaptiveMetropolis, error) {
	d := target.Dim()
	if err := checkStepSize(chain.Scalar(stepSize), d); err != nil {
		return nil, err
	}
	if gamma2 < 0 {
		return nil, fmt.Errorf("adaptive metropolis: gamma2 must not be negative, got %v", gamma2)
	}
	if adaptEvery <= 0 {
		adaptEvery = 1
	}

	cov := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		cov.SetSym(i, i, 1)
	}
	k := &AdaptiveMetropolis{
		Base:       newBase(target, chain.Scalar(stepSize), opts...),
		Gamma2:     gamma2,
		WarmUp:     warmUp,
		AdaptEvery: adaptEvery,
		rng:        rng,
	}
	if err := k.setCovariance(cov); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *AdaptiveMetropolis) Name() string { return "AdaptiveMetropolis" }

func (k *AdaptiveMetropolis) Proposal(req ports.ProposalRequest) (ports.ProposalResult, error) {
	current, err := k.currentLogPDF(req)
	if err != nil {
		return ports.ProposalResult{}, err
	}

	delta := k.noise.Rand(nil)
	proposal := vek.Add(req.Current, vek.MulNumber(delta, k.step.Scalar()))

	proposalLogPDF, err := k.Target.LogPDF(proposal)
	if err != nil {
		return ports.ProposalResult{}, err
	}

	return ports.ProposalResult{
		Proposal:       proposal,
		ProposalLogPDF: proposalLogPDF,
		CurrentLogPDF:  current,
		Carry:          req.Carry,
	}, nil
}

// Update re-estimates the proposal covariance from the chain history once
// the warm-up is over, every AdaptEvery iterations
func (k *AdaptiveMetropolis) Update(samples [][]float64) error {
	if k.t < k.WarmUp || k.t%k.AdaptEvery != 0 || len(samples) < 2 {
		return nil
	}

	x := mat.NewDense(len(samples), k.D, nil)
	for i, s := range samples {
		x.SetRow(i, s)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	for i := 0; i < k.D; i++ {
		cov.SetSym(i, i, cov.At(i, i)+k.Gamma2)
	}
	return k.setCovariance(&cov)
}

// Covariance returns a copy of the current proposal covariance
func (k *AdaptiveMetropolis) Covariance() *mat.SymDense {
	out := mat.NewSymDense(k.D, nil)
	out.CopySym(k.cov)
	return out
}

// Adaptations returns how many times the covariance was re-estimated
func (k *AdaptiveMetropolis) Adaptations() int {
	return k.adapts
}

func (k *AdaptiveMetropolis) setCovariance(cov *mat.SymDense) error {
	noise, ok := distmv.NewNormal(make([]float64, k.D), cov, k.rng)
	if !ok {
		return fmt.Errorf("adaptive metropolis: proposal covariance is not positive definite at iteration %d", k.t)
	}
	if k.cov != nil {
		k.adapts++
	}
	k.cov = cov
	k.noise = noise
	return nil
}
