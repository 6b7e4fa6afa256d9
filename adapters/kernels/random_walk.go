package kernels

import (
	"fmt"
	"math/rand/v2"

	"github.com/viterin/vek"

	"kameleon/domain/chain"
	"kameleon/ports"
)

// RandomWalk is an isotropic Gaussian random-walk Metropolis kernel. The
// proposal is symmetric, so both proposal log densities are zero.
type RandomWalk struct {
	*Base
	rng *rand.Rand
}

// NewRandomWalk creates a random-walk kernel. stepSize may be a scalar or
// one value per dimension.
func NewRandomWalk(target ports.Target, stepSize chain.StepSize, rng *rand.Rand, opts ...Option) (*RandomWalk, error) {
	if err := checkStepSize(stepSize, target.Dim()); err != nil {
		return nil, err
	}
	return &RandomWalk{
		Base: newBase(target, stepSize, opts...),
		rng:  rng,
	}, nil
}

func (k *RandomWalk) Name() string { return "RandomWalk" }

func (k *RandomWalk) Proposal(req ports.ProposalRequest) (ports.ProposalResult, error) {
	current, err := k.currentLogPDF(req)
	if err != nil {
		return ports.ProposalResult{}, err
	}

	z := make([]float64, k.D)
	for i := range z {
		z[i] = k.rng.NormFloat64()
	}
	proposal := vek.Add(req.Current, vek.Mul(z, k.scale()))

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

func checkStepSize(stepSize chain.StepSize, d int) error {
	if len(stepSize) != 1 && len(stepSize) != d {
		return fmt.Errorf("step size must be scalar or have %d components, got %d", d, len(stepSize))
	}
	for _, s := range stepSize {
		if !(s > 0) {
			return fmt.Errorf("step size must be positive, got %v", s)
		}
	}
	return nil
}
