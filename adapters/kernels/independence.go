package kernels

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"kameleon/domain/chain"
	"kameleon/ports"
)

// Independence is an independence sampler: proposals come from a fixed
// Gaussian q regardless of the current state. The proposal is asymmetric,
// forward is log q(x') and backward is log q(x).
type Independence struct {
	*Base
	q *distmv.Normal
}

// independenceCarry remembers q evaluated at the last current state and
// the last proposal, one of which is the next current state
type independenceCarry struct {
	current      []float64
	currentLogQ  float64
	proposal     []float64
	proposalLogQ float64
}

// NewIndependence creates an independence sampler with q = N(mu, sigma^2 I)
func NewIndependence(target ports.Target, mu []float64, sigma float64, rng *rand.Rand) (*Independence, error) {
	d := target.Dim()
	if len(mu) != d {
		return nil, fmt.Errorf("independence kernel: mean has %d components, expected %d", len(mu), d)
	}
	if err := checkStepSize(chain.Scalar(sigma), d); err != nil {
		return nil, err
	}
	cov := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		cov.SetSym(i, i, sigma*sigma)
	}
	q, ok := distmv.NewNormal(mu, cov, rng)
	if !ok {
		return nil, fmt.Errorf("independence kernel: invalid proposal covariance")
	}
	return &Independence{
		Base: newBase(target, chain.Scalar(sigma)),
		q:    q,
	}, nil
}

func (k *Independence) Name() string { return "Independence" }

func (k *Independence) Proposal(req ports.ProposalRequest) (ports.ProposalResult, error) {
	current, err := k.currentLogPDF(req)
	if err != nil {
		return ports.ProposalResult{}, err
	}

	proposal := k.q.Rand(nil)
	proposalLogPDF, err := k.Target.LogPDF(proposal)
	if err != nil {
		return ports.ProposalResult{}, err
	}

	backward := k.logQ(req.Current, req.Carry)
	forward := k.q.LogProb(proposal)

	return ports.ProposalResult{
		Proposal:       proposal,
		ProposalLogPDF: proposalLogPDF,
		CurrentLogPDF:  current,
		ForwardLogQ:    forward,
		BackwardLogQ:   backward,
		Carry: independenceCarry{
			current:      append([]float64(nil), req.Current...),
			currentLogQ:  backward,
			proposal:     proposal,
			proposalLogQ: forward,
		},
	}, nil
}

// logQ reuses the carried evaluation when the current state is one of the
// two states seen last iteration
func (k *Independence) logQ(x []float64, carry ports.Carry) float64 {
	if c, ok := carry.(independenceCarry); ok {
		switch {
		case floats.Equal(x, c.proposal):
			return c.proposalLogQ
		case floats.Equal(x, c.current):
			return c.currentLogQ
		}
	}
	return k.q.LogProb(x)
}

// UpdateStepSize is a no-op: q is fixed, so the reported step size is its scale
func (k *Independence) UpdateStepSize(accProbs []float64) {}
