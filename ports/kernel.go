package ports

import (
	"kameleon/domain/chain"
)

// Carry is kernel-owned state handed back by one Proposal call and passed
// unchanged into the next. The driver never inspects it.
type Carry any

// ProposalRequest is the input to Kernel.Proposal
type ProposalRequest struct {
	Current []float64
	// CurrentLogPDF is only meaningful when HasLogPDF is set. Kernels must
	// recompute the current log density otherwise.
	CurrentLogPDF float64
	HasLogPDF     bool
	Carry         Carry
}

// ProposalResult is everything the driver needs to run the MH test
type ProposalResult struct {
	Proposal       []float64
	ProposalLogPDF float64
	CurrentLogPDF  float64
	// ForwardLogQ is log q(proposal | current)
	ForwardLogQ float64
	// BackwardLogQ is log q(current | proposal)
	BackwardLogQ float64
	Carry        Carry
}

// Kernel is the transition kernel contract consumed by the MCMC driver.
//
// Calls happen strictly in iteration order: Proposal, MH, then the
// end-of-iteration hooks NextIteration, Update and UpdateStepSize.
// Slices handed to the kernel are views into the driver's result buffers
// and must not be modified or retained past the call.
type Kernel interface {
	// Name is a display label used in log messages
	Name() string

	Proposal(req ProposalRequest) (ProposalResult, error)

	// MH returns the Metropolis-Hastings acceptance probability in [0, 1]
	MH(currentLogPDF, proposalLogPDF, backwardLogQ, forwardLogQ float64) float64

	NextIteration()

	// Update receives every chain state up to and including the current iteration
	Update(samples [][]float64) error

	// UpdateStepSize receives every acceptance probability up to and including the current iteration
	UpdateStepSize(accProbs []float64)

	StepSize() chain.StepSize
}
