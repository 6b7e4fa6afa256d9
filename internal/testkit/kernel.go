package testkit

import (
	"fmt"
	"math"
	"time"

	"kameleon/domain/chain"
	"kameleon/ports"
)

// ScriptedKernel is a deterministic transition kernel that records every
// call the driver makes. Proposals are current + Offsets[i % len(Offsets)].
type ScriptedKernel struct {
	// LogDensity defaults to an unnormalised standard normal
	LogDensity   func(x []float64) float64
	Offsets      [][]float64
	ForwardLogQ  float64
	BackwardLogQ float64

	// FailAt makes the FailAt-th Proposal call (1-based) return FailErr
	FailAt  int
	FailErr error
	// UpdateErr is returned from every Update call when set
	UpdateErr error

	// Clock, when set, is advanced by Cost inside every Proposal call
	Clock *FakeClock
	Cost  time.Duration

	Calls         int
	Evaluations   int
	Events        []string
	SeenHasLogPDF []bool
	SeenCarry     []ports.Carry
	UpdateLens    []int
	StepSizeLens  []int

	step chain.StepSize
}

func (k *ScriptedKernel) Name() string { return "Scripted" }

func (k *ScriptedKernel) logDensity(x []float64) float64 {
	k.Evaluations++
	if k.LogDensity != nil {
		return k.LogDensity(x)
	}
	return StandardNormalLogPDF(x)
}

func (k *ScriptedKernel) Proposal(req ports.ProposalRequest) (ports.ProposalResult, error) {
	k.Calls++
	k.Events = append(k.Events, fmt.Sprintf("proposal:%d", k.Calls))
	k.SeenHasLogPDF = append(k.SeenHasLogPDF, req.HasLogPDF)
	k.SeenCarry = append(k.SeenCarry, req.Carry)

	if k.Clock != nil {
		k.Clock.Step(k.Cost)
	}
	if k.FailErr != nil && k.Calls == k.FailAt {
		return ports.ProposalResult{}, k.FailErr
	}

	current := req.CurrentLogPDF
	if !req.HasLogPDF {
		current = k.logDensity(req.Current)
	}

	prop := make([]float64, len(req.Current))
	copy(prop, req.Current)
	if len(k.Offsets) > 0 {
		offset := k.Offsets[(k.Calls-1)%len(k.Offsets)]
		for i := range prop {
			prop[i] += offset[i%len(offset)]
		}
	}

	return ports.ProposalResult{
		Proposal:       prop,
		ProposalLogPDF: k.logDensity(prop),
		CurrentLogPDF:  current,
		ForwardLogQ:    k.ForwardLogQ,
		BackwardLogQ:   k.BackwardLogQ,
		Carry:          k.Calls,
	}, nil
}

func (k *ScriptedKernel) MH(currentLogPDF, proposalLogPDF, backwardLogQ, forwardLogQ float64) float64 {
	k.Events = append(k.Events, "mh")
	return math.Min(1, math.Exp(proposalLogPDF-currentLogPDF+backwardLogQ-forwardLogQ))
}

func (k *ScriptedKernel) NextIteration() {
	k.Events = append(k.Events, "next")
}

func (k *ScriptedKernel) Update(samples [][]float64) error {
	k.Events = append(k.Events, "update")
	k.UpdateLens = append(k.UpdateLens, len(samples))
	return k.UpdateErr
}

// UpdateStepSize sets the step size to the sum of the acceptance history so
// tests can see exactly which probabilities were available
func (k *ScriptedKernel) UpdateStepSize(accProbs []float64) {
	k.Events = append(k.Events, "step")
	k.StepSizeLens = append(k.StepSizeLens, len(accProbs))
	sum := 0.0
	for _, p := range accProbs {
		sum += p
	}
	k.step = chain.Scalar(sum)
}

func (k *ScriptedKernel) StepSize() chain.StepSize {
	if k.step == nil {
		return chain.Scalar(1)
	}
	return k.step
}

// StandardNormalLogPDF is -||x||^2 / 2
func StandardNormalLogPDF(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v * v
	}
	return -0.5 * s
}
