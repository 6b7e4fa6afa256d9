package kernels

import (
	"math"

	"kameleon/domain/chain"
	"kameleon/domain/core"
	"kameleon/ports"
)

// Schedule maps the iteration counter to a Robbins-Monro learning rate
type Schedule func(t int) float64

// PowerSchedule returns t -> 1/(t+1)^alpha
func PowerSchedule(alpha float64) Schedule {
	return func(t int) float64 {
		return 1 / math.Pow(float64(t+1), alpha)
	}
}

// Option configures the shared kernel state
type Option func(*Base)

// WithStepSizeAdaptation enables Robbins-Monro tuning of the log step size
// towards the acceptance rate accStar
func WithStepSizeAdaptation(accStar float64, schedule Schedule) Option {
	return func(b *Base) {
		b.AccStar = accStar
		b.Schedule = schedule
	}
}

// Base carries the state every reference kernel shares: the target, the
// step size, the iteration counter and the step size schedule
type Base struct {
	Target   ports.Target
	D        int
	AccStar  float64
	Schedule Schedule

	step chain.StepSize
	t    int
}

func newBase(target ports.Target, stepSize chain.StepSize, opts ...Option) *Base {
	b := &Base{
		Target: target,
		D:      target.Dim(),
		step:   stepSize.Clone(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MH is the canonical Metropolis-Hastings acceptance probability
func (b *Base) MH(currentLogPDF, proposalLogPDF, backwardLogQ, forwardLogQ float64) float64 {
	return AcceptanceProbability(currentLogPDF, proposalLogPDF, backwardLogQ, forwardLogQ)
}

// AcceptanceProbability computes min(1, exp(lp' - lp + log q(x|x') - log q(x'|x))).
// An undefined log ratio (both densities -Inf) rejects.
func AcceptanceProbability(currentLogPDF, proposalLogPDF, backwardLogQ, forwardLogQ float64) float64 {
	logRatio := proposalLogPDF - currentLogPDF + backwardLogQ - forwardLogQ
	switch {
	case math.IsNaN(logRatio):
		return 0
	case logRatio >= 0:
		return 1
	default:
		return math.Exp(logRatio)
	}
}

func (b *Base) NextIteration() {
	b.t++
}

// Iteration returns how many iterations the kernel has completed
func (b *Base) Iteration() int {
	return b.t
}

func (b *Base) Update(samples [][]float64) error {
	return nil
}

// UpdateStepSize moves the log step size by lambda_t * (latest acceptance - AccStar).
// Without a schedule or target acceptance rate the step size stays fixed.
func (b *Base) UpdateStepSize(accProbs []float64) {
	if b.Schedule == nil || b.AccStar <= 0 || len(accProbs) == 0 {
		return
	}
	lambda := b.Schedule(b.t)
	diff := accProbs[len(accProbs)-1] - b.AccStar
	for i, s := range b.step {
		b.step[i] = math.Exp(math.Log(s) + lambda*diff)
	}
}

func (b *Base) StepSize() chain.StepSize {
	return b.step
}

// currentLogPDF returns the cached density or evaluates the target
func (b *Base) currentLogPDF(req ports.ProposalRequest) (float64, error) {
	if len(req.Current) != b.D {
		return 0, core.NewDimensionError("current state", b.D, len(req.Current))
	}
	if req.HasLogPDF {
		return req.CurrentLogPDF, nil
	}
	return b.Target.LogPDF(req.Current)
}

// scale broadcasts the step size to one factor per dimension
func (b *Base) scale() []float64 {
	out := make([]float64, b.D)
	for i := range out {
		out[i] = b.step[i%len(b.step)]
	}
	return out
}
