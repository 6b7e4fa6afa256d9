package mcmc

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"kameleon/domain/chain"
	"kameleon/domain/core"
	"kameleon/ports"
)

// Driver runs a single Metropolis-Hastings chain against a transition kernel.
// A Driver is not safe for concurrent use: its random source is consumed by
// every run.
type Driver struct {
	logger           ports.Logger
	rng              *rand.Rand
	clock            ports.Clock
	progressInterval time.Duration
}

// NewDriver creates a driver with a no-op logger, the system clock and a
// fixed-seed MT19937 source unless overridden by options
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		logger:           ports.NopLogger{},
		clock:            ports.SystemClock{},
		progressInterval: DefaultProgressInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = defaultRand()
	}
	return d
}

// Run samples up to numIter iterations starting from start.
//
// The returned result holds exactly the iterations that completed. A time
// budget that runs out is not an error. A cancelled context stops the chain
// at the next iteration boundary and the partial result is returned together
// with ctx.Err(). Errors from the kernel are returned as they are, with a
// nil result.
func (d *Driver) Run(ctx context.Context, kernel ports.Kernel, start []float64, numIter, dimension int, opts RunOptions) (*chain.Result, error) {
	if err := validateRun(kernel, start, numIter, dimension, opts); err != nil {
		return nil, err
	}

	runID := core.NewRunID()
	buf := newBuffer(numIter, dimension)
	progress := newProgressReporter(d.progressInterval)

	current := make([]float64, dimension)
	copy(current, start)
	var (
		currentLogPDF float64
		hasLogPDF     bool
		carry         ports.Carry
		avgAccept     RunningMean
		completed     int
		truncated     bool
		stopErr       error
	)

	d.logger.Info("Starting MCMC using %s in D=%d dimensions (run %s)", kernel.Name(), dimension, runID.Short())

	for it := 0; it < numIter; it++ {
		buf.times[it] = d.clock.Now()

		if opts.TimeBudget > 0 && buf.times[it].After(buf.times[0].Add(opts.TimeBudget)) {
			d.logger.Info("Time limit of %s exceeded. Stopping MCMC at iteration %d.", opts.TimeBudget, it)
			truncated = true
			break
		}
		if err := ctx.Err(); err != nil {
			d.logger.Info("Context done (%v). Stopping MCMC at iteration %d.", err, it)
			truncated = true
			stopErr = err
			break
		}

		if progress.due(buf.times[it]) {
			prevLogPDF := math.NaN()
			if it > 0 {
				prevLogPDF = buf.logPDF[it-1]
			}
			d.logger.Info("MCMC iteration %d/%d, current log_pdf: %.6f, avg acceptance: %.3f, step_size: %s",
				it+1, numIter, prevLogPDF, avgAccept.Mean(), kernel.StepSize())
		}

		// marginal samplers: force a fresh estimate of the current state's density
		if opts.RecomputeLogPDF {
			hasLogPDF = false
		}

		d.logger.Debug("Performing MCMC step %d", it)
		prop, err := kernel.Proposal(ports.ProposalRequest{
			Current:       current,
			CurrentLogPDF: currentLogPDF,
			HasLogPDF:     hasLogPDF,
			Carry:         carry,
		})
		if err != nil {
			return nil, err
		}
		if len(prop.Proposal) != dimension {
			return nil, core.NewProposalShapeError(it, dimension, len(prop.Proposal))
		}
		copy(buf.proposals[it], prop.Proposal)
		currentLogPDF = prop.CurrentLogPDF
		hasLogPDF = true
		carry = prop.Carry

		accProb := clipProbability(kernel.MH(currentLogPDF, prop.ProposalLogPDF, prop.BackwardLogQ, prop.ForwardLogQ))
		buf.accProb[it] = accProb

		accepted := d.rng.Float64() < accProb
		buf.accepted[it] = accepted

		d.logger.Debug("Proposed %v", buf.proposals[it])
		d.logger.Debug("Acceptance prob %.4f", accProb)
		d.logger.Debug("Accepted: %t", accepted)

		if accepted {
			avgAccept.Add(1)
			current = buf.proposals[it]
			currentLogPDF = prop.ProposalLogPDF
		} else {
			avgAccept.Add(0)
		}

		copy(buf.samples[it], current)
		current = buf.samples[it]
		buf.logPDF[it] = currentLogPDF

		kernel.NextIteration()
		if err := kernel.Update(buf.samples[:it+1]); err != nil {
			return nil, err
		}
		kernel.UpdateStepSize(buf.accProb[:it+1])

		buf.stepSizes[it] = kernel.StepSize().Clone()
		completed = it + 1
	}

	result := buf.trim(completed)
	result.RunID = runID
	result.KernelName = kernel.Name()
	result.Dimension = dimension
	result.NumIter = numIter
	result.AcceptanceRate = avgAccept.Mean()
	result.Truncated = truncated

	d.logger.Info("Finished MCMC after %d/%d iterations, avg acceptance: %.3f", completed, numIter, avgAccept.Mean())
	return result, stopErr
}

func validateRun(kernel ports.Kernel, start []float64, numIter, dimension int, opts RunOptions) error {
	if kernel == nil {
		return core.ErrNilKernel
	}
	if numIter <= 0 {
		return core.ErrInvalidNumIter
	}
	if dimension <= 0 {
		return core.NewStartDimensionError("dimension", 1, dimension)
	}
	if len(start) != dimension {
		return core.NewStartDimensionError("start state", dimension, len(start))
	}
	if opts.TimeBudget < 0 {
		return core.ErrInvalidTimeBudget
	}
	return nil
}

// clipProbability maps the kernel's MH output into [0, 1]; NaN rejects
func clipProbability(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
