package mcmc

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kameleon/adapters/kernels"
	"kameleon/adapters/rng"
	"kameleon/adapters/targets"
	"kameleon/domain/chain"
	"kameleon/domain/core"
	"kameleon/internal/testkit"
	"kameleon/ports"
)

func newTestDriver(clock ports.Clock, opts ...Option) *Driver {
	base := []Option{WithRand(rng.New(42)), WithClock(clock)}
	return NewDriver(append(base, opts...)...)
}

func gaussianRandomWalk(t *testing.T, step float64, seed uint64) (*kernels.RandomWalk, *targets.Gaussian) {
	t.Helper()
	target, err := targets.NewIsotropicGaussian(2, 1)
	require.NoError(t, err)
	k, err := kernels.NewRandomWalk(target, chain.Scalar(step), rng.New(seed))
	require.NoError(t, err)
	return k, target
}

func TestRunValidation(t *testing.T) {
	kernel := &testkit.ScriptedKernel{}
	tests := []struct {
		name      string
		kernel    ports.Kernel
		start     []float64
		numIter   int
		dimension int
		opts      RunOptions
		expected  error
	}{
		{"nil kernel", nil, []float64{0}, 10, 1, RunOptions{}, core.ErrNilKernel},
		{"zero iterations", kernel, []float64{0}, 0, 1, RunOptions{}, core.ErrInvalidNumIter},
		{"negative iterations", kernel, []float64{0}, -5, 1, RunOptions{}, core.ErrInvalidNumIter},
		{"start longer than dimension", kernel, []float64{0, 0}, 10, 1, RunOptions{}, core.ErrStartDimension},
		{"zero dimension", kernel, []float64{}, 10, 0, RunOptions{}, core.ErrStartDimension},
		{"negative budget", kernel, []float64{0}, 10, 1, RunOptions{TimeBudget: -time.Second}, core.ErrInvalidTimeBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDriver(testkit.NewFakeClock(0))
			result, err := d.Run(context.Background(), tt.kernel, tt.start, tt.numIter, tt.dimension, tt.opts)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.expected)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
	assert.Zero(t, kernel.Calls, "no kernel call before validation passes")
}

func TestRunCarriesStateForwardOnReject(t *testing.T) {
	// alternate an uphill move with a steep downhill one so both branches occur
	kernel := &testkit.ScriptedKernel{Offsets: [][]float64{{-0.5}, {4}, {0.25}, {-6}}}
	start := []float64{2}

	result, err := newTestDriver(testkit.NewFakeClock(time.Millisecond)).
		Run(context.Background(), kernel, start, 40, 1, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 40, result.Len())
	require.NoError(t, result.Check(start))

	var sawAccept, sawReject bool
	for it := 0; it < result.Len(); it++ {
		prev := start
		if it > 0 {
			prev = result.Samples[it-1]
		}
		if result.Accepted[it] {
			sawAccept = true
			assert.Equal(t, result.Proposals[it], result.Samples[it])
		} else {
			sawReject = true
			assert.Equal(t, prev, result.Samples[it])
		}
		assert.InDelta(t, testkit.StandardNormalLogPDF(result.Samples[it]), result.LogPDF[it], 1e-12)
		assert.GreaterOrEqual(t, result.AccProb[it], 0.0)
		assert.LessOrEqual(t, result.AccProb[it], 1.0)
	}
	assert.True(t, sawAccept)
	assert.True(t, sawReject)
}

func TestRunHookOrderAndAdaptationHistory(t *testing.T) {
	kernel := &testkit.ScriptedKernel{Offsets: [][]float64{{0.3, -0.2}, {-0.1, 0.4}}}

	result, err := newTestDriver(testkit.NewFakeClock(time.Millisecond)).
		Run(context.Background(), kernel, []float64{0, 0}, 5, 2, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 5, result.Len())

	var expected []string
	for it := 1; it <= 5; it++ {
		expected = append(expected, "proposal:"+string(rune('0'+it)), "mh", "next", "update", "step")
	}
	assert.Equal(t, expected, kernel.Events)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, kernel.UpdateLens)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, kernel.StepSizeLens)

	// the scripted kernel's step size is the sum of the probabilities it was shown
	sum := 0.0
	for it := 0; it < result.Len(); it++ {
		sum += result.AccProb[it]
		assert.InDelta(t, sum, result.StepSizes[it].Scalar(), 1e-12)
	}
}

func TestRunThreadsCarryUnchanged(t *testing.T) {
	kernel := &testkit.ScriptedKernel{Offsets: [][]float64{{0.1}}}

	_, err := newTestDriver(testkit.NewFakeClock(0)).
		Run(context.Background(), kernel, []float64{0}, 4, 1, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []ports.Carry{nil, 1, 2, 3}, kernel.SeenCarry)
	assert.Equal(t, []bool{false, true, true, true}, kernel.SeenHasLogPDF)
}

func TestRunIncludesLastIteration(t *testing.T) {
	kernel := &testkit.ScriptedKernel{}

	result, err := newTestDriver(testkit.NewFakeClock(0)).
		Run(context.Background(), kernel, []float64{0}, 3, 1, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Len())
	assert.Equal(t, 3, kernel.Calls)
	assert.False(t, result.Truncated)
	assert.Equal(t, "Scripted", result.KernelName)
	assert.Equal(t, 3, result.NumIter)
	assert.Equal(t, 1, result.Dimension)
	assert.False(t, result.RunID.String() == "")
}

func TestRunPropagatesKernelErrorsUnmodified(t *testing.T) {
	boom := errors.New("numerical overflow in log density")

	t.Run("proposal", func(t *testing.T) {
		kernel := &testkit.ScriptedKernel{FailAt: 3, FailErr: boom}
		result, err := newTestDriver(testkit.NewFakeClock(0)).
			Run(context.Background(), kernel, []float64{0}, 10, 1, RunOptions{})
		assert.Nil(t, result)
		assert.True(t, err == boom, "error identity must be preserved, got %v", err)
		assert.Equal(t, 3, kernel.Calls)
	})

	t.Run("update", func(t *testing.T) {
		kernel := &testkit.ScriptedKernel{UpdateErr: boom}
		result, err := newTestDriver(testkit.NewFakeClock(0)).
			Run(context.Background(), kernel, []float64{0}, 10, 1, RunOptions{})
		assert.Nil(t, result)
		assert.True(t, err == boom)
		assert.Equal(t, 1, kernel.Calls)
	})
}

// shortKernel drops the last component of every proposal
type shortKernel struct {
	*testkit.ScriptedKernel
}

func (k shortKernel) Proposal(req ports.ProposalRequest) (ports.ProposalResult, error) {
	res, err := k.ScriptedKernel.Proposal(req)
	res.Proposal = res.Proposal[:len(res.Proposal)-1]
	return res, err
}

func TestRunRejectsMalformedProposal(t *testing.T) {
	kernel := shortKernel{&testkit.ScriptedKernel{}}
	result, err := newTestDriver(testkit.NewFakeClock(0)).
		Run(context.Background(), kernel, []float64{0, 0}, 10, 2, RunOptions{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, core.ErrProposalShape)
	assert.False(t, core.IsConfigurationError(err), "a malformed proposal is a sampling error")
}

func TestRunTargetDimensionErrorIsNotConfiguration(t *testing.T) {
	target, err := targets.NewIsotropicGaussian(2, 1)
	require.NoError(t, err)
	_, err = target.LogPDF([]float64{1})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.False(t, core.IsConfigurationError(err))
}

func TestRunTimeBudgetBoundary(t *testing.T) {
	clock := testkit.NewFakeClock(time.Second)
	kernel := &testkit.ScriptedKernel{Offsets: [][]float64{{0.2}}}
	budget := 4500 * time.Millisecond

	result, err := newTestDriver(clock).
		Run(context.Background(), kernel, []float64{0}, 100, 1, RunOptions{TimeBudget: budget})
	require.NoError(t, err)

	// iterations start at t0, t0+1s, ... t0+4s; the one at t0+5s is over budget
	require.Equal(t, 5, result.Len())
	assert.Equal(t, 5, kernel.Calls)
	assert.True(t, result.Truncated)
	deadline := result.Times[0].Add(budget)
	assert.False(t, result.Times[result.Len()-1].After(deadline))
	assert.True(t, result.Times[0].Add(5*time.Second).After(deadline))
	require.NoError(t, result.Check([]float64{0}))
}

func TestRunTimeBudgetWithDeterministicKernelCost(t *testing.T) {
	clock := testkit.NewFakeClock(0)
	kernel := &testkit.ScriptedKernel{Clock: clock, Cost: 100 * time.Millisecond}

	result, err := newTestDriver(clock).
		Run(context.Background(), kernel, []float64{0}, 1000, 1, RunOptions{TimeBudget: time.Second})
	require.NoError(t, err)

	// start times are 0, 100ms, ... 1000ms; 1000ms does not exceed the budget, 1100ms does
	assert.Equal(t, 11, result.Len())
	assert.Equal(t, time.Second, result.Duration())
}

func TestRunTinyBudgetScenario(t *testing.T) {
	kernel, _ := gaussianRandomWalk(t, 1.0, 7)
	clock := testkit.NewFakeClock(10 * time.Millisecond)

	result, err := newTestDriver(clock).
		Run(context.Background(), kernel, []float64{0, 0}, 1000, 2, RunOptions{TimeBudget: 50 * time.Millisecond})
	require.NoError(t, err)

	n := result.Len()
	assert.Less(t, n, 1000)
	assert.GreaterOrEqual(t, n, 0)
	assert.Len(t, result.Proposals, n)
	assert.Len(t, result.Accepted, n)
	assert.Len(t, result.AccProb, n)
	assert.Len(t, result.LogPDF, n)
	assert.Len(t, result.Times, n)
	assert.Len(t, result.StepSizes, n)
	assert.NoError(t, result.Check([]float64{0, 0}))
}

// cancellingKernel cancels its context after a fixed number of proposals
type cancellingKernel struct {
	*testkit.ScriptedKernel
	cancel context.CancelFunc
	after  int
}

func (k cancellingKernel) Proposal(req ports.ProposalRequest) (ports.ProposalResult, error) {
	res, err := k.ScriptedKernel.Proposal(req)
	if k.ScriptedKernel.Calls == k.after {
		k.cancel()
	}
	return res, err
}

func TestRunStopsAtIterationBoundaryOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	kernel := cancellingKernel{ScriptedKernel: &testkit.ScriptedKernel{}, cancel: cancel, after: 4}

	result, err := newTestDriver(testkit.NewFakeClock(0)).
		Run(ctx, kernel, []float64{0}, 100, 1, RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 4, result.Len(), "the iteration that observed cancellation still completes")
	assert.True(t, result.Truncated)
	assert.Equal(t, []int{1, 2, 3, 4}, kernel.UpdateLens)
}

func TestRunSymmetricKernelAcceptanceFormula(t *testing.T) {
	kernel, target := gaussianRandomWalk(t, 1.5, 11)
	start := []float64{1, -1}

	result, err := newTestDriver(testkit.NewFakeClock(time.Millisecond)).
		Run(context.Background(), kernel, start, 200, 2, RunOptions{})
	require.NoError(t, err)

	current := start
	for it := 0; it < result.Len(); it++ {
		lpCurrent, err := target.LogPDF(current)
		require.NoError(t, err)
		lpProposal, err := target.LogPDF(result.Proposals[it])
		require.NoError(t, err)
		assert.InDelta(t, math.Min(1, math.Exp(lpProposal-lpCurrent)), result.AccProb[it], 1e-12)
		current = result.Samples[it]
	}
}

func TestRunIsReproducible(t *testing.T) {
	run := func() *chain.Result {
		kernel, _ := gaussianRandomWalk(t, 1.0, 5)
		result, err := newTestDriver(testkit.NewFakeClock(time.Millisecond)).
			Run(context.Background(), kernel, []float64{0.5, 0.5}, 300, 2, RunOptions{})
		require.NoError(t, err)
		return result
	}

	a, b := run(), run()
	assert.Equal(t, a.Samples, b.Samples)
	assert.Equal(t, a.Proposals, b.Proposals)
	assert.Equal(t, a.Accepted, b.Accepted)
	assert.Equal(t, a.AccProb, b.AccProb)
	assert.Equal(t, a.LogPDF, b.LogPDF)
	assert.Equal(t, a.Times, b.Times)
	assert.Equal(t, a.StepSizes, b.StepSizes)
	assert.Equal(t, a.AcceptanceRate, b.AcceptanceRate)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunGaussianScenario(t *testing.T) {
	kernel, _ := gaussianRandomWalk(t, 1.2, 2024)

	result, err := NewDriver(WithRand(rng.New(1))).
		Run(context.Background(), kernel, []float64{0, 0}, 1000, 2, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1000, result.Len())
	assert.Len(t, result.Times, 1000)
	assert.Len(t, result.StepSizes, 1000)
	assert.Greater(t, result.AcceptanceRate, 0.2)
	assert.Less(t, result.AcceptanceRate, 0.8)
	require.NoError(t, result.Check([]float64{0, 0}))
}

func TestRunRecomputeLogPDFWithStochasticTarget(t *testing.T) {
	sample := func(recompute bool) *chain.Result {
		base, err := targets.NewIsotropicGaussian(2, 1)
		require.NoError(t, err)
		noisy, err := targets.NewNoisy(base, 1.0, rng.New(17))
		require.NoError(t, err)
		// a wide step keeps the chain parked on the same state for long stretches
		kernel, err := kernels.NewRandomWalk(noisy, chain.Scalar(4), rng.New(23))
		require.NoError(t, err)
		result, err := newTestDriver(testkit.NewFakeClock(time.Millisecond)).
			Run(context.Background(), kernel, []float64{0, 0}, 300, 2, RunOptions{RecomputeLogPDF: recompute})
		require.NoError(t, err)
		return result
	}

	stalePairs := func(r *chain.Result) (same, differing int) {
		for it := 1; it < r.Len(); it++ {
			if !r.Accepted[it] {
				same++
				if r.LogPDF[it] != r.LogPDF[it-1] {
					differing++
				}
			}
		}
		return same, differing
	}

	same, differing := stalePairs(sample(true))
	require.Greater(t, same, 0)
	assert.Greater(t, differing, 0, "recompute mode refreshes the estimate of an unchanged state")

	same, differing = stalePairs(sample(false))
	require.Greater(t, same, 0)
	assert.Equal(t, 0, differing, "without recompute the cached estimate is reused")
}

func TestRunRecomputeFlagReachesKernel(t *testing.T) {
	kernel := &testkit.ScriptedKernel{}
	_, err := newTestDriver(testkit.NewFakeClock(0)).
		Run(context.Background(), kernel, []float64{0}, 4, 1, RunOptions{RecomputeLogPDF: true})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, false}, kernel.SeenHasLogPDF)
	assert.Equal(t, 8, kernel.Evaluations)
}

func TestRunProgressLogging(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		logger := &testkit.RecordingLogger{}
		d := newTestDriver(testkit.NewFakeClock(time.Second), WithLogger(logger))
		_, err := d.Run(context.Background(), &testkit.ScriptedKernel{}, []float64{0, 0}, 20, 2, RunOptions{})
		require.NoError(t, err)

		assert.Equal(t, 1, logger.CountInfo("Starting MCMC using Scripted in D=2 dimensions"))
		// cadence starts at t=0s and fires strictly after each 5s window: t=6s, 12s, 18s
		assert.Equal(t, 3, logger.CountInfo("MCMC iteration"))
		assert.Equal(t, 1, logger.CountInfo("MCMC iteration 7/20"))
		assert.Equal(t, 1, logger.CountInfo("Finished MCMC after 20/20 iterations"))
		assert.NotEmpty(t, logger.Debugs)
	})

	t.Run("disabled", func(t *testing.T) {
		logger := &testkit.RecordingLogger{}
		d := newTestDriver(testkit.NewFakeClock(time.Second), WithLogger(logger), WithProgressInterval(0))
		_, err := d.Run(context.Background(), &testkit.ScriptedKernel{}, []float64{0}, 20, 1, RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, 0, logger.CountInfo("MCMC iteration"))
	})

	t.Run("time limit message", func(t *testing.T) {
		logger := &testkit.RecordingLogger{}
		d := newTestDriver(testkit.NewFakeClock(time.Second), WithLogger(logger))
		_, err := d.Run(context.Background(), &testkit.ScriptedKernel{}, []float64{0}, 20, 1, RunOptions{TimeBudget: 2 * time.Second})
		require.NoError(t, err)
		assert.Equal(t, 1, logger.CountInfo("Stopping MCMC at iteration 3"))
	})
}

func TestClipProbability(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{0.5, 0.5},
		{-0.1, 0},
		{1.7, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, clipProbability(tt.in), "input %v", tt.in)
	}
}
