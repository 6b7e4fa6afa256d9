package app

import (
	"context"
	"fmt"

	"kameleon/adapters/kernels"
	"kameleon/adapters/targets"
	"kameleon/domain/chain"
	"kameleon/domain/core"
	"kameleon/internal/config"
	"kameleon/internal/diagnostics"
	"kameleon/internal/errors"
	"kameleon/internal/mcmc"
	"kameleon/ports"
)

// Stream names for the independent random consumers of a run
const (
	streamAccept   = "accept"
	streamProposal = "proposal"
	streamNoise    = "noise"
)

// SamplingService builds a target and kernel from configuration and runs a chain
type SamplingService struct {
	rngPort ports.RNGPort
	logger  ports.Logger
	clock   ports.Clock
}

// SamplingReport is the outcome of one configured run
type SamplingReport struct {
	Result  *chain.Result
	Summary diagnostics.Summary
}

// NewSamplingService creates a new sampling service
func NewSamplingService(rngPort ports.RNGPort, logger ports.Logger) *SamplingService {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &SamplingService{
		rngPort: rngPort,
		logger:  logger,
		clock:   ports.SystemClock{},
	}
}

// WithClock replaces the clock handed to the driver
func (s *SamplingService) WithClock(clock ports.Clock) *SamplingService {
	s.clock = clock
	return s
}

// Run executes the configured chain from the origin and summarizes it.
// A cancelled context still yields a report for the completed iterations.
func (s *SamplingService) Run(ctx context.Context, cfg *config.Config) (*SamplingReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	target, err := s.BuildTarget(ctx, cfg)
	if err != nil {
		return nil, err
	}
	kernel, err := s.BuildKernel(ctx, cfg, target)
	if err != nil {
		return nil, err
	}
	acceptRNG, err := s.rngPort.Stream(ctx, cfg.Sampler.Scope, streamAccept, cfg.Sampler.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create accept stream")
	}

	driver := mcmc.NewDriver(
		mcmc.WithLogger(s.logger),
		mcmc.WithRand(acceptRNG),
		mcmc.WithClock(s.clock),
		mcmc.WithProgressInterval(cfg.Sampler.ProgressInterval),
	)

	start := make([]float64, cfg.Sampler.Dimension)
	result, runErr := driver.Run(ctx, kernel, start, cfg.Sampler.NumIter, cfg.Sampler.Dimension, mcmc.RunOptions{
		RecomputeLogPDF: cfg.Sampler.RecomputeLogPDF,
		TimeBudget:      cfg.Sampler.TimeBudget,
	})
	if result == nil {
		return nil, errors.SamplingFailed(runErr)
	}

	summary, err := diagnostics.Summarize(result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to summarize chain")
	}
	report := &SamplingReport{Result: result, Summary: summary}
	if runErr != nil {
		return report, errors.SamplingFailed(runErr)
	}
	return report, nil
}

// BuildTarget creates the configured target, wrapped in log density noise when NoiseSD is set
func (s *SamplingService) BuildTarget(ctx context.Context, cfg *config.Config) (ports.Target, error) {
	var (
		target ports.Target
		err    error
	)
	switch cfg.Target.Name {
	case config.TargetGaussian:
		target, err = targets.NewIsotropicGaussian(cfg.Sampler.Dimension, cfg.Target.Sigma)
	case config.TargetBanana:
		target, err = targets.NewBanana(cfg.Sampler.Dimension, cfg.Target.Bananicity, cfg.Target.V)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownTarget, cfg.Target.Name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s target", cfg.Target.Name)
	}

	if cfg.Target.NoiseSD > 0 {
		noiseRNG, err := s.rngPort.Stream(ctx, cfg.Sampler.Scope, streamNoise, cfg.Sampler.Seed)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create noise stream")
		}
		noisy, err := targets.NewNoisy(target, cfg.Target.NoiseSD, noiseRNG)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create noisy target")
		}
		target = noisy
	}
	return target, nil
}

// BuildKernel creates the configured transition kernel for target
func (s *SamplingService) BuildKernel(ctx context.Context, cfg *config.Config, target ports.Target) (ports.Kernel, error) {
	proposalRNG, err := s.rngPort.Stream(ctx, cfg.Sampler.Scope, streamProposal, cfg.Sampler.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create proposal stream")
	}

	var opts []kernels.Option
	if cfg.Kernel.Schedule > 0 && cfg.Kernel.AccStar > 0 {
		opts = append(opts, kernels.WithStepSizeAdaptation(cfg.Kernel.AccStar, kernels.PowerSchedule(cfg.Kernel.Schedule)))
	}

	var kernel ports.Kernel
	switch cfg.Kernel.Name {
	case config.KernelRandomWalk:
		kernel, err = kernels.NewRandomWalk(target, chain.Scalar(cfg.Kernel.StepSize), proposalRNG, opts...)
	case config.KernelAdaptiveMetropolis:
		kernel, err = kernels.NewAdaptiveMetropolis(target, cfg.Kernel.StepSize, cfg.Kernel.Gamma2,
			cfg.Kernel.WarmUp, cfg.Kernel.AdaptEvery, proposalRNG, opts...)
	case config.KernelIndependence:
		// proposal centred on the origin; StepSize is its standard deviation
		kernel, err = kernels.NewIndependence(target, make([]float64, target.Dim()), cfg.Kernel.StepSize, proposalRNG)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownKernel, cfg.Kernel.Name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s kernel", cfg.Kernel.Name)
	}
	return kernel, nil
}
