package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"kameleon/internal/errors"
)

// Kernel names accepted by MCMC_KERNEL
const (
	KernelRandomWalk         = "random_walk"
	KernelAdaptiveMetropolis = "adaptive_metropolis"
	KernelIndependence       = "independence"
)

// Target names accepted by MCMC_TARGET
const (
	TargetGaussian = "gaussian"
	TargetBanana   = "banana"
)

// Config represents the complete sampler configuration
type Config struct {
	Sampler SamplerConfig
	Kernel  KernelConfig
	Target  TargetConfig
	Logging LoggingConfig
}

// SamplerConfig holds the driver settings
type SamplerConfig struct {
	NumIter          int
	Dimension        int
	Seed             uint64
	TimeBudget       time.Duration
	ProgressInterval time.Duration
	RecomputeLogPDF  bool
	// Scope namespaces the seeded random streams; runs sharing scope and seed are identical
	Scope string
}

// KernelConfig selects and tunes the transition kernel
type KernelConfig struct {
	Name       string
	StepSize   float64
	AccStar    float64
	Schedule   float64
	Gamma2     float64
	WarmUp     int
	AdaptEvery int
}

// TargetConfig selects the target distribution
type TargetConfig struct {
	Name       string
	Sigma      float64
	Bananicity float64
	V          float64
	NoiseSD    float64
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it.
// Unset or empty variables take their defaults; a value that does not parse
// is a configuration error.
func Load() (*Config, error) {
	config := Default()
	env := &envReader{}

	config.Sampler = loadSamplerConfig(env, config.Sampler)
	if env.err != nil {
		return nil, errors.Wrap(env.err, "failed to load sampler configuration")
	}
	config.Kernel = loadKernelConfig(env, config.Kernel)
	if env.err != nil {
		return nil, errors.Wrap(env.err, "failed to load kernel configuration")
	}
	config.Target = loadTargetConfig(env, config.Target)
	if env.err != nil {
		return nil, errors.Wrap(env.err, "failed to load target configuration")
	}
	config.Logging = LoggingConfig{Level: getEnvOrDefault("LOG_LEVEL", config.Logging.Level)}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Sampler: SamplerConfig{
			NumIter:          1000,
			Dimension:        2,
			Seed:             42,
			ProgressInterval: 5 * time.Second,
			Scope:            "kameleon",
		},
		Kernel: KernelConfig{
			Name:       KernelRandomWalk,
			StepSize:   1.0,
			AccStar:    0.234,
			Schedule:   0.5,
			Gamma2:     0.1,
			WarmUp:     100,
			AdaptEvery: 10,
		},
		Target: TargetConfig{
			Name:       TargetGaussian,
			Sigma:      1.0,
			Bananicity: 0.03,
			V:          100,
		},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

func loadSamplerConfig(env *envReader, defaults SamplerConfig) SamplerConfig {
	return SamplerConfig{
		NumIter:          env.intValue("MCMC_NUM_ITER", defaults.NumIter),
		Dimension:        env.intValue("MCMC_DIMENSION", defaults.Dimension),
		Seed:             env.uintValue("MCMC_SEED", defaults.Seed),
		TimeBudget:       env.durationValue("MCMC_TIME_BUDGET", defaults.TimeBudget),
		ProgressInterval: env.durationValue("MCMC_PROGRESS_INTERVAL", defaults.ProgressInterval),
		RecomputeLogPDF:  env.boolValue("MCMC_RECOMPUTE_LOG_PDF", defaults.RecomputeLogPDF),
		Scope:            getEnvOrDefault("MCMC_SCOPE", defaults.Scope),
	}
}

func loadKernelConfig(env *envReader, defaults KernelConfig) KernelConfig {
	return KernelConfig{
		Name:       strings.ToLower(getEnvOrDefault("MCMC_KERNEL", defaults.Name)),
		StepSize:   env.floatValue("MCMC_STEP_SIZE", defaults.StepSize),
		AccStar:    env.floatValue("MCMC_ACC_STAR", defaults.AccStar),
		Schedule:   env.floatValue("MCMC_SCHEDULE_POWER", defaults.Schedule),
		Gamma2:     env.floatValue("MCMC_GAMMA2", defaults.Gamma2),
		WarmUp:     env.intValue("MCMC_WARM_UP", defaults.WarmUp),
		AdaptEvery: env.intValue("MCMC_ADAPT_EVERY", defaults.AdaptEvery),
	}
}

func loadTargetConfig(env *envReader, defaults TargetConfig) TargetConfig {
	return TargetConfig{
		Name:       strings.ToLower(getEnvOrDefault("MCMC_TARGET", defaults.Name)),
		Sigma:      env.floatValue("MCMC_TARGET_SIGMA", defaults.Sigma),
		Bananicity: env.floatValue("MCMC_BANANICITY", defaults.Bananicity),
		V:          env.floatValue("MCMC_BANANA_V", defaults.V),
		NoiseSD:    env.floatValue("MCMC_NOISE_SD", defaults.NoiseSD),
	}
}

// Validate checks the configuration for values the sampler cannot run with
func (c *Config) Validate() error {
	if c.Sampler.NumIter <= 0 {
		return errors.ConfigInvalid("number of iterations must be positive")
	}
	if c.Sampler.Dimension <= 0 {
		return errors.ConfigInvalid("dimension must be positive")
	}
	if c.Sampler.TimeBudget < 0 {
		return errors.ConfigInvalid("time budget must not be negative")
	}
	if !(c.Kernel.StepSize > 0) {
		return errors.ConfigInvalid("step size must be positive")
	}
	if c.Kernel.AccStar < 0 || c.Kernel.AccStar >= 1 {
		return errors.ConfigInvalid("target acceptance rate must be in [0, 1)")
	}
	switch c.Kernel.Name {
	case KernelRandomWalk, KernelAdaptiveMetropolis, KernelIndependence:
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown kernel %q", c.Kernel.Name))
	}
	switch c.Target.Name {
	case TargetGaussian:
	case TargetBanana:
		if c.Sampler.Dimension < 2 {
			return errors.ConfigInvalid("banana target needs at least 2 dimensions")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown target %q", c.Target.Name))
	}
	if c.Target.NoiseSD < 0 {
		return errors.ConfigInvalid("noise sd must not be negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and keeps the first failure
type envReader struct {
	err error
}

func (r *envReader) parse(key, kind string, parse func(string) error) {
	value := os.Getenv(key)
	if value == "" || r.err != nil {
		return
	}
	if err := parse(value); err != nil {
		r.err = errors.ConfigInvalid(fmt.Sprintf("%s must be %s, got %q", key, kind, value))
	}
}

func (r *envReader) intValue(key string, defaultValue int) int {
	out := defaultValue
	r.parse(key, "an integer", func(v string) error {
		parsed, err := strconv.Atoi(v)
		if err == nil {
			out = parsed
		}
		return err
	})
	return out
}

func (r *envReader) uintValue(key string, defaultValue uint64) uint64 {
	out := defaultValue
	r.parse(key, "an unsigned integer", func(v string) error {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			out = parsed
		}
		return err
	})
	return out
}

func (r *envReader) floatValue(key string, defaultValue float64) float64 {
	out := defaultValue
	r.parse(key, "a number", func(v string) error {
		parsed, err := strconv.ParseFloat(v, 64)
		if err == nil {
			out = parsed
		}
		return err
	})
	return out
}

func (r *envReader) boolValue(key string, defaultValue bool) bool {
	out := defaultValue
	r.parse(key, "true or false", func(v string) error {
		parsed, err := strconv.ParseBool(v)
		if err == nil {
			out = parsed
		}
		return err
	})
	return out
}

func (r *envReader) durationValue(key string, defaultValue time.Duration) time.Duration {
	out := defaultValue
	r.parse(key, "a duration like 30s", func(v string) error {
		parsed, err := time.ParseDuration(v)
		if err == nil {
			out = parsed
		}
		return err
	})
	return out
}
