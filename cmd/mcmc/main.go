package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"kameleon/adapters/rng"
	"kameleon/app"
	"kameleon/internal"
	"kameleon/internal/config"
	"kameleon/internal/diagnostics"
	"kameleon/internal/errors"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kameleon-mcmc",
		Short: "Adaptive Metropolis-Hastings sampler",
	}

	rootCmd.AddCommand(newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		if errors.IsAppError(err) {
			fmt.Fprintf(os.Stderr, "[%s] %v\n", errors.GetCode(err), err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type runFlags struct {
	numIter         int
	dim             int
	seed            uint64
	timeBudget      time.Duration
	kernel          string
	target          string
	stepSize        float64
	recomputeLogPDF bool
	noiseSD         float64
	jsonOutput      bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single MCMC chain and print its summary",
		Long: `Run a single Metropolis-Hastings chain against a reference target.

Settings are read from the environment (and a .env file when present) and
flags override them:
- MCMC_NUM_ITER, MCMC_DIMENSION, MCMC_SEED, MCMC_TIME_BUDGET
- MCMC_KERNEL=random_walk|adaptive_metropolis|independence
- MCMC_TARGET=gaussian|banana
- MCMC_STEP_SIZE, MCMC_ACC_STAR, MCMC_NOISE_SD, MCMC_RECOMPUTE_LOG_PDF
- LOG_LEVEL=ERROR|WARN|INFO|DEBUG

Example: kameleon-mcmc run --kernel adaptive_metropolis --target banana --num-iter 5000 --time-budget 10s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				internal.NewDefaultLogger().Warn("No .env file found, using system environment variables")
			}

			cfg, err := config.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load configuration")
			}
			if err := applyFlags(cmd, &flags, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runChain(ctx, cmd.OutOrStdout(), cfg, flags.jsonOutput)
		},
	}

	cmd.Flags().IntVar(&flags.numIter, "num-iter", 1000, "Number of MCMC iterations")
	cmd.Flags().IntVar(&flags.dim, "dim", 2, "Dimension of the target")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 42, "Random seed for deterministic runs")
	cmd.Flags().DurationVar(&flags.timeBudget, "time-budget", 0, "Stop sampling after this much time (0 = no limit)")
	cmd.Flags().StringVar(&flags.kernel, "kernel", config.KernelRandomWalk, "Kernel: random_walk|adaptive_metropolis|independence")
	cmd.Flags().StringVar(&flags.target, "target", config.TargetGaussian, "Target: gaussian|banana")
	cmd.Flags().Float64Var(&flags.stepSize, "step-size", 1.0, "Initial proposal step size")
	cmd.Flags().BoolVar(&flags.recomputeLogPDF, "recompute-log-pdf", false, "Re-evaluate the current state's log density every iteration")
	cmd.Flags().Float64Var(&flags.noiseSD, "noise-sd", 0, "Standard deviation of log density noise (0 = exact target)")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the summary as JSON")

	return cmd
}

// applyFlags overrides cfg with the flags that were set explicitly and
// validates the result
func applyFlags(cmd *cobra.Command, flags *runFlags, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if err := checkFlags(changed, flags); err != nil {
		return err
	}
	if changed("num-iter") {
		cfg.Sampler.NumIter = flags.numIter
	}
	if changed("dim") {
		cfg.Sampler.Dimension = flags.dim
	}
	if changed("seed") {
		cfg.Sampler.Seed = flags.seed
	}
	if changed("time-budget") {
		cfg.Sampler.TimeBudget = flags.timeBudget
	}
	if changed("kernel") {
		cfg.Kernel.Name = flags.kernel
	}
	if changed("target") {
		cfg.Target.Name = flags.target
	}
	if changed("step-size") {
		cfg.Kernel.StepSize = flags.stepSize
	}
	if changed("recompute-log-pdf") {
		cfg.Sampler.RecomputeLogPDF = flags.recomputeLogPDF
	}
	if changed("noise-sd") {
		cfg.Target.NoiseSD = flags.noiseSD
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid flag combination")
	}
	return nil
}

func checkFlags(changed func(string) bool, flags *runFlags) error {
	switch {
	case changed("num-iter") && flags.numIter <= 0:
		return errors.InvalidInput(fmt.Sprintf("--num-iter must be positive, got %d", flags.numIter))
	case changed("dim") && flags.dim <= 0:
		return errors.InvalidInput(fmt.Sprintf("--dim must be positive, got %d", flags.dim))
	case changed("time-budget") && flags.timeBudget < 0:
		return errors.InvalidInput(fmt.Sprintf("--time-budget must not be negative, got %s", flags.timeBudget))
	case changed("step-size") && !(flags.stepSize > 0):
		return errors.InvalidInput(fmt.Sprintf("--step-size must be positive, got %v", flags.stepSize))
	case changed("noise-sd") && flags.noiseSD < 0:
		return errors.InvalidInput(fmt.Sprintf("--noise-sd must not be negative, got %v", flags.noiseSD))
	}
	return nil
}

func runChain(ctx context.Context, out io.Writer, cfg *config.Config, jsonOutput bool) error {
	logger := newRunLogger(cfg)
	service := app.NewSamplingService(rng.NewMT19937Adapter(), logger)

	report, err := service.Run(ctx, cfg)
	if report == nil {
		return err
	}
	if err != nil {
		logger.Error("Run %s stopped after %d/%d iterations: %v",
			report.Result.RunID.Short(), report.Summary.Iterations, report.Summary.Requested, err)
	}
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if encErr := encoder.Encode(report.Summary); encErr != nil {
			return encErr
		}
		return err
	}
	printSummary(out, report.Summary)
	return err
}

// newRunLogger tags every line with the stream scope and seed that make the run reproducible
func newRunLogger(cfg *config.Config) *internal.Logger {
	return internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level)).
		WithPrefix(fmt.Sprintf("%s/%d", cfg.Sampler.Scope, cfg.Sampler.Seed))
}

func printSummary(out io.Writer, summary diagnostics.Summary) {
	fmt.Fprintf(out, "\nMCMC RUN %s\n", summary.RunID)
	fmt.Fprintf(out, "Kernel: %s\n", summary.Kernel)
	fmt.Fprintf(out, "Iterations: %d/%d", summary.Iterations, summary.Requested)
	if summary.Truncated {
		fmt.Fprint(out, " (stopped early)")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Duration: %v\n", summary.Duration)
	fmt.Fprintf(out, "Acceptance rate: %.3f (mean acceptance probability %.3f)\n", summary.AcceptanceRate, summary.MeanAccProb)
	fmt.Fprintf(out, "Final step size: %s\n", summary.FinalStepSize)
	fmt.Fprintf(out, "Final log pdf: %.6f (max %.6f)\n\n", summary.FinalLogPDF, summary.MaxLogPDF)

	if len(summary.Marginals) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "dim\tmean\tstd\tmedian\tq05\tq95\tacf(1)\tess")
	for j, m := range summary.Marginals {
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.3f\t%.1f\n",
			j, m.Mean, m.StdDev, m.Median, m.Q05, m.Q95, m.Lag1Autocorr, m.ESS)
	}
	w.Flush()
}
