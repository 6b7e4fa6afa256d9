// Package diagnostics turns a sampler result into the series and summary
// numbers used to judge a chain: running acceptance, autocorrelation,
// marginal moments and effective sample size.
package diagnostics

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	"kameleon/domain/chain"
)

// MarginalSummary describes one coordinate of the chain
type MarginalSummary struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Median       float64 `json:"median"`
	Q05          float64 `json:"q05"`
	Q95          float64 `json:"q95"`
	Lag1Autocorr float64 `json:"lag1_autocorr"`
	ESS          float64 `json:"ess"`
}

// Summary is the digest of a whole run
type Summary struct {
	RunID          string            `json:"run_id"`
	Kernel         string            `json:"kernel"`
	Iterations     int               `json:"iterations"`
	Requested      int               `json:"requested"`
	Truncated      bool              `json:"truncated"`
	AcceptanceRate float64           `json:"acceptance_rate"`
	MeanAccProb    float64           `json:"mean_acc_prob"`
	FinalStepSize  chain.StepSize    `json:"final_step_size"`
	FinalLogPDF    float64           `json:"final_log_pdf"`
	MaxLogPDF      float64           `json:"max_log_pdf"`
	Duration       time.Duration     `json:"duration"`
	Marginals      []MarginalSummary `json:"marginals"`
}

// CumulativeAcceptance returns the running acceptance average after each iteration
func CumulativeAcceptance(accepted []bool) []float64 {
	out := make([]float64, len(accepted))
	hits := 0
	for i, a := range accepted {
		if a {
			hits++
		}
		out[i] = float64(hits) / float64(i+1)
	}
	return out
}

// Column extracts the trace of coordinate j
func Column(samples [][]float64, j int) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s[j]
	}
	return out
}

// Autocorrelation returns the sample autocorrelation for lags 0..maxLag.
// A constant series has no defined autocorrelation beyond lag 0 and yields zeros.
func Autocorrelation(series []float64, maxLag int) ([]float64, error) {
	n := len(series)
	if n == 0 {
		return nil, stats.ErrEmptyInput
	}
	if maxLag < 0 || maxLag >= n {
		return nil, fmt.Errorf("max lag %d outside [0, %d)", maxLag, n)
	}

	mean, err := stats.Mean(series)
	if err != nil {
		return nil, err
	}
	centered := make([]float64, n)
	copy(centered, series)
	floats.AddConst(-mean, centered)

	acf := make([]float64, maxLag+1)
	acf[0] = 1
	denom := floats.Dot(centered, centered)
	if denom == 0 {
		return acf, nil
	}
	for lag := 1; lag <= maxLag; lag++ {
		acf[lag] = floats.Dot(centered[:n-lag], centered[lag:]) / denom
	}
	return acf, nil
}

// EffectiveSampleSize estimates n / (1 + 2 * sum rho_k) using Geyer's
// initial positive sequence: autocorrelations are summed in pairs until a
// pair sum turns negative.
func EffectiveSampleSize(series []float64) (float64, error) {
	n := len(series)
	if n < 4 {
		return float64(n), nil
	}
	mean, err := stats.Mean(series)
	if err != nil {
		return 0, err
	}
	centered := make([]float64, n)
	copy(centered, series)
	floats.AddConst(-mean, centered)

	denom := floats.Dot(centered, centered)
	if denom == 0 {
		return float64(n), nil
	}
	rho := func(lag int) float64 {
		if lag == 0 {
			return 1
		}
		return floats.Dot(centered[:n-lag], centered[lag:]) / denom
	}

	tau := -1.0
	for k := 0; k+1 < n; k += 2 {
		pair := rho(k) + rho(k+1)
		if pair < 0 {
			break
		}
		tau += 2 * pair
	}
	if tau < 1 {
		tau = 1
	}
	return float64(n) / tau, nil
}

// Summarize digests a result
func Summarize(result *chain.Result) (Summary, error) {
	n := result.Len()
	summary := Summary{
		RunID:          result.RunID.String(),
		Kernel:         result.KernelName,
		Iterations:     n,
		Requested:      result.NumIter,
		Truncated:      result.Truncated,
		AcceptanceRate: result.AcceptanceRate,
		Duration:       result.Duration(),
	}
	if n == 0 {
		return summary, nil
	}

	meanAcc, err := stats.Mean(result.AccProb)
	if err != nil {
		return summary, err
	}
	maxLP, err := stats.Max(result.LogPDF)
	if err != nil {
		return summary, err
	}
	summary.MeanAccProb = meanAcc
	summary.MaxLogPDF = maxLP
	summary.FinalLogPDF = result.LogPDF[n-1]
	summary.FinalStepSize = result.StepSizes[n-1].Clone()

	summary.Marginals = make([]MarginalSummary, result.Dimension)
	for j := 0; j < result.Dimension; j++ {
		m, err := summarizeMarginal(Column(result.Samples, j))
		if err != nil {
			return summary, fmt.Errorf("marginal %d: %w", j, err)
		}
		summary.Marginals[j] = m
	}
	return summary, nil
}

func summarizeMarginal(trace []float64) (MarginalSummary, error) {
	var m MarginalSummary
	var err error

	if m.Mean, err = stats.Mean(trace); err != nil {
		return m, err
	}
	if m.StdDev, err = stats.StandardDeviationSample(trace); err != nil {
		m.StdDev = 0
	}
	if m.Median, err = stats.Median(trace); err != nil {
		return m, err
	}
	if m.Q05, err = stats.Percentile(trace, 5); err != nil {
		m.Q05 = m.Median
	}
	if m.Q95, err = stats.Percentile(trace, 95); err != nil {
		m.Q95 = m.Median
	}
	if len(trace) > 1 {
		acf, err := Autocorrelation(trace, 1)
		if err != nil {
			return m, err
		}
		m.Lag1Autocorr = acf[1]
	}
	if m.ESS, err = EffectiveSampleSize(trace); err != nil {
		return m, err
	}
	return m, nil
}
