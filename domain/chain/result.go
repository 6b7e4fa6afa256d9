package chain

import (
	"fmt"
	"math"
	"time"

	"kameleon/domain/core"
)

// Result is the trimmed output of one sampler run. Every per-iteration
// slice has the same length: the number of iterations that completed.
type Result struct {
	RunID      core.RunID
	KernelName string
	Dimension  int
	NumIter    int

	Samples   [][]float64
	Proposals [][]float64
	Accepted  []bool
	AccProb   []float64
	LogPDF    []float64
	Times     []time.Time
	StepSizes []StepSize

	// AcceptanceRate is the running acceptance average after the last completed iteration
	AcceptanceRate float64
	// Truncated is set when the time budget or a cancelled context ended the run early
	Truncated bool
}

// Len returns the number of completed iterations
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Samples)
}

// Duration returns the wall time between the first and last recorded iteration start
func (r *Result) Duration() time.Duration {
	if r == nil || len(r.Times) < 2 {
		return 0
	}
	return r.Times[len(r.Times)-1].Sub(r.Times[0])
}

// Check verifies the structural invariants of the result against the start state
func (r *Result) Check(start []float64) error {
	n := r.Len()
	lengths := map[string]int{
		"proposals":  len(r.Proposals),
		"accepted":   len(r.Accepted),
		"acc_prob":   len(r.AccProb),
		"log_pdf":    len(r.LogPDF),
		"times":      len(r.Times),
		"step_sizes": len(r.StepSizes),
	}
	for name, l := range lengths {
		if l != n {
			return core.NewInvariantError(0, fmt.Sprintf("%s has length %d, samples has %d", name, l, n))
		}
	}
	if n > r.NumIter && r.NumIter > 0 {
		return core.NewInvariantError(n-1, fmt.Sprintf("%d iterations exceed capacity %d", n, r.NumIter))
	}

	prev := start
	for it := 0; it < n; it++ {
		p := r.AccProb[it]
		if math.IsNaN(p) || p < 0 || p > 1 {
			return core.NewInvariantError(it, fmt.Sprintf("acceptance probability %v outside [0, 1]", p))
		}
		if len(r.Samples[it]) != len(start) {
			return core.NewInvariantError(it, "sample dimension differs from start")
		}
		want := prev
		if r.Accepted[it] {
			want = r.Proposals[it]
		}
		if !equalVectors(r.Samples[it], want) {
			return core.NewInvariantError(it, "sample does not follow accept/reject decision")
		}
		prev = r.Samples[it]
	}
	return nil
}

func equalVectors(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
