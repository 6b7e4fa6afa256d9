package mcmc

// RunningMean is Knuth's numerically stable incremental mean
type RunningMean struct {
	mean  float64
	count int
}

// Add folds one observation into the mean
func (m *RunningMean) Add(x float64) {
	m.count++
	m.mean += (x - m.mean) / float64(m.count)
}

// Mean returns the current average, zero before any observation
func (m *RunningMean) Mean() float64 {
	return m.mean
}

// Count returns the number of observations
func (m *RunningMean) Count() int {
	return m.count
}
