package mcmc

import "time"

// progressReporter rate-limits progress messages on a wall-clock cadence
type progressReporter struct {
	interval time.Duration
	last     time.Time
}

func newProgressReporter(interval time.Duration) *progressReporter {
	return &progressReporter{interval: interval}
}

// due reports whether a message should be emitted at now. The first call
// only starts the cadence.
func (p *progressReporter) due(now time.Time) bool {
	if p.interval <= 0 {
		return false
	}
	if p.last.IsZero() {
		p.last = now
		return false
	}
	if now.After(p.last.Add(p.interval)) {
		p.last = now
		return true
	}
	return false
}
