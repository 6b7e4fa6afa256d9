package testkit

import (
	"sync"
	"time"
)

// FakeClock is a manually driven clock. When Tick is non-zero every call to
// Now advances the clock by Tick after reading it.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	Tick time.Duration
}

// NewFakeClock starts a clock at a fixed instant
func NewFakeClock(tick time.Duration) *FakeClock {
	return &FakeClock{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Tick: tick,
	}
}

// Now returns the current fake time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Tick)
	return t
}

// Step advances the clock without reading it
func (c *FakeClock) Step(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
