package ports

import "time"

// Clock supplies wall-clock timestamps
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
