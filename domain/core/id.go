package core

import "github.com/google/uuid"

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// RunID identifies a single sampler run in logs and results
type RunID ID

// NewRunID creates a fresh, time-ordered run identifier
func NewRunID() RunID {
	return RunID(NewID())
}

func (id RunID) String() string { return ID(id).String() }

// Short returns the first eight characters, enough to correlate log lines
func (id RunID) Short() string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
