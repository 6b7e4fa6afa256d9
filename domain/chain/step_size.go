package chain

import (
	"math"
	"strconv"
	"strings"
)

// StepSize is a kernel's proposal scale. A scalar step size is a vector of length one.
type StepSize []float64

// Scalar wraps a single value as a StepSize
func Scalar(v float64) StepSize {
	return StepSize{v}
}

// Scalar returns the first component, or NaN for an empty step size
func (s StepSize) Scalar() float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return s[0]
}

// IsScalar reports whether the step size has exactly one component
func (s StepSize) IsScalar() bool {
	return len(s) == 1
}

// Clone returns an independent copy
func (s StepSize) Clone() StepSize {
	if s == nil {
		return nil
	}
	out := make(StepSize, len(s))
	copy(out, s)
	return out
}

// String renders the step size for log messages
func (s StepSize) String() string {
	if len(s) == 1 {
		return strconv.FormatFloat(s[0], 'f', 3, 64)
	}
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.FormatFloat(v, 'f', 3, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
