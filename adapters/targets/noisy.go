package targets

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"kameleon/ports"
)

// Noisy adds zero-mean Gaussian noise to every log density evaluation of
// the wrapped target. It stands in for a stochastic (pseudo-marginal)
// likelihood estimate.
type Noisy struct {
	target ports.Target
	noise  distuv.Normal
}

// NewNoisy wraps target with N(0, sd^2) log density noise drawn from src
func NewNoisy(target ports.Target, sd float64, src rand.Source) (*Noisy, error) {
	if sd <= 0 {
		return nil, fmt.Errorf("noisy target: sd must be positive, got %v", sd)
	}
	return &Noisy{
		target: target,
		noise:  distuv.Normal{Mu: 0, Sigma: sd, Src: src},
	}, nil
}

func (n *Noisy) Dim() int {
	return n.target.Dim()
}

func (n *Noisy) LogPDF(x []float64) (float64, error) {
	lp, err := n.target.LogPDF(x)
	if err != nil {
		return 0, err
	}
	return lp + n.noise.Rand(), nil
}
