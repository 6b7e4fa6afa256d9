package targets

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"kameleon/domain/core"
)

// Gaussian is a multivariate normal target
type Gaussian struct {
	dist *distmv.Normal
}

// NewGaussian creates a Gaussian target; cov must be positive definite
func NewGaussian(mu []float64, cov mat.Symmetric) (*Gaussian, error) {
	if cov.SymmetricDim() != len(mu) {
		return nil, core.NewDimensionError("covariance", len(mu), cov.SymmetricDim())
	}
	dist, ok := distmv.NewNormal(mu, cov, nil)
	if !ok {
		return nil, fmt.Errorf("gaussian target: covariance is not positive definite")
	}
	return &Gaussian{dist: dist}, nil
}

// NewIsotropicGaussian creates N(0, sigma^2 I) in d dimensions
func NewIsotropicGaussian(d int, sigma float64) (*Gaussian, error) {
	if d <= 0 {
		return nil, core.NewDimensionError("dimension", 1, d)
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("gaussian target: sigma must be positive, got %v", sigma)
	}
	cov := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		cov.SetSym(i, i, sigma*sigma)
	}
	return NewGaussian(make([]float64, d), cov)
}

func (g *Gaussian) Dim() int {
	return g.dist.Dim()
}

func (g *Gaussian) LogPDF(x []float64) (float64, error) {
	if len(x) != g.dist.Dim() {
		return 0, core.NewDimensionError("state", g.dist.Dim(), len(x))
	}
	return g.dist.LogProb(x), nil
}

// Mean returns a copy of the mean vector
func (g *Gaussian) Mean() []float64 {
	return g.dist.Mean(nil)
}
