package targets

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"kameleon/domain/core"
)

// Banana is the twisted Gaussian of Haario et al. (1999). The second
// coordinate is shifted by Bananicity*(x0^2 - V) before evaluating a
// Gaussian with variance V on the first axis and 1 elsewhere.
type Banana struct {
	Bananicity float64
	V          float64
	base       *Gaussian
	scratch    []float64
}

// NewBanana creates a banana target in d >= 2 dimensions
func NewBanana(d int, bananicity, v float64) (*Banana, error) {
	if d < 2 {
		return nil, core.NewDimensionError("banana dimension", 2, d)
	}
	if v <= 0 {
		return nil, fmt.Errorf("banana target: V must be positive, got %v", v)
	}
	cov := mat.NewSymDense(d, nil)
	cov.SetSym(0, 0, v)
	for i := 1; i < d; i++ {
		cov.SetSym(i, i, 1)
	}
	base, err := NewGaussian(make([]float64, d), cov)
	if err != nil {
		return nil, err
	}
	return &Banana{
		Bananicity: bananicity,
		V:          v,
		base:       base,
		scratch:    make([]float64, d),
	}, nil
}

func (b *Banana) Dim() int {
	return b.base.Dim()
}

func (b *Banana) LogPDF(x []float64) (float64, error) {
	if len(x) != b.Dim() {
		return 0, core.NewDimensionError("state", b.Dim(), len(x))
	}
	copy(b.scratch, x)
	b.scratch[1] = x[1] + b.Bananicity*(x[0]*x[0]-b.V)
	return b.base.LogPDF(b.scratch)
}
