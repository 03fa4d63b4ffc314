package Helmholtz2D

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Adam holds the first and second moment estimates of the gradient
type Adam struct {
	Beta1, Beta2, Eps float64
	M, V              []float64
	T                 int
}

func NewAdam(Nparams int) (a *Adam) {
	a = &Adam{
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1.e-8,
		M:     make([]float64, Nparams),
		V:     make([]float64, Nparams),
	}
	return
}

// Step applies one bias corrected update to params in place
func (a *Adam) Step(params, grad []float64, lr float64) {
	var (
		b1, b2 = a.Beta1, a.Beta2
	)
	a.T++
	var (
		c1 = 1 - math.Pow(b1, float64(a.T))
		c2 = 1 - math.Pow(b2, float64(a.T))
	)
	for i, g := range grad {
		a.M[i] = b1*a.M[i] + (1-b1)*g
		a.V[i] = b2*a.V[i] + (1-b2)*g*g
		mHat := a.M[i] / c1
		vHat := a.V[i] / c2
		params[i] -= lr * mHat / (math.Sqrt(vHat) + a.Eps)
	}
}

// ClipGradient rescales grad so its L2 norm does not exceed maxNorm and
// returns the norm before clipping. maxNorm <= 0 disables clipping.
func ClipGradient(grad []float64, maxNorm float64) (norm float64) {
	norm = floats.Norm(grad, 2)
	if maxNorm > 0 && norm > maxNorm {
		floats.Scale(maxNorm/norm, grad)
	}
	return
}
