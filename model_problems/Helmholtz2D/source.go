package Helmholtz2D

import (
	"math"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/types"
)

// Source is a Gaussian current density J_z = A exp(-r^2/(2 sigma^2))
type Source struct {
	Center           [2]float64
	Width, Amplitude float64
	Omega            float64
}

func NewSource(ip *InputParameters.InputParametersHelmholtz) (s *Source) {
	s = &Source{
		Center:    [2]float64{ip.SourceCenter[0], ip.SourceCenter[1]},
		Width:     ip.SourceWidth,
		Amplitude: ip.SourceAmplitude,
		Omega:     ip.Omega(),
	}
	return
}

func (s *Source) J(x, y float64) float64 {
	var (
		dx, dy = x - s.Center[0], y - s.Center[1]
		r2     = dx*dx + dy*dy
	)
	return s.Amplitude * math.Exp(-r2/(2*s.Width*s.Width))
}

// Drive is the term omega*J entering the imaginary part of the residual
func (s *Source) Drive(x, y float64) float64 {
	return s.Omega * s.J(x, y)
}

// TotalEnergy is the integral of J over the plane
func (s *Source) TotalEnergy() float64 {
	return s.Amplitude * 2 * math.Pi * s.Width * s.Width
}

func (s *Source) JBatch(b types.Batch) (J []float64) {
	J = make([]float64, b.Len())
	for i := range J {
		J[i] = s.J(b.X[i], b.Y[i])
	}
	return
}
