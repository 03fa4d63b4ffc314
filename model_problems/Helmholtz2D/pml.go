package Helmholtz2D

import (
	"math"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/geometry2D"
	"github.com/notargets/gopinn/utils"
)

/*
	PML implements complex coordinate stretching in a shell of thickness Width
	along every edge of the domain. Along each axis

		s(d) = 1 + i*sigma(d)/omega,  sigma(d) = omega * sqrt(D^2-1) * (d/Width)^Order

	where d is the depth into the shell measured from its inner edge. s is
	exactly 1 in the interior and on the inner edge, and |s| grows monotonically
	to D = MaxDamping on the outer edge. The axes are stretched independently,
	so corners are the product of two overlapping shells and remain continuous.

	The stretched Laplacian is
		Lap~ E = sum over axes of (1/s) d/dx ((1/s) dE/dx) = A E_xx + B E_x
	with A = 1/s^2, B = -s'/s^3 per axis.
*/
type PML struct {
	Domain     *geometry2D.Domain
	Width      float64
	MaxDamping float64
	Order      int
	Omega      float64
	amp        float64 // sqrt(D^2-1)
}

func NewPML(ip *InputParameters.InputParametersHelmholtz) (p *PML) {
	p = &PML{
		Domain:     geometry2D.NewDomain(ip.DomainExtent),
		Width:      ip.PMLWidth,
		MaxDamping: ip.PMLMaxDamping,
		Order:      ip.PMLOrder,
		Omega:      ip.Omega(),
	}
	p.amp = math.Sqrt(p.MaxDamping*p.MaxDamping - 1)
	return
}

// depth returns the depth into the shell along one axis, clamped to [0, Width],
// and the derivative of the depth with respect to the coordinate
func (p *PML) depth(axis int, val float64) (d, sgn float64) {
	var (
		dom = p.Domain
		mid = 0.5 * (dom.XMin[axis] + dom.XMax[axis])
	)
	d = p.Width - dom.DistanceToEdge(axis, val)
	switch {
	case d <= 0:
		return 0, 0
	case d > p.Width:
		// Outside the domain the profile is held constant
		return p.Width, 0
	}
	sgn = 1
	if val < mid {
		sgn = -1
	}
	return
}

// stretch returns s and ds/dx along one axis
func (p *PML) stretch(axis int, val float64) (s, ds complex128) {
	d, sgn := p.depth(axis, val)
	if d == 0 {
		return 1, 0
	}
	// prof is sigma/omega, dprof its derivative with respect to depth
	var (
		r     = d / p.Width
		prof  = p.amp * utils.POW(r, p.Order)
		dprof = p.amp * float64(p.Order) * utils.POW(r, p.Order-1) / p.Width
	)
	s = complex(1, prof)
	ds = complex(0, sgn*dprof)
	return
}

// Factor returns the stretching factors sx, sy at a point
func (p *PML) Factor(x, y float64) (sx, sy complex128) {
	sx, _ = p.stretch(0, x)
	sy, _ = p.stretch(1, y)
	return
}

// Derivative returns dsx/dx and dsy/dy at a point
func (p *PML) Derivative(x, y float64) (dsx, dsy complex128) {
	_, dsx = p.stretch(0, x)
	_, dsy = p.stretch(1, y)
	return
}

// Coefficients returns the stretched Laplacian coefficients per axis
func (p *PML) Coefficients(x, y float64) (A, B [2]complex128) {
	for axis, val := range [2]float64{x, y} {
		s, ds := p.stretch(axis, val)
		if ds == 0 && s == 1 {
			A[axis] = 1
			continue
		}
		s2 := s * s
		A[axis] = 1 / s2
		B[axis] = -ds / (s2 * s)
	}
	return
}

// InLayer is true when the point lies inside any absorbing shell
func (p *PML) InLayer(x, y float64) bool {
	dx, _ := p.depth(0, x)
	dy, _ := p.depth(1, y)
	return dx > 0 || dy > 0
}
