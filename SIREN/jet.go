package SIREN

import (
	"gonum.org/v1/gonum/mat"
)

/*
	A Jet carries a batch of values along with their first and second partial
	derivatives in x and y, propagated forward through the network in the same
	pass that produces the values (truncated Taylor mode automatic differentiation).
	Each matrix is Nchannels x Npoints, column j belongs to collocation point j.
	Mixed partials are not carried, the Helmholtz operator only needs the
	diagonal of the Hessian.
*/
type Jet struct {
	V        *mat.Dense
	Dx, Dy   *mat.Dense
	Dxx, Dyy *mat.Dense
}

func NewJet(Nchan, Npts int) (j *Jet) {
	j = &Jet{
		V:   mat.NewDense(Nchan, Npts, nil),
		Dx:  mat.NewDense(Nchan, Npts, nil),
		Dy:  mat.NewDense(Nchan, Npts, nil),
		Dxx: mat.NewDense(Nchan, Npts, nil),
		Dyy: mat.NewDense(Nchan, Npts, nil),
	}
	return
}

func (j *Jet) Dims() (Nchan, Npts int) {
	return j.V.Dims()
}

// Parts returns the five component matrices in a fixed order: value, x, y, xx, yy
func (j *Jet) Parts() [5]*mat.Dense {
	return [5]*mat.Dense{j.V, j.Dx, j.Dy, j.Dxx, j.Dyy}
}

// Data returns the raw backing slices in Parts order, valid because every
// jet matrix is allocated contiguous
func (j *Jet) Data() (d [5][]float64) {
	for n, m := range j.Parts() {
		d[n] = m.RawMatrix().Data
	}
	return
}

// FieldSample is the network output for a batch: channel 0 is Re(E_z),
// channel 1 is Im(E_z)
type FieldSample struct {
	*Jet
}

const (
	ReChannel = 0
	ImChannel = 1
)

func (fs FieldSample) Len() int {
	_, n := fs.Dims()
	return n
}

// At returns the complex field value at point i and its four partial derivatives
func (fs FieldSample) At(i int) (E, Ex, Ey, Exx, Eyy complex128) {
	c := func(m *mat.Dense) complex128 {
		return complex(m.At(ReChannel, i), m.At(ImChannel, i))
	}
	return c(fs.V), c(fs.Dx), c(fs.Dy), c(fs.Dxx), c(fs.Dyy)
}
