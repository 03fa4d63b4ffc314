package geometry2D

import (
	"math"
)

// Domain is the axis aligned rectangle the field is solved on
type Domain struct {
	XMin [2]float64
	XMax [2]float64
}

// NewDomain returns [-extent[0], extent[0]] x [-extent[1], extent[1]]
func NewDomain(extent []float64) (d *Domain) {
	d = &Domain{
		XMin: [2]float64{-extent[0], -extent[1]},
		XMax: [2]float64{extent[0], extent[1]},
	}
	return
}

func (d *Domain) Size() (s [2]float64) {
	for i := 0; i < 2; i++ {
		s[i] = d.XMax[i] - d.XMin[i]
	}
	return
}

func (d *Domain) PointInside(x, y float64) (within bool) {
	var (
		pt = [2]float64{x, y}
	)
	for ii := 0; ii < 2; ii++ {
		if pt[ii] > d.XMax[ii] || pt[ii] < d.XMin[ii] {
			return false
		}
	}
	return true
}

// DistanceToEdge returns the distance from a point to the nearest edge along
// the given axis, negative outside the domain
func (d *Domain) DistanceToEdge(axis int, val float64) float64 {
	return math.Min(val-d.XMin[axis], d.XMax[axis]-val)
}
