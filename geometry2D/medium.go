package geometry2D

import (
	"math"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/types"
)

/*
	Medium supplies the relative permittivity eps(x,y). Every geometry is
	described by a signed indicator phi(x,y), positive inside the inclusion (or
	below the topographic interface) and zero on the interface itself.

	Edge policy: with InterfaceWidth == 0 the permittivity is a hard step,
	eps = EpsInclusion where phi >= 0. With InterfaceWidth = w > 0 the step is
	replaced by a tanh band of half width ~w centered on the interface:
		eps = EpsBackground + (EpsInclusion-EpsBackground) * (1+tanh(phi/w))/2
	The band keeps eps smooth for the residual at the price of blurring the
	interface over a few w.
*/
type Medium struct {
	Mode                        types.GeometryMode
	EpsBackground, EpsInclusion float64
	Center                      [2]float64
	Radius                      float64
	HalfSide                    float64
	HalfWidth, HalfThickness    float64
	TopoAmplitude, TopoPeriod   float64
	TopoOffset                  float64
	InterfaceWidth              float64
}

func NewMedium(ip *InputParameters.InputParametersHelmholtz) (md *Medium) {
	md = &Medium{
		Mode:           ip.Geometry(),
		EpsBackground:  ip.EpsBackground(),
		EpsInclusion:   ip.EpsInclusion(),
		Center:         [2]float64{ip.GeometryCenter[0], ip.GeometryCenter[1]},
		Radius:         ip.Radius,
		HalfSide:       0.5 * ip.Side,
		HalfWidth:      0.5 * ip.Width,
		HalfThickness:  0.5 * ip.Thickness,
		TopoAmplitude:  ip.TopographyAmplitude,
		TopoPeriod:     ip.TopographyPeriod,
		TopoOffset:     ip.TopographyOffset,
		InterfaceWidth: ip.InterfaceWidth,
	}
	return
}

// InterfaceY is the height of the topographic interface at x
func (md *Medium) InterfaceY(x float64) float64 {
	return md.TopoOffset + md.TopoAmplitude*math.Sin(2*math.Pi*x/md.TopoPeriod)
}

// Indicator is the signed distance-like function of the geometry
func (md *Medium) Indicator(x, y float64) (phi float64) {
	var (
		dx, dy = x - md.Center[0], y - md.Center[1]
	)
	switch md.Mode {
	case types.GEOM_Circle:
		phi = md.Radius - math.Hypot(dx, dy)
	case types.GEOM_Square:
		phi = math.Min(md.HalfSide-math.Abs(dx), md.HalfSide-math.Abs(dy))
	case types.GEOM_Waveguide:
		phi = math.Min(md.HalfWidth-math.Abs(dx), md.HalfThickness-math.Abs(dy))
	case types.GEOM_Topography:
		phi = md.InterfaceY(x) - y
	default:
		phi = math.Inf(-1)
	}
	return
}

func (md *Medium) Epsilon(x, y float64) (eps float64) {
	var (
		phi    = md.Indicator(x, y)
		lo, hi = md.EpsBackground, math.Max(md.EpsBackground, md.EpsInclusion)
	)
	if md.InterfaceWidth == 0 || math.IsInf(phi, 0) {
		if phi >= 0 {
			return md.EpsInclusion
		}
		return md.EpsBackground
	}
	t := 0.5 * (1 + math.Tanh(phi/md.InterfaceWidth))
	eps = md.EpsBackground + (md.EpsInclusion-md.EpsBackground)*t
	eps = math.Min(math.Max(eps, lo), hi)
	return
}

func (md *Medium) EpsilonBatch(b types.Batch) (eps []float64) {
	eps = make([]float64, b.Len())
	for i := range eps {
		eps[i] = md.Epsilon(b.X[i], b.Y[i])
	}
	return
}
