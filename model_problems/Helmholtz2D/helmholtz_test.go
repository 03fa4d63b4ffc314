package Helmholtz2D

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/SIREN"
	"github.com/notargets/gopinn/types"
	"github.com/notargets/gopinn/utils"
)

// smallParameters is a network small enough for finite difference checks
func smallParameters() (ip *InputParameters.InputParametersHelmholtz) {
	ip = InputParameters.NewInputParameters()
	ip.NetworkDepth = 1
	ip.NetworkWidth = 8
	ip.Omega0First = 3
	ip.Omega0Hidden = 3
	ip.BatchSize = 12
	ip.BoundaryBatchSize = 4
	ip.BoundaryWeight = 0.5
	ip.SourceWidth = 0.3
	ip.Seed = 11
	return
}

func TestPML(t *testing.T) {
	var (
		ip  = InputParameters.NewInputParameters()
		pml = NewPML(ip)
		D   = ip.PMLMaxDamping
	)
	{ // Interior is untouched
		for _, x := range utils.Linspace(-0.79, 0.79, 33) {
			for _, y := range utils.Linspace(-0.79, 0.79, 33) {
				sx, sy := pml.Factor(x, y)
				assert.Equal(t, complex128(1), sx)
				assert.Equal(t, complex128(1), sy)
				A, B := pml.Coefficients(x, y)
				assert.Equal(t, [2]complex128{1, 1}, A)
				assert.Equal(t, [2]complex128{0, 0}, B)
				assert.False(t, pml.InLayer(x, y))
			}
		}
	}
	{ // Unit magnitude on the inner edge, D on the outer edge, corners included
		for _, c := range []float64{-0.8, 0.8} {
			sx, sy := pml.Factor(c, c)
			assert.InDelta(t, 1., cmplx.Abs(sx), 1.e-12)
			assert.InDelta(t, 1., cmplx.Abs(sy), 1.e-12)
		}
		for _, c := range []float64{-1, 1} {
			sx, sy := pml.Factor(c, 0)
			assert.InDelta(t, D, cmplx.Abs(sx), 1.e-12)
			assert.Equal(t, complex128(1), sy)
			sx, sy = pml.Factor(c, -c)
			assert.InDelta(t, D, cmplx.Abs(sx), 1.e-12)
			assert.InDelta(t, D, cmplx.Abs(sy), 1.e-12)
			assert.True(t, pml.InLayer(c, 0))
		}
		// Held constant beyond the domain
		sx, _ := pml.Factor(1.3, 0)
		assert.InDelta(t, D, cmplx.Abs(sx), 1.e-12)
	}
	{ // Monotone and symmetric through the shell
		var last float64
		for _, x := range utils.Linspace(0.8, 1, 101) {
			sx, _ := pml.Factor(x, 0.5)
			sxm, _ := pml.Factor(-x, 0.5)
			assert.Equal(t, sx, sxm)
			assert.True(t, cmplx.Abs(sx) >= last)
			assert.Equal(t, 1., real(sx))
			last = cmplx.Abs(sx)
		}
	}
	{ // Derivative of the stretching against finite differences
		for _, x := range []float64{-0.95, -0.87, 0.83, 0.91, 0.99} {
			ds, _ := pml.Derivative(x, 0)
			im := func(x float64) float64 {
				s, _ := pml.Factor(x, 0)
				return imag(s)
			}
			assert.InDelta(t, fd.Derivative(im, x, &fd.Settings{Formula: fd.Central, Step: 1.e-6}), imag(ds), 1.e-6)
			assert.Equal(t, 0., real(ds))
		}
	}
	{ // A E'' + B E' reproduces (1/s) d/dx ((1/s) dE/dx)
		var (
			E1 = func(x float64) complex128 { return complex(3*math.Cos(3*x), -2*math.Sin(2*x)) }
			E2 = func(x float64) complex128 { return complex(-9*math.Sin(3*x), -4*math.Cos(2*x)) }
		)
		flux := func(x float64) complex128 {
			sx, _ := pml.Factor(x, 0)
			return E1(x) / sx
		}
		for _, x := range []float64{-0.9, 0.85, 0.97} {
			var (
				sx, _ = pml.Factor(x, 0)
				A, B  = pml.Coefficients(x, 0)
				set   = &fd.Settings{Formula: fd.Central, Step: 1.e-6}
				dRe   = fd.Derivative(func(x float64) float64 { return real(flux(x)) }, x, set)
				dIm   = fd.Derivative(func(x float64) float64 { return imag(flux(x)) }, x, set)
				want  = complex(dRe, dIm) / sx
				have  = A[0]*E2(x) + B[0]*E1(x)
			)
			assert.InDelta(t, real(want), real(have), 1.e-5)
			assert.InDelta(t, imag(want), imag(have), 1.e-5)
		}
	}
	{ // Linear profile
		ip.PMLOrder = 1
		pml = NewPML(ip)
		sx, _ := pml.Factor(0.9, 0)
		assert.InDelta(t, 0.5*math.Sqrt(D*D-1), imag(sx), 1.e-12)
	}
}

func TestSource(t *testing.T) {
	var (
		ip = InputParameters.NewInputParameters()
	)
	ip.SourceCenter = []float64{0.2, -0.1}
	ip.SourceAmplitude = 2.5
	ip.SourceWidth = 0.07
	ip.AngularFrequency = 3
	src := NewSource(ip)
	{ // The integral over the plane is the total energy
		var (
			half  = 12 * ip.SourceWidth
			cx    = ip.SourceCenter[0]
			cy    = ip.SourceCenter[1]
			inner = func(x float64) float64 {
				return quad.Fixed(func(y float64) float64 { return src.J(x, y) }, cy-half, cy+half, 64, quad.Legendre{}, 0)
			}
			total = quad.Fixed(inner, cx-half, cx+half, 64, quad.Legendre{}, 0)
		)
		assert.InDelta(t, 2.5*2*math.Pi*0.07*0.07, src.TotalEnergy(), 1.e-14)
		assert.InDelta(t, src.TotalEnergy(), total, 1.e-8*src.TotalEnergy())
	}
	{ // Peak at the center and smooth decay away from it
		assert.InDelta(t, 2.5, src.J(0.2, -0.1), 1.e-15)
		assert.InDelta(t, 3*2.5, src.Drive(0.2, -0.1), 1.e-14)
		last := math.Inf(1)
		for _, r := range utils.Linspace(0, 1, 50) {
			j := src.J(0.2+r*math.Cos(0.3), -0.1+r*math.Sin(0.3))
			assert.True(t, j <= last)
			last = j
		}
		assert.InDelta(t, 2.5*math.Exp(-4.5), src.J(0.2+3*0.07, -0.1), 1.e-14)
		assert.True(t, src.J(0.9, 0.9) < 1.e-20)
	}
	{
		b := types.NewBatchFromCoordinates([]types.Coordinate{{X: 0.2, Y: -0.1}, {X: 0, Y: 0}})
		J := src.JBatch(b)
		assert.Equal(t, []float64{src.J(0.2, -0.1), src.J(0, 0)}, J)
	}
}

func TestSampler(t *testing.T) {
	ip := InputParameters.NewInputParameters()
	ip.DomainExtent = []float64{2, 1}
	ip.BatchSize = 400
	ip.BoundaryBatchSize = 200
	ip.SourceSampleFraction = 0.25
	ip.SourceCenter = []float64{1.5, 0.5}
	s := NewSampler(ip)
	cs := s.Draw()
	require.Equal(t, 400, cs.Interior.Len())
	require.Equal(t, 200, cs.Boundary.Len())
	for i := 0; i < cs.Interior.Len(); i++ {
		assert.True(t, s.Domain.PointInside(cs.Interior.X[i], cs.Interior.Y[i]))
	}
	{ // The last quarter is concentrated around the source
		var near int
		for i := 300; i < 400; i++ {
			if math.Hypot(cs.Interior.X[i]-1.5, cs.Interior.Y[i]-0.5) < 0.5 {
				near++
			}
		}
		assert.True(t, near > 90)
	}
	{ // Boundary points lie on an edge, and every edge is visited
		var edges [4]int
		for i := 0; i < cs.Boundary.Len(); i++ {
			x, y := cs.Boundary.X[i], cs.Boundary.Y[i]
			switch {
			case math.Abs(y+1) < utils.NODETOL:
				edges[0]++
			case math.Abs(x-2) < utils.NODETOL:
				edges[1]++
			case math.Abs(y-1) < utils.NODETOL:
				edges[2]++
			case math.Abs(x+2) < utils.NODETOL:
				edges[3]++
			default:
				t.Errorf("point (%v, %v) is not on the boundary", x, y)
			}
			assert.True(t, s.Domain.PointInside(x, y))
		}
		for _, n := range edges {
			assert.True(t, n > 0)
		}
	}
	{ // Deterministic for a fixed seed
		cs2 := NewSampler(ip).Draw()
		assert.Equal(t, cs.Interior, cs2.Interior)
		assert.Equal(t, cs.Boundary, cs2.Boundary)
		assert.NotEqual(t, cs.Interior, s.Interior())
	}
}

func TestResidual(t *testing.T) {
	var (
		ip  = smallParameters()
		net = SIREN.NewNetwork(SIREN.NewConfig(ip))
		re  = NewResidualEngine(ip, net, 3)
		cs  = NewSampler(ip).Draw()
	)
	require.NoError(t, ip.Validate())
	{ // Residual of a unit field at rest at the source center
		R, cE, _, _, cExx, _ := re.PointResidual(0, 0, 1, 0, 0, 0, 0)
		eps := re.Medium.Epsilon(0, 0)
		assert.Equal(t, complex(-eps, re.Source.Drive(0, 0)), R)
		assert.Equal(t, complex(-eps, 0), cE)
		assert.Equal(t, complex128(-1), cExx)
	}
	{ // Loss agrees with the pointwise residual and boundary penalty
		var (
			R    = re.Residual(cs.Interior)
			want float64
		)
		for _, r := range R {
			want += real(r)*real(r) + imag(r)*imag(r)
		}
		want /= float64(len(R))
		Re, Im := net.Predict(cs.Boundary.X, cs.Boundary.Y)
		var bnd float64
		for i := range Re {
			bnd += Re[i]*Re[i] + Im[i]*Im[i]
		}
		want += ip.BoundaryWeight * bnd / float64(len(Re))
		assert.InDelta(t, want, re.Loss(cs), utils.LOSSTOL*want)
	}
	{ // Deterministic, and independent of the parallel degree up to rounding
		var (
			g1 = make([]float64, net.NumParams())
			g2 = make([]float64, net.NumParams())
		)
		l1 := re.LossAndGrad(cs, g1)
		l2 := re.LossAndGrad(cs, g2)
		assert.Equal(t, l1, l2)
		assert.Equal(t, g1, g2)
		assert.Equal(t, l1, re.Loss(cs))
		serial := NewResidualEngine(ip, net, 1)
		assert.InDelta(t, l1, serial.Loss(cs), utils.LOSSTOL*l1)
	}
	{ // Parameter gradient against finite differences
		var (
			grad = make([]float64, net.NumParams())
			fdg  = make([]float64, net.NumParams())
			p0   = net.CopyParams()
		)
		re.LossAndGrad(cs, grad)
		loss := func(p []float64) float64 {
			net.SetParams(p)
			defer net.SetParams(p0)
			return re.Loss(cs)
		}
		fd.Gradient(fdg, loss, p0, &fd.Settings{Formula: fd.Central, Step: 1.e-6})
		for i := range grad {
			assert.InDelta(t, fdg[i], grad[i], 1.e-5*math.Max(1, math.Abs(fdg[i])), "parameter %d", i)
		}
		assert.Equal(t, p0, net.Params())
	}
	assert.Panics(t, func() { re.LossAndGrad(cs, make([]float64, 2)) })
	assert.Panics(t, func() { re.Loss(CollocationSet{}) })
}

func TestGrid(t *testing.T) {
	var (
		ip  = smallParameters()
		net = SIREN.NewNetwork(SIREN.NewConfig(ip))
		re  = NewResidualEngine(ip, net, 2)
		gf  = re.Grid(5, 4, true)
	)
	require.Equal(t, 20, len(gf.Re))
	require.Equal(t, 20, len(gf.Residual))
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5, 1}, gf.X)
	assert.InDelta(t, -1., gf.Y[0], 1.e-15)
	assert.InDelta(t, 1., gf.Y[3], 1.e-15)
	for j := 0; j < 4; j++ {
		for i := 0; i < 5; i++ {
			var (
				x, y   = gf.X[i], gf.Y[j]
				Re, Im = net.Predict([]float64{x}, []float64{y})
				ind    = i + j*5
			)
			gRe, gIm := gf.At(i, j)
			assert.InDelta(t, Re[0], gRe, 1.e-14)
			assert.InDelta(t, Im[0], gIm, 1.e-14)
			assert.Equal(t, re.Medium.Epsilon(x, y), gf.Epsilon[ind])
			assert.Equal(t, re.Source.J(x, y), gf.Source[ind])
			assert.True(t, utils.IsFinite(gf.Residual[ind]))
		}
	}
	mag := gf.Magnitude()
	assert.InDelta(t, math.Hypot(gf.Re[7], gf.Im[7]), mag[7], 1.e-15)
	assert.Nil(t, re.Grid(3, 3, false).Residual)
}
