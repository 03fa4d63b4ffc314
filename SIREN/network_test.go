package SIREN

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/types"
)

func smallConfig() Config {
	return Config{
		Depth:        2,
		Width:        6,
		Omega0First:  3,
		Omega0Hidden: 2,
		InputScale:   [2]float64{1, 0.5},
		Seed:         7,
	}
}

func TestNetworkConstruction(t *testing.T) {
	cfg := Config{Depth: 3, Width: 16, Omega0First: 30, Omega0Hidden: 30, InputScale: [2]float64{1, 1}, Seed: 1}
	nn := NewNetwork(cfg)
	require.Equal(t, 4, len(nn.Layers))
	assert.Equal(t, 2*16+16+2*(16*16+16)+16*2+2, nn.NumParams())
	{ // First layer spans several periods, later layers are variance preserving
		lay := nn.Layers[0]
		assert.Equal(t, 30., lay.Omega0)
		for _, w := range lay.W.RawMatrix().Data {
			assert.True(t, math.Abs(w) <= 0.5)
		}
		bound := math.Sqrt(6./16.) / 30.
		for l := 1; l < 4; l++ {
			for _, w := range nn.Layers[l].W.RawMatrix().Data {
				assert.True(t, math.Abs(w) <= bound)
			}
		}
		assert.True(t, nn.Layers[3].Linear())
		assert.Equal(t, []float64{0, 0}, nn.Layers[3].B)
	}
	{ // Same seed, same network
		nn2 := NewNetwork(cfg)
		assert.Equal(t, nn.Params(), nn2.Params())
		cfg.Seed = 2
		nn3 := NewNetwork(cfg)
		assert.NotEqual(t, nn.Params(), nn3.Params())
	}
	{ // Weight matrices are views into the parameter slice
		nn.Params()[0] = 0.125
		assert.Equal(t, 0.125, nn.Layers[0].W.At(0, 0))
	}
	assert.Panics(t, func() { NewNetwork(Config{Depth: 0, Width: 4}) })
}

func TestJetDerivatives(t *testing.T) {
	var (
		nn  = NewNetwork(smallConfig())
		pts = []types.Coordinate{{X: 0.1, Y: -0.3}, {X: -0.7, Y: 0.9}, {X: 0.45, Y: 0.05}}
	)
	fs, _ := nn.Forward(types.NewBatchFromCoordinates(pts))
	for i, p := range pts {
		for ch := 0; ch < 2; ch++ {
			fx := func(x float64) float64 {
				re, im := nn.Predict([]float64{x}, []float64{p.Y})
				return []float64{re[0], im[0]}[ch]
			}
			fy := func(y float64) float64 {
				re, im := nn.Predict([]float64{p.X}, []float64{y})
				return []float64{re[0], im[0]}[ch]
			}
			tol := 1.e-5
			assert.InDelta(t, fx(p.X), fs.V.At(ch, i), 1.e-14)
			assert.InDelta(t, fd.Derivative(fx, p.X, &fd.Settings{Formula: fd.Central}), fs.Dx.At(ch, i), tol)
			assert.InDelta(t, fd.Derivative(fy, p.Y, &fd.Settings{Formula: fd.Central}), fs.Dy.At(ch, i), tol)
			assert.InDelta(t, fd.Derivative(fx, p.X, &fd.Settings{Formula: fd.Central2nd}), fs.Dxx.At(ch, i), 1.e-4)
			assert.InDelta(t, fd.Derivative(fy, p.Y, &fd.Settings{Formula: fd.Central2nd}), fs.Dyy.At(ch, i), 1.e-4)
		}
	}
}

func TestBackward(t *testing.T) {
	var (
		nn  = NewNetwork(smallConfig())
		b   = types.NewBatchFromCoordinates([]types.Coordinate{{X: 0.2, Y: 0.1}, {X: -0.5, Y: -0.6}, {X: 0.8, Y: -0.25}, {X: 0, Y: 0.4}})
		N   = b.Len()
		wts = NewJet(2, N)
	)
	// A fixed linear functional of every jet component exercises all reverse paths
	for n, d := range wts.Data() {
		for i := range d {
			d[i] = math.Sin(float64(1+n*len(d)+i)) * float64(n+1)
		}
	}
	loss := func(p []float64) (L float64) {
		save := nn.CopyParams()
		nn.SetParams(p)
		fs, _ := nn.Forward(b)
		fsd, wd := fs.Data(), wts.Data()
		for n := range fsd {
			L += floats.Dot(fsd[n], wd[n])
		}
		nn.SetParams(save)
		return
	}
	var (
		grad = make([]float64, nn.NumParams())
		fdg  = make([]float64, nn.NumParams())
	)
	_, tape := nn.Forward(b)
	nn.Backward(tape, wts, grad)
	fd.Gradient(fdg, loss, nn.CopyParams(), &fd.Settings{Formula: fd.Central, Step: 1.e-6})
	for i := range grad {
		assert.InDelta(t, fdg[i], grad[i], 1.e-5*math.Max(1, math.Abs(fdg[i])), "parameter %d", i)
	}
	{ // Backward accumulates
		nn.Backward(tape, wts, grad)
		for i := range grad {
			assert.InDelta(t, 2*fdg[i], grad[i], 2.e-5*math.Max(1, math.Abs(fdg[i])))
		}
	}
	assert.Panics(t, func() { nn.Backward(tape, wts, make([]float64, 3)) })
}

func TestCheckpoint(t *testing.T) {
	nn := NewNetwork(smallConfig())
	fileName := t.TempDir() + "/net.yaml"
	require.NoError(t, nn.WriteCheckpoint(fileName))
	nn2, err := ReadCheckpoint(fileName)
	require.NoError(t, err)
	assert.Equal(t, nn.Cfg, nn2.Cfg)
	assert.InDeltaSlice(t, nn.Params(), nn2.Params(), 1.e-15)
	{
		_, err = NewNetworkFromCheckpoint([]byte("Depth: 2\nWidth: 6\nInputScale: [1, 1]\nParams: [1, 2]\n"))
		assert.Error(t, err)
		_, err = NewNetworkFromCheckpoint([]byte("Depth: 0\n"))
		assert.Error(t, err)
	}
	{
		bad := NewNetwork(smallConfig())
		bad.Params()[3] = math.NaN()
		err = bad.WriteCheckpoint(t.TempDir() + "/bad.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NaN")
	}
}

func TestCheckConfig(t *testing.T) {
	ip := InputParameters.NewInputParameters()
	ip.NetworkDepth, ip.NetworkWidth = 2, 6
	ip.Omega0First, ip.Omega0Hidden = 3, 2
	ip.DomainExtent = []float64{1, 2}
	nn := NewNetwork(smallConfig())
	{ // The seed is not part of the comparison
		ip.Seed = 99
		assert.NoError(t, nn.CheckConfig(ip))
	}
	{
		ip.DomainExtent = []float64{4, 4}
		err := nn.CheckConfig(ip)
		var ce *InputParameters.ConfigurationError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "DomainExtent", ce.Parameter)
	}
	{ // Every difference is reported
		ip.DomainExtent = []float64{1, 2}
		ip.NetworkDepth, ip.NetworkWidth, ip.Omega0First = 3, 64, 5
		err := nn.CheckConfig(ip)
		require.Error(t, err)
		for _, param := range []string{"NetworkDepth", "NetworkWidth", "Omega0First"} {
			assert.Contains(t, err.Error(), param)
		}
		assert.NotContains(t, err.Error(), "Omega0Hidden")
	}
}
