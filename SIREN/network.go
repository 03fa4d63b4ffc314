package SIREN

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/types"
)

type Config struct {
	Depth        int        // Number of sinusoidal layers
	Width        int        // Neurons per sinusoidal layer
	Omega0First  float64    // Frequency multiplier of the first layer
	Omega0Hidden float64    // Frequency multiplier of the remaining sinusoidal layers
	InputScale   [2]float64 // Maps physical coordinates onto [-1,1]
	Seed         uint64
}

func NewConfig(ip *InputParameters.InputParametersHelmholtz) Config {
	return Config{
		Depth:        ip.NetworkDepth,
		Width:        ip.NetworkWidth,
		Omega0First:  ip.Omega0First,
		Omega0Hidden: ip.Omega0Hidden,
		InputScale:   [2]float64{1. / ip.DomainExtent[0], 1. / ip.DomainExtent[1]},
		Seed:         ip.Seed,
	}
}

type Layer struct {
	NIn, NOut  int
	Omega0     float64    // Zero for the linear output layer
	W          *mat.Dense // NOut x NIn, a view into the network parameter slice
	B          []float64  // NOut, a view into the network parameter slice
	offW, offB int
}

func (l *Layer) Linear() bool { return l.Omega0 == 0 }

// Network is a SIREN: a stack of sin(Omega0*(W*a+b)) layers with a linear two
// channel output carrying Re(E_z) and Im(E_z)
type Network struct {
	Cfg    Config
	Layers []*Layer
	params []float64
}

func NewNetwork(cfg Config) (nn *Network) {
	if cfg.Depth < 1 || cfg.Width < 1 {
		panic(fmt.Errorf("network dimensions must be positive, have depth %d, width %d", cfg.Depth, cfg.Width))
	}
	nn = &Network{Cfg: cfg}
	var (
		sizes = []int{2}
		off   int
	)
	for i := 0; i < cfg.Depth; i++ {
		sizes = append(sizes, cfg.Width)
	}
	sizes = append(sizes, 2)
	nl := len(sizes) - 1
	nn.Layers = make([]*Layer, nl)
	for l := 0; l < nl; l++ {
		lay := &Layer{NIn: sizes[l], NOut: sizes[l+1]}
		switch {
		case l == nl-1:
			lay.Omega0 = 0
		case l == 0:
			lay.Omega0 = cfg.Omega0First
		default:
			lay.Omega0 = cfg.Omega0Hidden
		}
		lay.offW = off
		off += lay.NIn * lay.NOut
		lay.offB = off
		off += lay.NOut
		nn.Layers[l] = lay
	}
	nn.params = make([]float64, off)
	nn.bindViews()
	nn.initialize()
	return
}

func (nn *Network) bindViews() {
	for _, lay := range nn.Layers {
		lay.W = mat.NewDense(lay.NOut, lay.NIn, nn.params[lay.offW:lay.offW+lay.NIn*lay.NOut])
		lay.B = nn.params[lay.offB : lay.offB+lay.NOut]
	}
}

/*
Frequency aware initialization:
  - First layer weights ~ U(-1/n, 1/n): Omega0First*w*x then spans several periods over [-1,1]
  - Later layers ~ U(-sqrt(6/n)/Omega0, sqrt(6/n)/Omega0), which keeps the pre-activation
    distribution (and so the activation variance) fixed across depth
  - Biases ~ U(-1/sqrt(n), 1/sqrt(n)), output bias zero
*/
func (nn *Network) initialize() {
	var (
		src = rand.NewPCG(nn.Cfg.Seed, nn.Cfg.Seed^0x9e3779b97f4a7c15)
	)
	for l, lay := range nn.Layers {
		var (
			n     = float64(lay.NIn)
			bound float64
		)
		if l == 0 {
			bound = 1. / n
		} else {
			bound = math.Sqrt(6./n) / nn.Cfg.Omega0Hidden
		}
		wDist := distuv.Uniform{Min: -bound, Max: bound, Src: src}
		wData := nn.params[lay.offW : lay.offW+lay.NIn*lay.NOut]
		for i := range wData {
			wData[i] = wDist.Rand()
		}
		if lay.Linear() {
			continue
		}
		bBound := 1. / math.Sqrt(n)
		bDist := distuv.Uniform{Min: -bBound, Max: bBound, Src: src}
		for i := range lay.B {
			lay.B[i] = bDist.Rand()
		}
	}
}

func (nn *Network) NumParams() int { return len(nn.params) }

// Params returns the live parameter slice, writes through it change the network
func (nn *Network) Params() []float64 { return nn.params }

func (nn *Network) SetParams(p []float64) {
	if len(p) != len(nn.params) {
		panic(fmt.Errorf("parameter length mismatch, have %d, need %d", len(p), len(nn.params)))
	}
	copy(nn.params, p)
}

func (nn *Network) CopyParams() (p []float64) {
	p = make([]float64, len(nn.params))
	copy(p, nn.params)
	return
}

type layerRecord struct {
	In, Z *Jet
	S, C  []float64 // sin and cos of Omega0*Z.V, nil for linear layers
}

// Tape holds the intermediate jets of one Forward call for use in Backward
type Tape struct {
	layers []layerRecord
	Npts   int
}

func (nn *Network) inputJet(b types.Batch) (in *Jet) {
	var (
		N      = b.Len()
		sx, sy = nn.Cfg.InputScale[0], nn.Cfg.InputScale[1]
	)
	in = NewJet(2, N)
	for i := 0; i < N; i++ {
		in.V.Set(0, i, b.X[i]*sx)
		in.V.Set(1, i, b.Y[i]*sy)
		in.Dx.Set(0, i, sx)
		in.Dy.Set(1, i, sy)
	}
	return
}

// Forward evaluates the field and its derivatives at every point of the batch
func (nn *Network) Forward(b types.Batch) (fs FieldSample, tape *Tape) {
	var (
		in = nn.inputJet(b)
		N  = b.Len()
	)
	tape = &Tape{layers: make([]layerRecord, len(nn.Layers)), Npts: N}
	for l, lay := range nn.Layers {
		z := NewJet(lay.NOut, N)
		for n, zp := range z.Parts() {
			zp.Mul(lay.W, in.Parts()[n])
		}
		zD := z.V.RawMatrix().Data
		for i := 0; i < lay.NOut; i++ {
			for j := 0; j < N; j++ {
				zD[j+i*N] += lay.B[i]
			}
		}
		rec := layerRecord{In: in, Z: z}
		if lay.Linear() {
			in = z
		} else {
			in, rec.S, rec.C = activate(lay.Omega0, z)
		}
		tape.layers[l] = rec
	}
	fs = FieldSample{Jet: in}
	return
}

func activate(w0 float64, z *Jet) (h *Jet, S, C []float64) {
	var (
		nr, nc = z.Dims()
		zd     = z.Data()
		w02    = w0 * w0
	)
	h = NewJet(nr, nc)
	hd := h.Data()
	S, C = make([]float64, nr*nc), make([]float64, nr*nc)
	for i := range S {
		S[i], C[i] = math.Sincos(w0 * zd[0][i])
		zx, zy := zd[1][i], zd[2][i]
		hd[0][i] = S[i]
		hd[1][i] = w0 * C[i] * zx
		hd[2][i] = w0 * C[i] * zy
		hd[3][i] = w0*C[i]*zd[3][i] - w02*S[i]*zx*zx
		hd[4][i] = w0*C[i]*zd[4][i] - w02*S[i]*zy*zy
	}
	return
}

// activateBackward maps gradients with respect to the activation jet onto the
// pre-activation jet
func activateBackward(w0 float64, rec layerRecord, g *Jet) (gz *Jet) {
	var (
		nr, nc = g.Dims()
		gd     = g.Data()
		zd     = rec.Z.Data()
		S, C   = rec.S, rec.C
		w02    = w0 * w0
		w03    = w02 * w0
	)
	gz = NewJet(nr, nc)
	gzd := gz.Data()
	for i := range S {
		var (
			g0, gx, gy, gxx, gyy = gd[0][i], gd[1][i], gd[2][i], gd[3][i], gd[4][i]
			zx, zy, zxx, zyy     = zd[1][i], zd[2][i], zd[3][i], zd[4][i]
			wC, wS               = w0 * C[i], w02 * S[i]
		)
		gzd[0][i] = wC*g0 - wS*(zx*gx+zy*gy+zxx*gxx+zyy*gyy) - w03*C[i]*(zx*zx*gxx+zy*zy*gyy)
		gzd[1][i] = wC*gx - 2*wS*zx*gxx
		gzd[2][i] = wC*gy - 2*wS*zy*gyy
		gzd[3][i] = wC * gxx
		gzd[4][i] = wC * gyy
	}
	return
}

// Backward accumulates into dParams the gradient of a scalar loss with respect
// to the network parameters, given seed, the gradient of that loss with respect
// to every component of the output jet of the Forward call that produced tape.
func (nn *Network) Backward(tape *Tape, seed *Jet, dParams []float64) {
	if len(dParams) != len(nn.params) {
		panic(fmt.Errorf("gradient length mismatch, have %d, need %d", len(dParams), len(nn.params)))
	}
	var (
		g   = seed
		N   = tape.Npts
		tmp = mat.NewDense(1, 1, nil)
	)
	for l := len(nn.Layers) - 1; l >= 0; l-- {
		var (
			lay = nn.Layers[l]
			rec = tape.layers[l]
			gz  = g
		)
		if !lay.Linear() {
			gz = activateBackward(lay.Omega0, rec, g)
		}
		dW := mat.NewDense(lay.NOut, lay.NIn, dParams[lay.offW:lay.offW+lay.NIn*lay.NOut])
		inParts, gzParts := rec.In.Parts(), gz.Parts()
		for n := range gzParts {
			tmp.Reset()
			tmp.Mul(gzParts[n], inParts[n].T())
			dW.Add(dW, tmp)
		}
		gD := gz.V.RawMatrix().Data
		dB := dParams[lay.offB : lay.offB+lay.NOut]
		for i := 0; i < lay.NOut; i++ {
			for j := 0; j < N; j++ {
				dB[i] += gD[j+i*N]
			}
		}
		if l == 0 {
			break
		}
		g = NewJet(lay.NIn, N)
		for n, gp := range g.Parts() {
			gp.Mul(lay.W.T(), gzParts[n])
		}
	}
}

// Predict evaluates the field values only, for dense grid queries
func (nn *Network) Predict(X, Y []float64) (Re, Im []float64) {
	var (
		N = len(X)
		a = mat.NewDense(2, N, nil)
	)
	for i := 0; i < N; i++ {
		a.Set(0, i, X[i]*nn.Cfg.InputScale[0])
		a.Set(1, i, Y[i]*nn.Cfg.InputScale[1])
	}
	for _, lay := range nn.Layers {
		z := mat.NewDense(lay.NOut, N, nil)
		z.Mul(lay.W, a)
		zD := z.RawMatrix().Data
		for i := 0; i < lay.NOut; i++ {
			for j := 0; j < N; j++ {
				ind := j + i*N
				zD[ind] += lay.B[i]
				if !lay.Linear() {
					zD[ind] = math.Sin(lay.Omega0 * zD[ind])
				}
			}
		}
		a = z
	}
	Re, Im = make([]float64, N), make([]float64, N)
	copy(Re, a.RawRowView(ReChannel))
	copy(Im, a.RawRowView(ImChannel))
	return
}
