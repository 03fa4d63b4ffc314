package Helmholtz2D

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/SIREN"
	"github.com/notargets/gopinn/geometry2D"
	"github.com/notargets/gopinn/types"
	"github.com/notargets/gopinn/utils"
)

// CollocationSet is one training batch: interior points carrying the PDE
// residual and optional points on the outer boundary
type CollocationSet struct {
	Interior types.Batch
	Boundary types.Batch
}

/*
	ResidualEngine composes the network, medium, source and absorbing layer
	into the loss

		R    = -Lap~ E - eps omega^2 E + i omega J
		loss = mean(Re(R)^2 + Im(R)^2) + BoundaryWeight * mean_boundary(|E|^2)

	Lap~ is the PML stretched Laplacian. The loss is a pure function of the
	network parameters and the batch. Points are sharded over ParallelDegree
	go routines and partial sums are reduced in bucket order, so repeated
	evaluations with the same inputs are bitwise identical.
*/
type ResidualEngine struct {
	Net            *SIREN.Network
	Medium         *geometry2D.Medium
	Source         *Source
	PML            *PML
	Omega          float64
	BoundaryWeight float64
	ProcLimit      int // Zero uses every CPU
}

func NewResidualEngine(ip *InputParameters.InputParametersHelmholtz, net *SIREN.Network, ProcLimit int) (re *ResidualEngine) {
	re = &ResidualEngine{
		Net:            net,
		Medium:         geometry2D.NewMedium(ip),
		Source:         NewSource(ip),
		PML:            NewPML(ip),
		Omega:          ip.Omega(),
		BoundaryWeight: ip.BoundaryWeight,
		ProcLimit:      ProcLimit,
	}
	return
}

// PointResidual evaluates R at one point from the field and its derivatives.
// cE, cEx, cEy, cExx, cEyy are the coefficients of the linear map R(E).
func (re *ResidualEngine) PointResidual(x, y float64, E, Ex, Ey, Exx, Eyy complex128) (R complex128,
	cE, cEx, cEy, cExx, cEyy complex128) {
	var (
		eps  = re.Medium.Epsilon(x, y)
		A, B = re.PML.Coefficients(x, y)
	)
	cE = complex(-eps*re.Omega*re.Omega, 0)
	cEx, cEy = -B[0], -B[1]
	cExx, cEyy = -A[0], -A[1]
	R = cE*E + cEx*Ex + cEy*Ey + cExx*Exx + cEyy*Eyy + complex(0, re.Source.Drive(x, y))
	return
}

// Residual returns R at every point of the batch
func (re *ResidualEngine) Residual(b types.Batch) (R []complex128) {
	var (
		N = b.Len()
	)
	R = make([]complex128, N)
	if N == 0 {
		return
	}
	pm := utils.NewPartitionMap(utils.ParallelDegreeFor(re.ProcLimit, N), N)
	pm.Execute(func(np, kMin, kMax int) {
		fs, _ := re.Net.Forward(b.Slice(kMin, kMax))
		for i := 0; i < kMax-kMin; i++ {
			E, Ex, Ey, Exx, Eyy := fs.At(i)
			R[kMin+i], _, _, _, _, _ = re.PointResidual(b.X[kMin+i], b.Y[kMin+i], E, Ex, Ey, Exx, Eyy)
		}
	})
	return
}

// Loss evaluates the scalar loss without gradients
func (re *ResidualEngine) Loss(cs CollocationSet) (loss float64) {
	return re.evaluate(cs, nil)
}

// LossAndGrad evaluates the loss and overwrites grad with its gradient with
// respect to the network parameters
func (re *ResidualEngine) LossAndGrad(cs CollocationSet, grad []float64) (loss float64) {
	if len(grad) != re.Net.NumParams() {
		panic(fmt.Errorf("gradient length mismatch, have %d, need %d", len(grad), re.Net.NumParams()))
	}
	return re.evaluate(cs, grad)
}

func (re *ResidualEngine) evaluate(cs CollocationSet, grad []float64) (loss float64) {
	var (
		Ni = cs.Interior.Len()
		Nb = cs.Boundary.Len()
	)
	if Ni == 0 {
		panic(fmt.Errorf("empty interior collocation batch"))
	}
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}
	loss = re.reduce(cs.Interior, grad, func(b types.Batch, g []float64) float64 {
		return re.interiorBucket(b, 1./float64(Ni), g)
	})
	if re.BoundaryWeight > 0 && Nb > 0 {
		loss += re.reduce(cs.Boundary, grad, func(b types.Batch, g []float64) float64 {
			return re.boundaryBucket(b, re.BoundaryWeight/float64(Nb), g)
		})
	}
	return
}

// reduce shards the batch, runs f on every shard and sums losses and
// gradients into grad in bucket order
func (re *ResidualEngine) reduce(b types.Batch, grad []float64,
	f func(b types.Batch, g []float64) float64) (sum float64) {
	var (
		N  = b.Len()
		pm = utils.NewPartitionMap(utils.ParallelDegreeFor(re.ProcLimit, N), N)
		NP = pm.ParallelDegree
	)
	partial := make([]float64, NP)
	grads := make([][]float64, NP)
	pm.Execute(func(np, kMin, kMax int) {
		if grad != nil {
			grads[np] = make([]float64, len(grad))
		}
		partial[np] = f(b.Slice(kMin, kMax), grads[np])
	})
	for np := 0; np < NP; np++ {
		sum += partial[np]
		if grad != nil {
			floats.Add(grad, grads[np])
		}
	}
	return
}

// setSeed stores the gradient with respect to a complex field component
func setSeed(m *mat.Dense, i int, g complex128) {
	m.Set(SIREN.ReChannel, i, real(g))
	m.Set(SIREN.ImChannel, i, imag(g))
}

/*
	interiorBucket returns scale * sum |R|^2 over the points of b and, when
	grad is not nil, accumulates its parameter gradient. R is linear in the
	field components, R = sum_k c_k F_k, so with G = 2 scale R the gradient
	with respect to (Re F_k, Im F_k) is conj(c_k) G.
*/
func (re *ResidualEngine) interiorBucket(b types.Batch, scale float64, grad []float64) (sum float64) {
	var (
		N        = b.Len()
		fs, tape = re.Net.Forward(b)
		seed     *SIREN.Jet
	)
	if grad != nil {
		seed = SIREN.NewJet(2, N)
	}
	for i := 0; i < N; i++ {
		E, Ex, Ey, Exx, Eyy := fs.At(i)
		R, cE, cEx, cEy, cExx, cEyy := re.PointResidual(b.X[i], b.Y[i], E, Ex, Ey, Exx, Eyy)
		rr, ri := real(R), imag(R)
		sum += rr*rr + ri*ri
		if seed == nil {
			continue
		}
		G := complex(2*scale, 0) * R
		setSeed(seed.V, i, cmplx.Conj(cE)*G)
		setSeed(seed.Dx, i, cmplx.Conj(cEx)*G)
		setSeed(seed.Dy, i, cmplx.Conj(cEy)*G)
		setSeed(seed.Dxx, i, cmplx.Conj(cExx)*G)
		setSeed(seed.Dyy, i, cmplx.Conj(cEyy)*G)
	}
	if seed != nil {
		re.Net.Backward(tape, seed, grad)
	}
	sum *= scale
	return
}

// boundaryBucket returns scale * sum |E|^2 over the points of b
func (re *ResidualEngine) boundaryBucket(b types.Batch, scale float64, grad []float64) (sum float64) {
	var (
		N        = b.Len()
		fs, tape = re.Net.Forward(b)
		seed     *SIREN.Jet
	)
	if grad != nil {
		seed = SIREN.NewJet(2, N)
	}
	for i := 0; i < N; i++ {
		E, _, _, _, _ := fs.At(i)
		sum += real(E)*real(E) + imag(E)*imag(E)
		if seed != nil {
			setSeed(seed.V, i, complex(2*scale, 0)*E)
		}
	}
	if seed != nil {
		re.Net.Backward(tape, seed, grad)
	}
	sum *= scale
	return
}
