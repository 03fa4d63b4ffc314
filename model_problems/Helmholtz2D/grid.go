package Helmholtz2D

import (
	"math"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/gopinn/types"
	"github.com/notargets/gopinn/utils"
)

// GridField is the trained field sampled on a uniform nx x ny grid, stored
// row major with x varying fastest
type GridField struct {
	Title    string    `json:"Title"`
	Nx       int       `json:"Nx"`
	Ny       int       `json:"Ny"`
	X        []float64 `json:"X"`
	Y        []float64 `json:"Y"`
	Re       []float64 `json:"Re"`
	Im       []float64 `json:"Im"`
	Epsilon  []float64 `json:"Epsilon"`
	Source   []float64 `json:"Source"`
	Residual []float64 `json:"Residual,omitempty"` // |R| when requested
}

func (gf *GridField) At(i, j int) (re, im float64) {
	ind := i + j*gf.Nx
	return gf.Re[ind], gf.Im[ind]
}

// Magnitude returns |E_z| at every grid point
func (gf *GridField) Magnitude() (mag []float64) {
	mag = make([]float64, len(gf.Re))
	for i := range mag {
		mag[i] = math.Hypot(gf.Re[i], gf.Im[i])
	}
	return
}

/*
	Grid evaluates the network on a uniform grid covering the whole domain,
	absorbing layers included. The network alone is queried for the field, the
	medium and source are sampled for reference. withResidual adds |R| from the
	same derivative evaluation used in training.
*/
func (re *ResidualEngine) Grid(nx, ny int, withResidual bool) (gf *GridField) {
	var (
		dom = re.PML.Domain
		N   = nx * ny
	)
	gf = &GridField{
		Nx:      nx,
		Ny:      ny,
		X:       utils.Linspace(dom.XMin[0], dom.XMax[0], nx),
		Y:       utils.Linspace(dom.XMin[1], dom.XMax[1], ny),
		Epsilon: make([]float64, N),
		Source:  make([]float64, N),
	}
	var (
		X, Y = make([]float64, N), make([]float64, N)
	)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			ind := i + j*nx
			X[ind], Y[ind] = gf.X[i], gf.Y[j]
			gf.Epsilon[ind] = re.Medium.Epsilon(X[ind], Y[ind])
			gf.Source[ind] = re.Source.J(X[ind], Y[ind])
		}
	}
	gf.Re, gf.Im = make([]float64, N), make([]float64, N)
	pm := utils.NewPartitionMap(utils.ParallelDegreeFor(re.ProcLimit, N), N)
	pm.Execute(func(np, kMin, kMax int) {
		Re, Im := re.Net.Predict(X[kMin:kMax], Y[kMin:kMax])
		copy(gf.Re[kMin:kMax], Re)
		copy(gf.Im[kMin:kMax], Im)
	})
	if withResidual {
		R := re.Residual(types.Batch{X: X, Y: Y})
		gf.Residual = make([]float64, N)
		for i, r := range R {
			gf.Residual[i] = math.Hypot(real(r), imag(r))
		}
	}
	return
}

func (gf *GridField) WriteYAML(fileName string) (err error) {
	var (
		data []byte
	)
	if data, err = yaml.Marshal(gf); err != nil {
		return
	}
	err = os.WriteFile(fileName, data, 0644)
	return
}
