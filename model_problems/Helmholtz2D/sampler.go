package Helmholtz2D

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/geometry2D"
	"github.com/notargets/gopinn/types"
)

// Sampler draws collocation points. Interior points are uniform over the
// domain, optionally with a fraction drawn from a normal distribution around
// the source so its narrow peak is resolved. Boundary points are uniform along
// the perimeter.
type Sampler struct {
	Domain            *geometry2D.Domain
	BatchSize         int
	BoundaryBatchSize int
	SourceFraction    float64
	ux, uy, perimeter distuv.Uniform
	nx, ny            distuv.Normal
}

func NewSampler(ip *InputParameters.InputParametersHelmholtz) (s *Sampler) {
	var (
		dom   = geometry2D.NewDomain(ip.DomainExtent)
		src   = rand.NewPCG(ip.Seed+1, ip.Seed^0x2545f4914f6cdd1d)
		size  = dom.Size()
		sigma = 2 * ip.SourceWidth
	)
	s = &Sampler{
		Domain:            dom,
		BatchSize:         ip.BatchSize,
		BoundaryBatchSize: ip.BoundaryBatchSize,
		SourceFraction:    ip.SourceSampleFraction,
		ux:                distuv.Uniform{Min: dom.XMin[0], Max: dom.XMax[0], Src: src},
		uy:                distuv.Uniform{Min: dom.XMin[1], Max: dom.XMax[1], Src: src},
		perimeter:         distuv.Uniform{Min: 0, Max: 2 * (size[0] + size[1]), Src: src},
		nx:                distuv.Normal{Mu: ip.SourceCenter[0], Sigma: sigma, Src: src},
		ny:                distuv.Normal{Mu: ip.SourceCenter[1], Sigma: sigma, Src: src},
	}
	return
}

func (s *Sampler) Draw() (cs CollocationSet) {
	cs = CollocationSet{
		Interior: s.Interior(),
		Boundary: s.Boundary(),
	}
	return
}

func (s *Sampler) Interior() (b types.Batch) {
	var (
		N       = s.BatchSize
		Nsource = int(s.SourceFraction * float64(N))
		near    = make([]types.Coordinate, Nsource)
	)
	b = types.NewBatch(N - Nsource)
	for i := range b.X {
		b.X[i], b.Y[i] = s.ux.Rand(), s.uy.Rand()
	}
	for i := range near {
		near[i] = s.nearSource()
	}
	return b.Append(types.NewBatchFromCoordinates(near))
}

// nearSource draws from the normal around the source, rejecting points
// outside the domain
func (s *Sampler) nearSource() (pt types.Coordinate) {
	for {
		pt.X, pt.Y = s.nx.Rand(), s.ny.Rand()
		if s.Domain.PointInside(pt.X, pt.Y) {
			return
		}
	}
}

func (s *Sampler) Boundary() (b types.Batch) {
	var (
		dom  = s.Domain
		size = dom.Size()
	)
	b = types.NewBatch(s.BoundaryBatchSize)
	for i := range b.X {
		// Walk counter clockwise from the lower left corner
		t := s.perimeter.Rand()
		switch {
		case t < size[0]:
			b.X[i], b.Y[i] = dom.XMin[0]+t, dom.XMin[1]
		case t < size[0]+size[1]:
			b.X[i], b.Y[i] = dom.XMax[0], dom.XMin[1]+(t-size[0])
		case t < 2*size[0]+size[1]:
			b.X[i], b.Y[i] = dom.XMax[0]-(t-size[0]-size[1]), dom.XMax[1]
		default:
			b.X[i], b.Y[i] = dom.XMin[0], dom.XMax[1]-(t-2*size[0]-size[1])
		}
	}
	return
}
