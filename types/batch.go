package types

import "fmt"

type Coordinate struct {
	X, Y float64
}

// Batch is a set of collocation points stored as parallel coordinate slices.
// Ordering carries no meaning.
type Batch struct {
	X, Y []float64
}

func NewBatch(N int) (b Batch) {
	b = Batch{
		X: make([]float64, N),
		Y: make([]float64, N),
	}
	return
}

func NewBatchFromCoordinates(pts []Coordinate) (b Batch) {
	b = NewBatch(len(pts))
	for i, p := range pts {
		b.X[i], b.Y[i] = p.X, p.Y
	}
	return
}

func (b Batch) Len() int {
	if len(b.X) != len(b.Y) {
		panic(fmt.Errorf("batch coordinate length mismatch, X[%d], Y[%d]", len(b.X), len(b.Y)))
	}
	return len(b.X)
}

// Slice returns a view of points [i1, i2), sharing storage with b
func (b Batch) Slice(i1, i2 int) Batch {
	return Batch{X: b.X[i1:i2], Y: b.Y[i1:i2]}
}

// Append returns a new batch holding the points of b followed by those of o
func (b Batch) Append(o Batch) (c Batch) {
	c = Batch{
		X: append(append(make([]float64, 0, b.Len()+o.Len()), b.X...), o.X...),
		Y: append(append(make([]float64, 0, b.Len()+o.Len()), b.Y...), o.Y...),
	}
	return
}
