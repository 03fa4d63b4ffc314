package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	{ // Batch construction and views
		b := NewBatchFromCoordinates([]Coordinate{{0, 1}, {2, 3}, {4, 5}})
		require.Equal(t, 3, b.Len())
		assert.Equal(t, []float64{1, 3, 5}, b.Y)
		s := b.Slice(1, 3)
		assert.Equal(t, 2, s.Len())
		s.X[0] = 10
		assert.Equal(t, 10., b.X[1], "slice must share storage")
		a := b.Append(NewBatchFromCoordinates([]Coordinate{{-1, -2}}))
		assert.Equal(t, 4, a.Len())
		assert.Equal(t, -1., a.X[3])
		a.X[0] = 7
		assert.Equal(t, 0., b.X[0], "append must not share storage")
		assert.Equal(t, 3, b.Append(Batch{}).Len())
	}
	{ // Mismatched coordinates are a programming error
		b := Batch{X: make([]float64, 2), Y: make([]float64, 3)}
		assert.Panics(t, func() { b.Len() })
	}
	{ // Geometry name parsing
		gm, err := NewGeometryMode("Circle")
		require.NoError(t, err)
		assert.Equal(t, GEOM_Circle, gm)
		gm, err = NewGeometryMode(" topography ")
		require.NoError(t, err)
		assert.Equal(t, GEOM_Topography, gm)
		assert.Equal(t, "Sinusoidal topography", gm.Print())
		_, err = NewGeometryMode("hexagon")
		assert.Error(t, err)
		assert.Equal(t, "Unknown", GeometryMode(99).Print())
	}
}
