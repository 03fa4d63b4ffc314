package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLossReport(t *testing.T) {
	input := `iteration,loss,grad_norm,learning_rate,elapsed_s
0,1.0e+02,5.0,1.0e-03,0.01
1,1.0e+01,4.0,1.0e-03,0.02
2,1.0e+00,3.0,1.0e-03,0.03
3,1.0e-01,2.0,1.0e-03,0.04
`
	lh, err := readCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, lh.iteration)
	assert.InDeltaSlice(t, []float64{100, 55, 5.5, 0.55}, lh.MovingAverage(2), 1.e-12)
	assert.InDelta(t, 3., lh.Decades(1), 1.e-12)
	var buf bytes.Buffer
	lh.Report(&buf, 2)
	assert.Contains(t, buf.String(), "Iterations = 4")
	{
		_, err = readCSV(strings.NewReader("h\n0,1\n"))
		assert.Error(t, err)
		_, err = readCSV(strings.NewReader("h,h,h,h,h\n0,x,1,1,1\n"))
		assert.Error(t, err)
	}
}
