package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gopinn/model_problems/Helmholtz2D"
)

var (
	csvFile string
	window  = 50
)

func main() {
	csvFilePtr := flag.String("csvFile", csvFile, "loss history written by gopinn train --history")
	windowPtr := flag.Int("window", window, "number of iterations in the moving average")
	flag.Parse()
	csvFile = *csvFilePtr
	window = *windowPtr
	if len(csvFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Printf("Input file: %v\n", csvFile)
	f, err := os.Open(csvFile)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	lh, err := readCSV(bufio.NewReader(f))
	if err != nil {
		panic(err)
	}
	lh.Report(os.Stdout, window)
}

type LossHistory struct {
	iteration []int
	loss      []float64
	gradNorm  []float64
	elapsed   []float64
}

func (lh *LossHistory) Add(iteration int, loss, gradNorm, elapsed float64) {
	lh.iteration = append(lh.iteration, iteration)
	lh.loss = append(lh.loss, loss)
	lh.gradNorm = append(lh.gradNorm, gradNorm)
	lh.elapsed = append(lh.elapsed, elapsed)
}

func readCSV(r io.Reader) (lh *LossHistory, err error) {
	var (
		records                 [][]string
		it                      int
		loss, gradNorm, elapsed float64
	)
	lh = &LossHistory{}
	if records, err = csv.NewReader(r).ReadAll(); err != nil {
		return
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) < 5 {
			err = fmt.Errorf("line %d: expected 5 fields, have %d", i+1, len(rec))
			return
		}
		if it, err = strconv.Atoi(rec[0]); err != nil {
			return
		}
		if loss, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return
		}
		if gradNorm, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return
		}
		if elapsed, err = strconv.ParseFloat(rec[4], 64); err != nil {
			return
		}
		lh.Add(it, loss, gradNorm, elapsed)
	}
	return
}

// MovingAverage is the trailing mean of the loss over window iterations
func (lh *LossHistory) MovingAverage(window int) (avg []float64) {
	return Helmholtz2D.MovingAverage(lh.loss, window)
}

// Decades is the number of orders of magnitude the smoothed loss fell by
func (lh *LossHistory) Decades(window int) float64 {
	avg := lh.MovingAverage(window)
	if len(avg) == 0 || avg[len(avg)-1] <= 0 {
		return 0
	}
	return math.Log10(avg[0] / avg[len(avg)-1])
}

func (lh *LossHistory) Report(w io.Writer, window int) {
	N := len(lh.loss)
	if N == 0 {
		fmt.Fprintf(w, "empty loss history\n")
		return
	}
	avg := lh.MovingAverage(window)
	fmt.Fprintf(w, "Iterations = %d, Wall Time = %8.3fs\n", N, lh.elapsed[N-1])
	fmt.Fprintf(w, "Loss First = %12.4e, Last = %12.4e, Min = %12.4e at %d\n",
		lh.loss[0], lh.loss[N-1], floats.Min(lh.loss), lh.iteration[floats.MinIdx(lh.loss)])
	fmt.Fprintf(w, "Moving average over %d iterations reduced by %5.2f decades\n", window, lh.Decades(window))
	fmt.Fprintf(w, "    iter     MovAvg    GradNorm\n")
	stride := N / 10
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < N; i += stride {
		fmt.Fprintf(w, "%8d%12.4e%12.4e\n", lh.iteration[i], avg[i], lh.gradNorm[i])
	}
}
