package Helmholtz2D

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

var HistoryHeader = []string{"iteration", "loss", "grad_norm", "learning_rate", "elapsed_s"}

// WriteHistory writes the training history as CSV, one row per iteration
func (tr *Trainer) WriteHistory(w io.Writer) (err error) {
	cw := csv.NewWriter(w)
	if err = cw.Write(HistoryHeader); err != nil {
		return
	}
	for _, rec := range tr.history {
		row := []string{
			fmt.Sprintf("%d", rec.Iteration),
			fmt.Sprintf("%.10e", rec.Loss),
			fmt.Sprintf("%.10e", rec.GradNorm),
			fmt.Sprintf("%.10e", rec.LearningRate),
			fmt.Sprintf("%.6f", rec.Elapsed.Seconds()),
		}
		if err = cw.Write(row); err != nil {
			return
		}
	}
	cw.Flush()
	err = cw.Error()
	return
}

func (tr *Trainer) WriteHistoryFile(fileName string) (err error) {
	var (
		f *os.File
	)
	if f, err = os.Create(fileName); err != nil {
		return
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err = tr.WriteHistory(bw); err != nil {
		return
	}
	err = bw.Flush()
	return
}
