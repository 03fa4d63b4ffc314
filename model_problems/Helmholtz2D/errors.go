package Helmholtz2D

import "fmt"

// DivergenceError reports a loss that became non-finite or exceeded the
// divergence bound. Training stops at the offending iteration and the
// parameters are left as they were before it.
type DivergenceError struct {
	Iteration int
	Loss      float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("numerical divergence at iteration %d, loss = %v", e.Iteration, e.Loss)
}

// NonConvergenceError reports an exhausted iteration budget. It is not fatal,
// training can be extended from the current parameters.
type NonConvergenceError struct {
	Iterations int
	Loss       float64
	Threshold  float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("no convergence after %d iterations, loss = %8.5e, threshold = %8.5e",
		e.Iterations, e.Loss, e.Threshold)
}
