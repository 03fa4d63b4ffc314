package utils

const (
	NODETOL = 1.e-12
	// LOSSTOL bounds the relative difference between loss evaluations that differ only in summation order
	LOSSTOL = 1.e-12
)
