package pes

import "gonum.org/v1/gonum/mat"

// Objective is a differentiable function over a continuous domain.
type Objective interface {
	// Func returns the objective value at x
	Func(x []float64) float64
	// Grad stores the gradient of the objective at x into grad
	Grad(grad, x []float64)
	// Dims returns the input dimension of the objective
	Dims() int
}

// Maximizer searches a box-bounded domain for the maximum of an objective.
// Maximization is best-effort: the returned point may be a local optimum,
// so callers must not trust the result unconditionally.
type Maximizer interface {
	// Maximize returns the best point found within [xMin, xMax] and its value.
	// Rows of starts, if any, are used as candidate starting points.
	Maximize(o Objective, xMin, xMax []float64, starts *mat.Dense) ([]float64, float64, error)
}
