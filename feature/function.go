package feature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Function is one function drawn from the approximate GP posterior:
// f(x) = a' * phi(x) for a fixed coefficient vector a and feature map phi.
// It implements the pes.Objective interface.
type Function struct {
	// m is the feature map the function is defined over
	m *Map
	// a is the posterior coefficient vector
	a *mat.VecDense
}

// NewFunction creates a new posterior function draw from the feature map m
// and the coefficient vector a.
// It returns error if the length of a does not match the feature count of m.
func NewFunction(m *Map, a *mat.VecDense) (*Function, error) {
	if a.Len() != m.m {
		return nil, fmt.Errorf("invalid coefficient count: %d != %d", a.Len(), m.m)
	}

	return &Function{
		m: m,
		a: a,
	}, nil
}

// Dims returns the input dimension of the function.
func (f *Function) Dims() int {
	return f.m.d
}

// Func returns the function value a' * sqrt(2*sigma/m) * cos(W*x + b) at x.
// It panics if the length of x does not match the function input dimension.
func (f *Function) Func(x []float64) float64 {
	if len(x) != f.m.d {
		panic(fmt.Sprintf("invalid input dimension: %d != %d", len(x), f.m.d))
	}

	c := f.m.Scale()

	var val float64
	for r := 0; r < f.m.m; r++ {
		row := f.m.w.RawRowView(r)
		arg := f.m.b.AtVec(r)
		for j := range row {
			arg += row[j] * x[j]
		}
		val += f.a.AtVec(r) * c * math.Cos(arg)
	}

	return val
}

// Grad stores the gradient of the function at x into grad:
// the exact analytic derivative -a' * sqrt(2*sigma/m) * sin(W*x + b) .* W.
// It panics if the lengths of grad and x do not match the function input dimension.
func (f *Function) Grad(grad, x []float64) {
	if len(x) != f.m.d || len(grad) != f.m.d {
		panic(fmt.Sprintf("invalid input dimension: %d, %d != %d", len(grad), len(x), f.m.d))
	}

	for j := range grad {
		grad[j] = 0
	}

	c := f.m.Scale()

	for r := 0; r < f.m.m; r++ {
		row := f.m.w.RawRowView(r)
		arg := f.m.b.AtVec(r)
		for j := range row {
			arg += row[j] * x[j]
		}
		s := f.a.AtVec(r) * c * math.Sin(arg)
		for j := range row {
			grad[j] -= s * row[j]
		}
	}
}
