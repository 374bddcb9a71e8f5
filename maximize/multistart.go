package maximize

import (
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	pes "github.com/milosgajdos/go-pes"
)

// MultiStart is a best-effort box-bounded global maximizer.
// It runs a local search from every supplied candidate point plus a number
// of uniformly random restarts and keeps the best result found.
// Gradient-based search (L-BFGS) is attempted first; if it fails for a
// given start the search falls back to derivative-free Nelder-Mead.
type MultiStart struct {
	// restarts is the number of random starting points
	restarts int
	// rng generates random restart locations
	rng *rand.Rand
	// mu guards rng so Maximize can run concurrently
	mu sync.Mutex
}

// New creates new MultiStart maximizer with the given number of random
// restarts on top of any candidate starting points, drawing restart
// locations from the random source src. If src is nil a time-seeded source
// is used.
// It returns error if a negative number of restarts is given.
func New(restarts int, src rand.Source) (*MultiStart, error) {
	if restarts < 0 {
		return nil, fmt.Errorf("invalid number of restarts: %d", restarts)
	}

	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	return &MultiStart{
		restarts: restarts,
		rng:      rand.New(src),
	}, nil
}

// Maximize searches for the maximum of the objective o within the box
// [xMin, xMax]. Rows of starts, if any, are used as candidate starting
// points alongside the random restarts; every start is also scored
// directly so the result is never worse than the best candidate.
// Maximize is safe for concurrent use.
// It returns the best point found and its value, or error if either the
// domain is invalid or every local search fails.
func (ms *MultiStart) Maximize(o pes.Objective, xMin, xMax []float64, starts *mat.Dense) ([]float64, float64, error) {
	d := o.Dims()

	if len(xMin) != d || len(xMax) != d {
		return nil, 0, fmt.Errorf("invalid domain dimensions: %d, %d != %d", len(xMin), len(xMax), d)
	}
	for i := range xMin {
		if xMin[i] >= xMax[i] {
			return nil, 0, fmt.Errorf("invalid domain: xMin[%d] = %v >= xMax[%d] = %v", i, xMin[i], i, xMax[i])
		}
	}

	clamped := func(x []float64) []float64 {
		c := make([]float64, len(x))
		for i := range x {
			c[i] = math.Max(xMin[i], math.Min(x[i], xMax[i]))
		}
		return c
	}

	// local searches minimize the negated objective
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return -o.Func(clamped(x))
		},
		Grad: func(grad, x []float64) {
			o.Grad(grad, clamped(x))
			for i := range grad {
				grad[i] = -grad[i]
			}
		},
	}

	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-8,
			Relative:   1e-8,
			Iterations: 100,
		},
	}

	var pts [][]float64
	if starts != nil {
		rows, cols := starts.Dims()
		if cols != d {
			return nil, 0, fmt.Errorf("invalid start point dimension: %d != %d", cols, d)
		}
		for i := 0; i < rows; i++ {
			pt := make([]float64, d)
			mat.Row(pt, i, starts)
			pts = append(pts, pt)
		}
	}

	ms.mu.Lock()
	for i := 0; i < ms.restarts; i++ {
		pt := make([]float64, d)
		for j := range pt {
			pt[j] = xMin[j] + ms.rng.Float64()*(xMax[j]-xMin[j])
		}
		pts = append(pts, pt)
	}
	ms.mu.Unlock()

	if len(pts) == 0 {
		return nil, 0, fmt.Errorf("no starting points available")
	}

	bestVal := math.Inf(-1)
	var bestX []float64

	// score the raw starts so an optimizer failure can never do worse
	// than the best candidate
	for _, pt := range pts {
		x := clamped(pt)
		if v := o.Func(x); v > bestVal {
			bestVal = v
			bestX = x
		}
	}

	for _, pt := range pts {
		res, err := optimize.Minimize(problem, append([]float64(nil), pt...), settings, &optimize.LBFGS{})
		if err != nil {
			res, err = optimize.Minimize(problem, append([]float64(nil), pt...), settings, &optimize.NelderMead{})
		}
		if err != nil || res == nil {
			continue
		}

		x := clamped(res.X)
		if v := o.Func(x); v > bestVal {
			bestVal = v
			bestX = x
		}
	}

	if bestX == nil {
		return nil, 0, fmt.Errorf("failed to find a maximum")
	}

	return bestX, bestVal, nil
}
