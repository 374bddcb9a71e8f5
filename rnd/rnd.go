package rnd

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Normal draws n independent standard Normal (aka Gaussian) samples using
// the random source src and returns them as a vector.
// It panics if n is not positive.
func Normal(n int, src rand.Source) *mat.VecDense {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	data := make([]float64, n)
	for i := range data {
		data[i] = dist.Rand()
	}

	return mat.NewVecDense(n, data)
}

// Uniform draws n independent samples uniformly distributed on [min, max)
// using the random source src and returns them as a vector.
// It panics if n is not positive or if min >= max.
func Uniform(n int, min, max float64, src rand.Source) *mat.VecDense {
	dist := distuv.Uniform{Min: min, Max: max, Src: src}

	data := make([]float64, n)
	for i := range data {
		data[i] = dist.Rand()
	}

	return mat.NewVecDense(n, data)
}

// WithCovN draws n random samples from a zero-mean Normal distribution with covariance cov.
// It returns matrix which contains the randomly generated samples stored in its columns.
// It fails with error if n is non-positive or if SVD factorization of cov fails.
func WithCovN(cov mat.Symmetric, n int, src rand.Source) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	// Use SVD instead of Cholesky as Cholesky can be numerically unstable if cov is (almost) singular
	var svd mat.SVD
	ok := svd.Factorize(cov, mat.SVDFull)
	if !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	U := new(mat.Dense)
	svd.UTo(U)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	diag := mat.NewDiagDense(len(vals), vals)
	U.Mul(U, diag)

	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	rows, _ := cov.Dims()
	data := make([]float64, rows*n)
	for i := range data {
		data[i] = dist.Rand()
	}
	samples := mat.NewDense(rows, n, data)
	samples.Mul(U, samples)

	return samples, nil
}
