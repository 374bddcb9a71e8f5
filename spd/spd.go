package spd

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Factor computes the Cholesky decomposition of the symmetric positive
// definite matrix a. If the factorization fails it is retried once on a
// jittered copy of a, with jitter scaled by the matrix trace.
// It returns error if a is not positive definite within numerical tolerance.
func Factor(a mat.Symmetric) (*mat.Cholesky, error) {
	chol := &mat.Cholesky{}
	if ok := chol.Factorize(a); ok {
		return chol, nil
	}

	if ok := chol.Factorize(jitter(a)); !ok {
		return nil, fmt.Errorf("matrix is not positive definite")
	}

	return chol, nil
}

// Inverse computes the inverse of the symmetric positive definite matrix a.
// It first attempts Cholesky factorization and falls back to
// eigendecomposition if the factorization fails.
// It returns error if a is not positive definite within numerical tolerance.
func Inverse(a mat.Symmetric) (*mat.SymDense, error) {
	if chol, err := Factor(a); err == nil {
		inv := &mat.SymDense{}
		if err := chol.InverseTo(inv); err == nil {
			return inv, nil
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(a, true); !ok {
		return nil, fmt.Errorf("failed to compute eigendecomposition")
	}

	vals := eig.Values(nil)
	for i := range vals {
		if vals[i] <= 0 {
			return nil, fmt.Errorf("matrix is not positive definite: eigenvalue %d = %v", i, vals[i])
		}
	}

	u := &mat.Dense{}
	eig.VectorsTo(u)

	// inv = U * D^-1 * U'
	n := a.SymmetricDim()
	ud := &mat.Dense{}
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = 1 / vals[i]
	}
	ud.Mul(u, mat.NewDiagDense(n, diag))

	udu := &mat.Dense{}
	udu.Mul(ud, u.T())

	inv := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			inv.SetSym(i, j, udu.At(i, j))
		}
	}

	return inv, nil
}

// jitter returns a copy of a with its diagonal inflated proportionally to
// the matrix trace. It nudges nearly singular matrices back to positive
// definite territory.
func jitter(a mat.Symmetric) *mat.SymDense {
	n := a.SymmetricDim()

	j := mat.NewSymDense(n, nil)
	j.CopySym(a)

	var trace float64
	for i := 0; i < n; i++ {
		trace += a.At(i, i)
	}

	eps := 1e-8 * trace / float64(n)
	for i := 0; i < n; i++ {
		j.SetSym(i, i, j.At(i, i)+eps)
	}

	return j
}
