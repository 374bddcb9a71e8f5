package posterior

import (
	"fmt"
	"math"

	"github.com/milosgajdos/matrix"
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/go-pes/noise"
	"github.com/milosgajdos/go-pes/rnd"
	"github.com/milosgajdos/go-pes/spd"
)

// SampleWeights draws one coefficient vector from the feature-space GP
// posterior given the feature matrix z (m x n) evaluated at the observed
// inputs, the observed outputs y and the noise variance sigma0.
// The draw is dispatched to one of two algebraically equivalent regimes
// depending on whether fewer observations than features are available:
// LowRank when n < m, FullRank otherwise.
// It returns error if the dimensions are inconsistent, sigma0 is not
// positive or the posterior covariance is not positive definite.
func SampleWeights(z *mat.Dense, y *mat.VecDense, sigma0 float64, src rand.Source) (*mat.VecDense, error) {
	m, n := z.Dims()

	if y.Len() != n {
		return nil, fmt.Errorf("invalid output count: %d != %d", y.Len(), n)
	}

	if sigma0 <= 0 {
		return nil, fmt.Errorf("invalid noise variance: %v", sigma0)
	}

	if n < m {
		return LowRank(z, y, sigma0, src)
	}

	return FullRank(z, y, sigma0, src)
}

// LowRank draws a coefficient vector from the feature-space posterior when
// fewer observations than features are available. It factors the draw
// through the n x n Gram matrix Z'Z + sigma0*I so that no m x m matrix is
// ever materialized, which matters when m greatly exceeds n.
// It returns error if the Gram matrix is not positive definite.
func LowRank(z *mat.Dense, y *mat.VecDense, sigma0 float64, src rand.Source) (*mat.VecDense, error) {
	m, n := z.Dims()

	// Gram = Z'Z + sigma0*I
	ztz := &mat.Dense{}
	ztz.Mul(z.T(), z)

	gram := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := ztz.At(i, j)
			if i == j {
				v += sigma0
			}
			gram.SetSym(i, j, v)
		}
	}

	// Gram = U*D*U'
	var eig mat.EigenSym
	if ok := eig.Factorize(gram, true); !ok {
		return nil, fmt.Errorf("failed to compute Gram matrix eigendecomposition")
	}

	vals := eig.Values(nil)
	for i := range vals {
		if vals[i] <= 0 {
			return nil, fmt.Errorf("Gram matrix is not positive definite: eigenvalue %d = %v", i, vals[i])
		}
	}

	u := &mat.Dense{}
	eig.VectorsTo(u)

	// mu = Z*U*D^-1*U'*y
	uty := mat.NewVecDense(n, nil)
	uty.MulVec(u.T(), y)
	for i := 0; i < n; i++ {
		uty.SetVec(i, uty.AtVec(i)/vals[i])
	}

	uuty := mat.NewVecDense(n, nil)
	uuty.MulVec(u, uty)

	mu := mat.NewVecDense(m, nil)
	mu.MulVec(z, uuty)

	eps := rnd.Normal(m, src)

	// corr = Z*U*(R .* (U'*Z'*eps)) with R = 1/(sqrt(D)*(sqrt(D) + sqrt(sigma0)))
	zte := mat.NewVecDense(n, nil)
	zte.MulVec(z.T(), eps)

	utze := mat.NewVecDense(n, nil)
	utze.MulVec(u.T(), zte)
	for i := 0; i < n; i++ {
		r := 1 / (math.Sqrt(vals[i]) * (math.Sqrt(vals[i]) + math.Sqrt(sigma0)))
		utze.SetVec(i, r*utze.AtVec(i))
	}

	uutze := mat.NewVecDense(n, nil)
	uutze.MulVec(u, utze)

	corr := mat.NewVecDense(m, nil)
	corr.MulVec(z, uutze)

	// a = eps - corr + mu
	a := mat.NewVecDense(m, nil)
	a.SubVec(eps, corr)
	a.AddVec(a, mu)

	return a, nil
}

// FullRank draws a coefficient vector from the feature-space posterior when
// at least as many observations as features are available. The posterior
// covariance (Z*Z'/sigma0 + I)^-1 is m x m and is inverted directly.
// It returns error if the covariance is not positive definite.
func FullRank(z *mat.Dense, y *mat.VecDense, sigma0 float64, src rand.Source) (*mat.VecDense, error) {
	m, _ := z.Dims()

	eye, err := matrix.NewDenseValIdentity(m, 1.0)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity matrix: %v", err)
	}

	// prec = Z*Z'/sigma0 + I
	zzt := &mat.Dense{}
	zzt.Mul(z, z.T())
	zzt.Scale(1/sigma0, zzt)
	zzt.Add(zzt, eye)

	prec := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			prec.SetSym(i, j, zzt.At(i, j))
		}
	}

	cov, err := spd.Inverse(prec)
	if err != nil {
		return nil, fmt.Errorf("failed to invert posterior precision matrix: %v", err)
	}

	// mu = cov*Z*y/sigma0
	zy := mat.NewVecDense(m, nil)
	zy.MulVec(z, y)

	mu := mat.NewVecDense(m, nil)
	mu.MulVec(cov, zy)
	mu.ScaleVec(1/sigma0, mu)

	muData := make([]float64, m)
	mat.Col(muData, 0, mu)

	g, err := noise.NewGaussian(muData, cov, src)
	if err != nil {
		return nil, fmt.Errorf("failed to create posterior noise: %v", err)
	}

	a := mat.NewVecDense(m, nil)
	a.CopyVec(g.Sample())

	return a, nil
}
