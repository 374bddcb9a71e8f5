package noise

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov mat.Symmetric
}

// NewGaussian creates new Gaussian noise with given mean and covariance,
// drawing its samples from the random source src.
// It returns error if the covariance is not positive definite.
func NewGaussian(mean []float64, cov mat.Symmetric, src rand.Source) (*Gaussian, error) {
	dist, ok := distmv.NewNormal(mean, cov, src)
	if !ok {
		return nil, fmt.Errorf("failed to create new Gaussian noise")
	}

	return &Gaussian{
		dist: dist,
		mean: mean,
		cov:  cov,
	}, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	return g.cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	return g.mean
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
