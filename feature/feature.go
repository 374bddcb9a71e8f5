package feature

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/milosgajdos/go-pes/rnd"
)

// Map is a random Fourier feature map approximating a squared-exponential
// GP kernel: k(x, x') is approximated by phi(x)' * phi(x') where
// phi(x) = sqrt(2*sigma/m) * cos(W*x + b).
type Map struct {
	// w is m x d matrix of random frequencies
	w *mat.Dense
	// b is vector of m random phases
	b *mat.VecDense
	// sigma is GP kernel signal variance
	sigma float64
	// m is the number of features
	m int
	// d is the input dimension
	d int
}

// New draws a new random feature map with m features over d input dimensions.
// Row r of the frequency matrix is drawn from N(0, diag(lengthScales)) and
// the phases are drawn uniformly from [0, 2*pi), both using the random source src.
// It returns error if either of the following conditions is met:
// - non-positive feature count, input dimension or signal variance is given
// - lengthScales does not have d strictly positive entries
func New(m, d int, lengthScales []float64, sigma float64, src rand.Source) (*Map, error) {
	if m <= 0 {
		return nil, fmt.Errorf("invalid feature count: %d", m)
	}

	if d <= 0 {
		return nil, fmt.Errorf("invalid input dimension: %d", d)
	}

	if sigma <= 0 {
		return nil, fmt.Errorf("invalid signal variance: %v", sigma)
	}

	if len(lengthScales) != d {
		return nil, fmt.Errorf("invalid length-scale count: %d != %d", len(lengthScales), d)
	}

	scale := make([]float64, d)
	for i, l := range lengthScales {
		if l <= 0 {
			return nil, fmt.Errorf("invalid length-scale: l[%d] = %v", i, l)
		}
		scale[i] = math.Sqrt(l)
	}

	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	w := mat.NewDense(m, d, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < d; j++ {
			w.Set(i, j, dist.Rand()*scale[j])
		}
	}

	b := rnd.Uniform(m, 0, 2*math.Pi, src)

	return &Map{
		w:     w,
		b:     b,
		sigma: sigma,
		m:     m,
		d:     d,
	}, nil
}

// Dims returns the feature count and the input dimension of the map.
func (f *Map) Dims() (m, d int) {
	return f.m, f.d
}

// Eval computes the feature matrix Z = sqrt(2*sigma/m) * cos(W*x' + b) for
// the k input points stored in the rows of x; the phase vector b is
// broadcast across the columns. Z has shape m x k.
// Both the posterior coefficient draw and the sampled function evaluation
// go through Eval so the two always share one feature convention.
// It returns error if the column count of x does not match the map dimension.
func (f *Map) Eval(x *mat.Dense) (*mat.Dense, error) {
	_, d := x.Dims()
	if d != f.d {
		return nil, fmt.Errorf("invalid input dimension: %d != %d", d, f.d)
	}

	z := &mat.Dense{}
	z.Mul(f.w, x.T())

	c := f.Scale()
	for i := 0; i < f.m; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] = c * math.Cos(row[j]+f.b.AtVec(i))
		}
	}

	return z, nil
}

// Scale returns the feature scaling factor sqrt(2*sigma/m).
func (f *Map) Scale() float64 {
	return math.Sqrt(2 * f.sigma / float64(f.m))
}
