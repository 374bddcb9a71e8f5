package maxvalue

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	pes "github.com/milosgajdos/go-pes"
	"github.com/milosgajdos/go-pes/feature"
	"github.com/milosgajdos/go-pes/maximize"
	"github.com/milosgajdos/go-pes/posterior"
)

// DefaultEpsilon is the default margin by which every sampled maximum must
// exceed the best observed output. It is part of the public contract:
// DefaultConfig applies it whenever no explicit margin is configured.
const DefaultEpsilon = 0.1

// defaultRestarts is the number of random restarts of the default maximizer.
const defaultRestarts = 10

// Hyperparams is one GP hyperparameter setting drawn from the
// hyperparameter posterior.
type Hyperparams struct {
	// NoiseVar is observation noise variance
	NoiseVar float64
	// SignalVar is kernel signal variance
	SignalVar float64
	// LengthScales are kernel per-dimension length-scales
	LengthScales []float64
}

// Config is max-value sampler configuration.
type Config struct {
	// NumFeatures is the number of random Fourier features used to
	// approximate the GP posterior
	NumFeatures int
	// Epsilon is the margin by which every sampled maximum must exceed
	// the best observed output. The configured value is honored as
	// given, including zero; DefaultConfig sets it to DefaultEpsilon.
	Epsilon float64
	// Workers is the number of sampling iterations run in parallel
	Workers int
	// Seed seeds the per-iteration random streams of the first Sample
	// call; 0 means time-seeded
	Seed uint64
}

// DefaultConfig returns default sampler configuration.
func DefaultConfig() *Config {
	return &Config{
		NumFeatures: 100,
		Epsilon:     DefaultEpsilon,
		Workers:     runtime.GOMAXPROCS(0),
	}
}

// Sampler draws samples of the maximum value attainable by an unknown
// function modeled with a GP, given noisy observations of the function.
// Each sample is obtained by drawing one function from the approximate
// GP posterior over random Fourier features and maximizing it over the
// box domain of the sampler.
type Sampler struct {
	// x stores observed inputs in its rows
	x *mat.Dense
	// y stores observed outputs
	y *mat.VecDense
	// xMin, xMax are the box domain bounds
	xMin []float64
	xMax []float64
	// mx maximizes sampled functions over the domain
	mx pes.Maximizer
	// c is sampler configuration
	c Config
	// seed is the base of the per-iteration random streams of the next
	// Sample call; it advances with every call so repeated calls draw
	// fresh samples
	seed uint64
	// yBest is the largest observed output
	yBest float64
}

// New creates new max-value Sampler for the observed inputs x (one row per
// observation), the observed outputs y and the box domain [xMin, xMax].
// The maximizer mx may be nil in which case a MultiStart maximizer seeded
// from the configuration is used. The configuration c may be nil in which
// case DefaultConfig is used.
// It returns error if either of the following conditions is met:
// - x or y is nil or empty, or their observation counts disagree
// - the domain bounds do not match the input dimension or are not
//   elementwise strictly ordered
// - the configuration contains a non-positive feature or worker count or
//   a negative margin
func New(x *mat.Dense, y *mat.VecDense, xMin, xMax []float64, mx pes.Maximizer, c *Config) (*Sampler, error) {
	if x == nil || y == nil {
		return nil, fmt.Errorf("invalid observations supplied: %v, %v", x, y)
	}

	n, d := x.Dims()
	if n == 0 || d == 0 {
		return nil, fmt.Errorf("invalid observation dimensions: [%d x %d]", n, d)
	}

	if y.Len() != n {
		return nil, fmt.Errorf("invalid output count: %d != %d", y.Len(), n)
	}

	if len(xMin) != d || len(xMax) != d {
		return nil, fmt.Errorf("invalid domain dimensions: %d, %d != %d", len(xMin), len(xMax), d)
	}
	for i := range xMin {
		if xMin[i] >= xMax[i] {
			return nil, fmt.Errorf("invalid domain: xMin[%d] = %v >= xMax[%d] = %v", i, xMin[i], i, xMax[i])
		}
	}

	if c == nil {
		c = DefaultConfig()
	}

	if c.NumFeatures <= 0 {
		return nil, fmt.Errorf("invalid feature count: %d", c.NumFeatures)
	}

	if c.Epsilon < 0 {
		return nil, fmt.Errorf("invalid epsilon: %v", c.Epsilon)
	}

	cfg := *c
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	if mx == nil {
		var err error
		mx, err = maximize.New(defaultRestarts, rand.NewSource(cfg.Seed))
		if err != nil {
			return nil, fmt.Errorf("failed to create default maximizer: %v", err)
		}
	}

	xx := &mat.Dense{}
	xx.CloneFrom(x)

	yy := &mat.VecDense{}
	yy.CloneFromVec(y)

	return &Sampler{
		x:     xx,
		y:     yy,
		xMin:  append([]float64(nil), xMin...),
		xMax:  append([]float64(nil), xMax...),
		mx:    mx,
		c:     cfg,
		seed:  cfg.Seed,
		yBest: floats.Max(yy.RawVector().Data),
	}, nil
}

// Sample draws nK independent max-value samples for every supplied
// hyperparameter setting and returns them in a matrix with one row per
// setting and one column per draw. Every entry is at least
// max(y) + Epsilon: a sampled maximum below that floor, which can happen
// when the maximizer lands in a poor local optimum, is silently replaced
// by the floor rather than surfaced as an error.
// All settings-draw iterations are independent: each one draws a fresh
// feature map and coefficient vector from its own random stream, and up to
// Workers iterations run in parallel. The base seed advances with every
// call so successive calls on the same Sampler return fresh draws.
// It returns error if no settings are given, nK is not positive, any
// setting has non-positive variances or length-scales of the wrong
// dimension, or a sampling iteration fails numerically.
func (s *Sampler) Sample(settings []Hyperparams, nK int) (*mat.Dense, error) {
	if len(settings) == 0 {
		return nil, fmt.Errorf("no hyperparameter settings supplied")
	}

	if nK <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", nK)
	}

	_, d := s.x.Dims()
	for i, h := range settings {
		if h.NoiseVar <= 0 {
			return nil, fmt.Errorf("invalid noise variance: sigma0[%d] = %v", i, h.NoiseVar)
		}
		if h.SignalVar <= 0 {
			return nil, fmt.Errorf("invalid signal variance: sigma[%d] = %v", i, h.SignalVar)
		}
		if len(h.LengthScales) != d {
			return nil, fmt.Errorf("invalid length-scale count: len(l[%d]) = %d != %d", i, len(h.LengthScales), d)
		}
	}

	out := mat.NewDense(len(settings), nK, nil)

	// claim a block of per-iteration seeds for this call
	total := uint64(len(settings) * nK)
	base := atomic.AddUint64(&s.seed, total) - total

	g := new(errgroup.Group)
	g.SetLimit(s.c.Workers)

	for i := range settings {
		for j := 0; j < nK; j++ {
			i, j := i, j
			g.Go(func() error {
				src := rand.NewSource(base + uint64(i*nK+j))
				v, err := s.drawMax(settings[i], src)
				if err != nil {
					return fmt.Errorf("failed to sample maximum (%d, %d): %v", i, j, err)
				}
				// cells are disjoint per (i, j) so no locking is needed
				out.Set(i, j, v)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// drawMax draws one function from the approximate GP posterior under the
// hyperparameter setting h and maximizes it over the sampler domain.
func (s *Sampler) drawMax(h Hyperparams, src rand.Source) (float64, error) {
	_, d := s.x.Dims()

	fm, err := feature.New(s.c.NumFeatures, d, h.LengthScales, h.SignalVar, src)
	if err != nil {
		return 0, fmt.Errorf("failed to draw feature map: %v", err)
	}

	z, err := fm.Eval(s.x)
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate features: %v", err)
	}

	a, err := posterior.SampleWeights(z, s.y, h.NoiseVar, src)
	if err != nil {
		return 0, fmt.Errorf("failed to sample posterior weights: %v", err)
	}

	f, err := feature.NewFunction(fm, a)
	if err != nil {
		return 0, fmt.Errorf("failed to build sampled function: %v", err)
	}

	// observed inputs seed the search with known good regions
	_, val, err := s.mx.Maximize(f, s.xMin, s.xMax, s.x)
	if err != nil {
		return 0, fmt.Errorf("failed to maximize sampled function: %v", err)
	}

	// the modeled maximum must exceed the best observation; anything
	// lower means the maximizer under-performed and is floored
	if floor := s.yBest + s.c.Epsilon; val < floor {
		val = floor
	}

	return val, nil
}
