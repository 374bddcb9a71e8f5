package maxvalue

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var (
	xx       *mat.Dense
	yy       *mat.VecDense
	xMin     []float64
	xMax     []float64
	settings []Hyperparams
)

func setup() {
	xx = mat.NewDense(3, 1, []float64{0.0, 1.0, 2.0})
	yy = mat.NewVecDense(3, []float64{0.0, 1.0, 0.5})
	xMin = []float64{-1.0}
	xMax = []float64{3.0}
	settings = []Hyperparams{
		{NoiseVar: 0.01, SignalVar: 1.0, LengthScales: []float64{1.0}},
	}
}

func TestMain(m *testing.M) {
	setup()
	retCode := m.Run()
	os.Exit(retCode)
}

func testConfig() *Config {
	return &Config{
		NumFeatures: 50,
		Epsilon:     DefaultEpsilon,
		Workers:     2,
		Seed:        42,
	}
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	s, err := New(xx, yy, xMin, xMax, nil, testConfig())
	assert.NotNil(s)
	assert.NoError(err)

	// nil config falls back to defaults
	s, err = New(xx, yy, xMin, xMax, nil, nil)
	assert.NotNil(s)
	assert.NoError(err)

	for _, test := range []struct {
		x    *mat.Dense
		y    *mat.VecDense
		xMin []float64
		xMax []float64
		c    *Config
	}{
		// nil observations
		{x: nil, y: yy, xMin: xMin, xMax: xMax, c: nil},
		{x: xx, y: nil, xMin: xMin, xMax: xMax, c: nil},
		// observation count mismatch
		{x: xx, y: mat.NewVecDense(2, nil), xMin: xMin, xMax: xMax, c: nil},
		// domain dimension mismatch
		{x: xx, y: yy, xMin: []float64{-1, -1}, xMax: xMax, c: nil},
		// inverted domain
		{x: xx, y: yy, xMin: []float64{3}, xMax: []float64{-1}, c: nil},
		// invalid feature count
		{x: xx, y: yy, xMin: xMin, xMax: xMax, c: &Config{NumFeatures: 0}},
		// negative margin
		{x: xx, y: yy, xMin: xMin, xMax: xMax, c: &Config{NumFeatures: 50, Epsilon: -0.1}},
	} {
		s, err := New(test.x, test.y, test.xMin, test.xMax, nil, test.c)
		assert.Nil(s)
		assert.Error(err)
	}
}

func TestSampleShape(t *testing.T) {
	assert := assert.New(t)

	s, err := New(xx, yy, xMin, xMax, nil, testConfig())
	assert.NoError(err)

	two := []Hyperparams{
		{NoiseVar: 0.01, SignalVar: 1.0, LengthScales: []float64{1.0}},
		{NoiseVar: 0.1, SignalVar: 2.0, LengthScales: []float64{0.5}},
	}

	out, err := s.Sample(two, 3)
	assert.NotNil(out)
	assert.NoError(err)

	rows, cols := out.Dims()
	assert.Equal(2, rows)
	assert.Equal(3, cols)
}

func TestSampleFloor(t *testing.T) {
	assert := assert.New(t)

	// every sampled maximum must respect the floor max(y) + epsilon,
	// including a zero margin
	for _, eps := range []float64{0.0, 0.1, 0.5} {
		c := testConfig()
		c.Epsilon = eps

		s, err := New(xx, yy, xMin, xMax, nil, c)
		assert.NoError(err)

		out, err := s.Sample(settings, 5)
		assert.NoError(err)

		floor := 1.0 + eps
		rows, cols := out.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				assert.True(out.At(i, j) >= floor, "sample %v below floor %v", out.At(i, j), floor)
			}
		}
	}
}

func TestSampleEndToEnd(t *testing.T) {
	assert := assert.New(t)

	s, err := New(xx, yy, xMin, xMax, nil, testConfig())
	assert.NoError(err)

	out, err := s.Sample(settings, 20)
	assert.NotNil(out)
	assert.NoError(err)

	rows, cols := out.Dims()
	assert.Equal(1, rows)
	assert.Equal(20, cols)

	// max(y) = 1 so every sample must be at least 1.1
	for j := 0; j < cols; j++ {
		assert.True(out.At(0, j) >= 1.1)
	}

	// draws must show genuine posterior diversity
	var distinct bool
	for j := 1; j < cols; j++ {
		if out.At(0, j) != out.At(0, 0) {
			distinct = true
			break
		}
	}
	assert.True(distinct)
}

func TestSampleDegenerate(t *testing.T) {
	assert := assert.New(t)

	// single observation, single feature: both linear algebra paths must
	// survive and the floor must hold
	x1 := mat.NewDense(1, 1, []float64{0.5})
	y1 := mat.NewVecDense(1, []float64{0.3})

	c := testConfig()
	c.NumFeatures = 1

	s, err := New(x1, y1, xMin, xMax, nil, c)
	assert.NoError(err)

	out, err := s.Sample(settings, 3)
	assert.NotNil(out)
	assert.NoError(err)

	for j := 0; j < 3; j++ {
		assert.True(out.At(0, j) >= 0.3+DefaultEpsilon)
	}
}

func TestSampleInvalid(t *testing.T) {
	assert := assert.New(t)

	s, err := New(xx, yy, xMin, xMax, nil, testConfig())
	assert.NoError(err)

	// no settings
	out, err := s.Sample(nil, 5)
	assert.Nil(out)
	assert.Error(err)

	// invalid sample count
	out, err = s.Sample(settings, 0)
	assert.Nil(out)
	assert.Error(err)

	for _, test := range []Hyperparams{
		{NoiseVar: 0, SignalVar: 1, LengthScales: []float64{1}},
		{NoiseVar: 0.01, SignalVar: -1, LengthScales: []float64{1}},
		{NoiseVar: 0.01, SignalVar: 1, LengthScales: []float64{1, 1}},
		{NoiseVar: 0.01, SignalVar: 1, LengthScales: nil},
	} {
		out, err := s.Sample([]Hyperparams{test}, 2)
		assert.Nil(out)
		assert.Error(err)
	}
}

func TestSampleDeterministic(t *testing.T) {
	assert := assert.New(t)

	// equal seeds must reproduce equal samples; a single worker keeps
	// the order of maximizer restart draws stable
	c := testConfig()
	c.Workers = 1

	s1, err := New(xx, yy, xMin, xMax, nil, c)
	assert.NoError(err)
	s2, err := New(xx, yy, xMin, xMax, nil, c)
	assert.NoError(err)

	out1, err := s1.Sample(settings, 4)
	assert.NoError(err)
	out2, err := s2.Sample(settings, 4)
	assert.NoError(err)

	assert.True(mat.Equal(out1, out2))
}

func TestSampleSuccessive(t *testing.T) {
	assert := assert.New(t)

	// successive calls on one sampler must not replay the same streams
	c := testConfig()
	c.Workers = 1

	s, err := New(xx, yy, xMin, xMax, nil, c)
	assert.NoError(err)

	out1, err := s.Sample(settings, 4)
	assert.NoError(err)
	out2, err := s.Sample(settings, 4)
	assert.NoError(err)

	assert.False(mat.Equal(out1, out2))
}
