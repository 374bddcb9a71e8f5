package spd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestFactor(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewSymDense(2, []float64{4, 2, 2, 3})

	chol, err := Factor(a)
	assert.NotNil(chol)
	assert.NoError(err)

	// L*L' must reproduce a
	l := mat.NewTriDense(2, mat.Lower, nil)
	chol.LTo(l)

	llt := &mat.Dense{}
	llt.Mul(l, l.T())
	assert.True(mat.EqualApprox(a, llt, 1e-10))

	// nearly singular matrix is recovered via jitter
	singular := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	chol, err = Factor(singular)
	assert.NotNil(chol)
	assert.NoError(err)

	// indefinite matrix must fail loudly
	indefinite := mat.NewSymDense(2, []float64{1, 0, 0, -1})
	chol, err = Factor(indefinite)
	assert.Nil(chol)
	assert.Error(err)
}

func TestInverse(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewSymDense(3, []float64{
		4, 1, 0,
		1, 3, 1,
		0, 1, 2,
	})

	inv, err := Inverse(a)
	assert.NotNil(inv)
	assert.NoError(err)

	// a*inv must be identity
	prod := &mat.Dense{}
	prod.Mul(a, inv)

	eye := mat.NewDiagDense(3, []float64{1, 1, 1})
	assert.True(mat.EqualApprox(eye, prod, 1e-10))

	// indefinite matrix must fail loudly
	indefinite := mat.NewSymDense(2, []float64{1, 0, 0, -1})
	inv, err = Inverse(indefinite)
	assert.Nil(inv)
	assert.Error(err)
}
