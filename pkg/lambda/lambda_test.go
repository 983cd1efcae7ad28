package lambda

import (
	"testing"

	"github.com/skybeacon/gnssgo/pkg/linalg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveRecoversExactIntegers checks that with a (nearly) diagonal,
// well-separated covariance the float ambiguities round to the fixed
// solution and the best candidate has the smaller residual.
func TestResolveRecoversExactIntegers(t *testing.T) {
	n, m := 3, 2
	a := []float64{1.1, -2.9, 3.05}
	q := linalg.Eye(n)
	for i := range q {
		if q[i] == 1 {
			q[i] = 0.01
		}
	}
	f, s, err := Resolve(n, m, a, q)
	require.NoError(t, err)
	require.Len(t, s, m)
	assert.LessOrEqual(t, s[0], s[1])
	assert.InDelta(t, 1.0, f[0], 1e-6)
	assert.InDelta(t, -3.0, f[1], 1e-6)
	assert.InDelta(t, 3.0, f[2], 1e-6)
}

func TestResolveRejectsNonPositiveDimensions(t *testing.T) {
	_, _, err := Resolve(0, 1, nil, nil)
	assert.ErrorIs(t, err, errDimension)
	_, _, err = Resolve(1, 0, nil, nil)
	assert.ErrorIs(t, err, errDimension)
}

func TestLdFactorizeRejectsNonPositiveDefinite(t *testing.T) {
	n := 2
	q := []float64{0, 0, 0, 1}
	l := linalg.Zeros(n, n)
	d := make([]float64, n)
	err := ldFactorize(n, q, l, d)
	assert.ErrorIs(t, err, errNonPositivePivot)
}

func TestReductionProducesUnimodularTransform(t *testing.T) {
	n := 2
	q := []float64{4, 2, 2, 3}
	z, err := Reduction(n, q)
	require.NoError(t, err)
	// det(Z) must be +-1 for a valid unimodular transform.
	det := z[0]*z[3] - z[1]*z[2]
	assert.InDelta(t, 1.0, det*det, 1e-9)
}

func TestSearchReturnsAscendingResiduals(t *testing.T) {
	n, m := 2, 2
	l := linalg.Eye(n)
	d := []float64{1, 1}
	zs := []float64{0.2, 0.8}
	zn, s, err := search(n, m, l, d, zs)
	require.NoError(t, err)
	require.Len(t, zn, n*m)
	assert.LessOrEqual(t, s[0], s[1])
}

func TestRoundFRoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 1.0, roundF(0.5))
	assert.Equal(t, -1.0, roundF(-0.5))
	assert.Equal(t, 2.0, roundF(1.6))
	assert.Equal(t, 0.0, roundF(0.49))
}
