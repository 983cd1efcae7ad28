package linalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvIdentity(t *testing.T) {
	A := Eye(3)
	require.NoError(t, Inv(A, 3))
	assert.Equal(t, Eye(3), A)
}

func TestInvSingular(t *testing.T) {
	A := Zeros(2, 2) // all-zero matrix is singular
	assert.Error(t, Inv(A, 2))
}

func TestLSQRecoversExactFit(t *testing.T) {
	// Overdetermined y = x for 3 measurements of 1 parameter.
	A := []float64{1, 1, 1} // transposed design matrix, 1 x 3
	y := []float64{2, 2, 2}
	x := Mat(1, 1)
	Q := Mat(1, 1)
	require.NoError(t, LSQ(A, y, 1, 3, x, Q))
	assert.InDelta(t, 2.0, x[0], 1e-9)
}

func TestCross3(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{0, 1, 0}
	c := make([]float64, 3)
	Cross3(a, b, c)
	assert.Equal(t, []float64{0, 0, 1}, c)
}
