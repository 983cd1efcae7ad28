// Package lambda implements the LAMBDA/MLAMBDA integer least-squares
// ambiguity resolution kernel: LD factorization, Z-transform reduction,
// and the MLAMBDA depth-first tree search, as consumed by a carrier-phase
// RTK/PPP filter this module does not itself implement.
package lambda

import (
	"errors"
	"math"

	"github.com/skybeacon/gnssgo/pkg/linalg"
)

// loopMax bounds the MLAMBDA search; exceeding it returns errSearchOverflow.
const loopMax = 10000

var (
	errDimension       = errors.New("lambda: n and m must be positive")
	errNonPositivePivot = errors.New("lambda: LD factorization pivot <= 0")
	errSearchOverflow   = errors.New("lambda: mlambda search loop overflow")
)

func sgn(x float64) float64 {
	if x <= 0 {
		return -1
	}
	return 1
}

func roundF(x float64) float64 {
	t := math.Trunc(x)
	if math.Abs(x-t) >= 0.5 {
		return t + math.Copysign(1, x)
	}
	return t
}

// ldFactorize factors Q (n x n, column-major) as Q = L'*diag(D)*L via the
// down-looking variant, writing into L (n x n) and D (n x 1). Fails if
// any pivot is non-positive.
func ldFactorize(n int, q []float64, l, d []float64) error {
	a := make([]float64, n*n)
	copy(a, q)
	for i := n - 1; i >= 0; i-- {
		d[i] = a[i+i*n]
		if d[i] <= 0 {
			return errNonPositivePivot
		}
		s := math.Sqrt(d[i])
		for j := 0; j <= i; j++ {
			l[i+j*n] = a[i+j*n] / s
		}
		for j := 0; j <= i-1; j++ {
			for k := 0; k <= j; k++ {
				a[j+k*n] -= l[i+k*n] * l[i+j*n]
			}
		}
		for j := 0; j <= i; j++ {
			l[i+j*n] /= l[i+i*n]
		}
	}
	return nil
}

// gaussTransform applies the integer Gauss transform that zeroes L[i,j]
// by subtracting round(L[i,j]) times column i of L (and Z) from column j.
func gaussTransform(n int, l, z []float64, i, j int) {
	mu := int(roundF(l[i+j*n]))
	if mu == 0 {
		return
	}
	for k := i; k < n; k++ {
		l[k+n*j] -= float64(mu) * l[k+i*n]
	}
	for k := 0; k < n; k++ {
		z[k+n*j] -= float64(mu) * z[k+i*n]
	}
}

// permute swaps adjacent indices j,j+1 in L/D (and the cumulative
// transform Z) when the size-reduction test requires it.
func permute(n int, l, d []float64, j int, del float64, z []float64) {
	eta := d[j] / del
	lam := d[j+1] * l[j+1+j*n] / del
	d[j] = eta * d[j+1]
	d[j+1] = del
	for k := 0; k <= j-1; k++ {
		a0 := l[j+k*n]
		a1 := l[j+1+k*n]
		l[j+k*n] = -l[j+1+j*n]*a0 + a1
		l[j+1+k*n] = eta*a0 + lam*a1
	}
	l[j+1+j*n] = lam
	for k := j + 2; k < n; k++ {
		l[k+j*n], l[k+(j+1)*n] = l[k+(j+1)*n], l[k+j*n]
	}
	for k := 0; k < n; k++ {
		z[k+j*n], z[k+(j+1)*n] = z[k+(j+1)*n], z[k+j*n]
	}
}

// reduce applies the LAMBDA Z-transform reduction (ref Teunissen 1995):
// repeated integer Gauss transforms and size-reducing permutations until
// no permutation is taken across a full sweep.
func reduce(n int, l, d, z []float64) {
	j, k := n-2, n-2
	for j >= 0 {
		if j <= k {
			for i := j + 1; i < n; i++ {
				gaussTransform(n, l, z, i, j)
			}
		}
		del := d[j] + l[j+1+j*n]*l[j+1+j*n]*d[j+1]
		if del+1e-6 < d[j+1] {
			permute(n, l, d, j, del, z)
			k = j
			j = n - 2
		} else {
			j--
		}
	}
}

// search walks the reduced lattice depth-first (MLAMBDA, ref Chang/Yang/
// Zhou 2005), collecting the m integer vectors zn (n x m) with smallest
// quadratic form s, sorted ascending by s.
func search(n, m int, l, d, zs []float64) (zn, s []float64, err error) {
	zn = make([]float64, n*m)
	s = make([]float64, m)

	S := linalg.Zeros(n, n)
	dist := make([]float64, n)
	zb := make([]float64, n)
	z := make([]float64, n)
	step := make([]float64, n)

	k := n - 1
	dist[k] = 0
	zb[k] = zs[k]
	z[k] = roundF(zb[k])
	y := zb[k] - z[k]
	step[k] = sgn(y)

	maxdist := 1e99
	nn, imax := 0, 0

	c := 0
	for ; c < loopMax; c++ {
		newdist := dist[k] + y*y/d[k]
		if newdist < maxdist {
			if k != 0 {
				k--
				dist[k] = newdist
				for i := 0; i <= k; i++ {
					S[k+i*n] = S[k+1+i*n] + (z[k+1]-zb[k+1])*l[k+1+i*n]
				}
				zb[k] = zs[k] + S[k+k*n]
				z[k] = roundF(zb[k])
				y = zb[k] - z[k]
				step[k] = sgn(y)
				continue
			}
			if nn < m {
				if nn == 0 || newdist > s[imax] {
					imax = nn
				}
				copy(zn[nn*n:nn*n+n], z)
				s[nn] = newdist
				nn++
			} else {
				if newdist < s[imax] {
					copy(zn[imax*n:imax*n+n], z)
					s[imax] = newdist
					imax = 0
					for i := 0; i < m; i++ {
						if s[imax] < s[i] {
							imax = i
						}
					}
				}
				maxdist = s[imax]
			}
			z[0] += step[0]
			y = zb[0] - z[0]
			step[0] = -step[0] - sgn(step[0])
			continue
		}
		if k == n-1 {
			break
		}
		k++
		z[k] += step[k]
		y = zb[k] - z[k]
		step[k] = -step[k] - sgn(step[k])
	}

	for i := 0; i < m-1; i++ {
		for j := i + 1; j < m; j++ {
			if s[i] < s[j] {
				continue
			}
			s[i], s[j] = s[j], s[i]
			for kk := 0; kk < n; kk++ {
				zn[kk+i*n], zn[kk+j*n] = zn[kk+j*n], zn[kk+i*n]
			}
		}
	}
	if c >= loopMax {
		return zn, s, errSearchOverflow
	}
	return zn, s, nil
}

// Resolve performs full LAMBDA/MLAMBDA integer least-squares: LD
// factorization, Z-transform reduction, MLAMBDA search for the m integer
// vectors closest to the float vector a (under metric Q), and the
// back-transform F = Z⁻ᵀ·candidates. F is n x m, s holds each
// candidate's squared residual, both column-major.
func Resolve(n, m int, a, q []float64) (f, s []float64, err error) {
	if n <= 0 || m <= 0 {
		return nil, nil, errDimension
	}
	l := linalg.Zeros(n, n)
	d := make([]float64, n)
	z := linalg.Eye(n)

	if err := ldFactorize(n, q, l, d); err != nil {
		return nil, nil, err
	}
	reduce(n, l, d, z)

	zt := make([]float64, n)
	linalg.Mul("TN", n, 1, n, 1.0, z, a, 0.0, zt)

	zn, sres, err := search(n, m, l, d, zt)
	if err != nil {
		return nil, nil, err
	}

	f = linalg.Mat(n, m)
	if err := linalg.Solve("T", z, zn, n, m, f); err != nil {
		return nil, nil, err
	}
	return f, sres, nil
}

// Reduction exposes the LAMBDA Z-transform reduction alone, returning the
// cumulative unimodular transform Z (n x n, column-major).
func Reduction(n int, q []float64) (z []float64, err error) {
	if n <= 0 {
		return nil, errDimension
	}
	l := linalg.Zeros(n, n)
	d := make([]float64, n)
	z = linalg.Eye(n)
	if err := ldFactorize(n, q, l, d); err != nil {
		return nil, err
	}
	reduce(n, l, d, z)
	return z, nil
}

// Search exposes the MLAMBDA search alone: it LD-factorizes the covariance
// q (n x n) itself, applies no Z-transformation reduction, and searches
// around float vector a (n x 1). Returns the m closest integer vectors
// F (n x m) and their squared residuals s (m x 1).
func Search(n, m int, a, q []float64) (f, s []float64, err error) {
	if n <= 0 || m <= 0 {
		return nil, nil, errDimension
	}
	l := linalg.Zeros(n, n)
	d := make([]float64, n)
	if err := ldFactorize(n, q, l, d); err != nil {
		return nil, nil, err
	}
	return search(n, m, l, d, a)
}
