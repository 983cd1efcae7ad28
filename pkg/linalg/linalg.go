// Package linalg provides the small, allocation-explicit, column-major
// matrix kernel the rest of this module builds on: dense LU inversion,
// weighted least squares, and the vector helpers the ephemeris evaluator
// and solver need. Matrices are plain []float64 in Fortran (column-major)
// order, matching the wire convention LAMBDA and the solver both expect.
package linalg

import "math"

// Mat allocates an uninitialized n x m column-major matrix.
func Mat(n, m int) []float64 { return make([]float64, n*m) }

// IMat allocates an uninitialized n x m column-major integer matrix.
func IMat(n, m int) []int { return make([]int, n*m) }

// Zeros allocates an n x m matrix of zeros.
func Zeros(n, m int) []float64 { return make([]float64, n*m) }

// Eye allocates an n x n identity matrix.
func Eye(n int) []float64 {
	a := make([]float64, n*n)
	for i := 0; i < n; i++ {
		a[i+i*n] = 1
	}
	return a
}

// Dot returns the inner product of the first n elements of a and b.
func Dot(a, b []float64, n int) float64 {
	var d float64
	for i := 0; i < n; i++ {
		d += a[i] * b[i]
	}
	return d
}

// Norm returns the Euclidean norm of the first n elements of a.
func Norm(a []float64, n int) float64 { return math.Sqrt(Dot(a, a, n)) }

// Cross3 sets c to the cross product a x b.
func Cross3(a, b, c []float64) {
	c[0] = a[1]*b[2] - a[2]*b[1]
	c[1] = a[2]*b[0] - a[0]*b[2]
	c[2] = a[0]*b[1] - a[1]*b[0]
}

// NormV3 normalizes a (length 3) into b, returning 0 on degenerate (zero
// norm) input and 1 on success.
func NormV3(a, b []float64) int {
	r := Norm(a, 3)
	if r <= 0 {
		return 0
	}
	b[0], b[1], b[2] = a[0]/r, a[1]/r, a[2]/r
	return 1
}

// Copy copies the n x m matrix b into a.
func Copy(a, b []float64, n, m int) { copy(a[:n*m], b[:n*m]) }

// mulMode selects which operand(s) of Mul are transposed, matching the
// teacher's two-character "NN"/"TN"/"NT"/"TT" selector.
func mulMode(tr string) int {
	switch tr {
	case "NN":
		return 1
	case "TN":
		return 3
	case "NT":
		return 2
	default:
		return 4
	}
}

// Mul computes C = alpha*op(A)*op(B) + beta*C where op is chosen per tr
// ("NN","TN","NT","TT"). A is n x m (or m x n if transposed), B is m x k
// (or k x m), C is n x k. All matrices are column-major.
func Mul(tr string, n, k, m int, alpha float64, A, B []float64, beta float64, C []float64) {
	mode := mulMode(tr)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			var d float64
			switch mode {
			case 1:
				for x := 0; x < m; x++ {
					d += A[i+x*n] * B[x+j*m]
				}
			case 2:
				for x := 0; x < m; x++ {
					d += A[i+x*n] * B[j+x*k]
				}
			case 3:
				for x := 0; x < m; x++ {
					d += A[x+i*m] * B[x+j*m]
				}
			case 4:
				for x := 0; x < m; x++ {
					d += A[x+i*m] * B[j+x*k]
				}
			}
			if beta == 0 {
				C[i+j*n] = alpha * d
			} else {
				C[i+j*n] = alpha*d + beta*C[i+j*n]
			}
		}
	}
}

func luDecompose(A []float64, n int, indx []int) (sign float64, ok bool) {
	sign = 1
	vv := Mat(n, 1)
	for i := 0; i < n; i++ {
		big := 0.0
		for j := 0; j < n; j++ {
			if a := math.Abs(A[i+j*n]); a > big {
				big = a
			}
		}
		if big == 0 {
			return 0, false
		}
		vv[i] = 1 / big
	}
	for j := 0; j < n; j++ {
		for i := 0; i < j; i++ {
			s := A[i+j*n]
			for k := 0; k < i; k++ {
				s -= A[i+k*n] * A[k+j*n]
			}
			A[i+j*n] = s
		}
		big, imax := 0.0, 0
		for i := j; i < n; i++ {
			s := A[i+j*n]
			for k := 0; k < j; k++ {
				s -= A[i+k*n] * A[k+j*n]
			}
			A[i+j*n] = s
			if t := vv[i] * math.Abs(s); t >= big {
				big, imax = t, i
			}
		}
		if j != imax {
			for k := 0; k < n; k++ {
				A[imax+k*n], A[j+k*n] = A[j+k*n], A[imax+k*n]
			}
			sign = -sign
			vv[imax] = vv[j]
		}
		indx[j] = imax
		if A[j+j*n] == 0 {
			return 0, false
		}
		if j != n-1 {
			t := 1 / A[j+j*n]
			for i := j + 1; i < n; i++ {
				A[i+j*n] *= t
			}
		}
	}
	return sign, true
}

func luBacksub(A []float64, n int, indx []int, b []float64) {
	ii := -1
	for i := 0; i < n; i++ {
		ip := indx[i]
		s := b[ip]
		b[ip] = b[i]
		if ii >= 0 {
			for j := ii; j < i; j++ {
				s -= A[i+j*n] * b[j]
			}
		} else if s != 0 {
			ii = i
		}
		b[i] = s
	}
	for i := n - 1; i >= 0; i-- {
		s := b[i]
		for j := i + 1; j < n; j++ {
			s -= A[i+j*n] * b[j]
		}
		b[i] = s / A[i+i*n]
	}
}

// Inv inverts the n x n matrix A in place. Returns an error if A is
// numerically singular.
func Inv(A []float64, n int) error {
	indx := IMat(n, 1)
	B := Mat(n, n)
	Copy(B, A, n, n)
	if _, ok := luDecompose(B, n, indx); !ok {
		return errSingular
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			A[i+j*n] = 0
		}
		A[j+j*n] = 1
		luBacksub(B, n, indx, A[j*n:])
	}
	return nil
}

// Solve solves op(A)*X = Y for X, where op is "N" (A) or "T" (A'). A is
// n x n, Y is n x m, X is n x m.
func Solve(tr string, A, Y []float64, n, m int, X []float64) error {
	B := Mat(n, n)
	Copy(B, A, n, n)
	if err := Inv(B, n); err != nil {
		return err
	}
	mode := "NN"
	if tr != "N" {
		mode = "TN"
	}
	Mul(mode, n, m, n, 1.0, B, Y, 0.0, X)
	return nil
}

// LSQ solves the weighted normal equations x = (A*A')^-1 * A*y for the n
// parameters x (and their covariance Q) given the n x m transposed
// design matrix A and m x 1 measurements y. Requires m >= n.
func LSQ(A, y []float64, n, m int, x, Q []float64) error {
	if m < n {
		return errUnderdetermined
	}
	Ay := Mat(n, 1)
	Mul("NN", n, 1, m, 1.0, A, y, 0.0, Ay)
	Mul("NT", n, n, m, 1.0, A, A, 0.0, Q)
	if err := Inv(Q, n); err != nil {
		return err
	}
	Mul("NN", n, 1, n, 1.0, Q, Ay, 0.0, x)
	return nil
}

// errSingular and errUnderdetermined are returned by Inv/Solve/LSQ; the
// solver package passes them on to its caller unchanged.
type linalgError string

func (e linalgError) Error() string { return string(e) }

const (
	errSingular         = linalgError("linalg: matrix singular to working precision")
	errUnderdetermined  = linalgError("linalg: fewer measurements than parameters")
)

// Kalman performs one filter state update:
//
//	K = P*H*(H'*P*H+R)^-1, xp = x+K*v, Pp = (I-K*H')*P
//
// H is the n x m transpose of the design matrix, v the m x 1 innovation,
// R the m x m measurement covariance. Returns the updated state and
// covariance, or an error if the innovation covariance is singular.
func Kalman(x, P, H, v, R []float64, n, m int) (xp, Pp []float64, err error) {
	F := Mat(n, m)
	Qm := Mat(m, m)
	K := Mat(n, m)
	I := Eye(n)
	xp = Mat(n, 1)
	Pp = Mat(n, n)

	Copy(Qm, R, m, m)
	Copy(xp, x, n, 1)
	Mul("NN", n, m, n, 1.0, P, H, 0.0, F)
	Mul("TN", m, m, n, 1.0, H, F, 1.0, Qm)
	if err = Inv(Qm, m); err != nil {
		return nil, nil, err
	}
	Mul("NN", n, m, m, 1.0, F, Qm, 0.0, K)
	Mul("NN", n, 1, m, 1.0, K, v, 1.0, xp)
	Mul("NT", n, n, m, -1.0, K, H, 1.0, I)
	Mul("NN", n, n, n, 1.0, I, P, 0.0, Pp)
	return xp, Pp, nil
}
