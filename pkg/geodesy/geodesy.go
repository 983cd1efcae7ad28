// Package geodesy provides WGS-84 coordinate transforms, local
// tangent-plane rotations, geometric-range with Earth-rotation
// correction, satellite azimuth/elevation, and DOP computation — the
// leaf geodesy primitives spec.md §4.1 calls for.
package geodesy

import (
	"math"

	"github.com/skybeacon/gnssgo/pkg/linalg"
)

// WGS-84 ellipsoid constants and the Earth rotation rate used throughout
// this module for Sagnac/Earth-rotation corrections.
const (
	REWGS84 = 6378137.0             // semi-major axis (m)
	FEWGS84 = 1.0 / 298.257223563   // flattening
	OmegaE  = 7.2921151467e-5       // Earth angular velocity (rad/s), IS-GPS
	CLight  = 299792458.0           // speed of light (m/s)
)

// ECEF2Geodetic converts an ECEF position (m) to geodetic {lat,lon,h}
// (rad,rad,m) by iterated latitude refinement until the residual update
// is below 1e-4 m (about 1.6e-11 rad of latitude), per spec.md §4.1.
func ECEF2Geodetic(r [3]float64) (pos [3]float64) {
	e2 := FEWGS84 * (2.0 - FEWGS84)
	r2 := r[0]*r[0] + r[1]*r[1]
	v := REWGS84
	z, zk := r[2], 0.0
	for math.Abs(z-zk) >= 1e-4 {
		zk = z
		sinp := z / math.Sqrt(r2+z*z)
		v = REWGS84 / math.Sqrt(1.0-e2*sinp*sinp)
		z = r[2] + v*e2*sinp
	}
	switch {
	case r2 > 1e-12:
		pos[0] = math.Atan(z / math.Sqrt(r2))
		pos[1] = math.Atan2(r[1], r[0])
	case r[2] > 0:
		pos[0] = math.Pi / 2
	default:
		pos[0] = -math.Pi / 2
	}
	pos[2] = math.Sqrt(r2+z*z) - v
	return pos
}

// Geodetic2ECEF converts geodetic {lat,lon,h} (rad,rad,m) to ECEF (m).
func Geodetic2ECEF(pos [3]float64) (r [3]float64) {
	sinp, cosp := math.Sincos(pos[0])
	sinl, cosl := math.Sincos(pos[1])
	e2 := FEWGS84 * (2.0 - FEWGS84)
	v := REWGS84 / math.Sqrt(1.0-e2*sinp*sinp)
	r[0] = (v + pos[2]) * cosp * cosl
	r[1] = (v + pos[2]) * cosp * sinl
	r[2] = (v*(1.0-e2) + pos[2]) * sinp
	return r
}

// ECEF2ENURotation returns the 3x3 (column-major) rotation matrix from
// ECEF to the local East-North-Up frame at geodetic {lat,lon} (rad).
func ECEF2ENURotation(pos [3]float64) [9]float64 {
	sinp, cosp := math.Sincos(pos[0])
	sinl, cosl := math.Sincos(pos[1])
	return [9]float64{
		-sinl, -sinp * cosl, cosp * cosl,
		cosl, -sinp * sinl, cosp * sinl,
		0, cosp, sinp,
	}
}

// ECEF2ENU rotates an ECEF vector r into the local ENU frame at pos.
func ECEF2ENU(pos, r [3]float64) (enu [3]float64) {
	e := ECEF2ENURotation(pos)
	linalg.Mul("NN", 3, 1, 3, 1.0, e[:], r[:], 0.0, enu[:])
	return enu
}

// ENU2ECEF rotates a local ENU vector enu into ECEF at pos.
func ENU2ECEF(pos, enu [3]float64) (r [3]float64) {
	e := ECEF2ENURotation(pos)
	linalg.Mul("TN", 3, 1, 3, 1.0, e[:], enu[:], 0.0, r[:])
	return r
}

// CovECEF2ENU rotates a 3x3 ECEF covariance matrix into local ENU.
func CovECEF2ENU(pos [3]float64, p [9]float64) (q [9]float64) {
	e := ECEF2ENURotation(pos)
	var ep [9]float64
	linalg.Mul("NN", 3, 3, 3, 1.0, e[:], p[:], 0.0, ep[:])
	linalg.Mul("NT", 3, 3, 3, 1.0, ep[:], e[:], 0.0, q[:])
	return q
}

// CovENU2ECEF rotates a 3x3 local-ENU covariance matrix into ECEF.
func CovENU2ECEF(pos [3]float64, q [9]float64) (p [9]float64) {
	e := ECEF2ENURotation(pos)
	var eq [9]float64
	linalg.Mul("TN", 3, 3, 3, 1.0, e[:], q[:], 0.0, eq[:])
	linalg.Mul("NN", 3, 3, 3, 1.0, eq[:], e[:], 0.0, p[:])
	return p
}

// GeoDist returns the geometric range between a satellite position rs
// and receiver position rr (both ECEF, m), plus the receiver-to-satellite
// line-of-sight unit vector e, including the Sagnac (Earth-rotation)
// correction ΩE·(rs_x·rr_y − rs_y·rr_x)/c. Returns a negative range if rs
// is not a plausible satellite position (norm below the Earth's radius).
func GeoDist(rs, rr [3]float64) (r float64, e [3]float64) {
	if linalg.Norm(rs[:], 3) < REWGS84 {
		return -1, e
	}
	for i := 0; i < 3; i++ {
		e[i] = rs[i] - rr[i]
	}
	r = linalg.Norm(e[:], 3)
	for i := 0; i < 3; i++ {
		e[i] /= r
	}
	return r + OmegaE*(rs[0]*rr[1]-rs[1]*rr[0])/CLight, e
}

// SatAzEl returns the azimuth and elevation (rad) of a line-of-sight unit
// vector e as seen from geodetic position pos.
func SatAzEl(pos, e [3]float64) (az, el float64) {
	el = math.Pi / 2
	if pos[2] <= -REWGS84 {
		return 0, el
	}
	enu := ECEF2ENU(pos, e)
	if enu[0]*enu[0]+enu[1]*enu[1] < 1e-12 {
		az = 0
	} else {
		az = math.Atan2(enu[0], enu[1])
	}
	if az < 0 {
		az += 2 * math.Pi
	}
	el = math.Asin(enu[2])
	return az, el
}

// DOP computes {GDOP,PDOP,HDOP,VDOP} from a list of azimuth/elevation
// pairs (rad), ignoring entries below elmin. Returns the zero value if
// fewer than 4 satellites remain above the mask.
func DOP(azel [][2]float64, elmin float64) (dop [4]float64) {
	var h []float64
	for _, ae := range azel {
		if ae[1] < elmin || ae[1] <= 0 {
			continue
		}
		cosel, sinel := math.Cos(ae[1]), math.Sin(ae[1])
		h = append(h, cosel*math.Sin(ae[0]), cosel*math.Cos(ae[0]), sinel, 1.0)
	}
	n := len(h) / 4
	if n < 4 {
		return dop
	}
	// h is laid out row-major (n x 4); transpose into the column-major
	// n x 4 matrix Mul expects.
	ht := make([]float64, 4*n)
	for i := 0; i < n; i++ {
		for j := 0; j < 4; j++ {
			ht[j*n+i] = h[i*4+j]
		}
	}
	q := linalg.Mat(4, 4)
	linalg.Mul("TN", 4, 4, n, 1.0, ht, ht, 0.0, q)
	if linalg.Inv(q, 4) != nil {
		return dop
	}
	dop[0] = math.Sqrt(q[0] + q[5] + q[10] + q[15])
	dop[1] = math.Sqrt(q[0] + q[5] + q[10])
	dop[2] = math.Sqrt(q[0] + q[5])
	dop[3] = math.Sqrt(q[10])
	return dop
}
