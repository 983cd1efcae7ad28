package ephemeris

import (
	"math"

	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

// Earth gravitational/rotation constants per system, ref IS-GPS-200,
// Galileo OS-SIS-ICD, BDS-SIS-ICD.
const (
	muGPS    = 3.9860050e14
	muGAL    = 3.986004418e14
	muCMP    = 3.986004418e14
	omegeGPS = 7.2921151467e-5
	omegeGAL = 7.2921151467e-5
	omegeCMP = 7.292115e-5

	sin5 = -0.0871557427476582 // sin(-5 deg), BDS GEO frame rotation
	cos5 = 0.9961946980917456  // cos(-5 deg)

	arefMEO      = 27906100.0 // BDS-3 CNAV reference semi-major axis, MEO/IGSO
	arefIGSOGEO  = 42162200.0 // BDS-3 CNAV reference semi-major axis, GEO

	rtolKepler    = 1e-13
	maxIterKepler = 30

	codeL1P = 2  // CODE_L1P, BDS-3 B1C data selector
	codeL8X = 39 // CODE_L8X, BDS-3 B2a data selector

	stdGalNAPA = 500.0

	clight = 299792458.0
)

func sqr(x float64) float64 { return x * x }

// uraVarianceGPS is the GPS URA index -> URA (m) table, IS-GPS-200
// §20.3.3.3.1.1; URAVariance squares the entry.
var uraVarianceGPS = []float64{
	2.4, 3.4, 4.85, 6.85, 9.65, 13.65, 24.0, 48.0, 96.0, 192.0, 384.0, 768.0,
	1536.0, 3072.0, 6144.0,
}

// URAVariance returns the position+clock variance (m^2) implied by a
// broadcast accuracy index: GPS URA table lookup, or the Galileo SISA
// stepped scale (ref Galileo OS-SIS-ICD §5.1.11) for sys==SysGAL.
func URAVariance(sys satid.System, ura int) float64 {
	if sys == satid.SysGAL {
		switch {
		case ura <= 49:
			return sqr(float64(ura) * 0.01)
		case ura <= 74:
			return sqr(0.5 + float64(ura-50)*0.02)
		case ura <= 99:
			return sqr(1.0 + float64(ura-75)*0.04)
		case ura <= 125:
			return sqr(2.0 + float64(ura-100)*0.16)
		default:
			return sqr(stdGalNAPA)
		}
	}
	if ura < 0 || ura > 14 {
		return sqr(6144.0)
	}
	return sqr(uraVarianceGPS[ura])
}

// Clock evaluates a Keplerian ephemeris's clock bias at time t (GPST),
// without relativity correction or group delay — two fixed-point
// iterations against the quadratic clock polynomial, as broadcast.
func (e *Kepler) Clock(t gtime.Time) float64 {
	dt := t.Sub(e.Toc)
	ts := dt
	for i := 0; i < 2; i++ {
		dt = ts - (e.F0 + e.F1*dt + e.F2*dt*dt)
	}
	return e.F0 + e.F1*dt + e.F2*dt*dt
}

// Evaluate solves Kepler's equation for the ECEF position and clock bias
// implied by a Keplerian ephemeris at time t (GPST), including relativity
// correction and the BeiDou GEO post-rotation and BDS-3 CNAV semi-major
// axis handling. Returns ok=false if Kepler's equation fails to converge.
func (e *Kepler) Evaluate(t gtime.Time) (res Result, ok bool) {
	sys, prn := satid.SatSys(e.Sat)
	var mu, omge float64
	switch sys {
	case satid.SysGAL:
		mu, omge = muGAL, omegeGAL
	case satid.SysBDS:
		mu, omge = muCMP, omegeCMP
	default:
		mu, omge = muGPS, omegeGPS
	}

	tk := t.Sub(e.Toe)

	var a, m float64
	if sys == satid.SysBDS && (e.Code == codeL1P || e.Code == codeL8X) {
		var a0 float64
		switch e.Flag {
		case 1:
			a0 = arefMEO + e.A
		case 2:
			a0 = arefIGSOGEO + e.A
		}
		a = a0 + e.Adot*tk
		n0 := math.Sqrt(mu / (a0 * a0 * a0))
		deltNa := e.Deln + 0.5*e.Ndot*tk
		m = e.M0 + (n0+deltNa)*tk
	} else {
		a = e.A
		m = e.M0 + (math.Sqrt(mu/(e.A*e.A*e.A))+e.Deln)*tk
	}

	ecc, eK := m, 0.0
	n := 0
	for ; math.Abs(ecc-eK) > rtolKepler && n < maxIterKepler; n++ {
		eK = ecc
		ecc -= (ecc - e.E*math.Sin(ecc) - m) / (1.0 - e.E*math.Cos(ecc))
	}
	if n >= maxIterKepler {
		return res, false
	}
	sinE, cosE := math.Sin(ecc), math.Cos(ecc)

	u := math.Atan2(math.Sqrt(1.0-e.E*e.E)*sinE, cosE-e.E) + e.Omg
	r := a * (1.0 - e.E*cosE)
	i := e.I0 + e.Idot*tk
	sin2u, cos2u := math.Sin(2.0*u), math.Cos(2.0*u)
	u += e.Cus*sin2u + e.Cuc*cos2u
	r += e.Crs*sin2u + e.Crc*cos2u
	i += e.Cis*sin2u + e.Cic*cos2u
	x, y := r*math.Cos(u), r*math.Sin(u)
	cosi := math.Cos(i)

	if sys == satid.SysBDS && (prn <= 5 || prn >= 59) {
		o := e.OMG0 + e.OMGd*tk - omge*e.Toes
		sinO, cosO := math.Sin(o), math.Cos(o)
		xg := x*cosO - y*cosi*sinO
		yg := x*sinO + y*cosi*cosO
		zg := y * math.Sin(i)
		sino, coso := math.Sin(omge*tk), math.Cos(omge*tk)
		res.Pos[0] = xg*coso + yg*sino*cos5 + zg*sino*sin5
		res.Pos[1] = -xg*sino + yg*coso*cos5 + zg*coso*sin5
		res.Pos[2] = -yg*sin5 + zg*cos5
	} else {
		o := e.OMG0 + (e.OMGd-omge)*tk - omge*e.Toes
		sinO, cosO := math.Sin(o), math.Cos(o)
		res.Pos[0] = x*cosO - y*cosi*sinO
		res.Pos[1] = x*sinO + y*cosi*cosO
		res.Pos[2] = y * math.Sin(i)
	}

	tc := t.Sub(e.Toc)
	res.Dts = e.F0 + e.F1*tc + e.F2*tc*tc
	res.Dts -= 2.0 * math.Sqrt(mu*e.A) * e.E * sinE / sqr(clight)
	res.Var = URAVariance(sys, e.Sva)
	return res, true
}
