package ephemeris

import (
	"math"
	"strconv"
	"strings"

	"github.com/skybeacon/gnssgo/pkg/geodesy"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/linalg"
)

// TLE is a NORAD two-line-element set, the fifth ephemeris representation
// named by spec.md §2 and supplemented explicitly by SPEC_FULL.md §4.10,
// grounded on the teacher's TleD/Tle (src/tle.go, src/types.go).
type TLE struct {
	Name, SatNo, Desig string
	Epoch              gtime.Time // element-set epoch (UTC)
	Ndot, NDdot, BStar float64
	Inc, OMG, Ecc      float64 // deg, deg, dimensionless
	Omg, M, N          float64 // deg, deg, rev/day
}

// sgp4 constants, ref Spacetrack Report #3 §6,11 (Hoots & Roehrich 1980).
const (
	tleDE2RA  = 0.174532925e-1
	tleE6A    = 1.0e-6
	tleQO     = 120.0
	tleSO     = 78.0
	tleTOTHRD = 0.66666667
	tleTWOPI  = 6.2831853
	tleXJ2    = 1.082616e-3
	tleXJ3    = -0.253881e-5
	tleXJ4    = -1.65597e-6
	tleXKE    = 0.743669161e-1
	tleXKMPER = 6378.135
	tleXMNPDA = 1440.0
	tleAE     = 1.0
	tleCK2    = 0.5 * tleXJ2 * tleAE * tleAE
	tleCK4    = -0.375 * tleXJ4 * tleAE * tleAE * tleAE * tleAE
)

var (
	tleQOMS2T = math.Pow((tleQO-tleSO)*tleAE/tleXKMPER, 4.0)
	tleS      = tleAE * (1.0 + tleSO/tleXKMPER)
)

// sgp4STR3 propagates a TLE by tsince minutes since epoch, returning the
// TEME position (m, [0:3]) and velocity (m/s, [3:6]), a direct port of
// the teacher's SGP4_STR3 (Spacetrack Report #3 simplified perturbations
// model, no deep-space/SDP4 branch).
func sgp4STR3(tsince float64, d *TLE) [6]float64 {
	xnodeo := d.OMG * tleDE2RA
	omegao := d.Omg * tleDE2RA
	xmo := d.M * tleDE2RA
	xincl := d.Inc * tleDE2RA
	temp := tleTWOPI / tleXMNPDA / tleXMNPDA
	xno := d.N * temp * tleXMNPDA
	bstar := d.BStar / tleAE
	eo := d.Ecc

	a1 := math.Pow(tleXKE/xno, tleTOTHRD)
	cosio := math.Cos(xincl)
	theta2 := cosio * cosio
	x3thm1 := 3.0*theta2 - 1.0
	eosq := eo * eo
	betao2 := 1.0 - eosq
	betao := math.Sqrt(betao2)
	del1 := 1.5 * tleCK2 * x3thm1 / (a1 * a1 * betao * betao2)
	ao := a1 * (1.0 - del1*(0.5*tleTOTHRD+del1*(1.0+134.0/81.0*del1)))
	delo := 1.5 * tleCK2 * x3thm1 / (ao * ao * betao * betao2)
	xnodp := xno / (1.0 + delo)
	aodp := ao / (1.0 - delo)

	isimp := false
	if (aodp*(1.0-eo)/tleAE) < (220.0/tleXKMPER + tleAE) {
		isimp = true
	}

	s4 := tleS
	qoms24 := tleQOMS2T
	perige := (aodp*(1.0-eo) - tleAE) * tleXKMPER
	if perige < 156.0 {
		s4 = perige - 78.0
		if perige <= 98.0 {
			s4 = 20.0
		}
		qoms24 = math.Pow((120.0-s4)*tleAE/tleXKMPER, 4.0)
		s4 = s4/tleXKMPER + tleAE
	}
	pinvsq := 1.0 / (aodp * aodp * betao2 * betao2)
	tsi := 1.0 / (aodp - s4)
	eta := aodp * eo * tsi
	etasq := eta * eta
	eeta := eo * eta
	psisq := math.Abs(1.0 - etasq)
	coef := qoms24 * math.Pow(tsi, 4.0)
	coef1 := coef / math.Pow(psisq, 3.5)
	c2 := coef1 * xnodp * (aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) + 0.75*
		tleCK2*tsi/psisq*x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	c1 := bstar * c2
	sinio := math.Sin(xincl)
	a3ovk2 := -tleXJ3 / tleCK2 * math.Pow(tleAE, 3.0)
	c3 := coef * tsi * a3ovk2 * xnodp * tleAE * sinio / eo
	x1mth2 := 1.0 - theta2
	c4 := 2.0 * xnodp * coef1 * aodp * betao2 * (eta*
		(2.0+0.5*etasq) + eo*(0.5+2.0*etasq) - 2.0*tleCK2*tsi/
		(aodp*psisq)*(-3.0*x3thm1*(1.0-2.0*eeta+etasq*
		(1.5-0.5*eeta))+0.75*x1mth2*(2.0*etasq-eeta*
		(1.0+etasq))*math.Cos(2.0*omegao)))
	c5 := 2.0 * coef1 * aodp * betao2 * (1.0 + 2.75*(etasq+eeta) + eeta*etasq)
	theta4 := theta2 * theta2
	temp1 := 3.0 * tleCK2 * pinvsq * xnodp
	temp2 := temp1 * tleCK2 * pinvsq
	temp3 := 1.25 * tleCK4 * pinvsq * pinvsq * xnodp
	xmdot := xnodp + 0.5*temp1*betao*x3thm1 + 0.0625*temp2*betao*
		(13.0-78.0*theta2+137.0*theta4)
	x1m5th := 1.0 - 5.0*theta2
	omgdot := -0.5*temp1*x1m5th + 0.0625*temp2*(7.0-114.0*theta2+
		395.0*theta4) + temp3*(3.0-36.0*theta2+49.0*theta4)
	xhdot1 := -temp1 * cosio
	xnodot := xhdot1 + (0.5*temp2*(4.0-19.0*theta2)+2.0*temp3*(3.0-
		7.0*theta2))*cosio
	omgcof := bstar * c3 * math.Cos(omegao)
	xmcof := -tleTOTHRD * coef * bstar * tleAE / eeta
	xnodcf := 3.5 * betao2 * xhdot1 * c1
	t2cof := 1.5 * c1
	xlcof := 0.125 * a3ovk2 * sinio * (3.0 + 5.0*cosio) / (1.0 + cosio)
	aycof := 0.25 * a3ovk2 * sinio
	delmo := math.Pow(1.0+eta*math.Cos(xmo), 3.0)
	sinmo := math.Sin(xmo)
	x7thm1 := 7.0*theta2 - 1.0

	var d2, d3, d4, t3cof, t4cof, t5cof float64
	if !isimp {
		c1sq := c1 * c1
		d2 = 4.0 * aodp * tsi * c1sq
		tmp := d2 * tsi * c1 / 3.0
		d3 = (17.0*aodp + s4) * tmp
		d4 = 0.5 * tmp * aodp * tsi * (221.0*aodp + 31.0*s4) * c1
		t3cof = d2 + 2.0*c1sq
		t4cof = 0.25 * (3.0*d3 + c1*(12.0*d2+10.0*c1sq))
		t5cof = 0.2 * (3.0*d4 + 12.0*c1*d3 + 6.0*d2*d2 + 15.0*c1sq*(2.0*d2+c1sq))
	}

	xmdf := xmo + xmdot*tsince
	omgadf := omegao + omgdot*tsince
	xnoddf := xnodeo + xnodot*tsince
	omega := omgadf
	xmp := xmdf
	tsq := tsince * tsince
	xnode := xnoddf + xnodcf*tsq
	tempa := 1.0 - c1*tsince
	tempe := bstar * c4 * tsince
	templ := t2cof * tsq
	if isimp {
		delomg := omgcof * tsince
		delm := xmcof * (math.Pow(1.0+eta*math.Cos(xmdf), 3.0) - delmo)
		dsum := delomg + delm
		xmp = xmdf + dsum
		omega = omgadf - dsum
		tcube := tsq * tsince
		tfour := tsince * tcube
		tempa = tempa - d2*tsq - d3*tcube - d4*tfour
		tempe = tempe + bstar*c5*(math.Sin(xmp)-sinmo)
		templ = templ + t3cof*tcube + tfour*(t4cof+tsince*t5cof)
	}
	a := aodp * math.Pow(tempa, 2.0)
	e := eo - tempe
	xl := xmp + omega + xnode + xnodp*templ
	beta := math.Sqrt(1.0 - e*e)
	xn := tleXKE / math.Pow(a, 1.5)

	axn := e * math.Cos(omega)
	temp = 1.0 / (a * beta * beta)
	xll := temp * xlcof * axn
	aynl := temp * aycof
	xlt := xl + xll
	ayn := e*math.Sin(omega) + aynl

	capu := math.Mod(xlt-xnode, tleTWOPI)
	epw := capu
	var sinepw, cosepw, temp3v, temp4v, temp5v, temp6v float64
	for i := 0; i < 10; i++ {
		sinepw = math.Sin(epw)
		cosepw = math.Cos(epw)
		temp3v = axn * sinepw
		temp4v = ayn * cosepw
		temp5v = axn * cosepw
		temp6v = ayn * sinepw
		next := (capu-temp4v+temp3v-epw)/(1.0-temp5v-temp6v) + epw
		if math.Abs(next-epw) <= tleE6A {
			epw = next
			break
		}
		epw = next
	}

	ecose := temp5v + temp6v
	esine := temp3v - temp4v
	elsq := axn*axn + ayn*ayn
	temp = 1.0 - elsq
	pl := a * temp
	r := a * (1.0 - ecose)
	temp1 = 1.0 / r
	rdot := tleXKE * math.Sqrt(a) * esine * temp1
	rfdot := tleXKE * math.Sqrt(pl) * temp1
	temp2 = a * temp1
	betal := math.Sqrt(temp)
	temp3 = 1.0 / (1.0 + betal)
	cosu := temp2 * (cosepw - axn + ayn*esine*temp3)
	sinu := temp2 * (sinepw - ayn - axn*esine*temp3)
	u := math.Atan2(sinu, cosu)
	sin2u := 2.0 * sinu * cosu
	cos2u := 2.0*cosu*cosu - 1.0
	temp = 1.0 / pl
	temp1 = tleCK2 * temp
	temp2 = temp1 * temp

	rk := r*(1.0-1.5*temp2*betal*x3thm1) + 0.5*temp1*x1mth2*cos2u
	uk := u - 0.25*temp2*x7thm1*sin2u
	xnodek := xnode + 1.5*temp2*cosio*sin2u
	xinck := xincl + 1.5*temp2*cosio*sinio*cos2u
	rdotk := rdot - xn*temp1*x1mth2*sin2u
	rfdotk := rfdot + xn*temp1*(x1mth2*cos2u+1.5*x3thm1)

	sinuk := math.Sin(uk)
	cosuk := math.Cos(uk)
	sinik := math.Sin(xinck)
	cosik := math.Cos(xinck)
	sinnok := math.Sin(xnodek)
	cosnok := math.Cos(xnodek)
	xmx := -sinnok * cosik
	xmy := cosnok * cosik
	ux := xmx*sinuk + cosnok*cosuk
	uy := xmy*sinuk + sinnok*cosuk
	uz := sinik * sinuk
	vx := xmx*cosuk - cosnok*sinuk
	vy := xmy*cosuk - sinnok*sinuk
	vz := sinik * cosuk

	x := rk * ux
	y := rk * uy
	z := rk * uz
	xdot := rdotk*ux + rfdotk*vx
	ydot := rdotk*uy + rfdotk*vy
	zdot := rdotk*uz + rfdotk*vz

	var rs [6]float64
	rs[0] = x * tleXKMPER / tleAE * 1e3
	rs[1] = y * tleXKMPER / tleAE * 1e3
	rs[2] = z * tleXKMPER / tleAE * 1e3
	rs[3] = xdot * tleXKMPER / tleAE * tleXMNPDA / 86400.0 * 1e3
	rs[4] = ydot * tleXKMPER / tleAE * tleXMNPDA / 86400.0 * 1e3
	rs[5] = zdot * tleXKMPER / tleAE * tleXMNPDA / 86400.0 * 1e3
	return rs
}

// gmst returns the Greenwich mean sidereal angle (rad) at UTC time tutc,
// ignoring UT1-UTC (no ERP table in this core, per spec.md §1 scope),
// port of the teacher's Utc2GmsT.
func gmst(tutc gtime.Time) float64 {
	ep2000 := gtime.Epoch([6]float64{2000, 1, 1, 12, 0, 0})
	t1 := tutc.Sub(ep2000) / 86400.0 / 36525.0
	t2 := t1 * t1
	t3 := t2 * t1
	gmst0 := 24110.54841 + 8640184.812866*t1 + 0.093104*t2 - 6.2e-6*t3
	sod := math.Mod(float64(tutc.Sec)+tutc.Frac, 86400)
	g := gmst0 + 1.002737909350795*sod
	return math.Mod(g, 86400.0) * math.Pi / 43200.0
}

// Evaluate propagates the TLE to t (GPST) by SGP4/STR#3, rotates the
// resulting TEME state into ECEF by Greenwich mean sidereal time (no
// polar motion, ERP tables are an external collaborator per spec.md §1),
// and evaluates clock/variance as a pure-kinematic entry with no
// satellite clock model: Dts=0, a 1km-class variance befitting a
// TLE-only fallback source.
func (tle *TLE) Evaluate(t gtime.Time) (Result, bool) {
	tutc := gtime.GPST2UTC(t)
	tsince := tutc.Sub(tle.Epoch) / 60.0
	rsTLE := sgp4STR3(tsince, tle)

	g := gmst(tutc)
	cg, sg := math.Cos(g), math.Sin(g)
	// column-major 3x3: row0=[cos,sin,0] row1=[-sin,cos,0] row2=[0,0,1]
	r3 := []float64{cg, -sg, 0, sg, cg, 0, 0, 0, 1}

	var posPEF, velPEF [3]float64
	linalg.Mul("NN", 3, 1, 3, 1.0, r3, rsTLE[0:3], 0.0, posPEF[:])
	linalg.Mul("NN", 3, 1, 3, 1.0, r3, rsTLE[3:6], 0.0, velPEF[:])
	velPEF[0] += geodesy.OmegaE * posPEF[1]
	velPEF[1] -= geodesy.OmegaE * posPEF[0]

	var res Result
	res.Pos = posPEF
	res.Vel = velPEF
	res.Var = 1000.0 * 1000.0
	return res, true
}

// ParseLines decodes the two element lines (line 1 and line 2) of a NORAD
// element set into a TLE; a name line is not taken, so Name is left
// empty. It is the Go port of the teacher's
// Decode_line1/Decode_line2 restricted to the fields sgp4STR3 consumes.
func ParseLines(line1, line2 string) (*TLE, bool) {
	if len(line1) < 61 || len(line2) < 63 || line1[0] != '1' || line2[0] != '2' {
		return nil, false
	}
	var d TLE
	d.SatNo = strings.TrimSpace(line1[2:7])
	d.Desig = strings.TrimSpace(line1[9:17])

	year, _ := strconv.Atoi(strings.TrimSpace(line1[18:20]))
	if year < 57 {
		year += 2000
	} else {
		year += 1900
	}
	doy, _ := strconv.ParseFloat(strings.TrimSpace(line1[20:32]), 64)
	days := math.Floor(doy)
	frac := doy - days
	ep := gtime.Epoch([6]float64{float64(year), 1, 1, 0, 0, 0})
	d.Epoch = ep.Add((days - 1) * 86400.0).Add(frac * 86400.0)

	d.Ndot, _ = strconv.ParseFloat(strings.TrimSpace(line1[33:43]), 64)
	bstarStr := strings.TrimSpace(line1[53:61])
	d.BStar = parseTLEExp(bstarStr)

	d.Inc, _ = strconv.ParseFloat(strings.TrimSpace(line2[8:16]), 64)
	d.OMG, _ = strconv.ParseFloat(strings.TrimSpace(line2[17:25]), 64)
	eccStr := strings.TrimSpace(line2[26:33])
	ecc, _ := strconv.ParseFloat("0."+eccStr, 64)
	d.Ecc = ecc
	d.Omg, _ = strconv.ParseFloat(strings.TrimSpace(line2[34:42]), 64)
	d.M, _ = strconv.ParseFloat(strings.TrimSpace(line2[43:51]), 64)
	d.N, _ = strconv.ParseFloat(strings.TrimSpace(line2[52:63]), 64)
	return &d, true
}

// parseTLEExp decodes a TLE packed-exponent field "±dddddd±d" (implied
// decimal point, trailing power-of-ten exponent) used for B*.
func parseTLEExp(s string) float64 {
	if s == "" {
		return 0
	}
	sign := 1.0
	if s[0] == '-' {
		sign = -1.0
		s = s[1:]
	} else if s[0] == '+' {
		s = s[1:]
	}
	if len(s) < 2 {
		return 0
	}
	mantissa := s[:len(s)-2]
	expStr := s[len(s)-2:]
	m, _ := strconv.ParseFloat("0."+mantissa, 64)
	e, _ := strconv.Atoi(expStr)
	return sign * m * math.Pow(10, float64(e))
}
