// Package models implements the pseudorange correction models the
// solver applies before forming residuals: Klobuchar ionosphere,
// Saastamoinen troposphere, frequency rescaling, and the iono-free
// dual-frequency combination with per-system code-bias handling.
package models

import "math"

const (
	clight = 299792458.0
	pi     = math.Pi
)

// KlobucharDefault is the 2004-01-01 reference α/β coefficient set used
// when a receiver has not yet delivered its own broadcast values.
var KlobucharDefault = [8]float64{
	0.1118e-07, -0.7451e-08, -0.5961e-07, 0.1192e-06,
	0.1167e+06, -0.2294e+06, -0.1311e+06, 0.1049e+07,
}

// IonModel evaluates the Klobuchar broadcast ionosphere model, scaled to
// L1, given receiver position {lat,lon,h} (rad,rad,m), satellite
// {az,el} (rad), broadcast alpha/beta coefficients ion[8], and the
// GPS-time-of-week implied by t (seconds, already reduced mod week).
func IonModel(tow float64, ion [8]float64, pos, azel [2]float64, height float64) float64 {
	if height < -1e3 || azel[1] <= 0 {
		return 0
	}
	if normZero(ion[:]) {
		ion = KlobucharDefault
	}

	psi := 0.0137/(azel[1]/pi+0.11) - 0.022

	phi := pos[0]/pi + psi*math.Cos(azel[0])
	if phi > 0.416 {
		phi = 0.416
	} else if phi < -0.416 {
		phi = -0.416
	}
	lam := pos[1]/pi + psi*math.Sin(azel[0])/math.Cos(phi*pi)
	phi += 0.064 * math.Cos((lam-1.617)*pi)

	tt := 43200.0*lam + tow
	tt -= math.Floor(tt/86400.0) * 86400.0

	f := 1.0 + 16.0*math.Pow(0.53-azel[1]/pi, 3.0)

	amp := ion[0] + phi*(ion[1]+phi*(ion[2]+phi*ion[3]))
	per := ion[4] + phi*(ion[5]+phi*(ion[6]+phi*ion[7]))
	if amp < 0 {
		amp = 0
	}
	if per < 72000.0 {
		per = 72000.0
	}
	x := 2.0 * pi * (tt - 50400.0) / per
	if math.Abs(x) < 1.57 {
		return clight * f * (5e-9 + amp*(1.0+x*x*(-0.5+x*x/24.0)))
	}
	return clight * f * 5e-9
}

func normZero(v []float64) bool {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s) <= 0.0
}

// RescaleFreq converts an L1-scaled ionospheric delay (and its variance)
// to the delay seen at frequency f, per the inverse-square-frequency
// dependence of ionospheric refraction.
func RescaleFreq(ionL1, varL1, freqL1, f float64) (ion, vari float64) {
	ratio := freqL1 / f
	return ionL1 * ratio * ratio, varL1 * ratio * ratio * ratio * ratio
}
