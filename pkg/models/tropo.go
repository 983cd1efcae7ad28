package models

import "math"

// TropModel evaluates the Saastamoinen dry+wet tropospheric delay model
// at receiver position {lat,lon,h} (rad,rad,m), satellite {az,el} (rad),
// and relative humidity humi (default 0.7 per REL_HUMI). Returns 0 for
// unreasonable heights or non-positive elevation.
func TropModel(pos, azel [2]float64, height, humi float64) float64 {
	if height < -100.0 || height > 1e4 || azel[1] <= 0 {
		return 0
	}
	hgt := height
	if hgt < 0 {
		hgt = 0
	}

	const temp0 = 15.0
	pres := 1013.25 * math.Pow(1.0-2.2557e-5*hgt, 5.2568)
	temp := temp0 - 6.5e-3*hgt + 273.16
	e := 6.108 * humi * math.Exp((17.15*temp-4684.0)/(temp-38.45))

	z := pi/2.0 - azel[1]
	trph := 0.0022768 * pres / (1.0 - 0.00266*math.Cos(2.0*pos[0]) - 0.00028*hgt/1e3) / math.Cos(z)
	trpw := 0.002277 * (1255.0/temp + 0.05) * e / math.Cos(z)
	return trph + trpw
}

// TropVariance returns the measurement-variance contribution the solver
// assigns a Saastamoinen-corrected pseudorange, ERR_SAAS/(sin(el)+0.1)
// squared.
func TropVariance(errSaas, el float64) float64 {
	v := errSaas / (math.Sin(el) + 0.1)
	return v * v
}
