package ephemeris

import (
	"math"

	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/linalg"
)

// GLONASS orbit-integration constants, ref GLONASS ICD v5.1 Annex A.3.1.2.
const (
	reGLO     = 6378136.0
	muGLO     = 3.9860044e14
	j2GLO     = 1.0826257e-3
	omegeGLO  = 7.292115e-5
	errephGLO = 5.0
	tstep     = 60.0
)

// glonassDeq evaluates the GLONASS orbit differential equation: a
// 6-vector state {x,y,z,vx,vy,vz} under Earth oblateness (J2) and
// Coriolis terms, plus a luni-solar perturbation acceleration acc
// supplied by the broadcast record.
func glonassDeq(x []float64, acc [3]float64) (xdot [6]float64) {
	r2 := linalg.Dot(x[:3], x[:3], 3)
	if r2 <= 0 {
		return xdot
	}
	r3 := r2 * math.Sqrt(r2)
	omg2 := omegeGLO * omegeGLO
	a := 1.5 * j2GLO * muGLO * reGLO * reGLO / r2 / r3
	b := 5.0 * x[2] * x[2] / r2
	c := -muGLO/r3 - a*(1.0-b)
	xdot[0], xdot[1], xdot[2] = x[3], x[4], x[5]
	xdot[3] = (c+omg2)*x[0] + 2.0*omegeGLO*x[4] + acc[0]
	xdot[4] = (c+omg2)*x[1] - 2.0*omegeGLO*x[3] + acc[1]
	xdot[5] = (c-2.0*a)*x[2] + acc[2]
	return xdot
}

// glonassOrbit advances a GLONASS state vector x by t seconds using 4th
// order Runge-Kutta integration of glonassDeq, ref GLONASS ICD Annex
// A.3.1.2.
func glonassOrbit(t float64, x []float64, acc [3]float64) {
	k1 := glonassDeq(x, acc)
	w := make([]float64, 6)
	for i := range w {
		w[i] = x[i] + k1[i]*t/2.0
	}
	k2 := glonassDeq(w, acc)
	for i := range w {
		w[i] = x[i] + k2[i]*t/2.0
	}
	k3 := glonassDeq(w, acc)
	for i := range w {
		w[i] = x[i] + k3[i]*t
	}
	k4 := glonassDeq(w, acc)
	for i := range x {
		x[i] += (k1[i] + 2.0*k2[i] + 2.0*k3[i] + k4[i]) * t / 6.0
	}
}

// Clock evaluates a GLONASS ephemeris's clock bias at time t (GPST).
func (g *Glonass) Clock(t gtime.Time) float64 {
	dt := t.Sub(g.Toe)
	ts := dt
	for i := 0; i < 2; i++ {
		dt = ts - (-g.Taun + g.Gamn*dt)
	}
	return -g.Taun + g.Gamn*dt
}

// Evaluate numerically integrates a GLONASS broadcast state vector
// (position, velocity, luni-solar acceleration) from its reference epoch
// Toe to t (GPST) via 4th-order Runge-Kutta in TSTEP-sized sub-steps.
func (g *Glonass) Evaluate(t gtime.Time) (res Result, ok bool) {
	dt := t.Sub(g.Toe)
	res.Dts = -g.Taun + g.Gamn*dt

	x := make([]float64, 6)
	for i := 0; i < 3; i++ {
		x[i] = g.Pos[i]
		x[i+3] = g.Vel[i]
	}
	step := tstep
	if dt < 0 {
		step = -tstep
	}
	for math.Abs(dt) > 1e-9 {
		if math.Abs(dt) < tstep {
			step = dt
		}
		glonassOrbit(step, x, g.Acc)
		dt -= step
	}
	copy(res.Pos[:], x[:3])
	copy(res.Vel[:], x[3:])
	res.Var = errephGLO * errephGLO
	return res, true
}
