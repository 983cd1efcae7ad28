package ephemeris

import (
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

// Clock evaluates an SBAS ephemeris's clock bias at time t (GPST), two
// fixed-point iterations against its linear polynomial.
func (s *SBAS) Clock(t gtime.Time) float64 {
	dt := t.Sub(s.T0)
	for i := 0; i < 2; i++ {
		dt -= s.Af0 + s.Af1*dt
	}
	return s.Af0 + s.Af1*dt
}

// Evaluate extrapolates an SBAS position/velocity/acceleration state
// vector quadratically from its reference epoch T0 to t (GPST) — SBAS
// broadcasts are short-span and not RK4-integrated like GLONASS.
func (s *SBAS) Evaluate(t gtime.Time) (res Result, ok bool) {
	dt := t.Sub(s.T0)
	for i := 0; i < 3; i++ {
		res.Pos[i] = s.Pos[i] + s.Vel[i]*dt + s.Acc[i]*dt*dt/2.0
		res.Vel[i] = s.Vel[i] + s.Acc[i]*dt
	}
	res.Dts = s.Af0 + s.Af1*dt
	res.Var = URAVariance(satid.SysSBS, s.Sva)
	return res, true
}
