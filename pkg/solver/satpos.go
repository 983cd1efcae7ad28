package solver

import (
	"github.com/skybeacon/gnssgo/pkg/ephemeris"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/linalg"
	"github.com/skybeacon/gnssgo/pkg/navstore"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

const clight = 299792458.0

// maxVarEph is the position-error variance ceiling (m^2) above which a
// satellite is excluded from the solution.
const maxVarEph = 300.0 * 300.0

// maxAgeSSR bounds how stale an SSR orbit/clock correction may be (s).
const maxAgeSSR = 90.0

// dtVel is the finite-difference step (s) used for the velocity/clock-drift
// approximation, matching the teacher's 1ms step.
const dtVel = 1e-3

// SatState is one satellite's transmit-time position, velocity, clock and
// the variance/health that gate its use in the solution.
type SatState struct {
	Pos    [3]float64
	Vel    [3]float64
	ClkOff float64 // clock bias (s)
	ClkDft float64 // clock drift (s/s)
	Var    float64 // position/clock variance (m^2)
	Health int     // -1: unavailable, 0: healthy, else unhealthy mask
}

func evaluate(store *navstore.Store, sys satid.System, sat int, t gtime.Time) (ephemeris.Result, int, bool) {
	switch sys {
	case satid.SysGLO:
		cands := store.GlonassCandidates(sat)
		best := ephemeris.SelectGlonass(cands, t, -1)
		if best == nil {
			return ephemeris.Result{}, -1, false
		}
		r, ok := best.Evaluate(t)
		return r, best.Svh, ok
	case satid.SysSBS:
		cands := store.SBASCandidates(sat)
		best := ephemeris.SelectSBAS(cands, t)
		if best == nil {
			return ephemeris.Result{}, -1, false
		}
		r, ok := best.Evaluate(t)
		return r, 0, ok
	default:
		cands := store.KeplerCandidates(sat)
		best := ephemeris.SelectKepler(cands, t, -1)
		if best == nil {
			return ephemeris.Result{}, -1, false
		}
		r, ok := best.Evaluate(t)
		return r, best.Svh, ok
	}
}

// ephPos evaluates broadcast position/clock at t and its finite-difference
// velocity/drift, the direct port of the teacher's two-epoch EphPos.
func ephPos(store *navstore.Store, sys satid.System, sat int, t gtime.Time) (SatState, bool) {
	r0, svh, ok := evaluate(store, sys, sat, t)
	if !ok {
		return SatState{}, false
	}
	r1, _, ok := evaluate(store, sys, sat, t.Add(dtVel))
	if !ok {
		return SatState{}, false
	}
	var st SatState
	st.Pos = r0.Pos
	st.ClkOff = r0.Dts
	st.ClkDft = (r1.Dts - r0.Dts) / dtVel
	for i := 0; i < 3; i++ {
		st.Vel[i] = (r1.Pos[i] - r0.Pos[i]) / dtVel
	}
	st.Var = r0.Var
	st.Health = svh
	return st, true
}

// satPosSSR applies an SSR orbit/clock correction (radial-along-cross
// deph, polynomial dclk) on top of the broadcast position, the Go
// equivalent of the teacher's SatPosSsr restricted to APC/COM corrections
// without the antenna-offset term (no antenna-phase-center model is
// carried by this module).
func satPosSSR(store *navstore.Store, sys satid.System, sat int, t gtime.Time) (SatState, bool) {
	st, ok := ephPos(store, sys, sat, t)
	if !ok {
		return SatState{}, false
	}
	ssr := store.SSR(sat)
	if ssr == nil {
		return SatState{}, false
	}
	orbitOK, clkOK, hrOK := ssr.AgeValid(t)
	if !orbitOK || !clkOK {
		st.Health = -1
		return st, false
	}
	t1 := t.Sub(ssr.T0Orbit)
	t2 := t.Sub(ssr.T0Clk)
	var deph [3]float64
	for i := 0; i < 3; i++ {
		deph[i] = ssr.Deph[i] + ssr.DDeph[i]*t1
	}
	dclk := ssr.Dclk[0] + ssr.Dclk[1]*t2 + ssr.Dclk[2]*t2*t2
	if hrOK {
		dclk += ssr.HRClk
	}

	ea := make([]float64, 3)
	if linalg.NormV3(st.Vel[:], ea) == 0 {
		return st, false
	}
	rc := make([]float64, 3)
	linalg.Cross3(st.Pos[:], st.Vel[:], rc)
	ec := make([]float64, 3)
	if linalg.NormV3(rc, ec) == 0 {
		st.Health = -1
		return st, false
	}
	er := make([]float64, 3)
	linalg.Cross3(ea, ec, er)
	for i := 0; i < 3; i++ {
		st.Pos[i] += -(er[i]*deph[0] + ea[i]*deph[1] + ec[i]*deph[2])
	}
	st.ClkOff += dclk / clight
	st.Var = sqr(urassr(ssr.URA))
	return st, true
}

func sqr(x float64) float64 { return x * x }

// urassr maps an SSR URA class index to a 1-sigma orbit/clock error (m),
// the coarse RTCM SSR URA table (class << 3 | value, ref RTCM 10403.3
// 3.5.5).
func urassr(ura int) float64 {
	if ura <= 0 {
		return 1.0
	}
	cls := ura >> 3
	val := ura & 7
	var scale, base float64
	switch cls {
	case 0:
		scale, base = 0.25, 0
	case 1:
		scale, base = 1, 2
	case 2:
		scale, base = 4, 10
	default:
		scale, base = 16, 34
	}
	return (base + float64(val)*scale) * 1e-3
}

// SatPos evaluates one satellite's transmit-time state per opt.SatEph.
func SatPos(store *navstore.Store, sat int, t gtime.Time, opt EphOpt) (SatState, bool) {
	sys, _ := satid.SatSys(sat)
	switch opt {
	case EphSSRApc, EphSSRCom:
		return satPosSSR(store, sys, sat, t)
	case EphTLE:
		return satPosTLE(store, sat, t)
	default:
		return ephPos(store, sys, sat, t)
	}
}

// satPosTLE evaluates a satellite from its stored NORAD TLE when no
// broadcast ephemeris representation applies, per SPEC_FULL.md §4.10.
// A TLE carries no clock model, so health is reported unconditionally
// healthy and clock bias/drift are left at zero.
func satPosTLE(store *navstore.Store, sat int, t gtime.Time) (SatState, bool) {
	tle := store.TLE(sat)
	if tle == nil {
		return SatState{}, false
	}
	r, ok := tle.Evaluate(t)
	if !ok {
		return SatState{}, false
	}
	return SatState{Pos: r.Pos, Vel: r.Vel, Var: r.Var, Health: 0}, true
}

// clockIterate resolves the signal transmission time from a pseudorange
// observation and its satellite clock, the teacher's two-step process:
// first light-time-only, then correcting for the satellite clock bias
// evaluated at that estimate.
func clockIterate(store *navstore.Store, sys satid.System, sat int, recvTime gtime.Time, pr float64) (gtime.Time, float64, bool) {
	t := recvTime.Add(-pr / clight)
	r, _, ok := evaluate(store, sys, sat, t)
	if !ok {
		return gtime.Time{}, 0, false
	}
	return t.Add(-r.Dts), r.Dts, true
}

// TransmitState resolves a satellite's full transmit-time state (position,
// velocity, clock, variance, health) from a receiver-time pseudorange
// observation, folding in the signal transmission time correction the
// teacher's SatPoss loop performs before calling SatPos.
func TransmitState(store *navstore.Store, sat int, recvTime gtime.Time, pr float64, opt EphOpt) (SatState, bool) {
	if pr == 0 {
		return SatState{}, false
	}
	sys, _ := satid.SatSys(sat)
	txTime, _, ok := clockIterate(store, sys, sat, recvTime, pr)
	if !ok {
		return SatState{}, false
	}
	st, ok := SatPos(store, sat, txTime, opt)
	if !ok {
		return SatState{}, false
	}
	return st, true
}

// groupDelay returns the satellite's broadcast group-delay/BGD table
// lookup for use as a models.GroupDelay, the Go equivalent of the
// teacher's Nav.GetTgd: Tgd[dtype] scaled to meters for Keplerian
// systems, -DTaun*c for GLONASS.
func groupDelay(store *navstore.Store, sat int, t gtime.Time) func(dtype int) float64 {
	sys, _ := satid.SatSys(sat)
	if sys == satid.SysGLO {
		cands := store.GlonassCandidates(sat)
		best := ephemeris.SelectGlonass(cands, t, -1)
		return func(dtype int) float64 {
			if best == nil {
				return 0
			}
			return -best.DTaun * clight
		}
	}
	cands := store.KeplerCandidates(sat)
	best := ephemeris.SelectKepler(cands, t, -1)
	return func(dtype int) float64 {
		if best == nil || dtype < 0 || dtype >= len(best.Tgd) {
			return 0
		}
		return best.Tgd[dtype] * clight
	}
}

// excludeSatellite reports whether sat should be dropped from the
// solution given its health flag, position-error variance, and the
// active options, mirroring the teacher's SatExclude.
func excludeSatellite(sat int, sys satid.System, variance float64, svh int, opt *Options) bool {
	if svh < 0 {
		return true
	}
	if opt.ExcludeSats != nil && opt.ExcludeSats[sat] {
		return true
	}
	if opt.NavSys != 0 && sys&opt.NavSys == 0 {
		return true
	}
	h := svh
	if sys == satid.SysQZS {
		h &= 0xFE // mask QZSS LEX health bit
	}
	if h != 0 {
		return true
	}
	if variance > maxVarEph {
		return true
	}
	return false
}
