package ephemeris

import (
	"math"
	"sync/atomic"

	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

// Per-system maximum Toe age (s) beyond which a broadcast ephemeris is no
// longer considered current, ref IS-GPS-200/Galileo-OS-SIS-ICD/BDS-SIS-ICD.
const (
	maxDtoeGPS = 7200.0
	maxDtoeQZS = 7200.0
	maxDtoeGAL = 14400.0
	maxDtoeBDS = 21600.0
	maxDtoeGLO = 1800.0
	maxDtoeIRN = 7200.0
	maxDtoeSBS = 360.0
)

// Galileo message-source selector bits, ref Galileo OS-SIS-ICD table 27.
const (
	galINAVBit = 1 << 9
	galFNAVBit = 1 << 8
)

// ephSel holds the process-wide ephemeris-source preference per system
// (GPS,GLO,GAL,QZS,BDS,IRN,SBS), the one piece of mutable global state
// this package carries — mirroring the teacher's eph_sel vector but as
// atomics instead of a bare array, since decoders for distinct stations
// may run on separate goroutines.
var ephSel [7]atomic.Int32

// System index into ephSel, fixed GPS,GLO,GAL,QZS,BDS,IRN,SBS order.
const (
	selGPS = iota
	selGLO
	selGAL
	selQZS
	selBDS
	selIRN
	selSBS
)

func selIndex(sys satid.System) (int, bool) {
	switch sys {
	case satid.SysGPS:
		return selGPS, true
	case satid.SysGLO:
		return selGLO, true
	case satid.SysGAL:
		return selGAL, true
	case satid.SysQZS:
		return selQZS, true
	case satid.SysBDS:
		return selBDS, true
	case satid.SysIRN:
		return selIRN, true
	case satid.SysSBS:
		return selSBS, true
	}
	return 0, false
}

// SetSelEph sets the ephemeris-source selector for sys (e.g. 0:any,
// 1:I/NAV, 2:F/NAV for Galileo). No-op for systems without a selectable source.
func SetSelEph(sys satid.System, sel int) {
	if i, ok := selIndex(sys); ok {
		ephSel[i].Store(int32(sel))
	}
}

// GetSelEph returns the current ephemeris-source selector for sys.
func GetSelEph(sys satid.System) int {
	if i, ok := selIndex(sys); ok {
		return int(ephSel[i].Load())
	}
	return 0
}

func maxDtoe(sys satid.System) float64 {
	switch sys {
	case satid.SysGAL:
		return maxDtoeGAL
	case satid.SysQZS:
		return maxDtoeQZS
	case satid.SysBDS:
		return maxDtoeBDS
	case satid.SysIRN:
		return maxDtoeIRN
	case satid.SysSBS:
		return maxDtoeSBS
	default:
		return maxDtoeGPS
	}
}

// SelectKepler picks, from candidates (all ephemerides broadcast for a
// single satellite), the one whose Toe is closest to time, honoring
// iode when iode>=0 and applying the Galileo I/NAV-vs-F/NAV selector
// and the "AOD<=0 means not yet valid" exclusion.
func SelectKepler(candidates []*Kepler, time gtime.Time, iode int) *Kepler {
	if len(candidates) == 0 {
		return nil
	}
	sys, _ := satid.SatSys(candidates[0].Sat)
	tmax := maxDtoe(sys)
	tmin := tmax + 1.0
	var best *Kepler

	for _, e := range candidates {
		if iode >= 0 && e.Iode != iode {
			continue
		}
		if sys == satid.SysGAL {
			sel := GetSelEph(satid.SysGAL)
			if sel == 1 && e.Code&galINAVBit == 0 {
				continue
			}
			if sel == 2 && e.Code&galFNAVBit == 0 {
				continue
			}
			if iode < 0 && e.Toe.Sub(time) >= 0.0 {
				continue
			}
		}
		t := math.Abs(e.Toe.Sub(time))
		if t > tmax {
			continue
		}
		if iode >= 0 {
			return e
		}
		if t <= tmin {
			best, tmin = e, t
		}
	}
	return best
}

// SelectGlonass picks the GLONASS ephemeris closest to time among
// candidates, honoring iode when iode>=0.
func SelectGlonass(candidates []*Glonass, time gtime.Time, iode int) *Glonass {
	tmin := maxDtoeGLO + 1.0
	var best *Glonass
	for _, g := range candidates {
		if iode >= 0 && g.Iode != iode {
			continue
		}
		t := math.Abs(g.Toe.Sub(time))
		if t > maxDtoeGLO {
			continue
		}
		if iode >= 0 {
			return g
		}
		if t <= tmin {
			best, tmin = g, t
		}
	}
	return best
}

// SelectSBAS picks the SBAS ephemeris closest to time among candidates.
func SelectSBAS(candidates []*SBAS, time gtime.Time) *SBAS {
	tmin := maxDtoeSBS + 1.0
	var best *SBAS
	for _, s := range candidates {
		t := math.Abs(s.T0.Sub(time))
		if t > maxDtoeSBS {
			continue
		}
		if t <= tmin {
			best, tmin = s, t
		}
	}
	return best
}
