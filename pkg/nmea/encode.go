// Package nmea renders positioning solutions as NMEA 0183 RMC/GGA/GSA/GSV
// sentences and parses RMC/GGA/ZDA sentences back into a solution, per
// spec.md §4.9.
package nmea

import (
	"fmt"
	"math"

	"github.com/skybeacon/gnssgo/pkg/geodesy"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/obs"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

// DefaultTalkerID is the talker ID RMC/GGA sentences use when the caller
// doesn't override it, matching the teacher's combined-GNSS default.
const DefaultTalkerID = "GN"

const knot2m = 0.514444444

// sysTable lists the NMEA system groupings GSA/GSV iterate over, in the
// teacher's fixed order: each entry owns one talker ID and system ID
// (NMEA 0183 table 21).
var sysTable = []struct {
	sys    satid.System
	talker string
	sysID  int
}{
	{satid.SysGPS | satid.SysSBS, "GP", 1},
	{satid.SysGLO, "GL", 2},
	{satid.SysGAL, "GA", 3},
	{satid.SysBDS, "GB", 4},
	{satid.SysQZS, "GQ", 5},
	{satid.SysIRN, "GI", 6},
}

func appendChecksum(p string) string {
	var sum byte
	for i := 1; i < len(p); i++ {
		sum ^= p[i]
	}
	return fmt.Sprintf("%s*%02X\r\n", p, sum)
}

func degToDMS(deg float64) (d, m, s float64) {
	a := math.Abs(deg)
	d = math.Floor(a)
	a = (a - d) * 60.0
	m = math.Floor(a)
	s = (a - m) * 60.0
	return d, m, s
}

// FormatRMC renders sol as a $--RMC sentence. An empty talker defaults to
// DefaultTalkerID. dir carries the prior fix's track angle forward when
// the current ground speed is below 1 m/s, mirroring the teacher's
// held-heading behavior at low speed (pass 0 on the first call).
func FormatRMC(sol obs.Sol, talker string, prevDir float64) (sentence string, dir float64) {
	if talker == "" {
		talker = DefaultTalkerID
	}
	if sol.Stat == obs.QualityNone {
		return appendChecksum(fmt.Sprintf("$%sRMC,,,,,,,,,,,,,", talker)), prevDir
	}
	t := gtime.GPST2UTC(sol.Time)
	if t.Frac >= 0.995 {
		t = t.Add(1 - t.Frac)
	}
	ep := t.Calendar()

	var rr [3]float64
	copy(rr[:], sol.Rr[:3])
	pos := geodesy.ECEF2Geodetic(rr)
	var vrr [3]float64
	copy(vrr[:], sol.Rr[3:6])
	enuv := geodesy.ECEF2ENU(pos, vrr)
	vel := math.Sqrt(enuv[0]*enuv[0] + enuv[1]*enuv[1] + enuv[2]*enuv[2])
	if vel >= 1.0 {
		dir = math.Atan2(enuv[0], enuv[1]) * 180 / math.Pi
		if dir < 0 {
			dir += 360
		}
	} else {
		dir = prevDir
	}

	mode := "A"
	switch sol.Stat {
	case obs.QualityDGPS, obs.QualitySBAS:
		mode = "D"
	case obs.QualityFloat, obs.QualityFix:
		mode = "R"
	case obs.QualityPPP:
		mode = "P"
	}
	latD, latM, latS := degToDMS(pos[0] * 180 / math.Pi)
	lonD, lonM, lonS := degToDMS(pos[1] * 180 / math.Pi)
	ns, ew := "N", "E"
	if pos[0] < 0 {
		ns = "S"
	}
	if pos[1] < 0 {
		ew = "W"
	}
	p := fmt.Sprintf("$%sRMC,%02.0f%02.0f%05.2f,A,%02.0f%010.7f,%s,%03.0f%010.7f,%s,%4.2f,%4.2f,%02.0f%02.0f%02d,,,%s,A",
		talker, ep[3], ep[4], ep[5], latD, latM+latS/60.0, ns,
		lonD, lonM+lonS/60.0, ew, vel/knot2m, dir,
		ep[2], ep[1], int(math.Mod(ep[0], 100.0)), mode)
	return appendChecksum(p), dir
}

// nmeaSolQ maps a Quality to the NMEA GGA quality indicator (0-8).
var nmeaSolQ = [...]int{0, 1, 2, 4, 5, 2, 6, 3}

// FormatGGA renders sol as a $--GGA sentence. hdop and geoidSep (both in
// meters/dimensionless) are supplied by the caller since this package
// carries no geoid undulation grid; pass 0 for geoidSep to report the
// ellipsoidal height directly.
func FormatGGA(sol obs.Sol, talker string, hdop, geoidSep float64) string {
	if talker == "" {
		talker = DefaultTalkerID
	}
	if sol.Stat == obs.QualityNone {
		return appendChecksum(fmt.Sprintf("$%sGGA,,,,,,,,,,,,,,", talker))
	}
	t := gtime.GPST2UTC(sol.Time)
	if t.Frac >= 0.995 {
		t = t.Add(1 - t.Frac)
	}
	ep := t.Calendar()
	var rr [3]float64
	copy(rr[:], sol.Rr[:3])
	pos := geodesy.ECEF2Geodetic(rr)

	solq := 0
	if int(sol.Stat) < len(nmeaSolQ) {
		solq = nmeaSolQ[sol.Stat]
	}
	latD, latM, latS := degToDMS(pos[0] * 180 / math.Pi)
	lonD, lonM, lonS := degToDMS(pos[1] * 180 / math.Pi)
	ns, ew := "N", "E"
	if pos[0] < 0 {
		ns = "S"
	}
	if pos[1] < 0 {
		ew = "W"
	}
	p := fmt.Sprintf("$%sGGA,%02.0f%02.0f%05.2f,%02.0f%010.7f,%s,%03.0f%010.7f,%s,%d,%02d,%.1f,%.3f,M,%.3f,M,%.1f,%04d",
		talker, ep[3], ep[4], ep[5], latD, latM+latS/60.0, ns,
		lonD, lonM+lonS/60.0, ew, solq, sol.Ns, hdop, pos[2]-geoidSep, geoidSep, sol.Age, 0)
	return appendChecksum(p)
}

// SatView is one satellite's visibility used to render GSA/GSV.
type SatView struct {
	Sat     int
	Azel    [2]float64 // rad
	Used    bool
	SNR     float64 // dBHz
}

// FormatGSA renders one $--GSA sentence per navigation system present in
// sats, each carrying up to 12 satellite IDs in use plus the PDOP/HDOP/VDOP
// computed over all of them combined.
func FormatGSA(sats []SatView, fix3D bool) []string {
	azel := make([][2]float64, 0, len(sats))
	for _, s := range sats {
		if !s.Used {
			continue
		}
		azel = append(azel, s.Azel)
	}
	dop := geodesy.DOP(azel, 0)

	nsys := 0
	seenMask := satid.SysNone
	for _, s := range sats {
		if !s.Used {
			continue
		}
		sys, _ := satid.SatSys(s.Sat)
		if seenMask&sys == 0 {
			nsys++
		}
		seenMask |= sys
	}

	var out []string
	for _, e := range sysTable {
		var prns []int
		for _, s := range sats {
			if len(prns) >= 12 {
				break
			}
			sys, prn := satid.SatSys(s.Sat)
			if sys&e.sys == 0 || !s.Used {
				continue
			}
			prns = append(prns, nmeaPRN(sys, prn))
		}
		if len(prns) == 0 {
			continue
		}
		talker := e.talker
		if nsys > 1 {
			talker = "GN"
		}
		mode := 1
		if fix3D {
			mode = 3
		}
		p := fmt.Sprintf("$%sGSA,A,%d", talker, mode)
		for j := 0; j < 12; j++ {
			if j < len(prns) {
				p += fmt.Sprintf(",%02d", prns[j])
			} else {
				p += ","
			}
		}
		p += fmt.Sprintf(",%3.1f,%3.1f,%3.1f,%d", dop[1], dop[2], dop[3], e.sysID)
		out = append(out, appendChecksum(p))
	}
	return out
}

// nmeaPRN remaps a satellite's system-local PRN into the NMEA 0183 PRN
// numbering bands (SBAS 33-64, GLONASS 65-99, QZSS 1-10 after subtracting
// its 192 offset).
func nmeaPRN(sys satid.System, prn int) int {
	switch sys {
	case satid.SysSBS:
		return prn - 87
	case satid.SysGLO:
		return prn + 64
	case satid.SysQZS:
		return prn - 192
	}
	return prn
}

// FormatGSV renders the $--GSV sentences (4 satellites per sentence) for
// every navigation system with at least one satellite above the horizon
// in sats.
func FormatGSV(sats []SatView) []string {
	var out []string
	for _, e := range sysTable {
		var view []SatView
		for _, s := range sats {
			if len(view) >= 36 {
				break
			}
			sys, _ := satid.SatSys(s.Sat)
			if sys&e.sys == 0 || s.Azel[1] <= 0 {
				continue
			}
			view = append(view, s)
		}
		if len(view) == 0 {
			continue
		}
		nmsg := (len(view) + 3) / 4
		for j := 0; j < nmsg; j++ {
			p := fmt.Sprintf("$%sGSV,%d,%d,%02d", e.talker, nmsg, j+1, len(view))
			for k := 0; k < 4; k++ {
				idx := j*4 + k
				if idx >= len(view) {
					p += ",,,,"
					continue
				}
				sys, prn := satid.SatSys(view[idx].Sat)
				az := view[idx].Azel[0] * 180 / math.Pi
				if az < 0 {
					az += 360
				}
				el := view[idx].Azel[1] * 180 / math.Pi
				p += fmt.Sprintf(",%02d,%02.0f,%03.0f,%02.0f", nmeaPRN(sys, prn), el, az, view[idx].SNR)
			}
			p += ",0"
			out = append(out, appendChecksum(p))
		}
	}
	return out
}
