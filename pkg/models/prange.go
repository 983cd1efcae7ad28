package models

import "github.com/skybeacon/gnssgo/pkg/satid"

const (
	freq1    = satid.Freq1
	freq2    = satid.Freq2
	freq5    = satid.Freq5
	freq7    = satid.Freq7
	freq9    = satid.Freq9
	freq1GLO = satid.Freq1GLO
	freq2GLO = satid.Freq2GLO
	freq1BDS = satid.Freq1BDS
	freq2BDS = satid.Freq2BDS
)

// ErrCBias is the single-frequency code-bias error std (m), ERR_CBIAS.
const ErrCBias = 0.3

func sqr(x float64) float64 { return x * x }

// GroupDelay abstracts the per-satellite group-delay/BGD table
// (broadcast Tgd[] for Keplerian systems, −DTaun·c for GLONASS) the
// navigation store exposes; dtype indexes the system-specific group-delay
// slot (e.g. 0:TGD, 1:BGD_E5a/E5b or TGD_B2I, 2:TGD_B1Cp, 4:ISC_B1Cd).
type GroupDelay func(dtype int) float64

// GalSelector reports whether the process-wide Galileo ephemeris
// selector currently prefers F/NAV over I/NAV.
type GalSelector func() bool

// IonoFreeCombo forms the dual-frequency iono-free pseudorange P_IF from
// two code observations, selecting the system-specific secondary
// frequency and group-delay correction the way Prange does. p1Code/p2Code
// are the RINEX-3 CODE_* observation codes of each pseudorange; galFNAV
// reports the current Galileo selector state (GetSelEph(SysGAL) == 2, F/NAV).
func IonoFreeCombo(sys satid.System, p1, p2 float64, p1Code, p2Code uint8, tgd GroupDelay, galFNAV bool) (pIF float64, ok bool) {
	switch sys {
	case satid.SysGPS, satid.SysQZS:
		gamma := sqr(freq1 / freq2)
		return (p2 - gamma*p1) / (1.0 - gamma), true
	case satid.SysGLO:
		gamma := sqr(freq1GLO / freq2GLO)
		return (p2 - gamma*p1) / (1.0 - gamma), true
	case satid.SysGAL:
		gamma := sqr(freq1 / freq7)
		if galFNAV {
			p2 -= tgd(0) - tgd(1)
		}
		return (p2 - gamma*p1) / (1.0 - gamma), true
	case satid.SysBDS:
		var gamma, b1 float64
		if p1Code == code2I {
			gamma = sqr(freq1BDS / freq2BDS)
			b1 = tgd(0)
		} else if p1Code == code1P {
			gamma = sqr(freq1 / freq2BDS)
			b1 = tgd(2)
		} else {
			gamma = sqr(freq1 / freq2BDS)
			b1 = tgd(2) + tgd(4)
		}
		b2 := tgd(1)
		return ((p2 - gamma*p1) - (b2 - gamma*b1)) / (1.0 - gamma), true
	case satid.SysIRN:
		gamma := sqr(freq5 / freq9)
		return (p2 - gamma*p1) / (1.0 - gamma), true
	}
	return 0, false
}

// RINEX-3 obs-code values this package needs to distinguish BDS B1I from
// B1C signals; kept local rather than importing all of satid's table.
const (
	code2I = 40 // CODE_L2I
	code1P = 2  // CODE_L1P
)

// SingleFreqCorrected applies the single-frequency group-delay
// correction Prange uses when no iono-free combination is requested.
func SingleFreqCorrected(sys satid.System, p1 float64, p1Code uint8, tgd GroupDelay, galFNAV bool) (p float64, vari float64) {
	vari = sqr(ErrCBias)
	switch sys {
	case satid.SysGPS, satid.SysQZS:
		return p1 - tgd(0), vari
	case satid.SysGLO:
		gamma := sqr(freq1GLO / freq2GLO)
		return p1 - tgd(0)/(gamma-1.0), vari
	case satid.SysGAL:
		if galFNAV {
			return p1 - tgd(0), vari
		}
		return p1 - tgd(1), vari
	case satid.SysBDS:
		var b1 float64
		if p1Code == code2I {
			b1 = tgd(0)
		} else if p1Code == code1P {
			b1 = tgd(2)
		} else {
			b1 = tgd(2) + tgd(4)
		}
		return p1 - b1, vari
	case satid.SysIRN:
		gamma := sqr(freq9 / freq5)
		return p1 - gamma*tgd(0), vari
	}
	return p1, vari
}
