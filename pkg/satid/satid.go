// Package satid enumerates the navigation systems and satellite-number
// space (sat ∈ [1,MaxSat]) this module addresses, and the RINEX-3 obs-code
// table used to tag signals by system/frequency.
package satid

import (
	"fmt"
	"strings"
)

// System is a one-hot navigation-system bitmask, as used by solver.Options.NavSys
// and every per-satellite system test in this module.
type System int

const (
	SysNone System = 0x00
	SysGPS  System = 0x01
	SysSBS  System = 0x02
	SysGLO  System = 0x04
	SysGAL  System = 0x08
	SysQZS  System = 0x10
	SysBDS  System = 0x20
	SysIRN  System = 0x40
	SysLEO  System = 0x80
	SysAll  System = 0xFF
)

// Per-system PRN/slot ranges and the satellite-number space they occupy,
// in the fixed GPS,GLO,GAL,QZS,BDS,IRN,LEO,SBS order.
const (
	MinPRNGPS, MaxPRNGPS = 1, 32
	NSatGPS               = MaxPRNGPS - MinPRNGPS + 1

	MinPRNGLO, MaxPRNGLO = 1, 27
	NSatGLO               = MaxPRNGLO - MinPRNGLO + 1

	MinPRNGAL, MaxPRNGAL = 1, 36
	NSatGAL               = MaxPRNGAL - MinPRNGAL + 1

	MinPRNQZS, MaxPRNQZS = 193, 202
	NSatQZS               = MaxPRNQZS - MinPRNQZS + 1

	MinPRNBDS, MaxPRNBDS = 1, 63
	NSatBDS               = MaxPRNBDS - MinPRNBDS + 1

	MinPRNIRN, MaxPRNIRN = 1, 14
	NSatIRN               = MaxPRNIRN - MinPRNIRN + 1

	MinPRNLEO, MaxPRNLEO = 1, 10
	NSatLEO               = MaxPRNLEO - MinPRNLEO + 1

	MinPRNSBS, MaxPRNSBS = 120, 158
	NSatSBS               = MaxPRNSBS - MinPRNSBS + 1

	// MaxSat is the size of the dense per-satellite arrays (the navstore
	// ephemeris slots, the rtcm2 DGPS table, ...) this module carries.
	MaxSat = NSatGPS + NSatGLO + NSatGAL + NSatQZS + NSatBDS + NSatIRN + NSatLEO + NSatSBS

	NFreq    = 3 // carrier frequencies carried per satellite
	NFreqGLO = 2
	MaxCode  = 68
	MaxObs   = 96
)

// Carrier frequencies (Hz), IS-GPS/Galileo-OS/BDS-SIS reference values.
const (
	Freq1    = 1.57542e9  // L1/E1/B1C
	Freq2    = 1.22760e9  // L2
	Freq5    = 1.17645e9  // L5/E5a/B2a
	Freq6    = 1.27875e9  // E6/L6
	Freq7    = 1.20714e9  // E5b
	Freq8    = 1.191795e9 // E5a+b
	Freq9    = 2.492028e9 // S
	Freq1GLO = 1.60200e9  // G1 base
	Freq2GLO = 1.24600e9  // G2 base
	Freq3GLO = 1.202025e9 // G3
	Freq1BDS = 1.561098e9 // B1I
	Freq2BDS = 1.20714e9  // B2I/B2b
	// DFrq1GLO/DFrq2GLO are the FDMA channel spacings added to the base
	// G1/G2 frequency per FCN (-7..+6).
	DFrq1GLO = 0.56250e6
	DFrq2GLO = 0.43750e6
)

// SatNo maps a (system, prn) pair to the dense satellite number sat ∈
// [1,MaxSat], or 0 if the prn is out of range for that system.
func SatNo(sys System, prn int) int {
	if prn <= 0 {
		return 0
	}
	switch sys {
	case SysGPS:
		if prn < MinPRNGPS || prn > MaxPRNGPS {
			return 0
		}
		return prn - MinPRNGPS + 1
	case SysGLO:
		if prn < MinPRNGLO || prn > MaxPRNGLO {
			return 0
		}
		return NSatGPS + prn - MinPRNGLO + 1
	case SysGAL:
		if prn < MinPRNGAL || prn > MaxPRNGAL {
			return 0
		}
		return NSatGPS + NSatGLO + prn - MinPRNGAL + 1
	case SysQZS:
		if prn < MinPRNQZS || prn > MaxPRNQZS {
			return 0
		}
		return NSatGPS + NSatGLO + NSatGAL + prn - MinPRNQZS + 1
	case SysBDS:
		if prn < MinPRNBDS || prn > MaxPRNBDS {
			return 0
		}
		return NSatGPS + NSatGLO + NSatGAL + NSatQZS + prn - MinPRNBDS + 1
	case SysIRN:
		if prn < MinPRNIRN || prn > MaxPRNIRN {
			return 0
		}
		return NSatGPS + NSatGLO + NSatGAL + NSatQZS + NSatBDS + prn - MinPRNIRN + 1
	case SysLEO:
		if prn < MinPRNLEO || prn > MaxPRNLEO {
			return 0
		}
		return NSatGPS + NSatGLO + NSatGAL + NSatQZS + NSatBDS + NSatIRN + prn - MinPRNLEO + 1
	case SysSBS:
		if prn < MinPRNSBS || prn > MaxPRNSBS {
			return 0
		}
		return NSatGPS + NSatGLO + NSatGAL + NSatQZS + NSatBDS + NSatIRN + NSatLEO + prn - MinPRNSBS + 1
	}
	return 0
}

// SatSys returns the navigation system of sat and its system-relative
// PRN/slot number, or (SysNone,0) if sat is out of range.
func SatSys(sat int) (sys System, prn int) {
	if sat <= 0 || sat > MaxSat {
		return SysNone, 0
	}
	if sat <= NSatGPS {
		return SysGPS, sat + MinPRNGPS - 1
	}
	if sat -= NSatGPS; sat <= NSatGLO {
		return SysGLO, sat + MinPRNGLO - 1
	}
	if sat -= NSatGLO; sat <= NSatGAL {
		return SysGAL, sat + MinPRNGAL - 1
	}
	if sat -= NSatGAL; sat <= NSatQZS {
		return SysQZS, sat + MinPRNQZS - 1
	}
	if sat -= NSatQZS; sat <= NSatBDS {
		return SysBDS, sat + MinPRNBDS - 1
	}
	if sat -= NSatBDS; sat <= NSatIRN {
		return SysIRN, sat + MinPRNIRN - 1
	}
	if sat -= NSatIRN; sat <= NSatLEO {
		return SysLEO, sat + MinPRNLEO - 1
	}
	if sat -= NSatLEO; sat <= NSatSBS {
		return SysSBS, sat + MinPRNSBS - 1
	}
	return SysNone, 0
}

// SatID2No parses a satellite id ("G01","R12","E07","nnn",...) into a
// dense satellite number, or 0 on malformed input.
func SatID2No(id string) int {
	var prn int
	if _, err := fmt.Sscanf(id, "%d", &prn); err == nil {
		switch {
		case MinPRNGPS <= prn && prn <= MaxPRNGPS:
			return SatNo(SysGPS, prn)
		case MinPRNSBS <= prn && prn <= MaxPRNSBS:
			return SatNo(SysSBS, prn)
		case MinPRNQZS <= prn && prn <= MaxPRNQZS:
			return SatNo(SysQZS, prn)
		}
		return 0
	}
	id = strings.TrimSpace(id)
	if len(id) < 2 {
		return 0
	}
	var code byte
	if _, err := fmt.Sscanf(id, "%c%d", &code, &prn); err != nil {
		return 0
	}
	var sys System
	switch code {
	case 'G':
		sys, prn = SysGPS, prn+MinPRNGPS-1
	case 'R':
		sys, prn = SysGLO, prn+MinPRNGLO-1
	case 'E':
		sys, prn = SysGAL, prn+MinPRNGAL-1
	case 'J':
		sys, prn = SysQZS, prn+MinPRNQZS-1
	case 'C':
		sys, prn = SysBDS, prn+MinPRNBDS-1
	case 'I':
		sys, prn = SysIRN, prn+MinPRNIRN-1
	case 'L':
		sys, prn = SysLEO, prn+MinPRNLEO-1
	case 'S':
		sys, prn = SysSBS, prn+100
	default:
		return 0
	}
	return SatNo(sys, prn)
}

// SatNo2ID renders a dense satellite number as a satellite id string.
func SatNo2ID(sat int) string {
	sys, prn := SatSys(sat)
	switch sys {
	case SysGPS:
		return fmt.Sprintf("G%02d", prn-MinPRNGPS+1)
	case SysGLO:
		return fmt.Sprintf("R%02d", prn-MinPRNGLO+1)
	case SysGAL:
		return fmt.Sprintf("E%02d", prn-MinPRNGAL+1)
	case SysQZS:
		return fmt.Sprintf("J%02d", prn-MinPRNQZS+1)
	case SysBDS:
		return fmt.Sprintf("C%02d", prn-MinPRNBDS+1)
	case SysIRN:
		return fmt.Sprintf("I%02d", prn-MinPRNIRN+1)
	case SysLEO:
		return fmt.Sprintf("L%02d", prn-MinPRNLEO+1)
	case SysSBS:
		return fmt.Sprintf("%03d", prn)
	}
	return ""
}

// obsCodes is the RINEX-3.04 observation-code table indexed by the
// CODE_* enumeration; index 0 is CodeNone.
var obsCodes = [MaxCode + 1]string{
	"", "1C", "1P", "1W", "1Y", "1M", "1N", "1S", "1L", "1E",
	"1A", "1B", "1X", "1Z", "2C", "2D", "2S", "2L", "2X", "2P",
	"2W", "2Y", "2M", "2N", "5I", "5Q", "5X", "7I", "7Q", "7X",
	"6A", "6B", "6C", "6X", "6Z", "6S", "6L", "8L", "8Q", "8X",
	"2I", "2Q", "6I", "6Q", "3I", "3Q", "3X", "1I", "1Q", "5A",
	"5B", "5C", "9A", "9B", "9C", "9X", "1D", "5D", "5P", "5Z",
	"6E", "7D", "7P", "7Z", "8D", "8P", "4A", "4B",
}

const CodeNone = 0

// Obs2Code maps an observation code string ("1C","2W",...) to its
// CODE_* value, or CodeNone if the string is not recognized.
func Obs2Code(obs string) uint8 {
	for i := 1; i < len(obsCodes); i++ {
		if obsCodes[i] == obs {
			return uint8(i)
		}
	}
	return CodeNone
}

// Code2Obs renders a CODE_* value back to its RINEX-3 string, or "" if
// code is out of range.
func Code2Obs(code uint8) string {
	if code == CodeNone || int(code) >= len(obsCodes) {
		return ""
	}
	return obsCodes[code]
}

// FreqOf returns the carrier frequency (Hz) of an observation code for a
// given system, the band-prefix dispatch the teacher's Code2Freq family
// performs per-system; fcn is the GLONASS FDMA channel number (already
// offset by -8, 0 if unknown/not applicable). Returns 0 if the code or
// system is not recognized.
func FreqOf(sys System, code uint8, fcn int) float64 {
	s := Code2Obs(code)
	if s == "" {
		return 0
	}
	band := s[0]
	switch sys {
	case SysGPS, SysQZS:
		switch band {
		case '1':
			return Freq1
		case '2':
			return Freq2
		case '5':
			return Freq5
		case '6':
			return Freq6
		}
	case SysGLO:
		switch band {
		case '1':
			return Freq1GLO + float64(fcn)*DFrq1GLO
		case '2':
			return Freq2GLO + float64(fcn)*DFrq2GLO
		case '3':
			return Freq3GLO
		}
	case SysGAL:
		switch band {
		case '1':
			return Freq1
		case '7':
			return Freq7
		case '5':
			return Freq5
		case '8':
			return Freq8
		case '6':
			return Freq6
		}
	case SysBDS:
		switch band {
		case '1', '2':
			if s == "2I" || s == "2Q" || s == "2X" {
				return Freq2BDS
			}
			return Freq1BDS
		case '7':
			return Freq2BDS
		case '5':
			return Freq5
		case '6':
			return Freq6
		}
	case SysIRN:
		switch band {
		case '5':
			return Freq5
		case '9':
			return Freq9
		}
	case SysSBS:
		switch band {
		case '1':
			return Freq1
		case '5':
			return Freq5
		}
	}
	return 0
}
