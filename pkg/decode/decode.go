// Package decode defines the status enumeration, option-token parser
// and shared scale constants the per-protocol receiver decoders
// (ubx, rtcm2, rtcm3, sbf, skytraq, nvs) build on, per spec.md §4.5.
package decode

import (
	"strconv"
	"strings"

	"github.com/skybeacon/gnssgo/pkg/obs"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

// Status is the small sum type every protocol decoder's byte-feed
// operation returns.
type Status int

const (
	StatusNone Status = iota // no complete message yet
	StatusObs                // observation batch ready
	StatusEph                // ephemeris (broadcast/GLONASS/SBAS) ready
	StatusSBAS                // SBAS augmentation frame ready
	StatusSta                // station parameters (antenna/ref point)
	StatusSSR                // SSR correction ready
	StatusTime                // time parameter (leap second, ...)
	StatusDGPS                // DGPS correction
	StatusIonUtc              // ionosphere/UTC parameter set
	StatusError               // framing/range error, consumed and reset
	StatusEOF                 // reader exhausted
)

// Scale-factor constants shared by the bit-packed navigation message
// decoders (RTCM3 1019-1046, GPS/Galileo/BeiDou LNAV subframes), named
// the way the teacher's types.go names them.
const (
	P2_5  = 0.03125
	P2_10 = 0.0009765625
	P2_24 = 5.960464477539063e-08
	P2_19 = 1.907348632812500e-06
	P2_29 = 1.862645149230957e-09
	P2_31 = 4.656612873077393e-10
	P2_33 = 1.164153218269348e-10
	P2_34 = 5.820766091346740e-11
	P2_43 = 1.136868377216160e-13
	P2_46 = 1.421085471520200e-14
	P2_55 = 2.775557561562891e-17
	P2_59 = 1.734723475976810e-18

	SC2RAD = 3.1415926535898 // semi-circle to radian

	Clight = 299792458.0

	RangeMS   = Clight * 0.001 // range represented by 1ms of light travel
	PrUnitGPS = 299792.458     // RTCM2 unit of GPS pseudorange (m)
	PrUnitGLO = 599584.916     // RTCM2 unit of GLONASS pseudorange (m)

	CPStdValid = 5 // UBX RXM-RAWX cpStdev ceiling for a usable phase, cycles*0.004
)

// Options is the free-form decoder option string of spec.md §6, parsed
// once per stream and consulted by every message handler.
type Options struct {
	EphAll      bool    // -EPHALL: accept ephemeris unconditionally
	Tadj        float64 // -TADJ=dt: snap epoch time to multiples of dt
	InvCP       bool    // -INVCP: invert carrier-phase polarity
	StdSlip     int     // -STD_SLIP=k: force slip when cp std >= k
	MaxStdCP    int     // -MAX_STD_CP=k: drop phases with std > k
	MultiCode   bool    // -MULTICODE: keep distinct codes per signal
	RcvStds     bool    // -RCVSTDS: carry receiver std-devs
	GalINAV     bool    // -GALINAV: restrict Galileo source to I/NAV
	GalFNAV     bool    // -GALFNAV: restrict Galileo source to F/NAV
	Aux1, Aux2  bool    // -AUX1/-AUX2: antenna selection
	StationID   int     // -STA=n: accept only this station id (-1: any)
	CodePrio    map[string]uint8 // -GL1W, -RL1P, ... frequency pin table, keyed "sys:freq"
}

// ParseOptions tokenizes a space-separated option string per spec.md §6.
func ParseOptions(s string) Options {
	o := Options{StationID: -1, CodePrio: map[string]uint8{}}
	for _, tok := range strings.Fields(s) {
		switch {
		case tok == "-EPHALL":
			o.EphAll = true
		case strings.HasPrefix(tok, "-TADJ="):
			o.Tadj, _ = strconv.ParseFloat(strings.TrimPrefix(tok, "-TADJ="), 64)
		case tok == "-INVCP":
			o.InvCP = true
		case strings.HasPrefix(tok, "-STD_SLIP="):
			o.StdSlip, _ = strconv.Atoi(strings.TrimPrefix(tok, "-STD_SLIP="))
		case strings.HasPrefix(tok, "-MAX_STD_CP="):
			o.MaxStdCP, _ = strconv.Atoi(strings.TrimPrefix(tok, "-MAX_STD_CP="))
		case tok == "-MULTICODE":
			o.MultiCode = true
		case tok == "-RCVSTDS":
			o.RcvStds = true
		case tok == "-GALINAV":
			o.GalINAV = true
		case tok == "-GALFNAV":
			o.GalFNAV = true
		case tok == "-AUX1":
			o.Aux1 = true
		case tok == "-AUX2":
			o.Aux2 = true
		case strings.HasPrefix(tok, "-STA="):
			o.StationID, _ = strconv.Atoi(strings.TrimPrefix(tok, "-STA="))
		case strings.HasPrefix(tok, "-") && len(tok) >= 4:
			// code-priority pin, e.g. "-GL1W", "-RL1P": sys letter + freq + code
			o.CodePrio[tok[1:2]+":"+tok[3:4]] = 0 // only the key is recorded; no decoder reads the table
		}
	}
	return o
}

// ObsBatch is the context-owned buffer decoders fill until the epoch
// boundary is detected, at which point StatusObs is returned and the
// caller must drain it before the next feed, per spec.md §4.5.2.
type ObsBatch struct {
	Data [satid.MaxObs]obs.Data
	N    int
}

// Reset empties the batch for the next epoch.
func (b *ObsBatch) Reset() { b.N = 0 }

// Find returns the index of sat in the batch, appending a fresh zeroed
// record (with every frequency slot marked CodeNone) if absent, or -1
// if the batch is already full.
func (b *ObsBatch) Find(sat int) int {
	for i := 0; i < b.N; i++ {
		if b.Data[i].Sat == sat {
			return i
		}
	}
	if b.N >= len(b.Data) {
		return -1
	}
	b.Data[b.N] = obs.Data{Sat: sat}
	b.N++
	return b.N - 1
}
