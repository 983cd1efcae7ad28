// Package obs defines the observation record, solution, and
// per-satellite status types that flow between the protocol decoders
// and the point-positioning solver.
package obs

import "github.com/skybeacon/gnssgo/pkg/gtime"

// NFreq is the number of carrier-frequency slots carried per
// observation record.
const NFreq = 3

// Loss-of-lock indicator bits, sticky until the next valid phase.
const (
	LLISlip      = 1 << 0 // cycle slip
	LLIHalfC     = 1 << 1 // half-cycle ambiguity unresolved
	LLIHalfA     = 1 << 2 // half-cycle ambiguity adjusted (BDS GEO)
)

// Data is one satellite's measurements at one epoch: carrier phase
// (cycles), pseudorange (m), Doppler (Hz), C/N0 (0.001 dBHz units), LLI
// bitset and signal code, per frequency slot. A zero L or P denotes "not
// measured".
type Data struct {
	Time gtime.Time
	Sat  int
	Rcv  int
	SNR  [NFreq]uint16
	LLI  [NFreq]uint8
	Code [NFreq]uint8
	L    [NFreq]float64
	P    [NFreq]float64
	D    [NFreq]float64
	// Pstd is the receiver-reported pseudorange measurement std (m), 0
	// when the decoder's wire format carries no such field.
	Pstd float64
}

// Quality is the solution-quality enum NMEA and RTK status reporting
// share.
type Quality uint8

const (
	QualityNone Quality = iota
	QualitySingle
	QualityDGPS
	QualityFix
	QualityFloat
	QualitySBAS
	QualityDR
	QualityPPP
)

// Sol is a positioning solution: ECEF or ENU position/velocity,
// upper-triangular position/velocity covariance, per-time-system
// receiver clock bias (GPS-anchored offsets to GLO/GAL/BDS/IRN/QZS),
// and quality/validation metadata.
type Sol struct {
	Time  gtime.Time
	Rr    [6]float64 // {x,y,z,vx,vy,vz} or {e,n,u,ve,vn,vu}
	Qr    [6]float32 // position covariance {xx,yy,zz,xy,yz,zx}
	Qv    [6]float32 // velocity covariance
	Dtr   [6]float64 // receiver clock bias per time system (s)
	ENU   bool        // true: Rr is ENU baseline, false: ECEF
	Stat  Quality
	Ns    uint8 // number of valid satellites
	Age   float32
	Ratio float32
	Thres float32
}

// Status is one satellite's per-epoch derived state: visibility, residuals,
// lock/slip counters, and the dual-frequency geometry-free/MW-LC
// combinations the carrier-phase-aware caller (RTK) consumes.
type Status struct {
	Azel  [2]float64
	Resp  [NFreq]float32
	Resc  [NFreq]float32
	Vsat  [NFreq]uint8
	Snr   [NFreq]uint16
	Slip  [NFreq]uint8
	Half  [NFreq]uint8
	Lock  [NFreq]int
	Outc  [NFreq]uint32
	Slipc [NFreq]uint32
	Rejc  [NFreq]uint32
}
