// Package solver implements the standard point-positioning solver:
// per-epoch satellite position/clock evaluation, pseudorange and Doppler
// residual formation, weighted least-squares position/velocity
// estimation, Chi-square/GDOP solution validation and RAIM satellite
// exclusion, per spec.md §4.7.
package solver

import "github.com/skybeacon/gnssgo/pkg/satid"

// IonoOpt selects the ionospheric correction applied to pseudoranges.
type IonoOpt int

const (
	IonoOff IonoOpt = iota
	IonoBroadcast
	IonoIFLC // dual-frequency iono-free combination
)

// TropoOpt selects the tropospheric correction model.
type TropoOpt int

const (
	TropoOff TropoOpt = iota
	TropoSaastamoinen
)

// EphOpt selects how satellite position/clock is evaluated.
type EphOpt int

const (
	EphBroadcast EphOpt = iota
	EphSSRApc           // broadcast + SSR antenna-phase-center correction
	EphSSRCom           // broadcast + SSR center-of-mass correction
	EphTLE              // NORAD TLE/SGP4 fallback, no broadcast ephemeris available
)

// Options bundles the point-positioning configuration, mirroring the
// subset of the teacher's processing options a single-point solver uses.
type Options struct {
	NavSys       satid.System // systems to use (OR of Sys* bits)
	ElevMask     float64      // elevation mask (rad)
	MaxGDOP      float64      // reject solution above this GDOP
	IonoOpt      IonoOpt
	TropoOpt     TropoOpt
	SatEph       EphOpt
	ErrFactors   [5]float64 // {a, baseline-independent(b), elevation-dependent(c), SNR-relative(d), doppler(Hz)}
	SNRMax       float64    // rover C/N0 reference for the SNR-relative variance term, in obs.Data.SNR's raw units
	RcvStdFactor float64    // "e" factor scaling the receiver-reported pseudorange-std variance term
	UseRAIM      bool
	ExcludeSats  map[int]bool // satellites forced out of the solution
}

// DefaultOptions returns the teacher's default single-point configuration:
// all systems, 5 degree elevation mask, GDOP ceiling of 30, broadcast
// ionosphere/Saastamoinen troposphere/broadcast ephemeris.
func DefaultOptions() Options {
	return Options{
		NavSys:       satid.SysAll,
		ElevMask:     5.0 * 3.14159265358979323846 / 180.0,
		MaxGDOP:      30.0,
		IonoOpt:      IonoBroadcast,
		TropoOpt:     TropoSaastamoinen,
		SatEph:       EphBroadcast,
		ErrFactors:   [5]float64{100, 0.003, 0.003, 0, 1},
		SNRMax:       0,
		RcvStdFactor: 0,
		UseRAIM:      true,
	}
}
