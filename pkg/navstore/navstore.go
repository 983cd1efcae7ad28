// Package navstore implements the navigation-data store: per-satellite
// broadcast ephemeris history, GLONASS/SBAS ephemerides, Klobuchar and
// UTC parameter vectors, DGPS corrections, the SSR correction table and
// per-satellite code-bias table. Decoders append ephemerides to the
// per-satellite history (skipping duplicates); the solver only reads.
package navstore

import (
	"sync"

	"github.com/skybeacon/gnssgo/pkg/ephemeris"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

// SSR is a per-satellite State Space Representation correction record:
// orbit delta/drift in radial-along-cross, clock polynomial, code bias
// table, and the IOD/epoch bookkeeping the evaluator enforces
// consistency over, ref RTCM Paper 012-2009-SC104-582 and successors.
type SSR struct {
	T0Orbit, T0Clk, T0HRClk gtime.Time
	IODOrbit, IODClk        int
	URA                     int
	Deph                    [3]float64 // radial/along/cross orbit correction (m)
	DDeph                   [3]float64 // orbit correction rate (m/s)
	Dclk                    [3]float64 // c0,c1,c2 clock polynomial (m, m/s, m/s^2)
	HRClk                   float64    // high-rate clock correction (m)
	CBias                   map[uint8]float32
}

// AgeValid reports whether the orbit/clock/high-rate-clock components of
// ssr are still within their respective max-age windows at t, per
// spec.md §4.3's 90s/90s/10s limits.
func (s *SSR) AgeValid(t gtime.Time) (orbit, clk, hrclk bool) {
	return t.Sub(s.T0Orbit) <= 90.0, t.Sub(s.T0Clk) <= 90.0, t.Sub(s.T0HRClk) <= 10.0
}

// satSlot holds the broadcast Keplerian ephemeris history kept for one
// satellite, records of every data source (e.g. LNAV/CNAV, I/NAV/F/NAV)
// in one list.
type satSlot struct {
	eph []*ephemeris.Kepler
}

// Store is the navigation-data store. Zero value is ready to use.
type Store struct {
	mu sync.RWMutex

	eph   [satid.MaxSat + 1]satSlot
	glo   map[int][]*ephemeris.Glonass
	sbas  map[int][]*ephemeris.SBAS
	ssr   map[int]*SSR
	tle   map[int]*ephemeris.TLE // sat -> two-line element, fallback source
	cbias map[int]map[uint8]float32 // sat -> code -> bias (m)
	gloFCN map[int]int             // slot -> frequency channel number

	ionGPS  [8]float64 // Klobuchar alpha(4)+beta(4)
	ionGAL  [4]float64
	ionQZS  [8]float64
	ionBDS  [8]float64
	ionIRN  [8]float64
	utcGPS  [4]float64
	utcGAL  [4]float64
	utcQZS  [4]float64
	utcBDS  [4]float64
	utcIRN  [4]float64
	leapsec float64
}

// New returns an empty navigation store.
func New() *Store {
	return &Store{
		glo:    make(map[int][]*ephemeris.Glonass),
		sbas:   make(map[int][]*ephemeris.SBAS),
		ssr:    make(map[int]*SSR),
		tle:    make(map[int]*ephemeris.TLE),
		cbias:  make(map[int]map[uint8]float32),
		gloFCN: make(map[int]int),
	}
}

// PutTLE installs the current two-line element set for sat, overwriting
// any previous set. TLE is the fallback ephemeris source of spec.md §2/
// SPEC_FULL.md §4.10, used for satellites (e.g. experimental payloads)
// that never broadcast a navigation message the decoders understand.
func (s *Store) PutTLE(sat int, tle *ephemeris.TLE) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tle[sat] = tle
}

// TLE returns the current two-line element set for sat, or nil if none.
func (s *Store) TLE(sat int) *ephemeris.TLE {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tle[sat]
}

// PutKepler appends a broadcast Keplerian ephemeris to the satellite's
// history. The append is unconditional when force is true (the "-EPHALL"
// option); otherwise it is skipped when an existing record has both the
// same Iode and the same Toe as e.
func (s *Store) PutKepler(e *ephemeris.Kepler, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := &s.eph[e.Sat]
	if !force {
		for _, ex := range slot.eph {
			if ex.Iode == e.Iode && ex.Toe == e.Toe {
				return
			}
		}
	}
	slot.eph = append(slot.eph, e)
}

// KeplerCandidates returns every stored Keplerian ephemeris for sat, for
// the selector to filter.
func (s *Store) KeplerCandidates(sat int) []*ephemeris.Kepler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sat <= 0 || sat >= len(s.eph) {
		return nil
	}
	out := make([]*ephemeris.Kepler, len(s.eph[sat].eph))
	copy(out, s.eph[sat].eph)
	return out
}

// PutGlonass appends a GLONASS ephemeris to its slot's history; unless
// force is true, it is skipped when a stored record has the same Iode.
func (s *Store) PutGlonass(g *ephemeris.Glonass, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force {
		for _, ex := range s.glo[g.Sat] {
			if ex.Iode == g.Iode {
				return
			}
		}
	}
	s.glo[g.Sat] = append(s.glo[g.Sat], g)
}

// GlonassCandidates returns every stored GLONASS ephemeris for sat.
func (s *Store) GlonassCandidates(sat int) []*ephemeris.Glonass {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*ephemeris.Glonass(nil), s.glo[sat]...)
}

// PutSBAS inserts an SBAS ephemeris.
func (s *Store) PutSBAS(e *ephemeris.SBAS) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sbas[e.Sat] = append(s.sbas[e.Sat], e)
}

// SBASCandidates returns every stored SBAS ephemeris for sat.
func (s *Store) SBASCandidates(sat int) []*ephemeris.SBAS {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*ephemeris.SBAS(nil), s.sbas[sat]...)
}

// PutSSR installs the current SSR correction for sat, overwriting any
// previous record — the solver always reads the latest.
func (s *Store) PutSSR(sat int, ssr *SSR) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ssr[sat] = ssr
}

// SSR returns the current SSR correction for sat, or nil if none.
func (s *Store) SSR(sat int) *SSR {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ssr[sat]
}

// SetCodeBias records a per-satellite, per-code bias (m), e.g. a P1-C1 or
// P2-C2 DCB.
func (s *Store) SetCodeBias(sat int, code uint8, bias float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.cbias[sat]
	if m == nil {
		m = make(map[uint8]float32)
		s.cbias[sat] = m
	}
	m[code] = bias
}

// CodeBias returns the recorded bias (m) for (sat, code), or 0.
func (s *Store) CodeBias(sat int, code uint8) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(s.cbias[sat][code])
}

// SetGloFCN records the frequency-channel number (-7..+6) for a GLONASS
// slot, decoded out-of-band from the almanac/string-4 message.
func (s *Store) SetGloFCN(slot, fcn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gloFCN[slot] = fcn
}

// GloFCN returns the frequency-channel number recorded for slot, or 0.
func (s *Store) GloFCN(slot int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gloFCN[slot]
}

// SetIonUTC installs the Klobuchar ionosphere and UTC parameter vectors
// decoded for a navigation system (GPS LNAV subframe 4/5, Galileo I/NAV
// word type 5, BDS D1 subframe 5, ...).
func (s *Store) SetIonUTC(sys satid.System, ion, utc [8]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch sys {
	case satid.SysGPS:
		s.ionGPS = ion
		copy(s.utcGPS[:], utc[:4])
	case satid.SysGAL:
		copy(s.ionGAL[:], ion[:4])
		copy(s.utcGAL[:], utc[:4])
	case satid.SysQZS:
		s.ionQZS = ion
		copy(s.utcQZS[:], utc[:4])
	case satid.SysBDS:
		s.ionBDS = ion
		copy(s.utcBDS[:], utc[:4])
	case satid.SysIRN:
		s.ionIRN = ion
		copy(s.utcIRN[:], utc[:4])
	}
}

// Klobuchar returns the alpha/beta ionosphere coefficients currently
// stored for sys.
func (s *Store) Klobuchar(sys satid.System) [8]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch sys {
	case satid.SysGPS:
		return s.ionGPS
	case satid.SysQZS:
		return s.ionQZS
	case satid.SysBDS:
		return s.ionBDS
	case satid.SysIRN:
		return s.ionIRN
	}
	return [8]float64{}
}
