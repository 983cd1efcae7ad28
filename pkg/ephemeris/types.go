package ephemeris

import "github.com/skybeacon/gnssgo/pkg/gtime"

// Kepler is a broadcast Keplerian ephemeris record (GPS/Galileo/QZSS/BDS
// MEO-IGSO/BDS-3 CNAV), laid out the way RINEX navigation files and
// RTCM3 orbit messages deliver it.
type Kepler struct {
	Sat     int
	Iode    int
	Iodc    int
	Sva     int    // URA index (GPS) or SISA index (Galileo)
	Svh     int    // SV health
	Code    uint32 // signal/data source flags (BDS-3 A0/Adot selector)
	Flag    int    // 1:IGSO/MEO, 2:GEO (BDS-3 CNAV only)
	Toe     gtime.Time
	Toc     gtime.Time
	Ttr     gtime.Time
	A, E, I0, OMG0, Omg, M0, Deln, OMGd, Idot float64
	Crc, Crs, Cuc, Cus, Cic, Cis              float64
	Toes                                      float64 // toe in week seconds
	Adot, Ndot                                float64 // BDS-3 CNAV
	F0, F1, F2                                float64
	Tgd                                       [6]float64
}

// Glonass is a broadcast GLONASS ephemeris (position/velocity/acceleration
// state vector integrated by RK4 rather than Keplerian elements).
type Glonass struct {
	Sat        int
	Iode       int
	Svh, Frq   int
	Toe        gtime.Time
	Pos, Vel, Acc [3]float64
	Taun, Gamn    float64
	DTaun         float64
}

// SBAS is a broadcast SBAS/GAGAN/EGNOS ephemeris: a short-span polynomial
// state vector, not RK4-integrated.
type SBAS struct {
	Sat          int
	Sva, Svh     int
	T0           gtime.Time
	Pos, Vel, Acc [3]float64
	Af0, Af1      float64
}

// Result is the evaluated state any ephemeris kind produces: ECEF
// position/velocity, clock bias, and the position+clock variance used to
// weight the observation in the point-positioning solver.
type Result struct {
	Pos [3]float64
	Vel [3]float64
	Dts float64 // clock bias (s)
	Var float64 // position+clock variance (m^2)
}
