// Package gtime implements the dual-epoch GNSS time type and its
// conversions to/from calendar, GPS, Galileo, BeiDou and UTC time scales.
//
// Time is represented as an integer count of seconds since the Unix epoch
// (1970-01-01 UTC) plus a fractional residue, so that arithmetic on long
// spans of time never loses the sub-second precision that orbit
// propagation and carrier-phase processing need.
package gtime

import (
	"fmt"
	"math"
	"time"
)

// Time is a GNSS timestamp: an integer second count plus a fractional
// residue. Invariant: after any constructor or Add call, Frac lies in
// [0,1).
type Time struct {
	Sec  uint64  // whole seconds since 1970-01-01 00:00:00 UTC
	Frac float64 // fractional second residue, in [0,1)
}

var doy = [12]int{1, 32, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335}

var mday = [48]int{
	31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
	31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
	31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
	31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
}

// gpsEpoch, gstEpoch and bdtEpoch are the (Y,M,D,h,m,s) origins of the
// GPS, Galileo and BeiDou time scales, expressed in the same calendar
// representation Epoch accepts.
var (
	gpsEpoch = [6]float64{1980, 1, 6, 0, 0, 0}
	gstEpoch = [6]float64{1999, 8, 22, 0, 0, 0}
	bdtEpoch = [6]float64{2006, 1, 1, 0, 0, 0}
)

// Epoch converts a calendar date/time (year, month, day, hour, minute,
// second) to a Time. Returns the zero Time for year/month out of range.
func Epoch(ep [6]float64) Time {
	year, mon, day := int(ep[0]), int(ep[1]), int(ep[2])
	if year < 1970 || year > 2099 || mon < 1 || mon > 12 {
		return Time{}
	}
	var days int
	if year%4 == 0 && mon >= 3 {
		days = (year-1970)*365 + (year-1969)/4 + doy[mon-1] + day - 2 + 1
	} else {
		days = (year-1970)*365 + (year-1969)/4 + doy[mon-1] + day - 2
	}
	sec := int(math.Floor(ep[5]))
	return Time{
		Sec:  uint64(days*86400 + int(ep[3])*3600 + int(ep[4])*60 + sec),
		Frac: ep[5] - float64(sec),
	}
}

// Calendar is the inverse of Epoch: (year, month, day, hour, minute, second).
func (t Time) Calendar() [6]float64 {
	var ep [6]float64
	days := int(t.Sec / 86400)
	sec := int(t.Sec - uint64(days*86400))
	mon := 0
	day := days % 1461
	for ; mon < 48; mon++ {
		if day >= mday[mon] {
			day -= mday[mon]
		} else {
			break
		}
	}
	ep[0] = float64(1970 + days/1461*4 + mon/12)
	ep[1] = float64(mon%12 + 1)
	ep[2] = float64(day + 1)
	ep[3] = float64(sec / 3600)
	ep[4] = float64(sec % 3600 / 60)
	ep[5] = float64(sec%60) + t.Frac
	return ep
}

// Now returns the current wall-clock time as a Time.
func Now() Time {
	n := time.Now().UTC()
	return Epoch([6]float64{
		float64(n.Year()), float64(n.Month()), float64(n.Day()),
		float64(n.Hour()), float64(n.Minute()),
		float64(n.Second()) + float64(n.Nanosecond())/1e9,
	})
}

// Add returns t shifted by sec seconds, with Frac renormalized to [0,1).
func (t Time) Add(sec float64) Time {
	f := t.Frac + sec
	whole := math.Floor(f)
	t.Sec += uint64(int64(whole))
	t.Frac = f - whole
	return t
}

// Sub returns the signed difference t-u in seconds.
func (t Time) Sub(u Time) float64 {
	return float64(int64(t.Sec)-int64(u.Sec)) + t.Frac - u.Frac
}

// Before reports whether t occurs strictly before u.
func (t Time) Before(u Time) bool { return t.Sub(u) < 0 }

// IsZero reports whether t is the unset zero value.
func (t Time) IsZero() bool { return t.Sec == 0 && t.Frac == 0 }

// String renders t as "2006/01/02 15:04:05.000", i.e. Format(3).
func (t Time) String() string { return t.Format(3) }

// Format renders the calendar representation of t with n decimal digits
// of sub-second precision (n is clamped to [0,9]).
func (t Time) Format(n int) string {
	if n < 0 {
		n = 0
	} else if n > 9 {
		n = 9
	}
	tt := t
	if 1.0-tt.Frac < 0.5/math.Pow(10, float64(n)) {
		// round up into the next second before formatting, matching the
		// teacher's time_str() rounding behavior.
		tt = tt.Add(0.5)
		tt.Frac = 0
	}
	ep := tt.Calendar()
	if n == 0 {
		return fmt.Sprintf("%04.0f/%02.0f/%02.0f %02.0f:%02.0f:%02.0f",
			ep[0], ep[1], ep[2], ep[3], ep[4], ep[5])
	}
	return fmt.Sprintf("%04.0f/%02.0f/%02.0f %02.0f:%02.0f:%0*.*f",
		ep[0], ep[1], ep[2], ep[3], ep[4], n+3, n, ep[5])
}

// GPST constructs a Time from a GPS week number and time-of-week (s).
func GPST(week int, tow float64) Time {
	t := Epoch(gpsEpoch)
	if tow < -1e9 || tow > 1e9 {
		tow = 0
	}
	return Time{Sec: t.Sec + uint64(604800*week) + uint64(int64(tow)), Frac: tow - math.Trunc(tow)}
}

// ToGPST returns the GPS week number and time-of-week (s) for t.
func (t Time) ToGPST() (week int, tow float64) {
	t0 := Epoch(gpsEpoch)
	sec := int64(t.Sec) - int64(t0.Sec)
	w := int(sec / 604800)
	return w, float64(sec-int64(w)*604800) + t.Frac
}

// GST constructs a Time from a Galileo week number and time-of-week (s).
func GST(week int, tow float64) Time {
	t := Epoch(gstEpoch)
	if tow < -1e9 || tow > 1e9 {
		tow = 0
	}
	return Time{Sec: t.Sec + uint64(604800*week) + uint64(int64(tow)), Frac: tow - math.Trunc(tow)}
}

// BDT constructs a Time from a BeiDou week number and time-of-week (s).
func BDT(week int, tow float64) Time {
	t := Epoch(bdtEpoch)
	if tow < -1e9 || tow > 1e9 {
		tow = 0
	}
	return Time{Sec: t.Sec + uint64(604800*week) + uint64(int64(tow)), Frac: tow - math.Trunc(tow)}
}

// GPST2UTC converts GPS time to UTC, applying the leap-second table.
func GPST2UTC(t Time) Time {
	for _, l := range leapTable {
		lt := t.Add(l.offset)
		if lt.Sub(Epoch(l.epoch)) >= 0 {
			return lt
		}
	}
	return t
}

// UTC2GPST converts UTC to GPS time, applying the leap-second table.
func UTC2GPST(t Time) Time {
	for _, l := range leapTable {
		if t.Sub(Epoch(l.epoch)) >= 0 {
			return t.Add(-l.offset)
		}
	}
	return t
}

// GPST2BDT converts GPS time to BeiDou time (no leap seconds; constant
// 14s offset since 2006-01-01 when both scales coincided with UTC).
func GPST2BDT(t Time) Time { return t.Add(-14.0) }

// BDT2GPST converts BeiDou time to GPS time.
func BDT2GPST(t Time) Time { return t.Add(14.0) }

// AdjGPSWeek resolves a truncated (8 or 10-bit) GPS week number to the
// full week number closest to the current system time, per spec.md
// §4.1's adjgpsweek design: a receiver that only transmits a truncated
// week must have its value disambiguated against a known-good local
// clock, never against a baked-in constant that ages with the binary.
func AdjGPSWeek(week int) int {
	w, _ := UTC2GPST(Now()).ToGPST()
	if w < 1560 {
		w = 1560 // earliest supported reference: 2009-12-01
	}
	period := 1024
	if week < 256 {
		period = 256
	}
	return week + (w-week+period/2)/period*period
}
