package nmea

import (
	"math"
	"strconv"
	"strings"

	"github.com/skybeacon/gnssgo/pkg/geodesy"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/obs"
)

// IsNMEA reports whether buff opens a recognized NMEA talker header
// ($xx...), without validating checksum or sentence body.
func IsNMEA(buff []byte) bool {
	if len(buff) < 6 || buff[0] != '$' {
		return false
	}
	switch string(buff[1:3]) {
	case "GP", "GA", "GL", "GN", "GB", "GQ", "GI", "BD", "QZ":
		return true
	}
	return false
}

func dmm2deg(dmm float64) float64 {
	return math.Floor(dmm/100.0) + math.Mod(dmm, 100.0)/60.0
}

func septime(t float64) (h, m, s float64) {
	h = math.Floor(t / 10000.0)
	t -= h * 10000.0
	m = math.Floor(t / 100.0)
	s = t - m*100.0
	return h, m, s
}

// DecodeRMC parses the fields of a $--RMC sentence (excluding the "$ttRMC"
// header token) into sol, returning false if the sentence is malformed.
// On success it sets sol.Time, sol.Rr[:3] and sol.Stat.
func DecodeRMC(fields []string, sol *obs.Sol) bool {
	var tod, lat, lon, date float64
	act, ns, ew, mode := " ", "N", "E", "A"
	for i, v := range fields {
		switch i {
		case 0:
			tod, _ = strconv.ParseFloat(v, 64)
		case 1:
			act = v
		case 2:
			lat, _ = strconv.ParseFloat(v, 64)
		case 3:
			ns = v
		case 4:
			lon, _ = strconv.ParseFloat(v, 64)
		case 5:
			ew = v
		case 8:
			date, _ = strconv.ParseFloat(v, 64)
		case 11:
			mode = v
		}
	}
	if (act != "A" && act != "V") || (ns != "N" && ns != "S") || (ew != "E" && ew != "W") {
		return false
	}
	var pos [3]float64
	pos[0] = dmm2deg(lat) * math.Pi / 180
	if ns == "S" {
		pos[0] = -pos[0]
	}
	pos[1] = dmm2deg(lon) * math.Pi / 180
	if ew == "W" {
		pos[1] = -pos[1]
	}
	var ep [6]float64
	ep[2], ep[1], ep[0] = septime(date)
	ep[3], ep[4], ep[5] = septime(tod)
	if ep[0] < 80 {
		ep[0] += 2000
	} else {
		ep[0] += 1900
	}
	sol.Time = gtime.UTC2GPST(gtime.Epoch(ep))
	rr := geodesy.Geodetic2ECEF(pos)
	copy(sol.Rr[:3], rr[:])
	sol.Stat = obs.QualitySingle
	if mode == "D" {
		sol.Stat = obs.QualityDGPS
	}
	sol.Ns = 0
	return true
}

// DecodeZDA parses a $--ZDA sentence's date/time fields into sol.Time.
func DecodeZDA(fields []string, sol *obs.Sol) bool {
	var ep [6]float64
	for i, v := range fields {
		switch i {
		case 0:
			tod, _ := strconv.ParseFloat(v, 64)
			ep[3], ep[4], ep[5] = septime(tod)
		case 1:
			ep[2], _ = strconv.ParseFloat(v, 64)
		case 2:
			ep[1], _ = strconv.ParseFloat(v, 64)
		case 3:
			ep[0], _ = strconv.ParseFloat(v, 64)
		}
	}
	sol.Time = gtime.UTC2GPST(gtime.Epoch(ep))
	sol.Ns = 0
	return true
}

// gpsQualityTable mirrors FormatGGA's nmeaSolQ: NMEA GGA quality index to
// internal Quality.
var gpsQualityTable = [...]obs.Quality{
	obs.QualityNone, obs.QualitySingle, obs.QualityDGPS, obs.QualityPPP,
	obs.QualityFix, obs.QualityFloat, obs.QualityDR, obs.QualityPPP, obs.QualityPPP,
}

// DecodeGGA parses a $--GGA sentence into sol. sol.Time must already carry
// the correct calendar date (e.g. from a prior RMC/ZDA) since GGA only
// reports time-of-day; the date is rolled across midnight if the
// time-of-day implies a day boundary crossing.
func DecodeGGA(fields []string, sol *obs.Sol) bool {
	var tod, lat, lon, hdop, alt, msl, age float64
	ns, ew := "N", "E"
	solq, nrcv := 0, 0
	for i, v := range fields {
		switch i {
		case 0:
			tod, _ = strconv.ParseFloat(v, 64)
		case 1:
			lat, _ = strconv.ParseFloat(v, 64)
		case 2:
			ns = v
		case 3:
			lon, _ = strconv.ParseFloat(v, 64)
		case 4:
			ew = v
		case 5:
			n, _ := strconv.Atoi(v)
			solq = n
		case 6:
			n, _ := strconv.Atoi(v)
			nrcv = n
		case 7:
			hdop, _ = strconv.ParseFloat(v, 64)
		case 8:
			alt, _ = strconv.ParseFloat(v, 64)
		case 10:
			msl, _ = strconv.ParseFloat(v, 64)
		case 12:
			age, _ = strconv.ParseFloat(v, 64)
		}
	}
	_ = hdop
	if (ns != "N" && ns != "S") || (ew != "E" && ew != "W") {
		return false
	}
	if sol.Time.IsZero() {
		return false
	}
	var pos [3]float64
	pos[0] = dmm2deg(lat) * math.Pi / 180
	if ns == "S" {
		pos[0] = -pos[0]
	}
	pos[1] = dmm2deg(lon) * math.Pi / 180
	if ew == "W" {
		pos[1] = -pos[1]
	}
	pos[2] = alt + msl

	ep := sol.Time.Calendar()
	ep[3], ep[4], ep[5] = septime(tod)
	t := gtime.UTC2GPST(gtime.Epoch(ep))
	switch dt := t.Sub(sol.Time); {
	case dt < -43200:
		sol.Time = t.Add(86400)
	case dt > 43200:
		sol.Time = t.Add(-86400)
	default:
		sol.Time = t
	}
	rr := geodesy.Geodetic2ECEF(pos)
	copy(sol.Rr[:3], rr[:])
	q := obs.QualityNone
	if solq >= 0 && solq < len(gpsQualityTable) {
		q = gpsQualityTable[solq]
	}
	sol.Stat = q
	sol.Ns = uint8(nrcv)
	sol.Age = float32(age)
	return true
}

// Decode dispatches a raw NMEA sentence (as read off the wire, trailing
// checksum and CRLF included or not) to the matching RMC/ZDA/GGA decoder,
// updating sol in place. Returns false for unrecognized or malformed
// sentences.
func Decode(line string, sol *obs.Sol) bool {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == '*' })
	if len(fields) < 1 || len(fields[0]) < 6 {
		return false
	}
	kind := fields[0][3:6]
	switch kind {
	case "RMC":
		return DecodeRMC(fields[1:], sol)
	case "ZDA":
		return DecodeZDA(fields[1:], sol)
	case "GGA":
		return DecodeGGA(fields[1:], sol)
	}
	return false
}
