package nmea

import (
	"strings"
	"testing"

	"github.com/skybeacon/gnssgo/pkg/geodesy"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/obs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixSol() obs.Sol {
	pos := [3]float64{37.5 * 3.14159265358979 / 180, -122.3 * 3.14159265358979 / 180, 30}
	rr := geodesy.Geodetic2ECEF(pos)
	var sol obs.Sol
	copy(sol.Rr[:3], rr[:])
	sol.Time = gtime.GPST(2238, 100000)
	sol.Stat = obs.QualitySingle
	sol.Ns = 9
	return sol
}

func TestFormatRMCChecksumAndTalker(t *testing.T) {
	sol := fixSol()
	s, _ := FormatRMC(sol, "", 0)
	assert.True(t, strings.HasPrefix(s, "$GNRMC,"))
	assert.Contains(t, s, "*")
	assert.True(t, strings.HasSuffix(s, "\r\n"))
}

func TestFormatRMCNoFixIsEmptyFields(t *testing.T) {
	var sol obs.Sol
	s, _ := FormatRMC(sol, "GP", 0)
	assert.True(t, strings.HasPrefix(s, "$GPRMC,,,,,,,,,,,,,*"))
}

func TestFormatGGAEncodesQualityAndCount(t *testing.T) {
	sol := fixSol()
	s := FormatGGA(sol, "GP", 1.2, 0)
	fields := strings.Split(strings.TrimRight(s, "\r\n"), ",")
	require.True(t, len(fields) > 6)
	assert.Equal(t, "1", fields[6]) // SOLQ_SINGLE -> nmea quality 1
	assert.Equal(t, "09", fields[7])
}

func TestDecodeRMCRoundTrip(t *testing.T) {
	sol := fixSol()
	s, _ := FormatRMC(sol, "GP", 0)
	var got obs.Sol
	ok := Decode(s, &got)
	require.True(t, ok)
	// RMC carries no height, so the decoded fix lies on the ellipsoid.
	want := geodesy.ECEF2Geodetic([3]float64{sol.Rr[0], sol.Rr[1], sol.Rr[2]})
	want[2] = 0
	wr := geodesy.Geodetic2ECEF(want)
	assert.InDelta(t, wr[0], got.Rr[0], 1.0)
	assert.InDelta(t, wr[1], got.Rr[1], 1.0)
}

func TestDecodeGGARequiresPriorDate(t *testing.T) {
	var sol obs.Sol
	ok := Decode("$GPGGA,120000.00,3730.0000,N,12218.0000,W,1,09,1.0,30.0,M,0.0,M,,*00", &sol)
	assert.False(t, ok)
}

func TestDecodeRejectsUnknownSentence(t *testing.T) {
	var sol obs.Sol
	assert.False(t, Decode("$GPXXX,1,2,3*00", &sol))
}

func TestIsNMEARecognizesTalkers(t *testing.T) {
	assert.True(t, IsNMEA([]byte("$GNRMC,....")))
	assert.True(t, IsNMEA([]byte("$GPGGA,....")))
	assert.False(t, IsNMEA([]byte("not nmea")))
}

func TestFormatGSAGroupsBySystem(t *testing.T) {
	sats := []SatView{
		{Sat: 1, Azel: [2]float64{0.1, 0.9}, Used: true},
		{Sat: 2, Azel: [2]float64{0.5, 0.7}, Used: true},
		{Sat: 3, Azel: [2]float64{1.0, 0.8}, Used: true},
		{Sat: 4, Azel: [2]float64{1.5, 1.1}, Used: true},
	}
	out := FormatGSA(sats, true)
	require.NotEmpty(t, out)
	assert.Contains(t, out[0], "GSA,A,3")
}

func TestFormatGSVChunksByFour(t *testing.T) {
	var sats []SatView
	for i := 1; i <= 6; i++ {
		sats = append(sats, SatView{Sat: i, Azel: [2]float64{0.1 * float64(i), 0.3}, SNR: 40})
	}
	out := FormatGSV(sats)
	require.NotEmpty(t, out)
	assert.Contains(t, out[0], ",2,1,06")
}
