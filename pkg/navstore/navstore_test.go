package navstore

import (
	"testing"

	"github.com/skybeacon/gnssgo/pkg/ephemeris"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/satid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutKeplerSkipsDuplicateIode(t *testing.T) {
	s := New()
	sat := satid.SatNo(satid.SysGPS, 1)
	toe := gtime.GPST(2238, 0)
	s.PutKepler(&ephemeris.Kepler{Sat: sat, Iode: 5, Toe: toe}, false)
	s.PutKepler(&ephemeris.Kepler{Sat: sat, Iode: 5, Toe: toe}, false)
	assert.Len(t, s.KeplerCandidates(sat), 1)
}

func TestPutKeplerForceAlwaysAppends(t *testing.T) {
	s := New()
	sat := satid.SatNo(satid.SysGPS, 1)
	toe := gtime.GPST(2238, 0)
	s.PutKepler(&ephemeris.Kepler{Sat: sat, Iode: 5, Toe: toe}, true)
	s.PutKepler(&ephemeris.Kepler{Sat: sat, Iode: 5, Toe: toe}, true)
	assert.Len(t, s.KeplerCandidates(sat), 2)
}

func TestCodeBiasRoundTrip(t *testing.T) {
	s := New()
	s.SetCodeBias(5, 1, 1.25)
	assert.InDelta(t, 1.25, s.CodeBias(5, 1), 1e-6)
	assert.Zero(t, s.CodeBias(5, 2))
}

func TestSSRAgeValid(t *testing.T) {
	t0 := gtime.GPST(2238, 0)
	ssr := &SSR{T0Orbit: t0, T0Clk: t0, T0HRClk: t0}
	orbit, clk, hr := ssr.AgeValid(t0.Add(95))
	assert.False(t, orbit)
	assert.False(t, clk)
	assert.False(t, hr)
	orbit, clk, hr = ssr.AgeValid(t0.Add(5))
	require.True(t, orbit)
	assert.True(t, clk)
	assert.True(t, hr)
}

func TestKlobucharRoundTrip(t *testing.T) {
	s := New()
	ion := [8]float64{1, 2, 3, 4, 5, 6, 7, 8}
	s.SetIonUTC(satid.SysGPS, ion, [8]float64{})
	assert.Equal(t, ion, s.Klobuchar(satid.SysGPS))
}
