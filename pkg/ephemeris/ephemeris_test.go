package ephemeris

import (
	"math"
	"testing"

	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/satid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gpsEph() *Kepler {
	toe := gtime.GPST(2238, 518400.0)
	return &Kepler{
		Sat:  satid.SatNo(satid.SysGPS, 1),
		Toe:  toe,
		Toc:  toe,
		A:    26560000.0,
		E:    0.01,
		I0:   0.95,
		OMG0: 1.1,
		Omg:  0.3,
		M0:   0.2,
		Deln: 4.3e-9,
		OMGd: -8.0e-9,
		Idot: 1.0e-10,
		Sva:  2,
	}
}

func TestKeplerEvaluateConverges(t *testing.T) {
	e := gpsEph()
	res, ok := e.Evaluate(e.Toe.Add(3600))
	require.True(t, ok)
	r := math.Sqrt(res.Pos[0]*res.Pos[0] + res.Pos[1]*res.Pos[1] + res.Pos[2]*res.Pos[2])
	assert.InDelta(t, e.A, r, 2e5) // near-circular orbit, radius close to semi-major axis
}

func TestKeplerClockAtTocEqualsF0(t *testing.T) {
	e := gpsEph()
	e.F0, e.F1, e.F2 = 1e-5, 1e-12, 0
	assert.InDelta(t, e.F0, e.Clock(e.Toc), 1e-9)
}

func TestURAVarianceMonotonic(t *testing.T) {
	v0 := URAVariance(satid.SysGPS, 0)
	v1 := URAVariance(satid.SysGPS, 5)
	assert.Less(t, v0, v1)
}

func TestGalileoSISAScale(t *testing.T) {
	assert.InDelta(t, 0.25*0.25, URAVariance(satid.SysGAL, 25), 1e-9)
}

func TestGlonassOrbitIntegratesToNearbyState(t *testing.T) {
	toe := gtime.GPST(2238, 0)
	g := &Glonass{
		Sat:  satid.SatNo(satid.SysGLO, 1),
		Toe:  toe,
		Pos:  [3]float64{10000e3, 10000e3, 10000e3},
		Vel:  [3]float64{-1000, 2000, -1500},
	}
	res, ok := g.Evaluate(toe.Add(30))
	require.True(t, ok)
	assert.NotEqual(t, g.Pos, res.Pos)
}

func TestSBASQuadraticExtrapolation(t *testing.T) {
	t0 := gtime.GPST(2238, 0)
	s := &SBAS{Sat: satid.SatNo(satid.SysSBS, 120), T0: t0, Pos: [3]float64{1, 2, 3}, Vel: [3]float64{1, 0, 0}}
	res, _ := s.Evaluate(t0.Add(10))
	assert.InDelta(t, 11.0, res.Pos[0], 1e-9)
}

func TestSelectKeplerPrefersClosestToe(t *testing.T) {
	base := gtime.GPST(2238, 518400.0)
	near := &Kepler{Sat: 1, Toe: base}
	far := &Kepler{Sat: 1, Toe: base.Add(6000)}
	got := SelectKepler([]*Kepler{far, near}, base.Add(10), -1)
	assert.Same(t, near, got)
}

func TestSelEphRoundTrip(t *testing.T) {
	SetSelEph(satid.SysGAL, 1)
	assert.Equal(t, 1, GetSelEph(satid.SysGAL))
	SetSelEph(satid.SysGAL, 0)
}
