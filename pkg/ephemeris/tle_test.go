package ephemeris

import (
	"math"
	"testing"

	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/stretchr/testify/assert"
)

// Spacetrack Report #3 (Hoots & Roehrich 1980) §11 canonical SGP4 test
// vector, reused by the teacher's TestData (data/tle/tle_sgp4.txt).
const (
	tleLine1 = "1 88888U          80275.98708465  .00073094  13844-3  66816-4 0    8"
	tleLine2 = "2 88888  72.8435 115.9689 0086731  52.6508 110.5714 16.05824518  105"
)

func TestParseLinesSGP4Vector(t *testing.T) {
	a := assert.New(t)
	tle, ok := ParseLines(tleLine1, tleLine2)
	a.True(ok)
	a.Equal("88888", tle.SatNo)
	a.InDelta(72.8435, tle.Inc, 1e-4)
	a.InDelta(115.9689, tle.OMG, 1e-4)
	a.InDelta(0.0086731, tle.Ecc, 1e-7)
	a.InDelta(52.6508, tle.Omg, 1e-4)
	a.InDelta(110.5714, tle.M, 1e-4)
	a.InDelta(16.05824518, tle.N, 1e-6)
}

func TestTLEEvaluateOrbitRadius(t *testing.T) {
	a := assert.New(t)
	tle, ok := ParseLines(tleLine1, tleLine2)
	a.True(ok)

	r, ok := tle.Evaluate(gtime.UTC2GPST(tle.Epoch))
	a.True(ok)

	radius := math.Sqrt(r.Pos[0]*r.Pos[0] + r.Pos[1]*r.Pos[1] + r.Pos[2]*r.Pos[2])
	// mean motion ~16 rev/day implies a low earth orbit, a few hundred km
	// altitude; the evaluated ECEF radius must sit within a generous LEO band.
	a.Greater(radius, 6.6e6)
	a.Less(radius, 7.6e6)

	speed := math.Sqrt(r.Vel[0]*r.Vel[0] + r.Vel[1]*r.Vel[1] + r.Vel[2]*r.Vel[2])
	a.Greater(speed, 6000.0)
	a.Less(speed, 9000.0)
}

func TestParseLinesRejectsMalformed(t *testing.T) {
	a := assert.New(t)
	_, ok := ParseLines("garbage", "also garbage")
	a.False(ok)
}
