package geodesy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestECEFGeodeticRoundTrip(t *testing.T) {
	pos := [3]float64{35.0 * math.Pi / 180, 139.0 * math.Pi / 180, 100.0}
	r := Geodetic2ECEF(pos)
	back := ECEF2Geodetic(r)
	assert.InDelta(t, pos[0], back[0], 1e-10)
	assert.InDelta(t, pos[1], back[1], 1e-10)
	assert.InDelta(t, pos[2], back[2], 1e-6)
}

func TestENURoundTrip(t *testing.T) {
	pos := [3]float64{35.0 * math.Pi / 180, 139.0 * math.Pi / 180, 0}
	r := [3]float64{100, -50, 20}
	enu := ECEF2ENU(pos, r)
	back := ENU2ECEF(pos, enu)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, r[i], back[i], 1e-9)
	}
}

func TestGeoDistZenith(t *testing.T) {
	rr := Geodetic2ECEF([3]float64{0, 0, 0})
	rs := Geodetic2ECEF([3]float64{0, 0, 20200e3})
	dist, los := GeoDist(rs, rr)
	assert.InDelta(t, 20200e3, dist, 10.0)
	// line of sight should point mostly up (radially outward) at this point.
	assert.Greater(t, los[0], 0.9)
}

func TestSatAzElZenith(t *testing.T) {
	pos := [3]float64{0, 0, 0}
	rr := Geodetic2ECEF(pos)
	rs := Geodetic2ECEF([3]float64{0, 0, 20200e3})
	_, los := GeoDist(rs, rr)
	_, el := SatAzEl(pos, los)
	assert.InDelta(t, math.Pi/2, el, 1e-6)
}

func TestDOPBelowMinReturnsZero(t *testing.T) {
	dop := DOP([][2]float64{{0, 1.0}, {1, 1.0}}, 0.1)
	assert.Equal(t, [4]float64{}, dop)
}
