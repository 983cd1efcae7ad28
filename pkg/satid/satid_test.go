package satid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSatNoRoundTrip(t *testing.T) {
	cases := []struct {
		sys System
		prn int
	}{
		{SysGPS, 5}, {SysGLO, 1}, {SysGAL, 36}, {SysQZS, 195}, {SysBDS, 63}, {SysIRN, 7}, {SysSBS, 120},
	}
	for _, c := range cases {
		sat := SatNo(c.sys, c.prn)
		assert.NotZero(t, sat)
		sys, prn := SatSys(sat)
		assert.Equal(t, c.sys, sys)
		assert.Equal(t, c.prn, prn)
	}
}

func TestSatNoOutOfRange(t *testing.T) {
	assert.Zero(t, SatNo(SysGPS, 99))
	assert.Zero(t, SatNo(SysGPS, 0))
}

func TestSatID2NoAndBack(t *testing.T) {
	sat := SatID2No("G05")
	assert.Equal(t, SatNo(SysGPS, 5), sat)
	assert.Equal(t, "G05", SatNo2ID(sat))

	sat = SatID2No("R12")
	assert.Equal(t, "R12", SatNo2ID(sat))

	assert.Zero(t, SatID2No("?"))
}

func TestObsCodeRoundTrip(t *testing.T) {
	code := Obs2Code("2W")
	assert.NotEqual(t, uint8(CodeNone), code)
	assert.Equal(t, "2W", Code2Obs(code))
	assert.Equal(t, uint8(CodeNone), Obs2Code("nope"))
}

func TestMaxSatMatchesTeacherConstant(t *testing.T) {
	assert.Equal(t, 231, MaxSat)
}
