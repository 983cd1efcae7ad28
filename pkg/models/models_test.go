package models

import (
	"math"
	"testing"

	"github.com/skybeacon/gnssgo/pkg/satid"
	"github.com/stretchr/testify/assert"
)

func TestIonModelZeroBelowHorizon(t *testing.T) {
	d := IonModel(0, [8]float64{}, [2]float64{0.6, 2.4}, [2]float64{0, 0}, 0)
	assert.Zero(t, d)
}

func TestIonModelPositiveAtZenith(t *testing.T) {
	d := IonModel(43200, KlobucharDefault, [2]float64{0.6, 2.4}, [2]float64{0, math.Pi / 2}, 0)
	assert.Greater(t, d, 0.0)
}

func TestTropModelZeroAtHorizon(t *testing.T) {
	d := TropModel([2]float64{0.6, 2.4}, [2]float64{0, 0}, 100, 0.7)
	assert.Zero(t, d)
}

func TestTropModelPositiveAtZenith(t *testing.T) {
	d := TropModel([2]float64{0.6, 2.4}, [2]float64{0, math.Pi / 2}, 100, 0.7)
	assert.Greater(t, d, 2.0)
}

func TestIonoFreeComboGPS(t *testing.T) {
	gamma := sqr(freq1 / freq2)
	p1, p2 := 100.0, 100.0+5.0
	pIF, ok := IonoFreeCombo(satid.SysGPS, p1, p2, 0, 0, func(int) float64 { return 0 }, false)
	assert.True(t, ok)
	want := (p2 - gamma*p1) / (1.0 - gamma)
	assert.InDelta(t, want, pIF, 1e-9)
}

func TestSingleFreqCorrectedAppliesTgd(t *testing.T) {
	p, vari := SingleFreqCorrected(satid.SysGPS, 100.0, 0, func(int) float64 { return 2.0 }, false)
	assert.InDelta(t, 98.0, p, 1e-9)
	assert.InDelta(t, ErrCBias*ErrCBias, vari, 1e-9)
}
