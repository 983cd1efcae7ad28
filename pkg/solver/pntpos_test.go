package solver

import (
	"math"
	"testing"

	"github.com/skybeacon/gnssgo/pkg/satid"
	"github.com/stretchr/testify/assert"
)

func TestVarianceErrBaseTermsOnly(t *testing.T) {
	opt := DefaultOptions()
	el := 45.0 * math.Pi / 180.0

	got := varianceErr(&opt, el, 0, 0, satid.SysGPS)
	want := sqr(opt.ErrFactors[0]) * (sqr(opt.ErrFactors[1]) + sqr(opt.ErrFactors[2])/math.Sin(el))

	assert.InDelta(t, want, got, 1e-12)
}

func TestVarianceErrAddsSNRTerm(t *testing.T) {
	opt := DefaultOptions()
	opt.ErrFactors[3] = 0.5
	opt.SNRMax = 50
	el := 45.0 * math.Pi / 180.0

	base := varianceErr(&opt, el, 0, 0, satid.SysGPS) // snr<=0 leaves the term inert
	withGoodSNR := varianceErr(&opt, el, 50, 0, satid.SysGPS)
	withWeakSNR := varianceErr(&opt, el, 30, 0, satid.SysGPS)

	assert.InDelta(t, base+sqr(opt.ErrFactors[3]), withGoodSNR, 1e-9, "snr at the reference level adds d squared")
	assert.Greater(t, withWeakSNR, withGoodSNR, "a weaker rover SNR must inflate the variance")
}

func TestVarianceErrAddsReceiverStdTerm(t *testing.T) {
	opt := DefaultOptions()
	opt.RcvStdFactor = 1.0
	el := 45.0 * math.Pi / 180.0

	base := varianceErr(&opt, el, 0, 0, satid.SysGPS)
	withStd := varianceErr(&opt, el, 0, 2.0, satid.SysGPS)

	assert.Greater(t, withStd, base, "a reported receiver std must inflate the variance")
}

func TestVarianceErrIgnoresStdTermWhenFactorZero(t *testing.T) {
	opt := DefaultOptions() // RcvStdFactor defaults to 0: no decoder in this module reports Pstd
	el := 45.0 * math.Pi / 180.0

	base := varianceErr(&opt, el, 0, 0, satid.SysGPS)
	withStd := varianceErr(&opt, el, 0, 2.0, satid.SysGPS)

	assert.InDelta(t, base, withStd, 1e-12)
}

func TestVarianceErrScalesBySystemAndIono(t *testing.T) {
	opt := DefaultOptions()
	el := 45.0 * math.Pi / 180.0

	gps := varianceErr(&opt, el, 0, 0, satid.SysGPS)
	glo := varianceErr(&opt, el, 0, 0, satid.SysGLO)
	sbs := varianceErr(&opt, el, 0, 0, satid.SysSBS)
	assert.InDelta(t, gps*sqr(1.5), glo, 1e-9)
	assert.InDelta(t, gps*sqr(3.0), sbs, 1e-9)

	opt.IonoOpt = IonoIFLC
	iflc := varianceErr(&opt, el, 0, 0, satid.SysGPS)
	assert.InDelta(t, gps*9.0, iflc, 1e-9)
}
