package ubx

import (
	"testing"

	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/skybeacon/gnssgo/pkg/satid"
	"github.com/stretchr/testify/assert"
)

func feedAll(d *Decoder, frame []byte) decode.Status {
	var last decode.Status
	for _, b := range frame {
		if st := d.FeedByte(b); st != decode.StatusNone {
			last = st
		}
	}
	return last
}

func TestDecoderDecodesRAWXFrame(t *testing.T) {
	frame := GenRAWX(2200, 345600.0, []float64{2.1e7, 2.2e7}, []float64{1.1e8, 1.2e8}, []float64{100, -200}, []int{0, 2}, []int{5, 12})

	d := New(nil, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusObs, st)
	assert.Equal(t, 2, d.Batch.N)
	assert.InDelta(t, 2.1e7, d.Batch.Data[0].P[0], 1e-6)
	assert.InDelta(t, 1.1e8, d.Batch.Data[0].L[0], 1e-6)
	assert.InDelta(t, 100, d.Batch.Data[0].D[0], 1e-6)
}

func TestDecoderRejectsBadChecksum(t *testing.T) {
	frame := GenRAWX(2200, 345600.0, []float64{2.1e7}, []float64{1.1e8}, []float64{50}, []int{0}, []int{5})
	frame[len(frame)-1] ^= 0xFF

	d := New(nil, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusError, st)
	assert.Equal(t, 0, d.Batch.N)
}

func TestDecoderIgnoresLeadingNoise(t *testing.T) {
	frame := GenRAWX(2200, 345600.0, []float64{2.1e7}, []float64{1.1e8}, []float64{50}, []int{0}, []int{5})
	noisy := append([]byte{0x00, 0xFF}, frame...)

	d := New(nil, "")
	st := feedAll(d, noisy)

	assert.Equal(t, decode.StatusObs, st)
	assert.Equal(t, 1, d.Batch.N)
}

func TestUbxSysMapsKnownConstellations(t *testing.T) {
	assert.Equal(t, satid.SysGPS, ubxSys(0))
	assert.Equal(t, satid.SysGLO, ubxSys(6))
	assert.Equal(t, satid.SysNone, ubxSys(99))
}
