package rtcm2

import (
	"testing"

	"github.com/skybeacon/gnssgo/pkg/bitstream"
	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/skybeacon/gnssgo/pkg/satid"
	"github.com/stretchr/testify/assert"
)

// buildType1Buf assembles the demodulated (already 6-of-8/parity decoded)
// byte stream decodeType1 consumes: the type/station header word pair
// followed by one fact/udre/prn/prc/rrc/iod correction record, per
// spec.md §4.2's RTCM2 type 1/9 layout.
func buildType1Buf(mtype, prn int, prc, rrc float64, iod int) []byte {
	buf := make([]byte, 12)
	bitstream.SetUint(buf, 8, 6, uint32(mtype))
	i := 48
	bitstream.SetUint(buf, i, 1, 0) // fact: 0.02/0.002 scaling
	i += 1
	bitstream.SetUint(buf, i, 2, 1) // udre
	i += 2
	bitstream.SetUint(buf, i, 5, uint32(prn))
	i += 5
	bitstream.SetInt(buf, i, 16, int32(prc/0.02))
	i += 16
	bitstream.SetInt(buf, i, 8, int32(rrc/0.002))
	i += 8
	bitstream.SetInt(buf, i, 8, int32(iod))
	return buf
}

func TestDecodeType1ParsesCorrection(t *testing.T) {
	buf := buildType1Buf(1, 5, 20.0, 0.2, 3)

	d := New("")
	st := d.decodeMessage(buf)

	assert.Equal(t, decode.StatusDGPS, st)
	sat := satid.SatNo(satid.SysGPS, 5)
	assert.InDelta(t, 20.0, d.Dgps[sat].PRC, 1e-6)
	assert.InDelta(t, 0.2, d.Dgps[sat].RRC, 1e-6)
	assert.Equal(t, 3, d.Dgps[sat].IOD)
	assert.Equal(t, float64(1), d.Dgps[sat].UDRE)
}

func TestDecodeType1PRN0MapsToPRN32(t *testing.T) {
	buf := buildType1Buf(9, 0, 5.0, 0.0, 0)

	d := New("")
	st := d.decodeMessage(buf)

	assert.Equal(t, decode.StatusDGPS, st)
	sat := satid.SatNo(satid.SysGPS, 32)
	assert.InDelta(t, 5.0, d.Dgps[sat].PRC, 1e-6)
}

func TestDecodeMessageType3ReturnsStatusSta(t *testing.T) {
	buf := make([]byte, 9)
	bitstream.SetUint(buf, 8, 6, 3)

	d := New("")
	st := d.decodeMessage(buf)

	assert.Equal(t, decode.StatusSta, st)
}

func TestFeedByteIgnoresBytesWithoutSerialPrefix(t *testing.T) {
	d := New("")
	st := d.FeedByte(0x00) // upper 2 bits are 00, not 01
	assert.Equal(t, decode.StatusNone, st)
	assert.Equal(t, 0, d.nbyte)
}
