package nvs

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/skybeacon/gnssgo/pkg/satid"
	"github.com/stretchr/testify/assert"
)

// buildXF5Raw assembles the unescaped 0xF5 message body decodeXF5Raw
// consumes directly: sync+id header, the 27-byte tow/week preamble, and
// one GPS satellite record, per spec.md §4.5.1's NVS BINR layout. The
// trailing 2 bytes account for the 0x10 0x03 terminator the framer
// appends ahead of decodeXF5Raw's length check.
func buildXF5Raw(week int, tow float64, prn int, pr, cp float64, dop float32, cn0 byte) []byte {
	const nsat = 1
	buf := make([]byte, 31+30*nsat)
	buf[0] = sync
	buf[1] = idXF5RAW
	binary.LittleEndian.PutUint64(buf[2:10], math.Float64bits(tow))
	binary.LittleEndian.PutUint16(buf[10:12], uint16(week))
	binary.LittleEndian.PutUint64(buf[12:20], math.Float64bits(0))

	idx := 29
	buf[idx] = 2 // GPS
	buf[idx+1] = byte(prn)
	binary.LittleEndian.PutUint64(buf[idx+2:idx+10], math.Float64bits(pr))
	binary.LittleEndian.PutUint64(buf[idx+10:idx+18], math.Float64bits(cp))
	binary.LittleEndian.PutUint32(buf[idx+18:idx+22], math.Float32bits(dop))
	buf[idx+22] = cn0
	return buf
}

func TestDecodeXF5RawParsesGPSRecord(t *testing.T) {
	buf := buildXF5Raw(2200, 345600.0, 9, 2.1e7, 1.1e8, 100.0, 44)

	d := New(nil, "")
	st := d.decodeXF5Raw(buf)

	assert.Equal(t, decode.StatusObs, st)
	assert.Equal(t, 1, d.Batch.N)
	sat := satid.SatNo(satid.SysGPS, 9)
	assert.Equal(t, sat, d.Batch.Data[0].Sat)
	assert.InDelta(t, 2.1e7, d.Batch.Data[0].P[0], 1e-6)
	assert.InDelta(t, 1.1e8, d.Batch.Data[0].L[0], 1e-6)
}

func TestDecodeXF5RawInvertsCarrierPhaseWithOption(t *testing.T) {
	buf := buildXF5Raw(2200, 345600.0, 9, 2.1e7, 1.1e8, 100.0, 44)

	d := New(nil, "-INVCP")
	d.decodeXF5Raw(buf)

	assert.InDelta(t, -1.1e8, d.Batch.Data[0].L[0], 1e-6)
}

func TestDecodeXF5RawRejectsBadWeek(t *testing.T) {
	buf := buildXF5Raw(2200, 345600.0, 9, 2.1e7, 1.1e8, 100.0, 44)
	binary.LittleEndian.PutUint16(buf[10:12], 5000) // >= 4096

	d := New(nil, "")
	st := d.decodeXF5Raw(buf)

	assert.Equal(t, decode.StatusError, st)
}

func TestDecodeXF5RawRejectsMisalignedLength(t *testing.T) {
	buf := buildXF5Raw(2200, 345600.0, 9, 2.1e7, 1.1e8, 100.0, 44)
	buf = buf[:len(buf)-1]

	d := New(nil, "")
	st := d.decodeXF5Raw(buf)

	assert.Equal(t, decode.StatusError, st)
}

func TestFeedByteUnescapesDoubledSyncByte(t *testing.T) {
	d := New(nil, "")
	assert.Equal(t, decode.StatusNone, d.FeedByte(sync))
	assert.Equal(t, decode.StatusNone, d.FeedByte(0x00)) // arbitrary id, not XF5RAW
	assert.Equal(t, decode.StatusNone, d.FeedByte(sync))
	assert.Equal(t, decode.StatusNone, d.FeedByte(sync)) // doubled 0x10 unescapes to one
	assert.Equal(t, decode.StatusNone, d.FeedByte(0x01))
	assert.Equal(t, decode.StatusNone, d.FeedByte(sync))
	st := d.FeedByte(endMsg)

	assert.Equal(t, decode.StatusNone, st)
	assert.Equal(t, []byte{sync, 0x00, sync, 0x01, sync, endMsg}, d.buf[:6])
}
