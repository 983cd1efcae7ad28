package sbf

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/skybeacon/gnssgo/pkg/bitstream"
	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/stretchr/testify/assert"
)

// genMeasEpoch builds a synthetic MeasEpoch block with one GPS satellite
// sub-block, for the framing round-trip property of spec.md §8.
func genMeasEpoch(week int, tow float64, svid int, pr, cp float64, cn0 byte) []byte {
	const subLen = 24
	frame := make([]byte, 16+subLen)
	frame[0] = sync1
	frame[1] = sync2
	binary.LittleEndian.PutUint16(frame[4:6], blockMeasEpoch)
	binary.LittleEndian.PutUint16(frame[6:8], uint16(len(frame)))
	binary.LittleEndian.PutUint32(frame[8:12], uint32(tow/0.001))
	binary.LittleEndian.PutUint16(frame[12:14], uint16(week))

	p := 16
	frame[p] = byte(svid)
	binary.LittleEndian.PutUint64(frame[p+2:p+10], math.Float64bits(pr))
	binary.LittleEndian.PutUint64(frame[p+10:p+18], math.Float64bits(cp))
	frame[p+18] = cn0

	crc := bitstream.CRC16CCITT(frame[4:])
	binary.LittleEndian.PutUint16(frame[2:4], crc)
	return frame
}

func feedAll(d *Decoder, frame []byte) decode.Status {
	var last decode.Status
	for _, b := range frame {
		if st := d.FeedByte(b); st != decode.StatusNone {
			last = st
		}
	}
	return last
}

func TestDecoderDecodesMeasEpoch(t *testing.T) {
	frame := genMeasEpoch(2200, 345600.0, 7, 2.1e7, 1.1e8, 45)

	d := New(nil, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusObs, st)
	assert.Equal(t, 1, d.Batch.N)
	assert.InDelta(t, 2.1e7, d.Batch.Data[0].P[0], 1e-6)
	assert.InDelta(t, 1.1e8, d.Batch.Data[0].L[0], 1e-6)
	assert.EqualValues(t, 45*250, d.Batch.Data[0].SNR[0])
}

func TestDecoderRejectsBadCRC(t *testing.T) {
	frame := genMeasEpoch(2200, 345600.0, 7, 2.1e7, 1.1e8, 45)
	frame[2] ^= 0xFF

	d := New(nil, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusError, st)
}

func TestDecoderIgnoresUnknownBlock(t *testing.T) {
	frame := genMeasEpoch(2200, 345600.0, 7, 2.1e7, 1.1e8, 45)
	binary.LittleEndian.PutUint16(frame[4:6], 9999)
	crc := bitstream.CRC16CCITT(frame[4:])
	binary.LittleEndian.PutUint16(frame[2:4], crc)

	d := New(nil, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusNone, st)
}

func TestDecoderRejectsUnalignedLength(t *testing.T) {
	d := New(nil, "")
	header := []byte{sync1, sync2, 0, 0, 0, 0, 0x11, 0x00} // length=17, not a multiple of 4
	var last decode.Status
	for _, b := range header {
		last = d.FeedByte(b)
	}
	assert.Equal(t, decode.StatusError, last)
}
