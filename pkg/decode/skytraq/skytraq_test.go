package skytraq

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/stretchr/testify/assert"
)

// genRAWX builds a synthetic 0xDD raw-measurement frame with one GPS
// satellite block, for the framing round-trip property of spec.md §8.
func genRAWX(week int, tow float64, prn int, pr, cp, dop float64, cn0 byte) []byte {
	const payloadLen = 1 + 3 + 4 + 7 + 31 // id + reserved + week/tow lead-in + trailer-gap + one sat block
	payload := make([]byte, payloadLen)
	payload[0] = idRAWX
	binary.BigEndian.PutUint16(payload[3:5], uint16(week))
	binary.BigEndian.PutUint32(payload[5:9], uint32(tow/0.001))
	payload[13] = 1 // nsat

	s := 14 // satellite block start, relative to payload
	payload[s] = 0  // gnssType = GPS
	payload[s+1] = byte(prn)
	binary.BigEndian.PutUint64(payload[s+3:s+11], math.Float64bits(pr))
	binary.BigEndian.PutUint64(payload[s+11:s+19], math.Float64bits(cp))
	binary.BigEndian.PutUint32(payload[s+19:s+23], math.Float32bits(float32(dop)))
	payload[s+23] = cn0

	frame := make([]byte, 4+len(payload)+3)
	frame[0] = sync1
	frame[1] = sync2
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(payload)))
	copy(frame[4:], payload)
	total := len(frame)
	cs := xorChecksum(frame, total)
	frame[total-3] = cs
	frame[total-2] = 0x0D
	frame[total-1] = 0x0A
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

func TestDecoderDecodesRAWXFrame(t *testing.T) {
	frame := genRAWX(2200, 345600.0, 7, 2.1e7, 1.1e8, 50.0, 40)

	d := New(nil, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusObs, st)
	assert.Equal(t, 1, d.Batch.N)
	assert.InDelta(t, 2.1e7, d.Batch.Data[0].P[0], 1e-6)
	assert.InDelta(t, 1.1e8, d.Batch.Data[0].L[0], 1e-6)
}

func TestDecoderInvertsCarrierPhaseWithOption(t *testing.T) {
	frame := genRAWX(2200, 345600.0, 7, 2.1e7, 1.1e8, 50.0, 40)

	d := New(nil, "-INVCP")
	feedAll(d, frame)

	assert.InDelta(t, -1.1e8, d.Batch.Data[0].L[0], 1e-6)
}

func TestDecoderRejectsBadChecksum(t *testing.T) {
	frame := genRAWX(2200, 345600.0, 7, 2.1e7, 1.1e8, 50.0, 40)
	frame[len(frame)-3] ^= 0xFF

	d := New(nil, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusError, st)
}

func TestDecoderRejectsBadTrailer(t *testing.T) {
	frame := genRAWX(2200, 345600.0, 7, 2.1e7, 1.1e8, 50.0, 40)
	frame[len(frame)-1] = 0x00

	d := New(nil, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusError, st)
}
