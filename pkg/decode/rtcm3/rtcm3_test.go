package rtcm3

import (
	"testing"

	"github.com/skybeacon/gnssgo/pkg/bitstream"
	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/navstore"
	"github.com/skybeacon/gnssgo/pkg/satid"
	"github.com/stretchr/testify/assert"
)

// buildType1019 assembles a minimal, wire-valid RTCM 1019 frame (preamble,
// 10-bit length, the message body, CRC-24Q) carrying just enough fields to
// exercise the framing and field-extraction path.
func buildType1019(prn, week int) []byte {
	const payloadBytes = 62
	body := make([]byte, payloadBytes)
	bitstream.SetUint(body, 0, 12, 1019)
	bitstream.SetUint(body, 12, 6, uint32(prn))
	bitstream.SetUint(body, 18, 10, uint32(week))

	frame := make([]byte, 3+payloadBytes+3)
	frame[0] = preamble
	bitstream.SetUint(frame[:3], 14, 10, uint32(payloadBytes))
	copy(frame[3:], body)
	crc := bitstream.CRC24Q(frame[:3+payloadBytes])
	frame[3+payloadBytes] = byte(crc >> 16)
	frame[3+payloadBytes+1] = byte(crc >> 8)
	frame[3+payloadBytes+2] = byte(crc)
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

func TestDecoderDecodesType1019(t *testing.T) {
	store := navstore.New()
	const trunc = 100
	frame := buildType1019(12, trunc)

	d := New(store, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusEph, st)
	assert.Equal(t, satid.SatNo(satid.SysGPS, 12), d.lastEph.Sat)
	wantWeek := gtime.AdjGPSWeek(trunc)
	gotWeek, _ := d.lastEph.Toe.ToGPST()
	assert.Equal(t, wantWeek, gotWeek)
}

func TestDecoderRejectsBadCRC(t *testing.T) {
	store := navstore.New()
	frame := buildType1019(12, 100)
	frame[len(frame)-1] ^= 0xFF

	d := New(store, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusError, st)
}

func TestDecoderIgnoresNonPreambleBytes(t *testing.T) {
	store := navstore.New()
	frame := append([]byte{0x00, 0xAA}, buildType1019(12, 100)...)

	d := New(store, "")
	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusEph, st)
}

// buildType1060 assembles a minimal, wire-valid RTCM 1060 (GPS SSR
// combined orbit-and-clock correction) frame for a single satellite.
func buildType1060(prn int) []byte {
	const payloadBytes = 35
	body := make([]byte, payloadBytes)
	bitstream.SetUint(body, 0, 12, 1060)
	bitstream.SetUint(body, 12, 20, 100000) // epoch, unused by this decoder subset
	bitstream.SetUint(body, 32, 4, 1)       // update interval class
	bitstream.SetUint(body, 36, 1, 0)       // sync
	bitstream.SetUint(body, 37, 1, 0)       // satellite reference datum
	bitstream.SetUint(body, 38, 4, 3)       // IOD SSR
	bitstream.SetUint(body, 42, 16, 0)      // provider id
	bitstream.SetUint(body, 58, 4, 0)       // solution id
	bitstream.SetUint(body, 62, 6, 1)       // nsat
	bitstream.SetUint(body, 68, 6, uint32(prn))
	bitstream.SetUint(body, 74, 8, 0) // IODE
	bitstream.SetInt(body, 82, 22, 100)
	bitstream.SetInt(body, 104, 20, -50)
	bitstream.SetInt(body, 124, 20, 25)
	bitstream.SetInt(body, 144, 21, 1)
	bitstream.SetInt(body, 165, 19, -1)
	bitstream.SetInt(body, 184, 19, 0)
	bitstream.SetInt(body, 203, 22, 200)
	bitstream.SetInt(body, 225, 21, -5)
	bitstream.SetInt(body, 246, 27, 2)

	frame := make([]byte, 3+payloadBytes+3)
	frame[0] = preamble
	bitstream.SetUint(frame[:3], 14, 10, uint32(payloadBytes))
	copy(frame[3:], body)
	crc := bitstream.CRC24Q(frame[:3+payloadBytes])
	frame[3+payloadBytes] = byte(crc >> 16)
	frame[3+payloadBytes+1] = byte(crc >> 8)
	frame[3+payloadBytes+2] = byte(crc)
	return frame
}

func TestDecoderDecodesSSRCombined(t *testing.T) {
	store := navstore.New()
	d := New(store, "")
	frame := buildType1060(5)

	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusSSR, st)
	sat := satid.SatNo(satid.SysGPS, 5)
	ssr := store.SSR(sat)
	if assert.NotNil(t, ssr) {
		assert.Equal(t, 3, ssr.IODOrbit)
		assert.Equal(t, 3, ssr.IODClk)
		assert.InDelta(t, 100*1e-4, ssr.Deph[0], 1e-9)
		assert.InDelta(t, -50*4e-4, ssr.Deph[1], 1e-9)
		assert.InDelta(t, 200*1e-4, ssr.Dclk[0], 1e-9)
	}
}

func TestDecoderSSROrbitPreservesExistingClock(t *testing.T) {
	store := navstore.New()
	sat := satid.SatNo(satid.SysGPS, 5)
	store.PutSSR(sat, &navstore.SSR{Dclk: [3]float64{9, 8, 7}})

	d := New(store, "")
	body := make([]byte, 20)
	bitstream.SetUint(body, 0, 12, 1057)
	bitstream.SetUint(body, 12, 20, 0)
	bitstream.SetUint(body, 32, 4, 0)
	bitstream.SetUint(body, 36, 1, 0)
	bitstream.SetUint(body, 37, 1, 0)
	bitstream.SetUint(body, 38, 4, 1)
	bitstream.SetUint(body, 42, 16, 0)
	bitstream.SetUint(body, 58, 4, 0)
	bitstream.SetUint(body, 62, 6, 1)
	bitstream.SetUint(body, 68, 6, 5)
	bitstream.SetUint(body, 74, 8, 0)
	// remaining orbit fields left zero; frame is padded to 26 bytes so the
	// bound check (i+121+np+8 <= len*8, 92+121+6+8 = 227 <= 29*8) admits
	// the single record.
	frame := make([]byte, 3+26+3)
	frame[0] = preamble
	bitstream.SetUint(frame[:3], 14, 10, 26)
	body26 := make([]byte, 26)
	copy(body26, body)
	copy(frame[3:], body26)
	crc := bitstream.CRC24Q(frame[:3+26])
	frame[3+26] = byte(crc >> 16)
	frame[3+26+1] = byte(crc >> 8)
	frame[3+26+2] = byte(crc)

	st := feedAll(d, frame)

	assert.Equal(t, decode.StatusSSR, st)
	ssr := store.SSR(sat)
	if assert.NotNil(t, ssr) {
		assert.Equal(t, [3]float64{9, 8, 7}, ssr.Dclk)
		assert.Equal(t, 1, ssr.IODOrbit)
	}
}
