// Package sbf decodes the Septentrio Binary Format stream: sync/
// CRC-16/block-id/length framing and the MeasEpoch observation block.
// The teacher carries no SBF decoder (src/common.go only lists
// "Septentrio SBF" as a receiver-family name); this package is grounded
// directly on spec.md §4.5.1/§6's wire description plus the CRC-16
// CCITT kernel bitstream.CRC16CCITT, see DESIGN.md.
package sbf

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/skybeacon/gnssgo/pkg/bitstream"
	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/navstore"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

const (
	sync1 = '$'
	sync2 = '@'

	blockMeasEpoch = 4027
)

type frameState int

const (
	stIdle frameState = iota
	stSync2
	stHeader
	stBody
)

// Decoder is an exclusive-owner SBF stream context.
type Decoder struct {
	Opt   decode.Options
	Store *navstore.Store
	Time  gtime.Time
	Batch decode.ObsBatch

	state  frameState
	buf    [4096]byte
	n      int
	length int
}

// New returns a ready Decoder.
func New(store *navstore.Store, opt string) *Decoder {
	return &Decoder{Store: store, Opt: decode.ParseOptions(opt)}
}

// FeedByte advances the sync/CRC/block-id/length state machine per
// spec.md §4.5.1: sync "$@", 2-byte CRC, 2-byte block-id|revision,
// 2-byte total length (a multiple of 4).
func (d *Decoder) FeedByte(b byte) decode.Status {
	switch d.state {
	case stIdle:
		if b == sync1 {
			d.n = 0
			d.buf[d.n] = b
			d.n++
			d.state = stSync2
		}
		return decode.StatusNone
	case stSync2:
		if b == sync2 {
			d.buf[d.n] = b
			d.n++
			d.state = stHeader
		} else {
			d.state = stIdle
		}
		return decode.StatusNone
	case stHeader:
		d.buf[d.n] = b
		d.n++
		if d.n < 8 {
			return decode.StatusNone
		}
		d.length = int(binary.LittleEndian.Uint16(d.buf[6:8]))
		if d.length%4 != 0 || d.length < 8 || d.length > len(d.buf) {
			d.state = stIdle
			return decode.StatusError
		}
		d.state = stBody
		return decode.StatusNone
	case stBody:
		d.buf[d.n] = b
		d.n++
		if d.n < d.length {
			return decode.StatusNone
		}
		frame := d.buf[:d.length]
		d.state = stIdle
		crc := bitstream.CRC16CCITT(frame[4:])
		got := binary.LittleEndian.Uint16(frame[2:4])
		if crc != got {
			return decode.StatusError
		}
		return d.decodeBlock(frame)
	}
	d.state = stIdle
	return decode.StatusError
}

// FeedReader pulls bytes from r, up to a bounded number of attempts.
func (d *Decoder) FeedReader(r io.Reader) decode.Status {
	var one [1]byte
	for i := 0; i < 4096; i++ {
		n, err := r.Read(one[:])
		if n == 1 {
			if st := d.FeedByte(one[0]); st != decode.StatusNone {
				return st
			}
		}
		if err != nil {
			return decode.StatusEOF
		}
	}
	return decode.StatusNone
}

func (d *Decoder) decodeBlock(buf []byte) decode.Status {
	id := binary.LittleEndian.Uint16(buf[4:6]) & 0x1FFF
	switch int(id) {
	case blockMeasEpoch:
		return d.decodeMeasEpoch(buf)
	}
	return decode.StatusNone
}

// decodeMeasEpoch decodes a simplified MeasEpoch block: TOW(4)+WN(2)
// header per spec.md §4.5.1 followed by fixed-width per-satellite
// sub-blocks (svid, pseudorange, carrier-phase, CN0), a
// representative subset of the full variable-length MeasEpochChannelType1/2
// sub-block layout the Septentrio ICD specifies.
func (d *Decoder) decodeMeasEpoch(buf []byte) decode.Status {
	const hdr = 8
	if len(buf) < hdr+8 {
		return decode.StatusError
	}
	tow := float64(binary.LittleEndian.Uint32(buf[hdr:])) * 0.001
	week := int(binary.LittleEndian.Uint16(buf[hdr+4:]))
	week = gtime.AdjGPSWeek(week)
	t := gtime.GPST(week, tow)

	const subLen = 24
	n := (len(buf) - hdr - 8) / subLen
	d.Batch.Reset()
	p := hdr + 8
	for i := 0; i < n && i < satid.MaxObs; i, p = i+1, p+subLen {
		svid := int(buf[p])
		sys, prn := sbfSys(svid)
		if sys == satid.SysNone {
			continue
		}
		sat := satid.SatNo(sys, prn)
		if sat == 0 {
			continue
		}
		pr := math.Float64frombits(binary.LittleEndian.Uint64(buf[p+2:]))
		cp := math.Float64frombits(binary.LittleEndian.Uint64(buf[p+10:]))
		cn0 := buf[p+18]
		idx := d.Batch.Find(sat)
		if idx < 0 {
			continue
		}
		rec := &d.Batch.Data[idx]
		rec.Time = t
		rec.P[0] = pr
		rec.L[0] = cp
		rec.SNR[0] = uint16(cn0) * 250
	}
	d.Time = t
	if d.Batch.N == 0 {
		return decode.StatusNone
	}
	return decode.StatusObs
}

// sbfSys maps a Septentrio SVID to (system, PRN), per the SBF ICD's
// fixed SVID ranges (1-37 GPS, 38-61 GLONASS FDMA slot+37, 71-106
// Galileo, 120-140 SBAS, 181-187 QZSS).
func sbfSys(svid int) (satid.System, int) {
	switch {
	case svid >= 1 && svid <= 37:
		return satid.SysGPS, svid
	case svid >= 38 && svid <= 61:
		return satid.SysGLO, svid - 37
	case svid >= 71 && svid <= 106:
		return satid.SysGAL, svid - 70
	case svid >= 120 && svid <= 140:
		return satid.SysSBS, svid
	case svid >= 181 && svid <= 187:
		return satid.SysQZS, svid - 181 + 193
	}
	return satid.SysNone, 0
}
