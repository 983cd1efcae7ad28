// Package rtcm2 decodes the RTCM version 2 differential-correction
// stream: the 6-of-8 serial framing with per-30-bit-word parity and a
// subset of message types, per spec.md §2, §4.2, §4.5.1. Types 1/9 (DGPS
// corrections) are decoded; type 3 is reported as StatusSta without its
// fields being decoded; types 22/23/24 are not decoded.
package rtcm2

import (
	"io"

	"github.com/skybeacon/gnssgo/pkg/bitstream"
	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

const preamble = 0x66

// DGPSCorrection is one satellite's pseudorange/range-rate correction
// from an RTCM2 type 1/9 message.
type DGPSCorrection struct {
	T0       gtime.Time
	PRC, RRC float64
	IOD      int
	UDRE     float64
}

// Decoder is an exclusive-owner RTCM2 stream context: the 6-of-8 bit
// accumulator and the per-word parity-decoded message buffer.
type Decoder struct {
	Opt  decode.Options
	Time gtime.Time

	Dgps [satid.MaxSat + 1]DGPSCorrection

	word  uint32
	nbyte int
	nbit  int
	msgLen int
	buf   [1024]byte
}

// New returns a ready Decoder.
func New(opt string) *Decoder {
	return &Decoder{Opt: decode.ParseOptions(opt)}
}

// FeedByte advances the 6-of-8 serial bit accumulator by one serial
// byte (only the low 6 bits, lsb-first, carry payload per the 6-of-8
// framing of spec.md §4.2/§6). A parity failure on a mid-message word
// resets synchronization and returns StatusError.
func (d *Decoder) FeedByte(data byte) decode.Status {
	if data&0xC0 != 0x40 {
		return decode.StatusNone // ignore if upper 2 bits aren't 01
	}
	var st decode.Status = decode.StatusNone
	for i := 0; i < 6; i, data = i+1, data>>1 {
		d.word = (d.word << 1) + uint32(data&1)

		if d.nbyte == 0 {
			preamb := byte(d.word >> 22)
			if d.word&0x40000000 != 0 {
				preamb ^= 0xFF
			}
			if preamb != preamble {
				continue
			}
			payload, ok := bitstream.DecodeWord(d.word)
			if !ok {
				continue
			}
			copy(d.buf[0:3], payload[:])
			d.nbyte = 3
			d.nbit = 0
			continue
		}
		d.nbit++
		if d.nbit < 30 {
			continue
		}
		d.nbit = 0
		payload, ok := bitstream.DecodeWord(d.word)
		if !ok {
			d.nbyte = 0
			d.word &= 0x3
			st = decode.StatusError
			continue
		}
		copy(d.buf[d.nbyte:d.nbyte+3], payload[:])
		d.nbyte += 3
		if d.nbyte == 6 {
			d.msgLen = int(d.buf[5]>>3)*3 + 6
		}
		if d.nbyte < d.msgLen {
			continue
		}
		d.nbyte = 0
		d.word &= 0x3
		st = d.decodeMessage(d.buf[:d.msgLen])
	}
	return st
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

func (d *Decoder) decodeMessage(buf []byte) decode.Status {
	mtype := int(bitstream.GetUint(buf, 8, 6))
	switch mtype {
	case 1, 9:
		return d.decodeType1(buf)
	case 3:
		return decode.StatusSta
	}
	return decode.StatusNone
}

// decodeType1 decodes RTCM2 type 1/9 (DGPS corrections / partial
// correction set), the Go port of the teacher's decode_type1 (rtcm2.go).
func (d *Decoder) decodeType1(buf []byte) decode.Status {
	n := 0
	for i := 48; i+40 <= len(buf)*8; {
		fact := bitstream.GetUint(buf, i, 1)
		i += 1
		udre := bitstream.GetUint(buf, i, 2)
		i += 2
		prn := int(bitstream.GetUint(buf, i, 5))
		i += 5
		prc := float64(bitstream.GetInt(buf, i, 16))
		i += 16
		rrc := float64(bitstream.GetInt(buf, i, 8))
		i += 8
		iod := int(bitstream.GetInt(buf, i, 8))
		i += 8
		if prn == 0 {
			prn = 32
		}
		sat := satid.SatNo(satid.SysGPS, prn)
		if sat == 0 {
			continue
		}
		c := &d.Dgps[sat]
		c.T0 = d.Time
		c.PRC = prc * 0.02
		c.RRC = rrc * 0.002
		if fact != 0 {
			c.PRC = prc * 0.32
			c.RRC = rrc * 0.032
		}
		c.IOD = iod
		c.UDRE = float64(udre)
		n++
	}
	if n == 0 {
		return decode.StatusNone
	}
	return decode.StatusDGPS
}
