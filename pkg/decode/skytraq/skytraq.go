// Package skytraq decodes the Skytraq binary protocol: sync/length/XOR
// checksum/trailer framing and the 0xDD raw-measurement message, the Go
// port of the teacher's skytraq.go, per spec.md §4.5, §4.5.1, §4.5.2.
package skytraq

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/navstore"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

const (
	sync1 = 0xA0
	sync2 = 0xA1

	idRAWX = 0xDD
)

type frameState int

const (
	stIdle frameState = iota
	stSync2
	stLen1
	stLen2
	stBody
)

// Decoder is an exclusive-owner Skytraq stream context.
type Decoder struct {
	Opt   decode.Options
	Store *navstore.Store
	Time  gtime.Time
	Batch decode.ObsBatch

	state  frameState
	length int
	buf    [2048]byte
	n      int
}

// New returns a ready Decoder.
func New(store *navstore.Store, opt string) *Decoder {
	return &Decoder{Store: store, Opt: decode.ParseOptions(opt)}
}

// FeedByte advances the sync/length/XOR-checksum/trailer state machine,
// the Go port of sync_stq/Input_stq.
func (d *Decoder) FeedByte(b byte) decode.Status {
	switch d.state {
	case stIdle:
		d.buf[0] = d.buf[1]
		d.buf[1] = b
		if d.buf[0] == sync1 && d.buf[1] == sync2 {
			d.n = 2
			d.state = stLen1
		}
		return decode.StatusNone
	case stLen1:
		d.buf[d.n] = b
		d.n++
		d.state = stLen2
		return decode.StatusNone
	case stLen2:
		d.buf[d.n] = b
		d.n++
		d.length = int(binary.BigEndian.Uint16(d.buf[2:4])) + 7
		if d.length > len(d.buf) {
			d.state = stIdle
			d.n = 0
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
		d.n = 0
		if frame[d.length-2] != 0x0D || frame[d.length-1] != 0x0A {
			return decode.StatusError
		}
		cs := xorChecksum(frame, d.length)
		if cs != frame[d.length-3] {
			return decode.StatusError
		}
		return d.decodeMessage(frame)
	}
	d.state = stIdle
	return decode.StatusError
}

func xorChecksum(buf []byte, length int) byte {
	var cs byte
	for i := 4; i < length-3; i++ {
		cs ^= buf[i]
	}
	return cs
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
	if buf[4] == idRAWX {
		return d.decodeRAWX(buf)
	}
	return decode.StatusNone
}

// decodeRAWX decodes the Skytraq 0xDD raw-measurement message's
// per-satellite pseudorange/carrier-phase block, the Go port of the
// teacher's decode_stqrawx.
func (d *Decoder) decodeRAWX(buf []byte) decode.Status {
	idx := 4
	week := int(binary.BigEndian.Uint16(buf[idx+3:]))
	week = gtime.AdjGPSWeek(week)
	tow := float64(binary.BigEndian.Uint32(buf[idx+5:])) * 0.001
	t := gtime.GPST(week, tow)
	nsat := int(buf[idx+13])
	if len(buf) < 19+31*nsat {
		return decode.StatusError
	}
	d.Batch.Reset()
	idx += 14
	for i := 0; i < nsat && i < satid.MaxObs; i, idx = i+1, idx+31 {
		gnssType := int(buf[idx] & 0xF)
		prn := int(buf[idx+1])
		var sys satid.System
		switch gnssType {
		case 0:
			sys = satid.SysGPS
		case 1:
			sys = satid.SysSBS
		case 2:
			sys = satid.SysGLO
		case 3:
			sys = satid.SysGAL
		case 4:
			sys = satid.SysQZS
			prn += 192
		case 5:
			sys = satid.SysBDS
		default:
			continue
		}
		sat := satid.SatNo(sys, prn)
		if sat == 0 {
			continue
		}
		pr := math.Float64frombits(binary.BigEndian.Uint64(buf[idx+3:]))
		cp := math.Float64frombits(binary.BigEndian.Uint64(buf[idx+11:]))
		dop := float64(math.Float32frombits(binary.BigEndian.Uint32(buf[idx+19:])))
		cn0 := buf[idx+23]
		idxRec := d.Batch.Find(sat)
		if idxRec < 0 {
			continue
		}
		rec := &d.Batch.Data[idxRec]
		rec.Time = t
		rec.P[0] = pr
		rec.L[0] = cp
		if d.Opt.InvCP {
			rec.L[0] = -rec.L[0]
		}
		rec.D[0] = dop
		rec.SNR[0] = uint16(cn0) * 1000 / 4
	}
	d.Time = t
	if d.Batch.N == 0 {
		return decode.StatusNone
	}
	return decode.StatusObs
}
