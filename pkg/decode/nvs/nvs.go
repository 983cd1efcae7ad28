// Package nvs decodes the NVS BINR protocol: 0x10-stuffed framing
// terminated by 0x10 0x03, and the 0xF5 raw-measurement message, the Go
// port of the teacher's nvs.go, per spec.md §4.5, §4.5.1, §4.5.2.
package nvs

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
	sync     = 0x10
	endMsg   = 0x03
	idXF5RAW = 0xF5
)

// Decoder is an exclusive-owner NVS BINR stream context: the unescaping
// byte accumulator and the data-source-tagged double-0x10 carry flag.
type Decoder struct {
	Opt   decode.Options
	Store *navstore.Store
	Time  gtime.Time
	Batch decode.ObsBatch

	nbyte int
	flag  int
	buf   [2048]byte
}

// New returns a ready Decoder.
func New(store *navstore.Store, opt string) *Decoder {
	return &Decoder{Store: store, Opt: decode.ParseOptions(opt)}
}

// FeedByte advances the 0x10-escaped frame accumulator, the Go port of
// the teacher's Input_nvs. A doubled 0x10 inside the payload is
// unescaped to a single byte; the terminating 0x10 0x03 pair closes the
// frame.
func (d *Decoder) FeedByte(data byte) decode.Status {
	if d.nbyte == 0 && data == sync {
		d.buf[0] = data
		d.nbyte = 1
		return decode.StatusNone
	}
	if d.nbyte == 1 && data != sync && data != endMsg {
		d.buf[1] = data
		d.nbyte = 2
		d.flag = 0
		return decode.StatusNone
	}
	if data == sync {
		d.flag = (d.flag + 1) % 2
	}
	if data != sync || d.flag > 0 {
		if d.nbyte >= len(d.buf) {
			d.nbyte = 0
			return decode.StatusError
		}
		d.buf[d.nbyte] = data
		d.nbyte++
	}
	if data == endMsg && d.flag > 0 {
		frame := d.buf[:d.nbyte]
		d.nbyte = 0
		return d.decodeMessage(frame)
	}
	if d.nbyte >= len(d.buf) {
		d.nbyte = 0
		return decode.StatusError
	}
	return decode.StatusNone
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
	if len(buf) < 2 {
		return decode.StatusNone
	}
	if buf[1] == idXF5RAW {
		return d.decodeXF5Raw(buf)
	}
	return decode.StatusNone
}

// decodeXF5Raw decodes the NVS 0xF5 raw-measurement message, the Go
// port of decode_xf5raw: per-satellite pseudorange/phase/Doppler with
// the tow-tweak the teacher applies to make the epoch RINEX-representable.
func (d *Decoder) decodeXF5Raw(buf []byte) decode.Status {
	idx := 2
	if len(buf) < idx+27 {
		return decode.StatusError
	}
	dTowUTC := math.Float64frombits(binary.LittleEndian.Uint64(buf[idx:]))
	week := int(binary.LittleEndian.Uint16(buf[idx+8:]))
	gpsUTCScale := math.Float64frombits(binary.LittleEndian.Uint64(buf[idx+10:]))
	if week >= 4096 {
		return decode.StatusError
	}
	week = gtime.AdjGPSWeek(week)

	if (len(buf)-31)%30 != 0 {
		return decode.StatusError
	}
	nsat := (len(buf) - 31) / 30

	dTowGPS := dTowUTC + gpsUTCScale
	dTowInt := int(10.0 * math.Floor(dTowGPS/10.0+0.5))
	t := gtime.GPST(week, float64(dTowInt)*0.001)

	d.Batch.Reset()
	idx += 27
	for i := 0; i < nsat && i < satid.MaxObs; i, idx = i+1, idx+30 {
		var sys satid.System
		switch buf[idx] {
		case 1:
			sys = satid.SysGLO
		case 2:
			sys = satid.SysGPS
		case 4:
			sys = satid.SysSBS
		default:
			continue
		}
		prn := int(buf[idx+1])
		if sys == satid.SysSBS {
			prn += 120
		}
		sat := satid.SatNo(sys, prn)
		if sat == 0 {
			continue
		}
		pr := math.Float64frombits(binary.LittleEndian.Uint64(buf[idx+2:]))
		cp := math.Float64frombits(binary.LittleEndian.Uint64(buf[idx+10:]))
		dop := math.Float32frombits(binary.LittleEndian.Uint32(buf[idx+18:]))
		cn0 := buf[idx+22]
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
		rec.D[0] = float64(dop)
		rec.SNR[0] = uint16(cn0) * 250
	}
	d.Time = t
	if d.Batch.N == 0 {
		return decode.StatusNone
	}
	return decode.StatusObs
}
