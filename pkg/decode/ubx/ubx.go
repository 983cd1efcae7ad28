// Package ubx decodes the u-blox UBX binary protocol: sync/class/id/
// length/Fletcher-16 framing and the UBX-RXM-RAWX raw-measurement
// message, per spec.md §4.5, §4.5.1, §4.5.2, §6.
package ubx

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
	sync1 = 0xB5
	sync2 = 0x62

	classRXM = 0x02
	idRXMRAWX = 0x15
)

type frameState int

const (
	stIdle frameState = iota
	stSync2
	stClass
	stID
	stLen1
	stLen2
	stPayload
	stCk1
	stCk2
)

// Decoder is an exclusive-owner UBX stream context.
type Decoder struct {
	Opt   decode.Options
	Store *navstore.Store
	Time  gtime.Time
	Batch decode.ObsBatch

	lockTime map[[2]int]float64
	halfc    map[[2]int]uint8

	state   frameState
	class   byte
	id      byte
	length  int
	buf     [2048]byte
	n       int
	ck1     byte
}

// New returns a ready Decoder for the given store and option string.
func New(store *navstore.Store, opt string) *Decoder {
	return &Decoder{
		Store:    store,
		Opt:      decode.ParseOptions(opt),
		lockTime: map[[2]int]float64{},
		halfc:    map[[2]int]uint8{},
	}
}

// FeedByte advances the frame assembly state machine. A checksum
// mismatch resets to idle and returns StatusError, consuming the
// offending byte.
func (d *Decoder) FeedByte(b byte) decode.Status {
	switch d.state {
	case stIdle:
		if b == sync1 {
			d.state = stSync2
		}
	case stSync2:
		if b == sync2 {
			d.state = stClass
		} else {
			d.state = stIdle
		}
	case stClass:
		d.class = b
		d.state = stID
	case stID:
		d.id = b
		d.state = stLen1
	case stLen1:
		d.length = int(b)
		d.state = stLen2
	case stLen2:
		d.length |= int(b) << 8
		if d.length > len(d.buf) {
			d.state = stIdle
			return decode.StatusError
		}
		d.n = 0
		if d.length == 0 {
			d.state = stCk1
		} else {
			d.state = stPayload
		}
	case stPayload:
		d.buf[d.n] = b
		d.n++
		if d.n >= d.length {
			d.state = stCk1
		}
	case stCk1:
		d.ck1 = b
		d.state = stCk2
	case stCk2:
		ck2 := b
		d.state = stIdle
		hdr := []byte{d.class, d.id, byte(d.length), byte(d.length >> 8)}
		full := append(append([]byte{}, hdr...), d.buf[:d.length]...)
		ckA, ckB := gnssChecksum(full)
		if ckA != d.ck1 || ckB != ck2 {
			return decode.StatusError
		}
		return d.decodeMessage()
	}
	return decode.StatusNone
}

func gnssChecksum(buf []byte) (byte, byte) {
	var a, b byte
	for _, c := range buf {
		a += c
		b += a
	}
	return a, b
}

// FeedReader pulls bytes from r, up to a bounded number of attempts,
// per spec.md §5.
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

func (d *Decoder) decodeMessage() decode.Status {
	if d.class == classRXM && d.id == idRXMRAWX {
		return d.decodeRXMRAWX()
	}
	return decode.StatusNone
}

// decodeRXMRAWX decodes UBX-RXM-RAWX into the batch of observations,
// the Go port of the teacher's decode_rxmrawx (ublox.go): per-measurement
// pseudorange/phase/Doppler, lock-time-regression/half-cycle slip
// detection and the -TADJ/-STD_SLIP option handling of spec.md §6. The
// LLI slip bit is set only on the epoch where the slip is detected; it is
// not held over, so a slip seen while the phase is invalid is not carried
// to the next valid phase.
func (d *Decoder) decodeRXMRAWX() decode.Status {
	buf := d.buf[:d.length]
	if len(buf) < 24 {
		return decode.StatusError
	}
	tow := math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8]))
	week := int(binary.LittleEndian.Uint16(buf[8:10]))
	nmeas := int(buf[11])
	ver := int(buf[13])
	if len(buf) < 16+32*nmeas {
		return decode.StatusError
	}
	if week == 0 {
		return decode.StatusNone
	}
	t := gtime.GPST(week, tow)

	tadj := d.Opt.Tadj
	var toff float64
	if tadj > 0 {
		_, tw := t.ToGPST()
		tn := tw / tadj
		toff = (tn - math.Floor(tn+0.5)) * tadj
		t = t.Add(-toff)
	}

	d.Batch.Reset()
	p := 16
	for i := 0; i < nmeas && i < satid.MaxObs; i, p = i+1, p+32 {
		pr := math.Float64frombits(binary.LittleEndian.Uint64(buf[p : p+8]))
		cp := math.Float64frombits(binary.LittleEndian.Uint64(buf[p+8 : p+16]))
		doppler := float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[p+16 : p+20])))
		gnssID := int(buf[p+20])
		svID := int(buf[p+21])
		freqID := int(buf[p+23])
		lockMS := int(binary.LittleEndian.Uint16(buf[p+24 : p+26]))
		cn0 := int(buf[p+26])
		cpStd := int(buf[p+28]) & 15
		trkStat := int(buf[p+30])

		if trkStat&1 == 0 {
			pr = 0
		}
		if trkStat&2 == 0 || cp == -0.5 || cpStd > decode.CPStdValid {
			cp = 0
		}

		sys := ubxSys(gnssID)
		if sys == satid.SysNone {
			continue
		}
		prn := svID
		if sys == satid.SysQZS {
			prn += 192
		}
		sat := satid.SatNo(sys, prn)
		if sat == 0 {
			continue
		}
		if toff != 0 {
			pr -= toff * decode.Clight
			cp -= toff * freqOf(sys, freqID-7)
		}
		if sys == satid.SysBDS && (prn <= 5 || prn >= 59) && cp != 0 {
			cp += 0.5
		}
		halfValid := trkStat&4 != 0
		halfSub := byte(0)
		if trkStat&8 != 0 {
			halfSub = 1
		}
		key := [2]int{sat, 0}
		slip := lockMS == 0 ||
			float64(lockMS)*1e-3 < d.lockTime[key] ||
			halfSub != d.halfc[key] ||
			(d.Opt.StdSlip > 0 && cpStd >= d.Opt.StdSlip)
		d.lockTime[key] = float64(lockMS) * 1e-3
		d.halfc[key] = halfSub

		var lli uint8
		if slip {
			lli |= 0x01
		}
		if !halfValid {
			lli |= 0x02
		}
		if halfSub != 0 {
			lli |= 0x04
		}

		idx := d.Batch.Find(sat)
		if idx < 0 {
			continue
		}
		rec := &d.Batch.Data[idx]
		rec.Time = t
		rec.L[0] = cp
		rec.P[0] = pr
		rec.D[0] = doppler
		rec.SNR[0] = uint16(float64(cn0)/0.001 + 0.5) // scaled per RINEX SNR unit
		rec.LLI[0] = lli
		_ = ver
	}
	d.Time = t
	if d.Batch.N == 0 {
		return decode.StatusNone
	}
	return decode.StatusObs
}

// ubxSys maps a u-blox gnssId to the internal system bitmask, the Go
// port of ubx_sys (ublox.go).
func ubxSys(gnssID int) satid.System {
	switch gnssID {
	case 0:
		return satid.SysGPS
	case 1:
		return satid.SysSBS
	case 2:
		return satid.SysGAL
	case 3:
		return satid.SysBDS
	case 5:
		return satid.SysQZS
	case 6:
		return satid.SysGLO
	case 7:
		return satid.SysIRN
	}
	return satid.SysNone
}

func freqOf(sys satid.System, fcn int) float64 {
	if sys == satid.SysGLO {
		return satid.Freq1GLO + float64(fcn)*satid.DFrq1GLO
	}
	return satid.Freq1
}

// GenRAWX serializes a synthetic UBX-RXM-RAWX frame carrying obs as its
// measurement block, for the framing round-trip property of spec.md §8
// (generator feeds back into FeedByte and yields the same batch modulo
// floating-point quantization).
func GenRAWX(week int, tow float64, prs, cps, dops []float64, gnssID, svID []int) []byte {
	n := len(prs)
	payload := make([]byte, 16+32*n)
	binary.LittleEndian.PutUint64(payload[0:8], math.Float64bits(tow))
	binary.LittleEndian.PutUint16(payload[8:10], uint16(week))
	payload[11] = byte(n)
	payload[13] = 1 // version
	for i := 0; i < n; i++ {
		p := 16 + 32*i
		binary.LittleEndian.PutUint64(payload[p:p+8], math.Float64bits(prs[i]))
		binary.LittleEndian.PutUint64(payload[p+8:p+16], math.Float64bits(cps[i]))
		binary.LittleEndian.PutUint32(payload[p+16:p+20], math.Float32bits(float32(dops[i])))
		payload[p+20] = byte(gnssID[i])
		payload[p+21] = byte(svID[i])
		payload[p+30] = 0x07 // pr+cp valid, half-cycle valid
	}
	hdr := []byte{sync1, sync2, classRXM, idRXMRAWX, byte(len(payload)), byte(len(payload) >> 8)}
	frame := append(hdr, payload...)
	ckA, ckB := gnssChecksum(frame[2:])
	return append(frame, ckA, ckB)
}
