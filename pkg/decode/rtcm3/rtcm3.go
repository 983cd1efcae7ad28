// Package rtcm3 decodes the RTCM version 3 differential-correction
// stream: preamble/length/CRC-24Q framing, MSM4/MSM7 observation
// batches, the GPS (1019) and GLONASS (1020) broadcast ephemeris
// messages, reference-station coordinates (1005/1006), and GPS/GLONASS
// SSR orbit/clock/combined corrections (1057/1058/1060, 1063/1064/1066),
// per spec.md §4.5, §4.5.1, §4.5.4. SSR code/phase bias, URA and
// high-rate clock sub-types are not decoded by this subset.
package rtcm3

import (
	"io"

	"github.com/google/uuid"

	"github.com/skybeacon/gnssgo/internal/telemetry"
	"github.com/skybeacon/gnssgo/pkg/bitstream"
	"github.com/skybeacon/gnssgo/pkg/decode"
	"github.com/skybeacon/gnssgo/pkg/ephemeris"
	"github.com/skybeacon/gnssgo/pkg/gtime"
	"github.com/skybeacon/gnssgo/pkg/navstore"
	"github.com/skybeacon/gnssgo/pkg/satid"
)

const preamble = 0xD3

type frameState int

const (
	stIdle frameState = iota
	stLen1
	stPayload
	stCRC
)

// Decoder is an exclusive-owner RTCM3 stream context: frame-assembly
// scratch, the reconstructed time base used to resolve truncated
// week/tow fields, and the navigation store decoded ephemerides are
// written into.
type Decoder struct {
	Opt   decode.Options
	Store *navstore.Store
	Time  gtime.Time // last-known time, used to adjust truncated week fields
	Batch decode.ObsBatch

	StationID int

	// Session uniquely names this stream context for the lifetime of the
	// process, the same role a caster mountpoint session id plays: it
	// lets a log aggregator or an RTCM3 station table (Stations, below)
	// key records from concurrently-run contexts without collision.
	Session  uuid.UUID
	Log      telemetry.Sink
	Stations map[int]Station

	state   frameState
	buf     [1024 + 6]byte
	nbyte   int
	msgLen  int
	need    int
	lastEph ephemeris.Kepler
}

// New returns a Decoder ready to feed, honoring the free-form option
// string of spec.md §6. A random session id is assigned for the
// lifetime of the context; attach a Log sink explicitly to capture
// decode diagnostics.
func New(store *navstore.Store, opt string) *Decoder {
	return &Decoder{
		Store:   store,
		Opt:     decode.ParseOptions(opt),
		Session: uuid.New(),
		Log:     telemetry.Discard,
	}
}

// FeedByte advances the frame state machine by one byte. A checksum or
// length-mismatch failure resets to idle and returns StatusError,
// consuming the offending byte, per spec.md §4.5.1.
func (d *Decoder) FeedByte(b byte) decode.Status {
	switch d.state {
	case stIdle:
		if b == preamble {
			d.buf[0] = b
			d.nbyte = 1
			d.state = stLen1
		}
		return decode.StatusNone
	case stLen1:
		d.buf[d.nbyte] = b
		d.nbyte++
		if d.nbyte < 3 {
			return decode.StatusNone
		}
		d.msgLen = int(bitstream.GetUint(d.buf[:3], 14, 10))
		if d.msgLen > len(d.buf)-6 {
			d.Log.Warnf("rtcm3[%s]: frame length %d exceeds buffer, resync", d.Session, d.msgLen)
			d.reset()
			return decode.StatusError
		}
		d.need = d.msgLen + 3
		d.state = stPayload
		return decode.StatusNone
	case stPayload:
		d.buf[d.nbyte] = b
		d.nbyte++
		if d.nbyte < d.need {
			return decode.StatusNone
		}
		d.state = stCRC
		return decode.StatusNone
	case stCRC:
		d.buf[d.nbyte] = b
		d.nbyte++
		if d.nbyte < d.need+3 {
			return decode.StatusNone
		}
		frame := d.buf[:d.nbyte]
		crc := bitstream.CRC24Q(frame[:d.need])
		got := uint32(frame[d.need])<<16 | uint32(frame[d.need+1])<<8 | uint32(frame[d.need+2])
		d.reset()
		if crc != got {
			d.Log.Warnf("rtcm3[%s]: crc24q mismatch, frame dropped", d.Session)
			return decode.StatusError
		}
		return d.decodeMessage(frame[:d.need])
	}
	d.reset()
	return decode.StatusError
}

func (d *Decoder) reset() {
	d.state = stIdle
	d.nbyte = 0
}

// FeedReader pulls bytes from r up to a bounded number of attempts per
// spec.md §5's "file-backed feeders perform a bounded number of read
// attempts", returning on the first non-StatusNone status or EOF.
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
	mtype := int(bitstream.GetUint(buf, 24, 12))
	switch mtype {
	case 1019:
		return d.decodeType1019(buf)
	case 1020:
		return d.decodeType1020(buf)
	case 1074, 1075, 1076, 1077: // GPS MSM4-7
		return d.decodeMSM(buf, satid.SysGPS, mtype)
	case 1084, 1085, 1086, 1087: // GLONASS MSM4-7
		return d.decodeMSM(buf, satid.SysGLO, mtype)
	case 1094, 1095, 1096, 1097: // Galileo MSM4-7
		return d.decodeMSM(buf, satid.SysGAL, mtype)
	case 1124, 1125, 1126, 1127: // BeiDou MSM4-7
		return d.decodeMSM(buf, satid.SysBDS, mtype)
	case 1005, 1006: // station coordinates (ARP), with/without antenna height
		return d.decodeType1005(buf, mtype == 1006)
	case 1057: // GPS SSR orbit correction
		return d.decodeSSROrbit(buf, satid.SysGPS)
	case 1058: // GPS SSR clock correction
		return d.decodeSSRClock(buf, satid.SysGPS)
	case 1060: // GPS SSR combined orbit and clock correction
		return d.decodeSSRCombined(buf, satid.SysGPS)
	case 1063: // GLONASS SSR orbit correction
		return d.decodeSSROrbit(buf, satid.SysGLO)
	case 1064: // GLONASS SSR clock correction
		return d.decodeSSRClock(buf, satid.SysGLO)
	case 1066: // GLONASS SSR combined orbit and clock correction
		return d.decodeSSRCombined(buf, satid.SysGLO)
	}
	return decode.StatusNone
}

// ssrSatBits returns the satellite-id field width of an SSR record, 5
// bits (slot number) for GLONASS and 6 for every other constellation this
// subset handles, ref the teacher's selectsys (rtcm3.go).
func ssrSatBits(sys satid.System) int {
	if sys == satid.SysGLO {
		return 5
	}
	return 6
}

// decodeSSRHead decodes the common SSR 1/2/4 message header (epoch,
// update-interval class, sync flag, optional satellite-reference-datum
// bit, IOD SSR, provider/solution id, satellite count), the Go port of
// the teacher's decode_ssr1_head/decode_ssr2_head (rtcm3.go). The epoch
// time field itself is skipped rather than decoded: like decodeType1020,
// this context reconstructs SSR record timestamps from d.Time rather
// than the truncated TOW/TOD field, since a full week/day rollover
// resolver needs state this subset doesn't carry.
func (d *Decoder) decodeSSRHead(buf []byte, sys satid.System, withRefd bool) (nsat, iod int, sync bool, i int, ok bool) {
	i = 24 + 12
	epochBits := 20
	if sys == satid.SysGLO {
		epochBits = 17
	}
	need := epochBits + 4 + 1 + 4 + 16 + 4 + 6
	if withRefd {
		need++
	}
	if i+need > len(buf)*8 {
		return 0, 0, false, 0, false
	}
	i += epochBits
	i += 4 // update interval class
	sync = bitstream.GetUint(buf, i, 1) != 0
	i++
	if withRefd {
		i++ // satellite reference datum, not distinguished by this subset
	}
	iod = int(bitstream.GetUint(buf, i, 4))
	i += 4
	i += 16 + 4 // provider id, solution id
	nsat = int(bitstream.GetUint(buf, i, 6))
	i += 6
	return nsat, iod, sync, i, true
}

// ssrRecord returns the existing SSR record for sat, copied so callers
// can update one component (orbit/clock) without clobbering the other,
// or a zero record if none exists yet.
func (d *Decoder) ssrRecord(sat int) *navstore.SSR {
	if ex := d.Store.SSR(sat); ex != nil {
		cp := *ex
		return &cp
	}
	return &navstore.SSR{}
}

// decodeSSROrbit decodes an SSR orbit-correction message (1057/1063),
// the Go port of the teacher's decode_ssr1 (rtcm3.go).
func (d *Decoder) decodeSSROrbit(buf []byte, sys satid.System) decode.Status {
	nsat, iod, sync, i, ok := d.decodeSSRHead(buf, sys, true)
	if !ok {
		return decode.StatusError
	}
	np := ssrSatBits(sys)
	for j := 0; j < nsat && i+121+np+8 <= len(buf)*8; j++ {
		prn := int(bitstream.GetUint(buf, i, np))
		i += np
		i += 8 // IODE, the broadcast ephemeris this correction applies to; not tracked by this subset
		var deph, ddeph [3]float64
		deph[0] = float64(bitstream.GetInt(buf, i, 22)) * 1e-4
		i += 22
		deph[1] = float64(bitstream.GetInt(buf, i, 20)) * 4e-4
		i += 20
		deph[2] = float64(bitstream.GetInt(buf, i, 20)) * 4e-4
		i += 20
		ddeph[0] = float64(bitstream.GetInt(buf, i, 21)) * 1e-6
		i += 21
		ddeph[1] = float64(bitstream.GetInt(buf, i, 19)) * 4e-6
		i += 19
		ddeph[2] = float64(bitstream.GetInt(buf, i, 19)) * 4e-6
		i += 19

		sat := satid.SatNo(sys, prn)
		if sat == 0 {
			continue
		}
		rec := d.ssrRecord(sat)
		rec.T0Orbit = d.Time
		rec.IODOrbit = iod
		rec.Deph = deph
		rec.DDeph = ddeph
		d.Store.PutSSR(sat, rec)
	}
	d.Log.Debugf("rtcm3[%s]: ssr orbit sys=%d nsat=%d sync=%v", d.Session, sys, nsat, sync)
	return decode.StatusSSR
}

// decodeSSRClock decodes an SSR clock-correction message (1058/1064),
// the Go port of the teacher's decode_ssr2 (rtcm3.go).
func (d *Decoder) decodeSSRClock(buf []byte, sys satid.System) decode.Status {
	nsat, iod, sync, i, ok := d.decodeSSRHead(buf, sys, false)
	if !ok {
		return decode.StatusError
	}
	np := ssrSatBits(sys)
	for j := 0; j < nsat && i+70+np <= len(buf)*8; j++ {
		prn := int(bitstream.GetUint(buf, i, np))
		i += np
		var dclk [3]float64
		dclk[0] = float64(bitstream.GetInt(buf, i, 22)) * 1e-4
		i += 22
		dclk[1] = float64(bitstream.GetInt(buf, i, 21)) * 1e-6
		i += 21
		dclk[2] = float64(bitstream.GetInt(buf, i, 27)) * 2e-8
		i += 27

		sat := satid.SatNo(sys, prn)
		if sat == 0 {
			continue
		}
		rec := d.ssrRecord(sat)
		rec.T0Clk = d.Time
		rec.IODClk = iod
		rec.Dclk = dclk
		d.Store.PutSSR(sat, rec)
	}
	d.Log.Debugf("rtcm3[%s]: ssr clock sys=%d nsat=%d sync=%v", d.Session, sys, nsat, sync)
	return decode.StatusSSR
}

// decodeSSRCombined decodes a combined SSR orbit-and-clock-correction
// message (1060/1066), the Go port of the teacher's decode_ssr4
// (rtcm3.go).
func (d *Decoder) decodeSSRCombined(buf []byte, sys satid.System) decode.Status {
	nsat, iod, sync, i, ok := d.decodeSSRHead(buf, sys, true)
	if !ok {
		return decode.StatusError
	}
	np := ssrSatBits(sys)
	for j := 0; j < nsat && i+191+np+8 <= len(buf)*8; j++ {
		prn := int(bitstream.GetUint(buf, i, np))
		i += np
		i += 8 // IODE
		var deph, ddeph, dclk [3]float64
		deph[0] = float64(bitstream.GetInt(buf, i, 22)) * 1e-4
		i += 22
		deph[1] = float64(bitstream.GetInt(buf, i, 20)) * 4e-4
		i += 20
		deph[2] = float64(bitstream.GetInt(buf, i, 20)) * 4e-4
		i += 20
		ddeph[0] = float64(bitstream.GetInt(buf, i, 21)) * 1e-6
		i += 21
		ddeph[1] = float64(bitstream.GetInt(buf, i, 19)) * 4e-6
		i += 19
		ddeph[2] = float64(bitstream.GetInt(buf, i, 19)) * 4e-6
		i += 19
		dclk[0] = float64(bitstream.GetInt(buf, i, 22)) * 1e-4
		i += 22
		dclk[1] = float64(bitstream.GetInt(buf, i, 21)) * 1e-6
		i += 21
		dclk[2] = float64(bitstream.GetInt(buf, i, 27)) * 2e-8
		i += 27

		sat := satid.SatNo(sys, prn)
		if sat == 0 {
			continue
		}
		rec := d.ssrRecord(sat)
		rec.T0Orbit, rec.T0Clk = d.Time, d.Time
		rec.IODOrbit, rec.IODClk = iod, iod
		rec.Deph, rec.DDeph, rec.Dclk = deph, ddeph, dclk
		d.Store.PutSSR(sat, rec)
	}
	d.Log.Debugf("rtcm3[%s]: ssr combined sys=%d nsat=%d sync=%v", d.Session, sys, nsat, sync)
	return decode.StatusSSR
}

// Station is a reference-station antenna-reference-point record decoded
// from RTCM3 type 1005/1006, keyed in Stations by the message's station
// id and tagged with the decoding context's session, the way an NTRIP
// caster keys mountpoint state per connected stream (bramburn-gnssgo's
// pkg/caster).
type Station struct {
	ID        int
	Session   uuid.UUID
	ECEF      [3]float64
	AntHeight float64 // 1006 only
}

// decodeType1005 decodes a 1005/1006 station message into Stations, which
// holds one Station record per distinct station id seen on this context,
// overwritten on every 1005/1006, the Go equivalent of the teacher's Sta
// field on the rtcm context (src/types.go).
func (d *Decoder) decodeType1005(buf []byte, withHeight bool) decode.Status {
	i := 24 + 12
	need := 140
	if withHeight {
		need = 156
	}
	if i+need > len(buf)*8 {
		return decode.StatusError
	}
	staid := int(bitstream.GetUint(buf, i, 12))
	i += 12 + 6 + 4 // itrf + gps/glo/gal indicator + ref-station
	var st Station
	st.ID = staid
	st.Session = d.Session
	st.ECEF[0] = bitstream.Float38(buf, i) * 0.0001
	i += 38 + 2
	st.ECEF[1] = bitstream.Float38(buf, i) * 0.0001
	i += 38 + 2
	st.ECEF[2] = bitstream.Float38(buf, i) * 0.0001
	i += 38
	if withHeight {
		st.AntHeight = float64(bitstream.GetUint(buf, i, 16)) * 0.0001
	}
	if d.Stations == nil {
		d.Stations = make(map[int]Station)
	}
	d.Stations[staid] = st
	d.Log.Debugf("rtcm3[%s]: type %d station id=%d", d.Session, map[bool]int{true: 1006, false: 1005}[withHeight], staid)
	return decode.StatusSta
}

func (d *Decoder) testStation(staid int) bool {
	return d.StationID < 0 || d.StationID == staid
}

// decodeType1019 decodes the GPS LNAV broadcast ephemeris message,
// direct port of the teacher's decode_type1019 (rtcm3.go).
func (d *Decoder) decodeType1019(buf []byte) decode.Status {
	i := 24 + 12
	if i+476 > len(buf)*8 {
		return decode.StatusError
	}
	var e ephemeris.Kepler
	prn := int(bitstream.GetUint(buf, i, 6))
	i += 6
	week := int(bitstream.GetUint(buf, i, 10))
	i += 10
	e.Sva = int(bitstream.GetUint(buf, i, 4))
	i += 4
	e.Code = bitstream.GetUint(buf, i, 2)
	i += 2
	e.Idot = float64(bitstream.GetInt(buf, i, 14)) * decode.P2_43 * decode.SC2RAD
	i += 14
	e.Iode = int(bitstream.GetUint(buf, i, 8))
	i += 8
	toc := float64(bitstream.GetUint(buf, i, 16)) * 16.0
	i += 16
	e.F2 = float64(bitstream.GetInt(buf, i, 8)) * decode.P2_55
	i += 8
	e.F1 = float64(bitstream.GetInt(buf, i, 16)) * decode.P2_43
	i += 16
	e.F0 = float64(bitstream.GetInt(buf, i, 22)) * decode.P2_31
	i += 22
	e.Iodc = int(bitstream.GetUint(buf, i, 10))
	i += 10
	e.Crs = float64(bitstream.GetInt(buf, i, 16)) * decode.P2_5
	i += 16
	e.Deln = float64(bitstream.GetInt(buf, i, 16)) * decode.P2_43 * decode.SC2RAD
	i += 16
	e.M0 = float64(bitstream.GetInt(buf, i, 32)) * decode.P2_31 * decode.SC2RAD
	i += 32
	e.Cuc = float64(bitstream.GetInt(buf, i, 16)) * decode.P2_29
	i += 16
	e.E = float64(bitstream.GetUint(buf, i, 32)) * decode.P2_33
	i += 32
	e.Cus = float64(bitstream.GetInt(buf, i, 16)) * decode.P2_29
	i += 16
	sqrtA := float64(bitstream.GetUint(buf, i, 32)) * decode.P2_19
	i += 32
	e.Toes = float64(bitstream.GetUint(buf, i, 16)) * 16.0
	i += 16
	e.Cic = float64(bitstream.GetInt(buf, i, 16)) * decode.P2_29
	i += 16
	e.OMG0 = float64(bitstream.GetInt(buf, i, 32)) * decode.P2_31 * decode.SC2RAD
	i += 32
	e.Cis = float64(bitstream.GetInt(buf, i, 16)) * decode.P2_29
	i += 16
	e.I0 = float64(bitstream.GetInt(buf, i, 32)) * decode.P2_31 * decode.SC2RAD
	i += 32
	e.Crc = float64(bitstream.GetInt(buf, i, 16)) * decode.P2_5
	i += 16
	e.Omg = float64(bitstream.GetInt(buf, i, 32)) * decode.P2_31 * decode.SC2RAD
	i += 32
	e.OMGd = float64(bitstream.GetInt(buf, i, 24)) * decode.P2_43 * decode.SC2RAD
	i += 24
	e.Tgd[0] = float64(bitstream.GetInt(buf, i, 8)) * decode.P2_31
	i += 8
	e.Svh = int(bitstream.GetUint(buf, i, 6))
	i += 6
	e.Flag = int(bitstream.GetUint(buf, i, 1))

	sys := satid.SysGPS
	if prn >= 40 {
		sys = satid.SysSBS
		prn += 80
	}
	sat := satid.SatNo(sys, prn)
	if sat == 0 {
		return decode.StatusError
	}
	e.Sat = sat
	week = gtime.AdjGPSWeek(week)
	if d.Time.IsZero() {
		d.Time = gtime.GPST(week, e.Toes)
	}
	tt := gtime.GPST(week, e.Toes).Sub(d.Time)
	if tt < -302400.0 {
		week++
	} else if tt >= 302400.0 {
		week--
	}
	e.Toe = gtime.GPST(week, e.Toes)
	e.Toc = gtime.GPST(week, toc)
	e.Ttr = d.Time
	e.A = sqrtA * sqrtA

	d.Store.PutKepler(&e, d.Opt.EphAll)
	d.lastEph = e
	d.Log.Debugf("rtcm3[%s]: type 1019 gps eph sat=%d iode=%d", d.Session, sat, e.Iode)
	return decode.StatusEph
}

// decodeType1020 decodes the GLONASS broadcast ephemeris message.
func (d *Decoder) decodeType1020(buf []byte) decode.Status {
	i := 24 + 12
	if i+348 > len(buf)*8 {
		return decode.StatusError
	}
	var g ephemeris.Glonass
	prn := int(bitstream.GetUint(buf, i, 6))
	i += 6
	frq := int(bitstream.GetUint(buf, i, 5)) - 7
	i += 5 + 2 + 1
	tk_h := int(bitstream.GetUint(buf, i, 5))
	i += 5
	tk_m := int(bitstream.GetUint(buf, i, 6))
	i += 6
	tk_s := int(bitstream.GetUint(buf, i, 1)) * 30
	i += 1
	svh := int(bitstream.GetUint(buf, i, 1))
	i += 1 + 1
	g.Pos[0] = float64(bitstream.GetInt(buf, i, 27)) * decode.P2_10 * 1e3
	i += 27
	g.Vel[0] = float64(bitstream.GetInt(buf, i, 24)) * decode.P2_19 * 1e3 * 2
	i += 24
	g.Acc[0] = float64(bitstream.GetInt(buf, i, 5)) * decode.P2_29 * 1e3 * 2
	i += 5 + 1
	g.Pos[1] = float64(bitstream.GetInt(buf, i, 27)) * decode.P2_10 * 1e3
	i += 27
	g.Vel[1] = float64(bitstream.GetInt(buf, i, 24)) * decode.P2_19 * 1e3 * 2
	i += 24
	g.Acc[1] = float64(bitstream.GetInt(buf, i, 5)) * decode.P2_29 * 1e3 * 2
	i += 5 + 1 + 2
	g.Pos[2] = float64(bitstream.GetInt(buf, i, 27)) * decode.P2_10 * 1e3
	i += 27
	g.Vel[2] = float64(bitstream.GetInt(buf, i, 24)) * decode.P2_19 * 1e3 * 2
	i += 24
	g.Acc[2] = float64(bitstream.GetInt(buf, i, 5)) * decode.P2_29 * 1e3 * 2
	i += 5 + 1
	g.Gamn = float64(bitstream.GetInt(buf, i, 11)) * decode.P2_43 * 2
	i += 11 + 3
	g.Taun = -float64(bitstream.GetInt(buf, i, 22)) * decode.P2_29 * 2

	sat := satid.SatNo(satid.SysGLO, prn)
	if sat == 0 {
		return decode.StatusError
	}
	g.Sat = sat
	g.Svh = svh
	g.Frq = frq
	_ = tk_h
	_ = tk_m
	_ = tk_s
	// reference epoch is UTC day start + tk, a receiver-local reconstruction;
	// the store is keyed by slot/IODE so an approximate Toe close to the
	// stream's current time is sufficient for candidate selection.
	g.Toe = d.Time
	g.Iode = (tk_h<<6 | tk_m<<1 | (tk_s / 30)) & 0x7F

	d.Store.PutGlonass(&g, d.Opt.EphAll)
	return decode.StatusEph
}

// msmHeader is the common MSM message header, the Go port of the
// teacher's Msm_h / decode_msm_head (rtcm3.go).
type msmHeader struct {
	sync    bool
	iod     int
	nsat    int
	nsig    int
	sats    [64]int
	sigs    [32]int
	cellMsk [64 * 32]bool
}

func (d *Decoder) decodeMSMHeader(buf []byte, sys satid.System) (msmHeader, int, int, bool) {
	var h msmHeader
	i := 24 + 12
	if i+157 > len(buf)*8 {
		return h, 0, 0, false
	}
	staid := int(bitstream.GetUint(buf, i, 12))
	i += 12
	switch sys {
	case satid.SysGLO:
		i += 3
		tod := float64(bitstream.GetUint(buf, i, 27)) * 0.001
		i += 27
		_ = tod
	default:
		tow := float64(bitstream.GetUint(buf, i, 30)) * 0.001
		i += 30
		_ = tow
	}
	sync := bitstream.GetUint(buf, i, 1) != 0
	i += 1
	h.iod = int(bitstream.GetUint(buf, i, 3))
	i += 3 + 7 + 2 + 2 + 1 + 3
	h.sync = sync
	if !d.testStation(staid) {
		return h, 0, 0, false
	}
	for j := 1; j <= 64; j++ {
		if bitstream.GetUint(buf, i, 1) != 0 {
			h.sats[h.nsat] = j
			h.nsat++
		}
		i++
	}
	for j := 1; j <= 32; j++ {
		if bitstream.GetUint(buf, i, 1) != 0 {
			h.sigs[h.nsig] = j
			h.nsig++
		}
		i++
	}
	if h.nsat*h.nsig > 64 {
		return h, 0, 0, false
	}
	ncell := 0
	for j := 0; j < h.nsat*h.nsig; j++ {
		if bitstream.GetUint(buf, i, 1) != 0 {
			h.cellMsk[j] = true
			ncell++
		}
		i++
	}
	return h, ncell, i, true
}

// decodeMSM decodes an MSM4-7 observation message into the context's
// batch, subset to the pseudorange/phase/CNR fields common to MSM4 and
// above (the teacher's decode_msm4..decode_msm7 share this structure;
// high-resolution phaserange-rate fields present only in MSM5/7 are
// skipped for MSM4/6 by bit width).
func (d *Decoder) decodeMSM(buf []byte, sys satid.System, mtype int) decode.Status {
	h, ncell, i, ok := d.decodeMSMHeader(buf, sys)
	if !ok {
		return decode.StatusError
	}
	hasRate := mtype == 1075 || mtype == 1077 || mtype == 1085 || mtype == 1087 ||
		mtype == 1095 || mtype == 1097 || mtype == 1125 || mtype == 1127
	fine := mtype == 1076 || mtype == 1077 || mtype == 1086 || mtype == 1087 ||
		mtype == 1096 || mtype == 1097 || mtype == 1126 || mtype == 1127

	rng := make([]float64, h.nsat)
	for j := 0; j < h.nsat; j++ {
		v := int(bitstream.GetUint(buf, i, 8))
		i += 8
		if v != 255 {
			rng[j] = float64(v) * decode.RangeMS
		}
	}
	if hasRate {
		i += h.nsat * 4 // extended info, not consumed by this subset
	}
	for j := 0; j < h.nsat; j++ {
		v := int(bitstream.GetUint(buf, i, 10))
		i += 10
		if rng[j] != 0 {
			rng[j] += float64(v) * decode.P2_10 * decode.RangeMS
		}
	}
	if hasRate {
		i += h.nsat * 14 // satellite phaserangerate, not carried into obs.Data
	}

	prBits, cpBits := 15, 22
	if fine {
		prBits, cpBits = 20, 24
	}
	pr := make([]float64, ncell)
	cp := make([]float64, ncell)
	lock := make([]int, ncell)
	half := make([]bool, ncell)
	cnr := make([]float64, ncell)
	prScale := decode.P2_24
	if fine {
		prScale = decode.P2_29
	}
	for j := 0; j < ncell; j++ {
		v := int(bitstream.GetInt(buf, i, prBits))
		i += prBits
		if v != -(1 << uint(prBits-1)) {
			pr[j] = float64(v) * prScale * decode.RangeMS
		}
	}
	for j := 0; j < ncell; j++ {
		v := int(bitstream.GetInt(buf, i, cpBits))
		i += cpBits
		if v != -(1 << uint(cpBits-1)) {
			cp[j] = float64(v) * decode.P2_31 * decode.RangeMS
		}
	}
	lockBits := 7
	if fine {
		lockBits = 10
	}
	for j := 0; j < ncell; j++ {
		lock[j] = int(bitstream.GetUint(buf, i, lockBits))
		i += lockBits
	}
	for j := 0; j < ncell; j++ {
		half[j] = bitstream.GetUint(buf, i, 1) != 0
		i++
	}
	cnrBits := 6
	if fine {
		cnrBits = 10
	}
	cnrScale := 1.0
	if fine {
		cnrScale = 0.0625
	}
	for j := 0; j < ncell; j++ {
		cnr[j] = float64(bitstream.GetUint(buf, i, cnrBits)) * cnrScale
		i++
	}
	if hasRate {
		i += ncell * 15
	}

	cellIdx := 0
	for s := 0; s < h.nsat; s++ {
		for sg := 0; sg < h.nsig; sg++ {
			if !h.cellMsk[s*h.nsig+sg] {
				continue
			}
			cell := cellIdx
			cellIdx++
			prn := h.sats[s]
			if sys == satid.SysQZS {
				prn += 192
			}
			sat := satid.SatNo(sys, prn)
			if sat == 0 {
				continue
			}
			idx := d.Batch.Find(sat)
			if idx < 0 {
				continue
			}
			rec := &d.Batch.Data[idx]
			rec.Time = d.Time
			slot := 0 // signal-to-frequency mapping collapsed to slot 0 for this subset
			if pr[cell] != 0 {
				rec.P[slot] = rng[s] + pr[cell]
			}
			if cp[cell] != 0 {
				lli := uint8(0)
				if !half[cell] {
					lli |= 0x02
				}
				rec.L[slot] = (rng[s] + cp[cell]) / (decode.Clight / freqOf(sys))
				rec.LLI[slot] = lli
			}
			rec.SNR[slot] = uint16(cnr[cell] / 0.001)
			_ = lock[cell]
		}
	}
	if !h.sync {
		st := decode.StatusObs
		return st
	}
	return decode.StatusNone
}

func freqOf(sys satid.System) float64 {
	switch sys {
	case satid.SysGLO:
		return satid.Freq1GLO
	default:
		return satid.Freq1
	}
}
