package decode

import (
	"github.com/skybeacon/gnssgo/pkg/bitstream"
	"github.com/skybeacon/gnssgo/pkg/ephemeris"
	"github.com/skybeacon/gnssgo/pkg/gtime"
)

// LNAVFrame holds three consecutive GPS/QZSS LNAV subframes (1,2,3),
// each 10 words of 24 data bits with the 6 parity bits stripped, packed
// back to back (bits 0-23 word0, 24-47 word1, ...), the scratch layout the
// teacher's per-satellite Raw.SubFrm buffer uses before DecodeFrameEph runs.
type LNAVFrame struct {
	Buf [3 * 30]byte // 3 subframes * 240 bits = 3*30 bytes
}

// DecodeLNAVEph decodes subframes 1-3 of the GPS/QZSS legacy navigation
// message into a Keplerian ephemeris record, the Go port of the
// teacher's DecodeFrameEph (rcvraw.go). Returns false if the subframe
// IDs or the IODE/IODC-low-byte cross-check fail.
func DecodeLNAVEph(buf []byte) (ephemeris.Kepler, bool) {
	var e ephemeris.Kepler
	b := bitstream.View{Buf: buf}

	i := 24
	tow1 := float64(b.GetUint(i, 17)) * 6.0
	i += 17 + 2
	id1 := int(b.GetUint(i, 3))
	i += 3 + 2
	week := int(b.GetUint(i, 10))
	i += 10
	e.Code = uint32(b.GetUint(i, 2))
	i += 2
	e.Sva = int(b.GetUint(i, 4))
	i += 4
	e.Svh = int(b.GetUint(i, 6))
	i += 6
	iodc0 := int(b.GetUint(i, 2))
	i += 2
	e.Flag = int(b.GetUint(i, 1))
	i += 1 + 87
	tgd := int(b.GetInt(i, 8))
	i += 8
	iodc1 := int(b.GetUint(i, 8))
	i += 8
	toc := float64(b.GetUint(i, 16)) * 16.0
	i += 16
	e.F2 = float64(b.GetInt(i, 8)) * P2_55
	i += 8
	e.F1 = float64(b.GetInt(i, 16)) * P2_43
	i += 16
	e.F0 = float64(b.GetInt(i, 22)) * P2_31

	i = 240 + 24
	i += 17 + 2
	id2 := int(b.GetUint(i, 3))
	i += 3 + 2
	e.Iode = int(b.GetUint(i, 8))
	i += 8
	e.Crs = float64(b.GetInt(i, 16)) * P2_5
	i += 16
	e.Deln = float64(b.GetInt(i, 16)) * P2_43 * SC2RAD
	i += 16
	e.M0 = float64(b.GetInt(i, 32)) * P2_31 * SC2RAD
	i += 32
	e.Cuc = float64(b.GetInt(i, 16)) * P2_29
	i += 16
	e.E = float64(b.GetUint(i, 32)) * P2_33
	i += 32
	e.Cus = float64(b.GetInt(i, 16)) * P2_29
	i += 16
	sqrtA := float64(b.GetUint(i, 32)) * P2_19
	i += 32
	e.Toes = float64(b.GetUint(i, 16)) * 16.0

	i = 480 + 24
	i += 17 + 2
	id3 := int(b.GetUint(i, 3))
	i += 3 + 2
	e.Cic = float64(b.GetInt(i, 16)) * P2_29
	i += 16
	e.OMG0 = float64(b.GetInt(i, 32)) * P2_31 * SC2RAD
	i += 32
	e.Cis = float64(b.GetInt(i, 16)) * P2_29
	i += 16
	e.I0 = float64(b.GetInt(i, 32)) * P2_31 * SC2RAD
	i += 32
	e.Crc = float64(b.GetInt(i, 16)) * P2_5
	i += 16
	e.Omg = float64(b.GetInt(i, 32)) * P2_31 * SC2RAD
	i += 32
	e.OMGd = float64(b.GetInt(i, 24)) * P2_43 * SC2RAD
	i += 24
	iode3 := int(b.GetUint(i, 8))
	i += 8
	e.Idot = float64(b.GetInt(i, 14)) * P2_43 * SC2RAD

	e.A = sqrtA * sqrtA
	e.Iodc = (iodc0 << 8) + iodc1
	e.Tgd[0] = 0
	if tgd != -128 {
		e.Tgd[0] = float64(tgd) * P2_31
	}

	if id1 != 1 || id2 != 2 || id3 != 3 {
		return e, false
	}
	if iode3 != e.Iode || iode3 != (e.Iodc&0xFF) {
		return e, false
	}
	week = gtime.AdjGPSWeek(week)
	e.Ttr = gtime.GPST(week, tow1)
	if e.Toes < tow1-302400.0 {
		week++
	} else if e.Toes > tow1+302400.0 {
		week--
	}
	e.Toe = gtime.GPST(week, e.Toes)
	e.Toc = gtime.GPST(week, toc)
	return e, true
}
