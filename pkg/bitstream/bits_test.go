package bitstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSetUintRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	SetUint(buf, 3, 12, 0xABC)
	assert.Equal(t, uint32(0xABC), GetUint(buf, 3, 12))
}

func TestGetIntSignExtends(t *testing.T) {
	buf := make([]byte, 4)
	SetInt(buf, 0, 8, -5)
	assert.Equal(t, int32(-5), GetInt(buf, 0, 8))
}

func TestGetIntAcrossByteBoundary(t *testing.T) {
	buf := make([]byte, 4)
	SetUint(buf, 5, 16, 0x1234)
	assert.Equal(t, uint32(0x1234), GetUint(buf, 5, 16))
}

func TestCRC24QSingleBitFlipChangesCRC(t *testing.T) {
	buf := []byte{0xD3, 0x00, 0x13, 0x3E, 0xD7, 0xD3, 0x02, 0x02, 0x98, 0x0E, 0xDE, 0xEF, 0x34, 0xB4, 0xBD, 0x62, 0xAC, 0x09, 0x41, 0x98, 0x6F, 0x33, 0x36, 0x0B, 0x98}
	base := CRC24Q(buf)
	for bit := 0; bit < len(buf)*8; bit++ {
		mutated := append([]byte(nil), buf...)
		mutated[bit/8] ^= 1 << uint(7-bit%8)
		assert.NotEqual(t, base, CRC24Q(mutated), "bit %d flip did not change CRC", bit)
	}
}

func TestDecodeWordParity(t *testing.T) {
	// A word with garbage parity bits should fail.
	_, ok := DecodeWord(0x12345678)
	assert.False(t, ok)
}

func TestFletcher16Deterministic(t *testing.T) {
	a, b := Fletcher16([]byte{0x01, 0x02, 0x03})
	c, d := Fletcher16([]byte{0x01, 0x02, 0x03})
	assert.Equal(t, a, c)
	assert.Equal(t, b, d)
}

func TestXOR8(t *testing.T) {
	assert.Equal(t, byte(0x00), XOR8([]byte{0xFF, 0xFF}))
	assert.Equal(t, byte(0xFF), XOR8([]byte{0xFF, 0x00}))
}
