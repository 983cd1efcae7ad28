package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOptionsTokens(t *testing.T) {
	opt := ParseOptions("-EPHALL -TADJ=1 -INVCP -STD_SLIP=5 -MAX_STD_CP=10 -MULTICODE -RCVSTDS -GALINAV -STA=4")
	assert.True(t, opt.EphAll)
	assert.Equal(t, 1.0, opt.Tadj)
	assert.True(t, opt.InvCP)
	assert.Equal(t, 5, opt.StdSlip)
	assert.Equal(t, 10, opt.MaxStdCP)
	assert.True(t, opt.MultiCode)
	assert.True(t, opt.RcvStds)
	assert.True(t, opt.GalINAV)
	assert.Equal(t, 4, opt.StationID)
}

func TestParseOptionsEmptyString(t *testing.T) {
	opt := ParseOptions("")
	assert.False(t, opt.EphAll)
	assert.Equal(t, 0.0, opt.Tadj)
}

func TestObsBatchFindAppendsAndReuses(t *testing.T) {
	var b ObsBatch
	i := b.Find(3)
	assert.Equal(t, 0, i)
	assert.Equal(t, 1, b.N)
	j := b.Find(3)
	assert.Equal(t, i, j)
	assert.Equal(t, 1, b.N)
	k := b.Find(7)
	assert.Equal(t, 1, k)
	assert.Equal(t, 2, b.N)
}

func TestObsBatchReset(t *testing.T) {
	var b ObsBatch
	b.Find(3)
	b.Reset()
	assert.Equal(t, 0, b.N)
}
