package raster

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForRatio(t *testing.T) {
	cases := []struct {
		ratio float64
		level int
	}{
		{0, ZLevelHigh},
		{0.049, ZLevelHigh},
		{0.05, ZLevelMid},
		{0.099, ZLevelMid},
		{0.1, ZLevelLow},
		{0.199, ZLevelLow},
		{0.2, ZLevelNone},
		{1, ZLevelNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForRatio(tc.ratio), "ratio %v", tc.ratio)
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("raster chunk payload "), 200)
	for _, codec := range []string{CodecGzip, CodecZstd} {
		for _, level := range []int{ZLevelLow, ZLevelMid, ZLevelHigh} {
			m := &CompressionMeta{ID: codec, Clevel: level}
			c, err := m.compress(raw)
			require.NoError(t, err, "%s/%d", codec, level)
			assert.Less(t, len(c), len(raw))

			d, err := m.decompress(c)
			require.NoError(t, err, "%s/%d", codec, level)
			assert.Equal(t, raw, d)
		}
	}
}

func TestCompressionRatio(t *testing.T) {
	r, err := compressionRatio(CodecGzip, ZLevelHigh, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	zeros := make([]byte, 1<<16)
	r, err = compressionRatio(CodecGzip, ZLevelHigh, zeros)
	require.NoError(t, err)
	assert.Equal(t, ZLevelHigh, LevelForRatio(r))

	noise := make([]byte, 1<<12)
	rand.New(rand.NewSource(1)).Read(noise)
	r, err = compressionRatio(CodecZstd, ZLevelHigh, noise)
	require.NoError(t, err)
	assert.Equal(t, ZLevelNone, LevelForRatio(r))
}

func TestUnsupportedCodec(t *testing.T) {
	assert.False(t, validCodec("blosc"))
	_, err := (&CompressionMeta{ID: "blosc"}).compress([]byte("x"))
	assert.Error(t, err)
}
