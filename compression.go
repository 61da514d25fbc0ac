package raster

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/qri-io/dataset/compression"
)

// Codec ids, as written to the compressor "id" of a .zarray document.
const (
	CodecGzip = "gzip"
	CodecZstd = "zst"
)

// Deflate levels a region can be assigned.
const (
	ZLevelHigh = 5
	ZLevelMid  = 3
	ZLevelLow  = 1
	ZLevelNone = 0
)

// CompressionMeta names the codec and level a variable was written with.
type CompressionMeta struct {
	ID     string `json:"id"`
	Clevel int    `json:"clevel,omitempty"`
}

func validCodec(id string) bool {
	return id == CodecGzip || id == CodecZstd
}

func (m *CompressionMeta) Decompressor(r io.ReadCloser) (io.ReadCloser, error) {
	if m.ID == CodecZstd {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	}
	return compression.Decompressor(m.ID, r)
}

func (m *CompressionMeta) Compressor(w io.Writer) (io.WriteCloser, error) {
	switch m.ID {
	case CodecGzip:
		return gzip.NewWriterLevel(w, m.Clevel)
	case CodecZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(m.Clevel)))
	default:
		return nil, errors.Errorf("unsupported compressor %q", m.ID)
	}
}

func (m *CompressionMeta) compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := m.Compressor(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *CompressionMeta) decompress(d []byte) ([]byte, error) {
	r, err := m.Decompressor(io.NopCloser(bytes.NewReader(d)))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// compressionRatio is the compressed/raw size of raw under codec at level.
// An empty payload has ratio 1.
func compressionRatio(codec string, level int, raw []byte) (float64, error) {
	if len(raw) == 0 {
		return 1, nil
	}
	m := CompressionMeta{ID: codec, Clevel: level}
	c, err := m.compress(raw)
	if err != nil {
		return 0, err
	}
	return float64(len(c)) / float64(len(raw)), nil
}

// LevelForRatio bands an average compression ratio into a deflate level.
// Highly compressible regions are likely to be fill or invalid data, so they
// get the strongest level.
func LevelForRatio(ratio float64) int {
	switch {
	case ratio < 0.05:
		return ZLevelHigh
	case ratio < 0.1:
		return ZLevelMid
	case ratio < 0.2:
		return ZLevelLow
	default:
		return ZLevelNone
	}
}
