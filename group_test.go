package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroups(t *testing.T) {
	s := NewMemoryStore()
	_, err := OpenGroup(s, "foo")
	assert.ErrorIs(t, err, ErrNotFound)

	root, err := CreateGroup(s, "/foo/")
	require.NoError(t, err)
	assert.Equal(t, "foo", root.Path())

	child, err := root.CreateGroup("bar")
	require.NoError(t, err)
	assert.Equal(t, "foo/bar", child.Path())

	opened, err := root.Group("bar")
	require.NoError(t, err)
	assert.Equal(t, child.ID(), opened.ID())
	assert.NotEqual(t, root.ID(), child.ID())

	_, err = root.Group("baz")
	assert.ErrorIs(t, err, ErrNotFound)

	// the same path in another store is another object
	other, err := CreateGroup(NewMemoryStore(), "foo")
	require.NoError(t, err)
	assert.NotEqual(t, root.ID(), other.ID())
}

func TestDimensions(t *testing.T) {
	g, err := CreateGroup(NewMemoryStore(), "")
	require.NoError(t, err)

	_, err = g.DimLen("lat")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, g.DefDim("lat", 180))
	require.NoError(t, g.DefDim("lat", 180))
	assert.ErrorIs(t, g.DefDim("lat", 90), ErrDimensionConflict)
	assert.Error(t, g.DefDim("lon", -1))

	l, err := g.DimLen("lat")
	require.NoError(t, err)
	assert.Equal(t, 180, l)
}

func TestVariables(t *testing.T) {
	s := NewMemoryStore()
	g, err := CreateGroup(s, "data")
	require.NoError(t, err)
	require.NoError(t, g.DefDim("y", 2))
	require.NoError(t, g.DefDim("x", 3))

	assert.ErrorIs(t, g.DefVar("v", DtypeFloat32, []string{"y", "z"}), ErrNotFound)
	require.NoError(t, g.DefVar("v", DtypeFloat32, []string{"y", "x"}))

	meta, err := g.VarMeta("v")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, meta.Shape)
	assert.Equal(t, []int{2, 3}, meta.Chunks)
	assert.Nil(t, meta.Compressor)

	vals := []float32{1, 2, 3, 4, 5, 6}
	require.NoError(t, WriteArray(g, "v", vals))
	got, err := ReadArray[float32](g, "v")
	require.NoError(t, err)
	assert.Equal(t, vals, got)
	assert.Equal(t, encodeElements(vals), readKey(t, s, "data/v/0.0"))

	assert.ErrorIs(t, WriteArray(g, "v", []int32{1, 2, 3, 4, 5, 6}), ErrTypeMismatch)
	_, err = ReadArray[float64](g, "v")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.ErrorIs(t, WriteArray(g, "v", []float32{1}), ErrShapeMismatch)

	_, err = g.GetVarBytes("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompressedVariable(t *testing.T) {
	for _, codec := range []string{CodecGzip, CodecZstd} {
		s := NewMemoryStore()
		g, err := CreateGroup(s, "")
		require.NoError(t, err)
		require.NoError(t, g.DefDim("n", 4096))
		require.NoError(t, g.DefVar("bytes", DtypeUint8, []string{"n"}, WithChunks(4096), WithCompression(codec, ZLevelHigh)))

		meta, err := g.VarMeta("bytes")
		require.NoError(t, err)
		assert.Equal(t, &CompressionMeta{ID: codec, Clevel: ZLevelHigh}, meta.Compressor)

		raw := make([]byte, 4096)
		require.NoError(t, g.PutVarBytes("bytes", raw))
		assert.Less(t, len(readKey(t, s, "bytes/0")), len(raw))

		got, err := g.GetVarBytes("bytes")
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	}

	g, err := CreateGroup(NewMemoryStore(), "")
	require.NoError(t, err)
	require.NoError(t, g.DefDim("n", 1))
	assert.Error(t, g.DefVar("v", DtypeUint8, []string{"n"}, WithCompression("blosc", 1)))

	// level 0 stores the variable raw
	require.NoError(t, g.DefVar("raw", DtypeUint8, []string{"n"}, WithCompression(CodecGzip, ZLevelNone)))
	meta, err := g.VarMeta("raw")
	require.NoError(t, err)
	assert.Nil(t, meta.Compressor)
}

func TestAttributes(t *testing.T) {
	g, err := CreateGroup(NewMemoryStore(), "v")
	require.NoError(t, err)

	_, err = g.GetAttr("_ndims_")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, g.PutAttr("_ndims_", 3))
	require.NoError(t, g.PutAttr("_xtype_", "<f4"))
	require.NoError(t, g.PutAttr("_dims_", []string{"t", "y", "x"}))

	n, err := g.GetAttrInt("_ndims_")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	s, err := g.GetAttrString("_xtype_")
	require.NoError(t, err)
	assert.Equal(t, "<f4", s)
	dims, err := g.GetAttrStrings("_dims_")
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "y", "x"}, dims)

	_, err = g.GetAttrInt("_xtype_")
	assert.Error(t, err)
	_, err = g.GetAttrStrings("_ndims_")
	assert.Error(t, err)

	attrs, err := g.Attrs()
	require.NoError(t, err)
	assert.Len(t, attrs, 3)
}
