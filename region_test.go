package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRegions(t *testing.T) {
	// row 0: pure 1 | mixed {1,2}
	// row 1: major 2 (one 3) | pure 2
	mask := []int32{
		1, 1, 1, 2,
		1, 1, 2, 1,
		2, 2, 2, 2,
		2, 3, 2, 2,
	}
	m, err := NewMesh(mask, 4, 4, 2, 2, 0.1)
	require.NoError(t, err)
	regions, err := BuildRegions(m.Partition(), m.MaskIDs(), []int{3, 4, 4})
	require.NoError(t, err)
	require.Len(t, regions, 4)

	byID := map[int]*Region{}
	for _, r := range regions {
		assert.Equal(t, 3, r.NDims)
		byID[r.MaskID] = r
	}
	assert.Equal(t, MixedID, regions[len(regions)-1].MaskID)

	one, two, three, mixed := byID[1], byID[2], byID[3], byID[MixedID]
	require.Len(t, one.Chunks, 1)
	assert.Equal(t, ChunkPlacement{ID: 0, Start: []int{0, 0, 0}, Extent: []int{3, 2, 2}}, one.Chunks[0])
	assert.Equal(t, []int{1}, one.Related)

	require.Len(t, mixed.Chunks, 1)
	assert.Equal(t, ChunkPlacement{ID: 1, Start: []int{0, 0, 2}, Extent: []int{3, 2, 2}}, mixed.Chunks[0])

	require.Len(t, two.Chunks, 2)
	assert.Equal(t, []int{2, 3}, []int{two.Chunks[0].ID, two.Chunks[1].ID})
	assert.Equal(t, []int{1}, two.Related)

	// the 3 inside a major chunk is folded into category 2
	assert.Empty(t, three.Chunks)
	assert.Empty(t, three.Related)
}

func TestBuildRegionsRank(t *testing.T) {
	m, err := NewMesh([]int32{1}, 1, 1, 1, 1, 1)
	require.NoError(t, err)
	_, err = BuildRegions(m.Partition(), m.MaskIDs(), []int{1})
	assert.ErrorIs(t, err, ErrUnsupportedRank)
	_, err = BuildRegions(m.Partition(), m.MaskIDs(), []int{1, 1, 1, 1, 1})
	assert.ErrorIs(t, err, ErrUnsupportedRank)
	_, err = BuildRegions(m.Partition(), m.MaskIDs(), []int{2, 1, 1, 1})
	assert.NoError(t, err)
}

func TestBuildRegionsRejectsMixedCategory(t *testing.T) {
	m, err := NewMesh([]int32{MixedID}, 1, 1, 1, 1, 1)
	require.NoError(t, err)
	_, err = BuildRegions(m.Partition(), m.MaskIDs(), []int{1, 1})
	assert.Error(t, err)
}

func TestBuildRegionsOutOfRange(t *testing.T) {
	m, err := NewMesh(make([]int32, 16), 4, 4, 2, 2, 1)
	require.NoError(t, err)
	_, err = BuildRegions(m.Partition(), m.MaskIDs(), []int{2, 2})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestRegionTable(t *testing.T) {
	r := &Region{MaskID: 4, NDims: 2}
	r.add(ChunkPlacement{ID: 3, Start: []int{0, 2}, Extent: []int{2, 5}})
	r.add(ChunkPlacement{ID: 9, Start: []int{2, 0}, Extent: []int{1, 7}})

	table := r.Table()
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 5, table.Cols())
	assert.Equal(t, 2, table.NDims())
	assert.Equal(t, []uint64{3, 0, 2, 2, 5, 9, 2, 0, 1, 7}, table.Data())
	assert.Equal(t, 9, table.ID(1))
	assert.Equal(t, r.Chunks[1], table.Placement(1))
	assert.Equal(t, 1, table.Find(9))
	assert.Equal(t, -1, table.Find(4))

	parsed, err := NewRegionTable(2, 5, table.Data())
	require.NoError(t, err)
	assert.Equal(t, r.Chunks[0], parsed.Placement(0))
}

func TestNewRegionTableErrors(t *testing.T) {
	_, err := NewRegionTable(1, 4, make([]uint64, 4))
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = NewRegionTable(1, 1, make([]uint64, 1))
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = NewRegionTable(2, 5, make([]uint64, 5))
	assert.ErrorIs(t, err, ErrInvalidTable)

	empty, err := NewRegionTable(0, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestRegionRelations(t *testing.T) {
	r := &Region{MaskID: 1, NDims: 2}
	r.relate(4)
	r.relate(17)
	assert.Equal(t, []int32{4, 17}, r.Relations())
	assert.Equal(t, []int32{}, (&Region{}).Relations())
}
