package raster

import (
	"sort"

	"github.com/pkg/errors"
)

// MixedID is the region of chunks without a dominant category.
const MixedID = 65535

// ChunkPlacement locates one stored chunk inside its variable. Start and
// Extent cover every dimension; only the trailing two are ever partial.
type ChunkPlacement struct {
	ID     int
	Start  []int
	Extent []int
}

// Region is every chunk attributed to one category, or to MixedID.
type Region struct {
	MaskID int
	NDims  int
	Chunks []ChunkPlacement
	// Related lists the ids of MixedID chunks that overlap this category.
	Related      []int
	DeflateLevel int
}

func (r *Region) add(p ChunkPlacement) {
	r.Chunks = append(r.Chunks, p)
}

func (r *Region) relate(id int) {
	r.Related = append(r.Related, id)
}

// Table serializes the placements into the on-disk region table.
func (r *Region) Table() *RegionTable {
	cols := 1 + 2*r.NDims
	data := make([]uint64, 0, len(r.Chunks)*cols)
	for _, p := range r.Chunks {
		data = append(data, uint64(p.ID))
		for _, s := range p.Start {
			data = append(data, uint64(s))
		}
		for _, e := range p.Extent {
			data = append(data, uint64(e))
		}
	}
	return &RegionTable{rows: len(r.Chunks), cols: cols, data: data}
}

// Relations serializes the relation table.
func (r *Region) Relations() []int32 {
	rel := make([]int32, len(r.Related))
	for i, id := range r.Related {
		rel[i] = int32(id)
	}
	return rel
}

// RegionTable is the persisted index of one region: a row-major matrix with
// one row per chunk, [id, start_0..start_d-1, extent_0..extent_d-1].
// Tables are immutable once built.
type RegionTable struct {
	rows, cols int
	data       []uint64
}

// NewRegionTable wraps data, a rows x cols matrix. The table takes ownership
// of data.
func NewRegionTable(rows, cols int, data []uint64) (*RegionTable, error) {
	if rows < 0 || cols < 3 || cols%2 == 0 {
		return nil, errors.Wrapf(ErrInvalidTable, "%d x %d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, errors.Wrapf(ErrInvalidTable, "%d x %d table holds %d values", rows, cols, len(data))
	}
	return &RegionTable{rows: rows, cols: cols, data: data}, nil
}

func (t *RegionTable) Len() int { return t.rows }

func (t *RegionTable) Cols() int { return t.cols }

// NDims is the rank of the variable the table indexes.
func (t *RegionTable) NDims() int { return (t.cols - 1) / 2 }

func (t *RegionTable) ID(i int) int { return int(t.data[i*t.cols]) }

func (t *RegionTable) Placement(i int) ChunkPlacement {
	row := t.data[i*t.cols : (i+1)*t.cols]
	d := t.NDims()
	p := ChunkPlacement{ID: int(row[0]), Start: make([]int, d), Extent: make([]int, d)}
	for j := 0; j < d; j++ {
		p.Start[j] = int(row[1+j])
		p.Extent[j] = int(row[1+d+j])
	}
	return p
}

// Find returns the row holding chunk id, or -1.
func (t *RegionTable) Find(id int) int {
	for i := 0; i < t.rows; i++ {
		if t.ID(i) == id {
			return i
		}
	}
	return -1
}

// Data returns the flattened matrix. It must not be modified.
func (t *RegionTable) Data() []uint64 { return t.data }

func checkRank(shape []int) error {
	if n := len(shape); n < 2 || n > 4 {
		return errors.Wrapf(ErrUnsupportedRank, "%d dimensions", n)
	}
	return nil
}

// BuildRegions assigns every mesh chunk to a region and extends it to the
// full rank of shape. Pure and major chunks belong to their major category;
// mixed chunks belong to MixedID and are listed in the relation table of
// every category they contain. Chunk ids number the chunks in mesh order.
//
// The result holds one region per maskIDs entry, ascending, followed by the
// MixedID region.
func BuildRegions(rows [][]*MeshChunk, maskIDs []int, shape []int) ([]*Region, error) {
	if err := checkRank(shape); err != nil {
		return nil, err
	}
	ndims := len(shape)
	ids := append([]int(nil), maskIDs...)
	sort.Ints(ids)

	byID := make(map[int]*Region, len(ids)+1)
	regions := make([]*Region, 0, len(ids)+1)
	for _, id := range ids {
		if id == MixedID {
			return nil, errors.Errorf("category %d collides with the mixed region id", id)
		}
		if _, ok := byID[id]; ok {
			continue
		}
		r := &Region{MaskID: id, NDims: ndims}
		byID[id] = r
		regions = append(regions, r)
	}
	mixed := &Region{MaskID: MixedID, NDims: ndims}
	regions = append(regions, mixed)

	next := 0
	for _, row := range rows {
		for _, c := range row {
			p := ChunkPlacement{ID: next, Start: make([]int, ndims), Extent: make([]int, ndims)}
			next++
			copy(p.Extent, shape[:ndims-2])
			p.Start[ndims-2], p.Start[ndims-1] = c.StartRow, c.StartCol
			p.Extent[ndims-2], p.Extent[ndims-1] = c.SizeRow, c.SizeCol
			if p.Start[ndims-2]+p.Extent[ndims-2] > shape[ndims-2] || p.Start[ndims-1]+p.Extent[ndims-1] > shape[ndims-1] {
				return nil, errors.Wrapf(ErrOutOfRange, "mesh chunk %v outside shape %v", c, shape)
			}

			major := c.MajorIndex()
			if c.Type == Mixed || major == NoMajor {
				mixed.add(p)
				for _, k := range c.Keys() {
					if r, ok := byID[k]; ok {
						r.relate(p.ID)
					}
				}
				continue
			}
			r, ok := byID[major]
			if !ok {
				return nil, errors.Errorf("chunk %d: category %d missing from mask ids", p.ID, major)
			}
			r.add(p)
		}
	}
	return regions, nil
}
