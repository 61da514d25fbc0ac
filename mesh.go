package raster

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// BlockType classifies a mesh chunk by how much of it its largest category
// covers.
type BlockType byte

const (
	// Pure chunks are covered by a single category.
	Pure BlockType = 'P'
	// Major chunks have one category covering more than MajorThreshold.
	Major BlockType = 'M'
	// Mixed chunks have no dominant category.
	Mixed BlockType = 'X'
)

func (t BlockType) String() string {
	switch t {
	case Pure:
		return "PURE"
	case Major:
		return "MAJOR"
	case Mixed:
		return "MIXED"
	default:
		return fmt.Sprintf("BlockType(%d)", byte(t))
	}
}

const (
	// NoMajor is the major index of a chunk without a dominant category.
	NoMajor = -10000
	// MajorThreshold is the share a category must exceed to dominate a chunk.
	MajorThreshold = 0.5
)

// MeshChunk is a 2D candidate chunk of a mask and its category histogram.
type MeshChunk struct {
	StartRow, StartCol int
	SizeRow, SizeCol   int
	// Counts maps a category id to the number of cells it covers.
	Counts map[int]int
	Type   BlockType
}

func newMeshChunk(r, c, sizeR, sizeC int) *MeshChunk {
	return &MeshChunk{
		StartRow: r,
		StartCol: c,
		SizeRow:  sizeR,
		SizeCol:  sizeC,
		Counts:   map[int]int{},
		Type:     Pure,
	}
}

// Keys returns the categories present in the chunk, ascending.
func (c *MeshChunk) Keys() []int {
	keys := make([]int, 0, len(c.Counts))
	for k := range c.Counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// top returns the category with the most cells and its share of the chunk.
// Ties go to the smaller category id.
func (c *MeshChunk) top() (id int, share float64) {
	best, n := 0, -1
	for _, k := range c.Keys() {
		if c.Counts[k] > n {
			best, n = k, c.Counts[k]
		}
	}
	area := c.SizeRow * c.SizeCol
	if area == 0 || n <= 0 {
		return best, 0
	}
	return best, float64(n) / float64(area)
}

// MajorIndex is the category covering more than MajorThreshold of the chunk,
// or NoMajor.
func (c *MeshChunk) MajorIndex() int {
	id, share := c.top()
	if share > MajorThreshold {
		return id
	}
	return NoMajor
}

func (c *MeshChunk) classify() {
	_, share := c.top()
	switch {
	case share == 1:
		c.Type = Pure
	case share > MajorThreshold:
		c.Type = Major
	default:
		c.Type = Mixed
	}
}

// absorb merges next, the chunk immediately right of c, into c.
func (c *MeshChunk) absorb(next *MeshChunk) {
	c.SizeCol += next.SizeCol
	for k, n := range next.Counts {
		c.Counts[k] += n
	}
	c.classify()
}

func (c *MeshChunk) String() string {
	parts := make([]string, 0, len(c.Counts))
	for _, k := range c.Keys() {
		parts = append(parts, fmt.Sprintf("%d: %d", k, c.Counts[k]))
	}
	return fmt.Sprintf("<chunk start: (%d,%d), size: (%d,%d), content = {%s}, major = %d>",
		c.StartRow, c.StartCol, c.SizeRow, c.SizeCol, strings.Join(parts, ", "), c.MajorIndex())
}

// Mesh partitions a 2D category mask into a grid of chunks and merges
// neighbouring chunks of the same class within each row.
type Mesh struct {
	mask                   []int32
	nrows, ncols           int
	rowsInGrid, colsInGrid int
	mergeThreshold         float64

	once       sync.Once
	partitions [][]*MeshChunk
}

// NewMesh copies mask, a row-major nrows x ncols array, and prepares a grid
// of rowsInGrid x colsInGrid cells. Chunks wider than mergeThreshold times
// the mask width are never grown further; 1 leaves merging unrestricted.
func NewMesh(mask []int32, nrows, ncols, rowsInGrid, colsInGrid int, mergeThreshold float64) (*Mesh, error) {
	if nrows <= 0 || ncols <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "mask shape %dx%d", nrows, ncols)
	}
	if len(mask) != nrows*ncols {
		return nil, errors.Wrapf(ErrShapeMismatch, "mask holds %d cells, shape %dx%d", len(mask), nrows, ncols)
	}
	if rowsInGrid <= 0 || colsInGrid <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "grid %dx%d", rowsInGrid, colsInGrid)
	}
	// a grid finer than the mask would produce empty cells
	if rowsInGrid > nrows {
		rowsInGrid = nrows
	}
	if colsInGrid > ncols {
		colsInGrid = ncols
	}
	return &Mesh{
		mask:           append([]int32(nil), mask...),
		nrows:          nrows,
		ncols:          ncols,
		rowsInGrid:     rowsInGrid,
		colsInGrid:     colsInGrid,
		mergeThreshold: mergeThreshold,
	}, nil
}

func (m *Mesh) Rows() int { return m.nrows }

func (m *Mesh) Cols() int { return m.ncols }

// Partition returns the merged chunks, one slice per row band, ordered left
// to right. It is computed on first use; callers must not modify the result.
func (m *Mesh) Partition() [][]*MeshChunk {
	m.once.Do(func() {
		rowLength := m.nrows / m.rowsInGrid
		colLength := m.ncols / m.colsInGrid
		for i := 0; i < m.rowsInGrid; i++ {
			sr := rowLength
			if i == m.rowsInGrid-1 {
				sr = m.nrows - i*rowLength
			}
			row := make([]*MeshChunk, 0, m.colsInGrid)
			for j := 0; j < m.colsInGrid; j++ {
				sc := colLength
				if j == m.colsInGrid-1 {
					sc = m.ncols - j*colLength
				}
				row = append(row, newMeshChunk(i*rowLength, j*colLength, sr, sc))
			}
			m.partitions = append(m.partitions, m.mergeRow(row))
		}
	})
	return m.partitions
}

func (m *Mesh) histogram(c *MeshChunk) {
	for i := c.StartRow; i < c.StartRow+c.SizeRow; i++ {
		for _, v := range m.mask[i*m.ncols+c.StartCol : i*m.ncols+c.StartCol+c.SizeCol] {
			c.Counts[int(v)]++
		}
	}
	c.classify()
}

// mergeRow makes a single left to right pass over row. A chunk that absorbs
// its neighbour is compared again with the new neighbour.
func (m *Mesh) mergeRow(row []*MeshChunk) []*MeshChunk {
	for _, c := range row {
		m.histogram(c)
	}
	limit := m.mergeThreshold * float64(m.ncols)
	for i := 0; i < len(row)-1; {
		if !mergeable(row[i], row[i+1], limit) {
			i++
			continue
		}
		row[i].absorb(row[i+1])
		row = append(row[:i+1], row[i+2:]...)
	}
	return row
}

func mergeable(cur, next *MeshChunk, limit float64) bool {
	// bounds the granularity of out of order reads
	if float64(cur.SizeCol) > limit {
		return false
	}
	if cur.Type == Mixed && !equalInts(cur.Keys(), next.Keys()) {
		return false
	}
	if cur.MajorIndex() != next.MajorIndex() {
		return false
	}
	union := len(cur.Counts)
	for k := range next.Counts {
		if _, ok := cur.Counts[k]; !ok {
			union++
		}
	}
	return union < 3
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MaskIDs returns every category present in the mask, ascending.
func (m *Mesh) MaskIDs() []int {
	seen := map[int]struct{}{}
	for _, row := range m.Partition() {
		for _, c := range row {
			for k := range c.Counts {
				seen[k] = struct{}{}
			}
		}
	}
	ids := make([]int, 0, len(seen))
	for k := range seen {
		ids = append(ids, k)
	}
	sort.Ints(ids)
	return ids
}

// ExportFormat selects the layout written by Mesh.Export.
type ExportFormat int

const (
	// ExportHuman lists each row band and its chunks.
	ExportHuman ExportFormat = iota
	// ExportColumns writes "start_col start_row size_col size_row major"
	// per chunk, for plotting scripts.
	ExportColumns
)

func (m *Mesh) Export(w io.Writer, format ExportFormat) error {
	for i, row := range m.Partition() {
		if format == ExportHuman {
			if _, err := fmt.Fprintf(w, "ROW %d\n", i); err != nil {
				return err
			}
		}
		for _, c := range row {
			var err error
			if format == ExportHuman {
				_, err = fmt.Fprintf(w, "  %s\n", c)
			} else {
				_, err = fmt.Fprintf(w, "%d %d %d %d %d\n", c.StartCol, c.StartRow, c.SizeCol, c.SizeRow, c.MajorIndex())
			}
			if err != nil {
				return err
			}
		}
		if format == ExportHuman {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}
