package raster

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Names of the index dimensions and variables kept in a variable group.
const maskIDsName = "_meta_region_maskid_"

func regionRowsName(maskID int) string      { return fmt.Sprintf("_meta_region_%d_rows_", maskID) }
func regionColsName(maskID int) string      { return fmt.Sprintf("_meta_region_%d_cols_", maskID) }
func regionChunksName(maskID int) string    { return fmt.Sprintf("_meta_region_%d_chunks_", maskID) }
func regionRelationsName(maskID int) string { return fmt.Sprintf("_meta_region_%d_relations_", maskID) }
func regionGroupName(maskID int) string     { return fmt.Sprintf("region_%d", maskID) }
func chunkName(id int) string               { return fmt.Sprintf("chunk_%d", id) }
func chunkSizeName(id int) string           { return fmt.Sprintf("_chunk_%d_size_", id) }

// BuildIndex partitions mask, the category of every cell of the trailing two
// dimensions of shape, and persists the region index of the variable held
// by g. Every region table written is also cached.
func (s *Session) BuildIndex(g *Group, shape []int, mask []int32) error {
	if err := checkRank(shape); err != nil {
		return err
	}
	n := len(shape)
	mesh, err := NewMesh(mask, shape[n-2], shape[n-1], s.cfg.RowsInGrid, s.cfg.ColsInGrid, s.cfg.MergeThreshold)
	if err != nil {
		return errors.Wrap(err, "build mesh")
	}
	ids := mesh.MaskIDs()
	regions, err := BuildRegions(mesh.Partition(), ids, shape)
	if err != nil {
		return err
	}

	ids32 := make([]int32, len(ids))
	for i, id := range ids {
		ids32[i] = int32(id)
	}
	if err := g.DefDim(maskIDsName, len(ids32)); err != nil {
		return err
	}
	if err := g.DefVar(maskIDsName, DtypeInt32, []string{maskIDsName}); err != nil {
		return err
	}
	if err := WriteArray(g, maskIDsName, ids32); err != nil {
		return errors.Wrap(err, "write mask ids")
	}

	nchunks := 0
	for _, r := range regions {
		if err := s.writeRegionIndex(g, r); err != nil {
			return errors.Wrapf(err, "write index of region %d", r.MaskID)
		}
		nchunks += len(r.Chunks)
	}
	s.log.WithFields(logrus.Fields{
		"group":   g.Path(),
		"regions": len(regions),
		"chunks":  nchunks,
	}).Info("built region index")
	return nil
}

func (s *Session) writeRegionIndex(g *Group, r *Region) error {
	table := r.Table()
	rows, cols := regionRowsName(r.MaskID), regionColsName(r.MaskID)
	if err := g.DefDim(rows, table.Len()); err != nil {
		return err
	}
	if err := g.DefDim(cols, table.Cols()); err != nil {
		return err
	}
	if err := g.DefVar(regionChunksName(r.MaskID), DtypeUint64, []string{rows, cols}); err != nil {
		return err
	}
	if err := WriteArray(g, regionChunksName(r.MaskID), table.Data()); err != nil {
		return err
	}

	var rel []int32
	if r.MaskID != MixedID {
		rel = r.Relations()
		name := regionRelationsName(r.MaskID)
		if err := g.DefDim(name, len(rel)); err != nil {
			return err
		}
		if err := g.DefVar(name, DtypeInt32, []string{name}); err != nil {
			return err
		}
		if err := WriteArray(g, name, rel); err != nil {
			return err
		}
	}
	s.cache.AddRegion(g.ID(), r.MaskID, table, rel)
	return nil
}

// MaskIDs returns the categories indexed for the variable held by g, in the
// order they were stored. MixedID is not included.
func (s *Session) MaskIDs(g *Group) ([]int, error) {
	ids32, err := ReadArray[int32](g, maskIDsName)
	if err != nil {
		return nil, errors.Wrap(err, "read mask ids")
	}
	ids := make([]int, len(ids32))
	for i, id := range ids32 {
		ids[i] = int(id)
	}
	return ids, nil
}

// readTable fetches a region table from the backend.
func readTable(g *Group, maskID int) (*RegionTable, error) {
	rows, err := g.DimLen(regionRowsName(maskID))
	if err != nil {
		return nil, err
	}
	cols, err := g.DimLen(regionColsName(maskID))
	if err != nil {
		return nil, err
	}
	data, err := ReadArray[uint64](g, regionChunksName(maskID))
	if err != nil {
		return nil, err
	}
	return NewRegionTable(rows, cols, data)
}

// region returns the cached metadata of a region, fetching and caching it on
// a miss. An unknown category reports ErrNotFound.
func (s *Session) region(g *Group, maskID int) (*CacheBlock, error) {
	if b, ok := s.cache.GetRegion(g.ID(), maskID); ok {
		return b, nil
	}
	table, err := readTable(g, maskID)
	if err != nil {
		return nil, errors.Wrapf(err, "region %d", maskID)
	}
	var rel []int32
	if maskID != MixedID {
		if rel, err = ReadArray[int32](g, regionRelationsName(maskID)); err != nil {
			return nil, errors.Wrapf(err, "relations of region %d", maskID)
		}
	}
	return s.cache.AddRegion(g.ID(), maskID, table, rel), nil
}

// mixedTable returns the lookup table of the mixed region.
func (s *Session) mixedTable(g *Group) (*RegionTable, error) {
	if t, ok := s.cache.GetMixedTable(g.ID()); ok {
		return t, nil
	}
	table, err := readTable(g, MixedID)
	if err != nil {
		return nil, errors.Wrap(err, "mixed region")
	}
	return s.cache.AddMixedTable(g.ID(), table), nil
}
