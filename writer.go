package raster

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// WriteVar writes data, a dense row-major array of shape, as the chunks of
// every region indexed for the variable held by g.
//
// Regions are written in descending category order, which puts MixedID
// first; the backend writes noticeably faster in that order. A failing
// region aborts the whole write.
func WriteVar[T Element](s *Session, g *Group, data []T, shape []int) error {
	if err := checkRank(shape); err != nil {
		return err
	}
	if len(data) != product(shape) {
		return errors.Wrapf(ErrShapeMismatch, "%d elements for shape %v", len(data), shape)
	}
	ids, err := s.MaskIDs(g)
	if err != nil {
		return err
	}
	ids = append(ids, MixedID)
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))

	for _, id := range ids {
		blk, err := s.region(g, id)
		if err != nil {
			return errors.Wrapf(err, "write region %d", id)
		}
		if blk.Table.Len() == 0 {
			continue
		}
		if blk.Table.NDims() != len(shape) {
			return errors.Wrapf(ErrShapeMismatch, "region %d indexes %d dimensions, data has %d", id, blk.Table.NDims(), len(shape))
		}
		if err := writeRegion(s, g, id, blk.Table, data, shape); err != nil {
			return errors.Wrapf(err, "write region %d", id)
		}
	}
	return nil
}

func regionFromTable(maskID int, table *RegionTable) *Region {
	r := &Region{MaskID: maskID, NDims: table.NDims(), Chunks: make([]ChunkPlacement, table.Len())}
	for i := range r.Chunks {
		r.Chunks[i] = table.Placement(i)
	}
	return r
}

func writeRegion[T Element](s *Session, g *Group, maskID int, table *RegionTable, data []T, shape []int) error {
	region := regionFromTable(maskID, table)

	// chunks never overlap, so they are cut out concurrently
	payloads := make([][]byte, len(region.Chunks))
	var eg errgroup.Group
	eg.SetLimit(s.cfg.workers())
	for i, p := range region.Chunks {
		i, p := i, p
		eg.Go(func() error {
			buf := make([]T, product(p.Extent))
			if err := copyOut(buf, data, p.Start, shape, p.Extent); err != nil {
				return errors.Wrapf(err, "chunk %d", p.ID)
			}
			payloads[i] = encodeElements(buf)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	level, err := s.deflateLevel(payloads)
	if err != nil {
		return errors.Wrap(err, "sample compression ratio")
	}
	region.DeflateLevel = level

	rg, err := g.CreateGroup(regionGroupName(maskID))
	if err != nil {
		return err
	}
	for i, p := range region.Chunks {
		size := chunkSizeName(p.ID)
		if err := rg.DefDim(size, len(payloads[i])); err != nil {
			return err
		}
		var opts []VarOption
		if region.DeflateLevel != ZLevelNone {
			opts = append(opts, WithChunks(len(payloads[i])), WithCompression(s.cfg.Codec, region.DeflateLevel))
		}
		if err := rg.DefVar(chunkName(p.ID), DtypeUint8, []string{size}, opts...); err != nil {
			return err
		}
		if err := rg.PutVarBytes(chunkName(p.ID), payloads[i]); err != nil {
			return errors.Wrapf(err, "chunk %d", p.ID)
		}
		s.metrics.chunkWritten(len(payloads[i]))
		payloads[i] = nil
	}
	s.metrics.regionLevel(region.DeflateLevel)

	s.log.WithFields(logrus.Fields{
		"group":  g.Path(),
		"region": maskID,
		"chunks": len(region.Chunks),
		"level":  region.DeflateLevel,
	}).Debug("wrote region")
	return nil
}

// deflateLevel compresses randomly chosen payloads and bands their average
// compression ratio into a deflate level.
func (s *Session) deflateLevel(payloads [][]byte) (int, error) {
	n := s.cfg.CompressionSamples
	if n == 0 || len(payloads) == 0 {
		return ZLevelNone, nil
	}
	ratios := make([]float64, n)
	var eg errgroup.Group
	eg.SetLimit(s.cfg.workers())
	for i := 0; i < n; i++ {
		i := i
		sample := payloads[s.intn(len(payloads))]
		eg.Go(func() error {
			r, err := compressionRatio(s.cfg.Codec, ZLevelHigh, sample)
			ratios[i] = r
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return ZLevelNone, err
	}
	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	return LevelForRatio(sum / float64(n)), nil
}
