package raster

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ReadRegion fills dst, a dense row-major array of shape, with the chunks of
// category maskID. With withRelations set, the mixed chunks that overlap the
// category are read too. Cells outside the selected chunks are left as they
// were.
//
// An unknown category reports ErrNotFound before dst is touched.
func ReadRegion[T Element](s *Session, g *Group, maskID int, dst []T, shape []int, withRelations bool) error {
	if err := checkShape(dst, shape); err != nil {
		return err
	}
	blk, err := s.region(g, maskID)
	if err != nil {
		return err
	}
	if err := checkTableRank(blk.Table, shape); err != nil {
		return err
	}

	var (
		mixed   *RegionTable
		related []ChunkPlacement
	)
	if withRelations && len(blk.Relations) > 0 {
		if mixed, err = s.mixedTable(g); err != nil {
			return err
		}
		related = make([]ChunkPlacement, len(blk.Relations))
		for i, id := range blk.Relations {
			row := mixed.Find(int(id))
			if row < 0 {
				return errors.Wrapf(ErrNotFound, "region %d relates chunk %d, absent from the mixed region", maskID, id)
			}
			related[i] = mixed.Placement(row)
		}
	}

	if err := readChunks(s, g, maskID, regionFromTable(maskID, blk.Table).Chunks, dst, shape); err != nil {
		return errors.Wrapf(err, "read region %d", maskID)
	}
	if len(related) > 0 {
		if err := readChunks(s, g, MixedID, related, dst, shape); err != nil {
			return errors.Wrapf(err, "read relations of region %d", maskID)
		}
	}
	return nil
}

// ReadVar fills dst, a dense row-major array of shape, with every chunk of
// the variable held by g. Categories are read in descending order and the
// mixed region last. A category whose region is missing is skipped.
func ReadVar[T Element](s *Session, g *Group, dst []T, shape []int) error {
	if err := checkShape(dst, shape); err != nil {
		return err
	}
	ids, err := s.MaskIDs(g)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))

	log := s.log.WithField("group", g.Path())
	for _, id := range ids {
		err := ReadRegion(s, g, id, dst, shape, false)
		if errors.Is(err, ErrNotFound) {
			log.WithError(err).WithField("region", id).Warn("skipping missing region")
			continue
		}
		if err != nil {
			return err
		}
	}

	mixed, err := s.mixedTable(g)
	if err != nil {
		return err
	}
	if err := checkTableRank(mixed, shape); err != nil {
		return err
	}
	if err := readChunks(s, g, MixedID, regionFromTable(MixedID, mixed).Chunks, dst, shape); err != nil {
		return errors.Wrap(err, "read mixed region")
	}
	log.WithFields(logrus.Fields{
		"regions": len(ids) + 1,
	}).Debug("read variable")
	return nil
}

func checkShape[T any](dst []T, shape []int) error {
	if err := checkRank(shape); err != nil {
		return err
	}
	if len(dst) != product(shape) {
		return errors.Wrapf(ErrShapeMismatch, "%d elements for shape %v", len(dst), shape)
	}
	return nil
}

func checkTableRank(t *RegionTable, shape []int) error {
	if t.Len() > 0 && t.NDims() != len(shape) {
		return errors.Wrapf(ErrShapeMismatch, "table indexes %d dimensions, destination has %d", t.NDims(), len(shape))
	}
	return nil
}

// readChunks decodes the listed chunks of region maskID into dst. Chunks
// never overlap, so they are read concurrently.
func readChunks[T Element](s *Session, g *Group, maskID int, chunks []ChunkPlacement, dst []T, shape []int) error {
	if len(chunks) == 0 {
		return nil
	}
	rg, err := g.Group(regionGroupName(maskID))
	if err != nil {
		return err
	}
	var eg errgroup.Group
	eg.SetLimit(s.cfg.workers())
	for _, p := range chunks {
		p := p
		eg.Go(func() error {
			d, err := rg.GetVarBytes(chunkName(p.ID))
			if err != nil {
				return err
			}
			buf := make([]T, product(p.Extent))
			if err := decodeElements(buf, d); err != nil {
				return errors.Wrapf(err, "chunk %d", p.ID)
			}
			if err := copyIn(dst, buf, p.Start, shape, p.Extent); err != nil {
				return errors.Wrapf(err, "chunk %d", p.ID)
			}
			s.metrics.chunkRead()
			return nil
		})
	}
	return eg.Wait()
}
