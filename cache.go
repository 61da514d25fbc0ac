package raster

import (
	"sync"

	"github.com/google/btree"
)

// DefaultCacheCapacity is the number of region entries a MetaCache holds
// unless configured otherwise.
const DefaultCacheCapacity = 128

// CacheBlock is a cached region table and its relation table. The cache owns
// both; holders must treat them as read-only.
type CacheBlock struct {
	Table     *RegionTable
	Relations []int32
}

type cacheEntry struct {
	key   uint64
	block *CacheBlock
}

func cacheEntryLess(a, b cacheEntry) bool { return a.key < b.key }

// CacheKey is the region cache key of a storage object and category. Keys of
// distinct pairs may collide; the first entry inserted under a key wins.
func CacheKey(objectID uint64, maskID int) uint64 {
	return objectID ^ uint64(maskID)
}

// MetaCache keeps region tables and mixed lookup tables of storage objects
// so reads and writes do not fetch them from the backend again.
//
// Region entries are bounded by the capacity. When full, the entry with the
// smallest key is evicted, which is deterministic but unrelated to access
// order. Mixed tables are one per storage object and never evicted.
type MetaCache struct {
	mu       sync.RWMutex
	capacity int
	regions  *btree.BTreeG[cacheEntry]
	mixed    map[uint64]*RegionTable
	metrics  *Metrics
}

func NewMetaCache(capacity int, metrics *Metrics) *MetaCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &MetaCache{
		capacity: capacity,
		regions:  btree.NewG[cacheEntry](16, cacheEntryLess),
		mixed:    map[uint64]*RegionTable{},
		metrics:  metrics,
	}
}

func (c *MetaCache) Capacity() int { return c.capacity }

// Len is the number of region entries.
func (c *MetaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.regions.Len()
}

func (c *MetaCache) GetRegion(objectID uint64, maskID int) (*CacheBlock, bool) {
	c.mu.RLock()
	e, ok := c.regions.Get(cacheEntry{key: CacheKey(objectID, maskID)})
	c.mu.RUnlock()
	c.metrics.cacheLookup("region", ok)
	if !ok {
		return nil, false
	}
	return e.block, true
}

// AddRegion hands table and relations to the cache and returns the block now
// cached under the key. When the key is already present the existing block
// is kept and returned.
func (c *MetaCache) AddRegion(objectID uint64, maskID int, table *RegionTable, relations []int32) *CacheBlock {
	key := CacheKey(objectID, maskID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.regions.Get(cacheEntry{key: key}); ok {
		return e.block
	}
	if c.regions.Len() >= c.capacity {
		c.regions.DeleteMin()
		c.metrics.cacheEviction()
	}
	b := &CacheBlock{Table: table, Relations: relations}
	c.regions.ReplaceOrInsert(cacheEntry{key: key, block: b})
	return b
}

func (c *MetaCache) GetMixedTable(objectID uint64) (*RegionTable, bool) {
	c.mu.RLock()
	t, ok := c.mixed[objectID]
	c.mu.RUnlock()
	c.metrics.cacheLookup("mixed", ok)
	return t, ok
}

// AddMixedTable caches the mixed lookup table of a storage object and
// returns the table now cached for it.
func (c *MetaCache) AddMixedTable(objectID uint64, table *RegionTable) *RegionTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.mixed[objectID]; ok {
		return t
	}
	c.mixed[objectID] = table
	return table
}

// Purge drops every entry.
func (c *MetaCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions.Clear(false)
	c.mixed = map[uint64]*RegionTable{}
}
