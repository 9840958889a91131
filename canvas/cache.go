package canvas

import (
	"github.com/gogpu/vg"
	"github.com/gogpu/vg/cache"
)

// cacheKey identifies the tessellation of one path. Copy-on-write gives a
// mutated path a new address, so the pointer doubles as a content version
// across snapshots.
type cacheKey struct {
	id        uint64
	path      *vg.Path
	tolerance float64
	aaWidth   float64
}

// VertexCache keeps per-path vertex data across draws. It is safe for
// concurrent use and may be shared by several canvases.
type VertexCache struct {
	c *cache.Sharded[cacheKey, *VertexData]
}

// NewVertexCache creates a cache holding up to perShard entries in each of
// its cache.ShardCount shards.
func NewVertexCache(perShard int) *VertexCache {
	return &VertexCache{c: cache.NewSharded[cacheKey, *VertexData](perShard, nil)}
}

func (vc *VertexCache) get(k cacheKey) (*VertexData, bool) { return vc.c.Get(k) }

func (vc *VertexCache) put(k cacheKey, d *VertexData) { vc.c.Set(k, d) }

// Invalidate drops every entry stored under the cache id.
func (vc *VertexCache) Invalidate(id uint64) int {
	return vc.c.DeleteFunc(func(k cacheKey, _ *VertexData) bool { return k.id == id })
}

// Clear drops all entries.
func (vc *VertexCache) Clear() { vc.c.Clear() }

// Len returns the number of cached paths.
func (vc *VertexCache) Len() int { return vc.c.Len() }

// Stats returns hit and miss counters.
func (vc *VertexCache) Stats() cache.Stats { return vc.c.Stats() }
