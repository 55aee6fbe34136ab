package nfp

import (
	"fmt"
	"sync"

	"github.com/piwi3910/deepnest/internal/geom"
)

// Key identifies a computed no-fit polygon by the source geometry and
// discrete rotations of the pair. Rotations are truncated to whole
// degrees; the flip flags are reserved for mirrored imports.
type Key struct {
	ASource   int
	BSource   int
	ARotation int
	BRotation int
	AFlipped  bool
	BFlipped  bool
}

func (k Key) String() string {
	return fmt.Sprintf("%d-%d-%d-%d-%s-%s",
		k.ASource, k.BSource, k.ARotation, k.BRotation,
		flipDigit(k.AFlipped), flipDigit(k.BFlipped))
}

func flipDigit(f bool) string {
	if f {
		return "1"
	}
	return "0"
}

// KeyFor builds a cache key from a polygon pair.
func KeyFor(a, b geom.Polygon) Key {
	return Key{
		ASource:   a.Source,
		BSource:   b.Source,
		ARotation: int(a.Rotation),
		BRotation: int(b.Rotation),
	}
}

type cacheEntry struct {
	inner bool
	nfps  []geom.Polygon
}

// Cache is a keyed store of computed no-fit polygons. Entries are
// deep-cloned on both insert and lookup so the cache never shares
// point storage with callers. A single writer and many concurrent
// readers are safe.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Insert stores nfps under key. The inner tag records whether the
// entry holds an inner NFP list; lookups must pass the same tag.
func (c *Cache) Insert(key Key, inner bool, nfps []geom.Polygon) {
	if len(nfps) == 0 {
		return
	}
	cloned := clonePolygons(nfps)
	c.mu.Lock()
	c.entries[key.String()] = cacheEntry{inner: inner, nfps: cloned}
	c.mu.Unlock()
}

// Find returns a deep copy of the entry for key, or false when the
// key is absent or was stored under the other inner/outer tag.
func (c *Cache) Find(key Key, inner bool) ([]geom.Polygon, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key.String()]
	c.mu.RUnlock()
	if !ok || entry.inner != inner {
		return nil, false
	}
	return clonePolygons(entry.nfps), true
}

// Stats returns the number of stored entries.
func (c *Cache) Stats() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func clonePolygons(polys []geom.Polygon) []geom.Polygon {
	out := make([]geom.Polygon, len(polys))
	for i, p := range polys {
		out[i] = p.Clone()
	}
	return out
}
