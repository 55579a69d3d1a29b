package crystal

import (
	"math"
	"sync"
	"sync/atomic"
)

const DefaultCacheCapacity = 1 << 16

type cacheKey struct {
	bits uint64 // math.Float64bits of the wavelength
	axis Axis
}

type cacheEntry struct {
	n0   float64 // Sellmeier term
	dndt float64 // thermo-optic slope
}

// Cache memoizes the temperature-independent terms of a Crystal by
// (wavelength, axis). It is meant to live for one sweep and be dropped with it.
// Once full it stops inserting and keeps serving existing entries.
type Cache struct {
	crystal  *Crystal
	capacity int

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewCache(c *Crystal, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		crystal:  c,
		capacity: capacity,
		entries:  make(map[cacheKey]cacheEntry),
	}
}

func (c *Cache) Index(w float64, axis Axis, t, tref float64) float64 {
	e := c.lookup(w, axis)
	return e.n0 + e.dndt*(t-tref)
}

func (c *Cache) lookup(w float64, axis Axis) cacheEntry {
	key := cacheKey{bits: math.Float64bits(w), axis: axis}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return e
	}

	c.misses.Add(1)
	e = cacheEntry{
		n0:   c.crystal.Sellmeier(w, axis),
		dndt: c.crystal.ThermoOptic(w, axis),
	}

	c.mu.Lock()
	if len(c.entries) < c.capacity {
		c.entries[key] = e
	}
	c.mu.Unlock()

	return e
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
