package router

import (
	"math"
	"sync"
)

// BoundedMap is a map with a fixed capacity and first-in-first-out eviction.
// Updating an existing key does not refresh its eviction order. Not safe for
// concurrent use, callers hold their own lock.
type BoundedMap[K comparable, V any] struct {
	max   int
	items map[K]V
	order []K
}

func NewBoundedMap[K comparable, V any](max int) *BoundedMap[K, V] {
	if max < 1 {
		max = 1
	}
	return &BoundedMap[K, V]{
		max:   max,
		items: make(map[K]V, max),
	}
}

func (m *BoundedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.items[key]
	return v, ok
}

// Put inserts or updates key. Inserting a new key at capacity evicts the
// oldest inserted key.
func (m *BoundedMap[K, V]) Put(key K, value V) {
	if _, ok := m.items[key]; ok {
		m.items[key] = value
		return
	}
	if len(m.items) >= m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.items, oldest)
	}
	m.items[key] = value
	m.order = append(m.order, key)
}

func (m *BoundedMap[K, V]) Len() int { return len(m.items) }
func (m *BoundedMap[K, V]) Cap() int { return m.max }

// route cache keys round coordinates to 5 decimal places, about one meter,
// so jittery client coordinates still hit
const coordRoundFactor = 1e5

func roundCoord(v float64) float64 {
	return math.Round(v*coordRoundFactor) / coordRoundFactor
}

type routeKey struct {
	oLat, oLon float64
	dLat, dLon float64
	floodIndex int
	routeType  RouteType
	// a best-effort result computed for a missing snapshot must never be
	// served to a strict request, which has to fail with ErrSnapshotNotFound
	bestEffort bool
}

func keyFor(req RouteRequest) routeKey {
	return routeKey{
		oLat:       roundCoord(req.Origin[1]),
		oLon:       roundCoord(req.Origin[0]),
		dLat:       roundCoord(req.Destination[1]),
		dLon:       roundCoord(req.Destination[0]),
		floodIndex: req.FloodIndex,
		routeType:  req.Type,
		bestEffort: req.BestEffort,
	}
}

type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Size    int   `json:"size"`
	MaxSize int   `json:"max_size"`
}

// RouteCache memoizes successful route computations. Results are immutable
// once stored. Errors are never cached, a transient failure should not stick.
type RouteCache struct {
	mu     sync.Mutex
	items  *BoundedMap[routeKey, *RouteResult]
	hits   int64
	misses int64
}

func NewRouteCache(max int) *RouteCache {
	return &RouteCache{items: NewBoundedMap[routeKey, *RouteResult](max)}
}

// GetOrCompute returns the cached result for the request or computes and
// stores it. The compute function runs outside the lock, two racing callers
// with the same key may both compute; the computation is idempotent so the
// duplicate work is harmless.
func (c *RouteCache) GetOrCompute(req RouteRequest, compute func() (*RouteResult, error)) (*RouteResult, error) {
	key := keyFor(req)
	c.mu.Lock()
	if res, ok := c.items.Get(key); ok {
		c.hits++
		c.mu.Unlock()
		return res, nil
	}
	c.misses++
	c.mu.Unlock()

	res, err := compute()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.items.Put(key, res)
	c.mu.Unlock()
	return res, nil
}

func (c *RouteCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    c.items.Len(),
		MaxSize: c.items.Cap(),
	}
}
