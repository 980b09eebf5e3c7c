package router_test

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/floodwatch/routing/router"
)

func TestBoundedMapFIFO(t *testing.T) {
	m := router.NewBoundedMap[string, int](3)
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)
	assert.Equal(t, 3, m.Len())

	// inserting a fourth key evicts the oldest
	m.Put("d", 4)
	assert.Equal(t, 3, m.Len())
	_, ok := m.Get("a")
	assert.False(t, ok)
	v, ok := m.Get("d")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestBoundedMapUpdateKeepsOrder(t *testing.T) {
	m := router.NewBoundedMap[string, int](2)
	m.Put("a", 1)
	m.Put("b", 2)
	// update does not evict and does not refresh eviction order
	m.Put("a", 10)
	assert.Equal(t, 2, m.Len())

	m.Put("c", 3)
	_, ok := m.Get("a")
	assert.False(t, ok)
	v, _ := m.Get("b")
	assert.Equal(t, 2, v)
}

func TestRouteCacheStats(t *testing.T) {
	c := router.NewRouteCache(10)
	req := router.RouteRequest{
		Origin:      orb.Point{0, 0},
		Destination: orb.Point{1, 1},
		Type:        router.RouteShortest,
	}
	calls := 0
	compute := func() (*router.RouteResult, error) {
		calls++
		return &router.RouteResult{DistanceM: 42}, nil
	}

	res, err := c.GetOrCompute(req, compute)
	assert.NoError(t, err)
	assert.Equal(t, 42.0, res.DistanceM)

	// same request within coordinate rounding hits the cache
	req2 := req
	req2.Origin = orb.Point{0.000001, 0.000001}
	res2, err := c.GetOrCompute(req2, compute)
	assert.NoError(t, err)
	assert.Same(t, res, res2)
	assert.Equal(t, 1, calls)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.MaxSize)
}

func TestRouteCacheKeyDiscriminates(t *testing.T) {
	c := router.NewRouteCache(10)
	base := router.RouteRequest{
		Origin:      orb.Point{0, 0},
		Destination: orb.Point{1, 1},
		Type:        router.RouteShortest,
	}
	calls := 0
	compute := func() (*router.RouteResult, error) {
		calls++
		return &router.RouteResult{}, nil
	}

	c.GetOrCompute(base, compute)
	other := base
	other.Type = router.RouteFastest
	c.GetOrCompute(other, compute)
	flooded := base
	flooded.FloodIndex = 3
	c.GetOrCompute(flooded, compute)
	bestEffort := base
	bestEffort.BestEffort = true
	c.GetOrCompute(bestEffort, compute)
	assert.Equal(t, 4, calls)
}

func TestRouteCacheEvictsOldestAtCapacity(t *testing.T) {
	c := router.NewRouteCache(2)
	reqAt := func(lat float64) router.RouteRequest {
		return router.RouteRequest{
			Origin:      orb.Point{0, lat},
			Destination: orb.Point{1, 1},
			Type:        router.RouteShortest,
		}
	}
	calls := 0
	compute := func() (*router.RouteResult, error) {
		calls++
		return &router.RouteResult{}, nil
	}

	c.GetOrCompute(reqAt(0.1), compute)
	c.GetOrCompute(reqAt(0.2), compute)
	c.GetOrCompute(reqAt(0.3), compute)
	assert.Equal(t, 2, c.Stats().Size)

	// the first entry was evicted, the other two are still served
	c.GetOrCompute(reqAt(0.2), compute)
	c.GetOrCompute(reqAt(0.3), compute)
	assert.Equal(t, 3, calls)
	c.GetOrCompute(reqAt(0.1), compute)
	assert.Equal(t, 4, calls)
}

func TestRouteCacheNeverCachesErrors(t *testing.T) {
	c := router.NewRouteCache(10)
	req := router.RouteRequest{Type: router.RouteShortest}
	boom := errors.New("boom")

	_, err := c.GetOrCompute(req, func() (*router.RouteResult, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	res, err := c.GetOrCompute(req, func() (*router.RouteResult, error) {
		return &router.RouteResult{DistanceM: 1}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1.0, res.DistanceM)
}
