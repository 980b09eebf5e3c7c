package router_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/floodwatch/routing/router"
)

func TestSpatialIndexNearestNode(t *testing.T) {
	g, err := router.NewGraph(testNetwork(), 30, 1e6)
	assert.NoError(t, err)
	idx := router.NewSpatialIndex(g)

	cases := []struct {
		point orb.Point
		want  int64
	}{
		{orb.Point{0.0002, -0.0001}, 1},
		{orb.Point{0.0099, 0.0001}, 2},
		{orb.Point{0.005, 0.009}, 3},
		{orb.Point{0.06, 0.06}, 4},
	}
	for _, c := range cases {
		ni, ok := idx.NearestNode(c.point)
		assert.True(t, ok)
		n := g.NodeAt(ni)
		assert.Equal(t, c.want, n.ID)
	}
}

func TestSpatialIndexNearestEdge(t *testing.T) {
	g, err := router.NewGraph(testNetwork(), 30, 1e6)
	assert.NoError(t, err)
	idx := router.NewSpatialIndex(g)

	// on the direct edge
	id, ok := idx.NearestEdge(orb.Point{0.005, 0})
	assert.True(t, ok)
	assert.Equal(t, router.EdgeID{From: 1, To: 2}, id)

	// near the second detour leg
	id, ok = idx.NearestEdge(orb.Point{0.0075, 0.005})
	assert.True(t, ok)
	assert.Equal(t, router.EdgeID{From: 3, To: 2}, id)

	// too far from any edge
	_, ok = idx.NearestEdge(orb.Point{5, 5})
	assert.False(t, ok)
}

func TestSpatialIndexCandidateEdges(t *testing.T) {
	g, err := router.NewGraph(testNetwork(), 30, 1e6)
	assert.NoError(t, err)
	idx := router.NewSpatialIndex(g)

	// box around the whole triangle covers every edge exactly once
	all := idx.CandidateEdges(orb.Bound{
		Min: orb.Point{-0.001, -0.001},
		Max: orb.Point{0.011, 0.011},
	})
	assert.Len(t, all, 3)

	// box far away from the network is empty
	none := idx.CandidateEdges(orb.Bound{
		Min: orb.Point{5, 5},
		Max: orb.Point{5.001, 5.001},
	})
	assert.Empty(t, none)
}
