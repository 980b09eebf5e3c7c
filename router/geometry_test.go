package router

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestSegmentsCross(t *testing.T) {
	a, b := orb.Point{0, 0}, orb.Point{2, 2}
	assert.True(t, segmentsCross(a, b, orb.Point{0, 2}, orb.Point{2, 0}))
	assert.False(t, segmentsCross(a, b, orb.Point{3, 0}, orb.Point{4, 1}))

	// touching endpoint counts
	assert.True(t, segmentsCross(a, b, orb.Point{2, 2}, orb.Point{3, 0}))

	// collinear overlap
	assert.True(t, segmentsCross(a, b, orb.Point{1, 1}, orb.Point{3, 3}))
	// collinear but disjoint
	assert.False(t, segmentsCross(a, b, orb.Point{3, 3}, orb.Point{4, 4}))
}

func TestLineIntersectsPolygon(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}

	// vertex inside
	assert.True(t, lineIntersectsPolygon(orb.LineString{{1, 1}, {5, 5}}, square))
	// crosses without any vertex inside
	assert.True(t, lineIntersectsPolygon(orb.LineString{{-1, 1}, {3, 1}}, square))
	// fully outside
	assert.False(t, lineIntersectsPolygon(orb.LineString{{3, 3}, {5, 3}}, square))
	// empty inputs
	assert.False(t, lineIntersectsPolygon(nil, square))
	assert.False(t, lineIntersectsPolygon(orb.LineString{{1, 1}}, nil))
}
