package router

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// onSegment reports whether p lies on segment ab, assuming the three points
// are collinear.
func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}

// segmentsCross reports whether segments ab and cd intersect, touching
// endpoints included.
func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(c, d, a) {
		return true
	}
	if d2 == 0 && onSegment(c, d, b) {
		return true
	}
	if d3 == 0 && onSegment(a, b, c) {
		return true
	}
	return d4 == 0 && onSegment(a, b, d)
}

// lineIntersectsPolygon reports whether the line touches the polygon's
// interior or boundary. A vertex inside the polygon or any segment crossing
// a ring segment counts; a line fully containing the polygon does not occur
// for road segments and is not handled.
func lineIntersectsPolygon(ls orb.LineString, poly orb.Polygon) bool {
	if len(ls) == 0 || len(poly) == 0 {
		return false
	}
	for _, p := range ls {
		if planar.PolygonContains(poly, p) {
			return true
		}
	}
	for i := 0; i < len(ls)-1; i++ {
		for _, ring := range poly {
			for j := 0; j < len(ring)-1; j++ {
				if segmentsCross(ls[i], ls[i+1], ring[j], ring[j+1]) {
					return true
				}
			}
		}
	}
	return false
}
