package router

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
)

// grid cell edge in degrees, roughly 1km at the equator
const gridCellDeg = 0.01

// how many rings to expand the edge search before giving up
const maxSearchRings = 8

type nodePointer struct {
	pt  orb.Point
	idx int
}

func (n nodePointer) Point() orb.Point { return n.pt }

// SpatialIndex answers nearest-node, nearest-edge and bbox candidate queries
// over the static graph topology. Built once after the graph loads, read-only
// afterwards, safe for concurrent use.
type SpatialIndex struct {
	graph *Graph
	qt    *quadtree.Quadtree
	grid  map[uint64][]int // cell -> edge indices whose geometry bound overlaps
}

func NewSpatialIndex(g *Graph) *SpatialIndex {
	b := g.Bound()
	pad := orb.Bound{
		Min: orb.Point{b.Min[0] - gridCellDeg, b.Min[1] - gridCellDeg},
		Max: orb.Point{b.Max[0] + gridCellDeg, b.Max[1] + gridCellDeg},
	}
	idx := &SpatialIndex{
		graph: g,
		qt:    quadtree.New(pad),
		grid:  make(map[uint64][]int),
	}
	for i := 0; i < g.NumNodes(); i++ {
		n := g.NodeAt(i)
		idx.qt.Add(nodePointer{pt: n.Point(), idx: i})
	}
	for i, e := range g.allEdges() {
		eb := e.Geometry.Bound()
		idx.eachCell(eb, func(key uint64) {
			idx.grid[key] = append(idx.grid[key], i)
		})
	}
	log.Debugf("spatial index built, %d nodes, %d edges, %d grid cells",
		g.NumNodes(), g.NumEdges(), len(idx.grid))
	return idx
}

func cellOf(v float64) int32 {
	return int32(math.Floor(v / gridCellDeg))
}

func cellKey(cx, cy int32) uint64 {
	return uint64(uint32(cx))<<32 | uint64(uint32(cy))
}

func (s *SpatialIndex) eachCell(b orb.Bound, fn func(key uint64)) {
	x0, x1 := cellOf(b.Min[0]), cellOf(b.Max[0])
	y0, y1 := cellOf(b.Min[1]), cellOf(b.Max[1])
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			fn(cellKey(cx, cy))
		}
	}
}

// NearestNode returns the dense index of the node closest to p by geodesic
// distance. The quadtree ranks by planar distance, which skews with latitude,
// so the top candidates are re-ranked with geo.Distance. Eight candidates
// absorb the skew at city scale; near the poles a dense cluster could push
// the true nearest node out of the candidate set.
func (s *SpatialIndex) NearestNode(p orb.Point) (int, bool) {
	buf := s.qt.KNearest(nil, p, 8)
	if len(buf) == 0 {
		return 0, false
	}
	best, bestDist := -1, math.Inf(1)
	for _, ptr := range buf {
		np := ptr.(nodePointer)
		if d := geo.Distance(p, np.pt); d < bestDist {
			best, bestDist = np.idx, d
		}
	}
	return best, true
}

// NearestEdge returns the id of the edge whose geometry is closest to p,
// searching the grid in expanding rings around p's cell.
func (s *SpatialIndex) NearestEdge(p orb.Point) (EdgeID, bool) {
	cx, cy := cellOf(p[0]), cellOf(p[1])
	best, bestDist := -1, math.Inf(1)
	hitRing := int32(-1)
	for ring := int32(0); ring <= maxSearchRings; ring++ {
		s.eachRingCell(cx, cy, ring, func(key uint64) {
			for _, ei := range s.grid[key] {
				d := planar.DistanceFrom(s.graph.edges[ei].Geometry, p)
				if d < bestDist {
					best, bestDist = ei, d
				}
			}
		})
		if best >= 0 && hitRing < 0 {
			hitRing = ring
		}
		// search one ring past the first hit, the closest edge may sit
		// just across a cell boundary
		if hitRing >= 0 && ring > hitRing {
			break
		}
	}
	if best < 0 {
		return EdgeID{}, false
	}
	return s.graph.edges[best].ID, true
}

func (s *SpatialIndex) eachRingCell(cx, cy, ring int32, fn func(key uint64)) {
	if ring == 0 {
		fn(cellKey(cx, cy))
		return
	}
	for dx := -ring; dx <= ring; dx++ {
		for dy := -ring; dy <= ring; dy++ {
			if dx > -ring && dx < ring && dy > -ring && dy < ring {
				continue
			}
			fn(cellKey(cx+dx, cy+dy))
		}
	}
}

// CandidateEdges returns the indices of all edges whose geometry bound
// overlaps b. Callers still need an exact intersection test.
func (s *SpatialIndex) CandidateEdges(b orb.Bound) []int {
	seen := make(map[int]struct{})
	var out []int
	s.eachCell(b, func(key uint64) {
		for _, ei := range s.grid[key] {
			if _, ok := seen[ei]; ok {
				continue
			}
			seen[ei] = struct{}{}
			out = append(out, ei)
		}
	})
	return out
}
