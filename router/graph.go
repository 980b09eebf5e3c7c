package router

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/samber/lo"

	"github.com/floodwatch/routing/router/algo"
)

const (
	// applied to edges whose source data carries no usable speed limit
	DefaultSpeedKPH = 30.0

	// lower clamp for measured speed ratios, keeps travel time finite
	minSpeedRatio = 0.1
	// ratio below which an edge counts as congested
	congestionRatio = 0.8

	kphToMps = 1000.0 / 3600.0
)

// Graph owns the road network. Topology and static edge fields are immutable
// after NewGraph; dynamic edge fields are written through SetTraffic and
// SetFlood, which hold the write lock while recomputing every derived field,
// so concurrent searches never observe a half-updated edge.
type Graph struct {
	nodes   []*Node
	nodeIdx map[int64]int // node id -> dense index (== search graph node)
	edges   []*Edge
	edgeIdx map[EdgeID]int

	search       *algo.SearchGraph[*Node, *Edge]
	floodPenalty float64
	bound        orb.Bound
}

// NewGraph builds the graph store from a network description. It fails with
// ErrMalformedGraph when the description cannot produce a complete graph:
// no nodes, an edge referencing an unknown node, or a non-finite length.
func NewGraph(network *RoadNetwork, defaultSpeedKPH, floodPenalty float64) (*Graph, error) {
	if network == nil || len(network.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrMalformedGraph)
	}
	if defaultSpeedKPH <= 0 {
		defaultSpeedKPH = DefaultSpeedKPH
	}
	g := &Graph{
		nodes:        make([]*Node, 0, len(network.Nodes)),
		nodeIdx:      make(map[int64]int, len(network.Nodes)),
		edges:        make([]*Edge, 0, len(network.Edges)),
		edgeIdx:      make(map[EdgeID]int, len(network.Edges)),
		search:       algo.NewSearchGraph[*Node, *Edge](),
		floodPenalty: floodPenalty,
	}
	for _, nn := range network.Nodes {
		if _, ok := g.nodeIdx[nn.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrMalformedGraph, nn.ID)
		}
		n := &Node{ID: nn.ID, Lat: nn.Lat, Lon: nn.Lon}
		idx := g.search.InitNode(n.Point(), n)
		g.nodes = append(g.nodes, n)
		g.nodeIdx[nn.ID] = idx
		if len(g.nodes) == 1 {
			g.bound = orb.Bound{Min: n.Point(), Max: n.Point()}
		} else {
			g.bound = g.bound.Extend(n.Point())
		}
	}
	// parallel-edge discriminator per ordered node pair
	keys := make(map[[2]int64]int, len(network.Edges))
	for _, ne := range network.Edges {
		fromIdx, ok := g.nodeIdx[ne.From]
		if !ok {
			return nil, fmt.Errorf("%w: edge references unknown node %d", ErrMalformedGraph, ne.From)
		}
		toIdx, ok := g.nodeIdx[ne.To]
		if !ok {
			return nil, fmt.Errorf("%w: edge references unknown node %d", ErrMalformedGraph, ne.To)
		}
		geom := ne.Geometry
		if len(geom) < 2 {
			// approximate as a straight line between the endpoints
			geom = orb.LineString{g.nodes[fromIdx].Point(), g.nodes[toIdx].Point()}
		}
		length := ne.LengthM
		if length < 0 || length != length { // NaN check
			return nil, fmt.Errorf("%w: edge %d->%d has invalid length %v",
				ErrMalformedGraph, ne.From, ne.To, ne.LengthM)
		}
		if length == 0 {
			length = lineLengthM(geom)
		}
		maxSpeed := ne.MaxSpeedKPH
		if maxSpeed <= 0 {
			maxSpeed = defaultSpeedKPH
		}
		pair := [2]int64{ne.From, ne.To}
		e := &Edge{
			ID:       EdgeID{From: ne.From, To: ne.To, Key: keys[pair]},
			Length:   length,
			MaxSpeed: maxSpeed,
			Geometry: geom,
		}
		keys[pair]++
		e.resetDynamic(g.floodPenalty)
		g.search.InitEdge(fromIdx, toIdx, e)
		g.edgeIdx[e.ID] = len(g.edges)
		g.edges = append(g.edges, e)
	}
	return g, nil
}

func lineLengthM(ls orb.LineString) float64 {
	total := .0
	for i := 0; i < len(ls)-1; i++ {
		total += geo.Distance(ls[i], ls[i+1])
	}
	return total
}

// resetDynamic puts the edge into the free-flow, dry state. Only called on
// construction, before the graph is shared.
func (e *Edge) resetDynamic(floodPenalty float64) {
	e.SpeedRatio = 1.0
	e.IsFlooded = false
	e.recompute(floodPenalty)
}

// recompute derives every dynamic field from SpeedRatio and IsFlooded.
// Callers must hold the write lock.
func (e *Edge) recompute(floodPenalty float64) {
	e.CurrentKPH = e.MaxSpeed * e.SpeedRatio
	e.HasTraffic = e.SpeedRatio < congestionRatio
	mps := e.CurrentKPH * kphToMps
	if mps < DefaultSpeedKPH*kphToMps*minSpeedRatio {
		mps = DefaultSpeedKPH * kphToMps * minSpeedRatio
	}
	e.TravelTime = e.Length / mps
	e.FloodCost = e.Length
	e.SmartCost = e.TravelTime
	if e.IsFlooded {
		e.FloodCost += floodPenalty
		e.SmartCost += floodPenalty
	}
}

func (g *Graph) NumNodes() int { return len(g.nodes) }
func (g *Graph) NumEdges() int { return len(g.edges) }

// Bound is the lat/lon bounding box of all nodes.
func (g *Graph) Bound() orb.Bound { return g.bound }

func (g *Graph) Node(id int64) (*Node, bool) {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil, false
	}
	return g.nodes[idx], true
}

func (g *Graph) Edge(id EdgeID) (*Edge, bool) {
	idx, ok := g.edgeIdx[id]
	if !ok {
		return nil, false
	}
	return g.edges[idx], true
}

// SetTraffic updates the edge's speed ratio and recomputes travel time and
// the derived costs atomically with the write.
func (g *Graph) SetTraffic(id EdgeID, speedRatio float64) error {
	idx, ok := g.edgeIdx[id]
	if !ok {
		return fmt.Errorf("edge %s not found", id)
	}
	e := g.edges[idx]
	g.search.Update(func() {
		e.SpeedRatio = lo.Clamp(speedRatio, minSpeedRatio, 1.0)
		e.recompute(g.floodPenalty)
	})
	return nil
}

// SetFlood pins the edge's flood state and recomputes the flood and smart
// costs atomically with the write. Routing evaluates flood penalties from
// the resolver's per-index sets; this pinned state feeds observability.
func (g *Graph) SetFlood(id EdgeID, isFlooded bool) error {
	idx, ok := g.edgeIdx[id]
	if !ok {
		return fmt.Errorf("edge %s not found", id)
	}
	e := g.edges[idx]
	g.search.Update(func() {
		e.IsFlooded = isFlooded
		e.recompute(g.floodPenalty)
	})
	return nil
}

// View runs fn under the read lock for consistent reads of dynamic fields.
func (g *Graph) View(fn func()) { g.search.View(fn) }

// CongestedEdges counts edges currently below the congestion threshold.
func (g *Graph) CongestedEdges() int {
	count := 0
	g.View(func() {
		count = lo.CountBy(g.edges, func(e *Edge) bool { return e.HasTraffic })
	})
	return count
}

// NodeAt returns the node at the dense index NearestNode reports.
func (g *Graph) NodeAt(idx int) *Node { return g.nodes[idx] }

func (g *Graph) allEdges() []*Edge { return g.edges }

func (g *Graph) shortestPath(start, end int, w algo.Weight[*Edge]) ([]algo.PathItem[*Node, *Edge], float64) {
	return g.search.ShortestPath(start, end, w)
}
