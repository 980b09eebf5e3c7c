package router

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/floodwatch/routing/router/algo"
)

// Config tunes the routing engine. Zero values fall back to the defaults.
type Config struct {
	// FloodDepthThresholdM separates passable from blocking water depth.
	FloodDepthThresholdM float64
	// FloodPenalty is added to a blocked edge's cost, meters for
	// length-based weights and seconds for time-based ones.
	FloodPenalty float64
	// MaxRouteCacheSize bounds the memoized route results.
	MaxRouteCacheSize int
	// DefaultSpeedKPH applies to edges without a usable speed limit.
	DefaultSpeedKPH float64
}

const (
	defaultFloodThresholdM = 0.3
	defaultFloodPenalty    = 1_000_000.0
	defaultRouteCacheSize  = 500
)

func (c Config) withDefaults() Config {
	if c.FloodDepthThresholdM <= 0 {
		c.FloodDepthThresholdM = defaultFloodThresholdM
	}
	if c.FloodPenalty <= 0 {
		c.FloodPenalty = defaultFloodPenalty
	}
	if c.MaxRouteCacheSize <= 0 {
		c.MaxRouteCacheSize = defaultRouteCacheSize
	}
	if c.DefaultSpeedKPH <= 0 {
		c.DefaultSpeedKPH = DefaultSpeedKPH
	}
	return c
}

// Router is the routing engine. It owns the graph, the spatial index, the
// flood resolver, the traffic applicator and the route cache, and is safe
// for concurrent use.
type Router struct {
	cfg           Config
	graph         *Graph
	index         *SpatialIndex
	floods        *FloodResolver
	traffic       *TrafficApplicator
	trafficSource TrafficSource
	cache         *RouteCache
}

// New builds the engine from a network description. floodSource and
// trafficSource may be nil, the engine then routes without that input.
func New(network *RoadNetwork, floodSource FloodSource, trafficSource TrafficSource, cfg Config) (*Router, error) {
	cfg = cfg.withDefaults()
	graph, err := NewGraph(network, cfg.DefaultSpeedKPH, cfg.FloodPenalty)
	if err != nil {
		return nil, err
	}
	index := NewSpatialIndex(graph)
	if floodSource == nil {
		floodSource = emptyFloodSource{}
	}
	r := &Router{
		cfg:           cfg,
		graph:         graph,
		index:         index,
		floods:        NewFloodResolver(graph, index, floodSource, cfg.FloodDepthThresholdM),
		traffic:       NewTrafficApplicator(graph, index, cfg.MaxRouteCacheSize),
		trafficSource: trafficSource,
		cache:         NewRouteCache(cfg.MaxRouteCacheSize),
	}
	log.Infof("routing engine ready, %d nodes, %d edges, %d flood snapshots",
		graph.NumNodes(), graph.NumEdges(), floodSource.Count())
	return r, nil
}

type emptyFloodSource struct{}

func (emptyFloodSource) Snapshot(index int) (*FloodSnapshot, error) {
	return nil, fmt.Errorf("%w: flood time index %d (no flood source)", ErrSnapshotNotFound, index)
}
func (emptyFloodSource) Count() int { return 0 }

// Route answers a routing query, serving repeated queries from the cache.
func (r *Router) Route(req RouteRequest) (*RouteResult, error) {
	if err := validatePoint(req.Origin); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if err := validatePoint(req.Destination); err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	switch req.Type {
	case RouteShortest, RouteFastest, RouteFloodAvoid, RouteSmart:
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidRouteType, int(req.Type))
	}
	return r.cache.GetOrCompute(req, func() (*RouteResult, error) {
		return r.computeRoute(req)
	})
}

func validatePoint(p orb.Point) error {
	lon, lat := p[0], p[1]
	if math.IsNaN(lon) || math.IsNaN(lat) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, lat, lon)
	}
	return nil
}

func (r *Router) computeRoute(req RouteRequest) (*RouteResult, error) {
	if req.Type == RouteFastest || req.Type == RouteSmart {
		if err := r.RefreshTraffic(); err != nil {
			log.Warnf("traffic refresh failed, routing on last known speeds: %v", err)
		}
	}

	var deep FloodSet
	if req.Type == RouteFloodAvoid || req.Type == RouteSmart {
		var err error
		deep, err = r.floods.FloodedEdges(req.FloodIndex, req.BestEffort)
		if err != nil {
			return nil, err
		}
	}
	// shallow water never changes the chosen path, only annotates it, so a
	// missing snapshot is not an error for the flood-blind route types
	shallow, err := r.floods.ShallowFloodedEdges(req.FloodIndex)
	if err != nil {
		if req.Type == RouteFloodAvoid || req.Type == RouteSmart {
			if !req.BestEffort {
				return nil, err
			}
		} else {
			log.Debugf("no shallow flood annotation for index %d: %v", req.FloodIndex, err)
		}
		shallow = nil
	}

	origin, ok := r.index.NearestNode(req.Origin)
	if !ok {
		return nil, fmt.Errorf("%w: empty graph", ErrNoPath)
	}
	dest, _ := r.index.NearestNode(req.Destination)

	if origin == dest {
		n := r.graph.NodeAt(origin)
		return &RouteResult{
			Type:       req.Type,
			Geometry:   orb.LineString{n.Point()},
			NumNodes:   1,
			OriginNode: n.ID,
			DestNode:   n.ID,
			FloodIndex: req.FloodIndex,
		}, nil
	}

	weight := r.weightFor(req.Type, deep)
	path, cost := r.graph.shortestPath(origin, dest, weight)
	if path == nil || math.IsInf(cost, 0) {
		return nil, fmt.Errorf("%w: %s from node %d to node %d",
			ErrNoPath, req.Type, r.graph.NodeAt(origin).ID, r.graph.NodeAt(dest).ID)
	}
	return r.assemble(req, path, shallow), nil
}

// weightFor returns the edge weight closure for the route type. Flood
// penalties come from the per-index set, not from edge state, so concurrent
// requests against different snapshots never interfere.
func (r *Router) weightFor(t RouteType, deep FloodSet) algo.Weight[*Edge] {
	penalty := r.cfg.FloodPenalty
	switch t {
	case RouteShortest:
		return func(e *Edge) float64 { return e.Length }
	case RouteFastest:
		return func(e *Edge) float64 { return e.TravelTime }
	case RouteFloodAvoid:
		return func(e *Edge) float64 {
			if deep.Contains(e.ID) {
				return e.Length + penalty
			}
			return e.Length
		}
	default: // RouteSmart
		return func(e *Edge) float64 {
			if deep.Contains(e.ID) {
				return e.TravelTime + penalty
			}
			return e.TravelTime
		}
	}
}

// assemble sums real distance and travel time over the path and concatenates
// the edge geometries. Dynamic fields are read under the graph's read lock
// so they are consistent with each other.
func (r *Router) assemble(req RouteRequest, path []algo.PathItem[*Node, *Edge], shallow FloodSet) *RouteResult {
	res := &RouteResult{
		Type:       req.Type,
		NumNodes:   len(path),
		NumEdges:   len(path) - 1,
		OriginNode: path[0].NodeAttr.ID,
		DestNode:   path[len(path)-1].NodeAttr.ID,
		FloodIndex: req.FloodIndex,
	}
	r.graph.View(func() {
		for _, item := range path[:len(path)-1] {
			e := item.EdgeAttr
			res.DistanceM += e.Length
			res.DurationS += e.TravelTime
			if shallow.Contains(e.ID) {
				res.UsesShallowFlood = true
				res.ShallowFloodM += e.Length
			}
			for _, p := range e.Geometry {
				if n := len(res.Geometry); n > 0 && res.Geometry[n-1] == p {
					continue
				}
				res.Geometry = append(res.Geometry, p)
			}
		}
	})
	return res
}

// RefreshTraffic pulls the latest traffic snapshot and applies it. A nil
// source is a no-op.
func (r *Router) RefreshTraffic() error {
	if r.trafficSource == nil {
		return nil
	}
	snap, err := r.trafficSource.Latest()
	if err != nil {
		return err
	}
	r.traffic.Apply(snap)
	return nil
}

// PrecomputeFloodData resolves every flood snapshot ahead of the first
// request. Intended to run in the background at startup.
func (r *Router) PrecomputeFloodData() {
	r.floods.Precompute()
}

func (r *Router) GraphStats() GraphStats {
	return GraphStats{
		NodeCount:      r.graph.NumNodes(),
		EdgeCount:      r.graph.NumEdges(),
		CongestedEdges: r.graph.CongestedEdges(),
		FloodCacheSize: r.floods.CacheSize(),
		FloodCacheMeta: r.floods.Meta(),
	}
}

func (r *Router) CacheStats() CacheStats { return r.cache.Stats() }

// FloodSnapshotCount is the number of snapshots the flood source offers.
func (r *Router) FloodSnapshotCount() int { return r.floods.SnapshotCount() }

// Bound is the network's bounding box, used by the benchmark to draw
// random endpoints.
func (r *Router) Bound() orb.Bound { return r.graph.Bound() }

// NearestNodeID snaps a point to its closest graph node.
func (r *Router) NearestNodeID(p orb.Point) (int64, float64, bool) {
	idx, ok := r.index.NearestNode(p)
	if !ok {
		return 0, 0, false
	}
	n := r.graph.NodeAt(idx)
	return n.ID, geo.Distance(p, n.Point()), true
}
