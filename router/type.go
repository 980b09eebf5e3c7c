package router

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

var (
	// graph source is missing required fields, fatal at load time
	ErrMalformedGraph = errors.New("malformed graph source")
	// no connected path between the snapped endpoints
	ErrNoPath = errors.New("no path between origin and destination")
	// unrecognized route type
	ErrInvalidRouteType = errors.New("invalid route type")
	// coordinate outside the valid lat/lon range
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// requested flood time index has no backing data
	ErrSnapshotNotFound = errors.New("flood snapshot not found")
)

// RouteType selects the edge weight function. The set is closed; anything
// else is rejected with ErrInvalidRouteType before any graph work starts.
type RouteType int

const (
	// minimize length, ignore traffic and flood
	RouteShortest RouteType = iota
	// minimize travel time under current traffic
	RouteFastest
	// minimize length with a large penalty on deep-flooded edges
	RouteFloodAvoid
	// minimize travel time with a large penalty on deep-flooded edges
	RouteSmart
)

func (t RouteType) String() string {
	switch t {
	case RouteShortest:
		return "shortest"
	case RouteFastest:
		return "fastest"
	case RouteFloodAvoid:
		return "flood_avoid"
	case RouteSmart:
		return "smart"
	default:
		return fmt.Sprintf("RouteType(%d)", int(t))
	}
}

func (t RouteType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *RouteType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	typ, err := ParseRouteType(s)
	if err != nil {
		return err
	}
	*t = typ
	return nil
}

func ParseRouteType(s string) (RouteType, error) {
	switch s {
	case "shortest":
		return RouteShortest, nil
	case "fastest":
		return RouteFastest, nil
	case "flood_avoid":
		return RouteFloodAvoid, nil
	case "smart":
		return RouteSmart, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRouteType, s)
	}
}

// EdgeID identifies a directed edge. Key discriminates parallel edges
// between the same ordered node pair.
type EdgeID struct {
	From int64
	To   int64
	Key  int
}

func (id EdgeID) String() string {
	return fmt.Sprintf("%d->%d#%d", id.From, id.To, id.Key)
}

type Node struct {
	ID  int64
	Lat float64
	Lon float64
}

func (n *Node) Point() orb.Point { return orb.Point{n.Lon, n.Lat} }

// Edge is a directed road segment. Static fields are immutable after load.
// Dynamic fields are guarded by the graph's lock and recomputed together on
// every write, so a reader holding the read side never sees an updated speed
// with a stale travel time.
type Edge struct {
	ID       EdgeID
	Length   float64 // meters
	MaxSpeed float64 // km/h, free flow
	Geometry orb.LineString

	// dynamic, traffic
	SpeedRatio float64 // (0, 1], 1 = free flow
	CurrentKPH float64
	TravelTime float64 // seconds, Length / current speed
	HasTraffic bool    // ratio below the congestion threshold

	// dynamic, flood (pinned state, see Graph.SetFlood)
	IsFlooded bool
	FloodCost float64 // meters, == Length when dry
	SmartCost float64 // seconds, == TravelTime when dry
}

// Road network description as consumed from the network provider.
type RoadNetwork struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

type NetworkNode struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type NetworkEdge struct {
	From        int64          `json:"from"`
	To          int64          `json:"to"`
	LengthM     float64        `json:"length_m,omitempty"`
	MaxSpeedKPH float64        `json:"maxspeed_kph,omitempty"`
	Geometry    orb.LineString `json:"geometry,omitempty"`
}

// TrafficSample is one monitoring point reading. Either current/free-flow
// speeds or a precomputed ratio may be supplied. The coordinates are
// pointers so a sample missing them is distinguishable from one at (0, 0).
type TrafficSample struct {
	Lat             *float64 `json:"lat"`
	Lon             *float64 `json:"lon"`
	CurrentSpeedKPH float64  `json:"current_speed_kph,omitempty"`
	FreeFlowKPH     float64  `json:"free_flow_kph,omitempty"`
	SpeedRatio      float64  `json:"speed_ratio,omitempty"`
}

func (s TrafficSample) ratio() (float64, bool) {
	if s.SpeedRatio > 0 {
		return s.SpeedRatio, true
	}
	if s.FreeFlowKPH > 0 {
		return s.CurrentSpeedKPH / s.FreeFlowKPH, true
	}
	return 0, false
}

type TrafficSnapshot struct {
	Timestamp string          `json:"timestamp,omitempty"`
	Points    []TrafficSample `json:"points"`
}

// FloodPolygon is one inundated area with its water depth. HasDepth is false
// when the snapshot carried no recognizable depth attribute; such polygons
// are treated as deep.
type FloodPolygon struct {
	Geometry orb.Polygon
	Depth    float64
	HasDepth bool
}

// FloodSnapshot holds the polygons valid at one discrete time index.
type FloodSnapshot struct {
	Index    int
	Label    string
	Polygons []FloodPolygon
}

// RouteRequest is a single routing query.
type RouteRequest struct {
	Origin      orb.Point
	Destination orb.Point
	Type        RouteType
	// FloodIndex is the ordinal flood snapshot index, not wall-clock time.
	FloodIndex int
	// BestEffort routes with an empty flooded set instead of failing when
	// the flood snapshot for FloodIndex does not exist.
	BestEffort bool
}

// RouteResult is immutable once returned and may be served from cache.
type RouteResult struct {
	Type     RouteType      `json:"route_type"`
	Geometry orb.LineString `json:"-"`

	DistanceM float64 `json:"distance_m"`
	DurationS float64 `json:"eta_s"`

	NumNodes   int   `json:"num_nodes"`
	NumEdges   int   `json:"num_edges"`
	OriginNode int64 `json:"origin_node"`
	DestNode   int64 `json:"dest_node"`
	FloodIndex int   `json:"flood_index"`

	// shallow (passable) flooding on the chosen path, annotation only
	UsesShallowFlood bool    `json:"uses_shallow_flood"`
	ShallowFloodM    float64 `json:"shallow_flood_m"`
}

type GraphStats struct {
	NodeCount      int         `json:"node_count"`
	EdgeCount      int         `json:"edge_count"`
	CongestedEdges int         `json:"congested_edges"`
	FloodCacheSize int         `json:"flood_cache_size"`
	FloodCacheMeta []FloodMeta `json:"flood_cache_meta,omitempty"`
}
