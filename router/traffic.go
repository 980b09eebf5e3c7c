package router

import (
	"sync"

	"github.com/paulmach/orb"
)

// TrafficSource supplies the latest traffic snapshot.
type TrafficSource interface {
	Latest() (*TrafficSnapshot, error)
}

// TrafficApplicator maps monitoring point samples onto graph edges. The
// nearest-edge association per rounded coordinate is stable for a given
// network, so it is memoized in a bounded cache.
type TrafficApplicator struct {
	graph *Graph
	index *SpatialIndex

	mu          sync.Mutex
	nearest     *BoundedMap[[2]float64, EdgeID]
	lastApplied string
}

func NewTrafficApplicator(g *Graph, idx *SpatialIndex, cacheSize int) *TrafficApplicator {
	return &TrafficApplicator{
		graph:   g,
		index:   idx,
		nearest: NewBoundedMap[[2]float64, EdgeID](cacheSize),
	}
}

// Apply writes the snapshot's speed ratios onto the matched edges. A snapshot
// with the same timestamp as the last applied one is skipped. Samples without
// coordinates or without a derivable ratio are dropped, as are samples whose
// coordinate cannot be snapped to any edge.
func (a *TrafficApplicator) Apply(snap *TrafficSnapshot) {
	if snap == nil || len(snap.Points) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if snap.Timestamp != "" && snap.Timestamp == a.lastApplied {
		log.Debugf("traffic snapshot %s already applied", snap.Timestamp)
		return
	}
	applied, dropped := 0, 0
	for _, sample := range snap.Points {
		if sample.Lat == nil || sample.Lon == nil {
			dropped++
			continue
		}
		ratio, ok := sample.ratio()
		if !ok {
			dropped++
			continue
		}
		id, ok := a.snapToEdge(orb.Point{*sample.Lon, *sample.Lat})
		if !ok {
			log.Debugf("traffic sample at (%.5f, %.5f) matches no edge", *sample.Lat, *sample.Lon)
			dropped++
			continue
		}
		if err := a.graph.SetTraffic(id, ratio); err != nil {
			dropped++
			continue
		}
		applied++
	}
	a.lastApplied = snap.Timestamp
	log.Infof("traffic snapshot %s: %d samples applied, %d dropped", snap.Timestamp, applied, dropped)
}

func (a *TrafficApplicator) snapToEdge(p orb.Point) (EdgeID, bool) {
	key := [2]float64{roundCoord(p[0]), roundCoord(p[1])}
	if id, ok := a.nearest.Get(key); ok {
		return id, true
	}
	id, ok := a.index.NearestEdge(p)
	if !ok {
		return EdgeID{}, false
	}
	a.nearest.Put(key, id)
	return id, true
}
