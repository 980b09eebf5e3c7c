package router

import (
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// FloodSource supplies flood snapshots by discrete time index.
type FloodSource interface {
	// Snapshot returns the snapshot at the given index, or an error wrapping
	// ErrSnapshotNotFound when the index has no backing data.
	Snapshot(index int) (*FloodSnapshot, error)
	// Count is the number of available snapshots.
	Count() int
}

// FloodSet is an immutable set of flooded edge ids. A nil set is empty.
type FloodSet map[EdgeID]struct{}

func (s FloodSet) Contains(id EdgeID) bool {
	_, ok := s[id]
	return ok
}

func (s FloodSet) Len() int { return len(s) }

// FloodMeta describes one resolved snapshot, for cache introspection.
type FloodMeta struct {
	Index        int     `json:"index"`
	Label        string  `json:"label,omitempty"`
	Polygons     int     `json:"polygons"`
	FloodedEdges int     `json:"flooded_edges"`
	ShallowEdges int     `json:"shallow_edges"`
	BuildSeconds float64 `json:"build_seconds"`
}

type floodEntry struct {
	deep    FloodSet
	shallow FloodSet
	meta    FloodMeta
}

// FloodResolver maps flood snapshots onto graph edges and caches the result
// per snapshot index. Entries are computed at most a handful of times under
// races and stored once; the cache only grows, snapshots are immutable.
type FloodResolver struct {
	graph     *Graph
	index     *SpatialIndex
	source    FloodSource
	threshold float64 // meters, deeper than this blocks the road

	cache *xsync.MapOf[int, *floodEntry]
}

func NewFloodResolver(g *Graph, idx *SpatialIndex, source FloodSource, thresholdM float64) *FloodResolver {
	return &FloodResolver{
		graph:     g,
		index:     idx,
		source:    source,
		threshold: thresholdM,
		cache:     xsync.NewMapOf[int, *floodEntry](),
	}
}

// FloodedEdges returns the set of impassable edges for the snapshot index.
// With bestEffort set, a missing snapshot yields an empty set instead of
// ErrSnapshotNotFound.
func (r *FloodResolver) FloodedEdges(index int, bestEffort bool) (FloodSet, error) {
	entry, err := r.resolve(index)
	if err != nil {
		if bestEffort {
			log.Warnf("flood snapshot %d unavailable, routing without flood data: %v", index, err)
			return nil, nil
		}
		return nil, err
	}
	return entry.deep, nil
}

// ShallowFloodedEdges returns the set of passable-but-wet edges.
func (r *FloodResolver) ShallowFloodedEdges(index int) (FloodSet, error) {
	entry, err := r.resolve(index)
	if err != nil {
		return nil, err
	}
	return entry.shallow, nil
}

func (r *FloodResolver) resolve(index int) (*floodEntry, error) {
	if entry, ok := r.cache.Load(index); ok {
		return entry, nil
	}
	snap, err := r.source.Snapshot(index)
	if err != nil {
		return nil, err
	}
	entry := r.build(snap)
	actual, _ := r.cache.LoadOrStore(index, entry)
	return actual, nil
}

// build intersects every polygon with the edge geometries it could touch.
// The grid index prunes candidates by bounding box before the exact test.
func (r *FloodResolver) build(snap *FloodSnapshot) *floodEntry {
	start := time.Now()
	deep := make(FloodSet)
	shallow := make(FloodSet)
	for _, fp := range snap.Polygons {
		if len(fp.Geometry) == 0 {
			continue
		}
		blocking := !fp.HasDepth || fp.Depth > r.threshold
		annotating := fp.HasDepth && fp.Depth > 0 && fp.Depth <= r.threshold
		if !blocking && !annotating {
			continue
		}
		for _, ei := range r.index.CandidateEdges(fp.Geometry.Bound()) {
			e := r.graph.edges[ei]
			if blocking && deep.Contains(e.ID) {
				continue
			}
			if !lineIntersectsPolygon(e.Geometry, fp.Geometry) {
				continue
			}
			if blocking {
				deep[e.ID] = struct{}{}
			} else {
				shallow[e.ID] = struct{}{}
			}
		}
	}
	// a deep polygon overrides a shallow one on the same edge
	for id := range deep {
		delete(shallow, id)
	}
	entry := &floodEntry{
		deep:    deep,
		shallow: shallow,
		meta: FloodMeta{
			Index:        snap.Index,
			Label:        snap.Label,
			Polygons:     len(snap.Polygons),
			FloodedEdges: len(deep),
			ShallowEdges: len(shallow),
			BuildSeconds: time.Since(start).Seconds(),
		},
	}
	log.Infof("flood snapshot %d (%s): %d polygons, %d blocked edges, %d shallow, %.2fs",
		snap.Index, snap.Label, len(snap.Polygons), len(deep), len(shallow), entry.meta.BuildSeconds)
	return entry
}

// Precompute resolves every snapshot the source knows about. Failures are
// logged and skipped so one bad file does not stall the rest.
func (r *FloodResolver) Precompute() {
	n := r.source.Count()
	if n == 0 {
		log.Info("no flood snapshots to precompute")
		return
	}
	start := time.Now()
	for i := 0; i < n; i++ {
		if _, err := r.resolve(i); err != nil {
			log.Warnf("precompute: flood snapshot %d failed: %v", i, err)
		}
	}
	log.Infof("precomputed %d flood snapshots in %.2fs", n, time.Since(start).Seconds())
}

// Meta lists the resolved snapshots, ordered by index.
func (r *FloodResolver) Meta() []FloodMeta {
	var out []FloodMeta
	r.cache.Range(func(_ int, entry *floodEntry) bool {
		out = append(out, entry.meta)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// CacheSize is the number of resolved snapshot entries.
func (r *FloodResolver) CacheSize() int { return r.cache.Size() }

// SnapshotCount exposes the source's snapshot count.
func (r *FloodResolver) SnapshotCount() int { return r.source.Count() }
