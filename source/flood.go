package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/floodwatch/routing/router"
)

// flood file names carry their timestamp, e.g. D202409181330.geojson
const floodTimeLayout = "200601021504"

// depth attribute names tried in order on each flood feature
var depthKeys = []string{"depth", "flood_depth", "water_depth", "wd"}

// FloodDir serves flood snapshots from a directory of GeoJSON files named
// D<YYYYMMDDHHMM>.geojson. The file list is scanned once at construction;
// the snapshot index is the file's position in timestamp order.
type FloodDir struct {
	dir   string
	files []string
}

// NewFloodDir scans dir for flood files. A missing or empty directory is
// not an error, the source then has zero snapshots.
func NewFloodDir(dir string) (*FloodDir, error) {
	f := &FloodDir{dir: dir}
	if dir == "" {
		return f, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		log.Warnf("flood directory %s does not exist", dir)
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read flood directory %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "D") || !strings.HasSuffix(name, ".geojson") {
			continue
		}
		f.files = append(f.files, name)
	}
	sort.Strings(f.files)
	log.Infof("found %d flood snapshots in %s", len(f.files), dir)
	return f, nil
}

func (f *FloodDir) Count() int { return len(f.files) }

// Labels returns the human-readable timestamp per snapshot index. Files
// whose name does not parse keep the raw stem as label.
func (f *FloodDir) Labels() []string {
	labels := make([]string, len(f.files))
	for i, name := range f.files {
		labels[i] = labelOf(name)
	}
	return labels
}

func labelOf(name string) string {
	stem := strings.TrimSuffix(strings.TrimPrefix(name, "D"), ".geojson")
	if t, err := time.Parse(floodTimeLayout, stem); err == nil {
		return t.Format("2006-01-02 15:04")
	}
	return stem
}

// Snapshot parses the flood file at the given index.
func (f *FloodDir) Snapshot(index int) (*router.FloodSnapshot, error) {
	if index < 0 || index >= len(f.files) {
		return nil, fmt.Errorf("%w: flood time index %d (have %d snapshots)",
			router.ErrSnapshotNotFound, index, len(f.files))
	}
	name := f.files[index]
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read flood file %s: %w", name, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse flood file %s: %w", name, err)
	}
	snap := &router.FloodSnapshot{Index: index, Label: labelOf(name)}
	for _, feat := range fc.Features {
		depth, hasDepth := depthOf(feat.Properties)
		switch geom := feat.Geometry.(type) {
		case orb.Polygon:
			snap.Polygons = append(snap.Polygons, router.FloodPolygon{
				Geometry: geom, Depth: depth, HasDepth: hasDepth,
			})
		case orb.MultiPolygon:
			for _, poly := range geom {
				snap.Polygons = append(snap.Polygons, router.FloodPolygon{
					Geometry: poly, Depth: depth, HasDepth: hasDepth,
				})
			}
		default:
			log.Debugf("flood file %s: skipping %T feature", name, geom)
		}
	}
	return snap, nil
}

func depthOf(props geojson.Properties) (float64, bool) {
	for _, key := range depthKeys {
		if _, ok := props[key]; !ok {
			continue
		}
		switch v := props[key].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
