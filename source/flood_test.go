package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/floodwatch/routing/router"
	"github.com/floodwatch/routing/source"
)

const floodGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {"water_depth": 0.8},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[0, 0], [1, 0], [1, 1], [0, 1], [0, 0]]]
			}
		},
		{
			"type": "Feature",
			"properties": {},
			"geometry": {
				"type": "MultiPolygon",
				"coordinates": [
					[[[2, 2], [3, 2], [3, 3], [2, 3], [2, 2]]],
					[[[4, 4], [5, 4], [5, 5], [4, 5], [4, 4]]]
				]
			}
		},
		{
			"type": "Feature",
			"properties": {"depth": 0.1},
			"geometry": {
				"type": "Point",
				"coordinates": [0, 0]
			}
		}
	]
}`

func writeFloodFile(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
	assert.NoError(t, err)
}

func TestFloodDirScan(t *testing.T) {
	dir := t.TempDir()
	writeFloodFile(t, dir, "D202409181400.geojson", floodGeoJSON)
	writeFloodFile(t, dir, "D202409181330.geojson", floodGeoJSON)
	writeFloodFile(t, dir, "notes.txt", "ignore me")

	f, err := source.NewFloodDir(dir)
	assert.NoError(t, err)
	assert.Equal(t, 2, f.Count())
	// timestamp order, earliest first
	assert.Equal(t, []string{"2024-09-18 13:30", "2024-09-18 14:00"}, f.Labels())
}

func TestFloodDirSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFloodFile(t, dir, "D202409181330.geojson", floodGeoJSON)

	f, err := source.NewFloodDir(dir)
	assert.NoError(t, err)

	snap, err := f.Snapshot(0)
	assert.NoError(t, err)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, "2024-09-18 13:30", snap.Label)
	// one polygon, two from the multipolygon, point feature skipped
	assert.Len(t, snap.Polygons, 3)

	assert.True(t, snap.Polygons[0].HasDepth)
	assert.Equal(t, 0.8, snap.Polygons[0].Depth)
	assert.Equal(t, orb.Point{0, 0}, snap.Polygons[0].Geometry[0][0])
	assert.False(t, snap.Polygons[1].HasDepth)
	assert.False(t, snap.Polygons[2].HasDepth)
}

func TestFloodDirMissingIndex(t *testing.T) {
	dir := t.TempDir()
	writeFloodFile(t, dir, "D202409181330.geojson", floodGeoJSON)

	f, err := source.NewFloodDir(dir)
	assert.NoError(t, err)

	_, err = f.Snapshot(1)
	assert.ErrorIs(t, err, router.ErrSnapshotNotFound)
	_, err = f.Snapshot(-1)
	assert.ErrorIs(t, err, router.ErrSnapshotNotFound)
}

func TestFloodDirMissingDirectory(t *testing.T) {
	f, err := source.NewFloodDir("/nonexistent/floods")
	assert.NoError(t, err)
	assert.Equal(t, 0, f.Count())

	f, err = source.NewFloodDir("")
	assert.NoError(t, err)
	assert.Equal(t, 0, f.Count())
}

func TestFloodDirBadFile(t *testing.T) {
	dir := t.TempDir()
	writeFloodFile(t, dir, "D202409181330.geojson", "not geojson")

	f, err := source.NewFloodDir(dir)
	assert.NoError(t, err)
	_, err = f.Snapshot(0)
	assert.Error(t, err)
}
