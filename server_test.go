package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/floodwatch/routing/router"
)

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	network := &router.RoadNetwork{
		Nodes: []router.NetworkNode{
			{ID: 1, Lat: 0, Lon: 0},
			{ID: 2, Lat: 0, Lon: 0.01},
		},
		Edges: []router.NetworkEdge{
			{From: 1, To: 2, LengthM: 1000, MaxSpeedKPH: 60},
			{From: 2, To: 1, LengthM: 1000, MaxSpeedKPH: 60},
		},
	}
	engine, err := router.New(network, nil, nil, router.Config{})
	assert.NoError(t, err)
	return NewRoutingServer(engine, []string{"2024-09-18 13:30"}).Handler([]string{"*"})
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := get(t, testHandler(t), "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRouteEndpoint(t *testing.T) {
	h := testHandler(t)
	w := get(t, h, "/api/route?origin_lat=0&origin_lon=0&dest_lat=0&dest_lon=0.01&route_type=shortest")
	assert.Equal(t, http.StatusOK, w.Code)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 1)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	assert.Equal(t, 1000.0, fc.Features[0].Properties["distance_m"])
	assert.Equal(t, "shortest", fc.Features[0].Properties["route_type"])
}

func TestRouteEndpointErrors(t *testing.T) {
	h := testHandler(t)

	// missing coordinates
	w := get(t, h, "/api/route?origin_lat=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown route type
	w = get(t, h, "/api/route?origin_lat=0&origin_lon=0&dest_lat=0&dest_lon=0.01&route_type=scenic")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// out of range coordinate
	w = get(t, h, "/api/route?origin_lat=95&origin_lon=0&dest_lat=0&dest_lon=0.01")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// no flood source behind the requested snapshot
	w = get(t, h, "/api/route?origin_lat=0&origin_lon=0&dest_lat=0&dest_lon=0.01&route_type=flood_avoid&flood_index=3")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGraphAndCacheEndpoints(t *testing.T) {
	h := testHandler(t)

	w := get(t, h, "/api/graph")
	assert.Equal(t, http.StatusOK, w.Code)
	var stats router.GraphStats
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 2, stats.EdgeCount)

	w = get(t, h, "/api/cache")
	assert.Equal(t, http.StatusOK, w.Code)
	var cs router.CacheStats
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &cs))
	assert.Equal(t, 500, cs.MaxSize)
}

func TestFloodsEndpoint(t *testing.T) {
	w := get(t, testHandler(t), "/api/floods")
	assert.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Count  int `json:"count"`
		Floods []struct {
			Index int    `json:"index"`
			Label string `json:"label"`
		} `json:"floods"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "2024-09-18 13:30", out.Floods[0].Label)
}
