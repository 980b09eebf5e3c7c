package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/floodwatch/routing/router"
)

// RoutingServer exposes the engine over a JSON HTTP API.
type RoutingServer struct {
	engine      *router.Router
	floodLabels []string
}

func NewRoutingServer(engine *router.Router, floodLabels []string) *RoutingServer {
	return &RoutingServer{engine: engine, floodLabels: floodLabels}
}

func (s *RoutingServer) Handler(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/route", s.handleRoute)
	r.Get("/api/graph", s.handleGraph)
	r.Get("/api/cache", s.handleCache)
	r.Get("/api/floods", s.handleFloods)
	return r
}

func (s *RoutingServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *RoutingServer) handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := router.RouteRequest{}

	oLat, err1 := strconv.ParseFloat(q.Get("origin_lat"), 64)
	oLon, err2 := strconv.ParseFloat(q.Get("origin_lon"), 64)
	dLat, err3 := strconv.ParseFloat(q.Get("dest_lat"), 64)
	dLon, err4 := strconv.ParseFloat(q.Get("dest_lon"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		writeError(w, http.StatusBadRequest, "origin_lat, origin_lon, dest_lat and dest_lon are required numbers")
		return
	}
	req.Origin = orb.Point{oLon, oLat}
	req.Destination = orb.Point{dLon, dLat}

	typeStr := q.Get("route_type")
	if typeStr == "" {
		typeStr = "shortest"
	}
	req.Type, err1 = router.ParseRouteType(typeStr)
	if err1 != nil {
		writeError(w, http.StatusBadRequest, err1.Error())
		return
	}
	if v := q.Get("flood_index"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "flood_index must be an integer")
			return
		}
		req.FloodIndex = idx
	}
	req.BestEffort = q.Get("best_effort") == "true"

	res, err := s.engine.Route(req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	feat := geojson.NewFeature(res.Geometry)
	props, _ := json.Marshal(res)
	_ = json.Unmarshal(props, &feat.Properties)
	fc := geojson.NewFeatureCollection()
	fc.Append(feat)
	writeJSON(w, http.StatusOK, fc)
}

func (s *RoutingServer) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.GraphStats())
}

func (s *RoutingServer) handleCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.CacheStats())
}

func (s *RoutingServer) handleFloods(w http.ResponseWriter, r *http.Request) {
	type floodInfo struct {
		Index int    `json:"index"`
		Label string `json:"label"`
	}
	out := make([]floodInfo, len(s.floodLabels))
	for i, label := range s.floodLabels {
		out[i] = floodInfo{Index: i, Label: label}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "floods": out})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, router.ErrInvalidCoordinate),
		errors.Is(err, router.ErrInvalidRouteType):
		return http.StatusBadRequest
	case errors.Is(err, router.ErrSnapshotNotFound),
		errors.Is(err, router.ErrNoPath):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
