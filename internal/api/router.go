package api

import (
	"net/http"
	"yard-placement-service/internal/api/handlers"
	"yard-placement-service/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(svc *services.PlacementService) http.Handler {
	mux := http.NewServeMux()

	placements := &handlers.PlacementHandler{Service: svc}
	topology := &handlers.TopologyHandler{Topology: svc.Topology()}

	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/topology", topology.Get)
	mux.HandleFunc("/placements", placements.List)
	mux.HandleFunc("/placements/history", placements.History)
	mux.HandleFunc("/placements/suggest", placements.Suggest)
	mux.HandleFunc("/placements/confirm", placements.Confirm)
	mux.HandleFunc("/placements/release", placements.Release)
	mux.HandleFunc("/placements/relocate", placements.Relocate)

	return loggingMiddleware(mux)
}
