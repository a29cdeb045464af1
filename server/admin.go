package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminHandler returns the HTTP admin API:
//
//	GET /health    liveness and number of online users
//	GET /metrics   Prometheus metrics
//	GET /sessions  online users
//	GET /groups    groups and their members, without keys
func (s *Server) AdminHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/sessions", s.sessions)
	r.Get("/groups", s.groups)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"sessions": len(s.store.Sessions()),
	})
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.Sessions())
}

func (s *Server) groups(w http.ResponseWriter, r *http.Request) {
	groups := s.store.Groups()
	if groups == nil {
		writeJSON(w, []struct{}{})
		return
	}
	writeJSON(w, groups)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
