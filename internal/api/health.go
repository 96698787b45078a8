package api

import (
	"context"
	"net/http"
	"time"
)

const readyPingTimeout = 2 * time.Second

// handleHealth reports liveness. Always 200 while the process serves.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness: the database must answer a ping when one
// is configured. Index availability is reported but does not gate
// readiness, search_products has a substring fallback.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}

	if s.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyPingTimeout)
		defer cancel()
		if err := s.pool.Ping(ctx); err != nil {
			s.logger.Warn("readiness ping failed", "error", err)
			body["status"] = "unavailable"
			body["database"] = "down"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "up"
	}

	if s.index != nil {
		if s.index.Available() {
			body["index"] = "ready"
		} else {
			body["index"] = "unbuilt"
		}
	}

	writeJSON(w, http.StatusOK, body)
}
