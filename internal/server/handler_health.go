package server

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Uptime     string `json:"uptime"`
	Store      string `json:"store"`
	Catalogue  string `json:"catalogue"`
	APIVersion string `json:"api_version,omitempty"`
	Clients    int    `json:"clients"`
}

// healthTimeout bounds each dependency probe.
const healthTimeout = 3 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "healthy",
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Store:     "ok",
		Catalogue: "ok",
		Clients:   s.registry.Len(),
	}

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("store ping failed", "error", err)
		resp.Store = "unavailable"
		resp.Status = "degraded"
	}
	if h, err := s.api.Ping(ctx); err != nil {
		s.logger.Warn("catalogue ping failed", "error", err)
		resp.Catalogue = "unreachable"
		resp.Status = "degraded"
	} else {
		resp.APIVersion = h.Version
	}

	respondOK(w, reqID, resp)
}
