package server

import (
	"net/http"
	"time"

	"github.com/me/patrimoine/internal/ui"
	"github.com/me/patrimoine/pkg/model"
)

type pendingResponse struct {
	Counts      model.PendingCounts `json:"counts"`
	RefreshedAt *time.Time          `json:"refreshed_at,omitempty"`
	Polling     bool                `json:"polling"`
}

// handlePending reports the moderation badge counts of the calling browser.
// It never creates a controller: a browser without one has no session.
func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	ctrl, ok := s.registry.Lookup(ui.ClientIDFromRequest(r))
	if !ok || ctrl.Session() == nil {
		respondError(w, reqID, http.StatusUnauthorized, model.NewUnauthorizedError("not logged in"))
		return
	}
	if !ctrl.Session().IsAdmin() {
		respondError(w, reqID, http.StatusForbidden, &model.APIError{Code: model.ErrForbidden, Message: "admin role required"})
		return
	}

	view := ctrl.Snapshot()
	resp := pendingResponse{Counts: view.Counts, Polling: view.Polling}
	if !view.RefreshedAt.IsZero() {
		t := view.RefreshedAt.UTC()
		resp.RefreshedAt = &t
	}
	respondOK(w, reqID, resp)
}
