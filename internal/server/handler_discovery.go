package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "Patrimoine API",
		Version:     "v1",
		Description: "Heritage catalogue front end",
		Endpoints: []endpointInfo{
			{"/api/v1/health", []string{"GET"}, "Server health, local store and remote catalogue reachability"},
			{"/api/v1/pending", []string{"GET"}, "Moderation badge counts of the calling admin client"},
		},
	})
}
