package server

import "net/http"

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.healthHandler)
	mux.HandleFunc("/api/stats", s.statsHandler)
	mux.HandleFunc("/api/stats/assets", s.assetStatsHandler)
	mux.HandleFunc("/api/records", s.recordsHandler)
	mux.HandleFunc("/api/partitions", s.partitionsHandler)

	return mux
}
