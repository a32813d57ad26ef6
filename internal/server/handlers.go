package server

import (
	"encoding/json"
	"net/http"

	"github.com/honeylab/honeyindex/internal/common"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{"error": message})
}

// requireGet rejects non-GET requests.
func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// healthHandler reports service health and version.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.Version,
	})
}

// statsHandler serves the current aggregate snapshot.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	snapshot, err := s.records.GetSnapshot(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load snapshot")
		WriteError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	if snapshot == nil {
		WriteError(w, http.StatusNotFound, "no stats computed yet")
		return
	}
	WriteJSON(w, http.StatusOK, snapshot)
}

// assetStatsHandler serves the per-asset breakdown of the snapshot.
func (s *Server) assetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	snapshot, err := s.records.GetSnapshot(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load snapshot")
		WriteError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	if snapshot == nil {
		WriteError(w, http.StatusNotFound, "no stats computed yet")
		return
	}
	WriteJSON(w, http.StatusOK, snapshot.Assets)
}

// recordsHandler lists stored records, optionally filtered by partition.
func (s *Server) recordsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	partition := r.URL.Query().Get("partition")
	if partition == "" {
		WriteError(w, http.StatusBadRequest, "partition query parameter is required")
		return
	}

	records, err := s.records.ListByPartition(r.Context(), partition)
	if err != nil {
		s.logger.Error().Err(err).Str("partition", partition).Msg("Failed to list records")
		WriteError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	WriteJSON(w, http.StatusOK, records)
}

// partitionsHandler lists the partitions present in the record store.
func (s *Server) partitionsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	partitions, err := s.records.Partitions(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list partitions")
		WriteError(w, http.StatusInternalServerError, "failed to list partitions")
		return
	}
	if partitions == nil {
		partitions = []string{}
	}
	WriteJSON(w, http.StatusOK, partitions)
}
