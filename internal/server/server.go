// Package server exposes the read-only HTTP API over the record store and
// the aggregate snapshot. All mutation happens through the pipeline; the
// API never writes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/honeylab/honeyindex/internal/common"
	"github.com/honeylab/honeyindex/internal/interfaces"
)

// Server manages the HTTP server and routes.
type Server struct {
	config  *common.Config
	records interfaces.RecordStorage
	logger  arbor.ILogger
	router  *http.ServeMux
	server  *http.Server
}

// New creates the HTTP server over the record store.
func New(config *common.Config, records interfaces.RecordStorage, logger arbor.ILogger) *Server {
	s := &Server{
		config:  config,
		records: records,
		logger:  logger,
	}

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
