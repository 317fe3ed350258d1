package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/printflow/internal/app"
)

// Server hosts the realtime WebSocket endpoint. The workflow engine has no
// REST surface; triggers go through the queue via the App API.
type Server struct {
	app    *app.App
	router *http.ServeMux
	server *http.Server
}

// New creates the HTTP server for the given app
func New(application *app.App) *Server {
	s := &Server{
		app: application,
	}

	s.router = http.NewServeMux()
	if application.Hub != nil {
		s.router.HandleFunc("/ws", application.Hub.HandleConnection)
	}

	addr := fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.app.Logger.Info().
		Str("address", s.server.Addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
