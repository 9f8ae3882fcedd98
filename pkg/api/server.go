package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/sessionfsd/internal/logger"
	"github.com/marmos91/sessionfsd/pkg/config"
	"github.com/marmos91/sessionfsd/pkg/session"
)

// Server provides an HTTP server for the REST API.
//
// The server exposes health probes, session introspection, and the
// OPEN/CLOSE/SHUTDOWN operations over HTTP.
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	manager      *session.Manager
	config       config.APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests.
//
// Parameters:
//   - cfg: API server configuration (address, timeouts)
//   - manager: the session manager backing every route
//   - metricsEnabled: whether to mount GET /metrics
//
// Returns a configured but not yet started Server.
func NewServer(cfg config.APIConfig, manager *session.Manager, metricsEnabled bool) *Server {
	router := NewRouter(manager, metricsEnabled, time.Now())

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		server:  server,
		manager: manager,
		config:  cfg,
	}
}

// Start starts the API HTTP server and blocks until the context is
// cancelled or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and
// returns.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "address", s.config.Address)
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://%s/health", s.config.Address),
			"ready", fmt.Sprintf("http://%s/health/ready", s.config.Address),
			"sessions", fmt.Sprintf("http://%s/sessions", s.config.Address),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	return s.config.Address
}
