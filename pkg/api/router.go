package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/sessionfsd/internal/logger"
	"github.com/marmos91/sessionfsd/pkg/api/handlers"
	"github.com/marmos91/sessionfsd/pkg/observer"
	"github.com/marmos91/sessionfsd/pkg/session"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET  /health          - Liveness probe
//   - GET  /health/ready    - Readiness probe
//   - GET  /sessions        - List published sessions
//   - GET  /sessions/{name} - One session's live incarnations
//   - POST /sessions/open   - OPEN
//   - POST /sessions/close  - CLOSE
//   - POST /shutdown        - SHUTDOWN
//   - GET  /metrics         - Prometheus scrape endpoint, when enabled
func NewRouter(manager *session.Manager, metricsEnabled bool, startedAt time.Time) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(manager, startedAt)
	sessionsHandler := handlers.NewSessionsHandler(manager)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", sessionsHandler.List)
		r.Get("/{name}", sessionsHandler.Get)
		r.Post("/open", sessionsHandler.Open)
		r.Post("/close", sessionsHandler.Close)
	})

	r.Post("/shutdown", sessionsHandler.Shutdown)

	if metricsEnabled && observer.IsEnabled() {
		r.Handle("/metrics", promhttp.HandlerFor(observer.GetRegistry(), promhttp.HandlerOpts{}))
	}

	return r
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}
