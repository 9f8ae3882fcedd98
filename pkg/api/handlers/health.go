package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/sessionfsd/pkg/session"
)

// HealthHandler handles the unauthenticated liveness and readiness probes.
type HealthHandler struct {
	manager    *session.Manager
	startedAt  time.Time
	instanceID string
}

// NewHealthHandler creates a health handler backed by manager. manager may
// be nil only in tests exercising the router shape; a real server always
// supplies one. startedAt is reported back to the CLI's status command. A
// fresh instance ID is minted on each construction so operators can tell
// two daemon processes apart in logs and metrics scraped across a restart.
func NewHealthHandler(manager *session.Manager, startedAt time.Time) *HealthHandler {
	return &HealthHandler{manager: manager, startedAt: startedAt, instanceID: uuid.NewString()}
}

type healthData struct {
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
	StartedAt  string `json:"started_at"`
	Uptime     string `json:"uptime"`
	UptimeSec  int64  `json:"uptime_sec"`
}

func (h *HealthHandler) data() healthData {
	uptime := time.Since(h.startedAt)
	return healthData{
		Service:    "sessionfsd",
		InstanceID: h.instanceID,
		StartedAt:  h.startedAt.UTC().Format(time.RFC3339),
		Uptime:     uptime.String(),
		UptimeSec:  int64(uptime.Seconds()),
	}
}

// Liveness handles GET /health — the process is running and serving HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(h.data()))
}

// Readiness handles GET /health/ready — the session manager is
// constructed and accepting Open/Close calls.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("session manager not initialized"))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(h.data()))
}
