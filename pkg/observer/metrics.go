package observer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives telemetry events as they happen. Implementations must
// be nil-safe at the call site (Tree checks for nil before calling) so a
// disabled recorder costs nothing.
type Recorder interface {
	SessionAdmitted()
	SessionRemoved()
	IncarnationAdded()
	IncarnationRemoved()
	SnapshotDuration(d time.Duration)
	CommitDuration(d time.Duration)
}

var (
	registryMu sync.Mutex
	registry   *prometheus.Registry
	enabled    atomic.Bool
)

// InitRegistry creates and stores the process-wide Prometheus registry used
// by observer recorders, and marks metrics as enabled. Safe to call once
// during startup; a second call replaces the registry.
func InitRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = prometheus.NewRegistry()
	enabled.Store(true)
	return registry
}

// GetRegistry returns the current registry, or nil if InitRegistry has not
// been called.
func GetRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled.Load()
}
