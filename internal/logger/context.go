package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID     string    // correlation ID for a single Open/Close call
	SpanID      string    // sub-step identifier within a call
	Operation   string    // operation name (open, close, shutdown)
	OriginalPath string   // original path the operation concerns
	OwnerID     uint32    // owning process ID
	HandleID    uint32    // incarnation handle ID
	StartTime   time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a call against the given path.
func NewLogContext(originalPath string) *LogContext {
	return &LogContext{
		OriginalPath: originalPath,
		StartTime:    time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:      lc.TraceID,
		SpanID:       lc.SpanID,
		Operation:    lc.Operation,
		OriginalPath: lc.OriginalPath,
		OwnerID:      lc.OwnerID,
		HandleID:     lc.HandleID,
		StartTime:    lc.StartTime,
	}
}

// WithOperation returns a copy with the operation name set
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithPath returns a copy with the original path set
func (lc *LogContext) WithPath(path string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.OriginalPath = path
	}
	return clone
}

// WithOwner returns a copy with owner/handle identifiers set
func (lc *LogContext) WithOwner(ownerID, handleID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.OwnerID = ownerID
		clone.HandleID = handleID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
