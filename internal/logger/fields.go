package logger

import "log/slog"

// Standard field keys for structured logging across the session manager.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Correlation
	// ========================================================================
	KeyTraceID = "trace_id" // correlation ID for a single Open/Close/Shutdown call
	KeySpanID  = "span_id"  // sub-step identifier within a call

	// ========================================================================
	// Operation
	// ========================================================================
	KeyOperation = "operation" // open, close, shutdown, reap
	KeyPath      = "path"      // original path the operation concerns
	KeyStatus    = "status"    // operation result kind
	KeyStatusMsg = "status_msg"

	// ========================================================================
	// Ownership
	// ========================================================================
	KeyOwnerID  = "owner_id"  // owning process ID
	KeyHandleID = "handle_id" // incarnation handle ID

	// ========================================================================
	// Session / incarnation bookkeeping
	// ========================================================================
	KeySnapshotPath   = "snapshot_path"
	KeyRefcount       = "refcount"
	KeyIncarnationNum = "incarnation_count"
	KeyBytesCopied    = "bytes_copied"

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// TraceID returns a slog.Attr for the call correlation ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for a sub-step identifier.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Operation returns a slog.Attr for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Path returns a slog.Attr for the original path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Status returns a slog.Attr for the operation status kind.
func Status(kind string) slog.Attr {
	return slog.String(KeyStatus, kind)
}

// StatusMsg returns a slog.Attr for a human-readable status message.
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// OwnerID returns a slog.Attr for the owning process ID.
func OwnerID(pid uint32) slog.Attr {
	return slog.Any(KeyOwnerID, pid)
}

// HandleID returns a slog.Attr for the incarnation handle ID.
func HandleID(id uint32) slog.Attr {
	return slog.Any(KeyHandleID, id)
}

// SnapshotPath returns a slog.Attr for an incarnation's snapshot path.
func SnapshotPath(p string) slog.Attr {
	return slog.String(KeySnapshotPath, p)
}

// Refcount returns a slog.Attr for a session's current refcount.
func Refcount(n int64) slog.Attr {
	return slog.Int64(KeyRefcount, n)
}

// IncarnationCount returns a slog.Attr for the number of live incarnations.
func IncarnationCount(n int) slog.Attr {
	return slog.Int(KeyIncarnationNum, n)
}

// BytesCopied returns a slog.Attr for bytes moved during a snapshot/commit copy.
func BytesCopied(n int64) slog.Attr {
	return slog.Int64(KeyBytesCopied, n)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
