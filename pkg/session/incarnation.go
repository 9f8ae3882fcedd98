package session

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/marmos91/sessionfsd/pkg/fileio"
)

// incarnationSeq is a per-process counter appended to the monotonic
// timestamp used in snapshot path derivation, guaranteeing uniqueness even
// when two calls land in the same nanosecond.
var incarnationSeq atomic.Uint64

// incKey is the (owner_id, handle_id) uniqueness key within a session.
type incKey struct {
	ownerID  uint32
	handleID uint32
}

// incarnation is one per successful open-with-session.
type incarnation struct {
	ownerID      uint32
	handleID     uint32
	snapshotFile fileio.File
	snapshotPath string
	status       int
}

// nextToken returns a token unique per process call, combining a monotonic
// timestamp with a per-process sequence number since a plain wall-clock
// timestamp alone can collide within a tick.
func nextToken() string {
	ts := time.Now().UnixNano()
	seq := incarnationSeq.Add(1)
	return fmt.Sprintf("%d_%d", ts, seq)
}

// defaultSnapshotFallbackDir is used when the Manager is not configured
// with an explicit fallback directory for overlong snapshot names.
const defaultSnapshotFallbackDir = "/var/tmp"

// deriveSnapshotPath computes an incarnation's snapshot file path as
// "<original_path>_incarnation_<owner_id>_<monotonic_token>", falling back
// to "<fallbackDir>/<owner_id>_<monotonic_token>" when the derived name
// would exceed the host's maximum path length.
func deriveSnapshotPath(io fileio.Capability, originalPath string, ownerID uint32, fallbackDir string) string {
	token := nextToken()
	full := fmt.Sprintf("%s_incarnation_%d_%s", originalPath, ownerID, token)
	if len(full) <= io.MaxPathLength() {
		return full
	}
	if fallbackDir == "" {
		fallbackDir = defaultSnapshotFallbackDir
	}
	return fmt.Sprintf("%s/%d_%s", fallbackDir, ownerID, token)
}
