package session

import "os"

// Flag bits for OpenRequest.Flags. FlagSession is the "enable session
// semantics" bit; the core clears it before forwarding the request to the
// File I/O capability. Open does not check that it is set: a request
// without it is admitted like one with it.
const (
	FlagSession = 1 << 30
	FlagRDOnly  = os.O_RDONLY
	FlagWROnly  = os.O_WRONLY
	FlagRDWR    = os.O_RDWR
	FlagCreate  = os.O_CREATE
	FlagTrunc   = os.O_TRUNC
	FlagAppend  = os.O_APPEND
)

// OpenRequest is the OPEN request.
type OpenRequest struct {
	OriginalPath string
	Flags        int
	Mode         os.FileMode
	OwnerID      uint32
}

// OpenResult is the OPEN response. Status is the incarnation's snapshot
// status: zero means a good snapshot, non-zero means the caller should
// immediately CLOSE. Err is set only when the operation failed outright
// (no incarnation was created at all).
type OpenResult struct {
	HandleID uint32
	Status   int
	Err      error
}

// CloseRequest is the CLOSE request.
type CloseRequest struct {
	OriginalPath string
	HandleID    uint32
	OwnerID     uint32
}

// CloseOutcome classifies how a CLOSE resolved.
type CloseOutcome int

const (
	CloseOK CloseOutcome = iota
	CloseBrokenPipe
	CloseBadHandle
)

// CloseResult is the CLOSE response.
type CloseResult struct {
	Outcome CloseOutcome
	Err     error
}

// ShutdownResult is the SHUTDOWN response.
type ShutdownResult struct {
	LiveSessionsCount int
}
