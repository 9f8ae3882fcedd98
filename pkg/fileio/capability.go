// Package fileio provides the File I/O capability the session manager
// builds on: opening, reading, writing and canonicalizing files, plus the
// process-liveness and naming primitives the reaper and observer surface
// need. The session manager never touches os directly; it only ever calls
// through the Capability interface, so tests can swap in a fault-injecting
// fake.
package fileio

import (
	"context"
	"io"
	"os"
)

// File is the subset of *os.File operations a session or incarnation needs.
// Reads and writes go through explicit offsets (ReadAt/WriteAt) rather than
// a shared file position — this makes concurrent snapshots of the same
// original safe from each other's offset, which a shared-position
// Read/Write would not be.
type File interface {
	io.Closer
	io.ReaderAt
	io.WriterAt
	Name() string
	Sync() error
	Truncate(size int64) error
}

// Capability is the File I/O capability injected into the session manager.
// A real implementation wraps os directly; a fake implementation exists for
// deterministic fault injection in tests.
type Capability interface {
	// Open opens path with the given flags and mode, mirroring os.OpenFile.
	Open(ctx context.Context, path string, flags int, mode os.FileMode) (File, error)

	// Unlink removes the file at path. Absence is not an error.
	Unlink(ctx context.Context, path string) error

	// Canonicalize resolves path to an absolute, symlink-free form. If path
	// does not exist, it returns os.ErrNotExist wrapped with the attempted
	// result so callers can fall back to a textual comparison.
	Canonicalize(ctx context.Context, path string) (string, error)

	// MaxPathLength returns the maximum path length the host supports.
	MaxPathLength() int

	// IsProcessAlive reports whether a process with the given PID currently
	// exists. It never blocks on the process itself.
	IsProcessAlive(pid uint32) bool

	// ProcessName returns the command name of the process with the given
	// PID, or an error if the process cannot be found.
	ProcessName(pid uint32) (string, error)

	// NextHandleID hands out a fresh, process-unique incarnation handle
	// identifier. The original allocates this as an anonymous file
	// descriptor number; Go has no equivalent primitive, so both
	// implementations hand out a monotonically increasing counter instead.
	NextHandleID() uint32
}
