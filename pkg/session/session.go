package session

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/marmos91/sessionfsd/pkg/fileio"
)

// defaultChunkSize is the copy chunk size used by snapshot and commit.
const defaultChunkSize = 512

// session is one per original file with at least one live incarnation. Its
// sess_lock discipline: the read side is held while appending to the
// incarnation list (appenders never conflict with one another — the
// underlying sync.Map tolerates concurrent Store calls — only with
// closers); the write side is held while removing an incarnation and
// deciding whether the session is now empty, and during commit, so at most
// one committer and no concurrent snapshotter runs on the same session.
type session struct {
	path string

	lock sync.RWMutex

	original fileio.File

	incarnations sync.Map // incKey -> *incarnation
	incCount     atomic.Int64

	refcount atomic.Int64
	valid    atomic.Bool

	chunkSize int
}

func newSession(path string, original fileio.File, chunkSize int) *session {
	s := &session{
		path:      path,
		original:  original,
		chunkSize: chunkSize,
	}
	s.refcount.Store(1)
	s.valid.Store(true)
	return s
}

// openOriginalFlags rewrites caller flags so the original is opened with
// both read and write enabled regardless of the requesting flags, with
// the session bit and any O_RDONLY/O_WRONLY exclusivity stripped.
func openOriginalFlags(requested int) int {
	flags := requested &^ (FlagSession | FlagRDOnly | FlagWROnly)
	return flags | FlagRDWR
}

// attachIncarnation appends inc to the list under the read side of
// sess_lock. Taking the read side excludes
// the exclusive window a closer uses to decide the session is empty and
// detach it from the registry, while letting concurrent appends proceed
// without serializing against one another.
func (s *session) attachIncarnation(inc *incarnation) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	s.incarnations.Store(incKey{inc.ownerID, inc.handleID}, inc)
	s.incCount.Add(1)
}

// detachIncarnation removes the incarnation for key, if present, and
// reports both whether it was found and whether the session has no
// remaining incarnations afterward — computed under a single write-lock
// acquisition so the emptiness decision is atomic with the removal.
func (s *session) detachIncarnation(key incKey) (inc *incarnation, found, emptyAfter bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	v, ok := s.incarnations.Load(key)
	if !ok {
		return nil, false, s.incCount.Load() == 0
	}
	s.incarnations.Delete(key)
	s.incCount.Add(-1)
	return v.(*incarnation), true, s.incCount.Load() == 0
}

// findIncarnation looks up an incarnation without removing it.
func (s *session) findIncarnation(key incKey) (*incarnation, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.incarnations.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*incarnation), true
}

// isEmpty reports whether the session currently has no live incarnations.
func (s *session) isEmpty() bool {
	return s.incCount.Load() == 0
}

// incarnationCount returns the current incarnation count.
func (s *session) incarnationCount() int {
	return int(s.incCount.Load())
}

// forEachIncarnation invokes fn for every currently attached incarnation.
// The caller must hold sess_lock write side so the set being walked cannot
// change underneath it.
func (s *session) forEachIncarnation(fn func(key incKey, inc *incarnation)) {
	s.incarnations.Range(func(k, v any) bool {
		fn(k.(incKey), v.(*incarnation))
		return true
	})
}

// detachAll removes every incarnation from the session, returning them.
// Caller must hold sess_lock write side.
func (s *session) detachAll() map[incKey]*incarnation {
	out := make(map[incKey]*incarnation)
	s.incarnations.Range(func(k, v any) bool {
		key := k.(incKey)
		out[key] = v.(*incarnation)
		s.incarnations.Delete(key)
		s.incCount.Add(-1)
		return true
	})
	return out
}

// snapshotInto copies the session's original into dst, under the read side
// of sess_lock: snapshot and commit on the same session serialize via
// sess_lock, snapshot taking the read side. Two snapshots of
// the same session may run concurrently (two readers) and race only over
// the shared bytes of the original, never over its offset, since both
// sides use explicit-offset reads and writes.
func (s *session) snapshotInto(ctx context.Context, dst fileio.File) (int64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return copyChunks(ctx, dst, s.original, s.chunkSize)
}

// commitFrom overwrites the session's original with src's contents, under
// the write side of sess_lock: commit excludes both concurrent commits and
// concurrent snapshots. The original is truncated to zero first, matching
// the documented zero-byte-commit boundary behavior; no rollback is
// attempted on a mid-copy error.
func (s *session) commitFrom(ctx context.Context, src fileio.File) (int64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.original.Truncate(0); err != nil {
		return 0, err
	}

	return copyChunks(ctx, s.original, src, s.chunkSize)
}

// copyChunks copies from src to dst in fixed-size chunks using explicit
// offsets (ReadAt/WriteAt), reading until EOF and writing exactly as many
// bytes as were read per iteration. It aborts (without rollback) on the
// first read or write error, or if ctx is cancelled between chunks.
func copyChunks(ctx context.Context, dst, src fileio.File, chunkSize int) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, readErr := src.ReadAt(buf, total)
		if n > 0 {
			written, writeErr := dst.WriteAt(buf[:n], total)
			total += int64(written)
			if writeErr != nil {
				return total, writeErr
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}
