package session

import (
	"sync"
	"sync/atomic"

	"github.com/marmos91/sessionfsd/pkg/fileio"
	"github.com/marmos91/sessionfsd/pkg/observer"
	"github.com/marmos91/sessionfsd/pkg/pathgate"
)

// Manager is the session registry plus the lifecycle engine: the
// reader-mostly set of sessions keyed by canonical original path, and the
// Open/Close/Shutdown operations that drive it.
type Manager struct {
	// mu is the admission_lock: it serializes registry insertions and
	// removals. Lookups (findByPath, findByHandle, the reaper's walk) take
	// only the read side.
	mu       sync.RWMutex
	sessions map[string]*session

	io    fileio.Capability
	gate  *pathgate.Gate
	tree  *observer.Tree

	chunkSize           int
	snapshotFallbackDir string

	shuttingDown atomic.Bool
}

// Config configures a Manager.
type Config struct {
	IO        fileio.Capability
	Gate      *pathgate.Gate
	Tree      *observer.Tree
	ChunkSize int

	// SnapshotFallbackDir is where overlong incarnation snapshot names are
	// placed instead. Defaults to /var/tmp.
	SnapshotFallbackDir string
}

// NewManager constructs a Manager with an empty registry.
func NewManager(cfg Config) *Manager {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Manager{
		sessions:            make(map[string]*session),
		io:                  cfg.IO,
		gate:                cfg.Gate,
		tree:                cfg.Tree,
		chunkSize:           chunkSize,
		snapshotFallbackDir: cfg.SnapshotFallbackDir,
	}
}

// findByPath returns the session registered for path, with its refcount
// incremented, or nil if none exists. The session is not checked for
// validity here; callers re-check it. Does not retain beyond the caller's
// responsibility to decrement the refcount exactly once.
func (m *Manager) findByPath(path string) *session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[path]
	if !ok {
		return nil
	}
	s.refcount.Add(1)
	return s
}

// findByHandle returns the session containing an incarnation matched by
// (ownerID, handleID), with its refcount incremented, or nil.
func (m *Manager) findByHandle(ownerID, handleID uint32) *session {
	m.mu.RLock()
	// Snapshot the session list before inspecting each one's incarnations,
	// so concurrent admissions/detaches during the scan cannot corrupt it.
	candidates := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	key := incKey{ownerID, handleID}
	for _, s := range candidates {
		if _, ok := s.findIncarnation(key); ok {
			s.refcount.Add(1)
			return s
		}
	}
	return nil
}

// admitOrGet returns the valid session for path if one exists (with
// refcount incremented); otherwise it runs initializer — which performs the
// blocking original-file I/O and must not itself touch the admission
// mutex — before ever taking the lock, then re-checks under a short
// acquisition of it. A slow or blocked open this way never serializes every
// other path's admission behind it. If another caller wins the race and
// admits the session first, the session this call just opened is discarded.
func (m *Manager) admitOrGet(path string, initializer func() (*session, error)) (*session, error) {
	if s := m.findByPath(path); s != nil {
		return s, nil
	}

	s, err := initializer()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if cur, ok := m.sessions[path]; ok && cur.valid.Load() {
		cur.refcount.Add(1)
		m.mu.Unlock()
		m.deallocate(s)
		return cur, nil
	}
	m.sessions[path] = s
	m.mu.Unlock()

	return s, nil
}

// detach removes a session from the discoverable set. Caller must hold the
// session's sess_lock write side and have verified it is empty.
func (m *Manager) detach(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[s.path]; ok && cur == s {
		delete(m.sessions, s.path)
	}
}

// snapshotSessions returns every currently registered session, consistent
// with a single instant — used by the reaper's walk.
func (m *Manager) snapshotSessions() []*session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// release drops one refcount reference on s and, if it reaches zero while
// the session is invalid, deallocates it. Deallocation closes the original
// file handle and unpublishes the session's telemetry node.
func (m *Manager) release(s *session) {
	if s.refcount.Add(-1) != 0 {
		return
	}
	if s.valid.Load() {
		return
	}
	m.deallocate(s)
}

// deallocateIfIdle deallocates s if it is both invalid and currently held
// by no one. Unlike release, it does not itself drop a reference — it is
// used by the reaper, which observes sessions via snapshotSessions without
// acquiring one.
func (m *Manager) deallocateIfIdle(s *session) {
	if s.valid.Load() {
		return
	}
	if s.refcount.Load() == 0 {
		m.deallocate(s)
	}
}

func (m *Manager) deallocate(s *session) {
	_ = s.original.Close()
	if m.tree != nil {
		m.tree.UnpublishSession(s.path)
	}
}
