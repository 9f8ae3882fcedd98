package session

import "context"

// Shutdown implements the SHUTDOWN operation. It first marks the core
// unavailable to new Open calls, then makes a snapshot-consistent walk of
// every registered session, reconciling each incarnation's owner against
// the File I/O capability's liveness check. Incarnations whose owner is
// gone have their snapshot discarded and are removed for good;
// incarnations whose owner is still alive are re-attached untouched. The
// surviving incarnation count is returned.
func (m *Manager) Shutdown(ctx context.Context) (ShutdownResult, error) {
	m.shuttingDown.Store(true)

	live := 0
	for _, s := range m.snapshotSessions() {
		live += m.reapSession(ctx, s)
	}

	return ShutdownResult{LiveSessionsCount: live}, nil
}

// reapSession walks one session's incarnations under its write lock,
// detaching every one of them, then re-attaching the ones whose owner
// process is still alive and discarding the rest. It returns the number of
// incarnations that survived.
func (m *Manager) reapSession(ctx context.Context, s *session) int {
	s.lock.Lock()
	detached := s.detachAll()
	survivors := 0

	for key, inc := range detached {
		if ctx.Err() != nil {
			// Cancellation mid-walk: treat the remainder as still alive so
			// a shutdown abort never silently discards live work.
			s.incarnations.Store(key, inc)
			s.incCount.Add(1)
			survivors++
			continue
		}

		if m.io.IsProcessAlive(inc.ownerID) {
			s.incarnations.Store(key, inc)
			s.incCount.Add(1)
			survivors++
			continue
		}

		if m.tree != nil {
			m.tree.RemoveIncarnation(s.path, inc.ownerID, inc.handleID)
		}
		_ = inc.snapshotFile.Close()
	}

	empty := survivors == 0
	if empty {
		s.valid.Store(false)
		m.detach(s)
	}
	s.lock.Unlock()

	if empty {
		m.deallocateIfIdle(s)
	}

	return survivors
}
