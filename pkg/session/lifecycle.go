package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// Open implements the OPEN operation: admit or get the session for the
// requested path, then create a new incarnation under it. A session that
// is mid-teardown is retried exactly once before giving up.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (OpenResult, error) {
	if m.shuttingDown.Load() {
		err := errUnavailable("core is shutting down")
		return OpenResult{Err: err}, err
	}
	if req.OriginalPath == "" {
		err := errInvalidArgument("original_path is required", nil)
		return OpenResult{Err: err}, err
	}

	if m.gate != nil {
		ok, err := m.gate.IsUnderRoot(ctx, req.OriginalPath)
		if err != nil {
			wrapped := errIOFailure("checking session root", err)
			return OpenResult{Err: wrapped}, wrapped
		}
		if !ok {
			err := errInvalidArgument("path is not under the session root", nil)
			return OpenResult{Err: err}, err
		}
	}

	canonical, err := m.canonicalPath(ctx, req.OriginalPath)
	if err != nil {
		wrapped := errIOFailure("canonicalizing path", err)
		return OpenResult{Err: wrapped}, wrapped
	}
	req.OriginalPath = canonical

	s, err := m.admitSession(ctx, req)
	if err != nil {
		return OpenResult{Err: err}, err
	}

	inc, err := m.createIncarnation(ctx, s, req)
	m.release(s)
	if err != nil {
		return OpenResult{Err: err}, err
	}

	return OpenResult{HandleID: inc.handleID, Status: inc.status}, nil
}

// canonicalPath resolves path the same way the path gate does: canonicalize
// when the file exists, fall back to a textual clean when it does not —
// Open may be the very call that creates the file, so non-existence here
// is expected, not an error.
func (m *Manager) canonicalPath(ctx context.Context, path string) (string, error) {
	resolved, err := m.io.Canonicalize(ctx, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return filepath.Clean(resolved), nil
		}
		return "", err
	}
	return resolved, nil
}

// admitSession admits or retrieves the session for req.OriginalPath,
// retrying exactly once if the session it returns has already been
// invalidated by a racing Close. The returned session is held with one
// refcount reference that the caller must release.
func (m *Manager) admitSession(ctx context.Context, req OpenRequest) (*session, error) {
	initializer := func() (*session, error) {
		if m.tree != nil {
			m.tree.PublishSession(req.OriginalPath)
		}
		f, err := m.io.Open(ctx, req.OriginalPath, openOriginalFlags(req.Flags), req.Mode)
		if err != nil {
			if m.tree != nil {
				m.tree.UnpublishSession(req.OriginalPath)
			}
			return nil, errIOFailure("opening original file", err)
		}
		return newSession(req.OriginalPath, f, m.chunkSize), nil
	}

	s, err := m.admitOrGet(req.OriginalPath, initializer)
	if err != nil {
		return nil, err
	}
	if s.valid.Load() {
		return s, nil
	}

	// Lost the race with a concurrent Close tearing this entry down between
	// our lookup and now. Drop our reference — which may complete the
	// teardown's deallocation — and retry admission exactly once.
	m.release(s)

	s, err = m.admitOrGet(req.OriginalPath, initializer)
	if err != nil {
		return nil, err
	}
	if !s.valid.Load() {
		m.release(s)
		return nil, errAgain("session admission raced with teardown")
	}
	return s, nil
}

// createIncarnation allocates an incarnation, opens its snapshot file,
// publishes its telemetry, snapshots the original into it under the
// session lock's read side, and appends it to the session's list. A
// failed snapshot copy does not fail the call — it is recorded in the
// incarnation's status, and the caller is expected to immediately CLOSE.
func (m *Manager) createIncarnation(ctx context.Context, s *session, req OpenRequest) (*incarnation, error) {
	if !s.valid.Load() {
		return nil, errAgain("session is being torn down")
	}

	handleID := m.io.NextHandleID()
	snapshotPath := deriveSnapshotPath(m.io, s.path, req.OwnerID, m.snapshotFallbackDir)

	snapFile, err := m.io.Open(ctx, snapshotPath, FlagCreate|FlagTrunc|FlagRDWR, req.Mode)
	if err != nil {
		return nil, errIOFailure("opening snapshot file", err)
	}

	inc := &incarnation{
		ownerID:      req.OwnerID,
		handleID:     handleID,
		snapshotFile: snapFile,
		snapshotPath: snapshotPath,
	}

	if m.tree != nil {
		m.tree.AddIncarnation(s.path, inc.ownerID, inc.handleID)
	}

	if _, copyErr := s.snapshotInto(ctx, snapFile); copyErr != nil {
		inc.status = -1
	}

	s.attachIncarnation(inc)
	return inc, nil
}

// Close implements the CLOSE operation: locate the incarnation by
// (owner_id, handle_id), then — under one acquisition of the session's
// write lock — commit its snapshot back into the original if the session
// is still valid, detach it from the session, and, if that leaves the
// session empty, detach the session from the registry. Validity is
// re-checked inside that same critical section so a concurrent Shutdown
// pass cannot invalidate and detach the session between the check and the
// commit.
func (m *Manager) Close(ctx context.Context, req CloseRequest) (CloseResult, error) {
	s := m.findByHandle(req.OwnerID, req.HandleID)
	if s == nil {
		err := errNotFound("no session found for handle")
		return CloseResult{Outcome: CloseBadHandle, Err: err}, err
	}

	key := incKey{req.OwnerID, req.HandleID}

	inc, found, wasValid, commitErr := m.closeIncarnation(ctx, s, key)
	if !found {
		m.release(s)
		err := errNotFound("incarnation not found on session")
		return CloseResult{Outcome: CloseBadHandle, Err: err}, err
	}

	if m.tree != nil {
		m.tree.RemoveIncarnation(s.path, inc.ownerID, inc.handleID)
	}

	_ = inc.snapshotFile.Close()
	_ = m.io.Unlink(ctx, inc.snapshotPath)

	m.release(s)

	switch {
	case !wasValid:
		return CloseResult{Outcome: CloseBrokenPipe, Err: errBrokenPipe("session owner vanished before commit")}, nil
	case commitErr != nil:
		err := errIOFailure("committing incarnation", commitErr)
		return CloseResult{Outcome: CloseBrokenPipe, Err: err}, err
	default:
		return CloseResult{Outcome: CloseOK}, nil
	}
}

// closeIncarnation performs the commit-or-discard, detach, and — when this
// leaves a still-valid session empty — the invalidate-and-deregister step,
// all under one acquisition of the session's write lock. Holding a single
// critical section across the validity check, the commit, and the detach
// is what keeps a concurrent reaper pass from slipping a commit through
// after the session has already been invalidated.
func (m *Manager) closeIncarnation(ctx context.Context, s *session, key incKey) (inc *incarnation, found, wasValid bool, commitErr error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	v, ok := s.incarnations.Load(key)
	if !ok {
		return nil, false, false, nil
	}
	inc = v.(*incarnation)

	wasValid = s.valid.Load()
	if wasValid {
		if err := s.original.Truncate(0); err != nil {
			commitErr = err
		} else {
			_, commitErr = copyChunks(ctx, s.original, inc.snapshotFile, s.chunkSize)
		}
	}

	s.incarnations.Delete(key)
	s.incCount.Add(-1)

	if wasValid && s.incCount.Load() == 0 {
		s.valid.Store(false)
		m.detach(s)
	}

	return inc, true, wasValid, commitErr
}
