package session

import "github.com/marmos91/sessionfsd/pkg/observer"

// ActiveSessionsNum returns the telemetry tree's active_sessions_num: the
// sum, across every published session, of its live incarnation count.
// Returns 0 if no telemetry tree was configured.
func (m *Manager) ActiveSessionsNum() int {
	if m.tree == nil {
		return 0
	}
	return m.tree.ActiveSessionsNum()
}

// SessionPaths returns the canonical paths of every currently published
// session, for introspection endpoints.
func (m *Manager) SessionPaths() []string {
	if m.tree == nil {
		return nil
	}
	return m.tree.SessionNames()
}

// Incarnations returns the live incarnations published under path.
func (m *Manager) Incarnations(path string) ([]observer.IncarnationInfo, bool) {
	if m.tree == nil {
		return nil, false
	}
	return m.tree.Incarnations(path)
}

// OwnerName resolves an incarnation's owner PID to its process command
// name, for the observer surface's per-incarnation attribute. It returns
// the documented short error string if the owner has since exited or its
// name cannot be read.
func (m *Manager) OwnerName(ownerID uint32) string {
	if m.io == nil {
		return "ERROR: process not found"
	}
	name, err := m.io.ProcessName(ownerID)
	if err != nil {
		return "ERROR: process not found"
	}
	return name
}
