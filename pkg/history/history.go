// Package history keeps a linear undo/redo list of whole-tree snapshots.
package history

import "github.com/rexliu/pdfmarks/pkg/core"

// Manager owns the snapshot list of one editor session. It is not safe for
// concurrent use; the session serializes access.
type Manager struct {
	snapshots []core.Tree
	index     int
}

// New returns an empty manager (index -1).
func New() *Manager {
	return &Manager{index: -1}
}

// Commit drops every snapshot after the current one and appends a deep copy of tree.
func (m *Manager) Commit(tree core.Tree) {
	m.snapshots = append(m.snapshots[:m.index+1], tree.Clone())
	m.index++
}

// Undo steps back one snapshot and returns a copy of it. It returns false
// and does nothing when there is no earlier snapshot.
func (m *Manager) Undo() (core.Tree, bool) {
	if !m.CanUndo() {
		return nil, false
	}
	m.index--
	return m.snapshots[m.index].Clone(), true
}

// Redo steps forward one snapshot and returns a copy of it. It returns false
// and does nothing at the newest snapshot.
func (m *Manager) Redo() (core.Tree, bool) {
	if !m.CanRedo() {
		return nil, false
	}
	m.index++
	return m.snapshots[m.index].Clone(), true
}

// CanUndo reports whether Undo would move.
func (m *Manager) CanUndo() bool { return m.index > 0 }

// CanRedo reports whether Redo would move.
func (m *Manager) CanRedo() bool { return m.index < len(m.snapshots)-1 }

// Current returns a copy of the snapshot at the index, or an empty tree.
func (m *Manager) Current() core.Tree {
	if m.index < 0 {
		return core.Tree{}
	}
	return m.snapshots[m.index].Clone()
}

// Index returns the active position, -1 when empty.
func (m *Manager) Index() int { return m.index }

// Len returns the number of stored snapshots.
func (m *Manager) Len() int { return len(m.snapshots) }

// Reset discards every snapshot.
func (m *Manager) Reset() {
	m.snapshots = nil
	m.index = -1
}

// Snapshots returns copies of every snapshot and the active index, for persistence.
func (m *Manager) Snapshots() ([]core.Tree, int) {
	out := make([]core.Tree, len(m.snapshots))
	for i, s := range m.snapshots {
		out[i] = s.Clone()
	}
	return out, m.index
}

// Restore replaces the list with persisted snapshots. An out-of-range index
// is pulled to the newest snapshot.
func (m *Manager) Restore(snapshots []core.Tree, index int) {
	m.snapshots = make([]core.Tree, len(snapshots))
	for i, s := range snapshots {
		m.snapshots[i] = s.Clone()
	}
	if index < 0 || index >= len(snapshots) {
		index = len(snapshots) - 1
	}
	m.index = index
}
