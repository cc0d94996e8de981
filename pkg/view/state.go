// Package view projects an outline tree into display rows and turns list
// interactions (collapse, selection, drag and drop) into tree mutations.
package view

import (
	"strings"

	"github.com/rexliu/pdfmarks/pkg/core"
)

// State is the presentation state of one editor. None of it enters history
// or exports.
type State struct {
	Collapsed map[string]bool `json:"collapsed"`
	Selected  map[string]bool `json:"selected"`
	BatchMode bool            `json:"batchMode"`
	Query     string          `json:"query"`
}

// NewState returns an empty state with batch mode off.
func NewState() *State {
	return &State{Collapsed: map[string]bool{}, Selected: map[string]bool{}}
}

// Reset clears everything, as when a new document is loaded.
func (s *State) Reset() {
	*s = *NewState()
}

// SetQuery sets the search filter. Matching is case-insensitive.
func (s *State) SetQuery(q string) {
	s.Query = strings.ToLower(q)
}

// ToggleBatch flips batch mode and returns the new mode. Leaving batch mode
// clears the selection.
func (s *State) ToggleBatch() bool {
	s.BatchMode = !s.BatchMode
	if !s.BatchMode {
		s.DeselectAll()
	}
	return s.BatchMode
}

// ToggleSelect adds or removes id from the selection.
func (s *State) ToggleSelect(id string) bool {
	if s.Selected[id] {
		delete(s.Selected, id)
		return false
	}
	s.Selected[id] = true
	return true
}

// SelectAll selects every node at every level.
func (s *State) SelectAll(tree core.Tree) {
	for _, id := range tree.IDs() {
		s.Selected[id] = true
	}
}

func (s *State) DeselectAll() {
	s.Selected = map[string]bool{}
}

// SelectedIDs returns the selected ids present in tree, in pre-order.
func (s *State) SelectedIDs(tree core.Tree) []string {
	var ids []string
	for _, id := range tree.IDs() {
		if s.Selected[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// ToggleCollapse flips the collapsed flag of id and returns the new value.
func (s *State) ToggleCollapse(id string) bool {
	if s.Collapsed[id] {
		delete(s.Collapsed, id)
		return false
	}
	s.Collapsed[id] = true
	return true
}

// Expand shows the children of id.
func (s *State) Expand(id string) {
	delete(s.Collapsed, id)
}

func (s *State) ExpandAll() {
	s.Collapsed = map[string]bool{}
}

// CollapseAll collapses every node that has children.
func (s *State) CollapseAll(tree core.Tree) {
	tree.Walk(func(node *core.Bookmark, _ int) bool {
		if len(node.Children) > 0 {
			s.Collapsed[node.ID] = true
		}
		return true
	})
}

// Prune forgets ids that are no longer in tree, e.g. after a delete or undo.
func (s *State) Prune(tree core.Tree) {
	live := make(map[string]bool)
	for _, id := range tree.IDs() {
		live[id] = true
	}
	for id := range s.Selected {
		if !live[id] {
			delete(s.Selected, id)
		}
	}
	for id := range s.Collapsed {
		if !live[id] {
			delete(s.Collapsed, id)
		}
	}
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	out := &State{
		Collapsed: make(map[string]bool, len(s.Collapsed)),
		Selected:  make(map[string]bool, len(s.Selected)),
		BatchMode: s.BatchMode,
		Query:     s.Query,
	}
	for k, v := range s.Collapsed {
		out.Collapsed[k] = v
	}
	for k, v := range s.Selected {
		out.Selected[k] = v
	}
	return out
}
