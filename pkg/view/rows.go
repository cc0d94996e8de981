package view

import (
	"errors"
	"strings"

	"github.com/rexliu/pdfmarks/pkg/core"
)

const (
	// TopLevelGroup is the drop group shared by every top-level row.
	TopLevelGroup = "top-level-only"
	nestedPrefix  = "nested-level-"
)

// ErrUnknownGroup indicates a drop group that names no list.
var ErrUnknownGroup = errors.New("unknown drop group")

// NestedGroup returns the drop group of parentID's children.
func NestedGroup(parentID string) string {
	return nestedPrefix + parentID
}

// ParseGroup returns the parent id a drop group reorders; top is true for
// the top-level list.
func ParseGroup(group string) (parentID string, top bool, err error) {
	if group == TopLevelGroup {
		return "", true, nil
	}
	if id, ok := strings.CutPrefix(group, nestedPrefix); ok && id != "" {
		return id, false, nil
	}
	return "", false, ErrUnknownGroup
}

// Row is one visible line of the tree list.
type Row struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Page           int        `json:"page"`
	Level          int        `json:"level"`
	ParentID       string     `json:"parentId,omitempty"`
	Index          int        `json:"index"`
	Group          string     `json:"group"`
	HasChildren    bool       `json:"hasChildren"`
	Collapsed      bool       `json:"collapsed"`
	Selected       bool       `json:"selected"`
	Match          bool       `json:"match"`
	HasDestination bool       `json:"hasDestination"`
	Color          core.Color `json:"color"`
	Style          core.Style `json:"style"`
}

// Matches reports whether node or any descendant has query in its title.
// query must already be lower case.
func Matches(node core.Bookmark, query string) bool {
	if query == "" || strings.Contains(strings.ToLower(node.Title), query) {
		return true
	}
	for _, child := range node.Children {
		if Matches(child, query) {
			return true
		}
	}
	return false
}

// visibleTopLevel returns the tree indices of top-level nodes kept by the filter.
func visibleTopLevel(tree core.Tree, query string) []int {
	idx := make([]int, 0, len(tree))
	for i, node := range tree {
		if Matches(node, query) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Rows flattens the visible part of tree in display order. The search filter
// applies to top-level nodes only; children of a kept node are all shown
// unless collapsed.
func Rows(tree core.Tree, s *State) []Row {
	rows := []Row{}
	for _, i := range visibleTopLevel(tree, s.Query) {
		rows = appendRows(rows, tree[i], i, "", 0, s)
	}
	return rows
}

func appendRows(rows []Row, node core.Bookmark, index int, parentID string, level int, s *State) []Row {
	group := TopLevelGroup
	if parentID != "" {
		group = NestedGroup(parentID)
	}
	hasChildren := len(node.Children) > 0
	collapsed := s.Collapsed[node.ID]
	rows = append(rows, Row{
		ID:             node.ID,
		Title:          node.Title,
		Page:           node.Page,
		Level:          level,
		ParentID:       parentID,
		Index:          index,
		Group:          group,
		HasChildren:    hasChildren,
		Collapsed:      collapsed,
		Selected:       s.Selected[node.ID],
		Match:          s.Query != "" && strings.Contains(strings.ToLower(node.Title), s.Query),
		HasDestination: node.HasDestination(),
		Color:          node.Color,
		Style:          node.Style,
	})
	if hasChildren && !collapsed {
		for i, child := range node.Children {
			rows = appendRows(rows, child, i, node.ID, level+1, s)
		}
	}
	return rows
}
