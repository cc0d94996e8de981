package core

// Tree is the ordered list of top-level bookmarks.
type Tree []Bookmark

// Clone returns a deep copy. The copy never shares nodes with t.
func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for i, node := range t {
		out[i] = node.Clone()
	}
	return out
}

// Find returns the first node with id in depth-first order. The pointer
// aliases t, so edits through it mutate t.
func (t Tree) Find(id string) (*Bookmark, bool) {
	return findIn(t, id)
}

func findIn(nodes []Bookmark, id string) (*Bookmark, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i], true
		}
		if found, ok := findIn(nodes[i].Children, id); ok {
			return found, true
		}
	}
	return nil, false
}

// Walk visits every node in pre-order with its depth (0 = top level).
// Returning false from fn skips the node's children.
func (t Tree) Walk(fn func(node *Bookmark, level int) bool) {
	walkIn(t, 0, fn)
}

func walkIn(nodes []Bookmark, level int, fn func(*Bookmark, int) bool) {
	for i := range nodes {
		if fn(&nodes[i], level) {
			walkIn(nodes[i].Children, level+1, fn)
		}
	}
}

// Len returns the number of nodes at all levels.
func (t Tree) Len() int {
	n := 0
	t.Walk(func(*Bookmark, int) bool {
		n++
		return true
	})
	return n
}

// IDs returns every node id in pre-order.
func (t Tree) IDs() []string {
	ids := make([]string, 0, len(t))
	t.Walk(func(node *Bookmark, _ int) bool {
		ids = append(ids, node.ID)
		return true
	})
	return ids
}

// ParentOf returns the parent of id, or nil with ok=true when id is top-level.
func (t Tree) ParentOf(id string) (parent *Bookmark, ok bool) {
	for i := range t {
		if t[i].ID == id {
			return nil, true
		}
	}
	var found *Bookmark
	t.Walk(func(node *Bookmark, _ int) bool {
		if found != nil {
			return false
		}
		for _, child := range node.Children {
			if child.ID == id {
				found = node
				return false
			}
		}
		return true
	})
	return found, found != nil
}

func removeIn(nodes []Bookmark, id string) ([]Bookmark, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			return append(nodes[:i], nodes[i+1:]...), true
		}
		if children, ok := removeIn(nodes[i].Children, id); ok {
			nodes[i].Children = children
			return nodes, true
		}
	}
	return nodes, false
}

func filterOut(nodes []Bookmark, ids map[string]struct{}) []Bookmark {
	kept := nodes[:0]
	for _, node := range nodes {
		if _, drop := ids[node.ID]; drop {
			continue
		}
		node.Children = filterOut(node.Children, ids)
		kept = append(kept, node)
	}
	return kept
}

// moveItem splices the item at from out of nodes and back in at to.
func moveItem(nodes []Bookmark, from, to int) []Bookmark {
	moved := nodes[from]
	nodes = append(nodes[:from], nodes[from+1:]...)
	nodes = append(nodes, Bookmark{})
	copy(nodes[to+1:], nodes[to:])
	nodes[to] = moved
	return nodes
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
