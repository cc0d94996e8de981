package core

// Op represents a mutation that can be applied to the tree.
type Op interface {
	isOp()
}

// AddTopLevelOp appends a bookmark to the top level.
type AddTopLevelOp struct {
	Title string
	Page  int
}

func (AddTopLevelOp) isOp() {}

// AddChildOp appends a bookmark to ParentID's children.
type AddChildOp struct {
	ParentID string
	Title    string
	Page     int
}

func (AddChildOp) isOp() {}

// EditOp patches a bookmark. Nil fields are left unchanged. Dest, when set,
// replaces the page and every destination field; ClearDest drops them.
type EditOp struct {
	NodeID    string
	Title     *string
	Color     *Color
	Style     *Style
	Dest      *Destination
	ClearDest bool
}

func (EditOp) isOp() {}

// RemoveOp removes a bookmark and its subtree.
type RemoveOp struct {
	NodeID string
}

func (RemoveOp) isOp() {}

// RemoveManyOp removes every listed bookmark with its subtree. Unknown ids are ignored.
type RemoveManyOp struct {
	NodeIDs []string
}

func (RemoveManyOp) isOp() {}

// ApplyColorOp sets the color of every listed bookmark.
type ApplyColorOp struct {
	NodeIDs []string
	Color   Color
}

func (ApplyColorOp) isOp() {}

// ApplyStyleOp sets the style of every listed bookmark.
type ApplyStyleOp struct {
	NodeIDs []string
	Style   Style
}

func (ApplyStyleOp) isOp() {}

// ReorderTopLevelOp moves a top-level bookmark from one index to another.
type ReorderTopLevelOp struct {
	From int
	To   int
}

func (ReorderTopLevelOp) isOp() {}

// ReorderChildrenOp moves a child of ParentID from one index to another.
type ReorderChildrenOp struct {
	ParentID string
	From     int
	To       int
}

func (ReorderChildrenOp) isOp() {}

// ReplaceOp swaps the whole tree, as imports do.
type ReplaceOp struct {
	Tree Tree
}

func (ReplaceOp) isOp() {}

// ClearOp removes every bookmark.
type ClearOp struct{}

func (ClearOp) isOp() {}
