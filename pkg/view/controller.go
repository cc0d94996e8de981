package view

import (
	"fmt"

	"github.com/rexliu/pdfmarks/pkg/core"
)

// Model is the authoritative tree the controller mutates.
type Model interface {
	// Tree returns a copy of the live tree.
	Tree() core.Tree
	// Commit replaces the live tree and records one history snapshot.
	Commit(next core.Tree)
	// Rollback restores the live tree from the last committed snapshot.
	Rollback()
}

// DropEvent reports a finished drag inside one drop group. Indices are
// positions in the visible list of that group.
type DropEvent struct {
	Group    string `json:"group"`
	OldIndex int    `json:"oldIndex"`
	NewIndex int    `json:"newIndex"`
}

// Controller applies drag and drop results to a Model.
type Controller struct {
	model Model
	state *State
}

// NewController binds a controller to a model and its view state.
func NewController(model Model, state *State) *Controller {
	return &Controller{model: model, state: state}
}

// Drop moves one item within its group and commits a single snapshot. Equal
// indices change nothing. On any failure, including a panic, the model is
// rolled back to its last snapshot and the error returned.
func (c *Controller) Drop(ev DropEvent) (changed bool, err error) {
	if ev.OldIndex == ev.NewIndex {
		return false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			c.model.Rollback()
			changed, err = false, fmt.Errorf("drop %s %d->%d: panic: %v", ev.Group, ev.OldIndex, ev.NewIndex, r)
		}
	}()

	tree := c.model.Tree()
	op, err := c.dropOp(tree, ev)
	if err != nil {
		c.model.Rollback()
		return false, err
	}
	next, err := core.Apply(tree, op)
	if err != nil {
		c.model.Rollback()
		return false, fmt.Errorf("drop %s %d->%d: %w", ev.Group, ev.OldIndex, ev.NewIndex, err)
	}
	c.model.Commit(next)
	return true, nil
}

func (c *Controller) dropOp(tree core.Tree, ev DropEvent) (core.Op, error) {
	parentID, top, err := ParseGroup(ev.Group)
	if err != nil {
		return nil, fmt.Errorf("drop %q: %w", ev.Group, err)
	}
	if !top {
		return core.ReorderChildrenOp{ParentID: parentID, From: ev.OldIndex, To: ev.NewIndex}, nil
	}
	visible := visibleTopLevel(tree, c.state.Query)
	if ev.OldIndex < 0 || ev.OldIndex >= len(visible) || ev.NewIndex < 0 || ev.NewIndex >= len(visible) {
		return nil, fmt.Errorf("drop %d->%d of %d visible: %w", ev.OldIndex, ev.NewIndex, len(visible), core.ErrInvalidIndex)
	}
	return core.ReorderTopLevelOp{From: visible[ev.OldIndex], To: visible[ev.NewIndex]}, nil
}
