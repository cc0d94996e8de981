package core

import (
	"errors"
	"fmt"
)

// Apply runs ops in order against a copy of tree and returns the copy. The
// input is never modified, so callers can keep it as an undo snapshot. The
// batch is all-or-nothing: on error the returned tree is nil.
func Apply(tree Tree, ops ...Op) (Tree, error) {
	next := tree.Clone()
	for i, op := range ops {
		var err error
		next, err = applyOne(next, op)
		if err != nil {
			return nil, fmt.Errorf("op %d (%T): %w", i, op, err)
		}
	}
	return next, nil
}

func applyOne(tree Tree, op Op) (Tree, error) {
	switch v := op.(type) {
	case AddTopLevelOp:
		title, err := validateTitle(v.Title)
		if err != nil {
			return nil, err
		}
		if err := validatePage(v.Page); err != nil {
			return nil, err
		}
		return append(tree, NewBookmark(title, v.Page)), nil
	case AddChildOp:
		parent, ok := tree.Find(v.ParentID)
		if !ok {
			return nil, ErrInvalidParent
		}
		title, err := validateTitle(v.Title)
		if err != nil {
			return nil, err
		}
		if err := validatePage(v.Page); err != nil {
			return nil, err
		}
		parent.Children = append(parent.Children, NewBookmark(title, v.Page))
		return tree, nil
	case EditOp:
		node, ok := tree.Find(v.NodeID)
		if !ok {
			return nil, ErrInvalidNode
		}
		return tree, editNode(node, v)
	case RemoveOp:
		next, ok := removeIn(tree, v.NodeID)
		if !ok {
			return nil, ErrInvalidNode
		}
		return next, nil
	case RemoveManyOp:
		return filterOut(tree, idSet(v.NodeIDs)), nil
	case ApplyColorOp:
		if err := ValidateColor(v.Color); err != nil {
			return nil, err
		}
		for _, id := range v.NodeIDs {
			if node, ok := tree.Find(id); ok {
				node.Color = v.Color
			}
		}
		return tree, nil
	case ApplyStyleOp:
		if err := ValidateStyle(v.Style); err != nil {
			return nil, err
		}
		for _, id := range v.NodeIDs {
			if node, ok := tree.Find(id); ok {
				node.Style = v.Style
			}
		}
		return tree, nil
	case ReorderTopLevelOp:
		if err := validateIndex(v.From, len(tree)); err != nil {
			return nil, err
		}
		if err := validateIndex(v.To, len(tree)); err != nil {
			return nil, err
		}
		return moveItem(tree, v.From, v.To), nil
	case ReorderChildrenOp:
		parent, ok := tree.Find(v.ParentID)
		if !ok {
			return nil, ErrInvalidParent
		}
		if err := validateIndex(v.From, len(parent.Children)); err != nil {
			return nil, err
		}
		if err := validateIndex(v.To, len(parent.Children)); err != nil {
			return nil, err
		}
		parent.Children = moveItem(parent.Children, v.From, v.To)
		return tree, nil
	case ReplaceOp:
		next := v.Tree.Clone()
		EnsureIDs(next)
		return next, nil
	case ClearOp:
		return Tree{}, nil
	default:
		return nil, errors.New("unsupported op")
	}
}

func editNode(node *Bookmark, op EditOp) error {
	if op.Color != nil {
		if err := ValidateColor(*op.Color); err != nil {
			return err
		}
	}
	if op.Style != nil {
		if err := ValidateStyle(*op.Style); err != nil {
			return err
		}
	}
	if op.Dest != nil {
		if err := validatePage(op.Dest.Page); err != nil {
			return err
		}
		if err := ValidateZoom(op.Dest.Zoom); err != nil {
			return err
		}
	}
	if op.Title != nil {
		node.Title = *op.Title
	}
	if op.Color != nil {
		node.Color = *op.Color
	}
	if op.Style != nil {
		node.Style = *op.Style
	}
	if op.ClearDest {
		node.DestX, node.DestY, node.Zoom = nil, nil, ""
	}
	if op.Dest != nil {
		node.Page = op.Dest.Page
		node.DestX = cloneFloat(op.Dest.X)
		node.DestY = cloneFloat(op.Dest.Y)
		node.Zoom = op.Dest.Zoom
	}
	return nil
}
