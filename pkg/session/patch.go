package session

import (
	"errors"
	"fmt"

	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/view"
)

// Patch is the wire form of an edit. Absent or null fields are unchanged;
// an empty color or style clears it.
type Patch struct {
	Title     *string           `json:"title,omitempty"`
	Color     *core.Color       `json:"color,omitempty"`
	Style     *core.Style       `json:"style,omitempty"`
	Dest      *core.Destination `json:"dest,omitempty"`
	ClearDest bool              `json:"clearDest,omitempty"`
}

// Op converts p into an edit of node id.
func (p Patch) Op(id string) core.EditOp {
	return core.EditOp{
		NodeID:    id,
		Title:     p.Title,
		Color:     p.Color,
		Style:     p.Style,
		Dest:      p.Dest,
		ClearDest: p.ClearDest,
	}
}

// ErrUnknownViewAction is returned by ApplyView for an unrecognized action.
var ErrUnknownViewAction = errors.New("unknown view action")

// ViewAction names a tree view toggle driven by clients.
type ViewAction struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Query  string `json:"query,omitempty"`
}

// ApplyView runs a view action: search, batch, select, select_all,
// deselect_all, collapse, expand_all or collapse_all.
func (s *Session) ApplyView(a ViewAction) error {
	var err error
	s.View(func(st *view.State, tree core.Tree) {
		switch a.Action {
		case "search":
			st.SetQuery(a.Query)
		case "batch":
			st.ToggleBatch()
		case "select":
			if _, ok := tree.Find(a.ID); !ok {
				err = fmt.Errorf("%s: %w", a.ID, core.ErrInvalidNode)
				return
			}
			st.ToggleSelect(a.ID)
		case "select_all":
			st.SelectAll(tree)
		case "deselect_all":
			st.DeselectAll()
		case "collapse":
			if _, ok := tree.Find(a.ID); !ok {
				err = fmt.Errorf("%s: %w", a.ID, core.ErrInvalidNode)
				return
			}
			st.ToggleCollapse(a.ID)
		case "expand_all":
			st.ExpandAll()
		case "collapse_all":
			st.CollapseAll(tree)
		default:
			err = fmt.Errorf("%w %q", ErrUnknownViewAction, a.Action)
		}
	})
	return err
}
