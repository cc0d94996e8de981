package session

import (
	"fmt"

	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/picker"
	"github.com/rexliu/pdfmarks/pkg/preview"
	"github.com/rexliu/pdfmarks/pkg/view"
)

// GotoPage shows page n of the preview. Out of range pages are ignored.
func (s *Session) GotoPage(n int) bool {
	return s.navigate(func() bool { return s.pane.Show(n) })
}

func (s *Session) NextPage() bool {
	return s.navigate(s.pane.Next)
}

func (s *Session) PrevPage() bool {
	return s.navigate(s.pane.Prev)
}

// JumpTo shows the page a bookmark points at.
func (s *Session) JumpTo(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.tree.Find(id)
	if !ok {
		return 0, fmt.Errorf("jump to %s: %w", id, core.ErrInvalidNode)
	}
	page := core.ClampPage(node.Page, s.pane.PageCount())
	if s.pane.Show(page) {
		s.refreshPickBounds()
	}
	return s.pane.Page(), nil
}

func (s *Session) navigate(move func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !move() {
		return false
	}
	s.refreshPickBounds()
	return true
}

// Viewport returns the canvas size of the current page at the session scale.
func (s *Session) Viewport() (preview.Viewport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pane.Viewport(0)
}

// StartPicking enters destination picking over the canvas drawn at client
// position (left, top). When nodeID is set the picked point becomes that
// bookmark's destination.
func (s *Session) StartPicking(nodeID string, left, top float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireDoc(); err != nil {
		return err
	}
	if nodeID != "" {
		if _, ok := s.tree.Find(nodeID); !ok {
			return fmt.Errorf("pick for %s: %w", nodeID, core.ErrInvalidNode)
		}
	}
	vp, err := s.pane.Viewport(0)
	if err != nil {
		return err
	}
	if err := s.picker.Start(vp.Bounds(left, top), s.picked); err != nil {
		return err
	}
	s.pickAt = [2]float64{left, top}
	s.pickNode = nodeID
	s.lastPick = nil
	return nil
}

// picked runs from Picker.Click, which the session calls with its lock held.
func (s *Session) picked(page int, x, y float64) {
	s.lastPick = &Pick{Page: page, X: x, Y: y}
	if s.pickNode == "" {
		return
	}
	node, ok := s.tree.Find(s.pickNode)
	if !ok {
		return
	}
	dest := core.Destination{Page: page, X: core.Float(x), Y: core.Float(y), Zoom: node.Zoom}
	if _, err := s.apply(core.EditOp{NodeID: s.pickNode, Dest: &dest}); err != nil {
		s.log.Warnf("session %s: apply picked destination: %v", s.id, err)
	}
}

// PickMove updates the coordinate tooltip.
func (s *Session) PickMove(clientX, clientY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picker.Move(clientX, clientY)
}

// PickLeave hides the coordinate tooltip.
func (s *Session) PickLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picker.Leave()
}

// Pick selects the point under a click on the current page.
func (s *Session) Pick(clientX, clientY float64) (Pick, error) {
	var p Pick
	err := s.mutate(func() error {
		if _, err := s.picker.Click(s.pane.Page(), clientX, clientY); err != nil {
			return err
		}
		p = *s.lastPick
		return nil
	})
	return p, err
}

// CancelPicking leaves picking mode without choosing a point.
func (s *Session) CancelPicking() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.picker.Cancel()
}

// LastPick returns the most recent picked point, if any.
func (s *Session) LastPick() (Pick, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastPick == nil {
		return Pick{}, false
	}
	return *s.lastPick, true
}

func (s *Session) refreshPickBounds() {
	if !s.picker.Active() {
		return
	}
	if vp, err := s.pane.Viewport(0); err == nil {
		s.picker.SetBounds(vp.Bounds(s.pickAt[0], s.pickAt[1]))
	}
}

// View runs fn against the view state under the session lock. It is for
// presentation-only changes: selection, collapse, batch mode and search.
func (s *Session) View(fn func(st *view.State, tree core.Tree)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.view, s.tree)
}

// Rows returns the visible rows of the tree list.
func (s *Session) Rows() []view.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view.Rows(s.tree, s.view)
}

// HTML renders the tree list.
func (s *Session) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view.HTML(s.tree, s.view)
}

// Tree returns a copy of the current tree.
func (s *Session) Tree() core.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Clone()
}

// Status summarizes a session for clients.
type Status struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	HasDocument bool                `json:"hasDocument"`
	Page        int                 `json:"page"`
	PageCount   int                 `json:"pageCount"`
	Bookmarks   int                 `json:"bookmarks"`
	CanUndo     bool                `json:"canUndo"`
	CanRedo     bool                `json:"canRedo"`
	BatchMode   bool                `json:"batchMode"`
	Selected    int                 `json:"selected"`
	Query       string              `json:"query"`
	Preloaded   int                 `json:"preloaded"`
	Overlay     picker.OverlayState `json:"overlay"`
}

// State returns the current status.
func (s *Session) State() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ID:          s.id,
		Name:        s.name,
		HasDocument: s.doc != nil,
		Page:        s.pane.Page(),
		PageCount:   s.pane.PageCount(),
		Bookmarks:   s.tree.Len(),
		CanUndo:     s.history.CanUndo(),
		CanRedo:     s.history.CanRedo(),
		BatchMode:   s.view.BatchMode,
		Selected:    len(s.view.SelectedIDs(s.tree)),
		Query:       s.view.Query,
		Preloaded:   len(s.preload),
		Overlay:     s.overlay.State(),
	}
}
