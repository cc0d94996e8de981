// Package session holds one open editor: the loaded document, its outline
// tree, undo history, view state, preview page and destination picker.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rexliu/pdfmarks/pkg/codec"
	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/history"
	"github.com/rexliu/pdfmarks/pkg/logging"
	"github.com/rexliu/pdfmarks/pkg/pdfoutline"
	"github.com/rexliu/pdfmarks/pkg/picker"
	"github.com/rexliu/pdfmarks/pkg/preview"
	"github.com/rexliu/pdfmarks/pkg/view"
)

var (
	// ErrNotConfirmed is returned when the user declines a destructive action.
	ErrNotConfirmed = errors.New("not confirmed")
	// ErrNoDocument is returned by operations that need a loaded PDF.
	ErrNoDocument = errors.New("no document loaded")
	// ErrSaveFailed wraps any failure to produce the bookmarked PDF.
	ErrSaveFailed = errors.New("error saving pdf")
)

// Options configures a new session.
type Options struct {
	ID            string
	AutoExtract   bool
	PreviewScale  float64
	PickExitDelay time.Duration
	Dialogs       Dialogs
	Logger        *logging.Logger
	// OnChange runs after every committed mutation, without the session lock.
	OnChange func(*Session)
}

// Session is one editor. All methods are safe for concurrent use; they
// serialize on the session lock.
type Session struct {
	mu sync.Mutex

	id       string
	dialogs  Dialogs
	log      *logging.Logger
	onChange func(*Session)
	auto     bool
	changed  bool

	name    string
	pdf     []byte
	doc     *pdfoutline.Document
	preload core.Tree

	tree    core.Tree
	history *history.Manager
	view    *view.State
	pane    *preview.Pane

	overlay  *picker.Overlay
	picker   *picker.Picker
	pickAt   [2]float64
	pickNode string
	lastPick *Pick
}

// Pick is a destination chosen on the preview.
type Pick struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// New returns an empty session without a document.
func New(opts Options) *Session {
	if opts.ID == "" {
		opts.ID = core.NewNodeID()
	}
	if opts.Dialogs == nil {
		opts.Dialogs = RequestDialogs{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	overlay := &picker.Overlay{}
	return &Session{
		id:       opts.ID,
		dialogs:  opts.Dialogs,
		log:      opts.Logger,
		onChange: opts.OnChange,
		auto:     opts.AutoExtract,
		tree:     core.Tree{},
		history:  history.New(),
		view:     view.NewState(),
		pane:     preview.New(opts.PreviewScale),
		overlay:  overlay,
		picker:   picker.New(overlay, opts.PickExitDelay),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// mutate runs fn under the lock and fires OnChange if fn committed.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	s.changed = false
	err := fn()
	changed := s.changed
	s.mu.Unlock()
	if changed && s.onChange != nil {
		s.onChange(s)
	}
	return err
}

func (s *Session) commit(next core.Tree) {
	s.tree = next
	s.history.Commit(next)
	s.view.Prune(next)
	s.changed = true
}

func (s *Session) apply(ops ...core.Op) (core.Tree, error) {
	next, err := core.Apply(s.tree, ops...)
	if err != nil {
		return nil, err
	}
	s.commit(next)
	return next, nil
}

func (s *Session) requireDoc() error {
	if s.doc == nil {
		return ErrNoDocument
	}
	return nil
}

func (s *Session) confirm(ctx context.Context, message string) error {
	if !s.dialogs.Confirm(ctx, message) {
		return fmt.Errorf("%w: %s", ErrNotConfirmed, message)
	}
	return nil
}

func (s *Session) notify(ctx context.Context, kind NoticeKind, title, message string) {
	s.dialogs.Notify(ctx, Notice{Kind: kind, Title: title, Message: message})
}

// currentPage is the page new bookmarks point at.
func (s *Session) currentPage() int {
	if p := s.pane.Page(); p > 0 {
		return p
	}
	return 1
}

// Open loads a PDF and starts a fresh editing history. The tree comes from a
// preloaded import if there is one, else from the document's own outline when
// auto-extract is on. A document that fails to parse leaves the session as it
// was.
func (s *Session) Open(ctx context.Context, name string, data []byte) error {
	return s.mutate(func() error {
		doc, err := pdfoutline.Open(data)
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		s.picker.Close()
		s.lastPick = nil
		s.name = codec.BaseName(name)
		s.pdf = append([]byte(nil), data...)
		s.doc = doc
		s.view.Reset()
		s.history.Reset()
		s.pane.Load(doc)

		tree := core.Tree{}
		if s.auto {
			tree = pdfoutline.Extract(doc, s.log)
		}
		if s.preload != nil {
			tree = s.preload
			s.preload = nil
		}
		s.log.Infof("session %s: opened %s (%d pages, %d top-level bookmarks)", s.id, name, doc.PageCount(), len(tree))
		s.commit(tree)
		return nil
	})
}

// Preload stages tree to replace the outline of the next opened document.
func (s *Session) Preload(tree core.Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preload = tree.Clone()
	core.EnsureIDs(s.preload)
}

// AddTopLevel appends a bookmark to the current page and returns its id.
func (s *Session) AddTopLevel(title string) (string, error) {
	var id string
	err := s.mutate(func() error {
		if err := s.requireDoc(); err != nil {
			return err
		}
		next, err := s.apply(core.AddTopLevelOp{Title: title, Page: s.currentPage()})
		if err != nil {
			return err
		}
		id = next[len(next)-1].ID
		return nil
	})
	return id, err
}

// AddChild appends a bookmark to the current page under parentID, expands
// the parent and returns the new id.
func (s *Session) AddChild(parentID, title string) (string, error) {
	var id string
	err := s.mutate(func() error {
		if err := s.requireDoc(); err != nil {
			return err
		}
		next, err := s.apply(core.AddChildOp{ParentID: parentID, Title: title, Page: s.currentPage()})
		if err != nil {
			return err
		}
		parent, _ := next.Find(parentID)
		id = parent.Children[len(parent.Children)-1].ID
		s.view.Expand(parentID)
		return nil
	})
	return id, err
}

// Edit applies patch to the bookmark id.
func (s *Session) Edit(id string, patch core.EditOp) error {
	patch.NodeID = id
	return s.mutate(func() error {
		_, err := s.apply(patch)
		return err
	})
}

// Delete removes one bookmark and its subtree after confirmation.
func (s *Session) Delete(ctx context.Context, id string) error {
	return s.mutate(func() error {
		node, ok := s.tree.Find(id)
		if !ok {
			return fmt.Errorf("delete %s: %w", id, core.ErrInvalidNode)
		}
		if err := s.confirm(ctx, fmt.Sprintf("Delete %q?", node.Title)); err != nil {
			return err
		}
		_, err := s.apply(core.RemoveOp{NodeID: id})
		return err
	})
}

// DeleteAll clears the tree after confirmation. It reports false when there
// was nothing to delete.
func (s *Session) DeleteAll(ctx context.Context) (bool, error) {
	var deleted bool
	err := s.mutate(func() error {
		if len(s.tree) == 0 {
			s.notify(ctx, NoticeInfo, "Info", "No bookmarks to delete.")
			return nil
		}
		if err := s.confirm(ctx, fmt.Sprintf("Delete all %d bookmark(s)?", len(s.tree))); err != nil {
			return err
		}
		if _, err := s.apply(core.ClearOp{}); err != nil {
			return err
		}
		s.view.DeselectAll()
		deleted = true
		return nil
	})
	return deleted, err
}

// BatchDelete removes every selected bookmark after confirmation and clears
// the selection. It returns the number of selected ids removed.
func (s *Session) BatchDelete(ctx context.Context) (int, error) {
	var n int
	err := s.mutate(func() error {
		ids := s.view.SelectedIDs(s.tree)
		if len(ids) == 0 {
			return nil
		}
		if err := s.confirm(ctx, fmt.Sprintf("Delete %d bookmark(s)?", len(ids))); err != nil {
			return err
		}
		if _, err := s.apply(core.RemoveManyOp{NodeIDs: ids}); err != nil {
			return err
		}
		s.view.DeselectAll()
		n = len(ids)
		return nil
	})
	return n, err
}

// BatchColor sets the color of every selected bookmark in one history step.
func (s *Session) BatchColor(c core.Color) (int, error) {
	return s.batch(func(ids []string) core.Op { return core.ApplyColorOp{NodeIDs: ids, Color: c} })
}

// BatchStyle sets the style of every selected bookmark in one history step.
func (s *Session) BatchStyle(st core.Style) (int, error) {
	return s.batch(func(ids []string) core.Op { return core.ApplyStyleOp{NodeIDs: ids, Style: st} })
}

func (s *Session) batch(op func(ids []string) core.Op) (int, error) {
	var n int
	err := s.mutate(func() error {
		ids := s.view.SelectedIDs(s.tree)
		if len(ids) == 0 {
			return nil
		}
		if _, err := s.apply(op(ids)); err != nil {
			return err
		}
		n = len(ids)
		return nil
	})
	return n, err
}

// Undo steps back one snapshot. It reports false when there is nothing to undo.
func (s *Session) Undo() bool {
	return s.step(s.history.Undo)
}

// Redo steps forward one snapshot. It reports false at the newest snapshot.
func (s *Session) Redo() bool {
	return s.step(s.history.Redo)
}

func (s *Session) step(move func() (core.Tree, bool)) bool {
	var moved bool
	_ = s.mutate(func() error {
		tree, ok := move()
		if !ok {
			return nil
		}
		s.tree = tree
		s.view.Prune(tree)
		s.changed = true
		moved = true
		return nil
	})
	return moved
}

// Key runs the history action bound to a keyboard shortcut.
func (s *Session) Key(sc history.Shortcut) (history.Action, bool) {
	switch action := history.Resolve(sc); action {
	case history.ActionUndo:
		return action, s.Undo()
	case history.ActionRedo:
		return action, s.Redo()
	default:
		return action, false
	}
}

// sessionModel lets the drag controller mutate the tree under the session lock.
type sessionModel struct{ s *Session }

func (m sessionModel) Tree() core.Tree       { return m.s.tree.Clone() }
func (m sessionModel) Commit(next core.Tree) { m.s.commit(next) }
func (m sessionModel) Rollback()             { m.s.tree = m.s.history.Current() }

// Drop applies a finished drag within one list.
func (s *Session) Drop(ev view.DropEvent) (bool, error) {
	var changed bool
	err := s.mutate(func() error {
		var err error
		changed, err = view.NewController(sessionModel{s}, s.view).Drop(ev)
		if err != nil {
			s.log.Warnf("session %s: drop rolled back: %v", s.id, err)
		}
		return err
	})
	return changed, err
}

// ImportCSV replaces the tree with a CSV outline. Without a document the
// outline is preloaded for the next Open. An empty file changes nothing.
func (s *Session) ImportCSV(ctx context.Context, data []byte) (int, error) {
	tree, err := codec.DecodeCSV(data)
	if err != nil {
		return 0, err
	}
	return len(tree), s.mutate(func() error {
		if s.doc == nil {
			s.preload = tree
			s.notify(ctx, NoticeInfo, "CSV Loaded", fmt.Sprintf("Loaded %d bookmarks from CSV. Now upload your PDF.", len(tree)))
			return nil
		}
		if len(tree) == 0 {
			return nil
		}
		if _, err := s.apply(core.ReplaceOp{Tree: tree}); err != nil {
			return err
		}
		s.notify(ctx, NoticeSuccess, "Success", fmt.Sprintf("Imported %d bookmarks!", len(tree)))
		return nil
	})
}

// ImportJSON replaces the tree with a JSON outline. Invalid JSON leaves the
// session untouched. Without a document the outline is preloaded.
func (s *Session) ImportJSON(ctx context.Context, data []byte) (int, error) {
	tree, err := codec.DecodeJSON(data)
	if err != nil {
		return 0, err
	}
	return len(tree), s.mutate(func() error {
		if s.doc == nil {
			s.preload = tree
			s.notify(ctx, NoticeInfo, "JSON Loaded", "Loaded bookmarks from JSON. Now upload your PDF.")
			return nil
		}
		if _, err := s.apply(core.ReplaceOp{Tree: tree}); err != nil {
			return err
		}
		s.notify(ctx, NoticeSuccess, "Success", "Bookmarks imported from JSON!")
		return nil
	})
}

// Export encodes the tree as CSV or JSON and returns the download name.
func (s *Session) Export(f codec.Format) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		data []byte
		err  error
	)
	switch f {
	case codec.FormatCSV:
		data, err = codec.EncodeCSV(s.tree)
	case codec.FormatJSON:
		data, err = codec.EncodeJSON(s.tree)
	default:
		return nil, "", fmt.Errorf("export %s: unsupported format", f)
	}
	if err != nil {
		return nil, "", err
	}
	return data, codec.Filename(s.name, f), nil
}

// ExportCSV is Export(codec.FormatCSV).
func (s *Session) ExportCSV() ([]byte, string, error) { return s.Export(codec.FormatCSV) }

// ExportJSON is Export(codec.FormatJSON).
func (s *Session) ExportJSON() ([]byte, string, error) { return s.Export(codec.FormatJSON) }

// ExtractExisting replaces the tree with the document's own outline after
// confirmation. It returns the number of top-level bookmarks found.
func (s *Session) ExtractExisting(ctx context.Context) (int, error) {
	var n int
	err := s.mutate(func() error {
		if err := s.requireDoc(); err != nil {
			return err
		}
		tree := pdfoutline.Extract(s.doc, s.log)
		n = len(tree)
		if n == 0 {
			s.notify(ctx, NoticeInfo, "Info", "No existing bookmarks found in this PDF.")
			return nil
		}
		if err := s.confirm(ctx, fmt.Sprintf("Found %d existing bookmarks. Replace current bookmarks?", n)); err != nil {
			return err
		}
		_, err := s.apply(core.ReplaceOp{Tree: tree})
		return err
	})
	return n, err
}

// Save writes the tree into a copy of the loaded PDF and returns the new
// file and its download name. The session is unchanged either way.
func (s *Session) Save(ctx context.Context) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireDoc(); err != nil {
		return nil, "", err
	}
	out, err := pdfoutline.Rewrite(s.pdf, s.tree)
	if err != nil {
		s.log.Errorf("session %s: save: %v", s.id, err)
		s.notify(ctx, NoticeError, "Error", "Error saving PDF. Check the log for details.")
		return nil, "", fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	s.notify(ctx, NoticeSuccess, "Success", "PDF saved successfully!")
	return out, codec.Filename(s.name, codec.FormatPDF), nil
}

// Reset discards the document, tree, history and view state after confirmation.
func (s *Session) Reset(ctx context.Context) error {
	return s.mutate(func() error {
		if err := s.confirm(ctx, "Reset and go back to file uploader? All unsaved changes will be lost."); err != nil {
			return err
		}
		s.resetLocked()
		s.changed = true
		return nil
	})
}

func (s *Session) resetLocked() {
	s.picker.Close()
	s.lastPick = nil
	s.pickNode = ""
	s.name = ""
	s.pdf = nil
	s.doc = nil
	s.preload = nil
	s.tree = core.Tree{}
	s.history.Reset()
	s.view.Reset()
	s.pane.Load(nil)
}

// Close stops any pick in progress. The session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picker.Close()
}
