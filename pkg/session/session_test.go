package session

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rexliu/pdfmarks/pkg/codec"
	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/history"
	"github.com/rexliu/pdfmarks/pkg/pdffixture"
	"github.com/rexliu/pdfmarks/pkg/pdfoutline"
	"github.com/rexliu/pdfmarks/pkg/picker"
	"github.com/rexliu/pdfmarks/pkg/view"
)

type fakeDialogs struct {
	answer  bool
	asked   []string
	notices []Notice
}

func (f *fakeDialogs) Confirm(_ context.Context, message string) bool {
	f.asked = append(f.asked, message)
	return f.answer
}

func (f *fakeDialogs) Notify(_ context.Context, n Notice) {
	f.notices = append(f.notices, n)
}

func (f *fakeDialogs) lastNotice() Notice {
	if len(f.notices) == 0 {
		return Notice{}
	}
	return f.notices[len(f.notices)-1]
}

func outlinedPDF(t *testing.T) []byte {
	t.Helper()
	data, err := pdffixture.Build(3,
		pdffixture.Mark{Title: "Chapter 1", Page: 1, Level: 0},
		pdffixture.Mark{Title: "Section 1.1", Page: 2, Level: 1},
		pdffixture.Mark{Title: "Chapter 2", Page: 3, Level: 0},
	)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return data
}

func plainPDF(t *testing.T, pages int) []byte {
	t.Helper()
	data, err := pdffixture.Plain(pages)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return data
}

func newSession(t *testing.T, d *fakeDialogs, auto bool) *Session {
	t.Helper()
	s := New(Options{Dialogs: d, AutoExtract: auto, PickExitDelay: time.Hour})
	t.Cleanup(s.Close)
	return s
}

func openPlain(t *testing.T, s *Session, pages int) {
	t.Helper()
	if err := s.Open(context.Background(), "report.pdf", plainPDF(t, pages)); err != nil {
		t.Fatalf("open: %v", err)
	}
}

func titles(tree core.Tree) string {
	var out []string
	tree.Walk(func(b *core.Bookmark, level int) bool {
		out = append(out, strings.Repeat(">", level)+b.Title)
		return true
	})
	return strings.Join(out, ",")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("auto extract", func(t *testing.T) {
		s := newSession(t, &fakeDialogs{}, true)
		if err := s.Open(ctx, "book.pdf", outlinedPDF(t)); err != nil {
			t.Fatalf("open: %v", err)
		}
		if got := titles(s.Tree()); got != "Chapter 1,>Section 1.1,Chapter 2" {
			t.Fatalf("tree = %s", got)
		}
		st := s.State()
		if !st.HasDocument || st.Name != "book" || st.Page != 1 || st.PageCount != 3 || st.CanUndo || st.CanRedo {
			t.Fatalf("status = %+v", st)
		}
	})

	t.Run("auto extract off", func(t *testing.T) {
		s := newSession(t, &fakeDialogs{}, false)
		if err := s.Open(ctx, "book.pdf", outlinedPDF(t)); err != nil {
			t.Fatalf("open: %v", err)
		}
		if n := len(s.Tree()); n != 0 {
			t.Fatalf("tree has %d nodes", n)
		}
	})

	t.Run("preloaded csv wins over extraction", func(t *testing.T) {
		d := &fakeDialogs{}
		s := newSession(t, d, true)
		n, err := s.ImportCSV(ctx, []byte("title,page,level\n\"From CSV\",2,0"))
		if err != nil || n != 1 {
			t.Fatalf("import: n=%d err=%v", n, err)
		}
		if d.lastNotice().Title != "CSV Loaded" || s.State().Preloaded != 1 {
			t.Fatalf("notice = %+v status = %+v", d.lastNotice(), s.State())
		}
		if err := s.Open(ctx, "book.pdf", outlinedPDF(t)); err != nil {
			t.Fatalf("open: %v", err)
		}
		if got := titles(s.Tree()); got != "From CSV" {
			t.Fatalf("tree = %s", got)
		}
		if s.State().Preloaded != 0 {
			t.Fatalf("preload kept after open")
		}
	})

	t.Run("invalid pdf leaves session untouched", func(t *testing.T) {
		s := newSession(t, &fakeDialogs{}, true)
		openPlain(t, s, 2)
		if _, err := s.AddTopLevel("Keep"); err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := s.Open(ctx, "broken.pdf", []byte("not a pdf")); err == nil {
			t.Fatalf("expected error")
		}
		if got := titles(s.Tree()); got != "Keep" || s.State().Name != "report" {
			t.Fatalf("tree = %s status = %+v", got, s.State())
		}
	})
}

func TestEditing(t *testing.T) {
	ctx := context.Background()

	t.Run("needs a document", func(t *testing.T) {
		s := newSession(t, &fakeDialogs{}, false)
		if _, err := s.AddTopLevel("x"); !errors.Is(err, ErrNoDocument) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("add uses current page and rejects blank titles", func(t *testing.T) {
		s := newSession(t, &fakeDialogs{}, false)
		openPlain(t, s, 3)
		if _, err := s.AddTopLevel("   "); !errors.Is(err, core.ErrBlankTitle) {
			t.Fatalf("err = %v", err)
		}
		s.GotoPage(2)
		id, err := s.AddTopLevel("  Intro  ")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		node, ok := s.Tree().Find(id)
		if !ok || node.Title != "Intro" || node.Page != 2 {
			t.Fatalf("node = %+v", node)
		}
		if !s.State().CanUndo {
			t.Fatalf("add did not record history")
		}
	})

	t.Run("add child expands parent", func(t *testing.T) {
		s := newSession(t, &fakeDialogs{}, false)
		openPlain(t, s, 1)
		parent, _ := s.AddTopLevel("Parent")
		if _, err := s.AddChild(parent, "First"); err != nil {
			t.Fatalf("add child: %v", err)
		}
		s.View(func(st *view.State, _ core.Tree) { st.ToggleCollapse(parent) })
		if _, err := s.AddChild(parent, "Second"); err != nil {
			t.Fatalf("add child: %v", err)
		}
		if rows := s.Rows(); len(rows) != 3 {
			t.Fatalf("rows = %d, want parent expanded", len(rows))
		}
		if _, err := s.AddChild("missing", "x"); !errors.Is(err, core.ErrInvalidParent) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("edit", func(t *testing.T) {
		s := newSession(t, &fakeDialogs{}, false)
		openPlain(t, s, 3)
		id, _ := s.AddTopLevel("Old")
		title, color := "New", core.Color("#112233")
		dest := core.Destination{Page: 3, X: core.Float(10), Y: core.Float(20), Zoom: "150"}
		if err := s.Edit(id, core.EditOp{Title: &title, Color: &color, Dest: &dest}); err != nil {
			t.Fatalf("edit: %v", err)
		}
		node, _ := s.Tree().Find(id)
		if node.Title != "New" || node.Color != color || node.Page != 3 || !node.HasExplicitDest() || node.Zoom != "150" {
			t.Fatalf("node = %s", spew.Sdump(node))
		}
		bad := core.Color("teal")
		if err := s.Edit(id, core.EditOp{Color: &bad}); !errors.Is(err, core.ErrInvalidColor) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("delete asks first", func(t *testing.T) {
		d := &fakeDialogs{}
		s := newSession(t, d, false)
		openPlain(t, s, 1)
		id, _ := s.AddTopLevel("Doomed")
		if err := s.Delete(ctx, id); !errors.Is(err, ErrNotConfirmed) {
			t.Fatalf("err = %v", err)
		}
		if len(d.asked) != 1 || d.asked[0] != `Delete "Doomed"?` {
			t.Fatalf("asked = %q", d.asked)
		}
		if len(s.Tree()) != 1 {
			t.Fatalf("declined delete removed the node")
		}
		d.answer = true
		if err := s.Delete(ctx, id); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if len(s.Tree()) != 0 {
			t.Fatalf("node not removed")
		}
		if err := s.Delete(ctx, id); !errors.Is(err, core.ErrInvalidNode) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("delete all", func(t *testing.T) {
		d := &fakeDialogs{answer: true}
		s := newSession(t, d, false)
		openPlain(t, s, 1)
		if ok, err := s.DeleteAll(ctx); ok || err != nil {
			t.Fatalf("empty delete all: ok=%v err=%v", ok, err)
		}
		if d.lastNotice().Message != "No bookmarks to delete." {
			t.Fatalf("notice = %+v", d.lastNotice())
		}
		a, _ := s.AddTopLevel("A")
		s.AddChild(a, "A1")
		s.AddTopLevel("B")
		if ok, err := s.DeleteAll(ctx); !ok || err != nil {
			t.Fatalf("delete all: ok=%v err=%v", ok, err)
		}
		if got := d.asked[len(d.asked)-1]; got != "Delete all 2 bookmark(s)?" {
			t.Fatalf("asked %q", got)
		}
		if len(s.Tree()) != 0 {
			t.Fatalf("tree not cleared")
		}
	})
}

func TestBatch(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialogs{answer: true}
	s := newSession(t, d, false)
	openPlain(t, s, 1)
	a, _ := s.AddTopLevel("A")
	b, _ := s.AddChild(a, "B")
	c, _ := s.AddTopLevel("C")
	dd, _ := s.AddTopLevel("D")
	e, _ := s.AddChild(dd, "E")
	f, _ := s.AddChild(e, "F")

	if n, err := s.BatchColor(core.ColorRed); n != 0 || err != nil {
		t.Fatalf("empty selection: n=%d err=%v", n, err)
	}

	s.View(func(st *view.State, _ core.Tree) {
		st.ToggleBatch()
		st.ToggleSelect(b)
		st.ToggleSelect(c)
	})
	before := s.Record().Index
	if n, err := s.BatchColor(core.ColorRed); n != 2 || err != nil {
		t.Fatalf("color: n=%d err=%v", n, err)
	}
	if s.Record().Index != before+1 {
		t.Fatalf("batch color took %d history steps", s.Record().Index-before)
	}
	if n, err := s.BatchStyle(core.StyleItalic); n != 2 || err != nil {
		t.Fatalf("style: n=%d err=%v", n, err)
	}
	tree := s.Tree()
	nb, _ := tree.Find(b)
	nc, _ := tree.Find(c)
	na, _ := tree.Find(a)
	if nb.Color != core.ColorRed || nc.Style != core.StyleItalic || na.Color != core.ColorNone {
		t.Fatalf("tree = %s", spew.Sdump(tree))
	}

	s.Undo()
	s.Undo()
	nb, _ = s.Tree().Find(b)
	if nb.Color != core.ColorNone {
		t.Fatalf("undo did not revert batch color in one step")
	}
	s.Redo()
	s.Redo()

	// One node per nesting level: B at 1, C at 0, F at 2.
	s.View(func(st *view.State, _ core.Tree) { st.ToggleSelect(f) })
	snapshot := s.Tree()
	before = s.Record().Index
	n, err := s.BatchDelete(ctx)
	if n != 3 || err != nil {
		t.Fatalf("batch delete: n=%d err=%v", n, err)
	}
	if got := d.asked[len(d.asked)-1]; got != "Delete 3 bookmark(s)?" {
		t.Fatalf("asked %q", got)
	}
	if got := titles(s.Tree()); got != "A,D,>E" {
		t.Fatalf("tree = %s", got)
	}
	if s.Record().Index != before+1 {
		t.Fatalf("batch delete took %d history steps", s.Record().Index-before)
	}
	if st := s.State(); st.Selected != 0 || !st.BatchMode {
		t.Fatalf("status = %+v", st)
	}

	if !s.Undo() {
		t.Fatalf("undo after batch delete did nothing")
	}
	if got := s.Tree(); !reflect.DeepEqual(got, snapshot) {
		t.Fatalf("one undo must restore all three:\n%s", spew.Sdump(got))
	}
}

func TestHistoryKeys(t *testing.T) {
	s := newSession(t, &fakeDialogs{}, false)
	openPlain(t, s, 1)
	if s.Undo() {
		t.Fatalf("undo past the initial snapshot")
	}
	s.AddTopLevel("A")
	s.AddTopLevel("B")

	if action, ok := s.Key(history.Shortcut{Key: "Z", Ctrl: true}); action != history.ActionUndo || !ok {
		t.Fatalf("ctrl+z: %v %v", action, ok)
	}
	if got := titles(s.Tree()); got != "A" {
		t.Fatalf("after undo: %s", got)
	}
	if action, ok := s.Key(history.Shortcut{Key: "y", Meta: true}); action != history.ActionRedo || !ok {
		t.Fatalf("cmd+y: %v %v", action, ok)
	}
	if got := titles(s.Tree()); got != "A,B" {
		t.Fatalf("after redo: %s", got)
	}
	if action, ok := s.Key(history.Shortcut{Key: "z"}); action != history.ActionNone || ok {
		t.Fatalf("plain z: %v %v", action, ok)
	}

	s.Undo()
	s.AddTopLevel("C")
	if s.Redo() {
		t.Fatalf("redo after a new commit")
	}
	if got := titles(s.Tree()); got != "A,C" {
		t.Fatalf("tree = %s", got)
	}
}

func TestDrop(t *testing.T) {
	s := newSession(t, &fakeDialogs{}, false)
	openPlain(t, s, 1)
	s.AddTopLevel("A")
	s.AddTopLevel("B")
	s.AddTopLevel("C")
	steps := s.Record().Index

	if changed, err := s.Drop(view.DropEvent{Group: view.TopLevelGroup, OldIndex: 2, NewIndex: 0}); !changed || err != nil {
		t.Fatalf("drop: changed=%v err=%v", changed, err)
	}
	if got := titles(s.Tree()); got != "C,A,B" {
		t.Fatalf("tree = %s", got)
	}
	if _, err := s.Drop(view.DropEvent{Group: view.TopLevelGroup, OldIndex: 0, NewIndex: 9}); err == nil {
		t.Fatalf("expected error")
	}
	if got := titles(s.Tree()); got != "C,A,B" {
		t.Fatalf("failed drop changed the tree: %s", got)
	}
	if s.Record().Index != steps+1 {
		t.Fatalf("history steps = %d", s.Record().Index-steps)
	}
}

func TestImportExport(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialogs{}
	s := newSession(t, d, false)
	openPlain(t, s, 3)

	if _, _, err := s.ExportCSV(); !errors.Is(err, codec.ErrEmptyTree) {
		t.Fatalf("err = %v", err)
	}
	if _, _, err := s.ExportJSON(); !errors.Is(err, codec.ErrEmptyTree) {
		t.Fatalf("err = %v", err)
	}

	n, err := s.ImportCSV(ctx, []byte("title,page,level\n\"A\",1,0\n\"B\",2,1\n\"C\",3,0"))
	if err != nil || n != 2 {
		t.Fatalf("import csv: n=%d err=%v", n, err)
	}
	if d.lastNotice().Message != "Imported 2 bookmarks!" {
		t.Fatalf("notice = %+v", d.lastNotice())
	}
	data, name, err := s.ExportCSV()
	if err != nil {
		t.Fatalf("export csv: %v", err)
	}
	if name != "report-bookmarks.csv" || string(data) != "title,page,level\n\"A\",1,0\n\"B\",2,1\n\"C\",3,0" {
		t.Fatalf("export %s:\n%s", name, data)
	}

	js, name, err := s.ExportJSON()
	if err != nil || name != "report-bookmarks.json" {
		t.Fatalf("export json %s: %v", name, err)
	}
	before := titles(s.Tree())
	if _, err := s.ImportJSON(ctx, []byte("{not json")); err == nil {
		t.Fatalf("expected error")
	}
	if titles(s.Tree()) != before {
		t.Fatalf("invalid json changed the tree")
	}
	d.answer = true
	if _, err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if _, err := s.ImportJSON(ctx, js); err != nil {
		t.Fatalf("import json: %v", err)
	}
	if got := titles(s.Tree()); got != "A,>B,C" {
		t.Fatalf("tree = %s", got)
	}
}

func TestExtractAndSave(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialogs{}
	s := newSession(t, d, false)
	if err := s.Open(ctx, "book.pdf", outlinedPDF(t)); err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := s.ExtractExisting(ctx); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("err = %v", err)
	}
	if d.asked[0] != "Found 2 existing bookmarks. Replace current bookmarks?" {
		t.Fatalf("asked %q", d.asked)
	}
	d.answer = true
	if n, err := s.ExtractExisting(ctx); n != 2 || err != nil {
		t.Fatalf("extract: n=%d err=%v", n, err)
	}

	id, _ := s.AddTopLevel("Appendix")
	red := core.ColorRed
	if err := s.Edit(id, core.EditOp{Color: &red}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	out, name, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if name != "book-bookmarked.pdf" || d.lastNotice().Kind != NoticeSuccess {
		t.Fatalf("name = %s notice = %+v", name, d.lastNotice())
	}
	doc, err := pdfoutline.Open(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	tree, err := pdfoutline.Import(doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := titles(tree); got != "Chapter 1,>Section 1.1,Chapter 2,Appendix" {
		t.Fatalf("saved tree = %s", got)
	}
	if tree[2].Color != core.ColorRed {
		t.Fatalf("color lost: %s", spew.Sdump(tree[2]))
	}
	if !s.State().HasDocument {
		t.Fatalf("save reset the session")
	}

	plain := newSession(t, d, false)
	if _, _, err := plain.Save(ctx); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("err = %v", err)
	}
	if n, err := newPlainExtract(t); n != 0 || err != nil {
		t.Fatalf("extract from plain pdf: n=%d err=%v", n, err)
	}
}

func newPlainExtract(t *testing.T) (int, error) {
	d := &fakeDialogs{answer: true}
	s := newSession(t, d, false)
	openPlain(t, s, 1)
	n, err := s.ExtractExisting(context.Background())
	if d.lastNotice().Message != "No existing bookmarks found in this PDF." {
		t.Fatalf("notice = %+v", d.lastNotice())
	}
	return n, err
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, &fakeDialogs{}, false)
	openPlain(t, s, 2)
	s.AddTopLevel("A")
	if err := s.Reset(ctx); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("err = %v", err)
	}
	if !s.State().HasDocument {
		t.Fatalf("declined reset dropped the document")
	}

	s2 := New(Options{})
	defer s2.Close()
	if err := s2.Open(ctx, "a.pdf", plainPDF(t, 2)); err != nil {
		t.Fatalf("open: %v", err)
	}
	s2.AddTopLevel("A")
	if err := s2.Reset(WithAnswer(ctx, true)); err != nil {
		t.Fatalf("reset: %v", err)
	}
	st := s2.State()
	if st.HasDocument || st.Bookmarks != 0 || st.CanUndo || st.Page != 0 || st.Name != "" {
		t.Fatalf("status after reset = %+v", st)
	}
}

func TestRequestDialogs(t *testing.T) {
	ctx, notices := WithNotices(context.Background())
	s := New(Options{})
	defer s.Close()
	if err := s.Open(ctx, "a.pdf", plainPDF(t, 1)); err != nil {
		t.Fatalf("open: %v", err)
	}
	s.AddTopLevel("A")
	_, err := s.DeleteAll(ctx)
	if !errors.Is(err, ErrNotConfirmed) || !strings.Contains(err.Error(), "Delete all 1 bookmark(s)?") {
		t.Fatalf("err = %v", err)
	}
	if ok, err := s.DeleteAll(WithAnswer(ctx, true)); !ok || err != nil {
		t.Fatalf("delete all: ok=%v err=%v", ok, err)
	}
	s.DeleteAll(ctx)
	list := notices.List()
	if len(list) != 1 || list[0].Kind != NoticeInfo {
		t.Fatalf("notices = %+v", list)
	}
}

func TestPicking(t *testing.T) {
	s := newSession(t, &fakeDialogs{}, false)
	if err := s.StartPicking("", 0, 0); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("err = %v", err)
	}
	openPlain(t, s, 3)
	id, _ := s.AddTopLevel("Target")
	zoom := core.Destination{Page: 1, Zoom: "200"}
	s.Edit(id, core.EditOp{Dest: &zoom})
	s.GotoPage(2)

	if err := s.StartPicking("missing", 0, 0); !errors.Is(err, core.ErrInvalidNode) {
		t.Fatalf("err = %v", err)
	}
	if err := s.StartPicking(id, 100, 50); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.StartPicking(id, 100, 50); !errors.Is(err, picker.ErrPickingActive) {
		t.Fatalf("err = %v", err)
	}
	s.PickMove(110.4, 60.6)
	if ov := s.State().Overlay; !ov.Picking || !ov.DialogMinimized || ov.Tooltip != "X: 10, Y: 11" {
		t.Fatalf("overlay = %+v", ov)
	}

	p, err := s.Pick(130, 90)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if p != (Pick{Page: 2, X: 30, Y: 40}) {
		t.Fatalf("pick = %+v", p)
	}
	node, _ := s.Tree().Find(id)
	if node.Page != 2 || *node.DestX != 30 || *node.DestY != 40 || node.Zoom != "200" {
		t.Fatalf("node = %s", spew.Sdump(node))
	}
	if ov := s.State().Overlay; ov.Marker == nil || *ov.Marker != (picker.Point{X: 30, Y: 40}) {
		t.Fatalf("overlay = %+v", ov)
	}
	if _, err := s.Pick(1, 1); !errors.Is(err, picker.ErrNotPicking) {
		t.Fatalf("second click: %v", err)
	}

	if err := s.CancelPicking(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if ov := s.State().Overlay; ov.Picking || ov.Marker != nil || ov.Tooltip != "" {
		t.Fatalf("overlay after exit = %+v", ov)
	}
	if last, ok := s.LastPick(); !ok || last.Page != 2 {
		t.Fatalf("last pick = %+v %v", last, ok)
	}

	if err := s.StartPicking("", 0, 0); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := s.CancelPicking(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := s.LastPick(); ok {
		t.Fatalf("cancelled pick recorded a point")
	}
}

func TestNavigation(t *testing.T) {
	s := newSession(t, &fakeDialogs{}, false)
	openPlain(t, s, 3)
	if s.PrevPage() || !s.NextPage() || !s.NextPage() || s.NextPage() {
		t.Fatalf("navigation stopped at page %d", s.State().Page)
	}
	if s.GotoPage(4) || s.State().Page != 3 {
		t.Fatalf("out of range goto moved to %d", s.State().Page)
	}
	id, _ := s.AddTopLevel("Far")
	far := core.Destination{Page: 9}
	s.Edit(id, core.EditOp{Dest: &far})
	s.GotoPage(1)
	if page, err := s.JumpTo(id); page != 3 || err != nil {
		t.Fatalf("jump: page=%d err=%v", page, err)
	}
	vp, err := s.Viewport()
	if err != nil || vp.Page != 3 || vp.Width == 0 {
		t.Fatalf("viewport = %+v err=%v", vp, err)
	}
}

func TestRecordRestore(t *testing.T) {
	var changes int
	s := New(Options{OnChange: func(*Session) { changes++ }})
	defer s.Close()
	if err := s.Open(context.Background(), "doc.pdf", plainPDF(t, 2)); err != nil {
		t.Fatalf("open: %v", err)
	}
	s.GotoPage(2)
	s.AddTopLevel("A")
	s.AddTopLevel("B")
	s.Undo()
	if changes != 4 {
		t.Fatalf("changes = %d, want 4", changes)
	}
	s.GotoPage(1)
	if changes != 4 {
		t.Fatalf("navigation counted as a change")
	}
	s.GotoPage(2)

	rec := s.Record()
	if rec.Index != 1 || len(rec.History) != 3 || rec.Name != "doc" {
		t.Fatalf("record = %+v", rec)
	}
	r, err := Restore(rec, Options{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	defer r.Close()
	if r.ID() != s.ID() || titles(r.Tree()) != "A" || r.State().Page != 2 {
		t.Fatalf("restored = %+v tree %s", r.State(), titles(r.Tree()))
	}
	if !r.Redo() || titles(r.Tree()) != "A,B" {
		t.Fatalf("redo after restore: %s", titles(r.Tree()))
	}

	if _, err := Restore(Record{ID: "x", PDF: []byte("junk")}, Options{}); err == nil {
		t.Fatalf("expected error for bad pdf")
	}
}
