package codec

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/rexliu/pdfmarks/pkg/core"
)

func sampleTree() core.Tree {
	return core.Tree{
		{ID: "a", Title: "Intro", Page: 1, Children: []core.Bookmark{
			{ID: "b", Title: `Say "hi", twice`, Page: 2, Children: []core.Bookmark{}},
			{ID: "c", Title: "Details", Page: 3, Children: []core.Bookmark{
				{ID: "e", Title: "Deep", Page: 4, Children: []core.Bookmark{}},
			}},
		}},
		{ID: "d", Title: "Appendix", Page: 9, Children: []core.Bookmark{}},
	}
}

type shape struct {
	Title    string
	Page     int
	Children []shape
}

func shapeOf(nodes []core.Bookmark) []shape {
	out := []shape{}
	for _, n := range nodes {
		out = append(out, shape{Title: n.Title, Page: n.Page, Children: shapeOf(n.Children)})
	}
	return out
}

func TestEncodeCSV(t *testing.T) {
	got, err := EncodeCSV(sampleTree())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := strings.Join([]string{
		"title,page,level",
		`"Intro",1,0`,
		`"Say ""hi"", twice",2,1`,
		`"Details",3,1`,
		`"Deep",4,2`,
		`"Appendix",9,0`,
	}, "\n")
	if string(got) != want {
		t.Fatalf("unexpected csv:\n%s", got)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	tree := sampleTree()
	data, err := EncodeCSV(tree)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeCSV(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(shapeOf(back), shapeOf(tree)) {
		t.Fatalf("shape mismatch:\n%s", spew.Sdump(back))
	}
	back.Walk(func(n *core.Bookmark, _ int) bool {
		if n.ID == "" || n.HasDestination() || n.Color != "" || n.Style != "" {
			t.Fatalf("imported row carries metadata: %+v", n)
		}
		return true
	})
}

func TestDecodeCSV(t *testing.T) {
	t.Run("level stack", func(t *testing.T) {
		data := "title,page,level\n\"A\",1,0\n\"B\",2,1\n\"C\",3,1\n\"D\",4,0"
		tree, err := DecodeCSV([]byte(data))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := []shape{
			{Title: "A", Page: 1, Children: []shape{
				{Title: "B", Page: 2, Children: []shape{}},
				{Title: "C", Page: 3, Children: []shape{}},
			}},
			{Title: "D", Page: 4, Children: []shape{}},
		}
		if got := shapeOf(tree); !reflect.DeepEqual(got, want) {
			t.Fatalf("unexpected tree:\n%s", spew.Sdump(got))
		}
	})

	t.Run("unquoted rows crlf and junk", func(t *testing.T) {
		data := "title,page,level\r\nChapter 1,1,0\r\nnot a row\r\n\"Sec, one\",2,1\r\n"
		tree, err := DecodeCSV([]byte(data))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(tree) != 1 || tree[0].Title != "Chapter 1" || len(tree[0].Children) != 1 {
			t.Fatalf("unexpected tree:\n%s", spew.Sdump(tree))
		}
		if tree[0].Children[0].Title != "Sec, one" {
			t.Fatalf("unexpected child title %q", tree[0].Children[0].Title)
		}
	})

	t.Run("header only", func(t *testing.T) {
		tree, err := DecodeCSV([]byte("title,page,level"))
		if err != nil || len(tree) != 0 {
			t.Fatalf("expected empty tree, got %v %v", tree, err)
		}
	})

	t.Run("level jump attaches to last open node", func(t *testing.T) {
		tree, err := DecodeCSV([]byte("h\n\"A\",1,0\n\"B\",2,3\n\"C\",3,1"))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := shapeOf(tree); len(got) != 1 || len(got[0].Children) != 2 {
			t.Fatalf("unexpected tree:\n%s", spew.Sdump(got))
		}
	})
}

func TestJSON(t *testing.T) {
	t.Run("round trip keeps everything", func(t *testing.T) {
		tree := sampleTree()
		tree[0].Color = "#FF8800"
		tree[0].Style = core.StyleBoldItalic
		tree[1].DestX, tree[1].DestY, tree[1].Zoom = core.Float(12.5), core.Float(640), "150"
		data, err := EncodeJSON(tree)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		back, err := DecodeJSON(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !reflect.DeepEqual(back, tree) {
			t.Fatalf("round trip mismatch:\n%s", spew.Sdump(back))
		}
	})

	t.Run("nulls and indentation", func(t *testing.T) {
		data, err := EncodeJSON(core.Tree{{ID: "x", Title: "T", Page: 1, Children: []core.Bookmark{}}})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		s := string(data)
		for _, want := range []string{`  {`, `"color": null`, `"destX": null`, `"zoom": null`, `"children": []`} {
			if !strings.Contains(s, want) {
				t.Fatalf("missing %q in\n%s", want, s)
			}
		}
	})

	t.Run("numeric ids replaced", func(t *testing.T) {
		tree, err := DecodeJSON([]byte(`[{"id":1712345.67,"title":"A","page":2,"children":[{"title":"B","page":3}]}]`))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if tree[0].ID == "" || tree[0].Children[0].ID == "" {
			t.Fatalf("ids not assigned:\n%s", spew.Sdump(tree))
		}
		if tree[0].Children[0].Children == nil {
			t.Fatalf("children should be empty, not nil")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := DecodeJSON([]byte(`{"title":`)); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestEmptyTreeExport(t *testing.T) {
	if _, err := EncodeCSV(core.Tree{}); !errors.Is(err, ErrEmptyTree) {
		t.Fatalf("expected ErrEmptyTree, got %v", err)
	}
	if _, err := EncodeJSON(nil); !errors.Is(err, ErrEmptyTree) {
		t.Fatalf("expected ErrEmptyTree, got %v", err)
	}
}

func TestFilenames(t *testing.T) {
	base := BaseName("report.pdf")
	if Filename(base, FormatCSV) != "report-bookmarks.csv" ||
		Filename(base, FormatJSON) != "report-bookmarks.json" ||
		Filename(base, FormatPDF) != "report-bookmarked.pdf" {
		t.Fatalf("unexpected filenames for %q", base)
	}
	if _, err := ParseFormat("XML"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
