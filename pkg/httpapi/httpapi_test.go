package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/pdffixture"
	"github.com/rexliu/pdfmarks/pkg/session"
	"github.com/rexliu/pdfmarks/pkg/workspace"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ws := workspace.New(workspace.Config{Session: session.Options{AutoExtract: true}})
	t.Cleanup(ws.Shutdown)
	srv := httptest.NewServer(New(ws, nil, 1).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var body bytes.Buffer
		body.ReadFrom(resp.Body)
		t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body.String())
	}
}

// upload creates a session from a multipart PDF upload and returns its id.
func upload(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	pdf, err := pdffixture.Build(3,
		pdffixture.Mark{Title: "Intro", Page: 1},
		pdffixture.Mark{Title: "Body", Page: 2},
	)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "annual report.pdf")
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	part.Write(pdf)
	mw.Close()

	resp := do(t, http.MethodPost, srv.URL+"/sessions", mw.FormDataContentType(), buf.Bytes())
	expectStatus(t, resp, http.StatusCreated)
	var created struct {
		Session session.Status `json:"session"`
	}
	decodeBody(t, resp, &created)
	if !created.Session.HasDocument || created.Session.PageCount != 3 || created.Session.Bookmarks != 2 {
		t.Fatalf("created = %s", spew.Sdump(created))
	}
	return created.Session.ID
}

func getTree(t *testing.T, srv *httptest.Server, id string) core.Tree {
	t.Helper()
	resp := do(t, http.MethodGet, srv.URL+"/sessions/"+id+"/tree", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var out struct {
		Tree core.Tree `json:"tree"`
	}
	decodeBody(t, resp, &out)
	return out.Tree
}

func TestEditingRoutes(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv)
	base := srv.URL + "/sessions/" + id

	resp := do(t, http.MethodPost, base+"/bookmarks", "application/json", []byte(`{"title":"Appendix"}`))
	expectStatus(t, resp, http.StatusCreated)
	var added struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &added)

	resp = do(t, http.MethodPost, base+"/bookmarks/"+added.ID+"/children", "application/json", []byte(`{"title":"Tables"}`))
	expectStatus(t, resp, http.StatusCreated)

	resp = do(t, http.MethodPatch, base+"/bookmarks/"+added.ID, "application/json", []byte(`{"title":"Annex","color":"red","style":"bold"}`))
	expectStatus(t, resp, http.StatusOK)
	var edited core.Bookmark
	decodeBody(t, resp, &edited)
	if edited.Title != "Annex" || edited.Color != core.ColorRed || edited.Style != core.StyleBold {
		t.Fatalf("edited = %s", spew.Sdump(edited))
	}

	tree := getTree(t, srv, id)
	if len(tree) != 3 || len(tree[2].Children) != 1 || tree[2].Children[0].Title != "Tables" {
		t.Fatalf("tree = %s", spew.Sdump(tree))
	}

	resp = do(t, http.MethodPost, base+"/reorder", "application/json", []byte(`{"group":"top-level-only","oldIndex":2,"newIndex":0}`))
	expectStatus(t, resp, http.StatusOK)
	if tree := getTree(t, srv, id); tree[0].Title != "Annex" {
		t.Fatalf("reorder: %s", spew.Sdump(tree))
	}

	t.Run("blank title", func(t *testing.T) {
		resp := do(t, http.MethodPost, base+"/bookmarks", "application/json", []byte(`{"title":"  "}`))
		expectStatus(t, resp, http.StatusUnprocessableEntity)
	})

	t.Run("delete needs confirmation", func(t *testing.T) {
		resp := do(t, http.MethodDelete, base+"/bookmarks/"+added.ID, "", nil)
		expectStatus(t, resp, http.StatusConflict)
		var body struct {
			Error errorBody `json:"error"`
		}
		decodeBody(t, resp, &body)
		if body.Error.Code != "NOT_CONFIRMED" || !strings.Contains(body.Error.Message, `"Annex"`) {
			t.Fatalf("error = %+v", body.Error)
		}
		resp = do(t, http.MethodDelete, base+"/bookmarks/"+added.ID+"?confirm=true", "", nil)
		expectStatus(t, resp, http.StatusNoContent)
		if tree := getTree(t, srv, id); len(tree) != 2 {
			t.Fatalf("after delete: %s", spew.Sdump(tree))
		}
	})

	t.Run("undo redo", func(t *testing.T) {
		resp := do(t, http.MethodPost, base+"/undo", "", nil)
		expectStatus(t, resp, http.StatusOK)
		if tree := getTree(t, srv, id); len(tree) != 3 {
			t.Fatalf("after undo: %s", spew.Sdump(tree))
		}
		resp = do(t, http.MethodPost, base+"/redo", "", nil)
		expectStatus(t, resp, http.StatusOK)
		if tree := getTree(t, srv, id); len(tree) != 2 {
			t.Fatalf("after redo: %s", spew.Sdump(tree))
		}
	})

	t.Run("view", func(t *testing.T) {
		resp := do(t, http.MethodPost, base+"/view", "application/json", []byte(`{"action":"search","query":"INTRO"}`))
		expectStatus(t, resp, http.StatusOK)
		resp = do(t, http.MethodGet, base+"/view", "", nil)
		expectStatus(t, resp, http.StatusOK)
		var body bytes.Buffer
		body.ReadFrom(resp.Body)
		if !strings.Contains(body.String(), "Intro") || strings.Contains(body.String(), "Body") {
			t.Fatalf("view = %s", body.String())
		}
	})
}

func TestExportHeaders(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv)

	tests := []struct {
		format      string
		contentType string
		filename    string
	}{
		{"csv", "text/csv", "annual report-bookmarks.csv"},
		{"json", "application/json", "annual report-bookmarks.json"},
		{"pdf", "application/pdf", "annual report-bookmarked.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp := do(t, http.MethodGet, srv.URL+"/sessions/"+id+"/export/"+tt.format, "", nil)
			expectStatus(t, resp, http.StatusOK)
			if got := resp.Header.Get("Content-Type"); got != tt.contentType {
				t.Fatalf("content type = %q", got)
			}
			want := `attachment; filename="` + tt.filename + `"`
			if got := resp.Header.Get("Content-Disposition"); got != want {
				t.Fatalf("disposition = %q, want %q", got, want)
			}
		})
	}

	t.Run("csv body", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/sessions/"+id+"/export/csv", "", nil)
		var body bytes.Buffer
		body.ReadFrom(resp.Body)
		if !strings.HasPrefix(body.String(), "title,page,level\n") || !strings.Contains(body.String(), `"Intro",1,0`) {
			t.Fatalf("csv = %q", body.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/sessions/"+id+"/export/xml", "", nil)
		expectStatus(t, resp, http.StatusBadRequest)
	})
}

func TestImportAndErrors(t *testing.T) {
	srv := newServer(t)

	t.Run("unknown session", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/sessions/nope/tree", "", nil)
		expectStatus(t, resp, http.StatusNotFound)
	})

	t.Run("preload before document", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/sessions", "", nil)
		expectStatus(t, resp, http.StatusCreated)
		var created struct {
			Session session.Status `json:"session"`
		}
		decodeBody(t, resp, &created)
		base := srv.URL + "/sessions/" + created.Session.ID

		resp = do(t, http.MethodPost, base+"/import?format=csv", "text/csv", []byte("title,page,level\nOne,1,0\nTwo,2,1\n"))
		expectStatus(t, resp, http.StatusOK)
		var imported struct {
			Imported int              `json:"imported"`
			Notices  []session.Notice `json:"notices"`
		}
		decodeBody(t, resp, &imported)
		if imported.Imported != 1 || len(imported.Notices) != 1 || imported.Notices[0].Title != "CSV Loaded" {
			t.Fatalf("import = %s", spew.Sdump(imported))
		}

		resp = do(t, http.MethodPost, base+"/bookmarks", "application/json", []byte(`{"title":"x"}`))
		expectStatus(t, resp, http.StatusConflict)

		pdf, err := pdffixture.Plain(2)
		if err != nil {
			t.Fatalf("fixture: %v", err)
		}
		resp = do(t, http.MethodPut, base+"/document?name=plain.pdf", "application/pdf", pdf)
		expectStatus(t, resp, http.StatusOK)
		tree := getTree(t, srv, created.Session.ID)
		if len(tree) != 1 || tree[0].Title != "One" || len(tree[0].Children) != 1 {
			t.Fatalf("tree = %s", spew.Sdump(tree))
		}
	})

	t.Run("oversized upload", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/sessions", "application/pdf", bytes.Repeat([]byte("x"), 1<<20+1024))
		expectStatus(t, resp, http.StatusBadRequest)
	})
}
