// Package httpapi serves editor sessions over HTTP with a chi router.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rexliu/pdfmarks/pkg/codec"
	"github.com/rexliu/pdfmarks/pkg/ipc"
	"github.com/rexliu/pdfmarks/pkg/logging"
	"github.com/rexliu/pdfmarks/pkg/session"
	"github.com/rexliu/pdfmarks/pkg/view"
	"github.com/rexliu/pdfmarks/pkg/workspace"
)

// API exposes a workspace over HTTP.
type API struct {
	ws        *workspace.Workspace
	log       *logging.Logger
	maxUpload int64
}

// New returns an API. maxUploadMB bounds PDF and import bodies; zero means 64.
func New(ws *workspace.Workspace, log *logging.Logger, maxUploadMB int) *API {
	if log == nil {
		log = logging.Discard()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 64
	}
	return &API{ws: ws, log: log, maxUpload: int64(maxUploadMB) << 20}
}

// Handler returns a router with request ids, panic recovery and access logs.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: a.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	a.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the session routes on r.
func (a *API) RegisterHTTP(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", a.handleList)
		r.Post("/", a.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handleStatus)
			r.Delete("/", a.handleClose)
			r.Put("/document", a.handleOpen)
			r.Get("/tree", a.handleTree)
			r.Get("/rows", a.handleRows)
			r.Get("/view", a.handleView)
			r.Post("/view", a.handleViewAction)
			r.Post("/bookmarks", a.handleAdd)
			r.Delete("/bookmarks", a.handleDeleteAll)
			r.Post("/bookmarks/{node}/children", a.handleAddChild)
			r.Patch("/bookmarks/{node}", a.handleEdit)
			r.Delete("/bookmarks/{node}", a.handleDelete)
			r.Post("/undo", a.handleUndo)
			r.Post("/redo", a.handleRedo)
			r.Post("/reorder", a.handleReorder)
			r.Post("/import", a.handleImport)
			r.Post("/extract", a.handleExtract)
			r.Post("/reset", a.handleReset)
			r.Post("/pages/{page}", a.handleGoto)
			r.Get("/export/{format}", a.handleExport)
			r.Post("/archive", a.handleArchive)
		})
	})
}

// errorBody mirrors the IPC error shape.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var codeStatus = map[string]int{
	ipc.CodeInvalidRequest:   http.StatusConflict,
	ipc.CodeNotFound:         http.StatusNotFound,
	ipc.CodeValidationFailed: http.StatusUnprocessableEntity,
	ipc.CodeNotConfirmed:     http.StatusConflict,
	ipc.CodeStorageError:     http.StatusInternalServerError,
	ipc.CodeExportFailed:     http.StatusUnprocessableEntity,
	ipc.CodeVCSError:         http.StatusServiceUnavailable,
}

func statusOf(err error) (int, string) {
	code := workspace.Code(err)
	if status, ok := codeStatus[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, code
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status == http.StatusInternalServerError {
		a.log.Errorf("%s %s [%s]: %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
	}
	writeJSON(w, status, map[string]any{"error": errorBody{Code: code, Message: err.Error()}})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": errorBody{Code: ipc.CodeInvalidRequest, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (a *API) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := a.ws.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return s, true
}

// dialogs returns a request context answering confirmations with the
// confirm query parameter and collecting notices.
func dialogs(r *http.Request) (*http.Request, *session.Notices) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	ctx := session.WithAnswer(r.Context(), confirmed)
	ctx, notices := session.WithNotices(ctx)
	return r.WithContext(ctx), notices
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	return nil
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": a.ws.List()})
}

// handleCreate starts a session. A multipart "file" part or a raw
// application/pdf body with a name query parameter loads a document.
func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	name, data, err := a.readDocument(w, r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	s := a.ws.Create()
	r, notices := dialogs(r)
	if data != nil {
		if err := s.Open(r.Context(), name, data); err != nil {
			a.ws.Close(r.Context(), s.ID())
			a.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": s.State(), "notices": notices.List()})
}

func (a *API) handleOpen(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	name, data, err := a.readDocument(w, r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if data == nil {
		badRequest(w, "pdf body required")
		return
	}
	r, notices := dialogs(r)
	if err := s.Open(r.Context(), name, data); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": s.State(), "notices": notices.List()})
}

func (a *API) readDocument(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(a.maxUpload); err != nil {
			return "", nil, fmt.Errorf("parse upload: %w", err)
		}
		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		return header.Filename, data, err
	case "application/pdf":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "document.pdf"
		}
		return name, data, nil
	}
	return "", nil, nil
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s, ok := a.session(w, r); ok {
		writeJSON(w, http.StatusOK, s.State())
	}
}

func (a *API) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := a.ws.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleTree(w http.ResponseWriter, r *http.Request) {
	if s, ok := a.session(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"tree": s.Tree()})
	}
}

func (a *API) handleRows(w http.ResponseWriter, r *http.Request) {
	if s, ok := a.session(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"rows": s.Rows()})
	}
}

func (a *API) handleView(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, s.HTML())
}

func (a *API) handleViewAction(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var act session.ViewAction
	if err := decode(r, &act); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.ApplyView(act); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

type titleBody struct {
	Title string `json:"title"`
}

func (a *API) handleAdd(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var body titleBody
	if err := decode(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := s.AddTopLevel(body.Title)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) handleAddChild(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var body titleBody
	if err := decode(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := s.AddChild(chi.URLParam(r, "node"), body.Title)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) handleEdit(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var patch session.Patch
	if err := decode(r, &patch); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.Edit(chi.URLParam(r, "node"), patch.Op(chi.URLParam(r, "node"))); err != nil {
		a.fail(w, r, err)
		return
	}
	node, _ := s.Tree().Find(chi.URLParam(r, "node"))
	writeJSON(w, http.StatusOK, node)
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	r, _ = dialogs(r)
	if err := s.Delete(r.Context(), chi.URLParam(r, "node")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAll clears the tree, or only the batch selection when
// selected=true.
func (a *API) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	r, notices := dialogs(r)
	if selected, _ := strconv.ParseBool(r.URL.Query().Get("selected")); selected {
		n, err := s.BatchDelete(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
		return
	}
	changed, err := s.DeleteAll(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "notices": notices.List()})
}

func (a *API) handleUndo(w http.ResponseWriter, r *http.Request) {
	if s, ok := a.session(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]bool{"changed": s.Undo()})
	}
}

func (a *API) handleRedo(w http.ResponseWriter, r *http.Request) {
	if s, ok := a.session(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]bool{"changed": s.Redo()})
	}
}

func (a *API) handleReorder(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var ev view.DropEvent
	if err := decode(r, &ev); err != nil {
		badRequest(w, err.Error())
		return
	}
	changed, err := s.Drop(ev)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

// handleImport reads a CSV or JSON outline; the format comes from the
// format query parameter or the body's content type.
func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("format")
	if raw == "" {
		if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
			raw = "csv"
		} else {
			raw = "json"
		}
	}
	format, err := codec.ParseFormat(raw)
	if err != nil || format == codec.FormatPDF {
		badRequest(w, "import format must be csv or json")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxUpload))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	r, notices := dialogs(r)
	var n int
	if format == codec.FormatCSV {
		n, err = s.ImportCSV(r.Context(), data)
	} else {
		n, err = s.ImportJSON(r.Context(), data)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": n, "notices": notices.List()})
}

func (a *API) handleExtract(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	r, notices := dialogs(r)
	n, err := s.ExtractExisting(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"extracted": n, "notices": notices.List()})
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	r, _ = dialogs(r)
	if err := s.Reset(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (a *API) handleGoto(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		badRequest(w, "page must be a number")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": s.GotoPage(page), "page": s.State().Page})
}

// handleExport serves an export as an attachment named after the document.
func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	format, err := codec.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var (
		data []byte
		name string
	)
	if format == codec.FormatPDF {
		var notices *session.Notices
		r, notices = dialogs(r)
		data, name, err = s.Save(r.Context())
		for _, n := range notices.List() {
			a.log.Debugf("session %s: %s", s.ID(), n.Message)
		}
	} else {
		data, name, err = s.Export(format)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", codec.ContentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (a *API) handleArchive(w http.ResponseWriter, r *http.Request) {
	st, err := a.ws.Archive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
