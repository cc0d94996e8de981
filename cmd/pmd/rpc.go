package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rexliu/pdfmarks/pkg/codec"
	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/history"
	"github.com/rexliu/pdfmarks/pkg/ipc"
	"github.com/rexliu/pdfmarks/pkg/session"
	"github.com/rexliu/pdfmarks/pkg/view"
	"github.com/rexliu/pdfmarks/pkg/workspace"
)

func (d *daemon) registerHandlers(srv *ipc.Server) {
	srv.Register("ping", pingHandler(d.logger))
	srv.Register("open", d.handleOpen)
	srv.Register("close", d.handleClose)
	srv.Register("list", d.handleList)
	srv.Register("get_tree", d.withSession(d.handleGetTree))
	srv.Register("rows", d.withSession(d.handleRows))
	srv.Register("view", d.withSession(d.handleView))
	srv.Register("apply", d.withSession(d.handleApply))
	srv.Register("undo", d.withSession(d.handleUndo))
	srv.Register("redo", d.withSession(d.handleRedo))
	srv.Register("key", d.withSession(d.handleKey))
	srv.Register("drop", d.withSession(d.handleDrop))
	srv.Register("import", d.withSession(d.handleImport))
	srv.Register("export", d.withSession(d.handleExport))
	srv.Register("save", d.withSession(d.handleSave))
	srv.Register("extract", d.withSession(d.handleExtract))
	srv.Register("reset", d.withSession(d.handleReset))
	srv.Register("goto", d.withSession(d.handleGoto))
	srv.Register("pick_start", d.withSession(d.handlePickStart))
	srv.Register("pick_move", d.withSession(d.handlePickMove))
	srv.Register("pick_leave", d.withSession(d.handlePickLeave))
	srv.Register("pick_click", d.withSession(d.handlePickClick))
	srv.Register("pick_cancel", d.withSession(d.handlePickCancel))
	srv.Register("archive", d.handleArchive)
	srv.Register("vcs_push", d.handleVCSPush)
	srv.Register("vcs_pull", d.handleVCSPull)
	srv.RegisterStream("subscribe_events", d.handleSubscribeEvents)
}

func decodeParams(raw json.RawMessage, v any) *ipc.Error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ipc.Errorf(ipc.CodeInvalidRequest, "invalid params", map[string]any{"error": err.Error()})
	}
	return nil
}

// errBadParams marks malformed method parameters.
var errBadParams = errors.New("invalid params")

func params(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", errBadParams, err)
	}
	return nil
}

func rpcError(err error) *ipc.Error {
	if errors.Is(err, errBadParams) {
		return ipc.Errorf(ipc.CodeInvalidRequest, err.Error(), nil)
	}
	return ipc.Errorf(workspace.Code(err), err.Error(), nil)
}

// sessionParams are accepted by every per-session method. Confirm answers
// any confirmation the method asks for.
type sessionParams struct {
	Session string `json:"session"`
	Confirm bool   `json:"confirm"`
}

type sessionFunc func(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error)

// withSession resolves the session, installs request dialogs and attaches
// any notices raised to the result or error.
func (d *daemon) withSession(fn sessionFunc) ipc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, *ipc.Error) {
		var p sessionParams
		if rpcErr := decodeParams(raw, &p); rpcErr != nil {
			return nil, rpcErr
		}
		if p.Session == "" {
			return nil, ipc.Errorf(ipc.CodeInvalidRequest, "session required", nil)
		}
		s, err := d.ws.Get(p.Session)
		if err != nil {
			return nil, rpcError(err)
		}
		ctx, notices := session.WithNotices(session.WithAnswer(ctx, p.Confirm))
		result, err := fn(ctx, s, raw)
		if err != nil {
			rpcErr := rpcError(err)
			if list := notices.List(); len(list) > 0 {
				rpcErr.Details = map[string]any{"notices": list}
			}
			return nil, rpcErr
		}
		if result == nil {
			result = map[string]any{}
		}
		if list := notices.List(); len(list) > 0 {
			result["notices"] = list
		}
		return result, nil
	}
}

type openParams struct {
	Session string `json:"session"`
	Name    string `json:"name"`
	PDF     []byte `json:"pdf"`
	Path    string `json:"path"`
}

// handleOpen loads a document into a session, creating one when no session
// is named. Without pdf or path it only creates the session.
func (d *daemon) handleOpen(ctx context.Context, raw json.RawMessage) (any, *ipc.Error) {
	var p openParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Path != "" {
		data, err := os.ReadFile(p.Path)
		if err != nil {
			return nil, ipc.Errorf(ipc.CodeInvalidRequest, err.Error(), map[string]any{"path": p.Path})
		}
		p.PDF = data
		if p.Name == "" {
			p.Name = filepath.Base(p.Path)
		}
	}
	var (
		s       *session.Session
		created bool
		err     error
	)
	if p.Session == "" {
		s, created = d.ws.Create(), true
	} else if s, err = d.ws.Get(p.Session); err != nil {
		return nil, rpcError(err)
	}
	ctx, notices := session.WithNotices(ctx)
	if len(p.PDF) > 0 {
		if err := s.Open(ctx, p.Name, p.PDF); err != nil {
			if created {
				d.ws.Close(ctx, s.ID())
			}
			return nil, rpcError(err)
		}
	}
	return map[string]any{"session": s.State(), "notices": notices.List()}, nil
}

func (d *daemon) handleClose(ctx context.Context, raw json.RawMessage) (any, *ipc.Error) {
	var p sessionParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := d.ws.Close(ctx, p.Session); err != nil {
		return nil, rpcError(err)
	}
	return map[string]any{"closed": p.Session}, nil
}

func (d *daemon) handleList(ctx context.Context, raw json.RawMessage) (any, *ipc.Error) {
	return map[string]any{"sessions": d.ws.List()}, nil
}

func (d *daemon) handleGetTree(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	return map[string]any{"tree": s.Tree()}, nil
}

func (d *daemon) handleRows(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var p struct {
		HTML bool `json:"html"`
	}
	json.Unmarshal(raw, &p)
	out := map[string]any{"rows": s.Rows()}
	if p.HTML {
		out["html"] = s.HTML()
	}
	return out, nil
}

func (d *daemon) handleView(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var act session.ViewAction
	if err := params(raw, &act); err != nil {
		return nil, err
	}
	if err := s.ApplyView(act); err != nil {
		return nil, err
	}
	return map[string]any{"status": s.State()}, nil
}

// applyParams describe one editing action. Op is one of add, child, edit,
// delete, delete_all, batch_delete, batch_color or batch_style.
type applyParams struct {
	Op       string        `json:"op"`
	Title    string        `json:"title"`
	ParentID string        `json:"parentId"`
	NodeID   string        `json:"nodeId"`
	Patch    session.Patch `json:"patch"`
	Color    core.Color    `json:"color"`
	Style    core.Style    `json:"style"`
}

func (d *daemon) handleApply(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var p applyParams
	if err := params(raw, &p); err != nil {
		return nil, err
	}
	out := map[string]any{}
	switch p.Op {
	case "add":
		id, err := s.AddTopLevel(p.Title)
		if err != nil {
			return nil, err
		}
		out["id"] = id
	case "child":
		id, err := s.AddChild(p.ParentID, p.Title)
		if err != nil {
			return nil, err
		}
		out["id"] = id
	case "edit":
		if err := s.Edit(p.NodeID, p.Patch.Op(p.NodeID)); err != nil {
			return nil, err
		}
	case "delete":
		if err := s.Delete(ctx, p.NodeID); err != nil {
			return nil, err
		}
	case "delete_all":
		changed, err := s.DeleteAll(ctx)
		if err != nil {
			return nil, err
		}
		out["changed"] = changed
	case "batch_delete":
		n, err := s.BatchDelete(ctx)
		if err != nil {
			return nil, err
		}
		out["count"] = n
	case "batch_color":
		n, err := s.BatchColor(p.Color)
		if err != nil {
			return nil, err
		}
		out["count"] = n
	case "batch_style":
		n, err := s.BatchStyle(p.Style)
		if err != nil {
			return nil, err
		}
		out["count"] = n
	default:
		return nil, fmt.Errorf("%w: unknown op %q", errBadParams, p.Op)
	}
	out["tree"] = s.Tree()
	return out, nil
}

func (d *daemon) handleUndo(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	return map[string]any{"changed": s.Undo(), "tree": s.Tree()}, nil
}

func (d *daemon) handleRedo(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	return map[string]any{"changed": s.Redo(), "tree": s.Tree()}, nil
}

// handleKey accepts either a shortcut string such as "ctrl+z" or the
// key/ctrl/meta/shift fields of a key event.
func (d *daemon) handleKey(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var (
		sc history.Shortcut
		p  struct {
			Shortcut string `json:"shortcut"`
		}
	)
	if err := params(raw, &sc); err != nil {
		return nil, err
	}
	if err := params(raw, &p); err != nil {
		return nil, err
	}
	if sc.Key == "" && p.Shortcut != "" {
		parsed, err := history.ParseShortcut(p.Shortcut)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBadParams, err)
		}
		sc = parsed
	}
	action, changed := s.Key(sc)
	return map[string]any{"action": action.String(), "changed": changed}, nil
}

func (d *daemon) handleDrop(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var ev view.DropEvent
	if err := params(raw, &ev); err != nil {
		return nil, err
	}
	changed, err := s.Drop(ev)
	if err != nil {
		return nil, err
	}
	return map[string]any{"changed": changed, "tree": s.Tree()}, nil
}

func (d *daemon) handleImport(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var p struct {
		Format string `json:"format"`
		Data   string `json:"data"`
	}
	if err := params(raw, &p); err != nil {
		return nil, err
	}
	format, err := codec.ParseFormat(p.Format)
	if err != nil || format == codec.FormatPDF {
		return nil, fmt.Errorf("%w: import format must be csv or json", errBadParams)
	}
	var n int
	if format == codec.FormatCSV {
		n, err = s.ImportCSV(ctx, []byte(p.Data))
	} else {
		n, err = s.ImportJSON(ctx, []byte(p.Data))
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"imported": n}, nil
}

type exportParams struct {
	Format string `json:"format"`
	// Write also stores the file in the profile's export directory.
	Write bool `json:"write"`
}

func (d *daemon) handleExport(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var p exportParams
	if err := params(raw, &p); err != nil {
		return nil, err
	}
	format, err := codec.ParseFormat(p.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadParams, err)
	}
	if format == codec.FormatPDF {
		return d.save(ctx, s, p.Write)
	}
	data, name, err := s.Export(format)
	if err != nil {
		return nil, err
	}
	return d.exportResult(format, data, name, p.Write)
}

func (d *daemon) handleSave(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var p exportParams
	if err := params(raw, &p); err != nil {
		return nil, err
	}
	return d.save(ctx, s, p.Write)
}

func (d *daemon) save(ctx context.Context, s *session.Session, write bool) (map[string]any, error) {
	data, name, err := s.Save(ctx)
	if err != nil {
		return nil, err
	}
	return d.exportResult(codec.FormatPDF, data, name, write)
}

func (d *daemon) exportResult(format codec.Format, data []byte, name string, write bool) (map[string]any, error) {
	out := map[string]any{
		"filename":    name,
		"contentType": codec.ContentType(format),
		"data":        data,
	}
	if write {
		if d.exportDir == "" {
			return nil, fmt.Errorf("%w: no export directory configured", errBadParams)
		}
		if err := os.MkdirAll(d.exportDir, 0o700); err != nil {
			return nil, err
		}
		path := filepath.Join(d.exportDir, filepath.Base(name))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, err
		}
		out["path"] = path
	}
	return out, nil
}

func (d *daemon) handleExtract(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	n, err := s.ExtractExisting(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"extracted": n, "tree": s.Tree()}, nil
}

func (d *daemon) handleReset(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	if err := s.Reset(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"status": s.State()}, nil
}

// handleGoto shows a page by number, by offset or by jumping to a bookmark.
func (d *daemon) handleGoto(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var p struct {
		Page   int    `json:"page"`
		Delta  int    `json:"delta"`
		NodeID string `json:"nodeId"`
	}
	if err := params(raw, &p); err != nil {
		return nil, err
	}
	switch {
	case p.NodeID != "":
		if _, err := s.JumpTo(p.NodeID); err != nil {
			return nil, err
		}
	case p.Delta > 0:
		s.NextPage()
	case p.Delta < 0:
		s.PrevPage()
	default:
		s.GotoPage(p.Page)
	}
	vp, err := s.Viewport()
	if err != nil {
		return nil, err
	}
	return map[string]any{"viewport": vp, "pageCount": s.State().PageCount}, nil
}

type pointParams struct {
	NodeID string  `json:"nodeId"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (d *daemon) handlePickStart(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var p pointParams
	if err := params(raw, &p); err != nil {
		return nil, err
	}
	if err := s.StartPicking(p.NodeID, p.Left, p.Top); err != nil {
		return nil, err
	}
	return map[string]any{"overlay": s.State().Overlay}, nil
}

func (d *daemon) handlePickMove(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var p pointParams
	if err := params(raw, &p); err != nil {
		return nil, err
	}
	s.PickMove(p.X, p.Y)
	return map[string]any{"overlay": s.State().Overlay}, nil
}

func (d *daemon) handlePickLeave(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	s.PickLeave()
	return map[string]any{"overlay": s.State().Overlay}, nil
}

func (d *daemon) handlePickClick(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	var p pointParams
	if err := params(raw, &p); err != nil {
		return nil, err
	}
	pick, err := s.Pick(p.X, p.Y)
	if err != nil {
		return nil, err
	}
	return map[string]any{"pick": pick}, nil
}

func (d *daemon) handlePickCancel(ctx context.Context, s *session.Session, raw json.RawMessage) (map[string]any, error) {
	if err := s.CancelPicking(); err != nil {
		return nil, err
	}
	return map[string]any{"overlay": s.State().Overlay}, nil
}

func (d *daemon) handleArchive(ctx context.Context, raw json.RawMessage) (any, *ipc.Error) {
	var p sessionParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	st, err := d.ws.Archive(ctx, p.Session)
	if err != nil {
		return nil, rpcError(err)
	}
	return map[string]any{"vcsStatus": st}, nil
}

func (d *daemon) handleVCSPush(ctx context.Context, raw json.RawMessage) (any, *ipc.Error) {
	if err := d.ws.Push(ctx); err != nil {
		return nil, ipc.Errorf(ipc.CodeVCSError, err.Error(), nil)
	}
	return map[string]any{"status": "ok"}, nil
}

func (d *daemon) handleVCSPull(ctx context.Context, raw json.RawMessage) (any, *ipc.Error) {
	if err := d.ws.Pull(ctx); err != nil {
		return nil, ipc.Errorf(ipc.CodeVCSError, err.Error(), nil)
	}
	return map[string]any{"status": "ok"}, nil
}

func (d *daemon) handleSubscribeEvents(ctx context.Context, raw json.RawMessage) (<-chan any, *ipc.Error) {
	var p sessionParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	client := d.events.register(p.Session)
	go func() {
		<-ctx.Done()
		d.events.unregister(client)
	}()
	return client.send, nil
}
