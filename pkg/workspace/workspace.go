// Package workspace keeps the live editor sessions of a daemon, persists
// them to SQLite and archives their exports to Git.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/rexliu/pdfmarks/pkg/logging"
	"github.com/rexliu/pdfmarks/pkg/session"
	"github.com/rexliu/pdfmarks/pkg/storage/sqlite"
	"github.com/rexliu/pdfmarks/pkg/vcs/git"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrVCSDisabled is returned by Archive when no repository is configured.
	ErrVCSDisabled = errors.New("vcs disabled")
)

// Config wires a workspace. Store and Repo are optional.
type Config struct {
	Store    *sqlite.Store
	Repo     git.Repo
	AutoPush bool
	Logger   *logging.Logger
	// OnChange runs after a session commits a mutation and has been persisted.
	OnChange func(*session.Session)
	// Session is the template for new sessions; ID and OnChange are set per session.
	Session session.Options
}

// Workspace is the registry of open sessions.
type Workspace struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	store    *sqlite.Store
	repo     git.Repo
	autoPush bool
	log      *logging.Logger
	template session.Options
	notify   func(*session.Session)
}

// New returns an empty workspace.
func New(cfg Config) *Workspace {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = cfg.Logger
	}
	return &Workspace{
		sessions: make(map[string]*session.Session),
		store:    cfg.Store,
		repo:     cfg.Repo,
		autoPush: cfg.AutoPush,
		log:      cfg.Logger,
		template: cfg.Session,
		notify:   cfg.OnChange,
	}
}

func (w *Workspace) options() session.Options {
	opts := w.template
	opts.ID = ""
	opts.OnChange = w.changed
	return opts
}

// changed persists a session after a committed mutation. Failures are logged;
// the live session stays authoritative.
func (w *Workspace) changed(s *session.Session) {
	if w.store != nil {
		if err := w.persist(context.Background(), s); err != nil {
			w.log.Warnf("persist session %s: %v", s.ID(), err)
		}
	}
	if w.notify != nil {
		w.notify(s)
	}
}

// Create registers a new empty session.
func (w *Workspace) Create() *session.Session {
	s := session.New(w.options())
	w.mu.Lock()
	w.sessions[s.ID()] = s
	w.mu.Unlock()
	w.log.Infof("session %s created", s.ID())
	return s
}

// Get returns the session with id.
func (w *Workspace) Get(id string) (*session.Session, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s, nil
}

// List returns the status of every session ordered by id.
func (w *Workspace) List() []session.Status {
	w.mu.RLock()
	all := make([]*session.Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		all = append(all, s)
	}
	w.mu.RUnlock()
	out := make([]session.Status, len(all))
	for i, s := range all {
		out[i] = s.State()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close disposes of a session and forgets its stored state.
func (w *Workspace) Close(ctx context.Context, id string) error {
	w.mu.Lock()
	s, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	s.Close()
	if w.store != nil {
		if err := w.store.DeleteSession(ctx, id); err != nil && !errors.Is(err, sqlite.ErrNotFound) {
			return err
		}
	}
	w.log.Infof("session %s closed", id)
	return nil
}

// Persist writes the session's document and history to the store.
func (w *Workspace) Persist(ctx context.Context, id string) error {
	if w.store == nil {
		return nil
	}
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	return w.persist(ctx, s)
}

func (w *Workspace) persist(ctx context.Context, s *session.Session) error {
	rec := s.Record()
	return w.store.SaveSession(ctx, sqlite.SessionRow{
		ID:        rec.ID,
		Name:      rec.Name,
		PDF:       rec.PDF,
		Page:      rec.Page,
		Index:     rec.Index,
		Snapshots: rec.History,
	})
}

// Restore loads every stored session. Sessions that fail to load are logged
// and skipped; the count of restored sessions is returned.
func (w *Workspace) Restore(ctx context.Context) (int, error) {
	if w.store == nil {
		return 0, nil
	}
	infos, err := w.store.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	restored := 0
	for _, info := range infos {
		row, err := w.store.LoadSession(ctx, info.ID)
		if err != nil {
			w.log.Warnf("restore session %s: %v", info.ID, err)
			continue
		}
		s, err := session.Restore(session.Record{
			ID:      row.ID,
			Name:    row.Name,
			PDF:     row.PDF,
			Page:    row.Page,
			History: row.Snapshots,
			Index:   row.Index,
		}, w.options())
		if err != nil {
			w.log.Warnf("restore session %s: %v", info.ID, err)
			continue
		}
		w.mu.Lock()
		w.sessions[s.ID()] = s
		w.mu.Unlock()
		restored++
	}
	w.log.Infof("restored %d of %d stored sessions", restored, len(infos))
	return restored, nil
}

// Archive commits the session's JSON export to the repository under
// <session id>/<name>-bookmarks.json, pushing afterwards when configured.
func (w *Workspace) Archive(ctx context.Context, id string) (git.Status, error) {
	if w.repo == nil {
		return git.Status{}, ErrVCSDisabled
	}
	s, err := w.Get(id)
	if err != nil {
		return git.Status{}, err
	}
	data, name, err := s.ExportJSON()
	if err != nil {
		return git.Status{}, err
	}
	if err := w.repo.WriteFile(path.Join(id, name), data); err != nil {
		return git.Status{}, fmt.Errorf("archive %s: %w", id, err)
	}
	st, err := w.repo.Commit(ctx, "archive "+name)
	if err != nil {
		return git.Status{}, fmt.Errorf("archive %s: %w", id, err)
	}
	if st.Committed && w.autoPush {
		if err := w.repo.Push(ctx); err != nil {
			w.log.Warnf("push archive %s: %v", id, err)
		}
	}
	return st, nil
}

// Push sends archived commits to the configured remote.
func (w *Workspace) Push(ctx context.Context) error {
	if w.repo == nil {
		return ErrVCSDisabled
	}
	return w.repo.Push(ctx)
}

// Pull fast-forwards the archive from the configured remote.
func (w *Workspace) Pull(ctx context.Context) error {
	if w.repo == nil {
		return ErrVCSDisabled
	}
	return w.repo.Pull(ctx)
}

// Shutdown closes every session. Stored state is kept for the next Restore.
func (w *Workspace) Shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, s := range w.sessions {
		s.Close()
		delete(w.sessions, id)
	}
}
