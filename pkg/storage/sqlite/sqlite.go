package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rexliu/pdfmarks/pkg/core"
)

// ErrNotFound is returned when a session id has no stored row.
var ErrNotFound = errors.New("session not found")

// Store owns the SQLite database for a profile.
type Store struct {
	db   *sql.DB
	path string
}

// Tuning selects journal and sync pragmas. Empty fields keep DELETE and FULL.
type Tuning struct {
	JournalMode string
	Synchronous string
}

// SessionRow is the stored form of one editor session.
type SessionRow struct {
	ID        string
	Name      string
	PDF       []byte
	Page      int
	Index     int
	Snapshots []core.Tree
	UpdatedAt time.Time
}

// SessionInfo is a listing entry.
type SessionInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Page        int       `json:"page"`
	Snapshots   int       `json:"snapshots"`
	HasDocument bool      `json:"hasDocument"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var (
	journalModes = map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	syncModes    = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
)

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context, tuning Tuning) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	journal := strings.ToUpper(tuning.JournalMode)
	if journal == "" {
		journal = "DELETE"
	}
	sync := strings.ToUpper(tuning.Synchronous)
	if sync == "" {
		sync = "FULL"
	}
	if !journalModes[journal] {
		return fmt.Errorf("unsupported journal mode %q", tuning.JournalMode)
	}
	if !syncModes[sync] {
		return fmt.Errorf("unsupported synchronous mode %q", tuning.Synchronous)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = " + journal + ";",
		"PRAGMA synchronous = " + sync + ";",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return s.applySchema(ctx)
}

func (s *Store) applySchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			page INTEGER NOT NULL DEFAULT 0,
			hist_index INTEGER NOT NULL DEFAULT -1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS documents (
			session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
			sha256 TEXT NOT NULL,
			pdf BLOB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			tree TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// SaveSession writes row atomically. The document blob is rewritten only
// when its content changed, and snapshots past the end of row's history are
// dropped.
func (s *Store) SaveSession(ctx context.Context, row SessionRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.saveSession(ctx, tx, row); err != nil {
		tx.Rollback()
		return fmt.Errorf("save session %s: %w", row.ID, err)
	}
	return tx.Commit()
}

func (s *Store) saveSession(ctx context.Context, tx *sql.Tx, row SessionRow) error {
	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions(id, name, page, hist_index, created_at, updated_at) VALUES(?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, page = excluded.page,
			hist_index = excluded.hist_index, updated_at = excluded.updated_at;`,
		row.ID, row.Name, row.Page, row.Index, now, now); err != nil {
		return err
	}
	if len(row.PDF) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE session_id = ?`, row.ID); err != nil {
			return err
		}
	} else {
		sum := sha256.Sum256(row.PDF)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents(session_id, sha256, pdf) VALUES(?,?,?)
			ON CONFLICT(session_id) DO UPDATE SET sha256 = excluded.sha256, pdf = excluded.pdf
			WHERE documents.sha256 <> excluded.sha256;`,
			row.ID, hex.EncodeToString(sum[:]), row.PDF); err != nil {
			return err
		}
	}
	for seq, tree := range row.Snapshots {
		data, err := json.Marshal(tree)
		if err != nil {
			return fmt.Errorf("encode snapshot %d: %w", seq, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots(session_id, seq, tree) VALUES(?,?,?)
			ON CONFLICT(session_id, seq) DO UPDATE SET tree = excluded.tree
			WHERE snapshots.tree <> excluded.tree;`,
			row.ID, seq, string(data)); err != nil {
			return err
		}
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE session_id = ? AND seq >= ?`, row.ID, len(row.Snapshots))
	return err
}

// LoadSession reads one session with its document and snapshots.
func (s *Store) LoadSession(ctx context.Context, id string) (SessionRow, error) {
	row := SessionRow{ID: id}
	var updated int64
	err := s.db.QueryRowContext(ctx, `SELECT name, page, hist_index, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&row.Name, &row.Page, &row.Index, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRow{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SessionRow{}, err
	}
	row.UpdatedAt = time.UnixMilli(updated)

	err = s.db.QueryRowContext(ctx, `SELECT pdf FROM documents WHERE session_id = ?`, id).Scan(&row.PDF)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return SessionRow{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT tree FROM snapshots WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return SessionRow{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return SessionRow{}, err
		}
		var tree core.Tree
		if err := json.Unmarshal([]byte(raw), &tree); err != nil {
			return SessionRow{}, fmt.Errorf("decode snapshot %d of %s: %w", len(row.Snapshots), id, err)
		}
		if tree == nil {
			tree = core.Tree{}
		}
		row.Snapshots = append(row.Snapshots, tree)
	}
	return row, rows.Err()
}

// ListSessions returns every stored session, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.page, s.updated_at,
			(SELECT COUNT(*) FROM snapshots n WHERE n.session_id = s.id),
			EXISTS(SELECT 1 FROM documents d WHERE d.session_id = s.id)
		FROM sessions s
		ORDER BY s.updated_at DESC, s.id;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionInfo
	for rows.Next() {
		var (
			info    SessionInfo
			updated int64
		)
		if err := rows.Scan(&info.ID, &info.Name, &info.Page, &updated, &info.Snapshots, &info.HasDocument); err != nil {
			return nil, err
		}
		info.UpdatedAt = time.UnixMilli(updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSession removes a session with its document and snapshots.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err := wrapRowsAffected(res, err); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func wrapRowsAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
