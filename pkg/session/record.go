package session

import (
	"fmt"

	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/pdfoutline"
)

// Record is the durable part of a session: the document and its editing
// history. View state and picking are not recorded.
type Record struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	PDF     []byte      `json:"-"`
	Page    int         `json:"page"`
	History []core.Tree `json:"history"`
	Index   int         `json:"index"`
}

// Record captures the session for persistence.
func (s *Session) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	snaps, index := s.history.Snapshots()
	return Record{
		ID:      s.id,
		Name:    s.name,
		PDF:     s.pdf,
		Page:    s.pane.Page(),
		History: snaps,
		Index:   index,
	}
}

// Restore rebuilds a session from a record. opts.ID is replaced by the
// record's id.
func Restore(rec Record, opts Options) (*Session, error) {
	opts.ID = rec.ID
	s := New(opts)
	s.name = rec.Name
	if len(rec.PDF) > 0 {
		doc, err := pdfoutline.Open(rec.PDF)
		if err != nil {
			return nil, fmt.Errorf("restore session %s: %w", rec.ID, err)
		}
		s.pdf = rec.PDF
		s.doc = doc
		s.pane.Load(doc)
		s.pane.Show(rec.Page)
	}
	if len(rec.History) > 0 {
		s.history.Restore(rec.History, rec.Index)
		s.tree = s.history.Current()
	}
	return s, nil
}
