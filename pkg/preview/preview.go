// Package preview tracks the page shown in the preview pane and the size of
// the canvas it is drawn on.
package preview

import (
	"errors"
	"fmt"
	"math"

	"github.com/rexliu/pdfmarks/pkg/picker"
)

// DefaultScale is the render scale used when none is configured.
const DefaultScale = 1.5

// ErrNoDocument is returned when no document is loaded.
var ErrNoDocument = errors.New("no document loaded")

// Source provides page geometry, in points.
type Source interface {
	PageCount() int
	PageSize(nr int) (width, height float64, err error)
}

// Viewport is the canvas a page is rendered to.
type Viewport struct {
	Page   int     `json:"page"`
	Scale  float64 `json:"scale"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds places the viewport at a client position, giving the box the
// destination picker measures clicks against.
func (v Viewport) Bounds(left, top float64) picker.Bounds {
	return picker.Bounds{Left: left, Top: top, Width: v.Width, Height: v.Height}
}

// Pane is the preview state of one session. The zero value has no document.
type Pane struct {
	src   Source
	page  int
	scale float64
}

// New returns an empty pane rendering at scale. A non-positive scale
// selects DefaultScale.
func New(scale float64) *Pane {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Pane{scale: scale}
}

// Load shows the first page of src. A nil src unloads the pane.
func (p *Pane) Load(src Source) {
	p.src = src
	p.page = 0
	if src != nil && src.PageCount() > 0 {
		p.page = 1
	}
}

// Page returns the current 1-based page, or 0 without a document.
func (p *Pane) Page() int { return p.page }

// PageCount returns the number of pages of the loaded document.
func (p *Pane) PageCount() int {
	if p.src == nil {
		return 0
	}
	return p.src.PageCount()
}

// Show moves to page n. Pages outside [1, PageCount] are ignored.
func (p *Pane) Show(n int) bool {
	if n < 1 || n > p.PageCount() || n == p.page {
		return false
	}
	p.page = n
	return true
}

func (p *Pane) Next() bool { return p.Show(p.page + 1) }

func (p *Pane) Prev() bool { return p.Show(p.page - 1) }

// Viewport returns the canvas size of the current page at scale; a
// non-positive scale uses the pane's own.
func (p *Pane) Viewport(scale float64) (Viewport, error) {
	if p.src == nil || p.page == 0 {
		return Viewport{}, ErrNoDocument
	}
	if scale <= 0 {
		scale = p.scale
	}
	w, h, err := p.src.PageSize(p.page)
	if err != nil {
		return Viewport{}, fmt.Errorf("page %d size: %w", p.page, err)
	}
	return Viewport{
		Page:   p.page,
		Scale:  scale,
		Width:  math.Floor(w * scale),
		Height: math.Floor(h * scale),
	}, nil
}
