// Package picker implements the destination picking mode: a single click on
// the page preview yields the (page, x, y) target of a bookmark.
package picker

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	// ErrPickingActive indicates Start was called while a pick is in progress.
	ErrPickingActive = errors.New("destination picking already active")
	// ErrNotPicking indicates a click or cancel without an active pick.
	ErrNotPicking = errors.New("destination picking not active")
)

// DefaultExitDelay is how long the marker stays visible after a click.
const DefaultExitDelay = 500 * time.Millisecond

// Bounds is the rendered canvas box in client coordinates.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a canvas-relative pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Surface is the presentation side of picking mode.
type Surface interface {
	// EnterPicking minimizes the edit dialog and shows the picking overlay.
	EnterPicking()
	// ExitPicking hides the overlay and restores the dialog.
	ExitPicking()
	ShowMarker(at Point)
	ClearMarker()
	ShowTooltip(text string, at Point)
	HideTooltip()
}

// Callback receives the picked page and canvas pixel coordinates.
type Callback func(page int, x, y float64)

type stopFunc func() bool

// Picker is the picking state machine of one session. Callbacks run
// without the picker lock held.
type Picker struct {
	mu      sync.Mutex
	surface Surface
	delay   time.Duration
	after   func(time.Duration, func()) stopFunc

	active   bool
	exiting  bool
	gen      int
	bounds   Bounds
	callback Callback
	stop     stopFunc
}

// New returns an idle picker. A zero delay selects DefaultExitDelay.
func New(surface Surface, delay time.Duration) *Picker {
	if delay <= 0 {
		delay = DefaultExitDelay
	}
	return &Picker{
		surface: surface,
		delay:   delay,
		after: func(d time.Duration, f func()) stopFunc {
			return time.AfterFunc(d, f).Stop
		},
	}
}

// Active reports whether a pick is in progress, including the delay after a click.
func (p *Picker) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Start enters picking mode over a canvas with the given bounds.
func (p *Picker) Start(bounds Bounds, cb Callback) error {
	if cb == nil {
		return errors.New("picker: nil callback")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return ErrPickingActive
	}
	p.active = true
	p.exiting = false
	p.gen++
	p.bounds = bounds
	p.callback = cb
	p.surface.EnterPicking()
	return nil
}

// SetBounds updates the canvas box, e.g. after the preview changes page.
func (p *Picker) SetBounds(bounds Bounds) {
	p.mu.Lock()
	p.bounds = bounds
	p.mu.Unlock()
}

// Move updates the coordinate tooltip for a pointer at client coordinates.
func (p *Picker) Move(clientX, clientY float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active || p.exiting {
		return
	}
	at := p.relative(clientX, clientY)
	p.surface.ShowTooltip(TooltipText(at), Point{X: at.X + 15, Y: at.Y + 15})
}

// Leave hides the tooltip when the pointer leaves the canvas.
func (p *Picker) Leave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		p.surface.HideTooltip()
	}
}

// Click picks the point under the pointer on the given page: the marker is
// drawn, the callback runs, and picking mode ends after the exit delay.
func (p *Picker) Click(page int, clientX, clientY float64) (Point, error) {
	p.mu.Lock()
	if !p.active || p.exiting {
		p.mu.Unlock()
		return Point{}, ErrNotPicking
	}
	at := p.relative(clientX, clientY)
	p.surface.ClearMarker()
	p.surface.ShowMarker(at)
	cb := p.callback
	p.exiting = true
	gen := p.gen
	p.stop = p.after(p.delay, func() { p.finish(gen) })
	p.mu.Unlock()

	cb(page, at.X, at.Y)
	return at, nil
}

// Cancel leaves picking mode without calling the callback. Cancel after a
// click only shortens the exit delay.
func (p *Picker) Cancel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return ErrNotPicking
	}
	p.exitLocked()
	return nil
}

// Close cancels any pick in progress. It is safe to call more than once.
func (p *Picker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		p.exitLocked()
	}
}

func (p *Picker) finish(gen int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active || p.gen != gen {
		return
	}
	p.exitLocked()
}

func (p *Picker) exitLocked() {
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
	p.active = false
	p.exiting = false
	p.callback = nil
	p.surface.ClearMarker()
	p.surface.HideTooltip()
	p.surface.ExitPicking()
}

func (p *Picker) relative(clientX, clientY float64) Point {
	return Point{X: clientX - p.bounds.Left, Y: clientY - p.bounds.Top}
}

// TooltipText formats a canvas point as "X: 12, Y: 34".
func TooltipText(at Point) string {
	return fmt.Sprintf("X: %d, Y: %d", int(math.Round(at.X)), int(math.Round(at.Y)))
}
