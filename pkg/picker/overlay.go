package picker

import "sync"

// OverlayState is what a remote client needs to draw picking mode.
type OverlayState struct {
	Picking         bool   `json:"picking"`
	DialogMinimized bool   `json:"dialogMinimized"`
	Marker          *Point `json:"marker"`
	Tooltip         string `json:"tooltip,omitempty"`
	TooltipAt       *Point `json:"tooltipAt"`
}

// Overlay is a Surface that records state for clients to poll.
type Overlay struct {
	mu    sync.Mutex
	state OverlayState
}

func (o *Overlay) EnterPicking() {
	o.mu.Lock()
	o.state.Picking = true
	o.state.DialogMinimized = true
	o.mu.Unlock()
}

func (o *Overlay) ExitPicking() {
	o.mu.Lock()
	o.state.Picking = false
	o.state.DialogMinimized = false
	o.mu.Unlock()
}

func (o *Overlay) ShowMarker(at Point) {
	o.mu.Lock()
	o.state.Marker = &at
	o.mu.Unlock()
}

func (o *Overlay) ClearMarker() {
	o.mu.Lock()
	o.state.Marker = nil
	o.mu.Unlock()
}

func (o *Overlay) ShowTooltip(text string, at Point) {
	o.mu.Lock()
	o.state.Tooltip = text
	o.state.TooltipAt = &at
	o.mu.Unlock()
}

func (o *Overlay) HideTooltip() {
	o.mu.Lock()
	o.state.Tooltip = ""
	o.state.TooltipAt = nil
	o.mu.Unlock()
}

// State returns a copy of the current overlay.
func (o *Overlay) State() OverlayState {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.state
	if s.Marker != nil {
		m := *s.Marker
		s.Marker = &m
	}
	if s.TooltipAt != nil {
		t := *s.TooltipAt
		s.TooltipAt = &t
	}
	return s
}
