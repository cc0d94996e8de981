package history

import (
	"fmt"
	"strings"
)

// Action is what a keyboard shortcut asks the history to do.
type Action int

const (
	ActionNone Action = iota
	ActionUndo
	ActionRedo
)

func (a Action) String() string {
	switch a {
	case ActionUndo:
		return "undo"
	case ActionRedo:
		return "redo"
	default:
		return "none"
	}
}

// Shortcut is a key press with its modifiers.
type Shortcut struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
}

// Resolve maps Ctrl/Meta+Z to undo and Ctrl/Meta+Shift+Z or Ctrl/Meta+Y to redo.
func Resolve(s Shortcut) Action {
	if !s.Ctrl && !s.Meta {
		return ActionNone
	}
	switch strings.ToLower(s.Key) {
	case "z":
		if s.Shift {
			return ActionRedo
		}
		return ActionUndo
	case "y":
		return ActionRedo
	}
	return ActionNone
}

// ParseShortcut reads forms like "ctrl+z", "Meta+Shift+Z" or "cmd+y".
func ParseShortcut(raw string) (Shortcut, error) {
	parts := strings.Split(strings.TrimSpace(raw), "+")
	var s Shortcut
	for i, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if i == len(parts)-1 {
			if p == "" {
				return Shortcut{}, fmt.Errorf("shortcut %q: missing key", raw)
			}
			s.Key = p
			break
		}
		switch p {
		case "ctrl", "control":
			s.Ctrl = true
		case "meta", "cmd", "command":
			s.Meta = true
		case "shift":
			s.Shift = true
		default:
			return Shortcut{}, fmt.Errorf("shortcut %q: unknown modifier %q", raw, part)
		}
	}
	return s, nil
}
