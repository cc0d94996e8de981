package core

import (
	"encoding/json"
	"strings"
)

// Color is a bookmark color: one of the named colors or "#RRGGBB". Empty means none.
type Color string

const (
	ColorNone   Color = ""
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"
)

// NamedColors lists the predefined colors in display order.
var NamedColors = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow, ColorPurple}

// IsCustom reports whether c is a hex color.
func (c Color) IsCustom() bool {
	return strings.HasPrefix(string(c), "#")
}

func (c Color) MarshalJSON() ([]byte, error) { return marshalNullable(string(c)) }

func (c *Color) UnmarshalJSON(data []byte) error {
	s, err := unmarshalNullable(data)
	*c = Color(s)
	return err
}

// Style is a bookmark text style. Empty means normal.
type Style string

const (
	StyleNormal     Style = ""
	StyleBold       Style = "bold"
	StyleItalic     Style = "italic"
	StyleBoldItalic Style = "bold-italic"
)

func (s Style) MarshalJSON() ([]byte, error) { return marshalNullable(string(s)) }

func (s *Style) UnmarshalJSON(data []byte) error {
	v, err := unmarshalNullable(data)
	*s = Style(v)
	return err
}

// Zoom is a zoom percentage as a decimal string ("150"). Empty or "0" means inherit/fit.
type Zoom string

// Inherit reports whether the zoom leaves the viewer's zoom unchanged.
func (z Zoom) Inherit() bool {
	return z == "" || z == "0"
}

func (z Zoom) MarshalJSON() ([]byte, error) { return marshalNullable(string(z)) }

func (z *Zoom) UnmarshalJSON(data []byte) error {
	v, err := unmarshalNullable(data)
	*z = Zoom(v)
	return err
}

// Bookmark is a node of the outline tree.
type Bookmark struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Page     int        `json:"page"`
	Children []Bookmark `json:"children"`
	Color    Color      `json:"color"`
	Style    Style      `json:"style"`
	DestX    *float64   `json:"destX"`
	DestY    *float64   `json:"destY"`
	Zoom     Zoom       `json:"zoom"`
}

// HasExplicitDest reports whether both destination coordinates are set.
func (b Bookmark) HasExplicitDest() bool {
	return b.DestX != nil && b.DestY != nil
}

// HasDestination reports whether any destination detail is set.
func (b Bookmark) HasDestination() bool {
	return b.DestX != nil || b.DestY != nil || b.Zoom != ""
}

// Clone returns a deep copy of b.
func (b Bookmark) Clone() Bookmark {
	out := b
	out.DestX = cloneFloat(b.DestX)
	out.DestY = cloneFloat(b.DestY)
	out.Children = make([]Bookmark, len(b.Children))
	for i, child := range b.Children {
		out.Children[i] = child.Clone()
	}
	return out
}

// Destination is an explicit jump target set from the edit dialog.
type Destination struct {
	Page int      `json:"page"`
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	Zoom Zoom     `json:"zoom"`
}

// NewBookmark builds a leaf bookmark with a fresh id.
func NewBookmark(title string, page int) Bookmark {
	return Bookmark{
		ID:       NewNodeID(),
		Title:    title,
		Page:     page,
		Children: []Bookmark{},
	}
}

// ClampPage limits page to [1, pageCount]. A pageCount below 1 only enforces the lower bound.
func ClampPage(page, pageCount int) int {
	if pageCount > 0 && page > pageCount {
		page = pageCount
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func marshalNullable(s string) ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s)
}

func unmarshalNullable(data []byte) (string, error) {
	if string(data) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	return s, nil
}
