package codec

import (
	"encoding/json"
	"fmt"

	"github.com/rexliu/pdfmarks/pkg/core"
)

// EncodeJSON pretty-prints the tree with two-space indentation.
func EncodeJSON(tree core.Tree) ([]byte, error) {
	if len(tree) == 0 {
		return nil, ErrEmptyTree
	}
	return json.MarshalIndent(tree, "", "  ")
}

// jsonBookmark accepts any id shape. Files written by older tools carry
// numeric ids, which are replaced.
type jsonBookmark struct {
	ID       json.RawMessage `json:"id"`
	Title    string          `json:"title"`
	Page     int             `json:"page"`
	Children []jsonBookmark  `json:"children"`
	Color    core.Color      `json:"color"`
	Style    core.Style      `json:"style"`
	DestX    *float64        `json:"destX"`
	DestY    *float64        `json:"destY"`
	Zoom     core.Zoom       `json:"zoom"`
}

func (b jsonBookmark) toCore() core.Bookmark {
	var id string
	if len(b.ID) > 0 && b.ID[0] == '"' {
		if err := json.Unmarshal(b.ID, &id); err != nil {
			// EnsureIDs assigns a fresh id.
			id = ""
		}
	}
	out := core.Bookmark{
		ID:       id,
		Title:    b.Title,
		Page:     b.Page,
		Children: make([]core.Bookmark, 0, len(b.Children)),
		Color:    b.Color,
		Style:    b.Style,
		DestX:    b.DestX,
		DestY:    b.DestY,
		Zoom:     b.Zoom,
	}
	for _, child := range b.Children {
		out.Children = append(out.Children, child.toCore())
	}
	return out
}

// DecodeJSON parses a bookmark array. Missing, non-string or duplicate ids
// are replaced with fresh ones.
func DecodeJSON(data []byte) (core.Tree, error) {
	var raw []jsonBookmark
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: json: %w", ErrMalformed, err)
	}
	tree := make(core.Tree, 0, len(raw))
	for _, b := range raw {
		tree = append(tree, b.toCore())
	}
	core.EnsureIDs(tree)
	return tree, nil
}
