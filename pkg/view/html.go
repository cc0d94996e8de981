package view

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rexliu/pdfmarks/pkg/core"
)

var titlePolicy = bluemonday.StrictPolicy()

// HTML renders the visible rows as nested lists. Every list carries its drop
// group in data-group and every item its bookmark id.
func HTML(tree core.Tree, s *State) string {
	var b strings.Builder
	rows := Rows(tree, s)
	if len(rows) == 0 {
		return `<p class="no-bookmarks">No bookmarks yet.</p>`
	}
	writeList(&b, rows, 0, TopLevelGroup, s)
	return b.String()
}

// writeList writes the rows of one list starting at rows[start] and returns
// the index of the first row that does not belong to it.
func writeList(b *strings.Builder, rows []Row, start int, group string, s *State) int {
	level := rows[start].Level
	fmt.Fprintf(b, `<ul class="bookmark-list" data-group="%s">`, html.EscapeString(group))
	i := start
	for i < len(rows) && rows[i].Level == level {
		row := rows[i]
		writeRow(b, row, s)
		i++
		if i < len(rows) && rows[i].Level > level {
			i = writeList(b, rows, i, NestedGroup(row.ID), s)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
	return i
}

func writeRow(b *strings.Builder, row Row, s *State) {
	classes := []string{"bookmark-row"}
	if row.Color != core.ColorNone && !row.Color.IsCustom() {
		classes = append(classes, "color-"+string(row.Color))
	}
	if row.Style != core.StyleNormal {
		classes = append(classes, "style-"+string(row.Style))
	}
	if row.Selected {
		classes = append(classes, "selected")
	}
	if row.Match {
		classes = append(classes, "match")
	}
	fmt.Fprintf(b, `<li data-bookmark-id="%s"><div class="%s">`, html.EscapeString(row.ID), strings.Join(classes, " "))
	if row.HasChildren {
		state := "expanded"
		if row.Collapsed {
			state = "collapsed"
		}
		fmt.Fprintf(b, `<button class="toggle" data-action="toggle" aria-label="%s"></button>`, state)
	}
	if s.BatchMode {
		checked := ""
		if row.Selected {
			checked = " checked"
		}
		fmt.Fprintf(b, `<input type="checkbox" data-action="select"%s>`, checked)
	}
	b.WriteString(`<span class="drag-handle" data-drag-handle></span>`)
	style := ""
	if row.Color.IsCustom() {
		style = fmt.Sprintf(` style="color: %s"`, html.EscapeString(string(row.Color)))
	}
	fmt.Fprintf(b, `<span class="title" data-action="goto" data-page="%d"%s>%s`, row.Page, style, titlePolicy.Sanitize(row.Title))
	if row.HasDestination {
		b.WriteString(`<span class="destination" title="Custom destination"></span>`)
	}
	fmt.Fprintf(b, `</span><span class="page">Page %d</span>`, row.Page)
	b.WriteString(`<button data-action="add-child">+</button><button data-action="edit">Edit</button><button data-action="delete">Delete</button></div>`)
}
