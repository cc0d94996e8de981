package codec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rexliu/pdfmarks/pkg/core"
)

const csvHeader = "title,page,level"

var (
	quotedRow   = regexp.MustCompile(`^"(.+)",(\d+),(\d+)$`)
	unquotedRow = regexp.MustCompile(`^([^,]+),(\d+),(\d+)$`)
)

// EncodeCSV writes one row per bookmark in pre-order. Titles are always
// quoted. Lines are joined with "\n" and there is no trailing newline.
func EncodeCSV(tree core.Tree) ([]byte, error) {
	if len(tree) == 0 {
		return nil, ErrEmptyTree
	}
	lines := []string{csvHeader}
	tree.Walk(func(node *core.Bookmark, level int) bool {
		title := strings.ReplaceAll(node.Title, `"`, `""`)
		lines = append(lines, `"`+title+`",`+strconv.Itoa(node.Page)+","+strconv.Itoa(level))
		return true
	})
	return []byte(strings.Join(lines, "\n")), nil
}

// DecodeCSV rebuilds a tree from title,page,level rows. The first line is
// taken as the header. Rows matching neither the quoted nor the unquoted
// shape are skipped. Every node gets a fresh id and no color, style or
// destination.
func DecodeCSV(data []byte) (core.Tree, error) {
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	root := &csvFrame{level: -1}
	stack := []*csvFrame{root}
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		m := quotedRow.FindStringSubmatch(line)
		if m == nil {
			m = unquotedRow.FindStringSubmatch(line)
		}
		if m == nil {
			continue
		}
		page, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		level, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		for stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		frame := &csvFrame{
			node:  core.NewBookmark(strings.ReplaceAll(m[1], `""`, `"`), page),
			level: level,
		}
		parent := stack[len(stack)-1]
		parent.kids = append(parent.kids, frame)
		stack = append(stack, frame)
	}
	return root.build(), nil
}

// csvFrame holds a node while its children are still being collected.
type csvFrame struct {
	node  core.Bookmark
	level int
	kids  []*csvFrame
}

func (f *csvFrame) build() core.Tree {
	out := make(core.Tree, 0, len(f.kids))
	for _, kid := range f.kids {
		node := kid.node
		node.Children = kid.build()
		out = append(out, node)
	}
	return out
}
