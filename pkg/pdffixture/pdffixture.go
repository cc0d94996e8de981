// Package pdffixture builds small PDFs with native outlines for tests.
package pdffixture

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
)

// Mark is an outline entry placed on a 1-based page at a nesting level.
type Mark struct {
	Title string
	Page  int
	Level int
}

// Build returns an A4 PDF with pages pages, each labeled with its number,
// and an outline with one entry per mark. Marks must be ordered by page.
func Build(pages int, marks ...Mark) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	next := 0
	for p := 1; p <= pages; p++ {
		pdf.AddPage()
		pdf.Cell(200, 20, fmt.Sprintf("Page %d", p))
		for next < len(marks) && marks[next].Page == p {
			pdf.Bookmark(marks[next].Title, marks[next].Level, -1)
			next++
		}
	}
	if next != len(marks) {
		return nil, fmt.Errorf("mark %q: page %d not in 1..%d or out of order", marks[next].Title, marks[next].Page, pages)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Plain returns a PDF without an outline.
func Plain(pages int) ([]byte, error) {
	return Build(pages)
}
