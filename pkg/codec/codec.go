// Package codec converts outline trees to and from the CSV and JSON
// exchange formats.
package codec

import (
	"errors"
	"strings"
)

// ErrEmptyTree is returned when exporting a tree with no bookmarks.
var ErrEmptyTree = errors.New("no bookmarks to export")

// ErrMalformed is returned for an import that cannot be parsed.
var ErrMalformed = errors.New("malformed bookmarks")

// Format names an exchange format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "csv", "json" or "pdf" in any case.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatCSV, FormatJSON, FormatPDF:
		return f, nil
	}
	return "", errors.New("unknown format: " + raw)
}

// BaseName strips the first ".pdf" from an uploaded file name.
func BaseName(uploaded string) string {
	return strings.Replace(uploaded, ".pdf", "", 1)
}

// Filename returns the download name for an export of the given document.
func Filename(base string, f Format) string {
	switch f {
	case FormatCSV:
		return base + "-bookmarks.csv"
	case FormatJSON:
		return base + "-bookmarks.json"
	default:
		return base + "-bookmarked.pdf"
	}
}

// ContentType returns the MIME type served for f.
func ContentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	default:
		return "application/pdf"
	}
}
