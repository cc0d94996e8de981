// Package pdfoutline translates between outline trees and the linked
// /Outlines object graph of a PDF document.
package pdfoutline

import (
	"errors"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var (
	// ErrNoPages indicates an export into a document without pages.
	ErrNoPages = errors.New("document has no pages")
	// ErrRefDepth indicates a chain of references that never reaches an object.
	ErrRefDepth = errors.New("reference chain too deep")
)

// Graph is the slice of a PDF object model the outline code needs.
type Graph interface {
	// Catalog returns the document catalog. Edits to the returned dict are
	// kept in the document.
	Catalog() (types.Dict, error)
	// Resolve looks up the object behind an indirect reference. Other
	// objects are returned unchanged.
	Resolve(o types.Object) (types.Object, error)
	// Register stores o as a new indirect object.
	Register(o types.Object) (types.IndirectRef, error)
	// Pages returns page object references in document order.
	Pages() ([]types.IndirectRef, error)
}

// Logger receives advisory failures.
type Logger interface {
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

const maxRefDepth = 32

// resolve follows references until a direct object is reached.
func resolve(g Graph, o types.Object) (types.Object, error) {
	for i := 0; i < maxRefDepth; i++ {
		if _, ok := asRef(o); !ok {
			return o, nil
		}
		next, err := g.Resolve(o)
		if err != nil {
			return nil, err
		}
		o = next
	}
	return nil, ErrRefDepth
}

// lookup returns the resolved value of key in d, or nil when absent.
func lookup(g Graph, d types.Dict, key string) (types.Object, error) {
	if d == nil {
		return nil, nil
	}
	o, ok := d[key]
	if !ok || o == nil {
		return nil, nil
	}
	return resolve(g, o)
}

// lookupDict is lookup for dict-valued entries. A missing or non-dict value
// yields nil.
func lookupDict(g Graph, d types.Dict, key string) (types.Dict, error) {
	o, err := lookup(g, d, key)
	if err != nil {
		return nil, err
	}
	dict, _ := asDict(o)
	return dict, nil
}
