package pdfoutline

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rexliu/pdfmarks/pkg/core"
)

// ErrUnreadable is returned by Open for data pdfcpu cannot parse.
var ErrUnreadable = errors.New("unreadable pdf")

// Document is a Graph backed by a pdfcpu context.
type Document struct {
	ctx *model.Context
}

// Open parses and validates a PDF held in memory.
func Open(data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return &Document{ctx: ctx}, nil
}

func (d *Document) Catalog() (types.Dict, error) {
	return d.ctx.Catalog()
}

func (d *Document) Resolve(o types.Object) (types.Object, error) {
	if ref, ok := asRef(o); ok {
		return d.ctx.Dereference(ref)
	}
	return o, nil
}

func (d *Document) Register(o types.Object) (types.IndirectRef, error) {
	ref, err := d.ctx.IndRefForNewObject(o)
	if err != nil {
		return types.IndirectRef{}, err
	}
	return *ref, nil
}

func (d *Document) Pages() ([]types.IndirectRef, error) {
	refs := make([]types.IndirectRef, 0, d.ctx.PageCount)
	for nr := 1; nr <= d.ctx.PageCount; nr++ {
		_, ref, _, err := d.ctx.PageDict(nr, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", nr, err)
		}
		if ref == nil {
			return nil, fmt.Errorf("page %d: no object reference", nr)
		}
		refs = append(refs, *ref)
	}
	return refs, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// PageSize returns the width and height in points of the 1-based page nr.
func (d *Document) PageSize(nr int) (width, height float64, err error) {
	dims, err := d.ctx.PageDims()
	if err != nil {
		return 0, 0, err
	}
	if nr < 1 || nr > len(dims) {
		return 0, 0, fmt.Errorf("page %d out of range 1..%d", nr, len(dims))
	}
	return dims[nr-1].Width, dims[nr-1].Height, nil
}

// Write serializes the document.
func (d *Document) Write(w io.Writer) error {
	return api.WriteContext(d.ctx, w)
}

// Bytes serializes the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Rewrite loads a fresh copy of pdf, installs tree as its outline and
// returns the new file. pdf itself is never modified, so a failed call can
// simply be retried.
func Rewrite(pdf []byte, tree core.Tree) ([]byte, error) {
	doc, err := Open(pdf)
	if err != nil {
		return nil, err
	}
	if err := Export(doc, tree); err != nil {
		return nil, fmt.Errorf("export outline: %w", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return out, nil
}
