package pdfoutline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rexliu/pdfmarks/pkg/core"
)

// PageIndex returns the 0-based page an exported bookmark points at. Nodes
// with an explicit destination use page-2, the rest page-1, both clamped to
// the document.
func PageIndex(b core.Bookmark, pageCount int) int {
	idx := b.Page - 1
	if b.HasExplicitDest() {
		idx = b.Page - 2
	}
	if idx > pageCount-1 {
		idx = pageCount - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Export replaces the catalog /Outlines with a fresh outline tree built from
// tree. Previous outline objects are left unreferenced.
func Export(g Graph, tree core.Tree) error {
	pages, err := g.Pages()
	if err != nil {
		return fmt.Errorf("pages: %w", err)
	}
	if len(tree) > 0 && len(pages) == 0 {
		return ErrNoPages
	}
	catalog, err := g.Catalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	root := types.Dict{}
	rootRef, err := g.Register(root)
	if err != nil {
		return fmt.Errorf("register outlines: %w", err)
	}
	ex := exporter{g: g, pages: pages}
	items, err := ex.items(tree, rootRef)
	if err != nil {
		return err
	}
	root["Type"] = types.Name("Outlines")
	ex.link(root, items)
	catalog["Outlines"] = rootRef
	return nil
}

type exporter struct {
	g     Graph
	pages []types.IndirectRef
}

type outlineItem struct {
	ref  types.IndirectRef
	dict types.Dict
}

// items allocates one dict per node, children before the parent's
// /First, /Last and /Count, and chains siblings with /Prev and /Next.
func (ex exporter) items(nodes []core.Bookmark, parent types.IndirectRef) ([]outlineItem, error) {
	out := make([]outlineItem, 0, len(nodes))
	for i, node := range nodes {
		d := types.Dict{
			"Title":  encodeText(node.Title),
			"Parent": parent,
		}
		ref, err := ex.g.Register(d)
		if err != nil {
			return nil, fmt.Errorf("register outline item %q: %w", node.Title, err)
		}
		d["Dest"] = ex.dest(node)
		if c, ok := encodeColor(node.Color); ok {
			d["C"] = c
		}
		if f := styleFlags(node.Style); f > 0 {
			d["F"] = types.Integer(f)
		}

		children, err := ex.items(node.Children, ref)
		if err != nil {
			return nil, err
		}
		ex.link(d, children)

		if i > 0 {
			d["Prev"] = out[i-1].ref
			out[i-1].dict["Next"] = ref
		}
		out = append(out, outlineItem{ref: ref, dict: d})
	}
	return out, nil
}

// link points parent at its first and last items. /Count is the number of
// direct children.
func (ex exporter) link(parent types.Dict, items []outlineItem) {
	if len(items) == 0 {
		return
	}
	parent["First"] = items[0].ref
	parent["Last"] = items[len(items)-1].ref
	parent["Count"] = types.Integer(len(items))
}

// dest builds [pageRef /XYZ x y zoom], using null for every unset member.
func (ex exporter) dest(node core.Bookmark) types.Array {
	pageRef := ex.pages[PageIndex(node, len(ex.pages))]
	arr := types.Array{pageRef, types.Name("XYZ"), nil, nil, nil}
	if node.DestX != nil {
		arr[2] = types.Float(*node.DestX)
	}
	if node.DestY != nil {
		arr[3] = types.Float(*node.DestY)
	}
	if z, ok := zoomFactor(node.Zoom); ok {
		arr[4] = types.Float(z)
	}
	return arr
}

// zoomFactor turns a percentage string into the XYZ zoom factor. Empty, "0"
// and unparsable values mean inherit.
func zoomFactor(z core.Zoom) (float64, bool) {
	if z.Inherit() {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(z)), 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v / 100, true
}
