package pdfoutline

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ItemInfo is a raw view of one outline item, for debugging dumps.
type ItemInfo struct {
	Depth   int
	Ref     string
	Entries map[string]any
}

// Describe lists every outline item in pre-order with its entries turned
// into plain Go values. References are shown as "N G R" and not followed.
func Describe(g Graph) ([]ItemInfo, error) {
	catalog, err := g.Catalog()
	if err != nil {
		return nil, err
	}
	outlines, err := lookupDict(g, catalog, "Outlines")
	if err != nil || outlines == nil {
		return nil, err
	}
	var out []ItemInfo
	seen := make(map[uintptr]struct{})
	var walk func(parent types.Dict, depth int) error
	walk = func(parent types.Dict, depth int) error {
		link := parent["First"]
		for link != nil {
			o, err := resolve(g, link)
			if err != nil {
				return err
			}
			item, ok := asDict(o)
			if !ok {
				return fmt.Errorf("outline link is %s, not dict", KindOf(o))
			}
			if _, dup := seen[dictID(item)]; dup {
				return nil
			}
			seen[dictID(item)] = struct{}{}
			info := ItemInfo{Depth: depth, Entries: make(map[string]any, len(item))}
			if ref, ok := asRef(link); ok {
				info.Ref = refString(ref)
			}
			for k, v := range item {
				info.Entries[k] = Plain(v)
			}
			out = append(out, info)
			if err := walk(item, depth+1); err != nil {
				return err
			}
			link = item["Next"]
		}
		return nil
	}
	if err := walk(outlines, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// Plain converts o into nil, bool, float64, string, []any or map[string]any.
func Plain(o types.Object) any {
	var p plainVisitor
	Visit(o, &p)
	return p.out
}

type plainVisitor struct {
	out any
}

func (p *plainVisitor) Null()            { p.out = nil }
func (p *plainVisitor) Bool(v bool)      { p.out = v }
func (p *plainVisitor) Number(v float64) { p.out = v }
func (p *plainVisitor) Name(v string)    { p.out = "/" + v }

func (p *plainVisitor) String(v string, ok bool) {
	if !ok {
		p.out = "<undecodable string>"
		return
	}
	p.out = v
}

func (p *plainVisitor) Array(v types.Array) {
	items := make([]any, len(v))
	for i, o := range v {
		items[i] = Plain(o)
	}
	p.out = items
}

func (p *plainVisitor) Dict(v types.Dict) {
	m := make(map[string]any, len(v))
	for k, o := range v {
		m[k] = Plain(o)
	}
	p.out = m
}

func (p *plainVisitor) Ref(v types.IndirectRef)   { p.out = refString(v) }
func (p *plainVisitor) Stream(v types.StreamDict) { p.out = "<stream>" }
func (p *plainVisitor) Other(v types.Object)      { p.out = v.String() }
