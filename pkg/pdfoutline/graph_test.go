package pdfoutline

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// memGraph is an in-memory Graph for building outline fixtures by hand.
type memGraph struct {
	objs    map[int]types.Object
	next    int
	catalog types.Dict
	pages   []types.IndirectRef
	failOn  int
}

func newMemGraph(pageCount int) *memGraph {
	g := &memGraph{objs: make(map[int]types.Object), next: 1}
	for i := 0; i < pageCount; i++ {
		ref, _ := g.Register(types.Dict{"Type": types.Name("Page")})
		g.pages = append(g.pages, ref)
	}
	g.catalog = types.Dict{"Type": types.Name("Catalog")}
	return g
}

func (g *memGraph) Catalog() (types.Dict, error) { return g.catalog, nil }

func (g *memGraph) Resolve(o types.Object) (types.Object, error) {
	ref, ok := asRef(o)
	if !ok {
		return o, nil
	}
	nr := int(ref.ObjectNumber)
	if g.failOn != 0 && nr == g.failOn {
		return nil, fmt.Errorf("object %d is corrupt", nr)
	}
	obj, ok := g.objs[nr]
	if !ok {
		return nil, fmt.Errorf("object %d not found", nr)
	}
	return obj, nil
}

func (g *memGraph) Register(o types.Object) (types.IndirectRef, error) {
	nr := g.next
	g.next++
	g.objs[nr] = o
	return types.IndirectRef{ObjectNumber: types.Integer(nr)}, nil
}

func (g *memGraph) Pages() ([]types.IndirectRef, error) { return g.pages, nil }

func (g *memGraph) dict(o types.Object) types.Dict {
	r, err := g.Resolve(o)
	if err != nil {
		panic(err)
	}
	d, _ := asDict(r)
	return d
}

// addOutline links items under a fresh /Outlines root on the catalog.
func (g *memGraph) addOutline(items ...types.Dict) types.Dict {
	root := types.Dict{"Type": types.Name("Outlines")}
	rootRef, _ := g.Register(root)
	g.catalog["Outlines"] = rootRef
	g.chain(root, rootRef, items...)
	return root
}

// chain registers items as the children of parent, linked with /Next.
func (g *memGraph) chain(parent types.Dict, parentRef types.IndirectRef, items ...types.Dict) {
	var prev types.Dict
	for _, it := range items {
		ref, _ := g.Register(it)
		it["Parent"] = parentRef
		if prev == nil {
			parent["First"] = ref
		} else {
			prev["Next"] = ref
		}
		parent["Last"] = ref
		prev = it
	}
}

func (g *memGraph) refOf(d types.Dict) types.IndirectRef {
	for nr, o := range g.objs {
		if od, ok := o.(types.Dict); ok && sameDict(od, d) {
			return types.IndirectRef{ObjectNumber: types.Integer(nr)}
		}
	}
	panic("dict not registered")
}

type recordLogger struct {
	lines []string
}

func (l *recordLogger) Warnf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
