package pdfoutline

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rexliu/pdfmarks/pkg/core"
)

const untitled = "Untitled"

// Import reads the document outline into a tree. A document without
// /Outlines yields an empty tree. Broken named destinations are skipped;
// every other failure is returned.
func Import(g Graph) (core.Tree, error) {
	return newImporter(g, nopLogger{}).run()
}

// Extract is the best-effort form of Import used when a document is opened:
// failures and panics are logged and produce an empty tree.
func Extract(g Graph, log Logger) (tree core.Tree) {
	if log == nil {
		log = nopLogger{}
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("extract outline: panic: %v", r)
			tree = core.Tree{}
		}
	}()
	tree, err := newImporter(g, log).run()
	if err != nil {
		log.Warnf("extract outline: %v", err)
		return core.Tree{}
	}
	return tree
}

type importer struct {
	g         Graph
	log       Logger
	pages     []types.IndirectRef
	pageDicts []types.Dict
	named     map[string]types.Object
	visited   map[uintptr]struct{}
}

func newImporter(g Graph, log Logger) *importer {
	return &importer{g: g, log: log, visited: make(map[uintptr]struct{})}
}

func (im *importer) run() (core.Tree, error) {
	catalog, err := im.g.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	outlines, err := lookupDict(im.g, catalog, "Outlines")
	if err != nil {
		return nil, fmt.Errorf("outlines: %w", err)
	}
	if outlines == nil {
		return core.Tree{}, nil
	}
	if im.pages, err = im.g.Pages(); err != nil {
		return nil, fmt.Errorf("pages: %w", err)
	}
	im.named, err = namedDestinations(im.g, catalog)
	if err != nil {
		im.log.Warnf("named destinations: %v", err)
		im.named = map[string]types.Object{}
	}
	tree, err := im.siblings(outlines)
	if err != nil {
		return nil, err
	}
	return core.Tree(tree), nil
}

// siblings walks parent's /First and then /Next links. /Last and /Prev are
// not consulted. A dict seen before ends the walk, so cyclic lists terminate.
func (im *importer) siblings(parent types.Dict) ([]core.Bookmark, error) {
	out := []core.Bookmark{}
	item, err := lookupDict(im.g, parent, "First")
	for ; err == nil && item != nil; item, err = lookupDict(im.g, item, "Next") {
		if _, seen := im.visited[dictID(item)]; seen {
			im.log.Warnf("outline item revisited; stopping walk")
			break
		}
		im.visited[dictID(item)] = struct{}{}
		node, err := im.item(item)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	if err != nil {
		return nil, fmt.Errorf("outline link: %w", err)
	}
	return out, nil
}

func (im *importer) item(d types.Dict) (core.Bookmark, error) {
	node := core.NewBookmark(untitled, 1)
	if o, err := lookup(im.g, d, "Title"); err == nil && o != nil {
		if title, ok := decodeText(o); ok {
			node.Title = title
		}
	}

	dest, err := im.destination(d)
	if err != nil {
		return core.Bookmark{}, err
	}
	if arr, ok := asArray(dest); ok {
		node.Page = im.pageIndex(arr) + 1
		if err := im.position(arr, &node); err != nil {
			return core.Bookmark{}, err
		}
	}

	if o, err := lookup(im.g, d, "C"); err == nil {
		node.Color = decodeColor(o)
	}
	if o, err := lookup(im.g, d, "F"); err == nil {
		node.Style = decodeStyle(o)
	}

	children, err := im.siblings(d)
	if err != nil {
		return core.Bookmark{}, err
	}
	node.Children = children
	return node, nil
}

// destination returns the resolved destination of an outline item: /Dest,
// else the /D of its /A action, with names looked up in the named map.
func (im *importer) destination(item types.Dict) (types.Object, error) {
	dest, err := lookup(im.g, item, "Dest")
	if err != nil {
		return nil, err
	}
	if dest == nil {
		action, err := lookupDict(im.g, item, "A")
		if err != nil {
			return nil, err
		}
		if dest, err = lookup(im.g, action, "D"); err != nil {
			return nil, err
		}
	}
	if dest == nil {
		return nil, nil
	}
	if _, ok := asArray(dest); ok {
		return dest, nil
	}
	name, ok := decodeText(dest)
	if !ok {
		return nil, nil
	}
	return im.named[name], nil
}

// pageIndex finds the 0-based page a destination points at: by object
// number, then by reference form, then by page dict identity. Unmatched
// destinations land on the first page.
func (im *importer) pageIndex(dest types.Array) int {
	if len(dest) == 0 || dest[0] == nil {
		return 0
	}
	target := dest[0]
	if ref, ok := asRef(target); ok {
		for i, p := range im.pages {
			if p.ObjectNumber == ref.ObjectNumber {
				return i
			}
		}
		for i, p := range im.pages {
			if refString(p) == refString(ref) {
				return i
			}
		}
	}
	resolved, err := resolve(im.g, target)
	if err != nil {
		im.log.Warnf("resolve destination page: %v", err)
		return 0
	}
	dict, ok := asDict(resolved)
	if !ok {
		return 0
	}
	for i, p := range im.pageDictList() {
		if sameDict(p, dict) {
			return i
		}
	}
	return 0
}

func (im *importer) pageDictList() []types.Dict {
	if im.pageDicts != nil {
		return im.pageDicts
	}
	im.pageDicts = make([]types.Dict, len(im.pages))
	for i, p := range im.pages {
		o, err := resolve(im.g, p)
		if err != nil {
			continue
		}
		im.pageDicts[i], _ = asDict(o)
	}
	return im.pageDicts
}

// position reads the operands after the fit name by slot as x, y and zoom,
// whatever the fit type. Non-numeric slots stay null.
func (im *importer) position(dest types.Array, node *core.Bookmark) error {
	if len(dest) < 3 {
		return nil
	}
	var nums [3]*float64
	for i := range nums {
		if len(dest) <= 2+i {
			break
		}
		o, err := resolve(im.g, dest[2+i])
		if err != nil {
			return err
		}
		if v, ok := asNumber(o); ok {
			nums[i] = core.Float(v)
		}
	}
	node.DestX, node.DestY = nums[0], nums[1]
	if nums[2] != nil {
		node.Zoom = core.Zoom(strconv.FormatFloat(math.Round(*nums[2]*100), 'f', -1, 64))
	}
	return nil
}
