package pdfoutline

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const maxNameTreeDepth = 32

// namedDestinations collects name -> destination array from the /Dests name
// tree under /Names and from the older catalog /Dests dictionary.
// Destination dicts are unwrapped to their /D entry.
func namedDestinations(g Graph, catalog types.Dict) (map[string]types.Object, error) {
	out := make(map[string]types.Object)

	names, err := lookupDict(g, catalog, "Names")
	if err != nil {
		return nil, err
	}
	tree, err := lookupDict(g, names, "Dests")
	if err != nil {
		return nil, err
	}
	if tree != nil {
		if err := walkNameTree(g, tree, out, 0); err != nil {
			return nil, err
		}
	}

	legacy, err := lookupDict(g, catalog, "Dests")
	if err != nil {
		return nil, err
	}
	for key, val := range legacy {
		if _, ok := out[key]; ok {
			continue
		}
		dest, err := unwrapDest(g, val)
		if err != nil {
			return nil, fmt.Errorf("dests %q: %w", key, err)
		}
		out[key] = dest
	}
	return out, nil
}

func walkNameTree(g Graph, node types.Dict, out map[string]types.Object, depth int) error {
	if depth > maxNameTreeDepth {
		return fmt.Errorf("name tree deeper than %d", maxNameTreeDepth)
	}
	o, err := lookup(g, node, "Names")
	if err != nil {
		return err
	}
	if pairs, ok := asArray(o); ok {
		for i := 0; i+1 < len(pairs); i += 2 {
			key, err := resolve(g, pairs[i])
			if err != nil {
				return err
			}
			name, ok := decodeText(key)
			if !ok {
				return fmt.Errorf("name tree key %d is %s", i, KindOf(key))
			}
			dest, err := unwrapDest(g, pairs[i+1])
			if err != nil {
				return fmt.Errorf("name %q: %w", name, err)
			}
			out[name] = dest
		}
	}
	o, err = lookup(g, node, "Kids")
	if err != nil {
		return err
	}
	kids, _ := asArray(o)
	for _, kid := range kids {
		k, err := resolve(g, kid)
		if err != nil {
			return err
		}
		if d, ok := asDict(k); ok {
			if err := walkNameTree(g, d, out, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func unwrapDest(g Graph, o types.Object) (types.Object, error) {
	dest, err := resolve(g, o)
	if err != nil {
		return nil, err
	}
	if d, ok := asDict(dest); ok {
		return lookup(g, d, "D")
	}
	return dest, nil
}
