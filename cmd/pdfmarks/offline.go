package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/rexliu/pdfmarks/pkg/codec"
	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/pdfoutline"
)

// inspectCommand dumps a PDF's outline without going through the daemon.
func inspectCommand(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	file := fs.String("file", "", "PDF to inspect")
	raw := fs.Bool("raw", false, "Dump raw outline item dictionaries")
	_ = fs.Parse(args)
	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	doc, err := pdfoutline.Open(data)
	if err != nil {
		return err
	}
	fmt.Printf("Pages: %d\n", doc.PageCount())

	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	if *raw {
		items, err := pdfoutline.Describe(doc)
		if err != nil {
			return err
		}
		cfg.Dump(items)
		return nil
	}
	tree, err := pdfoutline.Import(doc)
	if err != nil {
		return err
	}
	fmt.Printf("Bookmarks: %d\n", tree.Len())
	cfg.Dump(tree)
	return nil
}

func decodeOutline(path string, data []byte) (core.Tree, error) {
	f, err := codec.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, err
	}
	switch f {
	case codec.FormatCSV:
		return codec.DecodeCSV(data)
	case codec.FormatJSON:
		return codec.DecodeJSON(data)
	}
	return nil, fmt.Errorf("%s: not an outline file", path)
}

// convertCommand rewrites an outline file between csv and json.
func convertCommand(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	in := fs.String("in", "", "Input outline (.csv or .json)")
	out := fs.String("out", "", "Output outline (.csv or .json)")
	_ = fs.Parse(args)
	if *in == "" || *out == "" {
		return fmt.Errorf("--in and --out are required")
	}
	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	tree, err := decodeOutline(*in, data)
	if err != nil {
		return err
	}
	var encoded []byte
	switch strings.ToLower(filepath.Ext(*out)) {
	case ".csv":
		encoded, err = codec.EncodeCSV(tree)
	case ".json":
		encoded, err = codec.EncodeJSON(tree)
	default:
		return fmt.Errorf("%s: output must be .csv or .json", *out)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, encoded, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %d bookmarks to %s\n", tree.Len(), *out)
	return nil
}

// stampCommand writes an outline file into a PDF without going through the
// daemon.
func stampCommand(args []string) error {
	fs := flag.NewFlagSet("stamp", flag.ExitOnError)
	pdf := fs.String("pdf", "", "Source PDF")
	outline := fs.String("outline", "", "Outline to install (.csv or .json)")
	out := fs.String("out", "", "Output path (default: <name>-bookmarked.pdf)")
	_ = fs.Parse(args)
	if *pdf == "" || *outline == "" {
		return fmt.Errorf("--pdf and --outline are required")
	}
	src, err := os.ReadFile(*pdf)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(*outline)
	if err != nil {
		return err
	}
	tree, err := decodeOutline(*outline, data)
	if err != nil {
		return err
	}
	if tree.Len() == 0 {
		return codec.ErrEmptyTree
	}
	result, err := pdfoutline.Rewrite(src, tree)
	if err != nil {
		return err
	}
	dest := *out
	if dest == "" {
		dest = filepath.Join(filepath.Dir(*pdf), codec.Filename(codec.BaseName(filepath.Base(*pdf)), codec.FormatPDF))
	}
	if err := os.WriteFile(dest, result, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", dest)
	return nil
}
