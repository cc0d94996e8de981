package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rexliu/pdfmarks/pkg/config"
	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/ipc"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	commands := map[string]func([]string) error{
		"ping":    pingCommand,
		"list":    listCommand,
		"open":    openCommand,
		"close":   closeCommand,
		"tree":    treeCommand,
		"rows":    rowsCommand,
		"add":     addCommand,
		"edit":    editCommand,
		"delete":  deleteCommand,
		"undo":    historyCommand("undo"),
		"redo":    historyCommand("redo"),
		"import":  importCommand,
		"export":  exportCommand,
		"save":    saveCommand,
		"extract": extractCommand,
		"archive": archiveCommand,
		"watch":   watchCommand,
		"diag":    diagCommand,
		"remote":  remoteCommand,
		"vcs":     vcsCommand,
		"inspect": inspectCommand,
		"convert": convertCommand,
		"stamp":   stampCommand,
	}
	switch cmd := os.Args[1]; cmd {
	case "init":
		initProfile()
	case "version":
		fmt.Println("pdfmarks CLI")
	default:
		run, ok := commands[cmd]
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", cmd)
			usage()
			os.Exit(1)
		}
		if err := run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "%s error: %v\n", cmd, err)
			os.Exit(1)
		}
	}
}

func usage() {
	fmt.Println("Usage: pdfmarks <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init      Initialize a local profile (writes config.toml)")
	fmt.Println("  ping      Call the daemon ping endpoint via IPC")
	fmt.Println("  list      List editor sessions")
	fmt.Println("  open      Open a PDF in a new or existing session")
	fmt.Println("  close     Close a session")
	fmt.Println("  tree      Print a session's bookmark tree")
	fmt.Println("  rows      Print the visible rows of a session (--html for markup)")
	fmt.Println("  add       Add a top-level or child bookmark")
	fmt.Println("  edit      Change a bookmark's title, color, style or destination")
	fmt.Println("  delete    Delete a bookmark (--all for every bookmark)")
	fmt.Println("  undo|redo Step through a session's history")
	fmt.Println("  import    Load a CSV or JSON outline into a session")
	fmt.Println("  export    Export a session as csv, json or pdf")
	fmt.Println("  save      Write the bookmarked PDF")
	fmt.Println("  extract   Replace the tree with the PDF's own outline")
	fmt.Println("  archive   Commit a session's JSON export to the archive repo")
	fmt.Println("  watch     Stream tree_changed events from the daemon")
	fmt.Println("  diag      Print profile configuration paths")
	fmt.Println("  remote    Manage Git remote configuration (set/show)")
	fmt.Println("  vcs push|pull    Trigger archive push or pull via the daemon")
	fmt.Println("  inspect   Dump a PDF's outline without the daemon")
	fmt.Println("  convert   Convert an outline between csv and json")
	fmt.Println("  stamp     Write an outline file into a PDF without the daemon")
	fmt.Println("  version   Print CLI version")
}

func initProfile() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	profilePath := fs.String("profile", "./_dev_profile", "Profile directory")
	name := fs.String("name", "dev", "Profile name")
	force := fs.Bool("force", false, "Overwrite existing config if present")
	_ = fs.Parse(os.Args[2:])
	if err := os.MkdirAll(*profilePath, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(*profilePath, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "config already exists at %s (use --force to overwrite)\n", configPath)
		os.Exit(1)
	}
	cfg := config.DefaultProfile(*name)
	if err := config.Save(configPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("initialized profile %s at %s\n", cfg.ProfileName, *profilePath)
}

// target holds the flags shared by every daemon command.
type target struct {
	profile *string
	socket  *string
	session *string
	yes     *bool
}

func newTarget(fs *flag.FlagSet, withSession bool) target {
	t := target{
		profile: fs.String("profile", "./_dev_profile", "Profile directory"),
		socket:  fs.String("socket", "", "Override socket path"),
	}
	if withSession {
		t.session = fs.String("session", "", "Session id")
		t.yes = fs.Bool("yes", false, "Answer yes to confirmations")
	}
	return t
}

// params builds method params carrying the session id and confirmation.
func (t target) params(extra map[string]any) (map[string]any, error) {
	if t.session == nil || *t.session == "" {
		return nil, errors.New("--session is required")
	}
	p := map[string]any{"session": *t.session, "confirm": *t.yes}
	for k, v := range extra {
		p[k] = v
	}
	return p, nil
}

func (t target) call(method string, params any) (*ipc.Response, error) {
	return rpcCall(*t.profile, *t.socket, method, params)
}

// sessionCall sends a per-session method and prints any notices it raised.
func (t target) sessionCall(method string, extra map[string]any) (json.RawMessage, error) {
	p, err := t.params(extra)
	if err != nil {
		return nil, err
	}
	resp, err := t.call(method, p)
	if err != nil {
		return nil, err
	}
	var notices struct {
		Notices []struct {
			Kind    string `json:"kind"`
			Title   string `json:"title"`
			Message string `json:"message"`
		} `json:"notices"`
	}
	json.Unmarshal(resp.Result, &notices)
	for _, n := range notices.Notices {
		fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", n.Kind, n.Title, n.Message)
	}
	return resp.Result, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func pingCommand(args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	t := newTarget(fs, false)
	_ = fs.Parse(args)

	resp, err := t.call("ping", nil)
	if err != nil {
		return err
	}
	var data struct {
		Now int64 `json:"now"`
	}
	if err := json.Unmarshal(resp.Result, &data); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	fmt.Printf("daemon responded: now=%d\n", data.Now)
	return nil
}

func listCommand(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	t := newTarget(fs, false)
	_ = fs.Parse(args)
	resp, err := t.call("list", nil)
	if err != nil {
		return err
	}
	return printJSON(resp.Result)
}

func openCommand(args []string) error {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	t := newTarget(fs, false)
	session := fs.String("session", "", "Existing session id (default: new session)")
	file := fs.String("file", "", "PDF to open")
	_ = fs.Parse(args)

	params := map[string]any{"session": *session}
	if *file != "" {
		abs, err := filepath.Abs(*file)
		if err != nil {
			return err
		}
		params["path"] = abs
	}
	resp, err := t.call("open", params)
	if err != nil {
		return err
	}
	return printJSON(resp.Result)
}

func closeCommand(args []string) error {
	fs := flag.NewFlagSet("close", flag.ExitOnError)
	t := newTarget(fs, true)
	_ = fs.Parse(args)
	_, err := t.sessionCall("close", nil)
	return err
}

func treeCommand(args []string) error {
	fs := flag.NewFlagSet("tree", flag.ExitOnError)
	t := newTarget(fs, true)
	_ = fs.Parse(args)

	raw, err := t.sessionCall("get_tree", nil)
	if err != nil {
		return err
	}
	var payload struct {
		Tree core.Tree `json:"tree"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode tree: %w", err)
	}
	return printJSON(payload.Tree)
}

func rowsCommand(args []string) error {
	fs := flag.NewFlagSet("rows", flag.ExitOnError)
	t := newTarget(fs, true)
	html := fs.Bool("html", false, "Print the rendered list markup instead")
	_ = fs.Parse(args)

	raw, err := t.sessionCall("rows", map[string]any{"html": *html})
	if err != nil {
		return err
	}
	var payload struct {
		Rows []struct {
			Title string `json:"title"`
			Page  int    `json:"page"`
			Level int    `json:"level"`
			ID    string `json:"id"`
		} `json:"rows"`
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	if *html {
		fmt.Println(payload.HTML)
		return nil
	}
	for _, row := range payload.Rows {
		fmt.Printf("%s%s (p. %d) [%s]\n", strings.Repeat("  ", row.Level), row.Title, row.Page, row.ID)
	}
	return nil
}

func addCommand(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	t := newTarget(fs, true)
	title := fs.String("title", "", "Bookmark title")
	parent := fs.String("parent", "", "Parent bookmark id (adds a child)")
	_ = fs.Parse(args)

	op := map[string]any{"op": "add", "title": *title}
	if *parent != "" {
		op["op"] = "child"
		op["parentId"] = *parent
	}
	raw, err := t.sessionCall("apply", op)
	if err != nil {
		return err
	}
	var out struct {
		ID string `json:"id"`
	}
	json.Unmarshal(raw, &out)
	fmt.Println(out.ID)
	return nil
}

func editCommand(args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	t := newTarget(fs, true)
	node := fs.String("node", "", "Bookmark id")
	title := fs.String("title", "", "New title")
	color := fs.String("color", "", `Color name, #rrggbb, or "none"`)
	style := fs.String("style", "", `bold, italic, bold-italic or "normal"`)
	page := fs.Int("page", 0, "Destination page")
	x := fs.Float64("x", -1, "Destination x")
	y := fs.Float64("y", -1, "Destination y")
	zoom := fs.String("zoom", "", "Destination zoom")
	clearDest := fs.Bool("clear-dest", false, "Drop the explicit destination")
	_ = fs.Parse(args)

	patch := map[string]any{}
	if *title != "" {
		patch["title"] = *title
	}
	switch *color {
	case "":
	case "none":
		patch["color"] = ""
	default:
		patch["color"] = *color
	}
	switch *style {
	case "":
	case "normal":
		patch["style"] = ""
	default:
		patch["style"] = *style
	}
	if *page > 0 {
		dest := map[string]any{"page": *page, "zoom": nil, "x": nil, "y": nil}
		if *x >= 0 && *y >= 0 {
			dest["x"], dest["y"] = *x, *y
		}
		if *zoom != "" {
			dest["zoom"] = *zoom
		}
		patch["dest"] = dest
	}
	if *clearDest {
		patch["clearDest"] = true
	}
	_, err := t.sessionCall("apply", map[string]any{"op": "edit", "nodeId": *node, "patch": patch})
	return err
}

func deleteCommand(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	t := newTarget(fs, true)
	node := fs.String("node", "", "Bookmark id")
	all := fs.Bool("all", false, "Delete every bookmark")
	_ = fs.Parse(args)

	op := map[string]any{"op": "delete", "nodeId": *node}
	if *all {
		op = map[string]any{"op": "delete_all"}
	}
	_, err := t.sessionCall("apply", op)
	return err
}

func historyCommand(method string) func([]string) error {
	return func(args []string) error {
		fs := flag.NewFlagSet(method, flag.ExitOnError)
		t := newTarget(fs, true)
		_ = fs.Parse(args)
		raw, err := t.sessionCall(method, nil)
		if err != nil {
			return err
		}
		var out struct {
			Changed bool `json:"changed"`
		}
		json.Unmarshal(raw, &out)
		if !out.Changed {
			fmt.Printf("nothing to %s\n", method)
		}
		return nil
	}
}

func importCommand(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	t := newTarget(fs, true)
	file := fs.String("file", "", "CSV or JSON outline (defaults to stdin)")
	format := fs.String("format", "", "csv or json (default: from file extension)")
	_ = fs.Parse(args)

	data, err := readInput(*file)
	if err != nil {
		return err
	}
	f := *format
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(*file)), ".")
	}
	raw, err := t.sessionCall("import", map[string]any{"format": f, "data": string(data)})
	if err != nil {
		return err
	}
	var out struct {
		Imported int `json:"imported"`
	}
	json.Unmarshal(raw, &out)
	fmt.Printf("imported %d top-level bookmarks\n", out.Imported)
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

type exportResult struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
	Path     string `json:"path"`
}

func writeExport(raw json.RawMessage, out string) error {
	var res exportResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("decode export: %w", err)
	}
	if res.Path != "" && out == "" {
		fmt.Printf("wrote %s\n", res.Path)
		return nil
	}
	if out == "" {
		out = res.Filename
	}
	if out == "-" {
		_, err := os.Stdout.Write(res.Data)
		return err
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func exportCommand(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	t := newTarget(fs, true)
	format := fs.String("format", "json", "csv, json or pdf")
	out := fs.String("out", "", "Output path (default: download name; - for stdout)")
	write := fs.Bool("write", false, "Store the file in the profile export directory instead")
	_ = fs.Parse(args)

	raw, err := t.sessionCall("export", map[string]any{"format": *format, "write": *write})
	if err != nil {
		return err
	}
	return writeExport(raw, *out)
}

func saveCommand(args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	t := newTarget(fs, true)
	out := fs.String("out", "", "Output path (default: <name>-bookmarked.pdf)")
	_ = fs.Parse(args)

	raw, err := t.sessionCall("save", nil)
	if err != nil {
		return err
	}
	return writeExport(raw, *out)
}

func extractCommand(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	t := newTarget(fs, true)
	_ = fs.Parse(args)
	_, err := t.sessionCall("extract", nil)
	return err
}

func archiveCommand(args []string) error {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	t := newTarget(fs, true)
	_ = fs.Parse(args)
	raw, err := t.sessionCall("archive", nil)
	if err != nil {
		return err
	}
	return printJSON(raw)
}

func watchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	t := newTarget(fs, false)
	session := fs.String("session", "", "Only events of this session")
	_ = fs.Parse(args)

	socketPath, err := resolveSocketPath(*t.profile, *t.socket)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	client, err := ipc.Dial(ctx, socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	fmt.Println("Subscribed to tree_changed events (Ctrl+C to exit)")
	err = client.Subscribe(ctx, "subscribe_events", map[string]any{"session": *session}, func(ev json.RawMessage) bool {
		fmt.Println(string(ev))
		return true
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func diagCommand(args []string) error {
	fs := flag.NewFlagSet("diag", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	_ = fs.Parse(args)
	cfg, err := config.LoadProfile(*profile)
	if err != nil {
		return err
	}
	fmt.Printf("Profile: %s\n", cfg.ProfileName)
	fmt.Printf("DB Path: %s\n", config.ResolvePath(*profile, cfg.Storage.DBPath))
	fmt.Printf("Socket: %s\n", config.ResolvePath(*profile, cfg.IPC.SocketPath))
	if cfg.HTTP.Addr != "" {
		fmt.Printf("HTTP: %s (max upload %d MB)\n", cfg.HTTP.Addr, cfg.HTTP.MaxUploadMB)
	}
	if cfg.Logging.FilePath != "" {
		fmt.Printf("Log File: %s\n", config.ResolvePath(*profile, cfg.Logging.FilePath))
	}
	if cfg.Editor.ExportDir != "" {
		fmt.Printf("Export Dir: %s\n", config.ResolvePath(*profile, cfg.Editor.ExportDir))
	}
	fmt.Printf("Auto Extract: %t, Preview Scale: %g\n", cfg.Editor.AutoExtract, cfg.Editor.PreviewScale)
	fmt.Printf("VCS Branch: %s (enabled=%t)\n", cfg.VCS.Branch, cfg.VCS.Enabled)
	if cfg.VCS.Enabled {
		fmt.Printf("Archive Repo: %s\n", config.ResolvePath(*profile, cfg.VCS.RepoPath))
	}
	if cfg.VCS.Remote.URL != "" {
		fmt.Printf("Remote URL: %s\n", cfg.VCS.Remote.URL)
	}
	return nil
}

func remoteCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: pdfmarks remote <set|show> [options]")
	}
	sub := args[0]
	switch sub {
	case "set":
		fs := flag.NewFlagSet("remote set", flag.ExitOnError)
		profile := fs.String("profile", "./_dev_profile", "Profile directory")
		url := fs.String("url", "", "Remote Git URL")
		cred := fs.String("credential", "", "Credential reference, e.g. env:PDFMARKS_TOKEN (optional)")
		_ = fs.Parse(args[1:])
		if *url == "" {
			return fmt.Errorf("--url is required")
		}
		cfg, err := config.LoadProfile(*profile)
		if err != nil {
			return err
		}
		cfg.VCS.Remote.URL = *url
		cfg.VCS.Remote.CredentialRef = *cred
		cfg.VCS.Enabled = true
		if err := config.Save(filepath.Join(*profile, "config.toml"), cfg); err != nil {
			return err
		}
		fmt.Printf("remote set to %s\n", *url)
		return nil
	case "show":
		fs := flag.NewFlagSet("remote show", flag.ExitOnError)
		profile := fs.String("profile", "./_dev_profile", "Profile directory")
		_ = fs.Parse(args[1:])
		cfg, err := config.LoadProfile(*profile)
		if err != nil {
			return err
		}
		if cfg.VCS.Remote.URL == "" {
			fmt.Println("remote not configured")
		} else {
			fmt.Printf("remote URL: %s\n", cfg.VCS.Remote.URL)
			if cfg.VCS.Remote.CredentialRef != "" {
				fmt.Printf("credential ref: %s\n", cfg.VCS.Remote.CredentialRef)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown remote subcommand %q", sub)
	}
}

func vcsCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: pdfmarks vcs <push|pull> [options]")
	}
	sub := args[0]
	fs := flag.NewFlagSet("vcs", flag.ExitOnError)
	t := newTarget(fs, false)
	_ = fs.Parse(args[1:])

	var method string
	switch sub {
	case "push":
		method = "vcs_push"
	case "pull":
		method = "vcs_pull"
	default:
		return fmt.Errorf("unknown vcs subcommand %q", sub)
	}
	resp, err := t.call(method, nil)
	if err != nil {
		return err
	}
	return printJSON(resp.Result)
}

func rpcCall(profile, socketOverride, method string, params any) (*ipc.Response, error) {
	socketPath, err := resolveSocketPath(profile, socketOverride)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := ipc.Dial(ctx, socketPath)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	resp, err := client.Do(ctx, method, params)
	var rpcErr *ipc.Error
	if errors.As(err, &rpcErr) {
		return nil, fmt.Errorf("daemon error: %s (%s)", rpcErr.Message, rpcErr.Code)
	}
	return resp, err
}

func resolveSocketPath(profile, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := config.LoadProfile(profile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config not found in %s (run 'pdfmarks init --profile %s')", profile, profile)
		}
		return "", fmt.Errorf("load config: %w", err)
	}
	return config.ResolvePath(profile, cfg.IPC.SocketPath), nil
}
