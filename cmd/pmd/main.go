package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rexliu/pdfmarks/pkg/config"
	"github.com/rexliu/pdfmarks/pkg/httpapi"
	"github.com/rexliu/pdfmarks/pkg/ipc"
	"github.com/rexliu/pdfmarks/pkg/logging"
	"github.com/rexliu/pdfmarks/pkg/session"
	"github.com/rexliu/pdfmarks/pkg/storage/sqlite"
	gitvcs "github.com/rexliu/pdfmarks/pkg/vcs/git"
	"github.com/rexliu/pdfmarks/pkg/workspace"
)

func main() {
	profile := flag.String("profile", "./_dev_profile", "Path to profile directory")
	socket := flag.String("socket", "", "Override IPC socket path (optional)")
	httpAddr := flag.String("http", "", "Override HTTP listen address (optional)")
	flag.Parse()

	logger := logging.New("pmd")
	logger.Infof("starting daemon with profile %s", *profile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *profile, *socket, *httpAddr, logger); err != nil {
		logger.Errorf("fatal error: %v", err)
		os.Exit(1)
	}
}

type daemon struct {
	ws        *workspace.Workspace
	logger    *logging.Logger
	events    *eventHub
	exportDir string
}

func loadConfig(profileDir string, logger *logging.Logger) (*config.ProfileConfig, error) {
	cfg, err := config.LoadProfile(profileDir)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warnf("no config in %s; using defaults", profileDir)
		return config.DefaultProfile("default"), nil
	}
	return cfg, err
}

func run(ctx context.Context, profileDir, socketOverride, httpOverride string, logger *logging.Logger) error {
	if err := os.MkdirAll(profileDir, 0o700); err != nil {
		return err
	}
	cfg, err := loadConfig(profileDir, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logCfg := cfg.Logging
	logCfg.FilePath = config.ResolvePath(profileDir, logCfg.FilePath)
	if err := logger.Configure(logCfg); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	store, err := sqlite.Open(config.ResolvePath(profileDir, cfg.Storage.DBPath))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer store.Close()
	if err := store.Init(ctx, sqlite.Tuning{JournalMode: cfg.Storage.JournalMode, Synchronous: cfg.Storage.Synchronous}); err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}

	var repo gitvcs.Repo
	if cfg.VCS.Enabled {
		r := gitvcs.New(gitvcs.Options{
			Path:      config.ResolvePath(profileDir, cfg.VCS.RepoPath),
			Branch:    cfg.VCS.Branch,
			RemoteURL: cfg.VCS.Remote.URL,
			Token:     credential(cfg.VCS.Remote.CredentialRef),
		})
		if err := r.Init(ctx); err != nil {
			logger.Warnf("git repo unavailable: %v", err)
		} else {
			repo = r
		}
	}

	d := &daemon{
		logger:    logger,
		events:    newEventHub(logger),
		exportDir: config.ResolvePath(profileDir, cfg.Editor.ExportDir),
	}
	d.ws = workspace.New(workspace.Config{
		Store:    store,
		Repo:     repo,
		AutoPush: cfg.VCS.AutoPush,
		Logger:   logger,
		OnChange: d.sessionChanged,
		Session: session.Options{
			AutoExtract:   cfg.Editor.AutoExtract,
			PreviewScale:  cfg.Editor.PreviewScale,
			PickExitDelay: cfg.Editor.PickExitDelay.Duration,
			Logger:        logger,
		},
	})
	defer d.ws.Shutdown()
	if _, err := d.ws.Restore(ctx); err != nil {
		logger.Warnf("restore sessions: %v", err)
	}

	socketPath := socketOverride
	if socketPath == "" {
		socketPath = config.ResolvePath(profileDir, cfg.IPC.SocketPath)
	}
	srv := ipc.NewServer(logger, cfg.IPC.MaxFrameSize)
	d.registerHandlers(srv)
	if err := srv.Start(ctx, socketPath); err != nil {
		return fmt.Errorf("start ipc: %w", err)
	}
	defer func() {
		srv.Stop()
		srv.Wait()
	}()
	logger.Infof("daemon ready; socket at %s", socketPath)

	addr := httpOverride
	if addr == "" {
		addr = cfg.HTTP.Addr
	}
	if addr != "" {
		httpSrv := &http.Server{
			Addr:              addr,
			Handler:           httpapi.New(d.ws, logger, cfg.HTTP.MaxUploadMB).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.HTTP.ReadTimeout.Duration,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("http server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
		}()
		logger.Infof("http api listening on %s", addr)
	}

	<-ctx.Done()
	logger.Infof("shutting down")
	return nil
}

// credential resolves a credentialRef of the form "env:NAME". Anything else
// is used as given.
func credential(ref string) string {
	if name, ok := strings.CutPrefix(ref, "env:"); ok {
		return os.Getenv(name)
	}
	return ref
}

func pingHandler(logger *logging.Logger) ipc.HandlerFunc {
	return func(ctx context.Context, params json.RawMessage) (any, *ipc.Error) {
		now := time.Now().UnixMilli()
		logger.Debugf("received ping at %d", now)
		return map[string]any{"now": now}, nil
	}
}
