package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// IPCConfig defines socket settings.
type IPCConfig struct {
	SocketPath   string `toml:"socketPath" yaml:"socketPath"`
	MaxFrameSize int    `toml:"maxFrameSize" yaml:"maxFrameSize"`
}

// HTTPConfig defines the optional HTTP API listener. An empty Addr disables it.
type HTTPConfig struct {
	Addr        string   `toml:"addr" yaml:"addr"`
	MaxUploadMB int      `toml:"maxUploadMB" yaml:"maxUploadMB"`
	ReadTimeout Duration `toml:"readTimeout" yaml:"readTimeout"`
}

// StorageConfig defines SQLite tuning options.
type StorageConfig struct {
	DBPath      string `toml:"dbPath" yaml:"dbPath"`
	JournalMode string `toml:"journalMode" yaml:"journalMode"`
	Synchronous string `toml:"synchronous" yaml:"synchronous"`
}

// VCSRemote config.
type VCSRemote struct {
	URL           string `toml:"url" yaml:"url"`
	CredentialRef string `toml:"credentialRef" yaml:"credentialRef"`
}

// VCSConfig defines Git options for archiving exports.
type VCSConfig struct {
	Enabled  bool      `toml:"enabled" yaml:"enabled"`
	RepoPath string    `toml:"repoPath" yaml:"repoPath"`
	Branch   string    `toml:"branch" yaml:"branch"`
	AutoPush bool      `toml:"autoPush" yaml:"autoPush"`
	Remote   VCSRemote `toml:"remote" yaml:"remote"`
}

// LoggingConfig defines basic logging knobs.
type LoggingConfig struct {
	Level       string `toml:"level" yaml:"level"`
	FilePath    string `toml:"filePath" yaml:"filePath"`
	FileMaxSize int    `toml:"fileMaxSizeMB" yaml:"fileMaxSizeMB"`
	FileBackups int    `toml:"fileMaxBackups" yaml:"fileMaxBackups"`
}

// EditorConfig holds editor session behavior.
type EditorConfig struct {
	PreviewScale  float64  `toml:"previewScale" yaml:"previewScale"`
	PickExitDelay Duration `toml:"pickExitDelay" yaml:"pickExitDelay"`
	AutoExtract   bool     `toml:"autoExtract" yaml:"autoExtract"`
	ExportDir     string   `toml:"exportDir" yaml:"exportDir"`
}

// ProfileConfig aggregates service configuration for a profile.
type ProfileConfig struct {
	ProfileName string        `toml:"profileName" yaml:"profileName"`
	Storage     StorageConfig `toml:"storage" yaml:"storage"`
	VCS         VCSConfig     `toml:"vcs" yaml:"vcs"`
	IPC         IPCConfig     `toml:"ipc" yaml:"ipc"`
	HTTP        HTTPConfig    `toml:"http" yaml:"http"`
	Logging     LoggingConfig `toml:"logging" yaml:"logging"`
	Editor      EditorConfig  `toml:"editor" yaml:"editor"`
}

// Duration is a time.Duration written as a string such as "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// DefaultProfile returns a profile with every path relative to the profile directory.
func DefaultProfile(name string) *ProfileConfig {
	return &ProfileConfig{
		ProfileName: name,
		Storage: StorageConfig{
			DBPath:      "state.db",
			JournalMode: "WAL",
			Synchronous: "NORMAL",
		},
		VCS: VCSConfig{
			RepoPath: "archive",
			Branch:   "main",
		},
		IPC: IPCConfig{
			SocketPath:   "pmd.sock",
			MaxFrameSize: 64 << 20,
		},
		HTTP: HTTPConfig{
			MaxUploadMB: 64,
			ReadTimeout: Duration{30 * time.Second},
		},
		Logging: LoggingConfig{
			Level:       "info",
			FilePath:    "logs/pmd.log",
			FileMaxSize: 10,
			FileBackups: 3,
		},
		Editor: EditorConfig{
			PreviewScale:  1.5,
			PickExitDelay: Duration{500 * time.Millisecond},
			AutoExtract:   true,
			ExportDir:     "exports",
		},
	}
}

// Load reads a config file. Files ending in .yaml or .yml are parsed as
// YAML, everything else as TOML.
func Load(path string) (*ProfileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultProfile("")
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadProfile loads config.toml from dir, falling back to config.yaml.
func LoadProfile(dir string) (*ProfileConfig, error) {
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, fmt.Errorf("no config.toml or config.yaml in %s: %w", dir, os.ErrNotExist)
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg *ProfileConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if isYAML(path) {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
	} else if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// ResolvePath joins a relative config path onto the profile directory.
func ResolvePath(profileDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(profileDir, p)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (cfg *ProfileConfig) validate() error {
	if cfg.ProfileName == "" {
		return errors.New("profileName required")
	}
	if cfg.Storage.DBPath == "" {
		return errors.New("storage.dbPath required")
	}
	if cfg.IPC.SocketPath == "" {
		return errors.New("ipc.socketPath required")
	}
	if cfg.VCS.Branch == "" {
		cfg.VCS.Branch = "main"
	}
	if cfg.VCS.Enabled && cfg.VCS.RepoPath == "" {
		return errors.New("vcs.repoPath required when vcs is enabled")
	}
	if cfg.IPC.MaxFrameSize <= 0 {
		cfg.IPC.MaxFrameSize = 64 << 20
	}
	if cfg.Editor.PreviewScale <= 0 {
		cfg.Editor.PreviewScale = 1.5
	}
	if cfg.Editor.PickExitDelay.Duration < 0 {
		return errors.New("editor.pickExitDelay must not be negative")
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q unknown", cfg.Logging.Level)
	}
	return nil
}
