package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for ttt, stored in ~/.ttt/config.json.
// The file is JSON with comments; a config.yaml next to it takes precedence.
// TTT_* environment variables override both.
type Config struct {
	Outlook OutlookConfig `json:"outlook" yaml:"outlook"`
	View    ViewConfig    `json:"view" yaml:"view"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// OutlookConfig holds Microsoft Graph / Outlook calendar sync settings.
type OutlookConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `json:"tenant_id" yaml:"tenant_id" env:"TTT_OUTLOOK_TENANT_ID"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `json:"client_id" yaml:"client_id" env:"TTT_OUTLOOK_CLIENT_ID"`
	// DefaultProject is the project name assigned to imported Outlook events.
	DefaultProject string `json:"default_project" yaml:"default_project"`
	// Timezone is the IANA timezone for event times (e.g. "Europe/Berlin"). Empty = UTC.
	Timezone string `json:"timezone" yaml:"timezone"`
}

// ViewConfig controls how entries are listed and watched.
type ViewConfig struct {
	// Grouping merges same-day entries with equal task and project.
	Grouping bool `json:"grouping" yaml:"grouping" env:"TTT_GROUPING"`
	// BufferWindow coalesces bursts of changes; 0 applies each one immediately.
	BufferWindow Duration `json:"buffer_window" yaml:"buffer_window" env:"TTT_BUFFER_WINDOW"`
	// UndoGracePeriod is how long a deletion can be undone.
	UndoGracePeriod Duration `json:"undo_grace_period" yaml:"undo_grace_period" env:"TTT_UNDO_GRACE_PERIOD"`
	// PollInterval is how often `ttt watch` checks the store.
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval" env:"TTT_POLL_INTERVAL"`
	// Days is how many days, ending today, `ttt watch` shows.
	Days int `json:"days" yaml:"days" env:"TTT_VIEW_DAYS"`
}

// StorageConfig selects where entries live.
type StorageConfig struct {
	// Backend is "files" (one JSON file per day) or "sqlite".
	Backend string `json:"backend" yaml:"backend" env:"TTT_STORAGE_BACKEND"`
	// Path is the data directory for files, or the database file for sqlite.
	// Empty means ~/.ttt (or ~/.ttt/ttt.db).
	Path string `json:"path" yaml:"path" env:"TTT_STORAGE_PATH"`
}

const (
	// DefaultTenantID is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret and requires no
	// app registration. Replace with your own registered app ID for
	// organisational or production deployments.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
	// DefaultProject is the project name used when none is specified.
	DefaultProject = "Meetings"

	BackendFiles  = "files"
	BackendSQLite = "sqlite"

	DefaultUndoGracePeriod = 6 * time.Second
	DefaultPollInterval    = 2 * time.Second
	DefaultDays            = 7
)

// Duration is a time.Duration written as a string such as "500ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		Outlook: OutlookConfig{
			TenantID:       DefaultTenantID,
			ClientID:       DefaultClientID,
			DefaultProject: DefaultProject,
			Timezone:       "",
		},
		View: ViewConfig{
			UndoGracePeriod: Duration(DefaultUndoGracePeriod),
			PollInterval:    Duration(DefaultPollInterval),
			Days:            DefaultDays,
		},
		Storage: StorageConfig{Backend: BackendFiles},
	}
}

// configTemplate is the annotated config written on first run. It is JSON
// with comments; // and /* */ comments and trailing commas are accepted.
const configTemplate = `// ttt configuration – ~/.ttt/config.json
//
// All settings are optional; the built-in defaults shown below work out of
// the box for personal Microsoft accounts and most organisations.
// Edit this file to customise ttt behaviour. Every setting in "view" and
// "storage" can also be set through a TTT_* environment variable.
{
  // ── Microsoft Graph / Outlook calendar sync ──────────────────────────────
  "outlook": {
    // Azure AD tenant ID.
    // • "common"  – personal Microsoft accounts and any organisation (default)
    // • Your organisation's tenant GUID, e.g. "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"
    "tenant_id": "common",

    // Azure application (client) ID used for the OAuth2 device code flow.
    // The built-in value is the public Azure CLI app – no app registration needed.
    "client_id": "04b07795-8542-4c4a-95af-30b2c573d5ab",

    // Default project name assigned to imported Outlook calendar events.
    // Can be overridden per-sync with: ttt outlook sync --project <name>
    "default_project": "Meetings",

    // IANA timezone for interpreting calendar event times, e.g. "Europe/Berlin".
    // Leave empty to use UTC. Can be overridden with: ttt outlook sync --timezone <tz>
    "timezone": ""
  },

  // ── Entry list ───────────────────────────────────────────────────────────
  "view": {
    // Merge same-day entries with the same task and project (TTT_GROUPING).
    "grouping": false,

    // Collect changes arriving within this window before redrawing
    // (TTT_BUFFER_WINDOW). "0s" redraws on every change.
    "buffer_window": "0s",

    // How long "ttt delete" waits before deleting for good (TTT_UNDO_GRACE_PERIOD).
    "undo_grace_period": "6s",

    // How often "ttt watch" checks for changes (TTT_POLL_INTERVAL).
    "poll_interval": "2s",

    // Number of days, ending today, shown by "ttt watch" (TTT_VIEW_DAYS).
    "days": 7
  },

  // ── Storage ──────────────────────────────────────────────────────────────
  "storage": {
    // "files" keeps one JSON file per day, "sqlite" a single database
    // (TTT_STORAGE_BACKEND).
    "backend": "files",

    // Data directory (files) or database file (sqlite). Empty uses ~/.ttt
    // (TTT_STORAGE_PATH).
    "path": ""
  }
}
`

// Dir returns the configuration directory (~/.ttt).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".ttt"), nil
}

// LoadFrom reads dir/config.yaml if present, otherwise dir/config.json,
// creating the latter with annotated defaults on first run. Environment
// variables are applied last.
func LoadFrom(dir string) (Config, error) {
	cfg, err := readFile(dir)
	if err != nil {
		return defaultConfig(), err
	}

	// Fill zero-value fields with built-in defaults so callers always get
	// a usable Config even if the user only partially fills in the file.
	if cfg.Outlook.TenantID == "" {
		cfg.Outlook.TenantID = DefaultTenantID
	}
	if cfg.Outlook.ClientID == "" {
		cfg.Outlook.ClientID = DefaultClientID
	}
	if cfg.Outlook.DefaultProject == "" {
		cfg.Outlook.DefaultProject = DefaultProject
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFiles
	}

	if err := env.Parse(&cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parse env: %w", err)
	}

	switch cfg.Storage.Backend {
	case BackendFiles, BackendSQLite:
	default:
		return defaultConfig(), fmt.Errorf("unknown storage backend %q (want %q or %q)", cfg.Storage.Backend, BackendFiles, BackendSQLite)
	}
	if cfg.View.PollInterval <= 0 {
		cfg.View.PollInterval = Duration(DefaultPollInterval)
	}
	if cfg.View.Days <= 0 {
		cfg.View.Days = DefaultDays
	}
	return cfg, nil
}

func readFile(dir string) (Config, error) {
	cfg := defaultConfig()

	yamlPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(yamlPath)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", yamlPath, err)
		}
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config file %s: %w", yamlPath, err)
	}

	path := filepath.Join(dir, "config.json")
	data, err = os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			slog.Warn("could not create config file", "path", path, "error", writeErr)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	return cfg, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// StoragePath resolves the storage location against the config directory.
func (c Config) StoragePath(dir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Backend == BackendSQLite {
		return filepath.Join(dir, "ttt.db")
	}
	return dir
}
