// Package config loads and saves Conductor's TOML configuration file.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/conductor-dev/conductor/internal/conductorerr"
)

// AutoStartAgent controls whether an agent is auto-started after creating a
// worktree from a ticket.
type AutoStartAgent string

const (
	AutoStartAsk    AutoStartAgent = "ask"
	AutoStartAlways AutoStartAgent = "always"
	AutoStartNever  AutoStartAgent = "never"
)

// UnmarshalText validates that a decoded auto_start_agent value is one of
// "ask", "always", "never", rejecting anything else rather than silently
// accepting it.
func (a *AutoStartAgent) UnmarshalText(text []byte) error {
	switch s := string(text); s {
	case string(AutoStartAsk), string(AutoStartAlways), string(AutoStartNever):
		*a = AutoStartAgent(s)
		return nil
	default:
		return &conductorerr.ConfigError{Msg: "invalid auto_start_agent: " + s}
	}
}

// WorkTarget is one configured "open in" action (editor, terminal, etc).
type WorkTarget struct {
	Name    string `toml:"name"`
	Command string `toml:"command"`
	Type    string `toml:"type"`
}

// GeneralConfig is the [general] table.
type GeneralConfig struct {
	WorkspaceRoot       string         `toml:"workspace_root"`
	SyncIntervalMinutes uint32         `toml:"sync_interval_minutes"`
	Editor              string         `toml:"editor,omitempty"` // deprecated, migrated on load
	WorkTargets         []WorkTarget   `toml:"work_targets"`
	AutoStartAgent      AutoStartAgent `toml:"auto_start_agent"`
}

// DefaultsConfig is the [defaults] table.
type DefaultsConfig struct {
	DefaultBranch       string `toml:"default_branch"`
	WorktreePrefixFeat  string `toml:"worktree_prefix_feat"`
	WorktreePrefixFix   string `toml:"worktree_prefix_fix"`
}

// Config is the full contents of config.toml.
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Defaults DefaultsConfig `toml:"defaults"`
}

// Default returns a Config populated with documented defaults.
func Default() Config {
	root, _ := os.UserHomeDir()
	return Config{
		General: GeneralConfig{
			WorkspaceRoot:       filepath.Join(root, ".conductor", "workspaces"),
			SyncIntervalMinutes: 15,
			WorkTargets: []WorkTarget{
				{Name: "VS Code", Command: "code", Type: "editor"},
			},
			AutoStartAgent: AutoStartAsk,
		},
		Defaults: DefaultsConfig{
			DefaultBranch:      "main",
			WorktreePrefixFeat: "feat-",
			WorktreePrefixFix:  "fix-",
		},
	}
}

// ConductorDir returns ~/.conductor.
func ConductorDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", &conductorerr.IOError{Op: "resolve home directory", Err: err}
	}
	return filepath.Join(home, ".conductor"), nil
}

// DBPath returns ~/.conductor/conductor.db.
func DBPath() (string, error) {
	dir, err := ConductorDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "conductor.db"), nil
}

// ConfigPath returns ~/.conductor/config.toml.
func ConfigPath() (string, error) {
	dir, err := ConductorDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config.toml, returning defaults if it doesn't exist. If the
// deprecated `editor` field is present and `work_targets` was not explicitly
// set in the file, the editor value is migrated into a single work target.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, &conductorerr.IOError{Op: "read config.toml", Err: err}
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, &conductorerr.ConfigError{Msg: err.Error()}
	}

	if cfg.General.Editor != "" {
		var raw map[string]any
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return Config{}, &conductorerr.ConfigError{Msg: err.Error()}
		}
		hasWorkTargets := false
		if general, ok := raw["general"].(map[string]any); ok {
			_, hasWorkTargets = general["work_targets"]
		}
		if !hasWorkTargets {
			cfg.General.WorkTargets = []WorkTarget{{
				Name:    cfg.General.Editor,
				Command: cfg.General.Editor,
				Type:    "editor",
			}}
		}
	}
	cfg.General.Editor = ""

	return cfg, nil
}

// Save writes cfg to config.toml, creating ~/.conductor if needed.
func Save(cfg Config) error {
	dir, err := ConductorDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &conductorerr.IOError{Op: "create conductor dir", Err: err}
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return &conductorerr.IOError{Op: "create config.toml", Err: err}
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return &conductorerr.ConfigError{Msg: err.Error()}
	}
	return nil
}

// EnsureDirs creates the conductor directory and the configured workspace root.
func EnsureDirs(cfg Config) error {
	dir, err := ConductorDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &conductorerr.IOError{Op: "create conductor dir", Err: err}
	}
	if err := os.MkdirAll(cfg.General.WorkspaceRoot, 0o755); err != nil {
		return &conductorerr.IOError{Op: "create workspace root", Err: err}
	}
	return nil
}
