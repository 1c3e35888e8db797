package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAutoStartAgent_UnmarshalTextRejectsUnknownValue(t *testing.T) {
	var a AutoStartAgent
	if err := a.UnmarshalText([]byte("sometimes")); err == nil {
		t.Fatal("expected an error for an unrecognized auto_start_agent value")
	}

	for _, valid := range []AutoStartAgent{AutoStartAsk, AutoStartAlways, AutoStartNever} {
		a = ""
		if err := a.UnmarshalText([]byte(valid)); err != nil {
			t.Errorf("UnmarshalText(%q) = %v, want no error", valid, err)
		}
		if a != valid {
			t.Errorf("UnmarshalText(%q) set %q", valid, a)
		}
	}
}

func TestLoad_RejectsInvalidAutoStartAgentValue(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".conductor")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	raw := "[general]\nworkspace_root = \"/tmp/ws\"\nsync_interval_minutes = 10\nauto_start_agent = \"sometimes\"\n\n[defaults]\ndefault_branch = \"main\"\nworktree_prefix_feat = \"feat-\"\nworktree_prefix_fix = \"fix-\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected Load to reject an invalid auto_start_agent value")
	}
}

func TestLoad_ReturnsDefaultsWhenFileAbsent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Default()
	if cfg.General.SyncIntervalMinutes != want.General.SyncIntervalMinutes {
		t.Errorf("sync interval = %d, want %d", cfg.General.SyncIntervalMinutes, want.General.SyncIntervalMinutes)
	}
	if cfg.Defaults.DefaultBranch != "main" {
		t.Errorf("default branch = %q, want main", cfg.Defaults.DefaultBranch)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default()
	cfg.General.WorkspaceRoot = "/tmp/workspaces"
	cfg.General.SyncIntervalMinutes = 30
	cfg.General.AutoStartAgent = AutoStartAlways
	cfg.Defaults.DefaultBranch = "trunk"

	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.General.WorkspaceRoot != cfg.General.WorkspaceRoot {
		t.Errorf("workspace root = %q, want %q", got.General.WorkspaceRoot, cfg.General.WorkspaceRoot)
	}
	if got.General.SyncIntervalMinutes != 30 {
		t.Errorf("sync interval = %d, want 30", got.General.SyncIntervalMinutes)
	}
	if got.General.AutoStartAgent != AutoStartAlways {
		t.Errorf("auto start agent = %q, want always", got.General.AutoStartAgent)
	}
	if got.Defaults.DefaultBranch != "trunk" {
		t.Errorf("default branch = %q, want trunk", got.Defaults.DefaultBranch)
	}
}

func TestLoad_MigratesDeprecatedEditorField(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".conductor")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	raw := "[general]\nworkspace_root = \"/tmp/ws\"\nsync_interval_minutes = 10\neditor = \"vim\"\nauto_start_agent = \"never\"\n\n[defaults]\ndefault_branch = \"main\"\nworktree_prefix_feat = \"feat-\"\nworktree_prefix_fix = \"fix-\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.Editor != "" {
		t.Errorf("editor field not cleared after migration: %q", cfg.General.Editor)
	}
	if len(cfg.General.WorkTargets) != 1 || cfg.General.WorkTargets[0].Command != "vim" {
		t.Errorf("work targets = %+v, want a single vim target migrated from editor", cfg.General.WorkTargets)
	}
}

func TestLoad_DoesNotOverrideExplicitWorkTargetsWithDeprecatedEditor(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".conductor")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	raw := "[general]\nworkspace_root = \"/tmp/ws\"\nsync_interval_minutes = 10\neditor = \"vim\"\nauto_start_agent = \"never\"\n\n[[general.work_targets]]\nname = \"Zed\"\ncommand = \"zed\"\ntype = \"editor\"\n\n[defaults]\ndefault_branch = \"main\"\nworktree_prefix_feat = \"feat-\"\nworktree_prefix_fix = \"fix-\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.General.WorkTargets) != 1 || cfg.General.WorkTargets[0].Command != "zed" {
		t.Errorf("work targets = %+v, want the explicit zed target preserved", cfg.General.WorkTargets)
	}
}

func TestEnsureDirs_CreatesConductorDirAndWorkspaceRoot(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	cfg.General.WorkspaceRoot = filepath.Join(home, "workspaces")

	if err := EnsureDirs(cfg); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".conductor")); err != nil {
		t.Errorf("conductor dir not created: %v", err)
	}
	if _, err := os.Stat(cfg.General.WorkspaceRoot); err != nil {
		t.Errorf("workspace root not created: %v", err)
	}
}
