// Package store provides SQLite-based persistence for every Conductor entity.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection shared by every manager.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates the SQLite database at dbPath, applying pragmas and
// running migrations to completion before returning.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	d := &DB{DB: sqlDB, path: dbPath}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// migrate applies each pending migration inside its own transaction,
// advancing schema_migrations only on success, so a failed migration never
// leaves the schema partially applied.
func (d *DB) migrate() error {
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var version int
	if err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration1Repos},
		{2, migration2IssueSources},
		{3, migration3Tickets},
		{4, migration4Worktrees},
		{5, migration5AgentRuns},
		{6, migration6Sessions},
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}

		tx, err := d.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

const migration1Repos = `
CREATE TABLE IF NOT EXISTS repos (
	id             TEXT PRIMARY KEY,
	slug           TEXT NOT NULL UNIQUE,
	local_path     TEXT NOT NULL,
	remote_url     TEXT NOT NULL,
	default_branch TEXT NOT NULL DEFAULT 'main',
	workspace_dir  TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
`

const migration2IssueSources = `
CREATE TABLE IF NOT EXISTS issue_sources (
	id          TEXT PRIMARY KEY,
	repo_id     TEXT NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
	source_kind TEXT NOT NULL,
	config_json TEXT NOT NULL DEFAULT '{}',
	created_at  TEXT NOT NULL,
	UNIQUE(repo_id, source_kind)
);
CREATE INDEX IF NOT EXISTS idx_issue_sources_repo ON issue_sources(repo_id);
`

const migration3Tickets = `
CREATE TABLE IF NOT EXISTS tickets (
	id          TEXT PRIMARY KEY,
	repo_id     TEXT NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
	source_kind TEXT NOT NULL,
	source_id   TEXT NOT NULL,
	title       TEXT NOT NULL,
	body        TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT 'open',
	labels      TEXT NOT NULL DEFAULT '[]',
	assignee    TEXT,
	priority    TEXT,
	url         TEXT NOT NULL DEFAULT '',
	synced_at   TEXT NOT NULL,
	raw_payload TEXT NOT NULL DEFAULT '{}',
	UNIQUE(repo_id, source_kind, source_id)
);
CREATE INDEX IF NOT EXISTS idx_tickets_repo ON tickets(repo_id);
`

const migration4Worktrees = `
CREATE TABLE IF NOT EXISTS worktrees (
	id           TEXT PRIMARY KEY,
	repo_id      TEXT NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
	slug         TEXT NOT NULL,
	branch       TEXT NOT NULL,
	path         TEXT NOT NULL,
	ticket_id    TEXT REFERENCES tickets(id) ON DELETE SET NULL,
	status       TEXT NOT NULL DEFAULT 'active',
	created_at   TEXT NOT NULL,
	completed_at TEXT,
	UNIQUE(repo_id, slug)
);
CREATE INDEX IF NOT EXISTS idx_worktrees_repo ON worktrees(repo_id);
CREATE INDEX IF NOT EXISTS idx_worktrees_ticket ON worktrees(ticket_id);
`

const migration5AgentRuns = `
CREATE TABLE IF NOT EXISTS agent_runs (
	id                TEXT PRIMARY KEY,
	worktree_id       TEXT NOT NULL REFERENCES worktrees(id) ON DELETE CASCADE,
	provider_session  TEXT,
	prompt            TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'running',
	result_text       TEXT,
	cost_usd          REAL,
	num_turns         INTEGER,
	duration_ms       INTEGER,
	tmux_window       TEXT,
	log_file          TEXT,
	started_at        TEXT NOT NULL,
	ended_at          TEXT
);
CREATE INDEX IF NOT EXISTS idx_agent_runs_worktree ON agent_runs(worktree_id);
CREATE INDEX IF NOT EXISTS idx_agent_runs_status ON agent_runs(worktree_id, status);
`

const migration6Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	ended_at   TEXT,
	notes      TEXT
);

CREATE TABLE IF NOT EXISTS session_worktrees (
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	worktree_id TEXT NOT NULL REFERENCES worktrees(id) ON DELETE CASCADE,
	added_at    TEXT NOT NULL,
	PRIMARY KEY (session_id, worktree_id)
);
`
