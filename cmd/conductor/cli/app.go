// Package cli wires Conductor's cobra command tree to the core managers.
// Each leaf command's RunE calls directly into a manager method; cobra
// contributes only argument/flag parsing and help text.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/conductor-dev/conductor/internal/config"
	"github.com/conductor-dev/conductor/internal/events"
	"github.com/conductor-dev/conductor/internal/store"
)

// App bundles the shared state every subcommand needs: the database handle,
// loaded config, and the event bus workers publish to.
type App struct {
	DB     *store.DB
	Config config.Config
	Bus    *events.Bus
	Logger *slog.Logger

	Repos     *store.RepoStore
	Sources   *store.IssueSourceStore
	Tickets   *store.TicketStore
	Worktrees *store.WorktreeStore
	Runs      *store.AgentRunStore
	Sessions  *store.SessionStore
}

// NewApp loads config, opens the database (running migrations), and wires
// every manager store. dbPathOverride, if non-empty, takes precedence over
// the configured default (~/.conductor/conductor.db).
func NewApp(dbPathOverride string, verbose bool) (*App, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.EnsureDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensure conductor dirs: %w", err)
	}

	dbPath := dbPathOverride
	if dbPath == "" {
		dbPath, err = config.DBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &App{
		DB:        db,
		Config:    cfg,
		Bus:       events.New(),
		Logger:    logger,
		Repos:     store.NewRepoStore(db, cfg.Defaults.DefaultBranch, cfg.General.WorkspaceRoot),
		Sources:   store.NewIssueSourceStore(db),
		Tickets:   store.NewTicketStore(db),
		Worktrees: store.NewWorktreeStore(db),
		Runs:      store.NewAgentRunStore(db),
		Sessions:  store.NewSessionStore(db),
	}, nil
}

// Close releases the app's database handle.
func (a *App) Close() error {
	return a.DB.Close()
}
