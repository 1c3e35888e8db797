// Package httpapi is Conductor's loopback-only JSON+SSE HTTP surface: one
// net/http.ServeMux routed by Go 1.22+ method patterns, a single *sql.DB
// shared by the per-manager stores (no lock serializes their statements;
// concurrent writers wait on SQLite's busy timeout), and a broadcast
// subscription onto the shared event bus.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/conductor-dev/conductor/internal/adapters"
	"github.com/conductor-dev/conductor/internal/agentrunner"
	"github.com/conductor-dev/conductor/internal/config"
	"github.com/conductor-dev/conductor/internal/events"
	"github.com/conductor-dev/conductor/internal/store"
)

// Server is Conductor's HTTP+SSE service.
type Server struct {
	db        *store.DB
	repos     *store.RepoStore
	sources   *store.IssueSourceStore
	tickets   *store.TicketStore
	worktrees *store.WorktreeStore
	runs      *store.AgentRunStore
	sessions  *store.SessionStore
	runner    *agentrunner.Runner
	starter   *agentrunner.Starter
	bus       *events.Bus
	logger    *slog.Logger

	cfgMu sync.RWMutex
	cfg   config.Config

	httpServer *http.Server
}

// New constructs a Server over db, wiring every manager store it needs.
func New(db *store.DB, cfg config.Config, bus *events.Bus, logger *slog.Logger) *Server {
	runs := store.NewAgentRunStore(db)
	conductorBin, err := os.Executable()
	if err != nil {
		conductorBin = "conductor"
	}
	return &Server{
		db:        db,
		repos:     store.NewRepoStore(db, cfg.Defaults.DefaultBranch, cfg.General.WorkspaceRoot),
		sources:   store.NewIssueSourceStore(db),
		tickets:   store.NewTicketStore(db),
		worktrees: store.NewWorktreeStore(db),
		runs:      runs,
		sessions:  store.NewSessionStore(db),
		runner:    agentrunner.New(runs, logDir(cfg)),
		starter:   agentrunner.NewStarter(runs, adapters.NewTmux("conductor"), conductorBin),
		bus:       bus,
		logger:    logger,
		cfg:       cfg,
	}
}

func logDir(cfg config.Config) string {
	dir, err := config.ConductorDir()
	if err != nil {
		return "agent-logs"
	}
	return dir + "/agent-logs"
}

// Mux builds the routed handler for every endpoint under /api.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/repos", s.listRepos)
	mux.HandleFunc("POST /api/repos", s.addRepo)
	mux.HandleFunc("DELETE /api/repos/{id}", s.removeRepo)

	mux.HandleFunc("GET /api/repos/{id}/sources", s.listSources)
	mux.HandleFunc("POST /api/repos/{id}/sources", s.addSource)
	mux.HandleFunc("DELETE /api/repos/{id}/sources/{sourceId}", s.removeSource)

	mux.HandleFunc("GET /api/repos/{id}/worktrees", s.listWorktrees)
	mux.HandleFunc("POST /api/repos/{id}/worktrees", s.createWorktree)
	mux.HandleFunc("DELETE /api/worktrees/{id}", s.deleteWorktree)

	mux.HandleFunc("GET /api/repos/{id}/tickets", s.listRepoTickets)
	mux.HandleFunc("POST /api/repos/{id}/tickets/sync", s.syncTickets)
	mux.HandleFunc("GET /api/tickets", s.listAllTickets)
	mux.HandleFunc("GET /api/tickets/{id}/detail", s.ticketDetail)

	mux.HandleFunc("GET /api/worktrees/{id}/agent-runs", s.listAgentRuns)
	mux.HandleFunc("POST /api/worktrees/{id}/agent/start", s.startAgent)
	mux.HandleFunc("POST /api/worktrees/{id}/agent/stop", s.stopAgent)
	mux.HandleFunc("GET /api/worktrees/{id}/agent/events", s.agentEvents)
	mux.HandleFunc("GET /api/worktrees/{id}/agent/prompt", s.agentPrompt)

	mux.HandleFunc("GET /api/agent/latest-runs", s.latestRuns)
	mux.HandleFunc("GET /api/agent/ticket-totals", s.ticketTotals)

	mux.HandleFunc("GET /api/config/work-targets", s.listWorkTargets)
	mux.HandleFunc("POST /api/config/work-targets", s.addWorkTarget)
	mux.HandleFunc("PUT /api/config/work-targets", s.replaceWorkTargets)
	mux.HandleFunc("DELETE /api/config/work-targets/{index}", s.deleteWorkTarget)

	mux.HandleFunc("GET /api/events", s.handleSSE)

	return s.withLogging(mux)
}

// Start runs the HTTP server on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Mux(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections are long-lived
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("starting http api", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
