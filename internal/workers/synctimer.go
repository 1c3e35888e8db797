package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/conductor-dev/conductor/internal/adapters"
	"github.com/conductor-dev/conductor/internal/events"
	"github.com/conductor-dev/conductor/internal/store"
	"github.com/conductor-dev/conductor/internal/ticketsync"
)

// SyncTimer runs ticket-sync reconciliation across every repo on a fixed
// interval, emitting a per-repo success or failure event for each pass.
// Repos with no issue sources are skipped and get no event.
type SyncTimer struct {
	db       *store.DB
	bus      *events.Bus
	interval time.Duration
	logger   *slog.Logger
}

// NewSyncTimer constructs a SyncTimer against its own database handle opened
// at dbPath. interval is config.General.SyncIntervalMinutes, defaulting to
// 15 minutes.
func NewSyncTimer(dbPath string, interval time.Duration, bus *events.Bus, logger *slog.Logger) (*SyncTimer, error) {
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SyncTimer{db: db, bus: bus, interval: interval, logger: logger}, nil
}

// Run enumerates every repo and syncs each one's issue sources on
// s.interval until ctx is cancelled. The first pass runs immediately.
func (s *SyncTimer) Run(ctx context.Context) {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SyncTimer) tick(ctx context.Context) {
	repos := store.NewRepoStore(s.db, "", "")
	sources := store.NewIssueSourceStore(s.db)
	tickets := store.NewTicketStore(s.db)
	worktrees := store.NewWorktreeStore(s.db)
	syncer := ticketsync.New(tickets, worktrees, adapters.NewGitHub(), func(url string) ticketsync.JiraFetcher {
		return adapters.NewJira(url)
	})

	repoList, err := repos.List()
	if err != nil {
		s.logger.Error("sync timer: list repos failed", "error", err)
		return
	}

	for _, repo := range repoList {
		select {
		case <-ctx.Done():
			return
		default:
		}

		srcList, err := sources.List(repo.ID)
		if err != nil {
			s.logger.Error("sync timer: list issue sources failed", "repo", repo.Slug, "error", err)
			continue
		}
		if len(srcList) == 0 {
			continue
		}

		res, err := syncer.SyncRepo(&repo, srcList)
		if err != nil {
			s.logger.Warn("ticket sync failed", "repo", repo.Slug, "error", err)
			s.bus.Emit(events.Event{Kind: events.KindTicketSyncFailed, RepoID: repo.ID})
			continue
		}

		s.logger.Info("ticket sync complete", "repo", repo.Slug, "synced", res.Synced, "closed", res.Closed)
		s.bus.Emit(events.Event{Kind: events.KindTicketSynced, RepoID: repo.ID})
	}
}

// Close releases the sync timer's database handle.
func (s *SyncTimer) Close() error {
	return s.db.Close()
}
