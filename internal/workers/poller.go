// Package workers runs the two background loops that keep the TUI and the
// ticket cache fresh without blocking any request handler: a periodic
// database-snapshot poller and a periodic ticket-sync scheduler. Both open
// their own database handle, independent of whatever connection the
// foreground frontend holds, since the embedded store's WAL mode allows any
// number of readers alongside the one writer.
package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/conductor-dev/conductor/internal/store"
)

// Snapshot is a complete view of Conductor's state, assembled by Poller every
// tick from separate queries outside any transaction, so a write landing
// mid-tick can show up in some fields and not others. The TUI treats each Snapshot as
// authoritative and replaces its prior view wholesale rather than patching it.
type Snapshot struct {
	Repos             []store.Repo
	Worktrees         []store.Worktree
	Tickets           []store.Ticket
	CurrentSession    *store.Session
	SessionWorktrees  []store.Worktree
	LatestRunByWT     map[string]store.AgentRun
	TicketAgentTotals map[string]store.AgentStats
	Err               error
}

// Poller assembles a Snapshot on a fixed interval and delivers it to a
// channel for the TUI to consume.
type Poller struct {
	db       *store.DB
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller constructs a Poller against its own database handle opened at
// dbPath. Defaults interval to 2 seconds when interval <= 0.
func NewPoller(dbPath string, interval time.Duration, logger *slog.Logger) (*Poller, error) {
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{db: db, interval: interval, logger: logger}, nil
}

// Run assembles snapshots on p.interval and sends each to out until ctx is
// cancelled. The first snapshot is produced immediately, before waiting on
// the ticker.
func (p *Poller) Run(ctx context.Context, out chan<- Snapshot) {
	p.tick(ctx, out)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, out)
		}
	}
}

func (p *Poller) tick(ctx context.Context, out chan<- Snapshot) {
	snap, err := p.assemble()
	if err != nil {
		p.logger.Error("poller snapshot failed", "error", err)
		snap.Err = err
	}
	select {
	case out <- snap:
	case <-ctx.Done():
	}
}

func (p *Poller) assemble() (Snapshot, error) {
	repos := store.NewRepoStore(p.db, "", "")
	worktrees := store.NewWorktreeStore(p.db)
	tickets := store.NewTicketStore(p.db)
	sessions := store.NewSessionStore(p.db)
	runs := store.NewAgentRunStore(p.db)

	var snap Snapshot

	repoList, err := repos.List()
	if err != nil {
		return snap, err
	}
	snap.Repos = repoList

	wtList, err := worktrees.List("")
	if err != nil {
		return snap, err
	}
	snap.Worktrees = wtList

	ticketList, err := tickets.List("")
	if err != nil {
		return snap, err
	}
	snap.Tickets = ticketList

	if cur, err := sessions.Current(); err == nil {
		snap.CurrentSession = cur
		if wts, err := sessions.GetWorktrees(cur.ID); err == nil {
			snap.SessionWorktrees = wts
		}
	}

	latestRuns, err := runs.LatestRunsByWorktree()
	if err != nil {
		return snap, err
	}
	snap.LatestRunByWT = make(map[string]store.AgentRun, len(latestRuns))
	for _, r := range latestRuns {
		snap.LatestRunByWT[r.WorktreeID] = r
	}

	totals, err := runs.TotalsByTicket()
	if err != nil {
		return snap, err
	}
	snap.TicketAgentTotals = totals

	return snap, nil
}

// Close releases the poller's database handle.
func (p *Poller) Close() error {
	return p.db.Close()
}
