// Package ticketsync implements the reconciliation pipeline that keeps the
// local ticket cache in agreement with external issue providers: fetch,
// upsert, close-missing, and propagate closures to linked worktrees.
package ticketsync

import (
	"encoding/json"
	"fmt"

	"github.com/conductor-dev/conductor/internal/conductorerr"
	"github.com/conductor-dev/conductor/internal/store"
)

// githubConfig is the recognized config shape for a "github" issue source.
type githubConfig struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// jiraConfig is the recognized config shape for a "jira" issue source.
type jiraConfig struct {
	JQL string `json:"jql"`
	URL string `json:"url"`
}

// GitHubFetcher fetches open issues for owner/repo, normalized to ticket inputs.
type GitHubFetcher interface {
	SyncOpenIssues(owner, repo string) ([]store.TicketInput, error)
}

// JiraFetcher runs a JQL search, normalized to ticket inputs.
type JiraFetcher interface {
	SyncIssues(jql string) ([]store.TicketInput, error)
}

// JiraFetcherFactory builds a JiraFetcher bound to a base URL, since the
// synthesized ticket URL depends on it.
type JiraFetcherFactory func(baseURL string) JiraFetcher

// Result reports the outcome of a single repo/source sync pass.
type Result struct {
	Synced int
	Closed int
}

// Syncer drives the Fetch -> Upsert -> Close-reconciliation -> Worktree-
// propagation pipeline for one repo's issue sources.
type Syncer struct {
	tickets   *store.TicketStore
	worktrees *store.WorktreeStore
	github    GitHubFetcher
	newJira   JiraFetcherFactory
}

// New constructs a Syncer. github and newJira may be swapped for fakes in
// tests; production callers pass adapters.NewGitHub() and adapters.NewJira.
func New(tickets *store.TicketStore, worktrees *store.WorktreeStore, github GitHubFetcher, newJira JiraFetcherFactory) *Syncer {
	return &Syncer{tickets: tickets, worktrees: worktrees, github: github, newJira: newJira}
}

// Sync runs the full reconciliation pipeline for a single issue source bound
// to repo. Worktree-closure propagation is always attempted, even when the
// fetch or upsert step fails partway: propagation is best-effort and must
// not be skipped by an earlier error.
func (s *Syncer) Sync(repo *store.Repo, src *store.IssueSource) (Result, error) {
	inputs, err := s.fetch(repo, src)
	if err != nil {
		s.propagate(repo)
		return Result{}, &conductorerr.TicketSyncError{RepoSlug: repo.Slug, SourceKind: src.SourceKind, Err: err}
	}

	synced, err := s.tickets.UpsertTickets(repo.ID, inputs)
	if err != nil {
		s.propagate(repo)
		return Result{}, err
	}

	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.SourceID)
	}
	closed, err := s.tickets.CloseMissingTickets(repo.ID, src.SourceKind, ids)
	if err != nil {
		s.propagate(repo)
		return Result{Synced: synced}, err
	}

	s.propagate(repo)
	return Result{Synced: synced, Closed: closed}, nil
}

// propagate transitions any "active" worktree whose linked ticket is now
// closed to "merged". Errors are swallowed: propagation is best-effort and
// must never abort or be reported as a sync failure.
func (s *Syncer) propagate(repo *store.Repo) {
	_, _ = s.worktrees.CloseAbandonedForClosedTickets(repo.ID)
}

func (s *Syncer) fetch(repo *store.Repo, src *store.IssueSource) ([]store.TicketInput, error) {
	switch src.SourceKind {
	case store.SourceKindGitHub:
		var cfg githubConfig
		if err := json.Unmarshal([]byte(src.ConfigJSON), &cfg); err != nil {
			return nil, fmt.Errorf("parse github issue source config: %w", err)
		}
		if cfg.Owner == "" || cfg.Repo == "" {
			return nil, fmt.Errorf("github issue source missing owner/repo")
		}
		return s.github.SyncOpenIssues(cfg.Owner, cfg.Repo)
	case store.SourceKindJira:
		var cfg jiraConfig
		if err := json.Unmarshal([]byte(src.ConfigJSON), &cfg); err != nil {
			return nil, fmt.Errorf("parse jira issue source config: %w", err)
		}
		if cfg.JQL == "" {
			return nil, fmt.Errorf("jira issue source missing jql")
		}
		return s.newJira(cfg.URL).SyncIssues(cfg.JQL)
	default:
		return nil, fmt.Errorf("unknown issue source kind: %s", src.SourceKind)
	}
}

// SyncRepo runs Sync against every issue source bound to repo, returning the
// aggregate result and the first error encountered (if any); each source is
// still attempted regardless of an earlier source's failure.
func (s *Syncer) SyncRepo(repo *store.Repo, sources []store.IssueSource) (Result, error) {
	var total Result
	var firstErr error
	for i := range sources {
		res, err := s.Sync(repo, &sources[i])
		total.Synced += res.Synced
		total.Closed += res.Closed
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return total, firstErr
}
