package store

import "time"

// Repo is the root aggregate: a registered source repository.
type Repo struct {
	ID            string
	Slug          string
	LocalPath     string
	RemoteURL     string
	DefaultBranch string
	WorkspaceDir  string
	CreatedAt     time.Time
}

// IssueSource binds a repo to an external ticket provider.
type IssueSource struct {
	ID         string
	RepoID     string
	SourceKind string // "github" or "jira"
	ConfigJSON string
	CreatedAt  time.Time
}

const (
	SourceKindGitHub = "github"
	SourceKindJira   = "jira"
)

// Ticket is a cached external issue.
type Ticket struct {
	ID         string
	RepoID     string
	SourceKind string
	SourceID   string
	Title      string
	Body       string
	State      string // "open", "in_progress", "closed"
	Labels     string // JSON array
	Assignee   *string
	Priority   *string
	URL        string
	SyncedAt   time.Time
	RawPayload string
}

const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketClosed     = "closed"
)

// TicketInput is a normalized per-source record, ready to be upserted.
type TicketInput struct {
	SourceKind string
	SourceID   string
	Title      string
	Body       string
	State      string
	Labels     string
	Assignee   *string
	Priority   *string
	URL        string
	RawPayload string
}

// Worktree is a branch-bound working directory.
type Worktree struct {
	ID          string
	RepoID      string
	Slug        string
	Branch      string
	Path        string
	TicketID    *string
	Status      string // "active", "merged", "abandoned"
	CreatedAt   time.Time
	CompletedAt *time.Time
}

const (
	WorktreeActive    = "active"
	WorktreeMerged    = "merged"
	WorktreeAbandoned = "abandoned"
)

// AgentRun is one invocation of the coding agent against a worktree.
type AgentRun struct {
	ID              string
	WorktreeID      string
	ProviderSession *string
	Prompt          string
	Status          string // "running", "completed", "failed", "cancelled"
	ResultText      *string
	CostUSD         *float64
	NumTurns        *int64
	DurationMS      *int64
	TmuxWindow      *string
	LogFile         *string
	StartedAt       time.Time
	EndedAt         *time.Time
}

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// Session is a developer's working window.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	Notes     *string
}

// SessionWorktree records that a worktree was touched during a session.
type SessionWorktree struct {
	SessionID  string
	WorktreeID string
	AddedAt    time.Time
}
