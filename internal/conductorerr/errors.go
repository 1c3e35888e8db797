// Package conductorerr defines the error taxonomy shared by every core component.
//
// Callers use errors.As to recover a typed error and decide how to surface it (an
// HTTP status code, a CLI exit message); callers that don't care about the kind can
// keep treating the return value as a plain error.
package conductorerr

import "fmt"

// NotFoundError indicates a lookup by id/slug found no matching row.
type NotFoundError struct {
	Kind string // "repo", "worktree", "ticket", "session", "agent run"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// AlreadyExistsError indicates a uniqueness constraint was violated by the caller's
// intent before reaching the database (slug taken, issue source kind already bound).
type AlreadyExistsError struct {
	Kind string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.Key)
}

// GitError wraps a non-zero exit from the git binary, stderr captured verbatim.
type GitError struct {
	Args   []string
	Stderr string
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %v: %s", e.Args, e.Stderr)
}

// DatabaseError wraps a database/sql failure that indicates a schema or integrity
// bug rather than a recoverable condition.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// IOError wraps a filesystem or subprocess-spawn failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConfigError indicates malformed TOML or an invalid work-target index.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Msg)
}

// TicketSyncError wraps an upstream provider failure during a sync pass. The
// syncer surfaces these per-repo without aborting a multi-repo sync.
type TicketSyncError struct {
	RepoSlug   string
	SourceKind string
	Err        error
}

func (e *TicketSyncError) Error() string {
	return fmt.Sprintf("ticket sync failed for %s/%s: %v", e.RepoSlug, e.SourceKind, e.Err)
}

func (e *TicketSyncError) Unwrap() error { return e.Err }

// AgentError indicates a state-machine rule violation: starting an agent on a
// worktree that already has one running, or stopping one that isn't running.
type AgentError struct {
	Msg string
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent error: %s", e.Msg)
}

// WorktreeError indicates a worktree-lifecycle precondition was not met,
// e.g. deleting a worktree with uncommitted changes without forcing it.
type WorktreeError struct {
	Msg string
}

func (e *WorktreeError) Error() string {
	return fmt.Sprintf("worktree error: %s", e.Msg)
}
