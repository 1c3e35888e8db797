package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conductor-dev/conductor/internal/conductorerr"
)

// WorktreeStore manages the worktrees table. Git-side operations (branch
// creation, `git worktree add/remove`, dependency install) live in
// internal/worktreemgr, which calls into this store for persistence.
type WorktreeStore struct {
	db *DB
}

func NewWorktreeStore(db *DB) *WorktreeStore {
	return &WorktreeStore{db: db}
}

// SlugAndBranch computes the worktree slug and branch name for a worktree
// name: a "fix-" prefix keeps the fix- family, anything else becomes a
// "feat-" worktree (an existing "feat-" prefix is stripped then reapplied).
func SlugAndBranch(name string) (slug, branch string) {
	if clean, ok := strings.CutPrefix(name, "fix-"); ok {
		return "fix-" + clean, "fix/" + clean
	}
	clean, _ := strings.CutPrefix(name, "feat-")
	return "feat-" + clean, "feat/" + clean
}

// Insert persists a new worktree record with status "active".
func (s *WorktreeStore) Insert(repo *Repo, slug, branch, path string, ticketID *string) (*Worktree, error) {
	var exists bool
	if err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM worktrees WHERE repo_id = ? AND slug = ?)",
		repo.ID, slug,
	).Scan(&exists); err != nil {
		return nil, &conductorerr.DatabaseError{Op: "check worktree slug", Err: err}
	}
	if exists {
		return nil, &conductorerr.AlreadyExistsError{Kind: "worktree", Key: slug}
	}

	wt := &Worktree{
		ID:        uuid.NewString(),
		RepoID:    repo.ID,
		Slug:      slug,
		Branch:    branch,
		Path:      path,
		TicketID:  ticketID,
		Status:    WorktreeActive,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO worktrees (id, repo_id, slug, branch, path, ticket_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, wt.ID, wt.RepoID, wt.Slug, wt.Branch, wt.Path, wt.TicketID, wt.Status, wt.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "insert worktree", Err: err}
	}
	return wt, nil
}

// List returns worktrees, optionally filtered by repo.
func (s *WorktreeStore) List(repoID string) ([]Worktree, error) {
	var rows *sql.Rows
	var err error
	if repoID != "" {
		rows, err = s.db.Query(`
			SELECT id, repo_id, slug, branch, path, ticket_id, status, created_at, completed_at
			FROM worktrees WHERE repo_id = ? ORDER BY created_at
		`, repoID)
	} else {
		rows, err = s.db.Query(`
			SELECT id, repo_id, slug, branch, path, ticket_id, status, created_at, completed_at
			FROM worktrees ORDER BY created_at
		`)
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "list worktrees", Err: err}
	}
	defer rows.Close()

	var out []Worktree
	for rows.Next() {
		wt, err := scanWorktree(rows)
		if err != nil {
			return nil, &conductorerr.DatabaseError{Op: "scan worktree", Err: err}
		}
		out = append(out, *wt)
	}
	return out, rows.Err()
}

// GetBySlug fetches a worktree within a repo.
func (s *WorktreeStore) GetBySlug(repoID, slug string) (*Worktree, error) {
	row := s.db.QueryRow(`
		SELECT id, repo_id, slug, branch, path, ticket_id, status, created_at, completed_at
		FROM worktrees WHERE repo_id = ? AND slug = ?
	`, repoID, slug)
	wt, err := scanWorktree(row)
	if err == sql.ErrNoRows {
		return nil, &conductorerr.NotFoundError{Kind: "worktree", Key: slug}
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "get worktree", Err: err}
	}
	return wt, nil
}

// GetByID fetches a worktree by id.
func (s *WorktreeStore) GetByID(id string) (*Worktree, error) {
	row := s.db.QueryRow(`
		SELECT id, repo_id, slug, branch, path, ticket_id, status, created_at, completed_at
		FROM worktrees WHERE id = ?
	`, id)
	wt, err := scanWorktree(row)
	if err == sql.ErrNoRows {
		return nil, &conductorerr.NotFoundError{Kind: "worktree", Key: id}
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "get worktree", Err: err}
	}
	return wt, nil
}

// SetStatus soft-transitions a worktree's status, stamping completed_at when
// leaving "active".
func (s *WorktreeStore) SetStatus(id, status string) error {
	var completedAt any
	if status != WorktreeActive {
		completedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec("UPDATE worktrees SET status = ?, completed_at = ? WHERE id = ?", status, completedAt, id)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "set worktree status", Err: err}
	}
	return nil
}

// CloseAbandonedForClosedTickets transitions any "active" worktree whose
// linked ticket is now "closed" to "merged". Best-effort propagation step of
// the ticket-sync reconciliation pipeline.
func (s *WorktreeStore) CloseAbandonedForClosedTickets(repoID string) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`
		UPDATE worktrees SET status = 'merged', completed_at = ?
		WHERE repo_id = ? AND status = 'active'
		AND ticket_id IN (SELECT id FROM tickets WHERE state = 'closed')
	`, now, repoID)
	if err != nil {
		return 0, &conductorerr.DatabaseError{Op: "propagate ticket closure", Err: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Purge permanently deletes a single terminal-state worktree record, or
// (when slug is empty) every terminal-state worktree of a repo.
func (s *WorktreeStore) Purge(repoID, slug string) (int, error) {
	var res sql.Result
	var err error
	if slug != "" {
		res, err = s.db.Exec(`
			DELETE FROM worktrees WHERE repo_id = ? AND slug = ? AND status != 'active'
		`, repoID, slug)
	} else {
		res, err = s.db.Exec(`
			DELETE FROM worktrees WHERE repo_id = ? AND status != 'active'
		`, repoID)
	}
	if err != nil {
		return 0, &conductorerr.DatabaseError{Op: "purge worktrees", Err: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanWorktree(row rowScanner) (*Worktree, error) {
	var wt Worktree
	var createdAt string
	var completedAt sql.NullString
	if err := row.Scan(&wt.ID, &wt.RepoID, &wt.Slug, &wt.Branch, &wt.Path, &wt.TicketID, &wt.Status, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, err
	}
	wt.CreatedAt = ts
	if completedAt.Valid {
		ct, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, err
		}
		wt.CompletedAt = &ct
	}
	return &wt, nil
}
