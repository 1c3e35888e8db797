package store

import (
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conductor-dev/conductor/internal/conductorerr"
)

// RepoStore manages the repos table.
type RepoStore struct {
	db            *DB
	defaultBranch string
	workspaceRoot string
}

// NewRepoStore constructs a RepoStore. defaultBranch and workspaceRoot come
// from config.Defaults.DefaultBranch / config.General.WorkspaceRoot.
func NewRepoStore(db *DB, defaultBranch, workspaceRoot string) *RepoStore {
	return &RepoStore{db: db, defaultBranch: defaultBranch, workspaceRoot: workspaceRoot}
}

// DeriveSlugFromURL derives a repo slug from a remote URL, e.g.
// "https://github.com/org/repo.git" -> "repo".
func DeriveSlugFromURL(remoteURL string) string {
	last := remoteURL
	if idx := strings.LastIndex(remoteURL, "/"); idx != -1 {
		last = remoteURL[idx+1:]
	}
	return strings.TrimSuffix(last, ".git")
}

// DeriveLocalPath derives the default local clone path for a slug.
func (s *RepoStore) DeriveLocalPath(slug string) string {
	return path.Join(s.workspaceRoot, slug, "main")
}

// Add registers a new repo. If slug is empty it is derived from remoteURL.
// If localPath is empty it defaults to <workspace_root>/<slug>/main.
func (s *RepoStore) Add(slug, localPath, remoteURL, workspaceDir string) (*Repo, error) {
	if slug == "" {
		slug = DeriveSlugFromURL(remoteURL)
	}
	if localPath == "" {
		localPath = s.DeriveLocalPath(slug)
	}
	if workspaceDir == "" {
		workspaceDir = path.Join(s.workspaceRoot, slug)
	}

	var exists bool
	if err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM repos WHERE slug = ?)", slug).Scan(&exists); err != nil {
		return nil, &conductorerr.DatabaseError{Op: "check repo slug", Err: err}
	}
	if exists {
		return nil, &conductorerr.AlreadyExistsError{Kind: "repo", Key: slug}
	}

	repo := &Repo{
		ID:            uuid.NewString(),
		Slug:          slug,
		LocalPath:     localPath,
		RemoteURL:     remoteURL,
		DefaultBranch: s.defaultBranch,
		WorkspaceDir:  workspaceDir,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO repos (id, slug, local_path, remote_url, default_branch, workspace_dir, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, repo.ID, repo.Slug, repo.LocalPath, repo.RemoteURL, repo.DefaultBranch, repo.WorkspaceDir, repo.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "insert repo", Err: err}
	}

	return repo, nil
}

// List returns every repo ordered by slug ascending.
func (s *RepoStore) List() ([]Repo, error) {
	rows, err := s.db.Query(`
		SELECT id, slug, local_path, remote_url, default_branch, workspace_dir, created_at
		FROM repos ORDER BY slug
	`)
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "list repos", Err: err}
	}
	defer rows.Close()

	var repos []Repo
	for rows.Next() {
		r, err := scanRepo(rows)
		if err != nil {
			return nil, &conductorerr.DatabaseError{Op: "scan repo", Err: err}
		}
		repos = append(repos, *r)
	}
	return repos, rows.Err()
}

// GetBySlug fetches a repo by slug.
func (s *RepoStore) GetBySlug(slug string) (*Repo, error) {
	row := s.db.QueryRow(`
		SELECT id, slug, local_path, remote_url, default_branch, workspace_dir, created_at
		FROM repos WHERE slug = ?
	`, slug)
	repo, err := scanRepo(row)
	if err == sql.ErrNoRows {
		return nil, &conductorerr.NotFoundError{Kind: "repo", Key: slug}
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "get repo by slug", Err: err}
	}
	return repo, nil
}

// GetByID fetches a repo by id.
func (s *RepoStore) GetByID(id string) (*Repo, error) {
	row := s.db.QueryRow(`
		SELECT id, slug, local_path, remote_url, default_branch, workspace_dir, created_at
		FROM repos WHERE id = ?
	`, id)
	repo, err := scanRepo(row)
	if err == sql.ErrNoRows {
		return nil, &conductorerr.NotFoundError{Kind: "repo", Key: id}
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "get repo by id", Err: err}
	}
	return repo, nil
}

// Remove deletes a repo by slug. Foreign-key cascades remove its issue
// sources, tickets, worktrees, and agent runs.
func (s *RepoStore) Remove(slug string) error {
	res, err := s.db.Exec("DELETE FROM repos WHERE slug = ?", slug)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "remove repo", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &conductorerr.DatabaseError{Op: "remove repo rows affected", Err: err}
	}
	if n == 0 {
		return &conductorerr.NotFoundError{Kind: "repo", Key: slug}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepo(row rowScanner) (*Repo, error) {
	var r Repo
	var createdAt string
	if err := row.Scan(&r.ID, &r.Slug, &r.LocalPath, &r.RemoteURL, &r.DefaultBranch, &r.WorkspaceDir, &createdAt); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse repo created_at: %w", err)
	}
	r.CreatedAt = ts
	return &r, nil
}
