package store

import (
	"database/sql"
	"encoding/json"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/conductor-dev/conductor/internal/conductorerr"
)

// IssueSourceStore manages the issue_sources table.
type IssueSourceStore struct {
	db *DB
}

func NewIssueSourceStore(db *DB) *IssueSourceStore {
	return &IssueSourceStore{db: db}
}

var (
	sshGitHubRemote   = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(\.git)?$`)
	httpsGitHubRemote = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+?)(\.git)?$`)
)

// InferGitHubConfig derives {owner, repo} from a remote URL, matching both
// SSH (git@github.com:owner/name(.git)?) and HTTPS
// (https://github.com/owner/name(.git)?) forms.
func InferGitHubConfig(remoteURL string) (owner, repo string, ok bool) {
	if m := sshGitHubRemote.FindStringSubmatch(remoteURL); m != nil {
		return m[1], m[2], true
	}
	if m := httpsGitHubRemote.FindStringSubmatch(remoteURL); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// Add binds a repo to an issue provider. If kind is "github" and configJSON
// is empty, the owner/repo is inferred from the repo's remote URL.
func (s *IssueSourceStore) Add(repo *Repo, kind string, configJSON string) (*IssueSource, error) {
	var exists bool
	if err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM issue_sources WHERE repo_id = ? AND source_kind = ?)",
		repo.ID, kind,
	).Scan(&exists); err != nil {
		return nil, &conductorerr.DatabaseError{Op: "check issue source", Err: err}
	}
	if exists {
		return nil, &conductorerr.AlreadyExistsError{Kind: "issue source", Key: kind}
	}

	if configJSON == "" && kind == SourceKindGitHub {
		owner, name, ok := InferGitHubConfig(repo.RemoteURL)
		if !ok {
			return nil, &conductorerr.ConfigError{Msg: "could not infer {owner, repo} from remote URL: " + repo.RemoteURL}
		}
		raw, _ := json.Marshal(map[string]string{"owner": owner, "repo": name})
		configJSON = string(raw)
	}
	if configJSON == "" {
		configJSON = "{}"
	}

	src := &IssueSource{
		ID:         uuid.NewString(),
		RepoID:     repo.ID,
		SourceKind: kind,
		ConfigJSON: configJSON,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO issue_sources (id, repo_id, source_kind, config_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, src.ID, src.RepoID, src.SourceKind, src.ConfigJSON, src.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "insert issue source", Err: err}
	}
	return src, nil
}

// List returns every issue source bound to a repo.
func (s *IssueSourceStore) List(repoID string) ([]IssueSource, error) {
	rows, err := s.db.Query(`
		SELECT id, repo_id, source_kind, config_json, created_at
		FROM issue_sources WHERE repo_id = ? ORDER BY source_kind
	`, repoID)
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "list issue sources", Err: err}
	}
	defer rows.Close()

	var out []IssueSource
	for rows.Next() {
		src, err := scanIssueSource(rows)
		if err != nil {
			return nil, &conductorerr.DatabaseError{Op: "scan issue source", Err: err}
		}
		out = append(out, *src)
	}
	return out, rows.Err()
}

// Remove deletes an issue source by id.
func (s *IssueSourceStore) Remove(id string) error {
	res, err := s.db.Exec("DELETE FROM issue_sources WHERE id = ?", id)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "remove issue source", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &conductorerr.NotFoundError{Kind: "issue source", Key: id}
	}
	return nil
}

// RemoveByKind deletes the issue source of the given kind for a repo, if any.
// Returns whether a row was removed.
func (s *IssueSourceStore) RemoveByKind(repoID, kind string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM issue_sources WHERE repo_id = ? AND source_kind = ?", repoID, kind)
	if err != nil {
		return false, &conductorerr.DatabaseError{Op: "remove issue source by kind", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &conductorerr.DatabaseError{Op: "remove issue source rows affected", Err: err}
	}
	return n > 0, nil
}

func scanIssueSource(row rowScanner) (*IssueSource, error) {
	var src IssueSource
	var createdAt string
	if err := row.Scan(&src.ID, &src.RepoID, &src.SourceKind, &src.ConfigJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, err
	}
	src.CreatedAt = ts
	return &src, nil
}
