package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/conductor-dev/conductor/internal/conductorerr"
)

// SessionStore tracks developer working sessions and the worktrees touched
// during each one.
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Start opens a new session. Fails if one is already open: sessions don't
// nest.
func (s *SessionStore) Start(notes *string) (*Session, error) {
	if _, err := s.Current(); err == nil {
		return nil, &conductorerr.AlreadyExistsError{Kind: "open session", Key: "current"}
	} else if _, ok := err.(*conductorerr.NotFoundError); !ok {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Notes:     notes,
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, started_at, notes) VALUES (?, ?, ?)
	`, sess.ID, sess.StartedAt.Format(time.RFC3339), sess.Notes)
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "start session", Err: err}
	}
	return sess, nil
}

// End closes the currently open session, if any, optionally recording notes.
func (s *SessionStore) End(notes *string) error {
	cur, err := s.Current()
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if notes != nil {
		_, err = s.db.Exec("UPDATE sessions SET ended_at = ?, notes = ? WHERE id = ?", now, *notes, cur.ID)
	} else {
		_, err = s.db.Exec("UPDATE sessions SET ended_at = ? WHERE id = ?", now, cur.ID)
	}
	if err != nil {
		return &conductorerr.DatabaseError{Op: "end session", Err: err}
	}
	return nil
}

// Current returns the most recently started session that has not ended.
func (s *SessionStore) Current() (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, ended_at, notes FROM sessions
		WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1
	`)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, &conductorerr.NotFoundError{Kind: "session", Key: "current"}
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "get current session", Err: err}
	}
	return sess, nil
}

// List returns every session, most recently started first.
func (s *SessionStore) List() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, ended_at, notes FROM sessions ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "list sessions", Err: err}
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, &conductorerr.DatabaseError{Op: "scan session", Err: err}
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// AddWorktree records that a worktree was touched during a session.
// Idempotent: re-adding the same pair is a no-op.
func (s *SessionStore) AddWorktree(sessionID, worktreeID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO session_worktrees (session_id, worktree_id, added_at)
		VALUES (?, ?, ?)
	`, sessionID, worktreeID, now)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "add session worktree", Err: err}
	}
	return nil
}

// GetWorktrees returns the worktrees touched during a session, in the order
// they were first added.
func (s *SessionStore) GetWorktrees(sessionID string) ([]Worktree, error) {
	rows, err := s.db.Query(`
		SELECT w.id, w.repo_id, w.slug, w.branch, w.path, w.ticket_id, w.status, w.created_at, w.completed_at
		FROM worktrees w
		INNER JOIN session_worktrees sw ON sw.worktree_id = w.id
		WHERE sw.session_id = ?
		ORDER BY sw.added_at
	`, sessionID)
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "get session worktrees", Err: err}
	}
	defer rows.Close()

	var out []Worktree
	for rows.Next() {
		wt, err := scanWorktree(rows)
		if err != nil {
			return nil, &conductorerr.DatabaseError{Op: "scan session worktree", Err: err}
		}
		out = append(out, *wt)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var startedAt string
	var endedAt, notes sql.NullString
	if err := row.Scan(&sess.ID, &startedAt, &endedAt, &notes); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, err
	}
	sess.StartedAt = ts
	if endedAt.Valid {
		et, err := time.Parse(time.RFC3339, endedAt.String)
		if err != nil {
			return nil, err
		}
		sess.EndedAt = &et
	}
	if notes.Valid {
		sess.Notes = &notes.String
	}
	return &sess, nil
}
