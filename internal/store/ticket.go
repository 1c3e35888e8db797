package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conductor-dev/conductor/internal/conductorerr"
)

// TicketStore manages the tickets table. All mutation happens through the
// ticket syncer (internal/ticketsync), which is the only caller that should
// construct TicketInput values.
type TicketStore struct {
	db *DB
}

func NewTicketStore(db *DB) *TicketStore {
	return &TicketStore{db: db}
}

// UpsertTickets inserts or updates a batch of tickets for a repo, keyed by
// (repo_id, source_kind, source_id). On conflict, every field except id is
// overwritten. Returns the number of tickets upserted.
func (s *TicketStore) UpsertTickets(repoID string, tickets []TicketInput) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	for _, t := range tickets {
		_, err := s.db.Exec(`
			INSERT INTO tickets (id, repo_id, source_kind, source_id, title, body, state, labels, assignee, priority, url, synced_at, raw_payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(repo_id, source_kind, source_id) DO UPDATE SET
				title       = excluded.title,
				body        = excluded.body,
				state       = excluded.state,
				labels      = excluded.labels,
				assignee    = excluded.assignee,
				priority    = excluded.priority,
				url         = excluded.url,
				synced_at   = excluded.synced_at,
				raw_payload = excluded.raw_payload
		`,
			uuid.NewString(), repoID, t.SourceKind, t.SourceID, t.Title, t.Body, t.State,
			t.Labels, t.Assignee, t.Priority, t.URL, now, t.RawPayload,
		)
		if err != nil {
			return 0, &conductorerr.DatabaseError{Op: "upsert ticket", Err: err}
		}
	}

	return len(tickets), nil
}

// CloseMissingTickets transitions to "closed" any ticket for (repoID,
// sourceKind) whose source_id is not in syncedSourceIDs and whose state
// isn't already closed. If syncedSourceIDs is empty, this is a no-op: an
// empty synced set is interpreted as "upstream did not respond", and must
// never be allowed to close every ticket. Returns the number closed.
func (s *TicketStore) CloseMissingTickets(repoID, sourceKind string, syncedSourceIDs []string) (int, error) {
	if len(syncedSourceIDs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(syncedSourceIDs)), ",")
	query := fmt.Sprintf(`
		UPDATE tickets SET state = 'closed', synced_at = ?
		WHERE repo_id = ? AND source_kind = ?
		AND state != 'closed'
		AND source_id NOT IN (%s)
	`, placeholders)

	args := make([]any, 0, 3+len(syncedSourceIDs))
	args = append(args, now, repoID, sourceKind)
	for _, id := range syncedSourceIDs {
		args = append(args, id)
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, &conductorerr.DatabaseError{Op: "close missing tickets", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &conductorerr.DatabaseError{Op: "close missing tickets rows affected", Err: err}
	}
	return int(n), nil
}

// List returns tickets, optionally filtered by repo, ordered by synced_at descending.
func (s *TicketStore) List(repoID string) ([]Ticket, error) {
	var rows *sql.Rows
	var err error
	if repoID != "" {
		rows, err = s.db.Query(`
			SELECT id, repo_id, source_kind, source_id, title, body, state, labels, assignee, priority, url, synced_at, raw_payload
			FROM tickets WHERE repo_id = ? ORDER BY synced_at DESC
		`, repoID)
	} else {
		rows, err = s.db.Query(`
			SELECT id, repo_id, source_kind, source_id, title, body, state, labels, assignee, priority, url, synced_at, raw_payload
			FROM tickets ORDER BY synced_at DESC
		`)
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "list tickets", Err: err}
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, &conductorerr.DatabaseError{Op: "scan ticket", Err: err}
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetByID fetches a single ticket.
func (s *TicketStore) GetByID(id string) (*Ticket, error) {
	row := s.db.QueryRow(`
		SELECT id, repo_id, source_kind, source_id, title, body, state, labels, assignee, priority, url, synced_at, raw_payload
		FROM tickets WHERE id = ?
	`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, &conductorerr.NotFoundError{Kind: "ticket", Key: id}
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "get ticket", Err: err}
	}
	return t, nil
}

// LinkToWorktree sets a worktree's ticket_id.
func (s *TicketStore) LinkToWorktree(ticketID, worktreeID string) error {
	_, err := s.db.Exec("UPDATE worktrees SET ticket_id = ? WHERE id = ?", ticketID, worktreeID)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "link ticket to worktree", Err: err}
	}
	return nil
}

func scanTicket(row rowScanner) (*Ticket, error) {
	var t Ticket
	var syncedAt string
	if err := row.Scan(&t.ID, &t.RepoID, &t.SourceKind, &t.SourceID, &t.Title, &t.Body,
		&t.State, &t.Labels, &t.Assignee, &t.Priority, &t.URL, &syncedAt, &t.RawPayload); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339, syncedAt)
	if err != nil {
		return nil, err
	}
	t.SyncedAt = ts
	return &t, nil
}
