package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/conductor-dev/conductor/internal/conductorerr"
)

// AgentRunStore manages the agent_runs table.
type AgentRunStore struct {
	db *DB
}

func NewAgentRunStore(db *DB) *AgentRunStore {
	return &AgentRunStore{db: db}
}

// CreateRun records the start of an agent invocation against a worktree.
func (s *AgentRunStore) CreateRun(worktreeID, prompt string, tmuxWindow *string) (*AgentRun, error) {
	run := &AgentRun{
		ID:         uuid.NewString(),
		WorktreeID: worktreeID,
		Prompt:     prompt,
		Status:     RunRunning,
		TmuxWindow: tmuxWindow,
		StartedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO agent_runs (id, worktree_id, prompt, status, tmux_window, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.WorktreeID, run.Prompt, run.Status, run.TmuxWindow, run.StartedAt.Format(time.RFC3339))
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "create agent run", Err: err}
	}
	return run, nil
}

// UpdateRunLogFile records the path of the run's raw stream-JSON log.
func (s *AgentRunStore) UpdateRunLogFile(id, logFile string) error {
	_, err := s.db.Exec("UPDATE agent_runs SET log_file = ? WHERE id = ?", logFile, id)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "update agent run log file", Err: err}
	}
	return nil
}

// UpdateRunTmuxWindow records the tmux window a run is executing in, set
// once Starter has spawned it, since the window name isn't known at
// CreateRun time for CLI-dispatched runs.
func (s *AgentRunStore) UpdateRunTmuxWindow(id, window string) error {
	_, err := s.db.Exec("UPDATE agent_runs SET tmux_window = ? WHERE id = ?", window, id)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "update agent run tmux window", Err: err}
	}
	return nil
}

// UpdateRunCompleted marks a run as completed with its final result.
func (s *AgentRunStore) UpdateRunCompleted(id, resultText string, costUSD float64, numTurns, durationMS int64, providerSession *string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		UPDATE agent_runs
		SET status = ?, result_text = ?, cost_usd = ?, num_turns = ?, duration_ms = ?, provider_session = ?, ended_at = ?
		WHERE id = ?
	`, RunCompleted, resultText, costUSD, numTurns, durationMS, providerSession, now, id)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "update agent run completed", Err: err}
	}
	return nil
}

// UpdateRunFailed marks a run as failed, storing the error text as the result.
func (s *AgentRunStore) UpdateRunFailed(id, errorText string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		UPDATE agent_runs SET status = ?, result_text = ?, ended_at = ? WHERE id = ?
	`, RunFailed, errorText, now, id)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "update agent run failed", Err: err}
	}
	return nil
}

// UpdateRunCancelled marks a run as cancelled, e.g. after a user-initiated stop.
func (s *AgentRunStore) UpdateRunCancelled(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		UPDATE agent_runs SET status = ?, ended_at = ? WHERE id = ?
	`, RunCancelled, now, id)
	if err != nil {
		return &conductorerr.DatabaseError{Op: "update agent run cancelled", Err: err}
	}
	return nil
}

// GetRun fetches a single run by id.
func (s *AgentRunStore) GetRun(id string) (*AgentRun, error) {
	row := s.db.QueryRow(agentRunSelect+" WHERE id = ?", id)
	run, err := scanAgentRun(row)
	if err == sql.ErrNoRows {
		return nil, &conductorerr.NotFoundError{Kind: "agent run", Key: id}
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "get agent run", Err: err}
	}
	return run, nil
}

// ListForWorktree returns every run against a worktree, most recent first.
func (s *AgentRunStore) ListForWorktree(worktreeID string) ([]AgentRun, error) {
	rows, err := s.db.Query(agentRunSelect+" WHERE worktree_id = ? ORDER BY started_at DESC", worktreeID)
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "list agent runs", Err: err}
	}
	defer rows.Close()

	var out []AgentRun
	for rows.Next() {
		run, err := scanAgentRun(rows)
		if err != nil {
			return nil, &conductorerr.DatabaseError{Op: "scan agent run", Err: err}
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// LatestForWorktree returns the most recently started run against a
// worktree, if any.
func (s *AgentRunStore) LatestForWorktree(worktreeID string) (*AgentRun, error) {
	row := s.db.QueryRow(agentRunSelect+" WHERE worktree_id = ? ORDER BY started_at DESC LIMIT 1", worktreeID)
	run, err := scanAgentRun(row)
	if err == sql.ErrNoRows {
		return nil, &conductorerr.NotFoundError{Kind: "agent run", Key: worktreeID}
	}
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "get latest agent run", Err: err}
	}
	return run, nil
}

// LatestRunsByWorktree returns, for every worktree that has at least one run,
// its single most recent run.
func (s *AgentRunStore) LatestRunsByWorktree() ([]AgentRun, error) {
	rows, err := s.db.Query(`
		SELECT ar.id, ar.worktree_id, ar.provider_session, ar.prompt, ar.status, ar.result_text,
		       ar.cost_usd, ar.num_turns, ar.duration_ms, ar.tmux_window, ar.log_file, ar.started_at, ar.ended_at
		FROM agent_runs ar
		INNER JOIN (
			SELECT worktree_id, MAX(started_at) AS max_started
			FROM agent_runs GROUP BY worktree_id
		) latest ON ar.worktree_id = latest.worktree_id AND ar.started_at = latest.max_started
	`)
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "list latest agent runs by worktree", Err: err}
	}
	defer rows.Close()

	var out []AgentRun
	for rows.Next() {
		run, err := scanAgentRun(rows)
		if err != nil {
			return nil, &conductorerr.DatabaseError{Op: "scan agent run", Err: err}
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// AgentStats aggregates cost/turns/duration across a set of runs.
type AgentStats struct {
	RunCount        int
	TotalCostUSD    float64
	TotalTurns      int64
	TotalDurationMS int64
}

// TotalsForWorktree sums cost, turns, and duration across every run against
// a worktree. A running run's turn count is unreliable (written only on
// completion); callers that need a live total should add
// agentrunner.CountTurnsInLog for any run still in the "running" state.
func (s *AgentRunStore) TotalsForWorktree(worktreeID string) (AgentStats, error) {
	var stats AgentStats
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(cost_usd), 0), COALESCE(SUM(num_turns), 0), COALESCE(SUM(duration_ms), 0)
		FROM agent_runs WHERE worktree_id = ?
	`, worktreeID).Scan(&stats.RunCount, &stats.TotalCostUSD, &stats.TotalTurns, &stats.TotalDurationMS)
	if err != nil {
		return AgentStats{}, &conductorerr.DatabaseError{Op: "totals for worktree", Err: err}
	}
	return stats, nil
}

// TotalsByTicket aggregates run totals grouped by the ticket each run's
// worktree is linked to, across every worktree currently linked to a
// ticket.
func (s *AgentRunStore) TotalsByTicket() (map[string]AgentStats, error) {
	rows, err := s.db.Query(`
		SELECT w.ticket_id, COUNT(*), COALESCE(SUM(ar.cost_usd), 0), COALESCE(SUM(ar.num_turns), 0), COALESCE(SUM(ar.duration_ms), 0)
		FROM agent_runs ar
		INNER JOIN worktrees w ON w.id = ar.worktree_id
		WHERE w.ticket_id IS NOT NULL
		GROUP BY w.ticket_id
	`)
	if err != nil {
		return nil, &conductorerr.DatabaseError{Op: "totals by ticket", Err: err}
	}
	defer rows.Close()

	out := make(map[string]AgentStats)
	for rows.Next() {
		var ticketID string
		var stats AgentStats
		if err := rows.Scan(&ticketID, &stats.RunCount, &stats.TotalCostUSD, &stats.TotalTurns, &stats.TotalDurationMS); err != nil {
			return nil, &conductorerr.DatabaseError{Op: "scan ticket totals", Err: err}
		}
		out[ticketID] = stats
	}
	return out, rows.Err()
}

const agentRunSelect = `
	SELECT id, worktree_id, provider_session, prompt, status, result_text,
	       cost_usd, num_turns, duration_ms, tmux_window, log_file, started_at, ended_at
	FROM agent_runs
`

func scanAgentRun(row rowScanner) (*AgentRun, error) {
	var run AgentRun
	var providerSession, resultText, tmuxWindow, logFile sql.NullString
	var costUSD sql.NullFloat64
	var numTurns, durationMS sql.NullInt64
	var startedAt string
	var endedAt sql.NullString

	if err := row.Scan(&run.ID, &run.WorktreeID, &providerSession, &run.Prompt, &run.Status, &resultText,
		&costUSD, &numTurns, &durationMS, &tmuxWindow, &logFile, &startedAt, &endedAt); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, err
	}
	run.StartedAt = ts

	if providerSession.Valid {
		run.ProviderSession = &providerSession.String
	}
	if resultText.Valid {
		run.ResultText = &resultText.String
	}
	if tmuxWindow.Valid {
		run.TmuxWindow = &tmuxWindow.String
	}
	if logFile.Valid {
		run.LogFile = &logFile.String
	}
	if costUSD.Valid {
		run.CostUSD = &costUSD.Float64
	}
	if numTurns.Valid {
		run.NumTurns = &numTurns.Int64
	}
	if durationMS.Valid {
		run.DurationMS = &durationMS.Int64
	}
	if endedAt.Valid {
		et, err := time.Parse(time.RFC3339, endedAt.String)
		if err != nil {
			return nil, err
		}
		run.EndedAt = &et
	}

	return &run, nil
}
