package httpapi

import (
	"net/http"

	"github.com/conductor-dev/conductor/internal/agentrunner"
	"github.com/conductor-dev/conductor/internal/events"
)

type startAgentRequest struct {
	Prompt          string  `json:"prompt"`
	ResumeSessionID *string `json:"resume_session_id,omitempty"`
}

func (s *Server) listAgentRuns(w http.ResponseWriter, r *http.Request) {
	wtID := r.PathValue("id")
	runs, err := s.runs.ListForWorktree(wtID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, runs)
}

func (s *Server) startAgent(w http.ResponseWriter, r *http.Request) {
	wtID := r.PathValue("id")
	wt, err := s.worktrees.GetByID(wtID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req startAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.json(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	run, err := s.starter.Start(wt.ID, wt.Path, req.Prompt, req.ResumeSessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.bus.Emit(events.Event{Kind: events.KindAgentStarted, WorktreeID: wt.ID, AgentRunID: run.ID})
	s.json(w, http.StatusCreated, run)
}

func (s *Server) stopAgent(w http.ResponseWriter, r *http.Request) {
	wtID := r.PathValue("id")
	latest, err := s.runs.LatestForWorktree(wtID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.starter.Stop(latest.ID); err != nil {
		s.writeError(w, err)
		return
	}
	s.bus.Emit(events.Event{Kind: events.KindAgentCancelled, WorktreeID: wtID, AgentRunID: latest.ID})
	s.json(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// agentEvents replays a worktree's most recent run log into the displayable
// event stream that internal/agentrunner.ParseAgentLog synthesizes.
func (s *Server) agentEvents(w http.ResponseWriter, r *http.Request) {
	wtID := r.PathValue("id")
	latest, err := s.runs.LatestForWorktree(wtID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if latest.LogFile == nil {
		s.json(w, http.StatusOK, []any{})
		return
	}

	evs, err := agentrunner.ParseAgentLog(*latest.LogFile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, evs)
}

// agentPrompt returns the prompt text of a worktree's most recent run, used
// by the TUI/CLI to prefill a resubmission.
func (s *Server) agentPrompt(w http.ResponseWriter, r *http.Request) {
	wtID := r.PathValue("id")
	latest, err := s.runs.LatestForWorktree(wtID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, map[string]string{"prompt": latest.Prompt})
}

func (s *Server) latestRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.LatestRunsByWorktree()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, runs)
}

func (s *Server) ticketTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.runs.TotalsByTicket()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, totals)
}
