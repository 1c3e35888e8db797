package httpapi

import (
	"net/http"

	"github.com/conductor-dev/conductor/internal/events"
	"github.com/conductor-dev/conductor/internal/worktreemgr"
)

type createWorktreeRequest struct {
	Name       string  `json:"name"`
	BaseBranch string  `json:"base_branch,omitempty"`
	TicketID   *string `json:"ticket_id,omitempty"`
}

func (s *Server) listWorktrees(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("id")
	wts, err := s.worktrees.List(repoID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, wts)
}

func (s *Server) createWorktree(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("id")
	repo, err := s.repos.GetByID(repoID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req createWorktreeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.json(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	mgr := worktreemgr.New(repo, s.worktrees)
	wt, err := mgr.Create(req.Name, req.BaseBranch, req.TicketID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.bus.Emit(events.Event{Kind: events.KindWorktreeCreated, RepoID: repo.ID, WorktreeID: wt.ID})
	s.json(w, http.StatusCreated, wt)
}

func (s *Server) deleteWorktree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	force := r.URL.Query().Get("force") == "true"

	wt, err := s.worktrees.GetByID(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	repo, err := s.repos.GetByID(wt.RepoID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	mgr := worktreemgr.New(repo, s.worktrees)
	if err := mgr.Delete(wt.Slug, force); err != nil {
		s.writeError(w, err)
		return
	}
	s.bus.Emit(events.Event{Kind: events.KindWorktreeDeleted, RepoID: repo.ID, WorktreeID: wt.ID})
	s.json(w, http.StatusNoContent, nil)
}
