package httpapi

import (
	"net/http"

	"github.com/conductor-dev/conductor/internal/events"
)

type addRepoRequest struct {
	Slug         string `json:"slug"`
	LocalPath    string `json:"local_path"`
	RemoteURL    string `json:"remote_url"`
	WorkspaceDir string `json:"workspace_dir"`
}

func (s *Server) listRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := s.repos.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, repos)
}

func (s *Server) addRepo(w http.ResponseWriter, r *http.Request) {
	var req addRepoRequest
	if err := decodeJSON(r, &req); err != nil {
		s.json(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	repo, err := s.repos.Add(req.Slug, req.LocalPath, req.RemoteURL, req.WorkspaceDir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.bus.Emit(events.Event{Kind: events.KindRepoAdded, RepoID: repo.ID})
	s.json(w, http.StatusCreated, repo)
}

func (s *Server) removeRepo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	repo, err := s.repos.GetByID(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.repos.Remove(repo.Slug); err != nil {
		s.writeError(w, err)
		return
	}
	s.bus.Emit(events.Event{Kind: events.KindRepoRemoved, RepoID: id})
	s.json(w, http.StatusNoContent, nil)
}
