package httpapi

import "net/http"

type addSourceRequest struct {
	Kind       string `json:"kind"`
	ConfigJSON string `json:"config_json"`
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("id")
	sources, err := s.sources.List(repoID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, sources)
}

func (s *Server) addSource(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("id")
	repo, err := s.repos.GetByID(repoID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req addSourceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.json(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	src, err := s.sources.Add(repo, req.Kind, req.ConfigJSON)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusCreated, src)
}

func (s *Server) removeSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sourceId")
	if err := s.sources.Remove(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusNoContent, nil)
}
