package httpapi

import (
	"net/http"
	"strconv"

	"github.com/conductor-dev/conductor/internal/config"
	"github.com/conductor-dev/conductor/internal/conductorerr"
)

// listWorkTargets returns the configured work targets (editors, terminals,
// etc) a worktree can be opened in.
func (s *Server) listWorkTargets(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.RLock()
	targets := append([]config.WorkTarget(nil), s.cfg.General.WorkTargets...)
	s.cfgMu.RUnlock()
	s.json(w, http.StatusOK, targets)
}

// addWorkTarget appends one work target and persists config.toml.
func (s *Server) addWorkTarget(w http.ResponseWriter, r *http.Request) {
	var target config.WorkTarget
	if err := decodeJSON(r, &target); err != nil {
		s.json(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.cfgMu.Lock()
	s.cfg.General.WorkTargets = append(s.cfg.General.WorkTargets, target)
	cfg := s.cfg
	s.cfgMu.Unlock()

	if err := config.Save(cfg); err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusCreated, cfg.General.WorkTargets)
}

// replaceWorkTargets overwrites the entire work-target list and persists it.
func (s *Server) replaceWorkTargets(w http.ResponseWriter, r *http.Request) {
	var targets []config.WorkTarget
	if err := decodeJSON(r, &targets); err != nil {
		s.json(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.cfgMu.Lock()
	s.cfg.General.WorkTargets = targets
	cfg := s.cfg
	s.cfgMu.Unlock()

	if err := config.Save(cfg); err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, cfg.General.WorkTargets)
}

// deleteWorkTarget removes the work target at the given index and persists
// the result. An out-of-range index is a ConfigError.
func (s *Server) deleteWorkTarget(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.json(w, http.StatusBadRequest, map[string]string{"error": "invalid index: " + r.PathValue("index")})
		return
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	targets := s.cfg.General.WorkTargets
	if idx < 0 || idx >= len(targets) {
		s.writeError(w, &conductorerr.ConfigError{Msg: "work target index out of range: " + strconv.Itoa(idx)})
		return
	}
	s.cfg.General.WorkTargets = append(targets[:idx], targets[idx+1:]...)
	cfg := s.cfg

	if err := config.Save(cfg); err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, cfg.General.WorkTargets)
}
