package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/conductor-dev/conductor/internal/conductorerr"
)

func (s *Server) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode json response failed", "error", err)
	}
}

// writeError maps a core error to an HTTP status: NotFound -> 404,
// AlreadyExists -> 409, TicketSync -> 502, Agent/Worktree -> 400, everything
// else -> 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var notFound *conductorerr.NotFoundError
	var alreadyExists *conductorerr.AlreadyExistsError
	var ticketSync *conductorerr.TicketSyncError
	var agentErr *conductorerr.AgentError
	var worktreeErr *conductorerr.WorktreeError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &alreadyExists):
		status = http.StatusConflict
	case errors.As(err, &ticketSync):
		status = http.StatusBadGateway
	case errors.As(err, &agentErr):
		status = http.StatusBadRequest
	case errors.As(err, &worktreeErr):
		status = http.StatusBadRequest
	}

	if status >= 500 {
		s.logger.Error("request failed", "error", err)
	}
	s.json(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
