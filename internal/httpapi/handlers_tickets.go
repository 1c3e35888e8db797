package httpapi

import (
	"net/http"

	"github.com/conductor-dev/conductor/internal/adapters"
	"github.com/conductor-dev/conductor/internal/events"
	"github.com/conductor-dev/conductor/internal/ticketsync"
)

func (s *Server) listRepoTickets(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("id")
	tickets, err := s.tickets.List(repoID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, tickets)
}

func (s *Server) listAllTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.tickets.List("")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, tickets)
}

func (s *Server) ticketDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ticket, err := s.tickets.GetByID(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.json(w, http.StatusOK, ticket)
}

func (s *Server) syncTickets(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("id")
	repo, err := s.repos.GetByID(repoID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	srcList, err := s.sources.List(repo.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	syncer := ticketsync.New(s.tickets, s.worktrees, adapters.NewGitHub(), func(url string) ticketsync.JiraFetcher {
		return adapters.NewJira(url)
	})

	res, err := syncer.SyncRepo(repo, srcList)
	if err != nil {
		s.bus.Emit(events.Event{Kind: events.KindTicketSyncFailed, RepoID: repo.ID})
		s.writeError(w, err)
		return
	}
	s.bus.Emit(events.Event{Kind: events.KindTicketSynced, RepoID: repo.ID})
	s.json(w, http.StatusOK, res)
}
