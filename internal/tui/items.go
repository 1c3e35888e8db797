package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/conductor-dev/conductor/internal/store"
	"github.com/conductor-dev/conductor/internal/workers"
)

type rowKind int

const (
	rowRepo rowKind = iota
	rowWorktree
	rowTicket
)

// row adapts Conductor's store entities to bubbles/list's list.DefaultItem
// interface (Title/Description/FilterValue).
type row struct {
	kind     rowKind
	repo     store.Repo
	worktree store.Worktree
	ticket   store.Ticket
}

func (r row) Title() string {
	switch r.kind {
	case rowRepo:
		return "repo: " + r.repo.Slug
	case rowWorktree:
		return "worktree: " + r.worktree.Slug
	case rowTicket:
		return "ticket: " + r.ticket.Title
	default:
		return ""
	}
}

func (r row) Description() string {
	switch r.kind {
	case rowRepo:
		return r.repo.RemoteURL
	case rowWorktree:
		return fmt.Sprintf("%s · %s", r.worktree.Branch, r.worktree.Status)
	case rowTicket:
		return fmt.Sprintf("%s · %s", r.ticket.SourceKind, r.ticket.State)
	default:
		return ""
	}
}

func (r row) FilterValue() string {
	switch r.kind {
	case rowRepo:
		return r.repo.Slug
	case rowWorktree:
		return r.worktree.Slug
	case rowTicket:
		return r.ticket.Title
	default:
		return ""
	}
}

func buildItems(snap workers.Snapshot) []list.Item {
	items := make([]list.Item, 0, len(snap.Repos)+len(snap.Worktrees)+len(snap.Tickets))
	for _, repo := range snap.Repos {
		items = append(items, row{kind: rowRepo, repo: repo})
	}
	for _, wt := range snap.Worktrees {
		items = append(items, row{kind: rowWorktree, worktree: wt})
	}
	for _, t := range snap.Tickets {
		items = append(items, row{kind: rowTicket, ticket: t})
	}
	return items
}
