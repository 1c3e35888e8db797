// Package tui is Conductor's terminal dashboard: a thin Bubble Tea view
// over the snapshots workers.Poller assembles every tick. Layout and
// keymap design are intentionally minimal — one list of repos, worktrees
// and tickets with a detail pane — since the view layer itself is out of scope; what matters
// here is that a real snapshot drives a real Bubble Tea program.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/conductor-dev/conductor/internal/cliutil"
	"github.com/conductor-dev/conductor/internal/mdtext"
	"github.com/conductor-dev/conductor/internal/workers"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	detailStyle = lipgloss.NewStyle().Padding(1, 2).Border(lipgloss.RoundedBorder())
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// snapshotMsg wraps a workers.Snapshot delivered from the poller channel.
type snapshotMsg workers.Snapshot

// Model is the Bubble Tea model driving the dashboard.
type Model struct {
	cancel  context.CancelFunc
	updates <-chan workers.Snapshot

	list     list.Model
	snapshot workers.Snapshot
	width    int
	height   int
}

// New constructs a Model that reads snapshots from updates. cancel is
// called when the user quits (q or ctrl+c) to stop the snapshot source.
func New(updates <-chan workers.Snapshot, cancel context.CancelFunc) Model {
	items := []list.Item{}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Conductor"
	l.SetShowHelp(true)

	return Model{cancel: cancel, updates: updates, list: l}
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

func waitForSnapshot(ch <-chan workers.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		listWidth := m.width * 2 / 3
		m.list.SetSize(listWidth, m.height-2)
	case snapshotMsg:
		m.snapshot = workers.Snapshot(msg)
		m.list.SetItems(buildItems(m.snapshot))
		return m, waitForSnapshot(m.updates)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.snapshot.Err != nil {
		return errorStyle.Render(fmt.Sprintf("snapshot error: %v\n", m.snapshot.Err))
	}

	left := m.list.View()
	right := detailStyle.Render(detailFor(m))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func detailFor(m Model) string {
	selected, ok := m.list.SelectedItem().(row)
	if !ok {
		return "select a worktree or ticket to see detail"
	}
	switch selected.kind {
	case rowWorktree:
		wt := selected.worktree
		run, hasRun := m.snapshot.LatestRunByWT[wt.ID]
		body := fmt.Sprintf("%s\nbranch: %s\nstatus: %s\npath: %s\n", titleStyle.Render(wt.Slug), wt.Branch, cliutil.TitleStatus(wt.Status), wt.Path)
		if hasRun {
			body += fmt.Sprintf("\nlatest run: %s (%s)\n", run.ID[:8], cliutil.TitleStatus(run.Status))
		}
		return body
	case rowTicket:
		t := selected.ticket
		return fmt.Sprintf("%s\n\n%s", titleStyle.Render(t.Title), mdtext.Plain(t.Body))
	case rowRepo:
		r := selected.repo
		return fmt.Sprintf("%s\n%s\n%s\n", titleStyle.Render(r.Slug), r.RemoteURL, r.LocalPath)
	default:
		return ""
	}
}
