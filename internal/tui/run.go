package tui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/conductor-dev/conductor/internal/workers"
)

// Run opens an independent database handle, starts a 2-second snapshot
// poller against it, and drives the Bubble Tea dashboard until the user
// quits.
func Run(dbPath string, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller, err := workers.NewPoller(dbPath, 2*time.Second, logger)
	if err != nil {
		return err
	}
	defer poller.Close()

	updates := make(chan workers.Snapshot)
	go poller.Run(ctx, updates)

	program := tea.NewProgram(New(updates, cancel), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
