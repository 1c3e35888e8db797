package agentrunner

import (
	"fmt"
	"os"
	"strings"

	"github.com/conductor-dev/conductor/internal/adapters"
	"github.com/conductor-dev/conductor/internal/conductorerr"
	"github.com/conductor-dev/conductor/internal/store"
)

// Starter is the bridge between a worktree-scoped "start an agent" request
// (from the HTTP API or the CLI) and an actual tmux window running
// `conductor agent run`. The subprocess itself is spawned by that CLI
// invocation, not by Starter directly, so the at-most-one-running check and
// the tmux bookkeeping happen here while the streaming/log pipeline happens
// inside Runner.Spawn (runner.go), run from inside the window.
type Starter struct {
	runs         *store.AgentRunStore
	tmux         *adapters.Tmux
	conductorBin string
}

// NewStarter constructs a Starter. conductorBin is the path to the
// conductor binary to re-invoke inside the tmux window (the CLI and HTTP
// callers pass os.Executable()).
func NewStarter(runs *store.AgentRunStore, tmux *adapters.Tmux, conductorBin string) *Starter {
	return &Starter{runs: runs, tmux: tmux, conductorBin: conductorBin}
}

// Start enforces the at-most-one-running invariant for worktreeID, creates
// the run row, and opens a tmux window that re-invokes the conductor binary
// as `agent run --run-id <id> --worktree-path <path> --prompt <prompt>
// [--resume <session>]`. The window name is persisted onto the run once
// known.
func (st *Starter) Start(worktreeID, worktreePath, prompt string, resumeSessionID *string) (*store.AgentRun, error) {
	if latest, err := st.runs.LatestForWorktree(worktreeID); err == nil && latest.Status == store.RunRunning {
		return nil, &conductorerr.AgentError{Msg: fmt.Sprintf("an agent run is already in progress for worktree %s", worktreeID)}
	}

	run, err := st.runs.CreateRun(worktreeID, prompt, nil)
	if err != nil {
		return nil, err
	}

	windowName := "agent-" + run.ID[:8]
	args := []string{
		"agent", "run",
		"--run-id", run.ID,
		"--worktree-path", worktreePath,
		"--prompt", prompt,
	}
	if resumeSessionID != nil && *resumeSessionID != "" {
		args = append(args, "--resume", *resumeSessionID)
	}

	command := st.conductorBin
	for _, a := range args {
		command += " " + shellQuote(a)
	}

	target, err := st.tmux.NewWindow(windowName, worktreePath, command)
	if err != nil {
		st.runs.UpdateRunFailed(run.ID, err.Error())
		return run, err
	}
	if err := st.runs.UpdateRunTmuxWindow(run.ID, target); err != nil {
		return run, err
	}
	run.TmuxWindow = &target
	return run, nil
}

// Stop cancels a run in progress. It captures the tmux window's scrollback
// to the run's log file on a best-effort basis, kills the window, and
// transitions the run to cancelled. Stopping a run that is not currently
// running returns an AgentError.
func (st *Starter) Stop(runID string) error {
	run, err := st.runs.GetRun(runID)
	if err != nil {
		return err
	}
	if run.Status != store.RunRunning {
		return &conductorerr.AgentError{Msg: fmt.Sprintf("run %s is not running (status: %s)", runID, run.Status)}
	}

	if run.TmuxWindow != nil {
		if scrollback, err := st.tmux.CapturePane(*run.TmuxWindow); err == nil && run.LogFile != nil {
			if f, err := os.OpenFile(*run.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644); err == nil {
				fmt.Fprintf(f, "\n--- scrollback at cancellation ---\n%s\n", scrollback)
				f.Close()
			}
		}
		st.tmux.KillWindow(*run.TmuxWindow)
	}

	return st.runs.UpdateRunCancelled(runID)
}

// shellQuote wraps s in single quotes for safe inclusion in a shell command
// line, escaping any embedded single quote.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
