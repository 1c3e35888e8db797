// Package agentrunner spawns the claude CLI against a worktree, persists its
// streaming-JSON log, and tracks the resulting agent_runs row to completion.
package agentrunner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/conductor-dev/conductor/internal/conductorerr"
	"github.com/conductor-dev/conductor/internal/store"
)

// Runner spawns agent subprocesses and records their outcome.
type Runner struct {
	runs       *store.AgentRunStore
	logDir     string
	claudePath string
}

// New constructs a Runner. logDir is the directory raw stream-JSON logs are
// written to, one file per run.
func New(runs *store.AgentRunStore, logDir string) *Runner {
	claudePath := "claude"
	if p, err := exec.LookPath("claude"); err == nil {
		claudePath = p
	}
	return &Runner{runs: runs, logDir: logDir, claudePath: claudePath}
}

// Run creates a new agent_runs row for worktreeID and spawns `claude`
// against it. For callers that don't pre-create the run (direct,
// non-tmux invocations).
func (r *Runner) Run(ctx context.Context, worktreeID, worktreePath, prompt string, tmuxWindow *string) (*store.AgentRun, error) {
	run, err := r.runs.CreateRun(worktreeID, prompt, tmuxWindow)
	if err != nil {
		return nil, err
	}
	return r.spawn(ctx, run, worktreePath, prompt, nil)
}

// Spawn verifies that runID names an existing run, then spawns `claude`
// against it. This is what the `conductor agent run` CLI subcommand calls
// when invoked inside a tmux window by Starter.Start: the run row is
// created beforehand so its id can be passed on the command line.
func (r *Runner) Spawn(ctx context.Context, runID, worktreePath, prompt string, resumeSessionID *string) (*store.AgentRun, error) {
	run, err := r.runs.GetRun(runID)
	if err != nil {
		return nil, err
	}
	return r.spawn(ctx, run, worktreePath, prompt, resumeSessionID)
}

func (r *Runner) spawn(ctx context.Context, run *store.AgentRun, worktreePath, prompt string, resumeSessionID *string) (*store.AgentRun, error) {
	if err := os.MkdirAll(r.logDir, 0o755); err != nil {
		r.runs.UpdateRunFailed(run.ID, err.Error())
		return run, &conductorerr.IOError{Op: "create agent log directory", Err: err}
	}
	logPath := filepath.Join(r.logDir, run.ID+".jsonl")
	if err := r.runs.UpdateRunLogFile(run.ID, logPath); err != nil {
		return run, err
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		r.runs.UpdateRunFailed(run.ID, err.Error())
		return run, &conductorerr.IOError{Op: "create agent log file", Err: err}
	}
	defer logFile.Close()

	args := []string{
		"-p", prompt,
		"--output-format", "stream-json",
		"--verbose",
		"--dangerously-skip-permissions",
	}
	if resumeSessionID != nil && *resumeSessionID != "" {
		args = append(args, "--resume", *resumeSessionID)
	}

	cmd := exec.CommandContext(ctx, r.claudePath, args...)
	cmd.Dir = worktreePath

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.runs.UpdateRunFailed(run.ID, err.Error())
		return run, &conductorerr.AgentError{Msg: "failed to attach stdout pipe: " + err.Error()}
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		r.runs.UpdateRunFailed(run.ID, err.Error())
		return run, &conductorerr.AgentError{Msg: "failed to start claude: " + err.Error()}
	}

	var lastResult streamResultSummary
	var sessionID string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(logFile, line)

		var rec streamRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		printEventSummary(rec)
		if sessionID == "" && rec.SessionID != "" {
			sessionID = rec.SessionID
		}
		if rec.Type == "result" {
			lastResult = streamResultSummary{
				IsError:    rec.IsError,
				Result:     rec.Result,
				CostUSD:    rec.CostUSD,
				Turns:      rec.Turns,
				DurationMS: rec.DurMS,
			}
		}
	}
	waitErr := cmd.Wait()

	var providerSession *string
	if sessionID != "" {
		providerSession = &sessionID
	}

	switch {
	case waitErr == nil && !lastResult.IsError:
		if err := r.runs.UpdateRunCompleted(run.ID, lastResult.Result, lastResult.CostUSD, lastResult.Turns, lastResult.DurationMS, providerSession); err != nil {
			return run, err
		}
		return r.runs.GetRun(run.ID)
	case lastResult.IsError:
		msg := lastResult.Result
		if msg == "" {
			msg = "Claude reported an error"
		}
		if err := r.runs.UpdateRunFailed(run.ID, msg); err != nil {
			return run, err
		}
		return r.runs.GetRun(run.ID)
	default:
		var exitErr *exec.ExitError
		var msg string
		if errors.As(waitErr, &exitErr) {
			msg = fmt.Sprintf("Claude exited with status: %d", exitErr.ExitCode())
		} else {
			msg = fmt.Sprintf("Error waiting for claude: %v", waitErr)
		}
		if err := r.runs.UpdateRunFailed(run.ID, msg); err != nil {
			return run, err
		}
		return r.runs.GetRun(run.ID)
	}
}

// Cancel marks a run as cancelled. The caller is responsible for actually
// terminating the subprocess (e.g. via its tmux window).
func (r *Runner) Cancel(runID string) error {
	return r.runs.UpdateRunCancelled(runID)
}

type streamResultSummary struct {
	IsError    bool
	Result     string
	CostUSD    float64
	Turns      int64
	DurationMS int64
}

// printEventSummary duplicates a human-readable summary of a single
// stream-JSON record to stderr as it arrives, mirroring the raw log being
// written to disk.
func printEventSummary(rec streamRecord) {
	switch rec.Type {
	case "system":
		if rec.Subtype == "init" {
			fmt.Fprintf(os.Stderr, "[agent] session started (model: %s)\n", rec.Model)
		}
	case "assistant":
		var msg messageBlock
		if err := json.Unmarshal(rec.Message, &msg); err != nil {
			return
		}
		for _, block := range msg.Content {
			switch block.Type {
			case "text":
				for _, l := range strings.Split(block.Text, "\n") {
					if l = strings.TrimSpace(l); l != "" {
						fmt.Fprintf(os.Stderr, "[agent] %s\n", l)
					}
				}
			case "tool_use":
				fmt.Fprintf(os.Stderr, "[tool: %s]\n", block.Name)
			}
		}
	case "result":
		fmt.Fprintf(os.Stderr, "[agent] %s\n", truncateResult(rec.Result))
	}
}

// truncateResult clips a result snapshot to 200 characters for the
// stderr summary line; the log file keeps the untruncated record.
func truncateResult(s string) string {
	r := []rune(s)
	if len(r) <= 200 {
		return s
	}
	return string(r[:200])
}
