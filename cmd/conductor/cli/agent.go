package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conductor-dev/conductor/internal/adapters"
	"github.com/conductor-dev/conductor/internal/agentrunner"
	"github.com/conductor-dev/conductor/internal/cliutil"
	"github.com/conductor-dev/conductor/internal/config"
)

func newAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run and control coding-agent invocations against a worktree",
	}
	cmd.AddCommand(newAgentRunCommand(), newAgentStartCommand(), newAgentStopCommand(), newAgentListCommand())
	return cmd
}

// newAgentRunCommand implements `conductor agent run`, the leaf invoked
// inside a tmux window by Starter.Start. It blocks until the claude
// subprocess exits, writing a human-readable mirror of the stream to
// stderr as it goes.
func newAgentRunCommand() *cobra.Command {
	var runID, worktreePath, prompt, resume string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Spawn claude against an already-created agent run (internal)",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := agentrunner.New(app.Runs, agentLogDir(app))
			var resumePtr *string
			if resume != "" {
				resumePtr = &resume
			}
			_, err := runner.Spawn(context.Background(), runID, worktreePath, prompt, resumePtr)
			return err
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "id of the agent_runs row created by Starter.Start")
	cmd.Flags().StringVar(&worktreePath, "worktree-path", "", "worktree directory to run claude in")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt to send to claude")
	cmd.Flags().StringVar(&resume, "resume", "", "provider session id to resume")
	cmd.MarkFlagRequired("run-id")
	cmd.MarkFlagRequired("worktree-path")
	cmd.MarkFlagRequired("prompt")
	return cmd
}

func newAgentStartCommand() *cobra.Command {
	var resume string
	cmd := &cobra.Command{
		Use:   "start <worktree-id> <prompt>",
		Short: "Start an agent run in a new tmux window",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wt, err := app.Worktrees.GetByID(args[0])
			if err != nil {
				return err
			}
			conductorBin, err := os.Executable()
			if err != nil {
				conductorBin = "conductor"
			}
			starter := agentrunner.NewStarter(app.Runs, adapters.NewTmux("conductor"), conductorBin)
			var resumePtr *string
			if resume != "" {
				resumePtr = &resume
			}
			run, err := starter.Start(wt.ID, wt.Path, args[1], resumePtr)
			if err != nil {
				return err
			}
			fmt.Printf("started run %s\n", run.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&resume, "resume", "", "provider session id to resume")
	return cmd
}

func newAgentStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <run-id>",
		Short: "Cancel a running agent run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			starter := agentrunner.NewStarter(app.Runs, adapters.NewTmux("conductor"), "conductor")
			return starter.Stop(args[0])
		},
	}
}

func newAgentListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <worktree-id>",
		Short: "List every agent run against a worktree, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := app.Runs.ListForWorktree(args[0])
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s\t%s\t%s\n", r.ID, cliutil.TitleStatus(r.Status), r.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func agentLogDir(a *App) string {
	dir, err := config.ConductorDir()
	if err != nil {
		return "agent-logs"
	}
	return dir + "/agent-logs"
}
