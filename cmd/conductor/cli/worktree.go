package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conductor-dev/conductor/internal/cliutil"
	"github.com/conductor-dev/conductor/internal/worktreemgr"
)

func newWorktreeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worktree",
		Short: "Manage git worktrees",
	}
	cmd.AddCommand(
		newWorktreeCreateCommand(),
		newWorktreeListCommand(),
		newWorktreeDeleteCommand(),
		newWorktreePurgeCommand(),
		newWorktreePushCommand(),
		newWorktreePRCommand(),
	)
	return cmd
}

func newWorktreeCreateCommand() *cobra.Command {
	var baseBranch, ticketID string
	cmd := &cobra.Command{
		Use:   "create <repo-slug> <name>",
		Short: "Create a branch and worktree for a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.Repos.GetBySlug(args[0])
			if err != nil {
				return err
			}
			var ticketPtr *string
			if ticketID != "" {
				ticketPtr = &ticketID
			}
			wt, err := worktreemgr.New(repo, app.Worktrees).Create(args[1], baseBranch, ticketPtr)
			if err != nil {
				return err
			}
			fmt.Printf("created worktree %s at %s (branch %s)\n", wt.Slug, wt.Path, wt.Branch)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseBranch, "base-branch", "", "branch to base the new branch on (default: repo's default branch)")
	cmd.Flags().StringVar(&ticketID, "ticket-id", "", "link the worktree to a ticket")
	return cmd
}

func newWorktreeListCommand() *cobra.Command {
	var repoSlug string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List worktrees",
		RunE: func(cmd *cobra.Command, args []string) error {
			var repoID string
			if repoSlug != "" {
				repo, err := app.Repos.GetBySlug(repoSlug)
				if err != nil {
					return err
				}
				repoID = repo.ID
			}
			wts, err := app.Worktrees.List(repoID)
			if err != nil {
				return err
			}
			for _, wt := range wts {
				fmt.Printf("%s\t%s\t%s\t%s\n", wt.Slug, wt.Branch, cliutil.TitleStatus(wt.Status), wt.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repoSlug, "repo", "", "filter to a single repo")
	return cmd
}

func newWorktreeDeleteCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <repo-slug> <worktree-slug>",
		Short: "Remove a worktree's git state and mark it abandoned",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.Repos.GetBySlug(args[0])
			if err != nil {
				return err
			}
			return worktreemgr.New(repo, app.Worktrees).Delete(args[1], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete even if the worktree has uncommitted changes")
	return cmd
}

func newWorktreePurgeCommand() *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "purge <repo-slug>",
		Short: "Permanently delete terminal-state worktree records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.Repos.GetBySlug(args[0])
			if err != nil {
				return err
			}
			n, err := worktreemgr.New(repo, app.Worktrees).Purge(slug)
			if err != nil {
				return err
			}
			fmt.Printf("purged %d worktree(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "purge a single worktree (default: every terminal-state worktree)")
	return cmd
}

func newWorktreePushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push <repo-slug> <worktree-slug>",
		Short: "Push a worktree's branch to origin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.Repos.GetBySlug(args[0])
			if err != nil {
				return err
			}
			return worktreemgr.New(repo, app.Worktrees).Push(args[1])
		},
	}
}

func newWorktreePRCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pr <repo-slug> <worktree-slug>",
		Short: "Push a worktree's branch and open a pull request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.Repos.GetBySlug(args[0])
			if err != nil {
				return err
			}
			url, err := worktreemgr.New(repo, app.Worktrees).CreatePR(args[1])
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}
}
