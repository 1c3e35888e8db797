package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conductor-dev/conductor/internal/adapters"
	"github.com/conductor-dev/conductor/internal/cliutil"
	"github.com/conductor-dev/conductor/internal/ticketsync"
)

func newTicketsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Sync and inspect cached issue-tracker tickets",
	}
	cmd.AddCommand(newTicketsSyncCommand(), newTicketsListCommand(), newTicketsLinkCommand())
	return cmd
}

func newTicketsSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <repo-slug>",
		Short: "Run the fetch/upsert/reconcile pipeline for a repo's issue sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.Repos.GetBySlug(args[0])
			if err != nil {
				return err
			}
			sources, err := app.Sources.List(repo.ID)
			if err != nil {
				return err
			}
			syncer := ticketsync.New(app.Tickets, app.Worktrees, adapters.NewGitHub(), func(url string) ticketsync.JiraFetcher {
				return adapters.NewJira(url)
			})
			res, err := syncer.SyncRepo(repo, sources)
			fmt.Printf("synced %d, closed %d\n", res.Synced, res.Closed)
			return err
		},
	}
}

func newTicketsListCommand() *cobra.Command {
	var repoSlug string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			var repoID string
			if repoSlug != "" {
				repo, err := app.Repos.GetBySlug(repoSlug)
				if err != nil {
					return err
				}
				repoID = repo.ID
			}
			tickets, err := app.Tickets.List(repoID)
			if err != nil {
				return err
			}
			for _, t := range tickets {
				fmt.Printf("%s\t%s\t%s\t%s\n", t.ID, cliutil.TitleStatus(t.State), t.SourceKind, t.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repoSlug, "repo", "", "filter to a single repo")
	return cmd
}

func newTicketsLinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link <ticket-id> <worktree-id>",
		Short: "Link a cached ticket to a worktree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Tickets.LinkToWorktree(args[0], args[1])
		},
	}
}
