package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conductor-dev/conductor/internal/adapters"
	"github.com/conductor-dev/conductor/internal/conductorerr"
)

func newRepoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage registered repositories",
	}
	cmd.AddCommand(newRepoAddCommand(), newRepoListCommand(), newRepoRemoveCommand(), newRepoSourcesCommand())
	return cmd
}

func newRepoAddCommand() *cobra.Command {
	var slug, localPath, workspace string
	cmd := &cobra.Command{
		Use:   "add [url]",
		Short: "Register a repository by its remote URL",
		Long: "Register a repository by its remote URL. If url is omitted, --local-path\n" +
			"must point at an existing clone, and the URL is read from its \"origin\" remote.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remoteURL := ""
			if len(args) == 1 {
				remoteURL = args[0]
			} else {
				if localPath == "" {
					return &conductorerr.ConfigError{Msg: "either a url argument or --local-path is required"}
				}
				url, err := adapters.NewGit(localPath).RemoteURL()
				if err != nil {
					return err
				}
				remoteURL = url
			}

			repo, err := app.Repos.Add(slug, localPath, remoteURL, workspace)
			if err != nil {
				return err
			}
			fmt.Printf("added repo %s (%s)\n", repo.Slug, repo.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "repo slug (default: derived from the URL)")
	cmd.Flags().StringVar(&localPath, "local-path", "", "local clone path (default: <workspace_root>/<slug>/main); required if url is omitted")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace directory for worktrees (default: <workspace_root>/<slug>)")
	return cmd
}

func newRepoListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, err := app.Repos.List()
			if err != nil {
				return err
			}
			for _, r := range repos {
				fmt.Printf("%s\t%s\t%s\n", r.Slug, r.RemoteURL, r.LocalPath)
			}
			return nil
		},
	}
}

func newRepoRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <slug>",
		Short: "Remove a repository and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Repos.Remove(args[0])
		},
	}
}

func newRepoSourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage a repository's issue-tracker sources",
	}
	cmd.AddCommand(newSourcesAddCommand(), newSourcesListCommand(), newSourcesRemoveCommand())
	return cmd
}

func newSourcesAddCommand() *cobra.Command {
	var configJSON string
	cmd := &cobra.Command{
		Use:   "add <repo-slug> <github|jira>",
		Short: "Bind an issue-tracker source to a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.Repos.GetBySlug(args[0])
			if err != nil {
				return err
			}
			src, err := app.Sources.Add(repo, args[1], configJSON)
			if err != nil {
				return err
			}
			fmt.Printf("added %s source %s\n", src.SourceKind, src.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&configJSON, "config", "", `source config as JSON (e.g. {"owner":"o","repo":"r"} or {"jql":"...","url":"..."})`)
	return cmd
}

func newSourcesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <repo-slug>",
		Short: "List a repository's issue-tracker sources",
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
			for _, s := range sources {
				fmt.Printf("%s\t%s\t%s\n", s.ID, s.SourceKind, s.ConfigJSON)
			}
			return nil
		},
	}
}

func newSourcesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <source-id>",
		Short: "Remove an issue-tracker source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Sources.Remove(args[0])
		},
	}
}
