package cli

import (
	"github.com/spf13/cobra"
)

var (
	dbPathFlag string
	verboseFlag bool

	app *App
)

// NewRootCommand builds the full `conductor` command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "conductor",
		Short:         "Conductor orchestrates git worktrees and AI coding agents across repositories",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&dbPathFlag, "db", "", "path to the SQLite database (default ~/.conductor/conductor.db)")
	root.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "enable debug logging")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		a, err := NewApp(dbPathFlag, verboseFlag)
		if err != nil {
			return err
		}
		app = a
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
		}
	}

	root.AddCommand(
		newRepoCommand(),
		newWorktreeCommand(),
		newTicketsCommand(),
		newSessionCommand(),
		newAgentCommand(),
		newServeCommand(),
		newTUICommand(),
	)
	return root
}
