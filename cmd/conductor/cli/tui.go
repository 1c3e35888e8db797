package cli

import (
	"github.com/spf13/cobra"

	"github.com/conductor-dev/conductor/internal/config"
	"github.com/conductor-dev/conductor/internal/tui"
)

func newTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := dbPathFlag
			if dbPath == "" {
				var err error
				dbPath, err = config.DBPath()
				if err != nil {
					return err
				}
			}
			return tui.Run(dbPath, app.Logger)
		},
	}
}
