package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Track a developer's working session",
	}
	cmd.AddCommand(
		newSessionStartCommand(),
		newSessionEndCommand(),
		newSessionAttachCommand(),
		newSessionCurrentCommand(),
		newSessionListCommand(),
	)
	return cmd
}

func newSessionStartCommand() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open a new session; fails if one is already open",
		RunE: func(cmd *cobra.Command, args []string) error {
			var notesPtr *string
			if notes != "" {
				notesPtr = &notes
			}
			sess, err := app.Sessions.Start(notesPtr)
			if err != nil {
				return err
			}
			fmt.Printf("started session %s\n", sess.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "notes to attach to the session")
	return cmd
}

func newSessionEndCommand() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "end",
		Short: "Close the currently open session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var notesPtr *string
			if notes != "" {
				notesPtr = &notes
			}
			return app.Sessions.End(notesPtr)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "notes to record when ending the session")
	return cmd
}

func newSessionAttachCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <session-id> <worktree-id>",
		Short: "Record that a worktree was touched during a session (idempotent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Sessions.AddWorktree(args[0], args[1])
		},
	}
}

func newSessionCurrentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the currently open session, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.Sessions.Current()
			if err != nil {
				return err
			}
			fmt.Printf("%s\tstarted %s\n", sess.ID, sess.StartedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newSessionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every session, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := app.Sessions.List()
			if err != nil {
				return err
			}
			for _, s := range sessions {
				status := "open"
				if s.EndedAt != nil {
					status = "ended " + s.EndedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%s\t%s\t%s\n", s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), status)
			}
			return nil
		},
	}
}
