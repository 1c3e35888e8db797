package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conductor-dev/conductor/internal/config"
	"github.com/conductor-dev/conductor/internal/httpapi"
	"github.com/conductor-dev/conductor/internal/workers"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP+SSE service and the background ticket-sync scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(app, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8420", "listen address (loopback only: the HTTP surface has no authentication)")
	return cmd
}

func runServe(a *App, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPath, err := config.DBPath()
	if err != nil {
		return err
	}
	syncInterval := time.Duration(a.Config.General.SyncIntervalMinutes) * time.Minute
	syncTimer, err := workers.NewSyncTimer(dbPath, syncInterval, a.Bus, a.Logger)
	if err != nil {
		return fmt.Errorf("start sync timer: %w", err)
	}
	defer syncTimer.Close()
	go syncTimer.Run(ctx)

	srv := httpapi.New(a.DB, a.Config, a.Bus, a.Logger)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("conductor serving on http://%s\n", addr)
	if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
