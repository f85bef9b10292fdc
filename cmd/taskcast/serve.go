package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/httpapi"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/schedule"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API and run the archival sweep in the background",
	Long: `Start the HTTP API and the background archival sweeper.

Callers identify themselves with the X-User-ID header. The sweeper runs
once at startup and then every retention.sweep_interval.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, true, func(a *app) error {
			addr := a.cfg.HTTP.Addr
			if serveAddr != "" {
				addr = serveAddr
			}

			runner := schedule.New(a.svc.RunArchivalSweep, a.cfg.Retention.SweepInterval, a.logger)
			runner.Start(ctx)
			defer runner.Stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewServer(a.svc, a.logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", slog.String("addr", addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http.addr)")
	rootCmd.AddCommand(serveCmd)
}
