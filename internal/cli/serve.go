package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenga/cms/internal/server"
)

const revocationPurgeInterval = time.Hour

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Starts the HTTP API server. Configuration is read from the environment
and from the --env-file. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := setupLogger(cmd.ErrOrStderr(), cfg)

			app, err := server.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("failed to close storage", slog.Any("error", err))
				}
			}()

			go app.PurgeRevocations(ctx, revocationPurgeInterval)

			return serve(ctx, logger, server.NewHTTPServer(cfg.Addr, app.Handler), cfg.ShutdownTimeout)
		},
	}
}

// serve runs srv until ctx is done, then shuts it down within timeout
func serve(ctx context.Context, logger *slog.Logger, srv *http.Server, timeout time.Duration) error {
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
