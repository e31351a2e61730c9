package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/engine"
	"github.com/banktcg/gradesync/internal/server"
)

// newServeCmd creates the 'serve' subcommand: the on-demand HTTP API.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the on-demand sync API",
		Long: `Starts an HTTP server exposing single-item synchronization, health,
and Prometheus metrics endpoints.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			eng := buildEngine(appInstance, engine.Config{
				BatchSize: appInstance.Cfg.Sync.BatchSize,
				Delay:     appInstance.Cfg.Sync.Delay(),
			})
			srv := server.New(eng, appInstance.Logger)

			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", appInstance.Cfg.Server.Port),
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				appInstance.Logger.Info("http server listening", zap.String("addr", httpServer.Addr))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			appInstance.Logger.Info("http server stopped")
			return nil
		},
	}
	return cmd
}
