// Package cmd defines and implements the CLI commands for the gradesync executable.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banktcg/gradesync/internal/app"
	"github.com/banktcg/gradesync/internal/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can
// replace it with a factory producing an App over in-memory stores.
var newApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command. The application
// is built in PersistentPreRunE, after config is loaded, and stashed in
// the command context for subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gradesync",
		Short: "Synchronizes graded-card sale prices from external sources.",
		Long: `gradesync keeps a card catalog's per-grade price estimates current.
It resolves catalog items against an external price source, ingests
per-grade sale observations with deduplication, and aggregates them
into windowed average prices.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gradesync.yaml)")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newAggregateCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() error {
	return newRootCmd().Execute()
}
