package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/aggregate"
)

// newAggregateCmd creates the 'aggregate' subcommand.
func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Recomputes per-grade price estimates",
		Long: `Recomputes the windowed average price for every item whose ingestion
round is complete, then reopens each item for the next cycle.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			agg := aggregate.New(
				appInstance.Observations,
				appInstance.Aggregates,
				appInstance.Progress,
				appInstance.Clock,
				appInstance.Notifier,
				appInstance.Logger,
				aggregate.WithGrades(appInstance.Cfg.Sync.Grades),
				aggregate.WithWindow(
					appInstance.Cfg.Aggregate.WindowDays,
					appInstance.Cfg.Aggregate.RecentSample,
				),
			)

			summary, err := agg.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run aggregation pass: %w", err)
			}
			appInstance.Logger.Info("aggregation pass finished",
				zap.Int("items", summary.Items),
				zap.Int("rows_written", summary.RowsWritten),
				zap.Int("items_failed", summary.ItemsFailed),
			)
			return nil
		},
	}
	return cmd
}
