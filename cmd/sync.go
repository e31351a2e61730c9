package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/app"
	"github.com/banktcg/gradesync/internal/engine"
	"github.com/banktcg/gradesync/internal/ingest"
	"github.com/banktcg/gradesync/internal/resolver"
	"github.com/banktcg/gradesync/internal/selector"
)

// newSyncCmd creates the 'sync' subcommand: one full selection + ingestion
// cycle, or a single-item run when --item is given.
func newSyncCmd() *cobra.Command {
	var (
		batchSize int
		delaySec  float64
		maxItems  int
		itemKey   string
		setName   string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Runs one price synchronization cycle",
		Long: `Marks eligible catalog items Pending, then resolves and ingests each
one sequentially. Items the source does not carry are completed without
prices; items that hit transient source failures stay Pending and are
retried on the next cycle.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			cfg := appInstance.Cfg
			if batchSize > 0 {
				cfg.Sync.BatchSize = batchSize
			}
			if cmd.Flags().Changed("delay") {
				cfg.Sync.DelaySeconds = delaySec
			}
			if maxItems > 0 {
				cfg.Sync.MaxItems = maxItems
			}

			eng := buildEngine(appInstance, engine.Config{
				BatchSize: cfg.Sync.BatchSize,
				Delay:     cfg.Sync.Delay(),
				MaxItems:  cfg.Sync.MaxItems,
				ItemKey:   itemKey,
				SetName:   setName,
			})

			if itemKey != "" {
				result, err := eng.ProcessOne(cmd.Context(), itemKey)
				if err != nil {
					return fmt.Errorf("sync item %q: %w", itemKey, err)
				}
				appInstance.Logger.Info("item synced",
					zap.String("variant_key", itemKey),
					zap.Int("written", result.Written),
					zap.Int("skipped", result.Skipped),
				)
				return nil
			}

			sel := selector.New(
				appInstance.Catalog,
				appInstance.Progress,
				appInstance.Resolutions,
				cfg.Sync.MinPrice,
				cfg.Sync.BatchSize,
				appInstance.Logger,
			)
			opened, err := sel.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("select items: %w", err)
			}
			appInstance.Logger.Info("selection pass finished",
				zap.Int("opened", opened.Opened),
				zap.Int("excluded", opened.Excluded),
			)

			start := time.Now()
			summary, err := eng.Run(cmd.Context())
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run sync cycle: %w", err)
			}
			appInstance.Logger.Info("sync cycle finished",
				zap.Int("processed", summary.Processed),
				zap.Int("succeeded", summary.Succeeded),
				zap.Int("failed", summary.Failed),
				zap.Int("not_found", summary.NotFound),
				zap.Int("observations_written", summary.ObservationsWritten),
				zap.Duration("elapsed", time.Since(start)),
			)
			return err
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "page size when listing pending items")
	cmd.Flags().Float64Var(&delaySec, "delay", 0, "seconds to pause between items")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "cap the number of items processed (0 = no cap)")
	cmd.Flags().StringVar(&itemKey, "item", "", "sync a single item by variant key")
	cmd.Flags().StringVar(&setName, "set", "", "restrict the cycle to one set")

	return cmd
}

func buildEngine(a *app.App, cfg engine.Config) *engine.Engine {
	res := resolver.New(a.Lookup, a.Resolutions, a.Logger)
	ing := ingest.New(a.Lookup, a.Observations, a.Catalog, a.Cfg.Sync.Grades, a.Logger)
	return engine.New(a.Catalog, a.Progress, res, ing, a.Clock, a.Notifier, cfg, a.Logger)
}
