// Package engine drives the per-cycle pipeline: page Pending items, resolve
// and ingest each one sequentially, and mark terminal outcomes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/ingest"
	"github.com/banktcg/gradesync/internal/metrics"
	"github.com/banktcg/gradesync/internal/notify"
	"github.com/banktcg/gradesync/internal/pricing"
	"github.com/banktcg/gradesync/internal/resolver"
)

// Config controls one sync run.
type Config struct {
	// BatchSize is the page size used when listing Pending items.
	BatchSize int
	// Delay is the pause between external calls for consecutive items. The
	// source tolerates only a modest request rate; processing stays
	// sequential on purpose.
	Delay time.Duration
	// MaxItems optionally caps the run. Zero means no cap.
	MaxItems int
	// ItemKey restricts the run to a single item by variant key.
	ItemKey string
	// SetName restricts the run to items of one set.
	SetName string
}

// Summary is the end-of-run report.
type Summary struct {
	Processed           int `json:"processed"`
	Succeeded           int `json:"succeeded"`
	Failed              int `json:"failed"`
	NotFound            int `json:"not_found"`
	ObservationsWritten int `json:"observations_written"`
	ObservationsSkipped int `json:"observations_skipped"`
}

// Engine executes sync cycles over the progress state machine.
type Engine struct {
	catalog  pricing.CatalogStore
	progress pricing.ProgressStore
	resolver *resolver.Resolver
	ingestor *ingest.Ingestor
	clock    pricing.Clock
	notifier notify.Publisher
	cfg      Config
	logger   *zap.Logger
}

// New constructs an Engine.
func New(
	catalog pricing.CatalogStore,
	progress pricing.ProgressStore,
	res *resolver.Resolver,
	ing *ingest.Ingestor,
	clock pricing.Clock,
	notifier notify.Publisher,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Engine{
		catalog:  catalog,
		progress: progress,
		resolver: res,
		ingestor: ing,
		clock:    clock,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run processes Pending items until none remain, the MaxItems cap is hit, or
// the context finishes. Items are handled one at a time in stable ID order;
// each item's effects commit independently, so a crash leaves at most the
// in-flight item ambiguous and safely retriable.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	start := e.clock.Now()
	var summary Summary

	cursor := ""
	for {
		if e.cfg.MaxItems > 0 && summary.Processed >= e.cfg.MaxItems {
			e.logger.Info("max items cap reached", zap.Int("max_items", e.cfg.MaxItems))
			break
		}

		ids, err := e.progress.ListPending(ctx, cursor, e.cfg.BatchSize)
		if err != nil {
			return summary, fmt.Errorf("list pending items: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		// The cursor only ever advances, so items completed mid-run are not
		// revisited and items that stay Pending (transient failures) are not
		// retried until the next cycle.
		cursor = ids[len(ids)-1]

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if e.cfg.MaxItems > 0 && summary.Processed >= e.cfg.MaxItems {
				break
			}

			item, err := e.catalog.GetItem(ctx, id)
			if err != nil {
				e.logger.Error("load item failed", zap.String("product_id", id), zap.Error(err))
				summary.Processed++
				summary.Failed++
				continue
			}
			if !e.selected(item) {
				continue
			}

			summary.Processed++
			e.processItem(ctx, item, &summary)

			if e.cfg.Delay > 0 {
				if err := sleepCtx(ctx, e.cfg.Delay); err != nil {
					return summary, err
				}
			}
		}
	}

	metrics.CycleDuration(e.clock.Now().Sub(start))
	e.notifier.Publish(ctx, notify.Event{
		Kind:     notify.KindCycleFinished,
		Count:    summary.Succeeded,
		Failed:   summary.Failed,
		NotFound: summary.NotFound,
		At:       e.clock.Now(),
	})
	e.logger.Info("sync cycle finished",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("not_found", summary.NotFound),
		zap.Int("observations_written", summary.ObservationsWritten),
	)
	return summary, nil
}

// processItem runs resolve then ingest for one item and applies the terminal
// progress transition. Transient and persistence failures leave the item
// Pending for the next cycle; no failure aborts the batch.
func (e *Engine) processItem(ctx context.Context, item pricing.CatalogItem, summary *Summary) {
	ref, err := e.resolver.Resolve(ctx, item)
	switch {
	case errors.Is(err, pricing.ErrNoMatch):
		// Definitive: close the item for this cycle. The cache stays unset so
		// the next cycle searches again.
		if merr := e.progress.MarkCompleted(ctx, item.ID); merr != nil {
			e.logger.Error("mark completed failed", zap.String("product_id", item.ID), zap.Error(merr))
			summary.Failed++
			metrics.ItemProcessed("failed")
			return
		}
		summary.NotFound++
		metrics.ItemProcessed("not_found")
		return
	case err != nil:
		e.logger.Warn("resolve failed; item stays pending",
			zap.String("product_id", item.ID),
			zap.Bool("transient", pricing.IsTransient(err)),
			zap.Error(err),
		)
		summary.Failed++
		metrics.ItemProcessed("failed")
		return
	}

	result, err := e.ingestor.Ingest(ctx, item, ref)
	if err != nil {
		e.logger.Warn("ingest failed; item stays pending",
			zap.String("product_id", item.ID),
			zap.Bool("transient", pricing.IsTransient(err)),
			zap.Error(err),
		)
		summary.Failed++
		metrics.ItemProcessed("failed")
		return
	}

	if err := e.progress.MarkCompleted(ctx, item.ID); err != nil {
		e.logger.Error("mark completed failed", zap.String("product_id", item.ID), zap.Error(err))
		summary.Failed++
		metrics.ItemProcessed("failed")
		return
	}

	summary.Succeeded++
	summary.ObservationsWritten += result.Written
	summary.ObservationsSkipped += result.Skipped
	metrics.ItemProcessed("succeeded")
}

// ProcessOne resolves and ingests a single item by variant key, bypassing
// the progress state machine. Used by the on-demand HTTP surface.
func (e *Engine) ProcessOne(ctx context.Context, variantKey string) (pricing.IngestResult, error) {
	item, err := e.catalog.GetItemByKey(ctx, variantKey)
	if err != nil {
		return pricing.IngestResult{}, err
	}
	ref, err := e.resolver.Resolve(ctx, item)
	if err != nil {
		return pricing.IngestResult{}, err
	}
	return e.ingestor.Ingest(ctx, item, ref)
}

func (e *Engine) selected(item pricing.CatalogItem) bool {
	if e.cfg.ItemKey != "" && item.VariantKey != e.cfg.ItemKey {
		return false
	}
	if e.cfg.SetName != "" && item.SetName != e.cfg.SetName {
		return false
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
