// Package aggregate computes windowed per-grade market-price estimates from
// the full persisted observation set.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/metrics"
	"github.com/banktcg/gradesync/internal/notify"
	"github.com/banktcg/gradesync/internal/pricing"
)

// Defaults for the estimation window.
const (
	DefaultWindowDays   = 14
	DefaultRecentSample = 3
)

// Aggregator recomputes AggregatePrice rows for completed items and hands
// them back to the next ingestion cycle.
type Aggregator struct {
	observations pricing.ObservationStore
	aggregates   pricing.AggregateStore
	progress     pricing.ProgressStore
	clock        pricing.Clock
	notifier     notify.Publisher
	grades       []int
	windowDays   int
	recentSample int
	pageSize     int
	logger       *zap.Logger
}

// Option tweaks Aggregator behavior.
type Option func(*Aggregator)

// WithGrades overrides the tracked grade set.
func WithGrades(grades []int) Option {
	return func(a *Aggregator) {
		if len(grades) > 0 {
			a.grades = grades
		}
	}
}

// WithWindow overrides the recency window and fallback sample size.
func WithWindow(days, recentSample int) Option {
	return func(a *Aggregator) {
		if days > 0 {
			a.windowDays = days
		}
		if recentSample > 0 {
			a.recentSample = recentSample
		}
	}
}

// New constructs an Aggregator.
func New(
	observations pricing.ObservationStore,
	aggregates pricing.AggregateStore,
	progress pricing.ProgressStore,
	clock pricing.Clock,
	notifier notify.Publisher,
	logger *zap.Logger,
	opts ...Option,
) *Aggregator {
	a := &Aggregator{
		observations: observations,
		aggregates:   aggregates,
		progress:     progress,
		clock:        clock,
		notifier:     notifier,
		grades:       pricing.DefaultTrackedGrades,
		windowDays:   DefaultWindowDays,
		recentSample: DefaultRecentSample,
		pageSize:     500,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summary reports one aggregation pass.
type Summary struct {
	Items       int `json:"items"`
	RowsWritten int `json:"rows_written"`
	ItemsFailed int `json:"items_failed"`
}

// Run recomputes estimates for every item currently marked Completed, then
// resets each touched item to Pending so the next cycle re-ingests it. A
// failure on one item leaves that item Completed and moves on.
func (a *Aggregator) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	cursor := ""
	for {
		ids, err := a.progress.ListCompleted(ctx, cursor, a.pageSize)
		if err != nil {
			return summary, fmt.Errorf("list completed items: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		cursor = ids[len(ids)-1]

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			rows, err := a.aggregateItem(ctx, id)
			if err != nil {
				summary.ItemsFailed++
				a.logger.Error("aggregate item failed", zap.String("product_id", id), zap.Error(err))
				continue
			}
			if err := a.progress.MarkPending(ctx, id); err != nil {
				summary.ItemsFailed++
				a.logger.Error("reset progress failed", zap.String("product_id", id), zap.Error(err))
				continue
			}
			summary.Items++
			summary.RowsWritten += rows
		}
	}

	metrics.AggregatePass(summary.Items)
	if summary.Items > 0 {
		a.notifier.Publish(ctx, notify.Event{
			Kind:  notify.KindPricesRefreshed,
			Count: summary.Items,
			At:    a.clock.Now(),
		})
	}
	a.logger.Info("aggregation pass finished",
		zap.Int("items", summary.Items),
		zap.Int("rows_written", summary.RowsWritten),
		zap.Int("items_failed", summary.ItemsFailed),
	)
	return summary, nil
}

func (a *Aggregator) aggregateItem(ctx context.Context, productID string) (int, error) {
	now := a.clock.Now()
	written := 0
	for _, grade := range a.grades {
		obs, err := a.observations.ListByGrade(ctx, productID, grade)
		if err != nil {
			return written, fmt.Errorf("list observations grade %d: %w", grade, err)
		}
		price, sample := a.estimate(obs, now)
		row := pricing.AggregatePrice{
			ProductID:  productID,
			Grade:      grade,
			Price:      price,
			SampleSize: sample,
			ComputedAt: now,
		}
		if err := a.aggregates.Upsert(ctx, row); err != nil {
			return written, fmt.Errorf("upsert aggregate grade %d: %w", grade, err)
		}
		written++
	}
	return written, nil
}

// estimate implements the windowed algorithm: mean of all sales inside the
// recency window; else mean of the most recent sales up to the fallback
// sample size; else the sentinel.
func (a *Aggregator) estimate(obs []pricing.SaleObservation, now time.Time) (float64, int) {
	if len(obs) == 0 {
		return pricing.SentinelPrice, 0
	}

	windowStart := now.AddDate(0, 0, -a.windowDays)
	var recent []pricing.SaleObservation
	for _, o := range obs {
		if !o.SaleDate.Before(windowStart) {
			recent = append(recent, o)
		}
	}
	if len(recent) > 0 {
		return mean(recent), len(recent)
	}

	sorted := append([]pricing.SaleObservation(nil), obs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SaleDate.After(sorted[j].SaleDate)
	})
	if len(sorted) > a.recentSample {
		sorted = sorted[:a.recentSample]
	}
	return mean(sorted), len(sorted)
}

func mean(obs []pricing.SaleObservation) float64 {
	var sum float64
	for _, o := range obs {
		sum += o.Price
	}
	return sum / float64(len(obs))
}
