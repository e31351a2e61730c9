// Package selector decides which catalog items enter a sync cycle and
// (re)opens their progress records.
package selector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/pricing"
)

// DefaultMinPrice is the eligibility floor on the item's market price.
const DefaultMinPrice = 15

// Selector reopens progress records for eligible items, excluding items
// whose cached source reference collides with another item's. A shared
// reference means disambiguation went wrong for at least one of them, so
// neither is safe to ingest.
type Selector struct {
	catalog     pricing.CatalogStore
	progress    pricing.ProgressStore
	resolutions pricing.ResolutionStore
	minPrice    float64
	pageSize    int
	logger      *zap.Logger
}

// New constructs a Selector. A non-positive minPrice falls back to the
// default floor.
func New(
	catalog pricing.CatalogStore,
	progress pricing.ProgressStore,
	resolutions pricing.ResolutionStore,
	minPrice float64,
	pageSize int,
	logger *zap.Logger,
) *Selector {
	if minPrice <= 0 {
		minPrice = DefaultMinPrice
	}
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Selector{
		catalog:     catalog,
		progress:    progress,
		resolutions: resolutions,
		minPrice:    minPrice,
		pageSize:    pageSize,
		logger:      logger,
	}
}

// Result reports one selection pass.
type Result struct {
	Opened   int `json:"opened"`
	Excluded int `json:"excluded"`
}

// Run pages all eligible items and forces each one's progress record to
// Pending, creating records as needed.
func (s *Selector) Run(ctx context.Context) (Result, error) {
	var res Result

	excluded, err := s.collidingItems(ctx)
	if err != nil {
		return res, err
	}

	cursor := ""
	for {
		items, err := s.catalog.ListEligible(ctx, s.minPrice, cursor, s.pageSize)
		if err != nil {
			return res, fmt.Errorf("list eligible items: %w", err)
		}
		if len(items) == 0 {
			break
		}
		cursor = items[len(items)-1].ID

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if _, collides := excluded[item.ID]; collides {
				res.Excluded++
				continue
			}
			if err := s.progress.MarkPending(ctx, item.ID); err != nil {
				return res, fmt.Errorf("open progress for %s: %w", item.ID, err)
			}
			res.Opened++
		}
	}

	s.logger.Info("selection pass finished",
		zap.Float64("min_price", s.minPrice),
		zap.Int("opened", res.Opened),
		zap.Int("excluded", res.Excluded),
	)
	return res, nil
}

func (s *Selector) collidingItems(ctx context.Context) (map[string]struct{}, error) {
	shared, err := s.resolutions.ListShared(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shared references: %w", err)
	}
	excluded := make(map[string]struct{})
	for ref, ids := range shared {
		s.logger.Warn("source reference shared by multiple items; excluding all of them",
			zap.String("source_ref", ref),
			zap.Strings("product_ids", ids),
		)
		for _, id := range ids {
			excluded[id] = struct{}{}
		}
	}
	return excluded, nil
}
