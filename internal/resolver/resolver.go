// Package resolver maps catalog items to external source references, using
// a persistent cache first and falling back to search with fuzzy
// disambiguation against the item's set name.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	smetrics "github.com/adrg/strutil/metrics"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/pricing"
)

// similarityThreshold is the minimum set-label similarity a candidate must
// exceed to be considered a match.
const similarityThreshold = 0.3

// Resolver resolves items to source references.
type Resolver struct {
	lookup pricing.SourceLookup
	cache  pricing.ResolutionStore
	metric *smetrics.RatcliffObershelp
	logger *zap.Logger
}

// New constructs a Resolver.
func New(lookup pricing.SourceLookup, cache pricing.ResolutionStore, logger *zap.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  cache,
		metric: smetrics.NewRatcliffObershelp(),
		logger: logger,
	}
}

// Resolve returns the source reference for item. A cached reference
// short-circuits search entirely; on a fresh match the winner is persisted
// to the cache before returning. pricing.ErrNoMatch means no candidate
// cleared the threshold; that outcome is deliberately not cached so the next
// cycle searches again.
func (r *Resolver) Resolve(ctx context.Context, item pricing.CatalogItem) (string, error) {
	cached, err := r.cache.Get(ctx, item.ID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, pricing.ErrNotFound) {
		return "", fmt.Errorf("read resolution cache: %w", err)
	}

	query := buildQuery(item.Name, item.Number)
	if query == "" {
		r.logger.Warn("item has no searchable attributes", zap.String("product_id", item.ID))
		return "", pricing.ErrNoMatch
	}

	result, err := r.lookup.Search(ctx, query)
	if err != nil {
		return "", pricing.Transient("search source", err)
	}

	ref := result.Reference
	if !result.Direct() {
		ref = r.pickCandidate(item, result.Candidates)
		if ref == "" {
			r.logger.Info("no candidate cleared similarity threshold",
				zap.String("product_id", item.ID),
				zap.String("query", query),
				zap.Int("candidates", len(result.Candidates)),
			)
			return "", pricing.ErrNoMatch
		}
	}

	if err := r.cache.Put(ctx, item.ID, ref); err != nil {
		return "", fmt.Errorf("persist resolution: %w", err)
	}
	r.logger.Debug("resolved item",
		zap.String("product_id", item.ID),
		zap.String("source_ref", ref),
		zap.Bool("direct", result.Direct()),
	)
	return ref, nil
}

// pickCandidate scores each candidate's set label against the item's
// normalized set name and returns the best reference above the threshold.
// Ties keep the first-encountered candidate.
func (r *Resolver) pickCandidate(item pricing.CatalogItem, candidates []pricing.Candidate) string {
	target := strings.ToLower(normalizeSetName(item.SetName))
	best := similarityThreshold
	var winner string
	for _, c := range candidates {
		label := strings.ToLower(strings.TrimSpace(c.SetLabel))
		score := strutil.Similarity(target, label, r.metric)
		if score > best {
			best = score
			winner = c.Reference
		}
	}
	return winner
}
