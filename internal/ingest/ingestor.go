// Package ingest harvests per-grade sale observations for a resolved item
// and persists them with natural-key dedup.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/metrics"
	"github.com/banktcg/gradesync/internal/pricing"
)

// saleDateLayouts are the date formats the source emits.
var saleDateLayouts = []string{time.DateOnly, "Jan 2, 2006"}

// Ingestor pulls raw observations from the source and upserts them.
type Ingestor struct {
	lookup       pricing.SourceLookup
	observations pricing.ObservationStore
	catalog      pricing.CatalogStore
	grades       []int
	logger       *zap.Logger
}

// New constructs an Ingestor tracking the given grades. A nil or empty grade
// set falls back to the defaults.
func New(
	lookup pricing.SourceLookup,
	observations pricing.ObservationStore,
	catalog pricing.CatalogStore,
	grades []int,
	logger *zap.Logger,
) *Ingestor {
	if len(grades) == 0 {
		grades = pricing.DefaultTrackedGrades
	}
	return &Ingestor{
		lookup:       lookup,
		observations: observations,
		catalog:      catalog,
		grades:       grades,
		logger:       logger,
	}
}

// Ingest fetches the observation batch for sourceRef, writes every
// well-formed observation that is not already persisted, and replaces the
// item's population snapshot. Zero new rows is a normal, successful outcome.
// Malformed individual observations are skipped and counted; the rest of the
// batch still commits.
func (g *Ingestor) Ingest(
	ctx context.Context,
	item pricing.CatalogItem,
	sourceRef string,
) (pricing.IngestResult, error) {
	batch, err := g.lookup.FetchObservations(ctx, sourceRef)
	if err != nil {
		return pricing.IngestResult{}, pricing.Transient("fetch observations", err)
	}

	var result pricing.IngestResult
	var rows []pricing.SaleObservation
	for _, grade := range g.grades {
		for _, raw := range batch.Sales[grade] {
			result.Fetched++
			obs, ok := g.buildObservation(item.ID, grade, raw)
			if !ok {
				result.Skipped++
				continue
			}
			rows = append(rows, obs)
		}
	}

	written, err := g.observations.InsertObservations(ctx, rows)
	if err != nil {
		return pricing.IngestResult{}, fmt.Errorf("insert observations: %w", err)
	}
	result.Written = written

	pop := validatePopulation(batch.Population)
	if err := g.catalog.ReplacePopulation(ctx, item.ID, pop); err != nil {
		return pricing.IngestResult{}, fmt.Errorf("replace population: %w", err)
	}
	result.Population = pop

	metrics.ObservationsWritten(result.Written)
	metrics.ObservationsSkipped(result.Skipped)
	g.logger.Info("ingested item",
		zap.String("product_id", item.ID),
		zap.Int("fetched", result.Fetched),
		zap.Int("written", result.Written),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// buildObservation validates one raw sale. Missing price or an unparsable
// date makes it malformed.
func (g *Ingestor) buildObservation(productID string, grade int, raw pricing.RawSale) (pricing.SaleObservation, bool) {
	if raw.Price <= 0 || raw.Date == "" || raw.SourceRef == "" {
		g.logger.Debug("skipping incomplete sale record",
			zap.String("product_id", productID),
			zap.Int("grade", grade),
			zap.String("date", raw.Date),
		)
		return pricing.SaleObservation{}, false
	}
	date, ok := parseSaleDate(raw.Date)
	if !ok {
		g.logger.Debug("skipping sale with unparsable date",
			zap.String("product_id", productID),
			zap.String("date", raw.Date),
		)
		return pricing.SaleObservation{}, false
	}
	return pricing.SaleObservation{
		ProductID: productID,
		Grade:     grade,
		SaleDate:  date,
		Price:     raw.Price,
		SourceRef: raw.SourceRef,
		Title:     raw.Title,
	}, true
}

func parseSaleDate(s string) (time.Time, bool) {
	for _, layout := range saleDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// validatePopulation drops grades outside the tracked range so a malformed
// report cannot poison the snapshot.
func validatePopulation(pop pricing.PopulationCounts) pricing.PopulationCounts {
	out := make(pricing.PopulationCounts, len(pop))
	for grade, count := range pop {
		if grade < pricing.GradeMin || grade > pricing.GradeMax || count < 0 {
			continue
		}
		out[grade] = count
	}
	return out
}
