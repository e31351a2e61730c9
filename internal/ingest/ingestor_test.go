package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/ingest"
	"github.com/banktcg/gradesync/internal/pricing"
	"github.com/banktcg/gradesync/internal/storage/memory"
)

type fakeLookup struct {
	batch pricing.ObservationBatch
	err   error
}

func (f *fakeLookup) Search(_ context.Context, _ string) (pricing.SearchResult, error) {
	return pricing.SearchResult{}, errors.New("not implemented")
}

func (f *fakeLookup) FetchObservations(_ context.Context, _ string) (pricing.ObservationBatch, error) {
	return f.batch, f.err
}

func testItem() pricing.CatalogItem {
	return pricing.CatalogItem{ID: "item-1", VariantKey: "base-set-4-holo", Name: "Charizard"}
}

func TestIngest_WritesObservationsAndPopulation(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{batch: pricing.ObservationBatch{
		Sales: map[int][]pricing.RawSale{
			9:  {{Date: "2026-08-20", Price: 410, SourceRef: "ebay-1"}, {Date: "2026-08-22", Price: 395.5, SourceRef: "ebay-2"}},
			10: {{Date: "Aug 25, 2026", Price: 1250, SourceRef: "ebay-3"}},
		},
		Population: pricing.PopulationCounts{9: 1200, 10: 150},
	}}
	obs := memory.NewObservationStore()
	catalog := memory.NewCatalogStore(testItem())

	ing := ingest.New(lookup, obs, catalog, nil, zap.NewNop())
	result, err := ing.Ingest(context.Background(), testItem(), "/game/base-set/charizard-4")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 3, result.Written)
	assert.Zero(t, result.Skipped)
	assert.Equal(t, pricing.PopulationCounts{9: 1200, 10: 150}, result.Population)
	assert.Equal(t, 3, obs.Count())

	item, err := catalog.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, pricing.PopulationCounts{9: 1200, 10: 150}, item.Population)
}

func TestIngest_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{batch: pricing.ObservationBatch{
		Sales: map[int][]pricing.RawSale{
			8: {{Date: "2026-08-01", Price: 99.99, SourceRef: "ebay-7"}},
		},
	}}
	obs := memory.NewObservationStore()
	catalog := memory.NewCatalogStore(testItem())
	ing := ingest.New(lookup, obs, catalog, nil, zap.NewNop())

	first, err := ing.Ingest(context.Background(), testItem(), "ref")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Written)

	second, err := ing.Ingest(context.Background(), testItem(), "ref")
	require.NoError(t, err)
	assert.Zero(t, second.Written, "re-ingesting the same page must write nothing")
	assert.Equal(t, 1, obs.Count())
}

func TestIngest_SkipsMalformedRows(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{batch: pricing.ObservationBatch{
		Sales: map[int][]pricing.RawSale{
			9: {
				{Date: "2026-08-20", Price: 50, SourceRef: "ebay-1"},
				{Date: "", Price: 60, SourceRef: "ebay-2"},         // missing date
				{Date: "2026-08-21", Price: 0, SourceRef: "e-3"},   // zero price
				{Date: "not a date", Price: 70, SourceRef: "e-4"},  // unparsable date
				{Date: "2026-08-22", Price: 80, SourceRef: ""},     // missing source ref
			},
		},
	}}
	obs := memory.NewObservationStore()
	catalog := memory.NewCatalogStore(testItem())
	ing := ingest.New(lookup, obs, catalog, nil, zap.NewNop())

	result, err := ing.Ingest(context.Background(), testItem(), "ref")
	require.NoError(t, err)
	assert.Equal(t, 5, result.Fetched)
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 4, result.Skipped)
}

func TestIngest_DropsOutOfRangePopulationGrades(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{batch: pricing.ObservationBatch{
		Population: pricing.PopulationCounts{0: 5, 7: 10, 11: 3, 9: -1},
	}}
	catalog := memory.NewCatalogStore(testItem())
	ing := ingest.New(lookup, memory.NewObservationStore(), catalog, nil, zap.NewNop())

	result, err := ing.Ingest(context.Background(), testItem(), "ref")
	require.NoError(t, err)
	assert.Equal(t, pricing.PopulationCounts{7: 10}, result.Population)
}

func TestIngest_FetchFailureIsTransient(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{err: errors.New("connection reset")}
	ing := ingest.New(lookup, memory.NewObservationStore(), memory.NewCatalogStore(testItem()), nil, zap.NewNop())

	_, err := ing.Ingest(context.Background(), testItem(), "ref")
	require.Error(t, err)
	assert.True(t, pricing.IsTransient(err))
}
