package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/engine"
	"github.com/banktcg/gradesync/internal/ingest"
	"github.com/banktcg/gradesync/internal/notify"
	"github.com/banktcg/gradesync/internal/pricing"
	"github.com/banktcg/gradesync/internal/resolver"
	"github.com/banktcg/gradesync/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// scriptedLookup maps search queries to results and source refs to batches,
// so each item in a cycle can behave differently.
type scriptedLookup struct {
	searches  map[string]pricing.SearchResult
	searchErr map[string]error
	batches   map[string]pricing.ObservationBatch
	fetchErr  map[string]error
}

func (f *scriptedLookup) Search(_ context.Context, query string) (pricing.SearchResult, error) {
	if err := f.searchErr[query]; err != nil {
		return pricing.SearchResult{}, err
	}
	return f.searches[query], nil
}

func (f *scriptedLookup) FetchObservations(_ context.Context, ref string) (pricing.ObservationBatch, error) {
	if err := f.fetchErr[ref]; err != nil {
		return pricing.ObservationBatch{}, err
	}
	return f.batches[ref], nil
}

type fixture struct {
	catalog *memory.CatalogStore
	prog    *memory.ProgressStore
	obs     *memory.ObservationStore
	engine  *engine.Engine
}

func newFixture(t *testing.T, lookup pricing.SourceLookup, cfg engine.Config, items ...pricing.CatalogItem) *fixture {
	t.Helper()
	catalog := memory.NewCatalogStore(items...)
	prog := memory.NewProgressStore()
	obs := memory.NewObservationStore()
	res := resolver.New(lookup, memory.NewResolutionStore(), zap.NewNop())
	ing := ingest.New(lookup, obs, catalog, nil, zap.NewNop())
	clock := fixedClock{time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)}
	eng := engine.New(catalog, prog, res, ing, clock, notify.NoOpPublisher{}, cfg, zap.NewNop())
	return &fixture{catalog: catalog, prog: prog, obs: obs, engine: eng}
}

func item(id, key, name string) pricing.CatalogItem {
	return pricing.CatalogItem{ID: id, VariantKey: key, Name: name, MarketPrice: 50}
}

func directResult(ref string) pricing.SearchResult {
	return pricing.SearchResult{Reference: ref}
}

func saleBatch(count int) pricing.ObservationBatch {
	sales := make([]pricing.RawSale, count)
	for i := range sales {
		sales[i] = pricing.RawSale{
			Date:      "2026-08-2" + string(rune('0'+i)),
			Price:     float64(100 + i),
			SourceRef: "ebay-" + string(rune('a'+i)),
		}
	}
	return pricing.ObservationBatch{Sales: map[int][]pricing.RawSale{9: sales}}
}

func TestRun_CompletesPendingItems(t *testing.T) {
	t.Parallel()

	lookup := &scriptedLookup{
		searches: map[string]pricing.SearchResult{"Alpha": directResult("/game/s/alpha")},
		batches:  map[string]pricing.ObservationBatch{"/game/s/alpha": saleBatch(2)},
	}
	f := newFixture(t, lookup, engine.Config{BatchSize: 10}, item("a", "set-alpha", "Alpha"))
	require.NoError(t, f.prog.MarkPending(context.Background(), "a"))

	summary, err := f.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.ObservationsWritten)

	rec, err := f.prog.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, rec.Completed)
}

func TestRun_NotFoundCompletesWithoutCaching(t *testing.T) {
	t.Parallel()

	// Search succeeds but every candidate label is dissimilar.
	lookup := &scriptedLookup{
		searches: map[string]pricing.SearchResult{
			"Beta": {Candidates: []pricing.Candidate{{Reference: "/game/x", SetLabel: "qqqqqq"}}},
		},
	}
	it := item("b", "set-beta", "Beta")
	it.SetName = "Shadow Depths"
	f := newFixture(t, lookup, engine.Config{BatchSize: 10}, it)
	require.NoError(t, f.prog.MarkPending(context.Background(), "b"))

	summary, err := f.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotFound)
	assert.Zero(t, summary.Failed)

	rec, err := f.prog.Get(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, rec.Completed, "no-match items complete the cycle uncached")
}

func TestRun_TransientFailureLeavesItemPending(t *testing.T) {
	t.Parallel()

	lookup := &scriptedLookup{
		searchErr: map[string]error{"Gamma": errors.New("i/o timeout")},
	}
	f := newFixture(t, lookup, engine.Config{BatchSize: 10}, item("c", "set-gamma", "Gamma"))
	require.NoError(t, f.prog.MarkPending(context.Background(), "c"))

	summary, err := f.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	rec, err := f.prog.Get(context.Background(), "c")
	require.NoError(t, err)
	assert.False(t, rec.Completed, "transient failures must keep the item Pending")
}

func TestRun_MixedOutcomesInOneCycle(t *testing.T) {
	t.Parallel()

	lookup := &scriptedLookup{
		searches: map[string]pricing.SearchResult{
			"Alpha": directResult("/game/s/alpha"),
			"Beta":  {Candidates: []pricing.Candidate{{Reference: "/game/x", SetLabel: "qqqqqq"}}},
		},
		searchErr: map[string]error{"Gamma": errors.New("connection refused")},
		batches:   map[string]pricing.ObservationBatch{"/game/s/alpha": saleBatch(1)},
	}
	f := newFixture(t, lookup, engine.Config{BatchSize: 10},
		item("a", "set-alpha", "Alpha"),
		item("b", "set-beta", "Beta"),
		item("c", "set-gamma", "Gamma"),
	)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, f.prog.MarkPending(context.Background(), id))
	}

	summary, err := f.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.NotFound)
	assert.Equal(t, 1, summary.Failed)

	pending, err := f.prog.ListPending(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, pending, "only the transient failure stays Pending")
}

func TestRun_MaxItemsCapsTheCycle(t *testing.T) {
	t.Parallel()

	lookup := &scriptedLookup{
		searches: map[string]pricing.SearchResult{
			"Alpha": directResult("/game/a"),
			"Beta":  directResult("/game/b"),
		},
		batches: map[string]pricing.ObservationBatch{},
	}
	f := newFixture(t, lookup, engine.Config{BatchSize: 10, MaxItems: 1},
		item("a", "set-alpha", "Alpha"),
		item("b", "set-beta", "Beta"),
	)
	require.NoError(t, f.prog.MarkPending(context.Background(), "a"))
	require.NoError(t, f.prog.MarkPending(context.Background(), "b"))

	summary, err := f.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
}

func TestRun_SetFilterSkipsOtherSets(t *testing.T) {
	t.Parallel()

	lookup := &scriptedLookup{
		searches: map[string]pricing.SearchResult{"Alpha": directResult("/game/a")},
		batches:  map[string]pricing.ObservationBatch{},
	}
	inSet := item("a", "set-alpha", "Alpha")
	inSet.SetName = "Base Set"
	outOfSet := item("b", "set-beta", "Beta")
	outOfSet.SetName = "Jungle"

	f := newFixture(t, lookup, engine.Config{BatchSize: 10, SetName: "Base Set"}, inSet, outOfSet)
	require.NoError(t, f.prog.MarkPending(context.Background(), "a"))
	require.NoError(t, f.prog.MarkPending(context.Background(), "b"))

	summary, err := f.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestProcessOne_BypassesProgress(t *testing.T) {
	t.Parallel()

	lookup := &scriptedLookup{
		searches: map[string]pricing.SearchResult{"Alpha": directResult("/game/a")},
		batches:  map[string]pricing.ObservationBatch{"/game/a": saleBatch(2)},
	}
	f := newFixture(t, lookup, engine.Config{}, item("a", "set-alpha", "Alpha"))

	result, err := f.engine.ProcessOne(context.Background(), "set-alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Written)

	_, err = f.prog.Get(context.Background(), "a")
	require.ErrorIs(t, err, pricing.ErrNotFound, "on-demand sync must not touch progress")
}

func TestProcessOne_UnknownKey(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &scriptedLookup{}, engine.Config{})
	_, err := f.engine.ProcessOne(context.Background(), "missing")
	require.ErrorIs(t, err, pricing.ErrNotFound)
}
