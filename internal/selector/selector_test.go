package selector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/pricing"
	"github.com/banktcg/gradesync/internal/selector"
	"github.com/banktcg/gradesync/internal/storage/memory"
)

func priced(id string, price float64) pricing.CatalogItem {
	return pricing.CatalogItem{ID: id, VariantKey: "key-" + id, Name: "Card " + id, MarketPrice: price}
}

func TestRun_OpensOnlyItemsAboveFloor(t *testing.T) {
	t.Parallel()

	catalog := memory.NewCatalogStore(
		priced("a", 100),
		priced("b", 15), // floor is inclusive
		priced("c", 14.99),
		priced("d", 0),
	)
	prog := memory.NewProgressStore()

	sel := selector.New(catalog, prog, memory.NewResolutionStore(), 15, 10, zap.NewNop())
	res, err := sel.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Opened)

	pending, err := prog.ListPending(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, pending)
}

func TestRun_ExcludesCollidingReferences(t *testing.T) {
	t.Parallel()

	catalog := memory.NewCatalogStore(priced("a", 100), priced("b", 100), priced("c", 100))
	resolutions := memory.NewResolutionStore()
	// Two distinct items cached to the same external page: neither can be
	// trusted, so both sit out.
	require.NoError(t, resolutions.Put(context.Background(), "a", "/game/s/shared"))
	require.NoError(t, resolutions.Put(context.Background(), "b", "/game/s/shared"))
	require.NoError(t, resolutions.Put(context.Background(), "c", "/game/s/solo"))
	prog := memory.NewProgressStore()

	sel := selector.New(catalog, prog, resolutions, 15, 10, zap.NewNop())
	res, err := sel.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Opened)
	assert.Equal(t, 2, res.Excluded)

	pending, err := prog.ListPending(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, pending)
}

func TestRun_ReopensCompletedItems(t *testing.T) {
	t.Parallel()

	catalog := memory.NewCatalogStore(priced("a", 100))
	prog := memory.NewProgressStore()
	require.NoError(t, prog.MarkPending(context.Background(), "a"))
	require.NoError(t, prog.MarkCompleted(context.Background(), "a"))

	sel := selector.New(catalog, prog, memory.NewResolutionStore(), 15, 10, zap.NewNop())
	_, err := sel.Run(context.Background())
	require.NoError(t, err)

	rec, err := prog.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, rec.Completed)
}

func TestRun_PagesThroughLargeCatalogs(t *testing.T) {
	t.Parallel()

	items := make([]pricing.CatalogItem, 0, 25)
	for i := 0; i < 25; i++ {
		items = append(items, priced(string(rune('a'+i)), 50))
	}
	catalog := memory.NewCatalogStore(items...)
	prog := memory.NewProgressStore()

	sel := selector.New(catalog, prog, memory.NewResolutionStore(), 15, 10, zap.NewNop())
	res, err := sel.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, res.Opened)
}
