package pricing

import (
	"context"
	"time"
)

// CatalogStore reads catalog items and writes back the population snapshot.
type CatalogStore interface {
	GetItem(ctx context.Context, id string) (CatalogItem, error)
	GetItemByKey(ctx context.Context, variantKey string) (CatalogItem, error)
	// ListEligible pages items whose market price meets the floor, ordered by
	// ID, starting after the given cursor.
	ListEligible(ctx context.Context, minPrice float64, afterID string, limit int) ([]CatalogItem, error)
	ReplacePopulation(ctx context.Context, productID string, pop PopulationCounts) error
}

// ResolutionStore is the 1:1 association from item to external source
// reference. Absence means never resolved; presence never implies validity.
type ResolutionStore interface {
	// Get returns the cached reference or ErrNotFound.
	Get(ctx context.Context, productID string) (string, error)
	Put(ctx context.Context, productID, sourceRef string) error
	// ListShared returns references cached for more than one item, mapped to
	// the item IDs sharing them.
	ListShared(ctx context.Context) (map[string][]string, error)
}

// ObservationStore persists sale observations with natural-key dedup.
type ObservationStore interface {
	// InsertObservations writes rows that do not already exist and returns
	// the count of newly written rows.
	InsertObservations(ctx context.Context, obs []SaleObservation) (int, error)
	ListByGrade(ctx context.Context, productID string, grade int) ([]SaleObservation, error)
}

// ProgressStore persists the per-item completed flag.
type ProgressStore interface {
	// MarkPending creates the record if absent and forces completed=false.
	MarkPending(ctx context.Context, productID string) error
	MarkCompleted(ctx context.Context, productID string) error
	Get(ctx context.Context, productID string) (ProgressRecord, error)
	// ListPending and ListCompleted page product IDs ordered by ID, starting
	// after the given cursor.
	ListPending(ctx context.Context, afterID string, limit int) ([]string, error)
	ListCompleted(ctx context.Context, afterID string, limit int) ([]string, error)
}

// AggregateStore overwrites windowed price estimates.
type AggregateStore interface {
	Upsert(ctx context.Context, price AggregatePrice) error
}

// SourceLookup is the external price-reference capability: search for an
// item, then harvest per-grade sales and the population report.
type SourceLookup interface {
	Search(ctx context.Context, query string) (SearchResult, error)
	FetchObservations(ctx context.Context, sourceRef string) (ObservationBatch, error)
}

// Clock returns the current time (injectable for window math in tests).
type Clock interface {
	Now() time.Time
}
