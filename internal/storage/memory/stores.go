// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/banktcg/gradesync/internal/pricing"
)

// CatalogStore is an in-memory pricing.CatalogStore.
type CatalogStore struct {
	mu    sync.RWMutex
	items map[string]pricing.CatalogItem
}

// NewCatalogStore constructs a CatalogStore seeded with items.
func NewCatalogStore(items ...pricing.CatalogItem) *CatalogStore {
	s := &CatalogStore{items: make(map[string]pricing.CatalogItem)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

// GetItem fetches one item by ID.
func (s *CatalogStore) GetItem(_ context.Context, id string) (pricing.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return pricing.CatalogItem{}, pricing.ErrNotFound
	}
	return item, nil
}

// GetItemByKey fetches one item by variant key.
func (s *CatalogStore) GetItemByKey(_ context.Context, variantKey string) (pricing.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.VariantKey == variantKey {
			return item, nil
		}
	}
	return pricing.CatalogItem{}, pricing.ErrNotFound
}

// ListEligible pages items meeting the price floor in ID order.
func (s *CatalogStore) ListEligible(
	_ context.Context,
	minPrice float64,
	afterID string,
	limit int,
) ([]pricing.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []pricing.CatalogItem
	for _, item := range s.items {
		if item.MarketPrice >= minPrice && item.ID > afterID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReplacePopulation overwrites the item's population snapshot.
func (s *CatalogStore) ReplacePopulation(_ context.Context, productID string, pop pricing.PopulationCounts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[productID]
	if !ok {
		return pricing.ErrNotFound
	}
	item.Population = pop
	s.items[productID] = item
	return nil
}

// ResolutionStore is an in-memory pricing.ResolutionStore.
type ResolutionStore struct {
	mu   sync.RWMutex
	refs map[string]string
}

// NewResolutionStore constructs an empty ResolutionStore.
func NewResolutionStore() *ResolutionStore {
	return &ResolutionStore{refs: make(map[string]string)}
}

// Get returns the cached reference or pricing.ErrNotFound.
func (s *ResolutionStore) Get(_ context.Context, productID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[productID]
	if !ok {
		return "", pricing.ErrNotFound
	}
	return ref, nil
}

// Put caches the reference for an item.
func (s *ResolutionStore) Put(_ context.Context, productID, sourceRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[productID] = sourceRef
	return nil
}

// ListShared returns references held by more than one item.
func (s *ResolutionStore) ListShared(_ context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byRef := make(map[string][]string)
	for id, ref := range s.refs {
		byRef[ref] = append(byRef[ref], id)
	}
	shared := make(map[string][]string)
	for ref, ids := range byRef {
		if len(ids) > 1 {
			sort.Strings(ids)
			shared[ref] = ids
		}
	}
	return shared, nil
}

// ObservationStore is an in-memory pricing.ObservationStore with the same
// natural-key dedup guarantee as the Postgres table.
type ObservationStore struct {
	mu   sync.RWMutex
	rows map[pricing.ObservationKey]pricing.SaleObservation
}

// NewObservationStore constructs an empty ObservationStore.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{rows: make(map[pricing.ObservationKey]pricing.SaleObservation)}
}

// InsertObservations writes rows whose natural key is not already present.
func (s *ObservationStore) InsertObservations(_ context.Context, obs []pricing.SaleObservation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	written := 0
	for _, o := range obs {
		key := o.NaturalKey()
		if _, exists := s.rows[key]; exists {
			continue
		}
		s.rows[key] = o
		written++
	}
	return written, nil
}

// ListByGrade returns observations for one (item, grade), newest first.
func (s *ObservationStore) ListByGrade(_ context.Context, productID string, grade int) ([]pricing.SaleObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []pricing.SaleObservation
	for _, o := range s.rows {
		if o.ProductID == productID && o.Grade == grade {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaleDate.After(out[j].SaleDate) })
	return out, nil
}

// Count returns the total number of persisted rows.
func (s *ObservationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// ProgressStore is an in-memory pricing.ProgressStore.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[string]pricing.ProgressRecord
}

// NewProgressStore constructs an empty ProgressStore.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[string]pricing.ProgressRecord)}
}

// MarkPending creates the record if absent and forces completed=false.
func (s *ProgressStore) MarkPending(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	rec, ok := s.records[productID]
	if !ok {
		rec = pricing.ProgressRecord{ProductID: productID, CreatedAt: now}
	}
	rec.Completed = false
	rec.UpdatedAt = now
	s.records[productID] = rec
	return nil
}

// MarkCompleted flips the record to completed=true.
func (s *ProgressStore) MarkCompleted(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[productID]
	if !ok {
		return pricing.ErrNotFound
	}
	rec.Completed = true
	rec.UpdatedAt = time.Now().UTC()
	s.records[productID] = rec
	return nil
}

// Get loads one record or returns pricing.ErrNotFound.
func (s *ProgressStore) Get(_ context.Context, productID string) (pricing.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[productID]
	if !ok {
		return pricing.ProgressRecord{}, pricing.ErrNotFound
	}
	return rec, nil
}

// ListPending pages Pending item IDs in stable order.
func (s *ProgressStore) ListPending(_ context.Context, afterID string, limit int) ([]string, error) {
	return s.listByFlag(false, afterID, limit), nil
}

// ListCompleted pages Completed item IDs in stable order.
func (s *ProgressStore) ListCompleted(_ context.Context, afterID string, limit int) ([]string, error) {
	return s.listByFlag(true, afterID, limit), nil
}

func (s *ProgressStore) listByFlag(completed bool, afterID string, limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, rec := range s.records {
		if rec.Completed == completed && id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// AggregateStore is an in-memory pricing.AggregateStore.
type AggregateStore struct {
	mu   sync.RWMutex
	rows map[string]map[int]pricing.AggregatePrice
}

// NewAggregateStore constructs an empty AggregateStore.
func NewAggregateStore() *AggregateStore {
	return &AggregateStore{rows: make(map[string]map[int]pricing.AggregatePrice)}
}

// Upsert fully overwrites the estimate for one (item, grade).
func (s *AggregateStore) Upsert(_ context.Context, price pricing.AggregatePrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	grades, ok := s.rows[price.ProductID]
	if !ok {
		grades = make(map[int]pricing.AggregatePrice)
		s.rows[price.ProductID] = grades
	}
	grades[price.Grade] = price
	return nil
}

// Get returns the stored estimate for one (item, grade), if any.
func (s *AggregateStore) Get(productID string, grade int) (pricing.AggregatePrice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.rows[productID][grade]
	return price, ok
}
