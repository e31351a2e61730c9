// Package pricing defines core types shared across the sync and
// aggregation subsystems.
package pricing

import (
	"time"
)

// Grade bounds for graded collectibles. Observations outside this range are
// rejected at ingestion time.
const (
	GradeMin = 1
	GradeMax = 10
)

// SentinelPrice is persisted for a (item, grade) pair that has no sale
// observations at all. It is a real stored value, distinct from zero and
// from the absence of a row.
const SentinelPrice = -1

// DefaultTrackedGrades are the grades harvested and priced unless
// configuration overrides them.
var DefaultTrackedGrades = []int{7, 8, 9, 10}

// PopulationCounts maps grade to the number of known graded copies. Replaced
// wholesale on every ingestion, never merged.
type PopulationCounts map[int]int

// CatalogItem is the entity being priced. The catalog owns it; this engine
// only writes back the population snapshot (and the resolution cache, which
// lives in its own table).
type CatalogItem struct {
	ID          string           `json:"id"`
	VariantKey  string           `json:"variant_key"`
	Name        string           `json:"name"`
	Number      string           `json:"number"`
	SetName     string           `json:"set_name"`
	Rarity      string           `json:"rarity,omitempty"`
	MarketPrice float64          `json:"market_price"`
	Population  PopulationCounts `json:"population,omitempty"`
}

// SaleObservation is one external sale record. Rows are immutable once
// written; the natural key is the deduplication unit.
type SaleObservation struct {
	ProductID string    `json:"product_id"`
	Grade     int       `json:"grade"`
	SaleDate  time.Time `json:"sale_date"`
	Price     float64   `json:"price"`
	SourceRef string    `json:"source_ref"`
	Title     string    `json:"title,omitempty"`
}

// ObservationKey identifies a SaleObservation for dedup purposes.
type ObservationKey struct {
	ProductID string
	Grade     int
	SaleDate  string
	Price     float64
	SourceRef string
}

// NaturalKey returns the five-field dedup key. The sale date collapses to a
// calendar day to match the DATE column it is stored in.
func (o SaleObservation) NaturalKey() ObservationKey {
	return ObservationKey{
		ProductID: o.ProductID,
		Grade:     o.Grade,
		SaleDate:  o.SaleDate.Format(time.DateOnly),
		Price:     o.Price,
		SourceRef: o.SourceRef,
	}
}

// ProgressRecord tracks where an item sits in the sync cycle. The only
// payload is the completed flag; there are no retry counters.
type ProgressRecord struct {
	ProductID string    `json:"product_id"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AggregatePrice is the windowed market-price estimate for one (item, grade).
// Fully overwritten on every aggregation pass.
type AggregatePrice struct {
	ProductID  string    `json:"product_id"`
	Grade      int       `json:"grade"`
	Price      float64   `json:"price"`
	SampleSize int       `json:"sample_size"`
	ComputedAt time.Time `json:"computed_at"`
}

// Candidate is one row of a search result page: an external reference plus
// the set/edition label shown next to it.
type Candidate struct {
	Reference string
	SetLabel  string
}

// SearchResult is what SourceLookup.Search yields: either a direct reference
// (unambiguous redirect) or a candidate list to disambiguate.
type SearchResult struct {
	Reference  string
	Candidates []Candidate
}

// Direct reports whether the search resolved without disambiguation.
func (r SearchResult) Direct() bool {
	return r.Reference != ""
}

// RawSale is an unvalidated sale row as parsed from the source. The ingestor
// decides whether it is well-formed.
type RawSale struct {
	Date      string
	Price     float64
	SourceRef string
	Title     string
}

// ObservationBatch is the full harvest for one resolved reference: raw sales
// keyed by grade plus the population snapshot over the whole grade range.
type ObservationBatch struct {
	Sales      map[int][]RawSale
	Population PopulationCounts
}

// IngestResult reports what a single ingestion wrote.
type IngestResult struct {
	Fetched    int              `json:"fetched"`
	Written    int              `json:"written"`
	Skipped    int              `json:"skipped"`
	Population PopulationCounts `json:"population"`
}
