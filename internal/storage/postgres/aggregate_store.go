package postgres

import (
	"context"
	"fmt"

	"github.com/banktcg/gradesync/internal/pricing"
)

// AggregateStore implements pricing.AggregateStore over aggregate_prices.
type AggregateStore struct {
	conn Conn
}

// NewAggregateStore constructs an AggregateStore.
func NewAggregateStore(conn Conn) *AggregateStore {
	return &AggregateStore{conn: conn}
}

// Upsert fully overwrites the estimate for one (item, grade).
func (s *AggregateStore) Upsert(ctx context.Context, price pricing.AggregatePrice) error {
	query := `
		INSERT INTO aggregate_prices (product_id, grade, price, sample_size, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, grade) DO UPDATE
		SET price = EXCLUDED.price,
			sample_size = EXCLUDED.sample_size,
			computed_at = EXCLUDED.computed_at`
	_, err := s.conn.Exec(ctx, query,
		price.ProductID,
		price.Grade,
		price.Price,
		price.SampleSize,
		price.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert aggregate price: %w", err)
	}
	return nil
}
