package postgres

import (
	"context"
	"fmt"

	"github.com/banktcg/gradesync/internal/pricing"
)

// ObservationStore implements pricing.ObservationStore over
// sale_observations. The table carries a unique constraint on the natural
// key (product_id, grade, sale_date, price, source_ref), so re-ingestion is
// strictly additive.
type ObservationStore struct {
	conn Conn
}

// NewObservationStore constructs an ObservationStore.
func NewObservationStore(conn Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// InsertObservations writes rows not already present and returns the count
// of newly written rows. Existing rows are left untouched.
func (s *ObservationStore) InsertObservations(ctx context.Context, obs []pricing.SaleObservation) (int, error) {
	query := `
		INSERT INTO sale_observations (product_id, grade, sale_date, price, source_ref, title)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, grade, sale_date, price, source_ref) DO NOTHING`

	written := 0
	for _, o := range obs {
		tag, err := s.conn.Exec(ctx, query,
			o.ProductID,
			o.Grade,
			o.SaleDate,
			o.Price,
			o.SourceRef,
			o.Title,
		)
		if err != nil {
			return written, fmt.Errorf("insert observation: %w", err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

// ListByGrade returns all persisted observations for one (item, grade),
// newest sale first.
func (s *ObservationStore) ListByGrade(ctx context.Context, productID string, grade int) ([]pricing.SaleObservation, error) {
	query := `
		SELECT product_id, grade, sale_date, price, source_ref, COALESCE(title, '')
		FROM sale_observations
		WHERE product_id = $1 AND grade = $2
		ORDER BY sale_date DESC`
	rows, err := s.conn.Query(ctx, query, productID, grade)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	var out []pricing.SaleObservation
	for rows.Next() {
		var o pricing.SaleObservation
		if err := rows.Scan(&o.ProductID, &o.Grade, &o.SaleDate, &o.Price, &o.SourceRef, &o.Title); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
