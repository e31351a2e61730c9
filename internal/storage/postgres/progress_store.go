package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/banktcg/gradesync/internal/pricing"
)

// ProgressStore implements pricing.ProgressStore over progress_records.
type ProgressStore struct {
	conn Conn
}

// NewProgressStore constructs a ProgressStore.
func NewProgressStore(conn Conn) *ProgressStore {
	return &ProgressStore{conn: conn}
}

// MarkPending ensures a record exists and forces completed=false.
func (s *ProgressStore) MarkPending(ctx context.Context, productID string) error {
	query := `
		INSERT INTO progress_records (product_id, completed)
		VALUES ($1, false)
		ON CONFLICT (product_id) DO UPDATE SET completed = false, updated_at = now()`
	if _, err := s.conn.Exec(ctx, query, productID); err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}
	return nil
}

// MarkCompleted flips the record to completed=true.
func (s *ProgressStore) MarkCompleted(ctx context.Context, productID string) error {
	query := `UPDATE progress_records SET completed = true, updated_at = now() WHERE product_id = $1`
	tag, err := s.conn.Exec(ctx, query, productID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pricing.ErrNotFound
	}
	return nil
}

// Get loads the record for one item or returns pricing.ErrNotFound.
func (s *ProgressStore) Get(ctx context.Context, productID string) (pricing.ProgressRecord, error) {
	query := `SELECT product_id, completed, created_at, updated_at FROM progress_records WHERE product_id = $1`
	var rec pricing.ProgressRecord
	err := s.conn.QueryRow(ctx, query, productID).Scan(
		&rec.ProductID,
		&rec.Completed,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.ProgressRecord{}, pricing.ErrNotFound
		}
		return pricing.ProgressRecord{}, fmt.Errorf("get progress: %w", err)
	}
	return rec, nil
}

// ListPending pages Pending item IDs in stable order.
func (s *ProgressStore) ListPending(ctx context.Context, afterID string, limit int) ([]string, error) {
	return s.listByFlag(ctx, false, afterID, limit)
}

// ListCompleted pages Completed item IDs in stable order.
func (s *ProgressStore) ListCompleted(ctx context.Context, afterID string, limit int) ([]string, error) {
	return s.listByFlag(ctx, true, afterID, limit)
}

func (s *ProgressStore) listByFlag(ctx context.Context, completed bool, afterID string, limit int) ([]string, error) {
	query := `
		SELECT product_id FROM progress_records
		WHERE completed = $1 AND product_id > $2
		ORDER BY product_id
		LIMIT $3`
	rows, err := s.conn.Query(ctx, query, completed, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list progress records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan progress record: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
