package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/banktcg/gradesync/internal/pricing"
)

// ResolutionStore implements pricing.ResolutionStore over resolution_cache.
type ResolutionStore struct {
	conn Conn
}

// NewResolutionStore constructs a ResolutionStore.
func NewResolutionStore(conn Conn) *ResolutionStore {
	return &ResolutionStore{conn: conn}
}

// Get returns the cached source reference or pricing.ErrNotFound.
func (s *ResolutionStore) Get(ctx context.Context, productID string) (string, error) {
	query := `SELECT source_ref FROM resolution_cache WHERE product_id = $1`
	var ref string
	if err := s.conn.QueryRow(ctx, query, productID).Scan(&ref); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", pricing.ErrNotFound
		}
		return "", fmt.Errorf("get resolution: %w", err)
	}
	return ref, nil
}

// Put records the resolved reference for an item. A re-resolve overwrites.
func (s *ResolutionStore) Put(ctx context.Context, productID, sourceRef string) error {
	query := `
		INSERT INTO resolution_cache (product_id, source_ref)
		VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET source_ref = EXCLUDED.source_ref`
	if _, err := s.conn.Exec(ctx, query, productID, sourceRef); err != nil {
		return fmt.Errorf("put resolution: %w", err)
	}
	return nil
}

// ListShared returns references cached for more than one item.
func (s *ResolutionStore) ListShared(ctx context.Context) (map[string][]string, error) {
	query := `
		SELECT source_ref, array_agg(product_id ORDER BY product_id)
		FROM resolution_cache
		GROUP BY source_ref
		HAVING count(*) > 1`
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list shared resolutions: %w", err)
	}
	defer rows.Close()

	shared := make(map[string][]string)
	for rows.Next() {
		var ref string
		var ids []string
		if err := rows.Scan(&ref, &ids); err != nil {
			return nil, fmt.Errorf("scan shared resolution: %w", err)
		}
		shared[ref] = ids
	}
	return shared, rows.Err()
}
