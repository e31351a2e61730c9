package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/banktcg/gradesync/internal/pricing"
)

// CatalogStore implements pricing.CatalogStore over the catalog_items table.
type CatalogStore struct {
	conn Conn
}

// NewCatalogStore constructs a CatalogStore.
func NewCatalogStore(conn Conn) *CatalogStore {
	return &CatalogStore{conn: conn}
}

const catalogColumns = `id, variant_key, name, COALESCE(number, ''), COALESCE(set_name, ''), COALESCE(rarity, ''), market_price, population`

// GetItem loads one catalog item by ID.
func (s *CatalogStore) GetItem(ctx context.Context, id string) (pricing.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_items WHERE id = $1`
	return s.scanItem(s.conn.QueryRow(ctx, query, id))
}

// GetItemByKey loads one catalog item by variant key.
func (s *CatalogStore) GetItemByKey(ctx context.Context, variantKey string) (pricing.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_items WHERE variant_key = $1`
	return s.scanItem(s.conn.QueryRow(ctx, query, variantKey))
}

// ListEligible pages items meeting the price floor in stable ID order.
func (s *CatalogStore) ListEligible(
	ctx context.Context,
	minPrice float64,
	afterID string,
	limit int,
) ([]pricing.CatalogItem, error) {
	query := `
		SELECT ` + catalogColumns + `
		FROM catalog_items
		WHERE market_price >= $1 AND id > $2
		ORDER BY id
		LIMIT $3`
	rows, err := s.conn.Query(ctx, query, minPrice, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list eligible items: %w", err)
	}
	defer rows.Close()

	var items []pricing.CatalogItem
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReplacePopulation overwrites the item's population snapshot.
func (s *CatalogStore) ReplacePopulation(ctx context.Context, productID string, pop pricing.PopulationCounts) error {
	payload, err := json.Marshal(pop)
	if err != nil {
		return fmt.Errorf("marshal population: %w", err)
	}
	query := `UPDATE catalog_items SET population = $1, updated_at = now() WHERE id = $2`
	tag, err := s.conn.Exec(ctx, query, payload, productID)
	if err != nil {
		return fmt.Errorf("replace population: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pricing.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *CatalogStore) scanItem(row rowScanner) (pricing.CatalogItem, error) {
	var item pricing.CatalogItem
	var popJSON []byte
	err := row.Scan(
		&item.ID,
		&item.VariantKey,
		&item.Name,
		&item.Number,
		&item.SetName,
		&item.Rarity,
		&item.MarketPrice,
		&popJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.CatalogItem{}, pricing.ErrNotFound
		}
		return pricing.CatalogItem{}, fmt.Errorf("scan catalog item: %w", err)
	}
	if len(popJSON) > 0 {
		if err := json.Unmarshal(popJSON, &item.Population); err != nil {
			return pricing.CatalogItem{}, fmt.Errorf("unmarshal population: %w", err)
		}
	}
	return item, nil
}
