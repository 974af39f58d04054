package postgres

import (
	"context"
	"fmt"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/storage"
)

// MarketDetailsStore implements storage.MarketDetailsStore using
// PostgreSQL.
type MarketDetailsStore struct {
	pool *Pool
}

// NewMarketDetailsStore creates a new MarketDetailsStore.
func NewMarketDetailsStore(pool *Pool) *MarketDetailsStore {
	return &MarketDetailsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MarketDetailsStore = (*MarketDetailsStore)(nil)

// Insert adds market details. Returns ErrDuplicateKey if the market
// already exists.
func (s *MarketDetailsStore) Insert(ctx context.Context, m *domain.MarketDetails) error {
	query := `INSERT INTO market_details (name, pip_size, pip_value) VALUES ($1, $2, $3)`

	if _, err := s.pool.Exec(ctx, query, m.Name, m.PipSize, m.PipValue); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert market details: %w", err)
	}
	return nil
}

// GetByName retrieves details for one market. Returns ErrNotFound if the
// market is unknown.
func (s *MarketDetailsStore) GetByName(ctx context.Context, market string) (*domain.MarketDetails, error) {
	query := `SELECT name, pip_size, pip_value FROM market_details WHERE name = $1`

	var m domain.MarketDetails
	err := s.pool.QueryRow(ctx, query, market).Scan(&m.Name, &m.PipSize, &m.PipValue)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get market details: %w", err)
	}
	return &m, nil
}

// GetAll retrieves every known market, ordered by name.
func (s *MarketDetailsStore) GetAll(ctx context.Context) ([]*domain.MarketDetails, error) {
	query := `SELECT name, pip_size, pip_value FROM market_details ORDER BY name ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all market details: %w", err)
	}
	defer rows.Close()

	var out []*domain.MarketDetails
	for rows.Next() {
		var m domain.MarketDetails
		if err := rows.Scan(&m.Name, &m.PipSize, &m.PipValue); err != nil {
			return nil, fmt.Errorf("scan market details: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market details: %w", err)
	}
	return out, nil
}
