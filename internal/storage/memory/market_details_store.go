package memory

import (
	"context"
	"sort"
	"sync"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/storage"
)

// MarketDetailsStore is an in-memory implementation of
// storage.MarketDetailsStore.
type MarketDetailsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MarketDetails // keyed by market name
}

// NewMarketDetailsStore creates a new in-memory market details store.
func NewMarketDetailsStore() *MarketDetailsStore {
	return &MarketDetailsStore{
		data: make(map[string]*domain.MarketDetails),
	}
}

// Insert adds market details. Returns ErrDuplicateKey if the market exists.
func (s *MarketDetailsStore) Insert(_ context.Context, m *domain.MarketDetails) error {
	if m == nil || m.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.Name]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *m
	s.data[m.Name] = &copy
	return nil
}

// GetByName retrieves details for one market. Returns ErrNotFound if the
// market is unknown.
func (s *MarketDetailsStore) GetByName(_ context.Context, market string) (*domain.MarketDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[market]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *m
	return &copy, nil
}

// GetAll retrieves every known market ordered by name.
func (s *MarketDetailsStore) GetAll(_ context.Context) ([]*domain.MarketDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MarketDetails, 0, len(s.data))
	for _, m := range s.data {
		copy := *m
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

var _ storage.MarketDetailsStore = (*MarketDetailsStore)(nil)
