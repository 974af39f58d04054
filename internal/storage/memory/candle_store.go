package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/storage"
)

// candleKey identifies one candle bucket.
type candleKey struct {
	market   string
	tf       domain.Timeframe
	openTime int64 // unix nanos
}

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[candleKey]*domain.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[candleKey]*domain.Candle),
	}
}

// InsertBulk adds multiple candles. Fails entire batch on any duplicate.
func (s *CandleStore) InsertBulk(_ context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[candleKey]struct{}, len(candles))

	for _, c := range candles {
		if c == nil || c.Market == "" || c.Timeframe == 0 || c.OpenTime.IsZero() {
			return storage.ErrInvalidInput
		}
		key := candleKey{c.Market, c.Timeframe, c.OpenTime.UnixNano()}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, c := range candles {
		key := candleKey{c.Market, c.Timeframe, c.OpenTime.UnixNano()}
		copy := *c
		s.data[key] = &copy
	}

	return nil
}

// GetCandles retrieves candles with open_time before upTo, ordered by
// open_time ASC. Zero upTo means no upper bound.
func (s *CandleStore) GetCandles(_ context.Context, market string, tf domain.Timeframe, upTo time.Time) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, c := range s.data {
		if c.Market != market || c.Timeframe != tf {
			continue
		}
		if !upTo.IsZero() && !c.OpenTime.Before(upTo) {
			continue
		}
		copy := *c
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenTime.Before(result[j].OpenTime)
	})

	return result, nil
}

// GetLastClosedCandle retrieves the most recent candle closed at or
// before at. Returns ErrNotFound if none exists.
func (s *CandleStore) GetLastClosedCandle(_ context.Context, market string, tf domain.Timeframe, at time.Time) (*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Candle
	for _, c := range s.data {
		if c.Market != market || c.Timeframe != tf {
			continue
		}
		if c.CloseTime.After(at) {
			continue
		}
		if best == nil || c.CloseTime.After(best.CloseTime) {
			best = c
		}
	}

	if best == nil {
		return nil, storage.ErrNotFound
	}

	copy := *best
	return &copy, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
