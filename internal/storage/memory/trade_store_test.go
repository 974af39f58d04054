package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/storage"
)

func makeTrade(id, market string, orderTime time.Time) *domain.Trade {
	price := decimal.NewFromFloat(1.2000)
	return &domain.Trade{
		ID:         id,
		Market:     market,
		Direction:  domain.DirectionLong,
		OrderTime:  &orderTime,
		OrderPrice: &price,
		OrderPrices: []domain.DatePrice{
			{Time: orderTime, Price: price},
		},
	}
}

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()
	when := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	trade := makeTrade("t1", "EUR/USD", when)
	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Market != "EUR/USD" {
		t.Errorf("market mismatch: got %s", got.Market)
	}
	if !got.OrderPrice.Equal(decimal.NewFromFloat(1.2000)) {
		t.Errorf("order price mismatch: got %s", got.OrderPrice)
	}
}

func TestTradeStore_InsertIsolatesCaller(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()
	when := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	trade := makeTrade("t1", "EUR/USD", when)
	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's copy must not reach the store
	mutated := decimal.NewFromFloat(9.9999)
	trade.OrderPrice = &mutated
	trade.OrderPrices[0].Price = mutated

	got, err := store.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.OrderPrice.Equal(decimal.NewFromFloat(1.2000)) {
		t.Errorf("store was mutated through caller reference: %s", got.OrderPrice)
	}
	if !got.OrderPrices[0].Price.Equal(decimal.NewFromFloat(1.2000)) {
		t.Errorf("schedule was mutated through caller reference: %s", got.OrderPrices[0].Price)
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()
	when := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := store.Insert(ctx, makeTrade("t1", "EUR/USD", when)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.Insert(ctx, makeTrade("t1", "EUR/USD", when))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_GetByMarketOrdered(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	trades := []*domain.Trade{
		makeTrade("t3", "EUR/USD", base.Add(2*time.Hour)),
		makeTrade("t1", "EUR/USD", base),
		makeTrade("t2", "EUR/USD", base.Add(time.Hour)),
		makeTrade("other", "GBP/USD", base),
	}
	if err := store.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByMarket(ctx, "EUR/USD")
	if err != nil {
		t.Fatalf("GetByMarket failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(got))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if got[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestTradeStore_NotFound(t *testing.T) {
	store := NewTradeStore()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
