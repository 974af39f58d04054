package storage

import (
	"context"
	"time"

	"fx-trade-lab/internal/domain"
)

// CandleStore provides access to historical candle storage.
type CandleStore interface {
	// InsertBulk adds multiple candles. Fails the entire batch on a
	// duplicate (market, timeframe, open_time).
	InsertBulk(ctx context.Context, candles []*domain.Candle) error

	// GetCandles retrieves candles for a market/timeframe with
	// open_time before upTo, ordered by open_time ASC. A zero upTo
	// means no upper bound.
	GetCandles(ctx context.Context, market string, tf domain.Timeframe, upTo time.Time) ([]*domain.Candle, error)

	// GetLastClosedCandle retrieves the most recent candle whose close
	// time is at or before at. Returns ErrNotFound if none exists.
	GetLastClosedCandle(ctx context.Context, market string, tf domain.Timeframe, at time.Time) (*domain.Candle, error)
}

// TradeStore provides access to journal trade storage: real historical
// trades in, simulated replay results out.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on
	// any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Trade, error)

	// GetByMarket retrieves all trades for one market, ordered by order
	// time ASC (trades without an order time sort first).
	GetByMarket(ctx context.Context, market string) ([]*domain.Trade, error)

	// GetAll retrieves every stored trade.
	GetAll(ctx context.Context) ([]*domain.Trade, error)
}

// MarketDetailsStore provides pricing metadata per market.
type MarketDetailsStore interface {
	// Insert adds market details. Returns ErrDuplicateKey if the market
	// already exists.
	Insert(ctx context.Context, m *domain.MarketDetails) error

	// GetByName retrieves details for one market. Returns ErrNotFound
	// if the market is unknown.
	GetByName(ctx context.Context, market string) (*domain.MarketDetails, error)

	// GetAll retrieves every known market.
	GetAll(ctx context.Context) ([]*domain.MarketDetails, error)
}
