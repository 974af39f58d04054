package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL. Price
// revision schedules are stored as JSONB; scalar prices as NUMERIC.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	id, market, direction, quantity,
	order_prices, order_price, order_amount, order_time, order_type, order_expiry,
	stop_prices, stop_price, limit_prices, limit_price,
	entry_time, entry_price, close_time, close_price, close_reason,
	commission, rollover, gross_profit, net_profit, r_multiple
`

const insertTradeQuery = `
	INSERT INTO trades (
		id, market, direction, quantity,
		order_prices, order_price, order_amount, order_time, order_type, order_expiry,
		stop_prices, stop_price, limit_prices, limit_price,
		entry_time, entry_price, close_time, close_price, close_reason,
		commission, rollover, gross_profit, net_profit, r_multiple
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14,
		$15, $16, $17, $18, $19,
		$20, $21, $22, $23, $24
	)
`

// Insert adds a new trade. Returns ErrDuplicateKey if the ID exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	args, err := tradeArgs(t)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, insertTradeQuery, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any
// duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		args, err := tradeArgs(t)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertTradeQuery, args...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, id string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1`

	t, err := scanTrade(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByMarket retrieves all trades for one market, ordered by order time
// ASC with orderless trades first.
func (s *TradeStore) GetByMarket(ctx context.Context, market string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE market = $1
		ORDER BY order_time ASC NULLS FIRST, id ASC
	`

	rows, err := s.pool.Query(ctx, query, market)
	if err != nil {
		return nil, fmt.Errorf("get trades by market: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetAll retrieves every stored trade.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		ORDER BY order_time ASC NULLS FIRST, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// tradeArgs flattens a trade into insert arguments, marshalling the
// revision schedules to JSON.
func tradeArgs(t *domain.Trade) ([]interface{}, error) {
	orderPrices, err := json.Marshal(t.OrderPrices)
	if err != nil {
		return nil, fmt.Errorf("marshal order prices: %w", err)
	}
	stopPrices, err := json.Marshal(t.StopPrices)
	if err != nil {
		return nil, fmt.Errorf("marshal stop prices: %w", err)
	}
	limitPrices, err := json.Marshal(t.LimitPrices)
	if err != nil {
		return nil, fmt.Errorf("marshal limit prices: %w", err)
	}

	return []interface{}{
		t.ID, t.Market, string(t.Direction), t.Quantity,
		orderPrices, t.OrderPrice, t.OrderAmount, t.OrderTime, nullString(string(t.OrderType)), t.OrderExpiry,
		stopPrices, t.StopPrice, limitPrices, t.LimitPrice,
		t.EntryTime, t.EntryPrice, t.CloseTime, t.ClosePrice, nullString(string(t.CloseReason)),
		t.Commission, t.Rollover, t.GrossProfit, t.NetProfit, t.RMultiple,
	}, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		t           domain.Trade
		direction   string
		orderType   *string
		closeReason *string
		orderPrices []byte
		stopPrices  []byte
		limitPrices []byte
	)

	err := row.Scan(
		&t.ID, &t.Market, &direction, &t.Quantity,
		&orderPrices, &t.OrderPrice, &t.OrderAmount, &t.OrderTime, &orderType, &t.OrderExpiry,
		&stopPrices, &t.StopPrice, &limitPrices, &t.LimitPrice,
		&t.EntryTime, &t.EntryPrice, &t.CloseTime, &t.ClosePrice, &closeReason,
		&t.Commission, &t.Rollover, &t.GrossProfit, &t.NetProfit, &t.RMultiple,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = domain.Direction(direction)
	if orderType != nil {
		t.OrderType = domain.OrderType(*orderType)
	}
	if closeReason != nil {
		t.CloseReason = domain.CloseReason(*closeReason)
	}
	if err := json.Unmarshal(orderPrices, &t.OrderPrices); err != nil {
		return nil, fmt.Errorf("unmarshal order prices: %w", err)
	}
	if err := json.Unmarshal(stopPrices, &t.StopPrices); err != nil {
		return nil, fmt.Errorf("unmarshal stop prices: %w", err)
	}
	if err := json.Unmarshal(limitPrices, &t.LimitPrices); err != nil {
		return nil, fmt.Errorf("unmarshal limit prices: %w", err)
	}
	return &t, nil
}

// scanTrades scans all rows into Trades.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}

// nullString maps an empty enum value to SQL NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
