package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

const candleColumns = `
	market, timeframe, open_time, close_time,
	open_bid, high_bid, low_bid, close_bid,
	open_ask, high_ask, low_ask, close_ask,
	volume
`

// InsertBulk adds multiple candles. Fails entire batch on duplicate
// (market, timeframe, open_time). MergeTree does not enforce uniqueness,
// so duplicates are detected with explicit checks before the insert.
func (s *CandleStore) InsertBulk(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		market    string
		timeframe string
		openTime  time.Time
	}
	seen := make(map[key]struct{})
	for _, c := range candles {
		k := key{c.Market, c.Timeframe.String(), c.OpenTime.UTC()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, c := range candles {
		exists, err := s.exists(ctx, c.Market, c.Timeframe, c.OpenTime)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (`+candleColumns+`)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			c.Market, c.Timeframe.String(), c.OpenTime.UTC(), c.CloseTime.UTC(),
			c.OpenBid, c.HighBid, c.LowBid, c.CloseBid,
			c.OpenAsk, c.HighAsk, c.LowAsk, c.CloseAsk,
			c.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetCandles retrieves candles for a market/timeframe with open_time
// before upTo, ordered by open_time ASC. A zero upTo means no upper bound.
func (s *CandleStore) GetCandles(ctx context.Context, market string, tf domain.Timeframe, upTo time.Time) ([]*domain.Candle, error) {
	query := `
		SELECT ` + candleColumns + `
		FROM candles
		WHERE market = ? AND timeframe = ?
	`
	args := []interface{}{market, tf.String()}
	if !upTo.IsZero() {
		query += ` AND open_time < ?`
		args = append(args, upTo.UTC())
	}
	query += ` ORDER BY open_time ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// GetLastClosedCandle retrieves the most recent candle whose close time is
// at or before at. Returns ErrNotFound if none exists.
func (s *CandleStore) GetLastClosedCandle(ctx context.Context, market string, tf domain.Timeframe, at time.Time) (*domain.Candle, error) {
	query := `
		SELECT ` + candleColumns + `
		FROM candles
		WHERE market = ? AND timeframe = ? AND close_time <= ?
		ORDER BY open_time DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, market, tf.String(), at.UTC())
	if err != nil {
		return nil, fmt.Errorf("query last closed candle: %w", err)
	}
	defer rows.Close()

	candles, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, storage.ErrNotFound
	}
	return candles[0], nil
}

// exists checks if a candle with the given key exists.
func (s *CandleStore) exists(ctx context.Context, market string, tf domain.Timeframe, openTime time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM candles
		WHERE market = ? AND timeframe = ? AND open_time = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, market, tf.String(), openTime.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows abstracts driver.Rows for scan helpers.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanCandles scans multiple rows.
func scanCandles(rows chRows) ([]*domain.Candle, error) {
	var candles []*domain.Candle

	for rows.Next() {
		var c domain.Candle
		var timeframe string

		err := rows.Scan(
			&c.Market, &timeframe, &c.OpenTime, &c.CloseTime,
			&c.OpenBid, &c.HighBid, &c.LowBid, &c.CloseBid,
			&c.OpenAsk, &c.HighAsk, &c.LowAsk, &c.CloseAsk,
			&c.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		tf, err := domain.ParseTimeframe(timeframe)
		if err != nil {
			return nil, fmt.Errorf("parse stored timeframe %q: %w", timeframe, err)
		}
		c.Timeframe = tf
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}
