package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
)

// csvHeader is the required column order for candle CSV imports.
var csvHeader = []string{
	"market", "timeframe", "open_time",
	"open_bid", "high_bid", "low_bid", "close_bid",
	"open_ask", "high_ask", "low_ask", "close_ask",
	"volume",
}

// ReadCandlesCSV parses candles from a CSV stream. The first row must be
// the header; open_time is RFC3339 and close time is derived from the
// timeframe. Rows are returned in file order.
func ReadCandlesCSV(r io.Reader) ([]*domain.Candle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var candles []*domain.Candle
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		c, err := candleFromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		candles = append(candles, c)
	}

	return candles, nil
}

func checkHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("csv header has %d columns, want %d (%s)",
			len(header), len(csvHeader), strings.Join(csvHeader, ","))
	}
	for i, want := range csvHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return fmt.Errorf("csv header column %d is %q, want %q", i+1, header[i], want)
		}
	}
	return nil
}

func candleFromRecord(record []string) (*domain.Candle, error) {
	tf, err := domain.ParseTimeframe(strings.ToUpper(record[1]))
	if err != nil {
		return nil, fmt.Errorf("parse timeframe: %w", err)
	}

	openTime, err := time.Parse(time.RFC3339, record[2])
	if err != nil {
		return nil, fmt.Errorf("parse open_time: %w", err)
	}

	prices := make([]decimal.Decimal, 9)
	for i, col := range record[3:] {
		d, err := decimal.NewFromString(col)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", csvHeader[i+3], err)
		}
		prices[i] = d
	}

	return &domain.Candle{
		Market:    record[0],
		Timeframe: tf,
		OpenTime:  openTime.UTC(),
		CloseTime: openTime.UTC().Add(tf.Duration()),
		OpenBid:   prices[0],
		HighBid:   prices[1],
		LowBid:    prices[2],
		CloseBid:  prices[3],
		OpenAsk:   prices[4],
		HighAsk:   prices[5],
		LowAsk:    prices[6],
		CloseAsk:  prices[7],
		Volume:    prices[8],
	}, nil
}
