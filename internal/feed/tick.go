// Package feed ingests live price ticks over a websocket and aggregates
// them into bid/ask candles for the candle store.
package feed

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one bid/ask quote for a market.
type Tick struct {
	Market string          `json:"market"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Time   time.Time       `json:"time"`
}
