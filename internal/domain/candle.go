package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLC bucket for a market and timeframe, with separate bid
// and ask sides. Immutable once produced by the candle store. Indicator
// values are attached by the indicator annotator before a simulation run;
// they may be computed in float64 internally but are always stored as
// decimal before being consulted for price decisions.
type Candle struct {
	Market    string
	Timeframe Timeframe
	OpenTime  time.Time // bucket open
	CloseTime time.Time // bucket close (OpenTime + Timeframe)

	OpenBid  decimal.Decimal
	HighBid  decimal.Decimal
	LowBid   decimal.Decimal
	CloseBid decimal.Decimal

	OpenAsk  decimal.Decimal
	HighAsk  decimal.Decimal
	LowAsk   decimal.Decimal
	CloseAsk decimal.Decimal

	Volume decimal.Decimal

	// Indicators holds annotated indicator values, nil until annotated.
	Indicators map[Indicator]decimal.Decimal
}

// Indicator returns the annotated value for ind, if present.
func (c *Candle) Indicator(ind Indicator) (decimal.Decimal, bool) {
	v, ok := c.Indicators[ind]
	return v, ok
}

// WithIndicator returns a copy of the candle with ind set to v. The
// receiver is not modified, preserving immutability of stored candles.
func (c Candle) WithIndicator(ind Indicator, v decimal.Decimal) Candle {
	annotated := make(map[Indicator]decimal.Decimal, len(c.Indicators)+1)
	for k, existing := range c.Indicators {
		annotated[k] = existing
	}
	annotated[ind] = v
	c.Indicators = annotated
	return c
}
