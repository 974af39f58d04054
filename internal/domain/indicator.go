package domain

// Indicator identifies a derived numeric series computed from candles.
type Indicator string

// Indicators the replay engine can require. EMA values are used for
// indicator-trailing stops, ATR for the dynamic volatility trailing stop.
const (
	IndicatorEMA8  Indicator = "EMA8"
	IndicatorEMA25 Indicator = "EMA25"
	IndicatorATR14 Indicator = "ATR14"
)
