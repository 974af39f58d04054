// Package indicator computes streaming EMA and ATR values over candle
// series and annotates candles with them before a simulation run.
// Internally streaming state is float64; annotated values are converted
// to decimal before any price decision consumes them.
package indicator

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
)

// Streaming is a single-pass indicator updated one candle at a time.
type Streaming interface {
	// Update consumes the next candle in chronological order.
	Update(c *domain.Candle)

	// Ready reports whether enough candles have been seen for the value
	// to be meaningful.
	Ready() bool

	// Value returns the current indicator value, 0 until Ready.
	Value() float64
}

// New returns a streaming indicator for the given kind.
func New(kind domain.Indicator) (Streaming, error) {
	switch kind {
	case domain.IndicatorEMA8:
		return NewEMA(8), nil
	case domain.IndicatorEMA25:
		return NewEMA(25), nil
	case domain.IndicatorATR14:
		return NewATR(14), nil
	default:
		return nil, fmt.Errorf("unknown indicator %q", kind)
	}
}

// Annotate computes the given indicator kinds over candles (chronological
// order expected) and returns annotated copies. Candles seen before an
// indicator's warmup completes stay unannotated for that kind; trailing
// policies treat the missing value as a no-op.
func Annotate(candles []*domain.Candle, kinds []domain.Indicator) ([]*domain.Candle, error) {
	if len(kinds) == 0 {
		return candles, nil
	}

	streams := make(map[domain.Indicator]Streaming, len(kinds))
	for _, kind := range kinds {
		s, err := New(kind)
		if err != nil {
			return nil, err
		}
		streams[kind] = s
	}

	result := make([]*domain.Candle, len(candles))
	for i, c := range candles {
		annotated := *c
		for kind, s := range streams {
			s.Update(c)
			if !s.Ready() {
				continue
			}
			annotated = annotated.WithIndicator(kind, decimal.NewFromFloat(s.Value()))
		}
		result[i] = &annotated
	}

	return result, nil
}

// midClose returns the mid of bid and ask close as float64. Indicator
// math runs on mid prices so one series serves both trade directions.
func midClose(c *domain.Candle) float64 {
	mid := c.CloseBid.Add(c.CloseAsk).Div(decimal.NewFromInt(2))
	f, _ := mid.Float64()
	return f
}

// EMA is a streaming Exponential Moving Average seeded with an SMA over
// the first period candles.
type EMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates a streaming EMA with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Update(c *domain.Candle) {
	close := midClose(c)
	if e.count < e.period {
		e.warmupSum += close
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (close-e.ema)*e.multiplier + e.ema
}

func (e *EMA) Ready() bool {
	return e.count >= e.period
}

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// ATR is a streaming Average True Range using Wilder's smoothing.
type ATR struct {
	period      int
	atr         float64
	count       int
	warmupSum   float64
	prevClose   float64
	hasPrevious bool
}

// NewATR creates a streaming ATR with the given period.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Update(c *domain.Candle) {
	high, _ := c.HighBid.Add(c.HighAsk).Div(decimal.NewFromInt(2)).Float64()
	low, _ := c.LowBid.Add(c.LowAsk).Div(decimal.NewFromInt(2)).Float64()
	close := midClose(c)

	if !a.hasPrevious {
		a.prevClose = close
		a.hasPrevious = true
		return
	}

	tr := math.Max(high-low, math.Max(math.Abs(high-a.prevClose), math.Abs(low-a.prevClose)))

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
	} else {
		a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
	}

	a.prevClose = close
}

func (a *ATR) Ready() bool {
	return a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}
