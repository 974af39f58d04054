package feed

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/observability"
)

// Aggregator buckets ticks into bid/ask candles of one timeframe. One
// candle per market is under construction at a time; a tick landing in a
// later bucket completes the current candle. Not safe for concurrent
// use; feed consumers run it from a single goroutine.
type Aggregator struct {
	timeframe domain.Timeframe
	building  map[string]*domain.Candle
}

// NewAggregator creates an aggregator for tf.
func NewAggregator(tf domain.Timeframe) *Aggregator {
	return &Aggregator{
		timeframe: tf,
		building:  make(map[string]*domain.Candle),
	}
}

// Apply folds one tick into the aggregation and returns any candle it
// completed. Ticks older than the candle under construction are dropped;
// out-of-order data within a bucket still updates high/low.
func (a *Aggregator) Apply(tick Tick) []*domain.Candle {
	bucket := a.timeframe.Bucket(tick.Time)

	current, ok := a.building[tick.Market]
	if ok && bucket.Before(current.OpenTime) {
		observability.RecordFeedError("stale_tick")
		return nil
	}

	var completed []*domain.Candle
	if ok && bucket.After(current.OpenTime) {
		completed = append(completed, current)
		observability.RecordCandleEmitted(tick.Market)
		ok = false
	}

	if !ok {
		a.building[tick.Market] = newCandle(tick.Market, a.timeframe, bucket, tick)
		return completed
	}

	current.HighBid = decimal.Max(current.HighBid, tick.Bid)
	current.LowBid = decimal.Min(current.LowBid, tick.Bid)
	current.CloseBid = tick.Bid
	current.HighAsk = decimal.Max(current.HighAsk, tick.Ask)
	current.LowAsk = decimal.Min(current.LowAsk, tick.Ask)
	current.CloseAsk = tick.Ask
	current.Volume = current.Volume.Add(decimal.NewFromInt(1))
	return completed
}

// Flush completes and returns every candle still under construction,
// ordered by market. Used at shutdown so a partial bucket is not lost.
func (a *Aggregator) Flush() []*domain.Candle {
	if len(a.building) == 0 {
		return nil
	}
	out := make([]*domain.Candle, 0, len(a.building))
	for market, candle := range a.building {
		out = append(out, candle)
		observability.RecordCandleEmitted(market)
	}
	a.building = make(map[string]*domain.Candle)
	sort.Slice(out, func(i, j int) bool { return out[i].Market < out[j].Market })
	return out
}

func newCandle(market string, tf domain.Timeframe, bucket time.Time, tick Tick) *domain.Candle {
	return &domain.Candle{
		Market:    market,
		Timeframe: tf,
		OpenTime:  bucket,
		CloseTime: bucket.Add(tf.Duration()),
		OpenBid:   tick.Bid, HighBid: tick.Bid, LowBid: tick.Bid, CloseBid: tick.Bid,
		OpenAsk: tick.Ask, HighAsk: tick.Ask, LowAsk: tick.Ask, CloseAsk: tick.Ask,
		Volume: decimal.NewFromInt(1),
	}
}
