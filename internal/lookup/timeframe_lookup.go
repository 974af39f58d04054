// Package lookup provides the multi-timeframe candle view the replay
// consults while stepping at the finest granularity: per-timeframe
// ordered candle series with cursors advanced by simulated time, so a
// trailing-stop decision on H2 or H4 only ever sees candles that had
// closed at the current simulated instant.
package lookup

import (
	"sort"
	"time"

	"fx-trade-lab/internal/domain"
)

// TimeframeLookup maps timeframe to an ordered candle series for one
// market. Not safe for concurrent use; each simulation worker owns its
// own lookup.
type TimeframeLookup struct {
	candles map[domain.Timeframe][]*domain.Candle
	cursor  map[domain.Timeframe]int // count of candles closed at current sim time
}

// New creates an empty lookup.
func New() *TimeframeLookup {
	return &TimeframeLookup{
		candles: make(map[domain.Timeframe][]*domain.Candle),
		cursor:  make(map[domain.Timeframe]int),
	}
}

// Set installs the candle series for tf. Candles must be in chronological
// order; the cursor for tf resets to zero.
func (l *TimeframeLookup) Set(tf domain.Timeframe, candles []*domain.Candle) {
	l.candles[tf] = candles
	l.cursor[tf] = 0
}

// Timeframes returns the timeframes with installed series.
func (l *TimeframeLookup) Timeframes() []domain.Timeframe {
	tfs := make([]domain.Timeframe, 0, len(l.candles))
	for tf := range l.candles {
		tfs = append(tfs, tf)
	}
	sort.Slice(tfs, func(i, j int) bool { return tfs[i] < tfs[j] })
	return tfs
}

// Candles returns the full installed series for tf.
func (l *TimeframeLookup) Candles(tf domain.Timeframe) []*domain.Candle {
	return l.candles[tf]
}

// Advance moves every cursor forward so it counts exactly the candles
// whose close time is at or before now. Simulated time only moves
// forward, so cursors never rewind.
func (l *TimeframeLookup) Advance(now time.Time) {
	for tf, series := range l.candles {
		i := l.cursor[tf]
		for i < len(series) && !series[i].CloseTime.After(now) {
			i++
		}
		l.cursor[tf] = i
	}
}

// LastClosed returns the most recent candle of tf closed at or before
// the current simulated time, or false when none has closed yet.
func (l *TimeframeLookup) LastClosed(tf domain.Timeframe) (*domain.Candle, bool) {
	i := l.cursor[tf]
	if i == 0 {
		return nil, false
	}
	return l.candles[tf][i-1], true
}

// ClosedCandles returns the prefix of tf's series closed at or before
// the current simulated time.
func (l *TimeframeLookup) ClosedCandles(tf domain.Timeframe) []*domain.Candle {
	return l.candles[tf][:l.cursor[tf]]
}
