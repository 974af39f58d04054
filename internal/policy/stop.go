package policy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/lookup"
)

// OriginalScheduleStop replays the historical stop revisions verbatim.
type OriginalScheduleStop struct{}

func (OriginalScheduleStop) ID() string { return domain.StopModeOriginal }

func (OriginalScheduleStop) Requirements() map[domain.Timeframe][]domain.Indicator {
	return nil
}

func (OriginalScheduleStop) UpdateStop(sim, original *domain.Trade, prog *Progress, now time.Time, _ *lookup.TimeframeLookup) {
	advanceScheduledStop(sim, original, prog, now, false)
}

// InitialOnlyStop consumes only the first historical stop revision and
// suppresses all later scheduled ones.
type InitialOnlyStop struct{}

func (InitialOnlyStop) ID() string { return domain.StopModeInitialOnly }

func (InitialOnlyStop) Requirements() map[domain.Timeframe][]domain.Indicator {
	return nil
}

func (InitialOnlyStop) UpdateStop(sim, original *domain.Trade, prog *Progress, now time.Time, _ *lookup.TimeframeLookup) {
	advanceScheduledStop(sim, original, prog, now, true)
}

// IndicatorTrailStop takes the initial historical stop, then trails it
// along an EMA on a coarser timeframe. The stop only ever moves in the
// risk-reducing direction.
type IndicatorTrailStop struct {
	Timeframe domain.Timeframe
	Indicator domain.Indicator // EMA8 or EMA25
}

func (s IndicatorTrailStop) ID() string {
	return fmt.Sprintf("%s_%s_%s", domain.StopModeTrailIndicator, s.Timeframe, s.Indicator)
}

func (s IndicatorTrailStop) Requirements() map[domain.Timeframe][]domain.Indicator {
	return map[domain.Timeframe][]domain.Indicator{
		s.Timeframe: {s.Indicator, domain.IndicatorATR14},
	}
}

func (s IndicatorTrailStop) UpdateStop(sim, original *domain.Trade, prog *Progress, now time.Time, lk *lookup.TimeframeLookup) {
	advanceScheduledStop(sim, original, prog, now, true)

	candle, ok := lk.LastClosed(s.Timeframe)
	if !ok {
		return
	}
	candidate, ok := candle.Indicator(s.Indicator)
	if !ok {
		return
	}

	trailStop(sim, now, candidate)
}

// DynamicTrailStop takes the initial historical stop, then trails it a
// fixed ATR multiple behind the current close on a fixed coarser
// timeframe, mirroring broker-side dynamic trailing stops.
type DynamicTrailStop struct {
	ATRMultiple decimal.Decimal
}

// dynamicTrailTimeframe is the timeframe whose ATR drives the dynamic
// trailing stop.
const dynamicTrailTimeframe = domain.TimeframeH2

func (s DynamicTrailStop) ID() string {
	return fmt.Sprintf("%s_%s", domain.StopModeTrailDynamic, s.ATRMultiple)
}

func (s DynamicTrailStop) Requirements() map[domain.Timeframe][]domain.Indicator {
	return map[domain.Timeframe][]domain.Indicator{
		dynamicTrailTimeframe: {domain.IndicatorATR14},
	}
}

func (s DynamicTrailStop) UpdateStop(sim, original *domain.Trade, prog *Progress, now time.Time, lk *lookup.TimeframeLookup) {
	advanceScheduledStop(sim, original, prog, now, true)

	candle, ok := lk.LastClosed(dynamicTrailTimeframe)
	if !ok {
		return
	}
	atr, ok := candle.Indicator(domain.IndicatorATR14)
	if !ok {
		return
	}

	offset := atr.Mul(s.ATRMultiple)

	var candidate decimal.Decimal
	switch sim.Direction {
	case domain.DirectionLong:
		candidate = candle.CloseBid.Sub(offset)
	case domain.DirectionShort:
		candidate = candle.CloseAsk.Add(offset)
	default:
		return
	}

	trailStop(sim, now, candidate)
}
