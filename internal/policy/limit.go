package policy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
)

// OriginalScheduleLimit replays the historical limit revisions verbatim.
type OriginalScheduleLimit struct{}

func (OriginalScheduleLimit) ID() string { return domain.LimitModeOriginal }

func (OriginalScheduleLimit) UpdateLimit(sim, original *domain.Trade, prog *Progress, now time.Time) {
	if len(original.LimitPrices) == 0 || prog.LimitIdx+1 >= len(original.LimitPrices) {
		return
	}
	next := original.LimitPrices[prog.LimitIdx+1]
	if prog.LimitIdx >= 0 && next.Time.After(now) {
		return
	}
	prog.LimitIdx++
	appendLimit(sim, next.Time, next.Price)
}

// NoLimit runs the trade without any limit; the historical limit
// schedule is ignored entirely.
type NoLimit struct{}

func (NoLimit) ID() string { return domain.LimitModeNone }

func (NoLimit) UpdateLimit(sim, _ *domain.Trade, _ *Progress, _ time.Time) {
	if sim.LimitPrice != nil || len(sim.LimitPrices) > 0 {
		sim.LimitPrices = nil
		sim.LimitPrice = nil
	}
}

// FixedRLimit sets a single limit at the order price plus a configured
// multiple of the initial stop distance, computed once when both an
// order price and an initial stop exist, and never revised.
//
// The one formula serves both directions: for a short the stop is above
// the order so the offset is negative.
type FixedRLimit struct {
	R decimal.Decimal
}

func (l FixedRLimit) ID() string {
	return fmt.Sprintf("%s_%s", domain.LimitModeFixedR, l.R)
}

func (l FixedRLimit) UpdateLimit(sim, _ *domain.Trade, _ *Progress, _ time.Time) {
	if len(sim.LimitPrices) > 0 {
		return // computed once, never revised
	}
	if sim.OrderPrice == nil || len(sim.StopPrices) == 0 {
		return
	}

	order := *sim.OrderPrice
	initialStop := sim.StopPrices[0].Price
	limit := order.Add(order.Sub(initialStop).Mul(l.R))

	appendLimit(sim, sim.StopPrices[0].Time, limit)
}
