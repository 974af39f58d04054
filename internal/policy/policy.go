// Package policy implements the stop/limit/order adjustment rules a
// what-if replay applies to each trade. Policies are stateless; per-trade
// progress through the original revision schedules is carried in a
// Progress value owned by the replay state machine. Missing inputs (no
// stop yet, no indicator value yet) are silent no-ops, never errors.
package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/lookup"
)

// Progress tracks how far into the original trade's revision schedules
// the replay has advanced. Indices are the last consumed revision, -1
// when none has been consumed yet.
type Progress struct {
	OrderIdx int
	StopIdx  int
	LimitIdx int
}

// NewProgress returns a Progress with nothing consumed.
func NewProgress() Progress {
	return Progress{OrderIdx: -1, StopIdx: -1, LimitIdx: -1}
}

// StopPolicy decides stop revisions for a simulated trade. UpdateStop
// appends at most one new stop entry to sim per step.
type StopPolicy interface {
	ID() string

	// Requirements lists the coarser timeframes and indicators this
	// policy consults, beyond the finest stepping timeframe.
	Requirements() map[domain.Timeframe][]domain.Indicator

	UpdateStop(sim, original *domain.Trade, prog *Progress, now time.Time, lk *lookup.TimeframeLookup)
}

// LimitPolicy decides limit revisions for a simulated trade.
type LimitPolicy interface {
	ID() string

	UpdateLimit(sim, original *domain.Trade, prog *Progress, now time.Time)
}

// OrderAdjuster transforms scheduled order prices before they are
// applied, e.g. shifting them a fixed percentage better or worse.
type OrderAdjuster interface {
	ID() string

	Adjust(price decimal.Decimal, direction domain.Direction) decimal.Decimal
}

// Set bundles the three policy axes selected for one replay run.
type Set struct {
	Stop  StopPolicy
	Limit LimitPolicy
	Order OrderAdjuster
}

// ID returns the combined policy identifier used for deterministic
// simulated-trade IDs.
func (s *Set) ID() string {
	return s.Stop.ID() + "/" + s.Limit.ID() + "/" + s.Order.ID()
}

// Requirements returns the coarser timeframes and indicators the run
// must populate, derived from the stop policy.
func (s *Set) Requirements() map[domain.Timeframe][]domain.Indicator {
	return s.Stop.Requirements()
}

// appendStop records a new stop revision on the simulated trade.
func appendStop(sim *domain.Trade, at time.Time, price decimal.Decimal) {
	sim.StopPrices = append(sim.StopPrices, domain.DatePrice{Time: at, Price: price})
	p := price
	sim.StopPrice = &p
}

// appendLimit records a new limit revision on the simulated trade.
func appendLimit(sim *domain.Trade, at time.Time, price decimal.Decimal) {
	sim.LimitPrices = append(sim.LimitPrices, domain.DatePrice{Time: at, Price: price})
	p := price
	sim.LimitPrice = &p
}

// advanceScheduledStop replays the original trade's stop schedule:
// consume the next revision once its timestamp has arrived. With
// initialOnly set, only the first revision is ever consumed; later
// scheduled revisions are suppressed.
func advanceScheduledStop(sim, original *domain.Trade, prog *Progress, now time.Time, initialOnly bool) {
	if len(original.StopPrices) == 0 || prog.StopIdx+1 >= len(original.StopPrices) {
		return
	}
	next := original.StopPrices[prog.StopIdx+1]
	if prog.StopIdx >= 0 && next.Time.After(now) {
		return
	}
	if initialOnly && prog.StopIdx >= 0 {
		return
	}
	prog.StopIdx++
	appendStop(sim, next.Time, next.Price)
}

// trailStop appends candidate as a new stop entry when it is strictly
// more favorable than the current stop: up for a long, down for a short.
// A trade with no stop yet, or not yet open, is left untouched.
func trailStop(sim *domain.Trade, now time.Time, candidate decimal.Decimal) {
	if !sim.IsOpen() || sim.StopPrice == nil {
		return
	}

	improved := false
	switch sim.Direction {
	case domain.DirectionLong:
		improved = candidate.GreaterThan(*sim.StopPrice)
	case domain.DirectionShort:
		improved = candidate.LessThan(*sim.StopPrice)
	}

	if improved {
		appendStop(sim, now, candidate)
	}
}
