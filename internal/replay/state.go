// Package replay implements the per-trade state machine that advances a
// simulated trade through Seed, OrderPending, Open and Closed as candles
// close, consuming the source trade's order schedule and delegating stop
// and limit decisions to the policy engine.
package replay

import (
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/lookup"
	"fx-trade-lab/internal/policy"
)

// State of a replayed trade.
type State string

// Replay states. Closed is terminal; a trade that never fills stays in
// Seed or OrderPending until the candle range ends, which is a normal
// result, not an error.
const (
	StateSeed         State = "SEED"
	StateOrderPending State = "ORDER_PENDING"
	StateOpen         State = "OPEN"
	StateClosed       State = "CLOSED"
)

// Replay steps one simulated trade through time. It owns the simulated
// trade and the progress cursors into the source trade's revision
// schedules; policies themselves are stateless and shared across trades.
type Replay struct {
	sim      *domain.Trade
	original *domain.Trade
	policies *policy.Set
	prog     policy.Progress
	expired  bool
}

// New builds a replay for one source trade: the seed is derived from the
// original with outcome fields stripped.
func New(original *domain.Trade, policies *policy.Set) *Replay {
	return &Replay{
		sim:      NewSeed(original, policies.ID()),
		original: original,
		policies: policies,
		prog:     policy.NewProgress(),
	}
}

// Trade returns the simulated trade in its current state.
func (r *Replay) Trade() *domain.Trade {
	return r.sim
}

// State reports the current lifecycle state.
func (r *Replay) State() State {
	switch {
	case r.sim.IsClosed():
		return StateClosed
	case r.sim.IsOpen():
		return StateOpen
	case r.sim.OrderPrice != nil:
		return StateOrderPending
	default:
		return StateSeed
	}
}

// Active reports whether further candles can still change the trade.
func (r *Replay) Active() bool {
	return !r.sim.IsClosed() && !r.expired
}

// Step advances the trade across one closed candle of the finest
// timeframe. now is the candle's close time; lk must already be advanced
// to now. Order of operations per step: order schedule, fill, stop and
// limit policies, close. Calling Step on an inactive trade is a no-op.
func (r *Replay) Step(now time.Time, candle *domain.Candle, lk *lookup.TimeframeLookup) {
	if !r.Active() {
		return
	}

	r.advanceOrder(now, candle)
	r.checkExpiry(now)
	r.checkFill(now, candle)

	r.policies.Stop.UpdateStop(r.sim, r.original, &r.prog, now, lk)
	r.policies.Limit.UpdateLimit(r.sim, r.original, &r.prog, now)

	r.checkClose(now, candle)
}

// orderSchedule returns the source trade's order revisions. A trade that
// was entered at market has none; its entry price at its entry time
// serves as a single synthetic order.
func (r *Replay) orderSchedule() []domain.DatePrice {
	if len(r.original.OrderPrices) > 0 {
		return r.original.OrderPrices
	}
	if r.original.EntryPrice != nil && r.original.EntryTime != nil {
		return []domain.DatePrice{{Time: *r.original.EntryTime, Price: *r.original.EntryPrice}}
	}
	return nil
}

// advanceOrder consumes the next due order revision, applies the order
// adjustment policy and reclassifies the order against the current close.
func (r *Replay) advanceOrder(now time.Time, candle *domain.Candle) {
	if r.sim.IsOpen() {
		return
	}
	schedule := r.orderSchedule()
	if len(schedule) == 0 || r.prog.OrderIdx+1 >= len(schedule) {
		return
	}
	next := schedule[r.prog.OrderIdx+1]
	if r.prog.OrderIdx >= 0 && next.Time.After(now) {
		return
	}
	r.prog.OrderIdx++

	price := r.policies.Order.Adjust(next.Price, r.sim.Direction)
	at := next.Time

	r.sim.OrderPrices = append(r.sim.OrderPrices, domain.DatePrice{Time: at, Price: price})
	r.sim.OrderPrice = &price
	r.sim.OrderTime = &at
	r.sim.OrderType = classifyOrder(r.sim.Direction, price, candle)
}

// classifyOrder decides limit-entry vs stop-entry by comparing the order
// price to the current ask close for both directions: a long below the
// market waits for price to come back (limit), a short below the market
// waits for price to break down through it (stop).
func classifyOrder(direction domain.Direction, price decimal.Decimal, candle *domain.Candle) domain.OrderType {
	if direction == domain.DirectionLong {
		if price.LessThanOrEqual(candle.CloseAsk) {
			return domain.OrderTypeLimitEntry
		}
		return domain.OrderTypeStopEntry
	}
	if price.LessThanOrEqual(candle.CloseAsk) {
		return domain.OrderTypeStopEntry
	}
	return domain.OrderTypeLimitEntry
}

// checkExpiry cancels a pending order whose expiry has passed. The trade
// then stays unfilled for the rest of the run.
func (r *Replay) checkExpiry(now time.Time) {
	if r.sim.IsOpen() || r.sim.OrderPrice == nil {
		return
	}
	if r.sim.OrderExpiry != nil && !r.sim.OrderExpiry.After(now) {
		r.sim.OrderPrice = nil
		r.expired = true
	}
}

// checkFill opens a pending trade when the candle's traded range crosses
// the order price in the qualifying direction. The entry price is the
// order price, never the candle close.
func (r *Replay) checkFill(now time.Time, candle *domain.Candle) {
	if r.sim.IsOpen() || r.sim.OrderPrice == nil {
		return
	}
	order := *r.sim.OrderPrice

	filled := false
	switch r.sim.Direction {
	case domain.DirectionLong:
		if r.sim.OrderType == domain.OrderTypeLimitEntry {
			filled = candle.LowAsk.LessThanOrEqual(order)
		} else {
			filled = candle.HighAsk.GreaterThanOrEqual(order)
		}
	case domain.DirectionShort:
		if r.sim.OrderType == domain.OrderTypeLimitEntry {
			filled = candle.HighBid.GreaterThanOrEqual(order)
		} else {
			filled = candle.LowBid.LessThanOrEqual(order)
		}
	}
	if !filled {
		return
	}

	at := now
	price := order
	r.sim.EntryTime = &at
	r.sim.EntryPrice = &price
	if r.sim.OrderAmount != nil {
		q := *r.sim.OrderAmount
		r.sim.Quantity = &q
	}
}

// checkClose closes an open trade when the candle's close price crosses
// the current stop or limit. The close price is the crossed level, and
// when both cross within the same candle the stop wins.
func (r *Replay) checkClose(now time.Time, candle *domain.Candle) {
	if !r.sim.IsOpen() {
		return
	}

	// A long exits by selling at bid, a short by buying at ask.
	var exit decimal.Decimal
	if r.sim.Direction == domain.DirectionLong {
		exit = candle.CloseBid
	} else {
		exit = candle.CloseAsk
	}

	if stop := r.sim.StopPrice; stop != nil && crossed(r.sim.Direction, exit, *stop, true) {
		r.close(now, *stop, domain.ReasonStop)
		return
	}
	if limit := r.sim.LimitPrice; limit != nil && crossed(r.sim.Direction, exit, *limit, false) {
		r.close(now, *limit, domain.ReasonLimit)
	}
}

// crossed reports whether the exit-side close price has reached level.
// A long's stop sits below its entry and its limit above; a short is the
// mirror image.
func crossed(direction domain.Direction, exit, level decimal.Decimal, isStop bool) bool {
	long := direction == domain.DirectionLong
	if isStop == long {
		return exit.LessThanOrEqual(level)
	}
	return exit.GreaterThanOrEqual(level)
}

func (r *Replay) close(now time.Time, price decimal.Decimal, reason domain.CloseReason) {
	at := now
	p := price
	r.sim.CloseTime = &at
	r.sim.ClosePrice = &p
	r.sim.CloseReason = reason
}
