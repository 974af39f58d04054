package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// OrderType classifies how a pending order fills relative to the market:
// a limit entry waits for price to come back to the order level, a stop
// entry waits for price to break through it.
type OrderType string

const (
	OrderTypeLimitEntry OrderType = "LIMIT_ENTRY"
	OrderTypeStopEntry  OrderType = "STOP_ENTRY"
)

// CloseReason records why a trade closed. ReasonManual is never produced
// by the simulator itself; it only appears on real trades the replay
// inherits from trading history.
type CloseReason string

const (
	ReasonStop   CloseReason = "STOP"
	ReasonLimit  CloseReason = "LIMIT"
	ReasonManual CloseReason = "MANUAL"
)

// DatePrice is one entry in a price revision schedule.
type DatePrice struct {
	Time  time.Time
	Price decimal.Decimal
}

// Trade is the central record of the journal: a real historical trade or a
// simulated replay of one. Price schedules (OrderPrices, StopPrices,
// LimitPrices) record every revision over the trade's life in
// chronological order; the *Price fields hold the current effective value.
// All prices and quantities are decimal, never float64.
type Trade struct {
	ID     string
	Market string

	Direction Direction
	Quantity  *decimal.Decimal // filled quantity, nil until entry

	// Pending order state.
	OrderPrices []DatePrice
	OrderPrice  *decimal.Decimal
	OrderAmount *decimal.Decimal
	OrderTime   *time.Time
	OrderType   OrderType
	OrderExpiry *time.Time

	// Stop / limit state.
	StopPrices  []DatePrice
	StopPrice   *decimal.Decimal
	LimitPrices []DatePrice
	LimitPrice  *decimal.Decimal

	// Entry.
	EntryTime  *time.Time
	EntryPrice *decimal.Decimal

	// Close.
	CloseTime   *time.Time
	ClosePrice  *decimal.Decimal
	CloseReason CloseReason

	// Costs.
	Commission decimal.Decimal
	Rollover   decimal.Decimal

	// Computed outcome, recomputed by the outcome calculator.
	GrossProfit *decimal.Decimal
	NetProfit   *decimal.Decimal
	RMultiple   *decimal.Decimal
}

// InitialStop returns the first scheduled stop revision, the reference
// level for risk (R-multiple) calculations.
func (t *Trade) InitialStop() (decimal.Decimal, bool) {
	if len(t.StopPrices) == 0 {
		return decimal.Decimal{}, false
	}
	return t.StopPrices[0].Price, true
}

// IsOpen reports whether the trade has entered but not yet closed.
func (t *Trade) IsOpen() bool {
	return t.EntryTime != nil && t.CloseTime == nil
}

// IsClosed reports whether the trade reached its terminal state.
func (t *Trade) IsClosed() bool {
	return t.CloseTime != nil
}

// Clone returns a deep copy of the trade. Schedules and pointer fields are
// copied so mutations of the clone never reach the original.
func (t *Trade) Clone() *Trade {
	c := *t
	c.OrderPrices = append([]DatePrice(nil), t.OrderPrices...)
	c.StopPrices = append([]DatePrice(nil), t.StopPrices...)
	c.LimitPrices = append([]DatePrice(nil), t.LimitPrices...)
	c.Quantity = cloneDecimal(t.Quantity)
	c.OrderPrice = cloneDecimal(t.OrderPrice)
	c.OrderAmount = cloneDecimal(t.OrderAmount)
	c.OrderTime = cloneTime(t.OrderTime)
	c.OrderExpiry = cloneTime(t.OrderExpiry)
	c.StopPrice = cloneDecimal(t.StopPrice)
	c.LimitPrice = cloneDecimal(t.LimitPrice)
	c.EntryTime = cloneTime(t.EntryTime)
	c.EntryPrice = cloneDecimal(t.EntryPrice)
	c.CloseTime = cloneTime(t.CloseTime)
	c.ClosePrice = cloneDecimal(t.ClosePrice)
	c.GrossProfit = cloneDecimal(t.GrossProfit)
	c.NetProfit = cloneDecimal(t.NetProfit)
	c.RMultiple = cloneDecimal(t.RMultiple)
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
