package replay

import (
	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/idhash"
)

// NewSeed builds the simulated trade a replay starts from: a copy of the
// source trade with every outcome field stripped. Entry, close, profit
// and R-multiple are cleared; the price schedules start empty and are
// refilled step by step from the source trade's own schedules. The seed's
// ID is derived deterministically from market, source trade and policy so
// rerunning the same simulation overwrites rather than duplicates.
func NewSeed(original *domain.Trade, policyID string) *domain.Trade {
	seed := original.Clone()
	seed.ID = idhash.ComputeSimTradeID(original.Market, original.ID, policyID)

	seed.OrderPrices = nil
	seed.OrderPrice = nil
	seed.OrderTime = nil
	seed.OrderType = ""
	seed.StopPrices = nil
	seed.StopPrice = nil
	seed.LimitPrices = nil
	seed.LimitPrice = nil

	seed.EntryTime = nil
	seed.EntryPrice = nil
	seed.CloseTime = nil
	seed.ClosePrice = nil
	seed.CloseReason = ""

	seed.Quantity = nil
	seed.GrossProfit = nil
	seed.NetProfit = nil
	seed.RMultiple = nil

	// A trade entered at market has no order amount of its own.
	if seed.OrderAmount == nil && original.Quantity != nil {
		q := *original.Quantity
		seed.OrderAmount = &q
	}

	return seed
}

// EligibleForReplay reports whether a journal trade qualifies as a
// simulation source: a completed trade with a computed R-multiple and an
// unrevised stop and limit (exactly one entry in each schedule), so the
// what-if comparison against the historical outcome is well defined.
func EligibleForReplay(t *domain.Trade) bool {
	return len(t.StopPrices) == 1 &&
		len(t.LimitPrices) == 1 &&
		t.RMultiple != nil &&
		t.CloseTime != nil
}
