// Package outcome recomputes trade results: R-multiple and gross/net
// profit per trade, plus aggregate statistics over a result set. The
// same calculation serves live journal trades and simulated replays.
package outcome

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/storage"
)

// Options controls recalculation.
type Options struct {
	// IncludeOpenTrades marks still-open trades to MarkPrice/MarkTime so
	// they enter profit and R figures. When false, open trades keep nil
	// outcome fields.
	IncludeOpenTrades bool

	// MarkPrice is the last seen exit-side close used to value open
	// trades. Ignored unless IncludeOpenTrades is set.
	MarkPrice *decimal.Decimal
	MarkTime  *time.Time
}

// Calculator recomputes outcome fields on trades. Pip size and pip value
// come from the market-details store; a market without details gets its
// R-multiple computed but profits left unset.
type Calculator struct {
	marketStore storage.MarketDetailsStore
}

// NewCalculator creates a calculator backed by the given market details.
func NewCalculator(marketStore storage.MarketDetailsStore) *Calculator {
	return &Calculator{marketStore: marketStore}
}

// Recalculate computes RMultiple, GrossProfit and NetProfit in place.
// Trades without an entry, a resolved initial stop, or an exit price are
// left partially or fully unset; missing data is never an error.
func (c *Calculator) Recalculate(ctx context.Context, trade *domain.Trade, opts Options) error {
	trade.RMultiple = nil
	trade.GrossProfit = nil
	trade.NetProfit = nil

	exit, ok := exitPrice(trade, opts)
	if !ok || trade.EntryPrice == nil {
		return nil
	}
	entry := *trade.EntryPrice

	// Signed price move in the trade's favor.
	move := exit.Sub(entry)
	if trade.Direction == domain.DirectionShort {
		move = move.Neg()
	}

	if initialStop, ok := trade.InitialStop(); ok {
		risk := entry.Sub(initialStop).Abs()
		if risk.IsPositive() {
			r := move.Div(risk)
			trade.RMultiple = &r
		}
	}

	details, err := c.marketStore.GetByName(ctx, trade.Market)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if trade.Quantity == nil || !details.PipSize.IsPositive() {
		return nil
	}

	pips := move.Div(details.PipSize)
	gross := pips.Mul(details.PipValue).Mul(*trade.Quantity)
	net := gross.Sub(trade.Commission).Add(trade.Rollover)
	trade.GrossProfit = &gross
	trade.NetProfit = &net
	return nil
}

// RecalculateAll runs Recalculate over a result set.
func (c *Calculator) RecalculateAll(ctx context.Context, trades []*domain.Trade, opts Options) error {
	for _, t := range trades {
		if err := c.Recalculate(ctx, t, opts); err != nil {
			return err
		}
	}
	return nil
}

// exitPrice resolves the price a trade is valued at: its close price, or
// the mark price for an open trade when open trades are included.
func exitPrice(trade *domain.Trade, opts Options) (decimal.Decimal, bool) {
	if trade.ClosePrice != nil {
		return *trade.ClosePrice, true
	}
	if trade.IsOpen() && opts.IncludeOpenTrades && opts.MarkPrice != nil {
		return *opts.MarkPrice, true
	}
	return decimal.Decimal{}, false
}
