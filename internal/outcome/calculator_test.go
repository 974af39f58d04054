package outcome

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/storage/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func timePtr(t time.Time) *time.Time {
	return &t
}

var entryAt = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	store := memory.NewMarketDetailsStore()
	err := store.Insert(context.Background(), &domain.MarketDetails{
		Name:     "EUR/USD",
		PipSize:  dec("0.0001"),
		PipValue: dec("0.0001"),
	})
	if err != nil {
		t.Fatalf("insert market details: %v", err)
	}
	return NewCalculator(store)
}

func closedLong(entry, stop, close string) *domain.Trade {
	return &domain.Trade{
		ID:         "T1",
		Market:     "EUR/USD",
		Direction:  domain.DirectionLong,
		Quantity:   decPtr("10000"),
		StopPrices: []domain.DatePrice{{Time: entryAt, Price: dec(stop)}},
		EntryTime:  timePtr(entryAt),
		EntryPrice: decPtr(entry),
		CloseTime:  timePtr(entryAt.Add(time.Hour)),
		ClosePrice: decPtr(close),
	}
}

func TestRecalculateLongWin(t *testing.T) {
	calc := newCalculator(t)
	trade := closedLong("1.1000", "1.0950", "1.1100")

	if err := calc.Recalculate(context.Background(), trade, Options{}); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}

	// 100 pips gained against 50 pips risked.
	if trade.RMultiple == nil || !trade.RMultiple.Equal(dec("2")) {
		t.Fatalf("R = %v, want 2", trade.RMultiple)
	}
	// 100 pips * 0.0001 per unit * 10000 units.
	if trade.GrossProfit == nil || !trade.GrossProfit.Equal(dec("100")) {
		t.Fatalf("gross = %v, want 100", trade.GrossProfit)
	}
	if !trade.NetProfit.Equal(dec("100")) {
		t.Fatalf("net = %v, want 100 with no costs", trade.NetProfit)
	}
}

func TestRecalculateShortAndCosts(t *testing.T) {
	calc := newCalculator(t)
	trade := &domain.Trade{
		ID:         "T2",
		Market:     "EUR/USD",
		Direction:  domain.DirectionShort,
		Quantity:   decPtr("10000"),
		StopPrices: []domain.DatePrice{{Time: entryAt, Price: dec("1.1050")}},
		EntryTime:  timePtr(entryAt),
		EntryPrice: decPtr("1.1000"),
		CloseTime:  timePtr(entryAt.Add(time.Hour)),
		ClosePrice: decPtr("1.0900"),
		Commission: dec("2.5"),
		Rollover:   dec("-0.5"),
	}

	if err := calc.Recalculate(context.Background(), trade, Options{}); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}

	if !trade.RMultiple.Equal(dec("2")) {
		t.Fatalf("R = %v, want 2", trade.RMultiple)
	}
	if !trade.GrossProfit.Equal(dec("100")) {
		t.Fatalf("gross = %v, want 100", trade.GrossProfit)
	}
	if !trade.NetProfit.Equal(dec("97")) {
		t.Fatalf("net = %v, want 100 - 2.5 - 0.5", trade.NetProfit)
	}
}

func TestRecalculateLoss(t *testing.T) {
	calc := newCalculator(t)
	trade := closedLong("1.1000", "1.0950", "1.0950")

	if err := calc.Recalculate(context.Background(), trade, Options{}); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !trade.RMultiple.Equal(dec("-1")) {
		t.Fatalf("R = %v, want -1 for a full stop-out", trade.RMultiple)
	}
	if !trade.GrossProfit.Equal(dec("-50")) {
		t.Fatalf("gross = %v, want -50", trade.GrossProfit)
	}
}

func TestRecalculateMissingInputsAreSilent(t *testing.T) {
	calc := newCalculator(t)
	ctx := context.Background()

	// Never entered.
	unfilled := &domain.Trade{ID: "T3", Market: "EUR/USD", Direction: domain.DirectionLong}
	if err := calc.Recalculate(ctx, unfilled, Options{}); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if unfilled.RMultiple != nil || unfilled.GrossProfit != nil {
		t.Fatal("unfilled trade got outcome fields")
	}

	// No initial stop: profit computes, R does not.
	noStop := closedLong("1.1000", "1.0950", "1.1100")
	noStop.StopPrices = nil
	if err := calc.Recalculate(ctx, noStop, Options{}); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if noStop.RMultiple != nil {
		t.Fatal("R computed without an initial stop")
	}
	if noStop.GrossProfit == nil {
		t.Fatal("profit should not require a stop")
	}

	// Unknown market: R computes, profit does not.
	unknown := closedLong("1.1000", "1.0950", "1.1100")
	unknown.Market = "XXX/YYY"
	if err := calc.Recalculate(ctx, unknown, Options{}); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if unknown.RMultiple == nil || unknown.GrossProfit != nil {
		t.Fatalf("unknown market: R = %v, gross = %v", unknown.RMultiple, unknown.GrossProfit)
	}
}

func TestRecalculateOpenTradeMarking(t *testing.T) {
	calc := newCalculator(t)
	ctx := context.Background()

	open := closedLong("1.1000", "1.0950", "1.1100")
	open.CloseTime = nil
	open.ClosePrice = nil

	// Excluded by default.
	if err := calc.Recalculate(ctx, open, Options{}); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if open.RMultiple != nil {
		t.Fatal("open trade valued without IncludeOpenTrades")
	}

	// Marked to the last seen close when included.
	mark := dec("1.1050")
	opts := Options{IncludeOpenTrades: true, MarkPrice: &mark, MarkTime: timePtr(entryAt.Add(time.Hour))}
	if err := calc.Recalculate(ctx, open, opts); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if open.RMultiple == nil || !open.RMultiple.Equal(dec("1")) {
		t.Fatalf("marked R = %v, want 1", open.RMultiple)
	}
}

func TestSummarize(t *testing.T) {
	win := closedLong("1.1000", "1.0950", "1.1100")
	win.RMultiple = decPtr("2")

	loss := closedLong("1.1000", "1.0950", "1.0950")
	loss.ID = "T4"
	loss.EntryTime = timePtr(entryAt.Add(time.Hour))
	loss.RMultiple = decPtr("-1")

	unfilled := &domain.Trade{ID: "T5", Market: "EUR/USD"}

	s := Summarize([]*domain.Trade{loss, win, unfilled})
	if s.Trades != 3 || s.Counted != 2 || s.Unfilled != 1 {
		t.Fatalf("counts = %+v", s)
	}
	if s.Wins != 1 || s.Losses != 1 || s.WinRate != 0.5 {
		t.Fatalf("win stats = %+v", s)
	}
	if s.RMean != 0.5 {
		t.Fatalf("mean = %v, want 0.5", s.RMean)
	}
	if s.RMin != -1 || s.RMax != 2 {
		t.Fatalf("min/max = %v/%v", s.RMin, s.RMax)
	}
	// Chronological order is win (2) then loss (-1): peak 2, trough 1.
	if s.MaxDrawdown != 1 {
		t.Fatalf("drawdown = %v, want 1", s.MaxDrawdown)
	}
	if s.MaxConsecutiveLosses != 1 {
		t.Fatalf("consecutive losses = %v", s.MaxConsecutiveLosses)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Trades != 0 || s.Counted != 0 || s.WinRate != 0 {
		t.Fatalf("empty summary = %+v", s)
	}
}
