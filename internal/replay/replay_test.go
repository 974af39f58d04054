package replay

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/lookup"
	"fx-trade-lab/internal/policy"
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

var start = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// m1 builds an M1 candle closing at close+spread ask side, with the
// given bid OHLC. Ask = bid + 0.0002 throughout.
func m1(openTime time.Time, open, high, low, closePrice string) *domain.Candle {
	spread := dec("0.0002")
	o, h, l, c := dec(open), dec(high), dec(low), dec(closePrice)
	return &domain.Candle{
		Market:    "EUR/USD",
		Timeframe: domain.TimeframeM1,
		OpenTime:  openTime,
		CloseTime: openTime.Add(time.Minute),
		OpenBid:   o, HighBid: h, LowBid: l, CloseBid: c,
		OpenAsk: o.Add(spread), HighAsk: h.Add(spread), LowAsk: l.Add(spread), CloseAsk: c.Add(spread),
	}
}

// sourceLongTrade is a completed historical long with one order, one stop
// and one limit revision.
func sourceLongTrade() *domain.Trade {
	t := &domain.Trade{
		ID:        "J-100",
		Market:    "EUR/USD",
		Direction: domain.DirectionLong,
		Quantity:  decPtr("10000"),
		OrderPrices: []domain.DatePrice{
			{Time: start, Price: dec("1.1000")},
		},
		StopPrices: []domain.DatePrice{
			{Time: start, Price: dec("1.0950")},
		},
		LimitPrices: []domain.DatePrice{
			{Time: start, Price: dec("1.1100")},
		},
		EntryTime:  timePtr(start.Add(5 * time.Minute)),
		EntryPrice: decPtr("1.1000"),
		CloseTime:  timePtr(start.Add(3 * time.Hour)),
		ClosePrice: decPtr("1.1080"),
		RMultiple:  decPtr("1.6"),
	}
	return t
}

func originalPolicies(t *testing.T) *policy.Set {
	t.Helper()
	set, err := policy.FromConfig(domain.ReplayConfig{
		StopMode:  domain.StopModeOriginal,
		LimitMode: domain.LimitModeOriginal,
		OrderMode: domain.OrderModeOriginal,
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	return set
}

func TestSeedStripsOutcome(t *testing.T) {
	original := sourceLongTrade()
	seed := NewSeed(original, "STOP_ORIGINAL/LIMIT_ORIGINAL/ORDER_ORIGINAL")

	if seed.ID == original.ID || seed.ID == "" {
		t.Fatalf("seed ID = %q", seed.ID)
	}
	if seed.EntryTime != nil || seed.EntryPrice != nil {
		t.Fatal("entry not stripped")
	}
	if seed.CloseTime != nil || seed.ClosePrice != nil || seed.CloseReason != "" {
		t.Fatal("close not stripped")
	}
	if seed.RMultiple != nil || seed.GrossProfit != nil || seed.NetProfit != nil {
		t.Fatal("outcome not stripped")
	}
	if len(seed.OrderPrices) != 0 || len(seed.StopPrices) != 0 || len(seed.LimitPrices) != 0 {
		t.Fatal("schedules not emptied")
	}
	if seed.OrderAmount == nil || !seed.OrderAmount.Equal(dec("10000")) {
		t.Fatalf("order amount = %v, want original quantity", seed.OrderAmount)
	}

	// Deterministic: same source + policy, same ID.
	again := NewSeed(original, "STOP_ORIGINAL/LIMIT_ORIGINAL/ORDER_ORIGINAL")
	if again.ID != seed.ID {
		t.Fatalf("seed ID not deterministic: %q vs %q", again.ID, seed.ID)
	}
}

func TestReplayLifecycleLimitEntryToLimitClose(t *testing.T) {
	r := New(sourceLongTrade(), originalPolicies(t))
	lk := lookup.New()

	if r.State() != StateSeed {
		t.Fatalf("state = %s, want SEED", r.State())
	}

	// Candle closes above the order, so the order is a limit entry, and
	// its low never reaches it: pending, no fill.
	c := m1(start, "1.1020", "1.1030", "1.1010", "1.1025")
	r.Step(c.CloseTime, c, lk)
	if r.State() != StateOrderPending {
		t.Fatalf("state = %s, want ORDER_PENDING", r.State())
	}
	if r.Trade().OrderType != domain.OrderTypeLimitEntry {
		t.Fatalf("order type = %s, want LIMIT_ENTRY", r.Trade().OrderType)
	}

	// Low ask 1.0992 crosses the 1.1000 order: fill at the order price.
	c = m1(start.Add(time.Minute), "1.1020", "1.1022", "1.0990", "1.1005")
	r.Step(c.CloseTime, c, lk)
	if r.State() != StateOpen {
		t.Fatalf("state = %s, want OPEN", r.State())
	}
	sim := r.Trade()
	if !sim.EntryPrice.Equal(dec("1.1000")) {
		t.Fatalf("entry = %s, want the order price", sim.EntryPrice)
	}
	if !sim.Quantity.Equal(dec("10000")) {
		t.Fatalf("quantity = %v", sim.Quantity)
	}
	if !sim.StopPrice.Equal(dec("1.0950")) || !sim.LimitPrice.Equal(dec("1.1100")) {
		t.Fatalf("stop/limit = %v/%v", sim.StopPrice, sim.LimitPrice)
	}

	// Close bid reaches the limit: closed at the limit level itself.
	c = m1(start.Add(2*time.Minute), "1.1080", "1.1120", "1.1070", "1.1105")
	r.Step(c.CloseTime, c, lk)
	if r.State() != StateClosed {
		t.Fatalf("state = %s, want CLOSED", r.State())
	}
	if sim.CloseReason != domain.ReasonLimit {
		t.Fatalf("close reason = %s", sim.CloseReason)
	}
	if !sim.ClosePrice.Equal(dec("1.1100")) {
		t.Fatalf("close price = %s, want the limit level", sim.ClosePrice)
	}

	// Closed is terminal: further candles change nothing.
	c = m1(start.Add(3*time.Minute), "1.0900", "1.0910", "1.0890", "1.0900")
	r.Step(c.CloseTime, c, lk)
	if !sim.ClosePrice.Equal(dec("1.1100")) || sim.CloseReason != domain.ReasonLimit {
		t.Fatal("closed trade mutated")
	}
}

func TestReplayStopClose(t *testing.T) {
	r := New(sourceLongTrade(), originalPolicies(t))
	lk := lookup.New()

	c := m1(start, "1.1020", "1.1022", "1.0990", "1.1005")
	r.Step(c.CloseTime, c, lk) // fills at 1.1000 same candle

	if r.State() != StateOpen {
		t.Fatalf("state = %s, want OPEN", r.State())
	}

	// Close bid 1.0940 is through the 1.0950 stop: close at the stop.
	c = m1(start.Add(time.Minute), "1.1000", "1.1002", "1.0930", "1.0940")
	r.Step(c.CloseTime, c, lk)
	sim := r.Trade()
	if sim.CloseReason != domain.ReasonStop {
		t.Fatalf("close reason = %s, want STOP", sim.CloseReason)
	}
	if !sim.ClosePrice.Equal(dec("1.0950")) {
		t.Fatalf("close price = %s, want the stop level", sim.ClosePrice)
	}
}

func TestReplayStopBeatsLimitInSameCandle(t *testing.T) {
	r := New(sourceLongTrade(), originalPolicies(t))
	lk := lookup.New()

	c := m1(start, "1.1020", "1.1022", "1.0990", "1.1005")
	r.Step(c.CloseTime, c, lk)

	// Force both levels crossed at once by revising the sim's levels so
	// the close satisfies stop and limit together.
	sim := r.Trade()
	sim.StopPrice = decPtr("1.1010")
	sim.LimitPrice = decPtr("1.0990")

	c = m1(start.Add(time.Minute), "1.1000", "1.1002", "1.0995", "1.1000")
	r.Step(c.CloseTime, c, lk)
	if sim.CloseReason != domain.ReasonStop {
		t.Fatalf("close reason = %s, want STOP to win the tie", sim.CloseReason)
	}
	if !sim.ClosePrice.Equal(dec("1.1010")) {
		t.Fatalf("close price = %s, want the stop level", sim.ClosePrice)
	}
}

func TestReplayIntrabarSpikeDoesNotClose(t *testing.T) {
	r := New(sourceLongTrade(), originalPolicies(t))
	lk := lookup.New()

	c := m1(start, "1.1020", "1.1022", "1.0990", "1.1005")
	r.Step(c.CloseTime, c, lk)

	// Low spikes through the stop but the close recovers: crossing is
	// judged on the close price only, so the trade stays open.
	c = m1(start.Add(time.Minute), "1.1005", "1.1008", "1.0930", "1.0990")
	r.Step(c.CloseTime, c, lk)
	if r.State() != StateOpen {
		t.Fatalf("state = %s, want OPEN after intrabar spike", r.State())
	}
}

func TestReplayShortLifecycle(t *testing.T) {
	original := &domain.Trade{
		ID:        "J-200",
		Market:    "EUR/USD",
		Direction: domain.DirectionShort,
		Quantity:  decPtr("5000"),
		OrderPrices: []domain.DatePrice{
			{Time: start, Price: dec("1.1050")},
		},
		StopPrices: []domain.DatePrice{
			{Time: start, Price: dec("1.1100")},
		},
		LimitPrices: []domain.DatePrice{
			{Time: start, Price: dec("1.0950")},
		},
	}
	r := New(original, originalPolicies(t))
	lk := lookup.New()

	// Order 1.1050 above the 1.1005 bid close: limit entry for a short.
	c := m1(start, "1.1000", "1.1010", "1.0995", "1.1005")
	r.Step(c.CloseTime, c, lk)
	if r.Trade().OrderType != domain.OrderTypeLimitEntry {
		t.Fatalf("order type = %s, want LIMIT_ENTRY", r.Trade().OrderType)
	}
	if r.State() != StateOrderPending {
		t.Fatalf("state = %s, want ORDER_PENDING", r.State())
	}

	// High bid reaches the order: short fills at 1.1050.
	c = m1(start.Add(time.Minute), "1.1010", "1.1055", "1.1005", "1.1040")
	r.Step(c.CloseTime, c, lk)
	if r.State() != StateOpen {
		t.Fatalf("state = %s, want OPEN", r.State())
	}
	if !r.Trade().EntryPrice.Equal(dec("1.1050")) {
		t.Fatalf("entry = %s", r.Trade().EntryPrice)
	}

	// Ask close 1.0942 is through the 1.0950 limit: close at the limit.
	c = m1(start.Add(2*time.Minute), "1.1000", "1.1002", "1.0935", "1.0940")
	r.Step(c.CloseTime, c, lk)
	sim := r.Trade()
	if sim.CloseReason != domain.ReasonLimit {
		t.Fatalf("close reason = %s, want LIMIT", sim.CloseReason)
	}
	if !sim.ClosePrice.Equal(dec("1.0950")) {
		t.Fatalf("close price = %s", sim.ClosePrice)
	}
}

func TestReplayShortOrderInsideSpreadIsStopEntry(t *testing.T) {
	original := &domain.Trade{
		ID:        "J-201",
		Market:    "EUR/USD",
		Direction: domain.DirectionShort,
		Quantity:  decPtr("5000"),
		OrderPrices: []domain.DatePrice{
			{Time: start, Price: dec("1.10010")},
		},
		StopPrices: []domain.DatePrice{
			{Time: start, Price: dec("1.1050")},
		},
		LimitPrices: []domain.DatePrice{
			{Time: start, Price: dec("1.0950")},
		},
	}
	r := New(original, originalPolicies(t))
	lk := lookup.New()

	// Order 1.10010 sits between the 1.1000 bid close and 1.1002 ask
	// close. At or below the ask close means the short sells on the way
	// down: stop entry, not limit entry.
	c := m1(start, "1.0995", "1.1005", "1.0990", "1.1000")
	r.Step(c.CloseTime, c, lk)
	if r.Trade().OrderType != domain.OrderTypeStopEntry {
		t.Fatalf("order type = %s, want STOP_ENTRY", r.Trade().OrderType)
	}

	// The candle already traded below the order on the bid side, so the
	// stop entry fills at the order price on the placement candle.
	if r.State() != StateOpen {
		t.Fatalf("state = %s, want OPEN", r.State())
	}
	if !r.Trade().EntryPrice.Equal(dec("1.10010")) {
		t.Fatalf("entry = %s, want the order price", r.Trade().EntryPrice)
	}
}

func TestReplayStopEntryClassificationAndFill(t *testing.T) {
	original := sourceLongTrade()
	original.OrderPrices = []domain.DatePrice{{Time: start, Price: dec("1.1040")}}
	r := New(original, originalPolicies(t))
	lk := lookup.New()

	// Order 1.1040 above the 1.1007 ask close: stop entry for a long.
	c := m1(start, "1.1000", "1.1010", "1.0995", "1.1005")
	r.Step(c.CloseTime, c, lk)
	if r.Trade().OrderType != domain.OrderTypeStopEntry {
		t.Fatalf("order type = %s, want STOP_ENTRY", r.Trade().OrderType)
	}

	// High ask 1.1047 breaks through the order: filled.
	c = m1(start.Add(time.Minute), "1.1010", "1.1045", "1.1005", "1.1040")
	r.Step(c.CloseTime, c, lk)
	if r.State() != StateOpen {
		t.Fatalf("state = %s, want OPEN", r.State())
	}
	if !r.Trade().EntryPrice.Equal(dec("1.1040")) {
		t.Fatalf("entry = %s, want the order price", r.Trade().EntryPrice)
	}
}

func TestReplayMarketOrderSeed(t *testing.T) {
	original := sourceLongTrade()
	original.OrderPrices = nil // entered at market: no order schedule
	r := New(original, originalPolicies(t))
	lk := lookup.New()

	// The original entry price acts as a synthetic order.
	c := m1(start.Add(5*time.Minute), "1.1010", "1.1012", "1.0995", "1.1005")
	r.Step(c.CloseTime, c, lk)
	if r.State() != StateOpen {
		t.Fatalf("state = %s, want OPEN", r.State())
	}
	if !r.Trade().EntryPrice.Equal(dec("1.1000")) {
		t.Fatalf("entry = %s, want the original entry price", r.Trade().EntryPrice)
	}
}

func TestReplayOrderExpiryCancels(t *testing.T) {
	original := sourceLongTrade()
	original.OrderExpiry = timePtr(start.Add(2 * time.Minute))
	r := New(original, originalPolicies(t))
	lk := lookup.New()

	// Price never comes back to the order before expiry.
	c := m1(start, "1.1020", "1.1030", "1.1010", "1.1025")
	r.Step(c.CloseTime, c, lk)
	c = m1(start.Add(time.Minute), "1.1025", "1.1035", "1.1015", "1.1030")
	r.Step(c.CloseTime, c, lk)

	if r.Active() {
		t.Fatal("expired order still active")
	}
	if r.Trade().EntryTime != nil {
		t.Fatal("expired order filled")
	}
}

func TestReplayUnfilledTradeIsNotAnError(t *testing.T) {
	r := New(sourceLongTrade(), originalPolicies(t))
	lk := lookup.New()

	for i := 0; i < 10; i++ {
		c := m1(start.Add(time.Duration(i)*time.Minute), "1.1020", "1.1030", "1.1010", "1.1025")
		r.Step(c.CloseTime, c, lk)
	}
	if r.State() != StateOrderPending {
		t.Fatalf("state = %s, want ORDER_PENDING", r.State())
	}
	if !r.Active() {
		t.Fatal("pending trade should stay active until range ends")
	}
}

func TestReplayTrailingStopScenario(t *testing.T) {
	tf := domain.TimeframeH2
	ind := domain.IndicatorEMA8
	set, err := policy.FromConfig(domain.ReplayConfig{
		StopMode:       domain.StopModeTrailIndicator,
		TrailTimeframe: &tf,
		TrailIndicator: &ind,
		LimitMode:      domain.LimitModeNone,
		OrderMode:      domain.OrderModeOriginal,
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	r := New(sourceLongTrade(), set)
	lk := lookup.New()
	h2 := domain.Candle{
		Market: "EUR/USD", Timeframe: tf,
		OpenTime: start, CloseTime: start.Add(2 * time.Hour),
		CloseBid: dec("1.1060"), CloseAsk: dec("1.1062"),
	}.WithIndicator(ind, dec("1.1020"))
	lk.Set(tf, []*domain.Candle{&h2})

	c := m1(start, "1.1020", "1.1022", "1.0990", "1.1005")
	lk.Advance(c.CloseTime)
	r.Step(c.CloseTime, c, lk) // fill at 1.1000, initial stop 1.0950, no limit

	sim := r.Trade()
	if sim.LimitPrice != nil {
		t.Fatalf("limit = %s, want none", sim.LimitPrice)
	}

	// After the H2 candle closes, the stop trails up to the EMA.
	now := start.Add(2 * time.Hour)
	c = m1(now.Add(-time.Minute), "1.1055", "1.1065", "1.1050", "1.1060")
	lk.Advance(now)
	r.Step(now, c, lk)
	if !sim.StopPrice.Equal(dec("1.1020")) {
		t.Fatalf("stop = %s, want EMA 1.1020", sim.StopPrice)
	}

	// Close bid drops through the trailed stop: closed at the stop, in
	// profit relative to the 1.1000 entry.
	c = m1(now, "1.1030", "1.1032", "1.1005", "1.1010")
	lk.Advance(c.CloseTime)
	r.Step(c.CloseTime, c, lk)
	if sim.CloseReason != domain.ReasonStop {
		t.Fatalf("close reason = %s, want STOP", sim.CloseReason)
	}
	if !sim.ClosePrice.Equal(dec("1.1020")) {
		t.Fatalf("close price = %s, want the trailed stop", sim.ClosePrice)
	}
}

func TestEligibleForReplay(t *testing.T) {
	good := sourceLongTrade()
	if !EligibleForReplay(good) {
		t.Fatal("completed trade with one stop and one limit should qualify")
	}

	revised := sourceLongTrade()
	revised.StopPrices = append(revised.StopPrices, domain.DatePrice{Time: start.Add(time.Hour), Price: dec("1.0970")})
	if EligibleForReplay(revised) {
		t.Fatal("trade with revised stop should not qualify")
	}

	open := sourceLongTrade()
	open.CloseTime = nil
	if EligibleForReplay(open) {
		t.Fatal("open trade should not qualify")
	}

	noR := sourceLongTrade()
	noR.RMultiple = nil
	if EligibleForReplay(noR) {
		t.Fatal("trade without R-multiple should not qualify")
	}
}
