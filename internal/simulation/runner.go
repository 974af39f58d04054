// Package simulation orchestrates a what-if replay for one market: it
// pulls the candles the selected policies need, steps simulated time
// forward one M1 close at a time through every seed trade's state
// machine, and recomputes outcomes on the results.
package simulation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/indicator"
	"fx-trade-lab/internal/lookup"
	"fx-trade-lab/internal/outcome"
	"fx-trade-lab/internal/policy"
	"fx-trade-lab/internal/replay"
	"fx-trade-lab/internal/storage"
)

// Runner executes simulations for one market at a time.
type Runner struct {
	candleStore       storage.CandleStore
	marketStore       storage.MarketDetailsStore
	includeOpenTrades bool
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	CandleStore        storage.CandleStore
	MarketDetailsStore storage.MarketDetailsStore

	// IncludeOpenTrades marks trades still open at the end of the range
	// to the last seen close instead of leaving their outcome unset.
	IncludeOpenTrades bool
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		candleStore:       opts.CandleStore,
		marketStore:       opts.MarketDetailsStore,
		includeOpenTrades: opts.IncludeOpenTrades,
	}
}

// Run replays the given source trades for one market under cfg.
// Steps:
//  1. Build policies via policy.FromConfig(cfg)
//  2. Load M1 candles plus the coarser timeframes the stop policy needs,
//     with indicators annotated
//  3. Step M1 closes in order through each still-active trade
//  4. Recompute outcomes on the results
//
// A market with no M1 candles in range yields an empty result, not an
// error. Trades that never fill come back unfilled.
func (r *Runner) Run(ctx context.Context, cfg domain.ReplayConfig, market string, sources []*domain.Trade) ([]*domain.Trade, error) {
	policies, err := policy.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, nil
	}

	m1, err := r.loadM1(ctx, cfg, market)
	if err != nil {
		return nil, err
	}
	if len(m1) == 0 {
		return []*domain.Trade{}, nil
	}

	lk, err := r.buildLookup(ctx, cfg, market, policies)
	if err != nil {
		return nil, err
	}

	replays := make([]*replay.Replay, len(sources))
	for i, src := range sources {
		replays[i] = replay.New(src, policies)
	}

	for _, candle := range m1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		now := candle.CloseTime
		lk.Advance(now)
		for _, rp := range replays {
			rp.Step(now, candle, lk)
		}
	}

	trades := make([]*domain.Trade, len(replays))
	for i, rp := range replays {
		trades[i] = rp.Trade()
	}
	if err := r.recalculate(ctx, trades, m1[len(m1)-1]); err != nil {
		return nil, err
	}
	return trades, nil
}

// loadM1 fetches the stepping candles, bounded to the configured range.
func (r *Runner) loadM1(ctx context.Context, cfg domain.ReplayConfig, market string) ([]*domain.Candle, error) {
	candles, err := r.candleStore.GetCandles(ctx, market, domain.TimeframeM1, cfg.End)
	if err != nil {
		return nil, fmt.Errorf("load M1 candles for %s: %w", market, err)
	}
	if cfg.Start.IsZero() {
		return candles, nil
	}
	for i, c := range candles {
		if !c.OpenTime.Before(cfg.Start) {
			return candles[i:], nil
		}
	}
	return nil, nil
}

// buildLookup populates the multi-timeframe view the stop policy
// consults, with its required indicators precomputed.
func (r *Runner) buildLookup(ctx context.Context, cfg domain.ReplayConfig, market string, policies *policy.Set) (*lookup.TimeframeLookup, error) {
	lk := lookup.New()
	for tf, inds := range policies.Requirements() {
		candles, err := r.candleStore.GetCandles(ctx, market, tf, cfg.End)
		if err != nil {
			return nil, fmt.Errorf("load %s candles for %s: %w", tf, market, err)
		}
		annotated, err := indicator.Annotate(candles, inds)
		if err != nil {
			return nil, fmt.Errorf("annotate %s candles for %s: %w", tf, market, err)
		}
		lk.Set(tf, annotated)
	}
	return lk, nil
}

// recalculate recomputes R-multiple and profit on every result. Open
// trades are marked to the last stepped candle's exit-side close when
// the runner is configured to include them.
func (r *Runner) recalculate(ctx context.Context, trades []*domain.Trade, last *domain.Candle) error {
	calc := outcome.NewCalculator(r.marketStore)
	markTime := last.CloseTime
	for _, t := range trades {
		opts := outcome.Options{IncludeOpenTrades: r.includeOpenTrades}
		if r.includeOpenTrades && t.IsOpen() {
			mark := markPrice(t.Direction, last)
			opts.MarkPrice = &mark
			opts.MarkTime = &markTime
		}
		if err := calc.Recalculate(ctx, t, opts); err != nil {
			return err
		}
	}
	return nil
}

// markPrice is the close an open trade would exit at: bid for a long,
// ask for a short.
func markPrice(direction domain.Direction, c *domain.Candle) decimal.Decimal {
	if direction == domain.DirectionLong {
		return c.CloseBid
	}
	return c.CloseAsk
}
