// Package scheduler fans per-market simulation runs out across a
// bounded worker pool and merges the results back into one trade list.
// One market's failure is logged and counted, never fatal to the batch.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/observability"
	"fx-trade-lab/internal/policy"
)

// DefaultWorkers is the worker-pool bound used when none is configured.
const DefaultWorkers = 3

// MarketRunner runs one market's simulation. Implemented by
// simulation.Runner.
type MarketRunner interface {
	Run(ctx context.Context, cfg domain.ReplayConfig, market string, sources []*domain.Trade) ([]*domain.Trade, error)
}

// Item is one unit of work: every source trade for one market.
type Item struct {
	Market  string
	Sources []*domain.Trade
}

// Result contains merged results from a scheduled batch.
type Result struct {
	Trades    []*domain.Trade
	Completed int // markets simulated to the end
	Skipped   int // markets not started because the context was cancelled
	Failed    int // markets that errored or panicked
	Errors    []string
}

// Options for creating a Scheduler.
type Options struct {
	Runner  MarketRunner
	Workers int // pool bound, DefaultWorkers when <= 0

	// Metrics to record into; DefaultMetrics when nil.
	Metrics *observability.Metrics

	// OnProgress, when set, is called after each finished market with
	// the running completion count.
	OnProgress func(completed, total int, market string)

	Verbose bool
}

// Scheduler executes per-market simulation runs concurrently.
type Scheduler struct {
	runner     MarketRunner
	workers    int
	metrics    *observability.Metrics
	onProgress func(completed, total int, market string)
	verbose    bool
	logger     *log.Logger
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &Scheduler{
		runner:     opts.Runner,
		workers:    workers,
		metrics:    metrics,
		onProgress: opts.OnProgress,
		verbose:    opts.Verbose,
		logger:     log.New(os.Stderr, "[scheduler] ", log.LstdFlags),
	}
}

// Run executes every item under cfg. The policy configuration is
// validated up front and fails fast; per-market failures afterwards are
// collected into the result instead. Cancelling ctx stops workers from
// claiming new items; in-flight markets run to completion.
func (s *Scheduler) Run(ctx context.Context, cfg domain.ReplayConfig, items []Item) (*Result, error) {
	if _, err := policy.FromConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid replay config: %w", err)
	}

	result := &Result{}
	if len(items) == 0 {
		return result, nil
	}

	// Enqueue all work up front, then close to signal no more is coming.
	queue := make(chan Item, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	var mu sync.Mutex
	var wg sync.WaitGroup
	total := len(items)

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				if ctx.Err() != nil {
					mu.Lock()
					result.Skipped++
					mu.Unlock()
					continue
				}

				trades, err := s.runOne(ctx, cfg, item)

				mu.Lock()
				if err != nil {
					result.Failed++
					result.Errors = append(result.Errors, fmt.Sprintf("market %s: %v", item.Market, err))
					s.metrics.WorkerErrors.Inc()
				} else {
					result.Trades = append(result.Trades, trades...)
					result.Completed++
				}
				completed := result.Completed
				mu.Unlock()

				if err != nil {
					s.logger.Printf("market %s failed: %v", item.Market, err)
					continue
				}
				s.log("completed %d/%d markets (%s)", completed, total, item.Market)
				if s.onProgress != nil {
					s.onProgress(completed, total, item.Market)
				}
			}
		}()
	}
	wg.Wait()

	return result, nil
}

// runOne simulates a single market, converting a panic into an error so
// a bad market cannot take the whole batch down.
func (s *Scheduler) runOne(ctx context.Context, cfg domain.ReplayConfig, item Item) (trades []*domain.Trade, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()

	started := time.Now()
	trades, err = s.runner.Run(ctx, cfg, item.Market, item.Sources)
	if err != nil {
		return nil, err
	}

	s.metrics.MarketsSimulated.Inc()
	s.metrics.RunDuration.Observe(time.Since(started).Seconds())
	s.metrics.TradesReplayed.Add(float64(len(trades)))
	for _, t := range trades {
		if t.EntryTime != nil {
			s.metrics.TradesFilled.Inc()
		}
		if t.IsClosed() {
			s.metrics.TradesClosed.WithLabelValues(string(t.CloseReason)).Inc()
		}
	}
	return trades, nil
}

func (s *Scheduler) log(format string, args ...interface{}) {
	if s.verbose {
		s.logger.Printf(format, args...)
	}
}
