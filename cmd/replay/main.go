package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/outcome"
	"fx-trade-lab/internal/replay"
	"fx-trade-lab/internal/scheduler"
	"fx-trade-lab/internal/simulation"
	"fx-trade-lab/internal/storage"
	chstore "fx-trade-lab/internal/storage/clickhouse"
	"fx-trade-lab/internal/storage/memory"
	pgstore "fx-trade-lab/internal/storage/postgres"
)

func main() {
	// Policy selection
	stopMode := flag.String("stop-mode", domain.StopModeOriginal, "Stop policy: STOP_ORIGINAL, STOP_INITIAL_ONLY, STOP_TRAIL_INDICATOR, STOP_TRAIL_DYNAMIC")
	limitMode := flag.String("limit-mode", domain.LimitModeOriginal, "Limit policy: LIMIT_ORIGINAL, LIMIT_FIXED_R, LIMIT_NONE")
	orderMode := flag.String("order-mode", domain.OrderModeOriginal, "Order policy: ORDER_ORIGINAL, ORDER_PERCENT_SHIFT")

	// Policy parameters
	trailTimeframe := flag.String("trail-timeframe", "H2", "Timeframe for STOP_TRAIL_INDICATOR")
	trailIndicator := flag.String("trail-indicator", "EMA8", "Indicator for STOP_TRAIL_INDICATOR: EMA8 or EMA25")
	atrMultiple := flag.String("atr-multiple", "", "ATR multiple for STOP_TRAIL_DYNAMIC")
	limitRMultiple := flag.String("limit-r", "", "R multiple for LIMIT_FIXED_R")
	orderShiftPct := flag.String("order-shift-pct", "", "Order shift percent for ORDER_PERCENT_SHIFT (positive improves the fill)")

	// Scope
	market := flag.String("market", "", "Replay a single market (default: all markets with trades)")
	startStr := flag.String("start", "", "Replay range start (RFC3339, default unbounded)")
	endStr := flag.String("end", "", "Replay range end (RFC3339, default unbounded)")
	includeOpen := flag.Bool("include-open", true, "Mark open trades to the last replayed price")

	// Execution
	workers := flag.Int("workers", scheduler.DefaultWorkers, "Concurrent market workers")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (trades, market details)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (candles)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output simulated trades as JSON")
	persistResult := flag.Bool("persist", false, "Persist simulated trades to storage")
	verbose := flag.Bool("verbose", false, "Verbose logging")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores
	var candleStore storage.CandleStore = memory.NewCandleStore()
	var tradeStore storage.TradeStore = memory.NewTradeStore()
	var marketStore storage.MarketDetailsStore = memory.NewMarketDetailsStore()

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory (trades and market details)")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory (candles)")
		}

		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		tradeStore = pgstore.NewTradeStore(pool)
		marketStore = pgstore.NewMarketDetailsStore(pool)

		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		candleStore = chstore.NewCandleStore(conn)
	}

	// Build replay config from flags
	cfg, err := buildReplayConfig(
		*stopMode, *limitMode, *orderMode,
		*trailTimeframe, *trailIndicator,
		*atrMultiple, *limitRMultiple, *orderShiftPct,
		*startStr, *endStr,
	)
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	// Load source trades
	var sources []*domain.Trade
	if *market != "" {
		sources, err = tradeStore.GetByMarket(ctx, *market)
	} else {
		sources, err = tradeStore.GetAll(ctx)
	}
	if err != nil {
		logger.Fatalf("load trades: %v", err)
	}

	items := groupByMarket(sources)
	if len(items) == 0 {
		logger.Fatal("no eligible trades to replay")
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		CandleStore:        candleStore,
		MarketDetailsStore: marketStore,
		IncludeOpenTrades:  *includeOpen,
	})

	sched := scheduler.New(scheduler.Options{
		Runner:  runner,
		Workers: *workers,
		Verbose: *verbose,
		OnProgress: func(completed, total int, market string) {
			logger.Printf("progress: %d/%d markets (%s)", completed, total, market)
		},
	})

	logger.Printf("Replaying %d market(s): stop=%s limit=%s order=%s workers=%d",
		len(items), *stopMode, *limitMode, *orderMode, *workers)

	result, err := sched.Run(ctx, cfg, items)
	if err != nil {
		logger.Fatalf("replay failed: %v", err)
	}
	for _, e := range result.Errors {
		logger.Printf("market error: %s", e)
	}

	if *persistResult && len(result.Trades) > 0 {
		if err := tradeStore.InsertBulk(ctx, result.Trades); err != nil {
			logger.Fatalf("persist simulated trades: %v", err)
		}
		logger.Printf("persisted %d simulated trades", len(result.Trades))
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result.Trades, "", "  ")
		fmt.Println(string(output))
	} else {
		printSummary(result, outcome.Summarize(result.Trades))
	}
}

// buildReplayConfig assembles and pre-validates a ReplayConfig from CLI
// flags. Mode consistency itself is checked by the policy factory.
func buildReplayConfig(
	stopMode, limitMode, orderMode string,
	trailTimeframe, trailIndicator string,
	atrMultiple, limitRMultiple, orderShiftPct string,
	startStr, endStr string,
) (domain.ReplayConfig, error) {
	cfg := domain.ReplayConfig{
		StopMode:  strings.ToUpper(stopMode),
		LimitMode: strings.ToUpper(limitMode),
		OrderMode: strings.ToUpper(orderMode),
	}

	if startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return cfg, fmt.Errorf("parse --start: %w", err)
		}
		cfg.Start = start
	}
	if endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return cfg, fmt.Errorf("parse --end: %w", err)
		}
		cfg.End = end
	}

	if cfg.StopMode == domain.StopModeTrailIndicator {
		tf, err := domain.ParseTimeframe(strings.ToUpper(trailTimeframe))
		if err != nil {
			return cfg, fmt.Errorf("parse --trail-timeframe: %w", err)
		}
		cfg.TrailTimeframe = &tf

		ind := domain.Indicator(strings.ToUpper(trailIndicator))
		cfg.TrailIndicator = &ind
	}

	var err error
	if cfg.ATRMultiple, err = decimalFlag(atrMultiple, "--atr-multiple"); err != nil {
		return cfg, err
	}
	if cfg.LimitRMultiple, err = decimalFlag(limitRMultiple, "--limit-r"); err != nil {
		return cfg, err
	}
	if cfg.OrderShiftPercent, err = decimalFlag(orderShiftPct, "--order-shift-pct"); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// decimalFlag parses an optional decimal flag, empty meaning unset.
func decimalFlag(s, name string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &d, nil
}

// groupByMarket filters eligible source trades and groups them per market.
func groupByMarket(sources []*domain.Trade) []scheduler.Item {
	byMarket := make(map[string][]*domain.Trade)
	for _, t := range sources {
		if !replay.EligibleForReplay(t) {
			continue
		}
		byMarket[t.Market] = append(byMarket[t.Market], t)
	}

	markets := make([]string, 0, len(byMarket))
	for m := range byMarket {
		markets = append(markets, m)
	}
	sort.Strings(markets)

	items := make([]scheduler.Item, 0, len(markets))
	for _, m := range markets {
		items = append(items, scheduler.Item{Market: m, Sources: byMarket[m]})
	}
	return items
}

// printSummary outputs a human-readable result summary.
func printSummary(result *scheduler.Result, s outcome.Summary) {
	fmt.Println()
	fmt.Println("=== Replay Result ===")
	fmt.Printf("Markets:                %d completed, %d failed, %d skipped\n",
		result.Completed, result.Failed, result.Skipped)
	fmt.Printf("Trades replayed:        %d\n", s.Trades)
	fmt.Printf("Trades with outcome:    %d\n", s.Counted)
	fmt.Printf("Unfilled:               %d\n", s.Unfilled)
	fmt.Printf("Wins / Losses:          %d / %d\n", s.Wins, s.Losses)
	fmt.Printf("Win rate:               %.2f%%\n", s.WinRate*100)
	fmt.Printf("R mean / median:        %.3f / %.3f\n", s.RMean, s.RMedian)
	fmt.Printf("R stddev:               %.3f\n", s.RStddev)
	fmt.Printf("R min / max:            %.3f / %.3f\n", s.RMin, s.RMax)
	fmt.Printf("Max drawdown (R):       %.3f\n", s.MaxDrawdown)
	fmt.Printf("Max consecutive losses: %d\n", s.MaxConsecutiveLosses)
}
