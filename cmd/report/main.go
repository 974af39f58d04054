package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/outcome"
	pgstore "fx-trade-lab/internal/storage/postgres"
)

// marketReport pairs a market with its aggregate statistics.
type marketReport struct {
	Market  string          `json:"market"`
	Summary outcome.Summary `json:"summary"`
}

func main() {
	// Parse flags
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	market := flag.String("market", "", "Report a single market (default: all markets)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewTradeStore(pool)

	var trades []*domain.Trade
	if *market != "" {
		trades, err = store.GetByMarket(ctx, *market)
	} else {
		trades, err = store.GetAll(ctx)
	}
	if err != nil {
		logger.Fatalf("load trades: %v", err)
	}
	if len(trades) == 0 {
		logger.Fatal("no trades stored")
	}

	reports := buildReports(trades)
	total := outcome.Summarize(trades)

	if *outputJSON {
		out := struct {
			Markets []marketReport  `json:"markets"`
			Total   outcome.Summary `json:"total"`
		}{reports, total}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, r := range reports {
		printSummary(r.Market, r.Summary)
	}
	if len(reports) > 1 {
		printSummary("ALL MARKETS", total)
	}
}

// buildReports summarizes trades per market, sorted by market name.
func buildReports(trades []*domain.Trade) []marketReport {
	byMarket := make(map[string][]*domain.Trade)
	for _, t := range trades {
		byMarket[t.Market] = append(byMarket[t.Market], t)
	}

	markets := make([]string, 0, len(byMarket))
	for m := range byMarket {
		markets = append(markets, m)
	}
	sort.Strings(markets)

	reports := make([]marketReport, 0, len(markets))
	for _, m := range markets {
		reports = append(reports, marketReport{
			Market:  m,
			Summary: outcome.Summarize(byMarket[m]),
		})
	}
	return reports
}

func printSummary(title string, s outcome.Summary) {
	fmt.Printf("\n=== %s ===\n", title)
	fmt.Printf("Trades:                 %d (%d with outcome, %d unfilled)\n", s.Trades, s.Counted, s.Unfilled)
	fmt.Printf("Wins / Losses:          %d / %d\n", s.Wins, s.Losses)
	fmt.Printf("Win rate:               %.2f%%\n", s.WinRate*100)
	fmt.Printf("R mean / median:        %.3f / %.3f\n", s.RMean, s.RMedian)
	fmt.Printf("R stddev:               %.3f\n", s.RStddev)
	fmt.Printf("R min / max:            %.3f / %.3f\n", s.RMin, s.RMax)
	fmt.Printf("Max drawdown (R):       %.3f\n", s.MaxDrawdown)
	fmt.Printf("Max consecutive losses: %d\n", s.MaxConsecutiveLosses)
}
