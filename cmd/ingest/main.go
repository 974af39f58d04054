package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fx-trade-lab/internal/domain"
	"fx-trade-lab/internal/feed"
	"fx-trade-lab/internal/observability"
	"fx-trade-lab/internal/storage"
	chstore "fx-trade-lab/internal/storage/clickhouse"
	"fx-trade-lab/internal/storage/memory"
)

func main() {
	// Parse flags
	feedEndpoint := flag.String("feed-endpoint", "", "WebSocket tick feed endpoint (live mode)")
	csvPath := flag.String("csv", "", "CSV candle file to import instead of a live feed")
	markets := flag.String("markets", "EUR/USD", "Comma-separated markets to subscribe")
	timeframe := flag.String("timeframe", "M1", "Aggregation timeframe for emitted candles")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	flushInterval := flag.Duration("flush-interval", 10*time.Second, "How often buffered candles are written")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *feedEndpoint == "" && *csvPath == "" {
		logger.Fatal("either --feed-endpoint or --csv is required")
	}

	marketList := splitMarkets(*markets)
	if *feedEndpoint != "" && len(marketList) == 0 {
		logger.Fatal("--markets must name at least one market")
	}

	tf, err := domain.ParseTimeframe(strings.ToUpper(*timeframe))
	if err != nil {
		logger.Fatalf("parse --timeframe: %v", err)
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create candle store
	var candleStore storage.CandleStore = memory.NewCandleStore()
	if !*useMemory {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory")
		}
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()
		candleStore = chstore.NewCandleStore(conn)
	}

	if *csvPath != "" {
		if err := importCSV(ctx, logger, *csvPath, candleStore); err != nil {
			logger.Fatalf("csv import failed: %v", err)
		}
		return
	}

	// Connect to the tick feed
	client, err := feed.NewClient(ctx, *feedEndpoint, marketList, nil)
	if err != nil {
		logger.Fatalf("connect to feed: %v", err)
	}
	defer client.Close()

	logger.Printf("Ingesting %v at %s from %s", marketList, tf, *feedEndpoint)

	if err := run(ctx, logger, client, candleStore, tf, *flushInterval); err != nil && err != context.Canceled {
		logger.Fatalf("ingestion failed: %v", err)
	}
	logger.Println("Ingestion stopped")
}

// run aggregates ticks into candles and writes completed candles in
// batches. Buffered candles are flushed on the interval and on shutdown.
func run(
	ctx context.Context,
	logger *log.Logger,
	client *feed.Client,
	candleStore storage.CandleStore,
	tf domain.Timeframe,
	flushInterval time.Duration,
) error {
	aggregator := feed.NewAggregator(tf)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var pending []*domain.Candle

	flush := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		if err := candleStore.InsertBulk(ctx, pending); err != nil {
			// Duplicates happen on feed replays after a reconnect
			logger.Printf("write %d candles: %v", len(pending), err)
		} else {
			logger.Printf("wrote %d candles", len(pending))
		}
		pending = pending[:0]
	}

	for {
		select {
		case <-ctx.Done():
			// Final flush uses a fresh context, the run context is done
			pending = append(pending, aggregator.Flush()...)
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			flush(flushCtx)
			cancel()
			return ctx.Err()

		case tick, ok := <-client.Ticks():
			if !ok {
				pending = append(pending, aggregator.Flush()...)
				flush(ctx)
				return nil
			}
			pending = append(pending, aggregator.Apply(tick)...)

		case <-ticker.C:
			flush(ctx)
		}
	}
}

// importCSV loads a candle CSV file and writes it in one batch.
func importCSV(ctx context.Context, logger *log.Logger, path string, candleStore storage.CandleStore) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	candles, err := feed.ReadCandlesCSV(f)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		logger.Println("csv file contains no candles")
		return nil
	}

	if err := candleStore.InsertBulk(ctx, candles); err != nil {
		return err
	}
	logger.Printf("imported %d candles from %s", len(candles), path)
	return nil
}

// splitMarkets parses the comma-separated market list.
func splitMarkets(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
