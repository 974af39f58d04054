// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	TicksProcessed   prometheus.Counter
	CandlesEmitted   *prometheus.CounterVec
	FeedErrors       *prometheus.CounterVec
	LastTickReceived prometheus.Gauge

	// Simulation metrics
	MarketsSimulated prometheus.Counter
	TradesReplayed   prometheus.Counter
	TradesFilled     prometheus.Counter
	TradesClosed     *prometheus.CounterVec
	WorkerErrors     prometheus.Counter
	RunDuration      prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fx_trade_lab"
	}

	return &Metrics{
		// Feed metrics
		TicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_processed_total",
			Help:      "Total number of price ticks processed",
		}),
		CandlesEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "candles_emitted_total",
			Help:      "Total number of candles emitted by market",
		}, []string{"market"}),
		FeedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of feed errors by type",
		}, []string{"error_type"}),
		LastTickReceived: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "last_tick_received_timestamp",
			Help:      "Unix timestamp of the last received tick",
		}),

		// Simulation metrics
		MarketsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "markets_simulated_total",
			Help:      "Total number of per-market simulation runs completed",
		}),
		TradesReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_replayed_total",
			Help:      "Total number of trades replayed",
		}),
		TradesFilled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_filled_total",
			Help:      "Total number of simulated trades that entered",
		}),
		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_closed_total",
			Help:      "Total number of simulated trades closed by reason",
		}, []string{"reason"}),
		WorkerErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "worker_errors_total",
			Help:      "Total number of per-market worker failures",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "run_duration_seconds",
			Help:      "Duration of per-market simulation runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration by database and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTick increments the ticks processed counter and updates the
// last-tick gauge.
func RecordTick(unixTime float64) {
	DefaultMetrics.TicksProcessed.Inc()
	DefaultMetrics.LastTickReceived.Set(unixTime)
}

// RecordCandleEmitted increments the candles emitted counter for market.
func RecordCandleEmitted(market string) {
	DefaultMetrics.CandlesEmitted.WithLabelValues(market).Inc()
}

// RecordFeedError records a feed error by type.
func RecordFeedError(errorType string) {
	DefaultMetrics.FeedErrors.WithLabelValues(errorType).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
