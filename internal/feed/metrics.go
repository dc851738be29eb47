package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// MarketsFetchedTotal tracks raw catalog records fetched.
	MarketsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_feed_markets_fetched_total",
		Help: "Total number of catalog records fetched from the Gamma API",
	})

	// RecordsSkippedTotal tracks records dropped by extraction failures.
	RecordsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_feed_records_skipped_total",
		Help: "Total number of malformed catalog records skipped",
	})

	// RetriesTotal tracks page fetch retries.
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_feed_retries_total",
		Help: "Total number of catalog page fetch retries",
	})

	// FetchErrorsTotal tracks catalog walks that failed terminally.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_feed_fetch_errors_total",
		Help: "Total number of catalog walks aborted after retry exhaustion",
	})

	// FetchDurationSeconds tracks full catalog walk latency.
	FetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_lp_feed_fetch_duration_seconds",
		Help:    "Duration of full catalog walks",
		Buckets: prometheus.DefBuckets,
	})
)
