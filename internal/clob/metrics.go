package clob

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BooksFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_clob_books_fetched_total",
		Help: "Total number of order books fetched",
	})

	BookFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_clob_book_fetch_errors_total",
		Help: "Total number of order book fetch failures",
	})

	BookFetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_lp_clob_book_fetch_duration_seconds",
		Help:    "Order book fetch latency",
		Buckets: prometheus.DefBuckets,
	})

	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_lp_clob_orders_placed_total",
		Help: "Total number of orders placed, by side",
	}, []string{"side"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_clob_orders_cancelled_total",
		Help: "Total number of orders cancelled",
	})

	OrderErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_lp_clob_order_errors_total",
		Help: "Total number of failed order operations, by operation",
	}, []string{"op"})
)
