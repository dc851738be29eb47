package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_lp_workers_running",
		Help: "Number of currently running quote workers",
	})

	WorkerIterationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_lp_worker_iterations_total",
		Help: "Total worker iterations, by market",
	}, []string{"slug"})

	QuotesReplacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_lp_quotes_replaced_total",
		Help: "Total quote replacements, by market and side",
	}, []string{"slug", "side"})
)
