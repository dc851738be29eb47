package selection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SelectionCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_selection_cycles_total",
		Help: "Total number of completed selection cycles",
	})

	SelectionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_selection_errors_total",
		Help: "Total number of failed selection cycles",
	})

	SelectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_lp_selection_duration_seconds",
		Help:    "Selection cycle duration",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	MarketsEligibleGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_lp_markets_eligible",
		Help: "Number of reward-eligible markets in the last cycle",
	})

	MarketsSelectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_lp_markets_selected",
		Help: "Number of markets in the current top-N snapshot",
	})
)
