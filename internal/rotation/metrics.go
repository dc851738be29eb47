package rotation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RotationsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_rotations_applied_total",
		Help: "Total number of applied market replacements",
	})

	MarketsSeededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_markets_seeded_total",
		Help: "Total number of markets seeded into empty slots",
	})
)
