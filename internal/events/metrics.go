package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_lp_events_recorded_total",
		Help: "Total number of events recorded, by type",
	}, []string{"type"})

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_events_dropped_total",
		Help: "Total number of events dropped by slow subscribers",
	})
)
