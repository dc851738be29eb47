package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkersStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_orchestrator_workers_started_total",
		Help: "Total number of workers started",
	})

	WorkersStoppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_orchestrator_workers_stopped_total",
		Help: "Total number of workers stopped",
	})

	WorkerJoinTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_lp_orchestrator_worker_join_timeouts_total",
		Help: "Total number of workers that missed the shutdown join deadline",
	})
)
