package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stackWorkers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_stack_workers_total",
			Help: "Drill-down tasks by outcome (ok, error, skipped)",
		},
		[]string{"outcome"},
	)
	countQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_count_queries_total",
			Help: "Paged fetches by whether a total count query fired",
		},
		[]string{"fired"},
	)
)
