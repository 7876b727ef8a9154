package pg

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsTracer records statement latency and outcome in prometheus
type MetricsTracer struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewMetricsTracer builds the collectors and registers them on reg (nil means the default registerer)
func NewMetricsTracer(reg prometheus.Registerer) (*MetricsTracer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &MetricsTracer{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insights_store_query_duration_seconds",
				Help:    "Store statement latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "outcome"},
		),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_store_queries_total",
				Help: "Store statements executed",
			},
			[]string{"backend", "outcome"},
		),
	}
	for _, c := range []prometheus.Collector{m.duration, m.total} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OnQuery implements QueryTracer
func (m *MetricsTracer) OnQuery(_ context.Context, ev QueryEvent) {
	outcome := "ok"
	switch {
	case ev.Err != nil:
		outcome = "error"
	case ev.Slow:
		outcome = "slow"
	}
	backend := ev.Backend
	if backend == "" {
		backend = "pg"
	}
	m.duration.WithLabelValues(backend, outcome).Observe(float64(ev.ElapsedUS) / 1e6)
	m.total.WithLabelValues(backend, outcome).Inc()
}
