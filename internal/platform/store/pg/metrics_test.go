package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsTracer_Outcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMetricsTracer(reg)
	if err != nil {
		t.Fatalf("NewMetricsTracer: %v", err)
	}
	ctx := context.Background()
	m.OnQuery(ctx, QueryEvent{Backend: "pg", ElapsedUS: 1000})
	m.OnQuery(ctx, QueryEvent{Backend: "pg", ElapsedUS: 1000})
	m.OnQuery(ctx, QueryEvent{Backend: "ch", Err: errors.New("x")})
	m.OnQuery(ctx, QueryEvent{Slow: true})

	if got := testutil.ToFloat64(m.total.WithLabelValues("pg", "ok")); got != 2 {
		t.Fatalf("pg ok = %v", got)
	}
	if got := testutil.ToFloat64(m.total.WithLabelValues("ch", "error")); got != 1 {
		t.Fatalf("ch error = %v", got)
	}
	if got := testutil.ToFloat64(m.total.WithLabelValues("pg", "slow")); got != 1 {
		t.Fatalf("default backend slow = %v", got)
	}

	if _, err := NewMetricsTracer(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
