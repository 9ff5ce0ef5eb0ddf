package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.BalanceAdjustments == nil || m.ScopeExecutions == nil || m.HTTPRequests == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.Overdrafts.Inc()
	m.LoanDecisions.WithLabelValues("approved", "A").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.Overdrafts); got != 1 {
		t.Fatalf("expected overdraft counter 1, got %v", got)
	}
}

func TestNewWithSeparateRegistries(t *testing.T) {
	// Independent registries must not collide on metric names.
	_ = New(prometheus.NewRegistry())
	_ = New(prometheus.NewRegistry())
}
