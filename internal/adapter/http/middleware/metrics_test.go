package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/sarathi/internal/infrastructure/metrics"
)

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/v1/escrows/{id}", func(w http.ResponseWriter, r *http.Request) {
		if got := testutil.ToFloat64(m.HTTPInFlight); got != 1 {
			t.Errorf("expected one in-flight request, got %v", got)
		}
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/escrows/esc-42", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/escrows/{id}", "418")); got != 1 {
		t.Fatalf("expected request counter 1, got %v", got)
	}
	if got := testutil.CollectAndCount(m.HTTPDuration); got != 1 {
		t.Fatalf("expected one duration series, got %d", got)
	}
	if got := testutil.ToFloat64(m.HTTPInFlight); got != 0 {
		t.Fatalf("expected in-flight gauge back at 0, got %v", got)
	}
}

func TestMetricsMiddlewareUnmatchedRoute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/nowhere/123", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodPost, "unmatched", "404")); got != 1 {
		t.Fatalf("expected unmatched counter 1, got %v", got)
	}
}
