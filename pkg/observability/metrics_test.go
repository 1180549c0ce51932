package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	expected := map[string]bool{
		"coursesearch_requests_total":           false,
		"coursesearch_request_duration_seconds": false,
		"coursesearch_requests_in_flight":       false,
		"coursesearch_searches_total":           false,
		"coursesearch_search_duration_seconds":  false,
		"coursesearch_source_queries_total":     false,
		"coursesearch_source_latency_seconds":   false,
		"coursesearch_source_results_total":     false,
		"coursesearch_rows_skipped_total":       false,
		"coursesearch_source_breaker_state":     false,
		"coursesearch_ratelimit_rejected_total": false,
		"coursesearch_tool_calls_total":         false,
	}

	// Vectors only appear after their first observation.
	RequestsTotal.WithLabelValues("GET", "2xx", "test").Inc()
	RequestDuration.WithLabelValues("GET", "test").Observe(0.1)
	SearchesTotal.WithLabelValues("results").Inc()
	SearchDuration.Observe(0.01)
	SourceQueriesTotal.WithLabelValues("forum", StatusOK).Inc()
	SourceLatency.WithLabelValues("forum").Observe(0.01)
	SourceResultsTotal.WithLabelValues("forum").Add(2)
	RowsSkippedTotal.WithLabelValues("forum", "hidden").Inc()
	BreakerState.WithLabelValues("forum").Set(0)
	RateLimitRejectedTotal.WithLabelValues("student").Inc()
	ToolCallsTotal.WithLabelValues("search_course", "ok").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestMetricsMiddlewareLabels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/courses/{id}/search", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "404" {
			http.Error(w, "course not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"count":0}`))
	})
	handler := MetricsMiddleware(mux)

	tests := []struct {
		name   string
		method string
		target string
		class  string
		route  string
	}{
		{"implicit 200", "GET", "/v1/courses/12/search?q=cell", "2xx", "GET /v1/courses/{id}/search"},
		{"handler error", "GET", "/v1/courses/404/search?q=cell", "4xx", "GET /v1/courses/{id}/search"},
		{"no route", "GET", "/nope/123", "4xx", "unmatched"},
		{"wrong method", "DELETE", "/v1/courses/12/search", "4xx", "unmatched"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := counterValue(t, RequestsTotal, tt.method, tt.class, tt.route)
			samples := histogramCount(t, RequestDuration, tt.method, tt.route)

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.target, nil))

			if d := counterValue(t, RequestsTotal, tt.method, tt.class, tt.route) - before; d != 1 {
				t.Errorf("requests_total{%s,%s,%s} delta = %v, want 1", tt.method, tt.class, tt.route, d)
			}
			if d := histogramCount(t, RequestDuration, tt.method, tt.route) - samples; d != 1 {
				t.Errorf("duration samples delta = %d, want 1", d)
			}
		})
	}
}

func TestMetricsMiddlewareInFlight(t *testing.T) {
	baseline := gaugeValue(t, InFlightRequests)

	var during float64
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = gaugeValue(t, InFlightRequests)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/search?courseid=2", nil))

	if during != baseline+1 {
		t.Errorf("in-flight during request = %v, want %v", during, baseline+1)
	}
	if after := gaugeValue(t, InFlightRequests); after != baseline {
		t.Errorf("in-flight after request = %v, want %v", after, baseline)
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &statusRecorder{ResponseWriter: rec}

	if w.code() != http.StatusOK {
		t.Errorf("code before writing = %d, want 200", w.code())
	}
	w.WriteHeader(http.StatusTooManyRequests)
	w.WriteHeader(http.StatusOK)
	if w.code() != http.StatusTooManyRequests {
		t.Errorf("code = %d, want the first status written", w.code())
	}

	w.Flush()
	if !rec.Flushed {
		t.Error("Flush did not reach the underlying writer")
	}
	if statusClass(503) != "5xx" {
		t.Errorf("statusClass(503) = %q", statusClass(503))
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// gaugeValue reads the current value of a Gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
