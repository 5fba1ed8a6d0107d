package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func metricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", rec.Code)
	}
	return rec.Body.String()
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = []string{"/test"}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	body := metricsBody(t, m)
	if !strings.Contains(body, `meridian_http_requests_total{code="418",route="/test"} 1`) {
		t.Fatalf("request counter missing from metrics output:\n%s", body)
	}
	if !strings.Contains(body, "meridian_http_request_duration_seconds") {
		t.Fatal("duration histogram missing from metrics output")
	}
}

func TestObservePreview(t *testing.T) {
	m := NewMetrics()
	m.ObservePreview("monthly")
	m.ObservePreview("monthly")
	m.ObservePreview("weekly")

	body := metricsBody(t, m)
	if !strings.Contains(body, `meridian_calendar_previews_total{frequency="monthly"} 2`) {
		t.Fatal("monthly preview counter missing")
	}
	if !strings.Contains(body, `meridian_calendar_previews_total{frequency="weekly"} 1`) {
		t.Fatal("weekly preview counter missing")
	}
}

func TestObserveSave(t *testing.T) {
	m := NewMetrics()
	m.ObserveSave("saved", 12)
	m.ObserveSave("conflict", 0)

	body := metricsBody(t, m)
	if !strings.Contains(body, `meridian_calendar_saves_total{outcome="saved"} 1`) {
		t.Fatal("saved counter missing")
	}
	if !strings.Contains(body, `meridian_calendar_saves_total{outcome="conflict"} 1`) {
		t.Fatal("conflict counter missing")
	}
	if !strings.Contains(body, "meridian_pay_periods_inserted_total 12") {
		t.Fatal("inserted rows counter missing")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObservePreview("monthly")
	m.ObserveSave("saved", 1)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("nil metrics middleware altered response: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil metrics handler returned %d", rec.Code)
	}
}
