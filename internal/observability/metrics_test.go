package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/shipdesk/shipdesk/internal/jobs"
	"github.com/shipdesk/shipdesk/internal/shared"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("lifecycle:bulk_import").End(nil)
	jobs.AddImported("bad_pincodes", 3)

	body := scrape(t, metrics)
	if !strings.Contains(body, `shipdesk_jobs_total{job="lifecycle:bulk_import",status="success"} 1`) {
		t.Fatalf("expected job run to be counted, got: %s", body)
	}
	if !strings.Contains(body, `shipdesk_import_rows_total{table="bad_pincodes"} 3`) {
		t.Fatalf("expected imported rows to be counted, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestObserveLifecycleLabelsOutcome(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveLifecycle("bad_pincodes", "create", nil)
	metrics.ObserveLifecycle("bad_pincodes", "create", shared.Conflict("op", "Pincode is already in use", nil))
	metrics.ObserveLifecycle("bad_pincodes", "get", shared.NotFound("op", "missing"))
	metrics.ObserveLifecycle("bad_pincodes", "list", errors.New("boom"))

	body := scrape(t, metrics)
	for _, want := range []string{
		`shipdesk_lifecycle_operations_total{entity="bad_pincodes",op="create",outcome="ok"} 1`,
		`shipdesk_lifecycle_operations_total{entity="bad_pincodes",op="create",outcome="conflict"} 1`,
		`shipdesk_lifecycle_operations_total{entity="bad_pincodes",op="get",outcome="not_found"} 1`,
		`shipdesk_lifecycle_operations_total{entity="bad_pincodes",op="list",outcome="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveLifecycle("roles", "create", nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if metrics.Middleware(next) == nil {
		t.Fatal("expected passthrough handler")
	}
}
