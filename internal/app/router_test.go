package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	jobmetrics "github.com/shipdesk/shipdesk/internal/jobs"
	"github.com/shipdesk/shipdesk/internal/masterdata"
	"github.com/shipdesk/shipdesk/internal/observability"
	"github.com/shipdesk/shipdesk/internal/rbac"
	"github.com/shipdesk/shipdesk/internal/shared"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	metrics := observability.NewMetrics()
	rbacMW := rbac.Middleware{Logger: logger}
	return NewRouter(RouterParams{
		Logger:            logger,
		Config:            &Config{StoreDriver: StoreDriverMemory},
		MasterDataHandler: masterdata.NewHandler(logger, rbacMW, masterdata.Options{Observer: metrics}),
		Metrics:           metrics,
	})
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpsRouterExposesJobMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	require.NoError(t, jobMetrics.Track("lifecycle:bulk_import").End(nil))
	jobMetrics.AddImported("courier_companies", 3)
	router := NewOpsRouter(metrics)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `shipdesk_jobs_total{job="lifecycle:bulk_import",status="success"} 1`)
	require.Contains(t, body, `shipdesk_import_rows_total{table="courier_companies"} 3`)
}

func TestRouterRequiresActor(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/couriers", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/couriers", nil)
	req.Header.Set(HeaderActorID, "abc")
	req.Header.Set(HeaderActorRole, "Admin")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/couriers", nil)
	req.Header.Set(HeaderActorID, "1")
	req.Header.Set(HeaderActorRole, "Admin")
	req.Header.Set(HeaderStaffID, "5")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code, "staff principal without a gate")
}

func TestRouterCreatesCourier(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/couriers", strings.NewReader(`{"name":"Blue Dart","code":"bd01","status":true}`))
	req.Header.Set(HeaderActorID, "1")
	req.Header.Set(HeaderActorRole, "Admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Status  bool           `json:"status"`
		Courier map[string]any `json:"courier"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Status)
	require.Equal(t, "BD01", body.Courier["code"])
	require.Equal(t, "1", body.Courier["created_by"])
}

func TestActorFromHeaders(t *testing.T) {
	var got shared.Actor
	var ok bool
	h := ActorFromHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = shared.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderActorID, "12")
	req.Header.Set(HeaderActorRole, " Supplier ")
	req.Header.Set(HeaderStaffID, "40")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	require.Equal(t, shared.Actor{ID: 12, Role: "Supplier", StaffID: 40}, got)

	ok = false
	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderActorID, "12")
	h.ServeHTTP(rec, req)
	require.False(t, ok)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
