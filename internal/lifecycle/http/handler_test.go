package lifecyclehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
	"github.com/shipdesk/shipdesk/internal/rbac"
	"github.com/shipdesk/shipdesk/internal/shared"
)

type courier struct {
	lifecycle.Record
	Name string `db:"name" json:"name" validate:"required"`
	Code string `db:"code" json:"code" validate:"required"`
}

var courierSchema = lifecycle.Schema[courier]{
	Entity:   "Courier company",
	Plural:   "courier companies",
	Table:    "courier_companies",
	Columns:  []string{"name", "code"},
	Mutable:  []string{"name", "code", "status"},
	Unique:   []string{"code"},
	KeyField: "code",
	Values: func(c courier) map[string]any {
		return map[string]any{"name": c.Name, "code": c.Code}
	},
	Meta: func(c *courier) *lifecycle.Record { return &c.Record },
}.MustCheck()

type stubEnqueuer struct {
	table string
	actor shared.Actor
	rows  json.RawMessage
}

func (s *stubEnqueuer) EnqueueImport(ctx context.Context, table string, actor shared.Actor, rows json.RawMessage) (string, error) {
	s.table, s.actor, s.rows = table, actor, rows
	return "task-1", nil
}

func newTestRouter(t *testing.T, actor *shared.Actor, enq ImportEnqueuer, cfg Config) http.Handler {
	t.Helper()
	svc := lifecycle.NewService[courier](courierSchema, lifecycle.NewMemStore(courierSchema), lifecycle.ServiceConfig{})
	if cfg.Module == "" {
		cfg = Config{Panel: rbac.PanelAdmin, Module: "couriers", Key: "courier", ListKey: "couriers", AsyncThreshold: cfg.AsyncThreshold}
	}
	h := NewHandler[courier](nil, svc, rbac.Middleware{}, enq, cfg)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if actor != nil {
				req = req.WithContext(shared.ContextWithActor(req.Context(), *actor))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/couriers", h.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

var adminOwner = &shared.Actor{ID: 1, Role: "Admin"}

func TestCourierLifecycleOverHTTP(t *testing.T) {
	h := newTestRouter(t, adminOwner, nil, Config{})

	rec, body := do(t, h, http.MethodPost, "/couriers", `{"name":"Delhivery","code":"DLV","status":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, true, body["status"])
	require.Equal(t, "Courier company created successfully", body["message"])
	created := body["courier"].(map[string]any)
	require.Equal(t, "1", created["id"])
	require.Equal(t, "1", created["created_by"])

	rec, body = do(t, h, http.MethodPost, "/couriers", `{"name":"Other","code":"DLV"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, false, body["status"])
	require.Equal(t, "Code is already in use", body["message"])

	rec, body = do(t, h, http.MethodGet, "/couriers/availability?field=code&value=DLV", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["available"])
	require.Equal(t, "Code is already in use", body["message"])

	rec, body = do(t, h, http.MethodGet, "/couriers/availability?field=code&value=DLV&exclude_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["available"])

	rec, _ = do(t, h, http.MethodPut, "/couriers/1", `{"name":"Delhivery Ltd","code":"DLV","status":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/couriers/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/couriers?status=deleted", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["couriers"], 1)

	rec, body = do(t, h, http.MethodPost, "/couriers/1/restore", "")
	require.Equal(t, http.StatusOK, rec.Code)
	restored := body["courier"].(map[string]any)
	require.Nil(t, restored["deleted_at"])

	rec, body = do(t, h, http.MethodGet, "/couriers?status=inactive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["couriers"], 1)

	rec, _ = do(t, h, http.MethodDelete, "/couriers/1/permanent", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/couriers/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Courier company with id 1 not found", body["message"])
}

func TestListRejectsUnknownStatus(t *testing.T) {
	h := newTestRouter(t, adminOwner, nil, Config{})

	rec, body := do(t, h, http.MethodGet, "/couriers?status=archived", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid status", body["message"])
}

func TestBulkImportInline(t *testing.T) {
	h := newTestRouter(t, adminOwner, nil, Config{})

	rec, body := do(t, h, http.MethodPost, "/couriers/import", `{"rows":[{"name":"A","code":"A1"},{"name":"B","code":"B1"},{"name":"C","code":""}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(2), body["imported_count"])
	require.Equal(t, "2 courier companies imported successfully", body["message"])

	rec, body = do(t, h, http.MethodPost, "/couriers/import", `{"rows":[{"name":"A","code":"A1"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(0), body["imported_count"])
	require.Equal(t, "All courier companies already exist", body["message"])
}

func TestBulkImportQueued(t *testing.T) {
	enq := &stubEnqueuer{}
	h := newTestRouter(t, adminOwner, enq, Config{AsyncThreshold: 2})

	rec, body := do(t, h, http.MethodPost, "/couriers/import", `{"rows":[{"name":"A","code":"A1"},{"name":"B","code":"B1"}]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "task-1", body["task_id"])
	require.Equal(t, "courier_companies", enq.table)
	require.Equal(t, shared.ID(1), enq.actor.ID)
	require.JSONEq(t, `[{"name":"A","code":"A1"},{"name":"B","code":"B1"}]`, string(enq.rows))

	rec, _ = do(t, h, http.MethodPost, "/couriers/import?async=true", `{"rows":[{"name":"C","code":"C1"}]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRoutesRequirePermission(t *testing.T) {
	h := newTestRouter(t, &shared.Actor{ID: 3, Role: "Dropshipper"}, nil, Config{})
	rec, body := do(t, h, http.MethodGet, "/couriers", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, false, body["status"])

	h = newTestRouter(t, nil, nil, Config{})
	rec, _ = do(t, h, http.MethodPost, "/couriers", `{"name":"X","code":"X"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
