package masterdata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/shipdesk/shipdesk/internal/rbac"
	"github.com/shipdesk/shipdesk/internal/shared"
)

func newRouter(h *Handler, actor shared.Actor) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), actor)))
		})
	})
	r.Route("/api/v1", h.MountRoutes)
	return r
}

func TestHandlerMountsEveryResource(t *testing.T) {
	h := NewHandler(nil, rbac.Middleware{}, Options{})
	router := newRouter(h, shared.Actor{ID: 1, Role: "Admin"})

	for _, path := range []string{"bad-pincodes", "good-pincodes", "high-rtos", "couriers", "payments", "roles", "staff"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/"+path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/warehouses", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code, "admin owner outside the supplier panel")
}

func TestHandlerCreatesThroughMemoryStore(t *testing.T) {
	h := NewHandler(nil, rbac.Middleware{}, Options{})
	router := newRouter(h, shared.Actor{ID: 1, Role: "Admin"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bad-pincodes", strings.NewReader(`{"pincode":"110001","status":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["status"])
	require.Equal(t, "Bad pincode created successfully", body["message"])
	created := body["bad_pincode"].(map[string]any)
	require.Equal(t, "1", created["id"])
}

func TestImportersAndCatalogue(t *testing.T) {
	h := NewHandler(nil, rbac.Middleware{}, Options{})

	importers := h.Importers()
	require.Contains(t, importers, "bad_pincodes")
	require.Contains(t, importers, "payments")
	require.NotContains(t, importers, "warehouses")
	require.NotContains(t, importers, "staff")

	defs := h.Catalogue()
	has := func(panel rbac.Panel, module, action string) bool {
		for _, d := range defs {
			if d.Panel == panel && d.Module == module && d.Action == action {
				return true
			}
		}
		return false
	}
	require.True(t, has(rbac.PanelAdmin, "bad-pincodes", "import"))
	require.True(t, has(rbac.PanelSupplier, "warehouses", "permanent-delete"))
	require.False(t, has(rbac.PanelSupplier, "warehouses", "import"))
	require.True(t, has(rbac.PanelAdmin, rbac.ModulePermissions, "update"))
	require.Equal(t, rbac.PanelAdmin, defs[0].Panel)
	require.Equal(t, rbac.PanelSupplier, defs[len(defs)-1].Panel)
}
