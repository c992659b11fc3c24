package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shipdesk/shipdesk/internal/platform/httpx"
	"github.com/shipdesk/shipdesk/internal/shared"
)

// ModulePermissions guards the permission gate endpoints themselves.
const ModulePermissions = "permissions"

// PermissionsHandler exposes the permission gate over JSON.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(PanelAdmin, ModulePermissions, "view"))
		r.Get("/permissions", h.listPermissions)
		r.Get("/staff/{id}/grants", h.listStaffGrants)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(PanelAdmin, ModulePermissions, "update"))
		r.Put("/roles/{id}/grants", h.replaceRoleGrants)
		r.Put("/staff/{id}/grants", h.replaceStaffGrants)
	})
	r.Get("/authorize", h.authorize)
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{Panel: q.Get("panel"), Module: q.Get("module"), Action: q.Get("action")}
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context(), filterFromQuery(r))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", "permissions", perms)
}

func (h *PermissionsHandler) listStaffGrants(w http.ResponseWriter, r *http.Request) {
	staffID, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	grants, err := h.service.ListGrantsForStaff(r.Context(), filterFromQuery(r), staffID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", "grants", grants)
}

type replaceRequest struct {
	Panel         string      `json:"panel"`
	PermissionIDs []shared.ID `json:"permission_ids"`
}

func (h *PermissionsHandler) replaceRoleGrants(w http.ResponseWriter, r *http.Request) {
	h.replace(w, r, h.service.ReplaceRoleGrants)
}

func (h *PermissionsHandler) replaceStaffGrants(w http.ResponseWriter, r *http.Request) {
	h.replace(w, r, h.service.ReplaceStaffGrants)
}

type replaceFunc func(ctx context.Context, actor shared.Actor, id shared.ID, desired []shared.ID, panel string) (ReplaceResult, error)

func (h *PermissionsHandler) replace(w http.ResponseWriter, r *http.Request, fn replaceFunc) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req replaceRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	res, err := fn(r.Context(), actor, id, req.PermissionIDs, req.Panel)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Permissions updated", "result", res)
}

func (h *PermissionsHandler) authorize(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	f := filterFromQuery(r)
	panel, valid := ParsePanel(f.Panel)
	if !valid {
		httpx.Success(w, http.StatusOK, "", "authorized", false)
		return
	}
	allowed, err := h.rbac.Allowed(r.Context(), actor, panel, normalizeName(f.Module), normalizeName(f.Action))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", "authorized", allowed)
}
