package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shipdesk/shipdesk/internal/platform/httpx"
	"github.com/shipdesk/shipdesk/internal/shared"
)

const deniedMessage = "You do not have permission to perform this action"

// Authorizer is the gate consulted by Middleware.
type Authorizer interface {
	IsAuthorized(ctx context.Context, panel, module, action string, staffID shared.ID) (bool, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service Authorizer
	Logger  *slog.Logger
}

// Allowed decides whether actor may perform action on module in panel.
// Panel owners act without a staff id and are limited to their own panel;
// staff principals need an explicit grant.
func (m Middleware) Allowed(ctx context.Context, actor shared.Actor, panel Panel, module, action string) (bool, error) {
	if normalizeName(module) == "" || normalizeName(action) == "" {
		return false, nil
	}
	if actor.StaffID == 0 {
		owned, ok := ParsePanel(actor.Role)
		return ok && owned == panel, nil
	}
	if m.Service == nil {
		return false, nil
	}
	return m.Service.IsAuthorized(ctx, string(panel), module, action, actor.StaffID)
}

// Require rejects requests whose actor is not allowed the permission.
func (m Middleware) Require(panel Panel, module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			allowed, err := m.Allowed(r.Context(), actor, panel, module, action)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require",
						slog.Any("error", err),
						slog.String("module", module),
						slog.String("action", action),
					)
				}
				httpx.RespondError(w, r, m.Logger, shared.Forbidden("rbac require", deniedMessage))
				return
			}
			if !allowed {
				httpx.RespondError(w, r, m.Logger, shared.Forbidden("rbac require", deniedMessage))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
