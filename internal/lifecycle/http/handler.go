// Package lifecyclehttp exposes lifecycle operations of one entity over JSON.
package lifecyclehttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
	"github.com/shipdesk/shipdesk/internal/platform/httpx"
	"github.com/shipdesk/shipdesk/internal/rbac"
	"github.com/shipdesk/shipdesk/internal/shared"
)

// Permission actions checked per route.
const (
	ActionView            = "view"
	ActionCreate          = "create"
	ActionUpdate          = "update"
	ActionDelete          = "delete"
	ActionRestore         = "restore"
	ActionPermanentDelete = "permanent-delete"
	ActionImport          = "import"
)

// Actions lists every action a lifecycle resource checks, in route order.
func Actions() []string {
	return []string{ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionRestore, ActionPermanentDelete, ActionImport}
}

type lifecycleService[E any] interface {
	Schema() lifecycle.Schema[E]
	Create(ctx context.Context, actor shared.Actor, payload E) (E, error)
	Update(ctx context.Context, actor shared.Actor, id shared.ID, payload E) (E, error)
	GetByID(ctx context.Context, id shared.ID) (E, error)
	List(ctx context.Context) ([]E, error)
	ListByStatus(ctx context.Context, mode lifecycle.StatusMode) ([]E, error)
	SoftDelete(ctx context.Context, actor shared.Actor, id shared.ID) (E, error)
	Restore(ctx context.Context, actor shared.Actor, id shared.ID) (E, error)
	HardDelete(ctx context.Context, id shared.ID) error
	CheckUniqueness(ctx context.Context, field, value string, excludeID *shared.ID) (lifecycle.Availability, error)
	BulkImport(ctx context.Context, actor shared.Actor, rows []E) (lifecycle.ImportResult, error)
}

// ImportEnqueuer hands a bulk import to the background worker.
type ImportEnqueuer interface {
	EnqueueImport(ctx context.Context, table string, actor shared.Actor, rows json.RawMessage) (string, error)
}

// Config describes how the resource is exposed.
type Config struct {
	// Panel and Module name the permissions guarding the routes.
	Panel  rbac.Panel
	Module string
	// Key and ListKey name the payload in the response envelope.
	Key     string
	ListKey string
	// AsyncThreshold queues imports with at least this many rows; zero
	// queues only when ?async=true is passed.
	AsyncThreshold int
	// ImportRatePerMinute limits import calls per client IP; zero disables it.
	ImportRatePerMinute int
}

// Handler wires HTTP endpoints for one lifecycle entity.
type Handler[E any] struct {
	logger   *slog.Logger
	service  lifecycleService[E]
	rbac     rbac.Middleware
	enqueuer ImportEnqueuer
	cfg      Config
}

// NewHandler builds a Handler. enqueuer may be nil, in which case every
// import runs inline.
func NewHandler[E any](logger *slog.Logger, service lifecycleService[E], rbacMW rbac.Middleware, enqueuer ImportEnqueuer, cfg Config) *Handler[E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler[E]{logger: logger, service: service, rbac: rbacMW, enqueuer: enqueuer, cfg: cfg}
}

// MountRoutes registers the resource routes on r.
func (h *Handler[E]) MountRoutes(r chi.Router) {
	require := func(action string) func(http.Handler) http.Handler {
		return h.rbac.Require(h.cfg.Panel, h.cfg.Module, action)
	}
	r.With(require(ActionView)).Get("/", h.list)
	r.With(require(ActionView)).Get("/availability", h.availability)
	r.With(require(ActionView)).Get("/{id}", h.get)
	r.With(require(ActionCreate)).Post("/", h.create)
	r.With(require(ActionUpdate)).Put("/{id}", h.update)
	r.With(require(ActionDelete)).Delete("/{id}", h.softDelete)
	r.With(require(ActionRestore)).Post("/{id}/restore", h.restore)
	r.With(require(ActionPermanentDelete)).Delete("/{id}/permanent", h.hardDelete)

	if h.service.Schema().KeyField == "" {
		return
	}
	importRoute := r.With(require(ActionImport))
	if h.cfg.ImportRatePerMinute > 0 {
		importRoute = importRoute.With(httprate.LimitByIP(h.cfg.ImportRatePerMinute, time.Minute))
	}
	importRoute.Post("/import", h.bulkImport)
}

func (h *Handler[E]) entity() string {
	return h.service.Schema().Entity
}

func (h *Handler[E]) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.RespondError(w, r, h.logger, err)
}

func (h *Handler[E]) actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		h.fail(w, r, shared.Unauthorized("actor", "Authentication required"))
		return shared.Actor{}, false
	}
	return actor, true
}

func (h *Handler[E]) list(w http.ResponseWriter, r *http.Request) {
	var (
		items []E
		err   error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		var mode lifecycle.StatusMode
		if mode, err = lifecycle.ParseStatusMode(raw); err != nil {
			h.fail(w, r, err)
			return
		}
		items, err = h.service.ListByStatus(r.Context(), mode)
	} else {
		items, err = h.service.List(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", h.cfg.ListKey, items)
}

func (h *Handler[E]) get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", h.cfg.Key, item)
}

func (h *Handler[E]) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var exclude *shared.ID
	if raw := strings.TrimSpace(q.Get("exclude_id")); raw != "" {
		id, err := shared.ParseID(raw)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		exclude = &id
	}
	res, err := h.service.CheckUniqueness(r.Context(), q.Get("field"), q.Get("value"), exclude)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, res.Message, "available", res.Available)
}

func (h *Handler[E]) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var payload E
	if err := httpx.DecodeJSON(w, r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.service.Create(r.Context(), actor, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, h.entity()+" created successfully", h.cfg.Key, item)
}

func (h *Handler[E]) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload E
	if err := httpx.DecodeJSON(w, r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.service.Update(r.Context(), actor, id, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, h.entity()+" updated successfully", h.cfg.Key, item)
}

func (h *Handler[E]) softDelete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.SoftDelete, "deleted")
}

func (h *Handler[E]) restore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Restore, "restored")
}

func (h *Handler[E]) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, shared.Actor, shared.ID) (E, error), verb string) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := fn(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, h.entity()+" "+verb+" successfully", h.cfg.Key, item)
}

func (h *Handler[E]) hardDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.HardDelete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, h.entity()+" permanently deleted", "", nil)
}

type importRequest struct {
	Rows json.RawMessage `json:"rows"`
}

func (h *Handler[E]) bulkImport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req importRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	var rows []E
	if err := json.Unmarshal(req.Rows, &rows); err != nil {
		h.fail(w, r, shared.Validation("bulk import", "rows must be an array of "+strings.ToLower(h.entity())+" objects"))
		return
	}

	if h.shouldQueue(r, len(rows)) {
		taskID, err := h.enqueuer.EnqueueImport(r.Context(), h.service.Schema().Table, actor, req.Rows)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.logger.Info("bulk import queued",
			slog.String("table", h.service.Schema().Table),
			slog.String("task_id", taskID),
			slog.Int("rows", len(rows)),
		)
		httpx.Success(w, http.StatusAccepted, "Import queued", "task_id", taskID)
		return
	}

	res, err := h.service.BulkImport(r.Context(), actor, rows)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, res.Message, "imported_count", res.ImportedCount)
}

func (h *Handler[E]) shouldQueue(r *http.Request, rows int) bool {
	if h.enqueuer == nil {
		return false
	}
	if async, err := strconv.ParseBool(r.URL.Query().Get("async")); err == nil && async {
		return true
	}
	return h.cfg.AsyncThreshold > 0 && rows >= h.cfg.AsyncThreshold
}
