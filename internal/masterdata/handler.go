// Package masterdata assembles the back-office resources: one lifecycle
// service and HTTP handler per entity, their import registry and the
// permission catalogue guarding them.
package masterdata

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
	lifecyclehttp "github.com/shipdesk/shipdesk/internal/lifecycle/http"
	"github.com/shipdesk/shipdesk/internal/masterdata/couriers"
	"github.com/shipdesk/shipdesk/internal/masterdata/payments"
	"github.com/shipdesk/shipdesk/internal/masterdata/pincodes"
	"github.com/shipdesk/shipdesk/internal/masterdata/warehouses"
	"github.com/shipdesk/shipdesk/internal/rbac"
	"github.com/shipdesk/shipdesk/internal/roles"
	"github.com/shipdesk/shipdesk/internal/staff"
)

// Options configures the resources.
type Options struct {
	// Pool backs every store; nil selects in-memory stores.
	Pool     *pgxpool.Pool
	Observer lifecycle.Observer
	// Enqueuer receives queued imports; nil runs imports inline.
	Enqueuer            lifecyclehttp.ImportEnqueuer
	AsyncThreshold      int
	ImportRatePerMinute int
}

type resource struct {
	path   string
	mount  func(chi.Router)
	panel  rbac.Panel
	entity string
	canImp bool
}

// Handler owns every back-office resource.
type Handler struct {
	logger    *slog.Logger
	rbac      rbac.Middleware
	opts      Options
	svcCfg    lifecycle.ServiceConfig
	resources []resource
	importers map[string]lifecycle.Importer
}

// NewHandler builds the services and handlers of all resources.
func NewHandler(logger *slog.Logger, rbacMW rbac.Middleware, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		rbac:      rbacMW,
		opts:      opts,
		svcCfg:    lifecycle.ServiceConfig{Validator: lifecycle.NewValidator(), Observer: opts.Observer},
		importers: make(map[string]lifecycle.Importer),
	}
	register(h, "bad-pincodes", rbac.PanelAdmin, "bad_pincode", "bad_pincodes", pincodes.BadSchema)
	register(h, "good-pincodes", rbac.PanelAdmin, "good_pincode", "good_pincodes", pincodes.GoodSchema)
	register(h, "high-rtos", rbac.PanelAdmin, "high_rto", "high_rtos", pincodes.HighRtoSchema)
	register(h, "couriers", rbac.PanelAdmin, "courier", "couriers", couriers.Schema)
	register(h, "payments", rbac.PanelAdmin, "payment", "payments", payments.Schema)
	register(h, "roles", rbac.PanelAdmin, "role", "roles", roles.Schema)
	register(h, "staff", rbac.PanelAdmin, "staff", "staff", staff.Schema)
	register(h, "warehouses", rbac.PanelSupplier, "warehouse", "warehouses", warehouses.Schema)
	return h
}

func register[E any](h *Handler, path string, panel rbac.Panel, key, listKey string, schema lifecycle.Schema[E]) {
	var store lifecycle.Store[E]
	if h.opts.Pool != nil {
		store = lifecycle.NewPGStore(schema, h.opts.Pool)
	} else {
		store = lifecycle.NewMemStore(schema)
	}
	svc := lifecycle.NewService(schema, store, h.svcCfg)
	handler := lifecyclehttp.NewHandler[E](h.logger, svc, h.rbac, h.opts.Enqueuer, lifecyclehttp.Config{
		Panel:               panel,
		Module:              path,
		Key:                 key,
		ListKey:             listKey,
		AsyncThreshold:      h.opts.AsyncThreshold,
		ImportRatePerMinute: h.opts.ImportRatePerMinute,
	})
	if schema.KeyField != "" {
		h.importers[schema.Table] = svc
	}
	h.resources = append(h.resources, resource{
		path:   path,
		mount:  handler.MountRoutes,
		panel:  panel,
		entity: schema.Entity,
		canImp: schema.KeyField != "",
	})
}

// MountRoutes registers every resource under its path.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, res := range h.resources {
		r.Route("/"+res.path, res.mount)
	}
}

// Importers returns the bulk importers keyed by table.
func (h *Handler) Importers() map[string]lifecycle.Importer {
	out := make(map[string]lifecycle.Importer, len(h.importers))
	for table, imp := range h.importers {
		out[table] = imp
	}
	return out
}

// Catalogue returns the permission definitions the resources check,
// ordered by panel, module and action.
func (h *Handler) Catalogue() []rbac.Permission {
	var defs []rbac.Permission
	for _, res := range h.resources {
		actions := lifecyclehttp.Actions()
		if !res.canImp {
			actions = lo.Without(actions, lifecyclehttp.ActionImport)
		}
		for _, action := range actions {
			defs = append(defs, rbac.Permission{
				Panel:       res.panel,
				Module:      res.path,
				Action:      action,
				Description: fmt.Sprintf("%s %s", action, res.entity),
			})
		}
	}
	defs = append(defs,
		rbac.Permission{Panel: rbac.PanelAdmin, Module: rbac.ModulePermissions, Action: "view", Description: "view permissions"},
		rbac.Permission{Panel: rbac.PanelAdmin, Module: rbac.ModulePermissions, Action: "update", Description: "update permissions"},
	)
	sort.SliceStable(defs, func(i, j int) bool {
		a, b := defs[i], defs[j]
		if a.Panel != b.Panel {
			return a.Panel < b.Panel
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Action < b.Action
	})
	return defs
}
