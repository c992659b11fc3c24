// Package roles declares the panel scoped roles staff members are assigned.
package roles

import (
	"strings"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
	"github.com/shipdesk/shipdesk/internal/rbac"
)

// Role represents a role for management.
type Role struct {
	lifecycle.Record
	Name        string `db:"name" json:"name" validate:"required,max=80"`
	Panel       string `db:"panel" json:"panel" validate:"required,oneof=Admin Supplier Dropshipper"`
	Description string `db:"description" json:"description" validate:"max=255"`
}

var Schema = lifecycle.Schema[Role]{
	Entity:   "Role",
	Table:    "roles",
	Columns:  []string{"name", "panel", "description"},
	Mutable:  []string{"name", "panel", "description", "status"},
	Unique:   []string{"name"},
	KeyField: "name",
	Values: func(r Role) map[string]any {
		return map[string]any{"name": r.Name, "panel": r.Panel, "description": r.Description}
	},
	Meta: func(r *Role) *lifecycle.Record { return &r.Record },
	Prepare: func(r *Role) error {
		r.Name = strings.TrimSpace(r.Name)
		r.Description = strings.TrimSpace(r.Description)
		if p, ok := rbac.ParsePanel(r.Panel); ok {
			r.Panel = string(p)
		}
		return nil
	},
}.MustCheck()
