// Package rbac implements the permission gate: the permission catalogue,
// per staff and per role grants, and the fail-closed authorization check.
package rbac

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shipdesk/shipdesk/internal/shared"
)

// Panel is the principal context a permission is scoped to.
type Panel string

const (
	PanelAdmin       Panel = "Admin"
	PanelSupplier    Panel = "Supplier"
	PanelDropshipper Panel = "Dropshipper"
)

// ParsePanel normalises raw case-insensitively and reports whether it names
// one of the three panels.
func ParsePanel(raw string) (Panel, bool) {
	// Casers are stateful, so each call builds its own.
	p := Panel(cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(raw))))
	if !lo.Contains(Panels(), p) {
		return "", false
	}
	return p, true
}

// Panels lists the recognised panels.
func Panels() []Panel {
	return []Panel{PanelAdmin, PanelSupplier, PanelDropshipper}
}

// Permission is one (panel, module, action) capability definition.
type Permission struct {
	ID          shared.ID `db:"id" json:"id"`
	Panel       Panel     `db:"panel" json:"panel"`
	Module      string    `db:"module" json:"module"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Grant records that a staff principal holds a permission.
type Grant struct {
	StaffID       shared.ID `db:"staff_id" json:"staff_id"`
	PermissionID  shared.ID `db:"permission_id" json:"permission_id"`
	Panel         Panel     `db:"panel" json:"panel"`
	Module        string    `db:"module" json:"module"`
	Action        string    `db:"action" json:"action"`
	CreatedBy     shared.ID `db:"created_by" json:"created_by"`
	CreatedByRole string    `db:"created_by_role" json:"created_by_role"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Filter narrows permission lookups; empty fields do not constrain.
type Filter struct {
	Panel  string
	Module string
	Action string
}

// normalized is a Filter after validation.
type normalized struct {
	Panel  Panel
	Module string
	Action string
}

func (f Filter) normalize() (normalized, error) {
	out := normalized{
		Module: normalizeName(f.Module),
		Action: normalizeName(f.Action),
	}
	if strings.TrimSpace(f.Panel) != "" {
		p, ok := ParsePanel(f.Panel)
		if !ok {
			return normalized{}, shared.Validation("rbac filter", "Invalid panel")
		}
		out.Panel = p
	}
	return out, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ReplaceResult reports the outcome of a grant replacement. Every list is
// sorted ascending and never nil.
type ReplaceResult struct {
	Assigned []shared.ID `json:"assigned"`
	Removed  []shared.ID `json:"removed"`
	Skipped  []shared.ID `json:"skipped"`
	Invalid  []shared.ID `json:"invalid"`
}

// Subject selects which grant table a replacement targets.
type Subject int

const (
	SubjectRole Subject = iota + 1
	SubjectStaff
)

func (s Subject) table() string {
	if s == SubjectRole {
		return "role_permissions"
	}
	return "staff_permissions"
}

func (s Subject) column() string {
	if s == SubjectRole {
		return "role_id"
	}
	return "staff_id"
}

func (s Subject) String() string {
	if s == SubjectRole {
		return "role"
	}
	return "staff"
}
