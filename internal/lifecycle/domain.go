// Package lifecycle implements the create/update/soft-delete/restore/hard-delete
// contract shared by every back-office entity, together with status scoped
// retrieval and uniqueness checks.
package lifecycle

import (
	"strings"
	"time"

	"github.com/shipdesk/shipdesk/internal/shared"
)

// Record holds the audit and lifecycle columns carried by every entity table.
// Entities embed it.
type Record struct {
	ID            shared.ID  `db:"id" json:"id"`
	Status        bool       `db:"status" json:"status"`
	CreatedBy     shared.ID  `db:"created_by" json:"created_by"`
	CreatedByRole string     `db:"created_by_role" json:"created_by_role"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedBy     *shared.ID `db:"updated_by" json:"updated_by"`
	UpdatedByRole *string    `db:"updated_by_role" json:"updated_by_role"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at"`
	DeletedBy     *shared.ID `db:"deleted_by" json:"deleted_by"`
	DeletedByRole *string    `db:"deleted_by_role" json:"deleted_by_role"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at"`
}

// IsDeleted reports whether the record is soft-deleted.
func (r Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// stampCreate records the creating actor.
func (r *Record) stampCreate(actor shared.Actor, at time.Time) {
	r.CreatedBy = actor.ID
	r.CreatedByRole = actor.Role
	r.CreatedAt = at
}

func (r *Record) stampUpdate(actor shared.Actor, at time.Time) {
	id, role := actor.ID, actor.Role
	r.UpdatedBy = &id
	r.UpdatedByRole = &role
	r.UpdatedAt = &at
}

func (r *Record) stampDelete(actor shared.Actor, at time.Time) {
	id, role := actor.ID, actor.Role
	r.DeletedBy = &id
	r.DeletedByRole = &role
	r.DeletedAt = &at
}

func (r *Record) clearDelete() {
	r.DeletedBy = nil
	r.DeletedByRole = nil
	r.DeletedAt = nil
}

// recordColumns lists the lifecycle columns in select order.
var recordColumns = []string{
	"id", "status",
	"created_by", "created_by_role", "created_at",
	"updated_by", "updated_by_role", "updated_at",
	"deleted_by", "deleted_by_role", "deleted_at",
}

// StatusMode selects which lifecycle slice a list query returns.
type StatusMode int

const (
	ModeActive StatusMode = iota + 1
	ModeInactive
	ModeDeleted
	ModeNotDeleted
)

var modeNames = map[StatusMode]string{
	ModeActive:     "active",
	ModeInactive:   "inactive",
	ModeDeleted:    "deleted",
	ModeNotDeleted: "notDeleted",
}

// ParseStatusMode maps the wire name of a mode onto StatusMode.
func ParseStatusMode(raw string) (StatusMode, error) {
	raw = strings.TrimSpace(raw)
	for mode, name := range modeNames {
		if strings.EqualFold(raw, name) {
			return mode, nil
		}
	}
	return 0, shared.Validation("parse status mode", "Invalid status")
}

func (m StatusMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "invalid"
}

// Valid reports whether m is one of the four recognised modes.
func (m StatusMode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// Matches reports whether r falls inside the mode.
func (m StatusMode) Matches(r Record) bool {
	switch m {
	case ModeActive:
		return r.Status && !r.IsDeleted()
	case ModeInactive:
		return !r.Status && !r.IsDeleted()
	case ModeDeleted:
		return r.IsDeleted()
	case ModeNotDeleted:
		return !r.IsDeleted()
	}
	return false
}

// Clause returns the SQL predicate selecting the mode.
func (m StatusMode) Clause() (string, error) {
	switch m {
	case ModeActive:
		return "status = TRUE AND deleted_at IS NULL", nil
	case ModeInactive:
		return "status = FALSE AND deleted_at IS NULL", nil
	case ModeDeleted:
		return "deleted_at IS NOT NULL", nil
	case ModeNotDeleted:
		return "deleted_at IS NULL", nil
	}
	return "", shared.Validation("status clause", "Invalid status")
}

// Availability is the outcome of a uniqueness check.
type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	ImportedCount int    `json:"imported_count"`
	Message       string `json:"message"`
}
