// Package staff declares staff members: sub-users acting inside a panel
// whose access is limited to their permission grants.
package staff

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
	"github.com/shipdesk/shipdesk/internal/rbac"
	"github.com/shipdesk/shipdesk/internal/shared"
)

const minPasswordLength = 8

// Staff is a staff account. The password is only accepted on create and
// never leaves the service.
type Staff struct {
	lifecycle.Record
	Name         string     `db:"name" json:"name" validate:"required,max=120"`
	Email        string     `db:"email" json:"email" validate:"required,email"`
	Phone        string     `db:"phone" json:"phone" validate:"omitempty,numeric,len=10"`
	RoleID       *shared.ID `db:"role_id" json:"role_id"`
	Panel        string     `db:"panel" json:"panel" validate:"required,oneof=Admin Supplier Dropshipper"`
	Password     string     `db:"-" json:"password,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
}

var Schema = lifecycle.Schema[Staff]{
	Entity:  "Staff member",
	Plural:  "staff members",
	Table:   "staff",
	Columns: []string{"name", "email", "phone", "role_id", "panel", "password_hash"},
	Mutable: []string{"name", "email", "phone", "role_id", "panel", "status"},
	Unique:  []string{"email"},
	Values: func(s Staff) map[string]any {
		return map[string]any{
			"name":          s.Name,
			"email":         s.Email,
			"phone":         s.Phone,
			"role_id":       s.RoleID,
			"panel":         s.Panel,
			"password_hash": s.PasswordHash,
		}
	},
	Meta:    func(s *Staff) *lifecycle.Record { return &s.Record },
	Prepare: prepare,
	CheckUpdate: func(s Staff) error {
		if s.Password != "" {
			return errors.New("Password cannot be changed through update")
		}
		return nil
	},
}.MustCheck()

func prepare(s *Staff) error {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.Phone = strings.Join(strings.Fields(s.Phone), "")
	if p, ok := rbac.ParsePanel(s.Panel); ok {
		s.Panel = string(p)
	}
	if s.RoleID != nil && *s.RoleID <= 0 {
		s.RoleID = nil
	}
	if s.Password == "" {
		return nil
	}
	if len(s.Password) < minPasswordLength {
		return errors.New("Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = string(hash)
	s.Password = ""
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (s Staff) CheckPassword(password string) bool {
	if s.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)) == nil
}
