// Package couriers declares the courier companies orders can be shipped with.
package couriers

import (
	"strings"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
)

// CourierCompany is a shipping carrier.
type CourierCompany struct {
	lifecycle.Record
	Name        string `db:"name" json:"name" validate:"required,max=120"`
	Code        string `db:"code" json:"code" validate:"required,alphanum,max=20"`
	Website     string `db:"website" json:"website" validate:"omitempty,url"`
	TrackingURL string `db:"tracking_url" json:"tracking_url" validate:"omitempty,url"`
}

var Schema = lifecycle.Schema[CourierCompany]{
	Entity:   "Courier company",
	Plural:   "courier companies",
	Table:    "courier_companies",
	Columns:  []string{"name", "code", "website", "tracking_url"},
	Mutable:  []string{"name", "code", "website", "tracking_url", "status"},
	Unique:   []string{"code"},
	KeyField: "code",
	Labels:   map[string]string{"tracking_url": "Tracking URL"},
	Values: func(c CourierCompany) map[string]any {
		return map[string]any{
			"name":         c.Name,
			"code":         c.Code,
			"website":      c.Website,
			"tracking_url": c.TrackingURL,
		}
	},
	Meta: func(c *CourierCompany) *lifecycle.Record { return &c.Record },
	Prepare: func(c *CourierCompany) error {
		c.Name = strings.TrimSpace(c.Name)
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		c.Website = strings.TrimSpace(c.Website)
		c.TrackingURL = strings.TrimSpace(c.TrackingURL)
		return nil
	},
}.MustCheck()
