// Package warehouses declares supplier pickup warehouses.
package warehouses

import (
	"github.com/shipdesk/shipdesk/internal/lifecycle"
	"github.com/shipdesk/shipdesk/internal/shared"
)

// Warehouse is a supplier pickup location registered under a GST number.
type Warehouse struct {
	lifecycle.Record
	SupplierID    shared.ID `db:"supplier_id" json:"supplier_id" validate:"required"`
	Name          string    `db:"name" json:"name" validate:"required,max=120"`
	GSTNumber     string    `db:"gst_number" json:"gst_number" validate:"required,gstin"`
	ContactName   string    `db:"contact_name" json:"contact_name" validate:"max=120"`
	ContactNumber string    `db:"contact_number" json:"contact_number" validate:"omitempty,numeric,len=10"`
	AddressLine1  string    `db:"address_line1" json:"address_line1" validate:"required,max=255"`
	AddressLine2  string    `db:"address_line2" json:"address_line2" validate:"max=255"`
	City          string    `db:"city" json:"city" validate:"required,max=120"`
	State         string    `db:"state" json:"state" validate:"required,max=120"`
	PostalCode    string    `db:"postal_code" json:"postal_code" validate:"required,pincode"`
}

var columns = []string{
	"supplier_id", "name", "gst_number", "contact_name", "contact_number",
	"address_line1", "address_line2", "city", "state", "postal_code",
}

var Schema = lifecycle.Schema[Warehouse]{
	Entity:  "Warehouse",
	Table:   "warehouses",
	Columns: columns,
	Mutable: append(append([]string{}, columns...), "status"),
	Unique:  []string{"gst_number"},
	Labels: map[string]string{
		"supplier_id":   "Supplier",
		"gst_number":    "GST number",
		"address_line1": "Address line 1",
		"address_line2": "Address line 2",
	},
	Values: func(w Warehouse) map[string]any {
		return map[string]any{
			"supplier_id":    w.SupplierID,
			"name":           w.Name,
			"gst_number":     w.GSTNumber,
			"contact_name":   w.ContactName,
			"contact_number": w.ContactNumber,
			"address_line1":  w.AddressLine1,
			"address_line2":  w.AddressLine2,
			"city":           w.City,
			"state":          w.State,
			"postal_code":    w.PostalCode,
		}
	},
	Meta:    func(w *Warehouse) *lifecycle.Record { return &w.Record },
	Prepare: normalize,
}.MustCheck()
