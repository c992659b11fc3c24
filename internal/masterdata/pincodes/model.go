// Package pincodes declares the serviceability pincode lists: bad pincodes
// that cannot be served, good pincodes with their city and state, and high
// RTO pincodes with a history of returned shipments.
package pincodes

import (
	"strings"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
)

// BadPincode is a pincode orders must not be shipped to.
type BadPincode struct {
	lifecycle.Record
	Pincode string `db:"pincode" json:"pincode" validate:"required,pincode"`
}

// GoodPincode is a serviceable pincode.
type GoodPincode struct {
	lifecycle.Record
	Pincode string `db:"pincode" json:"pincode" validate:"required,pincode"`
	City    string `db:"city" json:"city" validate:"max=120"`
	State   string `db:"state" json:"state" validate:"max=120"`
}

// HighRto is a pincode with a high return-to-origin rate.
type HighRto struct {
	lifecycle.Record
	Pincode string `db:"pincode" json:"pincode" validate:"required,pincode"`
}

var BadSchema = lifecycle.Schema[BadPincode]{
	Entity:   "Bad pincode",
	Table:    "bad_pincodes",
	Columns:  []string{"pincode"},
	Mutable:  []string{"pincode", "status"},
	Unique:   []string{"pincode"},
	KeyField: "pincode",
	Values: func(p BadPincode) map[string]any {
		return map[string]any{"pincode": p.Pincode}
	},
	Meta: func(p *BadPincode) *lifecycle.Record { return &p.Record },
	Prepare: func(p *BadPincode) error {
		p.Pincode = normalize(p.Pincode)
		return nil
	},
}.MustCheck()

var GoodSchema = lifecycle.Schema[GoodPincode]{
	Entity:   "Good pincode",
	Table:    "good_pincodes",
	Columns:  []string{"pincode", "city", "state"},
	Mutable:  []string{"pincode", "city", "state", "status"},
	Unique:   []string{"pincode"},
	KeyField: "pincode",
	Values: func(p GoodPincode) map[string]any {
		return map[string]any{"pincode": p.Pincode, "city": p.City, "state": p.State}
	},
	Meta: func(p *GoodPincode) *lifecycle.Record { return &p.Record },
	Prepare: func(p *GoodPincode) error {
		p.Pincode = normalize(p.Pincode)
		p.City = strings.TrimSpace(p.City)
		p.State = strings.TrimSpace(p.State)
		return nil
	},
}.MustCheck()

var HighRtoSchema = lifecycle.Schema[HighRto]{
	Entity:   "High RTO pincode",
	Plural:   "high RTO pincodes",
	Table:    "high_rtos",
	Columns:  []string{"pincode"},
	Mutable:  []string{"pincode", "status"},
	Unique:   []string{"pincode"},
	KeyField: "pincode",
	Values: func(p HighRto) map[string]any {
		return map[string]any{"pincode": p.Pincode}
	},
	Meta: func(p *HighRto) *lifecycle.Record { return &p.Record },
	Prepare: func(p *HighRto) error {
		p.Pincode = normalize(p.Pincode)
		return nil
	},
}.MustCheck()

// normalize strips whitespace, including the inner spaces spreadsheets
// sometimes insert ("110 001").
func normalize(raw string) string {
	return strings.Join(strings.Fields(raw), "")
}
