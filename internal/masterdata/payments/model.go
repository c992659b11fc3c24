// Package payments declares payment records reconciled against orders.
package payments

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
)

// Payment is a received payment identified by its gateway transaction id.
type Payment struct {
	lifecycle.Record
	TransactionID string          `db:"transaction_id" json:"transaction_id" validate:"required,max=64"`
	Amount        decimal.Decimal `db:"amount" json:"amount" validate:"gt=0"`
	Mode          string          `db:"mode" json:"mode" validate:"required,oneof=upi card netbanking wallet cod bank_transfer"`
	PaidOn        time.Time       `db:"paid_on" json:"paid_on" validate:"required"`
	Reference     string          `db:"reference" json:"reference" validate:"max=120"`
}

var Schema = lifecycle.Schema[Payment]{
	Entity:   "Payment",
	Table:    "payments",
	Columns:  []string{"transaction_id", "amount", "mode", "paid_on", "reference"},
	Mutable:  []string{"transaction_id", "amount", "mode", "paid_on", "reference", "status"},
	Unique:   []string{"transaction_id"},
	KeyField: "transaction_id",
	Labels:   map[string]string{"transaction_id": "Transaction ID"},
	Values: func(p Payment) map[string]any {
		return map[string]any{
			"transaction_id": p.TransactionID,
			"amount":         p.Amount,
			"mode":           p.Mode,
			"paid_on":        p.PaidOn,
			"reference":      p.Reference,
		}
	},
	Meta: func(p *Payment) *lifecycle.Record { return &p.Record },
	Prepare: func(p *Payment) error {
		p.TransactionID = strings.TrimSpace(p.TransactionID)
		p.Mode = strings.ToLower(strings.TrimSpace(p.Mode))
		p.Reference = strings.TrimSpace(p.Reference)
		p.Amount = p.Amount.Round(2)
		if !p.PaidOn.IsZero() {
			p.PaidOn = p.PaidOn.UTC()
		}
		return nil
	},
}.MustCheck()
