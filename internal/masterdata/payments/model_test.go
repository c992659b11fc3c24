package payments

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
	"github.com/shipdesk/shipdesk/internal/shared"
)

var actor = shared.Actor{ID: 2, Role: "Admin"}

func newService() *lifecycle.Service[Payment] {
	return lifecycle.NewService[Payment](Schema, lifecycle.NewMemStore(Schema), lifecycle.ServiceConfig{})
}

func TestPaymentAmountValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	paid := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, actor, Payment{TransactionID: "TXN1", Amount: decimal.Zero, Mode: "upi", PaidOn: paid})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, "Amount is invalid", shared.UserSafeMessage(err))

	_, err = svc.Create(ctx, actor, Payment{TransactionID: "TXN1", Amount: decimal.RequireFromString("10"), Mode: "cheque", PaidOn: paid})
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(ctx, actor, Payment{TransactionID: " TXN1 ", Amount: decimal.RequireFromString("499.999"), Mode: "UPI", PaidOn: paid})
	require.NoError(t, err)
	require.Equal(t, "TXN1", created.TransactionID)
	require.Equal(t, "upi", created.Mode)
	require.True(t, decimal.RequireFromString("500").Equal(created.Amount))
}

func TestPaymentImportFromJSON(t *testing.T) {
	svc := newService()
	rows := json.RawMessage(`[
		{"transaction_id":"T-1","amount":"120.50","mode":"card","paid_on":"2024-05-01T10:00:00Z"},
		{"transaction_id":"T-2","amount":75,"mode":"cod","paid_on":"2024-05-02T10:00:00Z"},
		{"transaction_id":"T-3","amount":"-1","mode":"cod","paid_on":"2024-05-02T10:00:00Z"}
	]`)

	res, err := svc.ImportJSON(context.Background(), actor, rows)
	require.NoError(t, err)
	require.Equal(t, 2, res.ImportedCount)

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T-2", items[0].TransactionID)
	require.True(t, items[0].Status)

	_, err = svc.ImportJSON(context.Background(), actor, json.RawMessage(`{"not":"an array"}`))
	require.ErrorIs(t, err, shared.ErrValidation)
}
