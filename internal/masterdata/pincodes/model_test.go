package pincodes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shipdesk/shipdesk/internal/lifecycle"
	"github.com/shipdesk/shipdesk/internal/shared"
)

var actor = shared.Actor{ID: 1, Role: "Admin"}

func TestBadPincodeScenario(t *testing.T) {
	svc := lifecycle.NewService[BadPincode](BadSchema, lifecycle.NewMemStore(BadSchema), lifecycle.ServiceConfig{})
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, BadPincode{Record: lifecycle.Record{Status: true}, Pincode: " 110 001 "})
	require.NoError(t, err)
	require.Equal(t, "110001", created.Pincode)

	avail, err := svc.CheckUniqueness(ctx, "pincode", "110001", nil)
	require.NoError(t, err)
	require.False(t, avail.Available)
	require.Equal(t, "Pincode is already in use", avail.Message)

	_, err = svc.SoftDelete(ctx, actor, created.ID)
	require.NoError(t, err)
	deleted, err := svc.ListByStatus(ctx, lifecycle.ModeDeleted)
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	_, err = svc.Restore(ctx, actor, created.ID)
	require.NoError(t, err)
	active, err := svc.ListByStatus(ctx, lifecycle.ModeActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Nil(t, active[0].DeletedAt)
}

func TestPincodeValidation(t *testing.T) {
	svc := lifecycle.NewService[GoodPincode](GoodSchema, lifecycle.NewMemStore(GoodSchema), lifecycle.ServiceConfig{})
	ctx := context.Background()

	for _, code := range []string{"", "01234", "012345", "11000a", "1100011"} {
		_, err := svc.Create(ctx, actor, GoodPincode{Pincode: code, City: "Delhi"})
		require.ErrorIs(t, err, shared.ErrValidation, code)
	}

	good, err := svc.Create(ctx, actor, GoodPincode{Pincode: "560001", City: " Bengaluru ", State: "Karnataka"})
	require.NoError(t, err)
	require.Equal(t, "Bengaluru", good.City)
}

func TestHighRtoImportMessages(t *testing.T) {
	svc := lifecycle.NewService[HighRto](HighRtoSchema, lifecycle.NewMemStore(HighRtoSchema), lifecycle.ServiceConfig{
		Clock: func() time.Time { return time.Unix(0, 0).UTC() },
	})
	ctx := context.Background()

	res, err := svc.BulkImport(ctx, actor, []HighRto{{Pincode: "400001"}, {Pincode: "400 001"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.ImportedCount)
	require.Equal(t, "1 high RTO pincode imported successfully", res.Message)

	res, err = svc.BulkImport(ctx, actor, []HighRto{{Pincode: "400001"}})
	require.NoError(t, err)
	require.Equal(t, "All high RTO pincodes already exist", res.Message)
}
