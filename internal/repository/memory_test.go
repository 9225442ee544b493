package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

func TestMemoryParcelStoreMarkPaidKeepsTrackingID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryParcelStore()

	id, err := store.Create(ctx, &models.Parcel{ParcelName: "Box A", PaymentStatus: models.PaymentStatusUnpaid})
	require.NoError(t, err)

	out, err := store.MarkPaid(ctx, id, "PRCL-20240101-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, UpdateOutcome{MatchedCount: 1, ModifiedCount: 1}, out)

	out, err = store.MarkPaid(ctx, id, "PRCL-20240101-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, UpdateOutcome{MatchedCount: 1}, out)

	out, err = store.MarkPaid(ctx, id, "PRCL-20240101-BBBBBB")
	require.NoError(t, err)
	assert.Zero(t, out.MatchedCount)

	parcel, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "PRCL-20240101-AAAAAA", parcel.TrackingID)
	assert.True(t, parcel.IsPaid())
}

func TestMemoryParcelStoreListSortsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryParcelStore()
	now := time.Now()

	_, _ = store.Create(ctx, &models.Parcel{ParcelName: "old", SenderEmail: "a@b.c", CreatedAt: now.Add(-time.Hour)})
	_, _ = store.Create(ctx, &models.Parcel{ParcelName: "new", SenderEmail: "a@b.c", CreatedAt: now})
	_, _ = store.Create(ctx, &models.Parcel{ParcelName: "other", SenderEmail: "x@y.z", CreatedAt: now})

	parcels, err := store.List(ctx, "a@b.c")
	require.NoError(t, err)
	require.Len(t, parcels, 2)
	assert.Equal(t, "new", parcels[0].ParcelName)
	assert.Equal(t, "old", parcels[1].ParcelName)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryPaymentLedgerRejectsDuplicateTransaction(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryPaymentLedger()

	_, err := ledger.Insert(ctx, &models.Payment{TransactionID: "pi_1"})
	require.NoError(t, err)
	_, err = ledger.Insert(ctx, &models.Payment{TransactionID: "pi_1"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, ledger.Len())

	_, err = ledger.FindByTransactionID(ctx, "pi_2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserStoreUniqueEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	_, err := store.Insert(ctx, &models.User{Email: "a@b.c"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, &models.User{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemoryRiderStoreFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRiderStore()

	_, _ = store.Insert(ctx, &models.Rider{Name: "a", Status: models.RiderStatusPending})
	_, _ = store.Insert(ctx, &models.Rider{Name: "b", Status: "approved"})

	pending, err := store.List(ctx, models.RiderStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].Name)
}
