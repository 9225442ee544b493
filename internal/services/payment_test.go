package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/markjakearzadon/zapshift-gobackend/internal/metrics"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/repository"
	"github.com/markjakearzadon/zapshift-gobackend/internal/tracking"
)

type fakeProvider struct {
	mu       sync.Mutex
	sessions map[string]*CheckoutSession
	err      error
	calls    int
}

func (p *fakeProvider) RetrieveSession(_ context.Context, id string) (*CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	s, ok := p.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	cp := *s
	return &cp, nil
}

type sequenceTracking struct {
	ids   []string
	calls atomic.Int32
}

func (g *sequenceTracking) Generate() string {
	n := int(g.calls.Add(1)) - 1
	return g.ids[n%len(g.ids)]
}

type failingParcels struct {
	ParcelStore
	markErr error
}

func (f *failingParcels) MarkPaid(ctx context.Context, id, trackingID string) (repository.UpdateOutcome, error) {
	if f.markErr != nil {
		return repository.UpdateOutcome{}, f.markErr
	}
	return f.ParcelStore.MarkPaid(ctx, id, trackingID)
}

type failingLedger struct {
	*repository.MemoryPaymentLedger
	insertErr error
	findErr   error
}

func (f *failingLedger) Insert(ctx context.Context, p *models.Payment) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	return f.MemoryPaymentLedger.Insert(ctx, p)
}

func (f *failingLedger) FindByTransactionID(ctx context.Context, id string) (*models.Payment, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.MemoryPaymentLedger.FindByTransactionID(ctx, id)
}

// racingLedger hides the winner's record from the first lookup, as if the
// winner inserted between our read and our write.
type racingLedger struct {
	*repository.MemoryPaymentLedger
	hidden atomic.Bool
}

func (r *racingLedger) FindByTransactionID(ctx context.Context, id string) (*models.Payment, error) {
	if r.hidden.CompareAndSwap(false, true) {
		return nil, repository.ErrNotFound
	}
	return r.MemoryPaymentLedger.FindByTransactionID(ctx, id)
}

type fixture struct {
	provider *fakeProvider
	ledger   *repository.MemoryPaymentLedger
	parcels  *repository.MemoryParcelStore
	tracking *sequenceTracking
	svc      *PaymentService
	parcelID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	parcels := repository.NewMemoryParcelStore()
	parcelID, err := parcels.Create(ctx, &models.Parcel{
		ParcelName:    "Box A",
		SenderEmail:   "sender@example.com",
		Cost:          5,
		PaymentStatus: models.PaymentStatusUnpaid,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	f := &fixture{
		provider: &fakeProvider{sessions: map[string]*CheckoutSession{}},
		ledger:   repository.NewMemoryPaymentLedger(),
		parcels:  parcels,
		tracking: &sequenceTracking{ids: []string{"PRCL-20240101-AB12CD", "PRCL-20240101-FFFFFF"}},
		parcelID: parcelID,
	}
	f.provider.sessions["sess_1"] = &CheckoutSession{
		ID:            "sess_1",
		PaymentStatus: "paid",
		AmountTotal:   500,
		Currency:      "usd",
		CustomerEmail: "sender@example.com",
		PaymentIntent: "pi_1",
		Metadata:      map[string]string{"parcelId": parcelID, "parcelName": "Box A"},
	}
	f.svc = NewPaymentService(f.provider, f.ledger, f.parcels, f.tracking, metrics.New())
	f.svc.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestConfirmFirstPaymentThenReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.Confirm(ctx, "sess_1")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.False(t, first.Replayed)
	assert.Equal(t, "pi_1", first.TransactionID)
	assert.Equal(t, "PRCL-20240101-AB12CD", first.TrackingID)
	require.NotNil(t, first.ModifyParcel)
	assert.EqualValues(t, 1, first.ModifyParcel.MatchedCount)
	require.NotNil(t, first.PaymentInfo)
	assert.NotEmpty(t, first.PaymentInfo.InsertedID)

	parcel, err := f.parcels.Get(ctx, f.parcelID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, parcel.PaymentStatus)
	assert.Equal(t, "PRCL-20240101-AB12CD", parcel.TrackingID)

	payment, err := f.ledger.FindByTransactionID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, payment.Amount)
	assert.Equal(t, "usd", payment.Currency)
	assert.Equal(t, "Box A", payment.ParcelName)
	assert.Equal(t, f.parcelID, payment.ParcelID)
	assert.Equal(t, "paid", payment.PaymentStatus)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), payment.PaidAt)

	second, err := f.svc.Confirm(ctx, "sess_1")
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.True(t, second.Replayed)
	assert.Equal(t, "already exists", second.Message)
	assert.Equal(t, first.TrackingID, second.TrackingID)
	assert.Nil(t, second.ModifyParcel)

	assert.Equal(t, 1, f.ledger.Len())
	assert.EqualValues(t, 1, f.tracking.calls.Load())
}

func TestConfirmNotPaidWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.provider.sessions["sess_1"].PaymentStatus = "unpaid"

	res, err := f.svc.Confirm(ctx, "sess_1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.TrackingID)

	assert.Equal(t, 0, f.ledger.Len())
	assert.EqualValues(t, 0, f.tracking.calls.Load())
	parcel, err := f.parcels.Get(ctx, f.parcelID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, parcel.PaymentStatus)
	assert.Empty(t, parcel.TrackingID)
}

func TestConfirmUnknownSessionIsNotPaid(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Confirm(context.Background(), "sess_unknown")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, f.ledger.Len())
}

func TestConfirmRequiresSessionRef(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Confirm(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrSessionRefRequired)
	assert.Zero(t, f.provider.calls)
}

func TestConfirmProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.err = fmt.Errorf("%w: connection refused", ErrProviderUnavailable)

	_, err := f.svc.Confirm(context.Background(), "sess_1")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 0, f.ledger.Len())
}

func TestConfirmPaidSessionWithoutTransactionID(t *testing.T) {
	f := newFixture(t)
	f.provider.sessions["sess_1"].PaymentIntent = ""

	_, err := f.svc.Confirm(context.Background(), "sess_1")
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Equal(t, 0, f.ledger.Len())
}

func TestConfirmConcurrentDuplicatesYieldOneRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.tracking = tracking.New()

	const n = 32
	results := make([]*ConfirmationResult, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			res, err := f.svc.Confirm(ctx, "sess_1")
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, f.ledger.Len())
	recorded, err := f.ledger.FindByTransactionID(ctx, "pi_1")
	require.NoError(t, err)

	fresh := 0
	for _, res := range results {
		require.NotNil(t, res)
		assert.True(t, res.Success)
		assert.Equal(t, recorded.TrackingID, res.TrackingID)
		if !res.Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)

	parcel, err := f.parcels.Get(ctx, f.parcelID)
	require.NoError(t, err)
	assert.Equal(t, recorded.TrackingID, parcel.TrackingID)
}

func TestConfirmLosingRaceFallsBackToRecordedPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	winner := &models.Payment{TransactionID: "pi_1", TrackingID: "PRCL-20240101-000001", ParcelID: f.parcelID}
	_, err := f.ledger.Insert(ctx, winner)
	require.NoError(t, err)
	f.svc.ledger = &racingLedger{MemoryPaymentLedger: f.ledger}

	res, err := f.svc.Confirm(ctx, "sess_1")
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, "PRCL-20240101-000001", res.TrackingID)
	assert.Equal(t, 1, f.ledger.Len())

	parcel, err := f.parcels.Get(ctx, f.parcelID)
	require.NoError(t, err)
	assert.Empty(t, parcel.TrackingID, "loser must not touch the parcel")
}

func TestConfirmMissingParcelIsConsistencyError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.parcels.Delete(ctx, f.parcelID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, "sess_1")
	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrParcelNotFound)
	assert.Equal(t, "pi_1", ce.TransactionID)
	assert.Equal(t, "PRCL-20240101-AB12CD", ce.TrackingID)

	// the payment is still recorded so it can be reconciled
	assert.Equal(t, 1, f.ledger.Len())
}

func TestConfirmMalformedParcelIDIsConsistencyError(t *testing.T) {
	f := newFixture(t)
	f.provider.sessions["sess_1"].Metadata["parcelId"] = "P1"

	_, err := f.svc.Confirm(context.Background(), "sess_1")
	assert.ErrorIs(t, err, ErrParcelIDMalformed)
	var ce *ConsistencyError
	assert.ErrorAs(t, err, &ce)
}

func TestConfirmParcelAlreadyTrackedIsConsistencyError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.parcels.MarkPaid(ctx, f.parcelID, "PRCL-20231231-111111")
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, "sess_1")
	assert.ErrorIs(t, err, ErrParcelTracked)

	parcel, err := f.parcels.Get(ctx, f.parcelID)
	require.NoError(t, err)
	assert.Equal(t, "PRCL-20231231-111111", parcel.TrackingID)
}

func TestConfirmParcelStorageFailureIsPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.parcels = &failingParcels{ParcelStore: f.parcels, markErr: errors.New("socket closed")}

	_, err := f.svc.Confirm(ctx, "sess_1")
	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "pi_1", pf.TransactionID)
	assert.Equal(t, f.parcelID, pf.ParcelID)
	assert.Equal(t, 1, f.ledger.Len())

	// reconciliation repairs the parcel with the recorded tracking id
	f.svc.parcels = f.parcels
	res, err := f.svc.Reconcile(ctx, "pi_1", "sender@example.com")
	require.NoError(t, err)
	assert.Equal(t, pf.TrackingID, res.TrackingID)
	assert.EqualValues(t, 1, res.ModifyParcel.ModifiedCount)

	parcel, err := f.parcels.Get(ctx, f.parcelID)
	require.NoError(t, err)
	assert.True(t, parcel.IsPaid())
	assert.Equal(t, pf.TrackingID, parcel.TrackingID)
	assert.EqualValues(t, 1, f.tracking.calls.Load())
}

func TestConfirmLedgerFailureLeavesParcelUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.ledger = &failingLedger{MemoryPaymentLedger: f.ledger, insertErr: errors.New("write concern timeout")}

	_, err := f.svc.Confirm(ctx, "sess_1")
	assert.ErrorIs(t, err, ErrStorage)

	parcel, err := f.parcels.Get(ctx, f.parcelID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, parcel.PaymentStatus)
}

func TestConfirmLedgerLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.ledger = &failingLedger{MemoryPaymentLedger: f.ledger, findErr: errors.New("no reachable servers")}

	_, err := f.svc.Confirm(context.Background(), "sess_1")
	assert.ErrorIs(t, err, ErrStorage)
	assert.EqualValues(t, 0, f.tracking.calls.Load())
}

func TestReconcileGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Confirm(ctx, "sess_1")
	require.NoError(t, err)

	_, err = f.svc.Reconcile(ctx, "pi_unknown", "sender@example.com")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = f.svc.Reconcile(ctx, "pi_1", "someone@else.com")
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := f.svc.Reconcile(ctx, "pi_1", "sender@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.ModifyParcel.MatchedCount)
	assert.EqualValues(t, 0, res.ModifyParcel.ModifiedCount)
}

func TestTrackingIDPresentIffPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	other, err := f.parcels.Create(ctx, &models.Parcel{ParcelName: "Box B", SenderEmail: "b@example.com", PaymentStatus: models.PaymentStatusUnpaid})
	require.NoError(t, err)
	f.provider.sessions["sess_2"] = &CheckoutSession{ID: "sess_2", PaymentStatus: "unpaid", Metadata: map[string]string{"parcelId": other}}

	_, err = f.svc.Confirm(ctx, "sess_1")
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, "sess_2")
	require.NoError(t, err)

	parcels, err := f.parcels.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, parcels, 2)
	for _, p := range parcels {
		assert.Equal(t, p.IsPaid(), p.TrackingID != "", "parcel %s", p.ParcelName)
	}
}

func TestListForCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Confirm(ctx, "sess_1")
	require.NoError(t, err)

	payments, err := f.svc.ListForCustomer(ctx, "sender@example.com")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "pi_1", payments[0].TransactionID)

	none, err := f.svc.ListForCustomer(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// cancellingLedger drops the caller's context right after the payment is
// recorded, the way a client hanging up mid-request would.
type cancellingLedger struct {
	*repository.MemoryPaymentLedger
	cancel context.CancelFunc
}

func (l *cancellingLedger) Insert(ctx context.Context, p *models.Payment) (string, error) {
	id, err := l.MemoryPaymentLedger.Insert(ctx, p)
	l.cancel()
	return id, err
}

// contextParcels fails once its context is done, as the mongo driver does.
type contextParcels struct {
	ParcelStore
	sawDeadline atomic.Bool
}

func (c *contextParcels) MarkPaid(ctx context.Context, id, trackingID string) (repository.UpdateOutcome, error) {
	if err := ctx.Err(); err != nil {
		return repository.UpdateOutcome{}, err
	}
	_, ok := ctx.Deadline()
	c.sawDeadline.Store(ok)
	return c.ParcelStore.MarkPaid(ctx, id, trackingID)
}

func TestConfirmCompletesWhenCallerGoesAway(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parcels := &contextParcels{ParcelStore: f.parcels}
	f.svc.ledger = &cancellingLedger{MemoryPaymentLedger: f.ledger, cancel: cancel}
	f.svc.parcels = parcels

	res, err := f.svc.Confirm(ctx, "sess_1")
	require.NoError(t, err)
	require.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, "PRCL-20240101-AB12CD", res.TrackingID)
	assert.True(t, parcels.sawDeadline.Load(), "storage phase must stay bounded")

	parcel, err := f.parcels.Get(context.Background(), f.parcelID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, parcel.PaymentStatus)
	assert.Equal(t, "PRCL-20240101-AB12CD", parcel.TrackingID)

	replay, err := f.svc.Confirm(context.Background(), "sess_1")
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, res.TrackingID, replay.TrackingID)
}

func TestReconcileCompletesWhenCallerGoesAway(t *testing.T) {
	f := newFixture(t)
	f.svc.parcels = &failingParcels{ParcelStore: f.parcels, markErr: errors.New("connection reset")}
	_, err := f.svc.Confirm(context.Background(), "sess_1")
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.svc.parcels = &contextParcels{ParcelStore: f.parcels}

	res, err := f.svc.Reconcile(ctx, "pi_1", "sender@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.ModifyParcel.ModifiedCount)
}

func TestConfirmToleratesTrackingIDCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tracking.ids = []string{"PRCL-20240101-AB12CD"}

	otherID, err := f.parcels.Create(ctx, &models.Parcel{
		ParcelName:    "Box B",
		SenderEmail:   "sender@example.com",
		PaymentStatus: models.PaymentStatusUnpaid,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)
	f.provider.sessions["sess_2"] = &CheckoutSession{
		ID:            "sess_2",
		PaymentStatus: "paid",
		AmountTotal:   700,
		Currency:      "usd",
		CustomerEmail: "sender@example.com",
		PaymentIntent: "pi_2",
		Metadata:      map[string]string{"parcelId": otherID, "parcelName": "Box B"},
	}

	first, err := f.svc.Confirm(ctx, "sess_1")
	require.NoError(t, err)
	second, err := f.svc.Confirm(ctx, "sess_2")
	require.NoError(t, err)
	assert.Equal(t, first.TrackingID, second.TrackingID)

	other, err := f.parcels.Get(ctx, otherID)
	require.NoError(t, err)
	assert.True(t, other.IsPaid())
	assert.Equal(t, 2, f.ledger.Len())
}
