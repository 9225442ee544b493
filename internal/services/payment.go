package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/metrics"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/repository"
)

var (
	ErrSessionRefRequired = errors.New("session reference is required")
	ErrInvalidSession     = errors.New("paid session carries no transaction id")
	ErrStorage            = errors.New("storage unavailable")
	ErrParcelNotFound     = errors.New("parcel referenced by payment not found")
	ErrParcelTracked      = errors.New("parcel already carries a different tracking id")
	ErrParcelIDMalformed  = errors.New("parcel id in session metadata is malformed")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrForbidden          = errors.New("forbidden")
)

// SessionProvider resolves a checkout session reference to its current truth.
type SessionProvider interface {
	RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// PaymentLedger is the append-only store of settled payments. Insert must
// return repository.ErrDuplicateKey when the transaction id already exists.
type PaymentLedger interface {
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	Insert(ctx context.Context, payment *models.Payment) (string, error)
	ListByCustomerEmail(ctx context.Context, email string) ([]models.Payment, error)
}

type TrackingGenerator interface {
	Generate() string
}

// ConsistencyError means the ledger holds a payment whose parcel could not be
// marked paid because the parcel record itself is wrong or missing.
type ConsistencyError struct {
	TransactionID string
	TrackingID    string
	ParcelID      string
	Err           error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("data consistency: transaction %s parcel %s: %v", e.TransactionID, e.ParcelID, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

// PartialFailureError means the payment was recorded but the parcel update
// failed on storage; POST /payments/{transactionId}/reconcile repairs it.
type PartialFailureError struct {
	TransactionID string
	TrackingID    string
	ParcelID      string
	Err           error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure: transaction %s recorded, parcel %s not updated: %v", e.TransactionID, e.ParcelID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

type PaymentInsert struct {
	InsertedID string `json:"insertedId"`
}

// ConfirmationResult is the outcome of Confirm that is not an error.
type ConfirmationResult struct {
	Success       bool                      `json:"success"`
	Message       string                    `json:"message,omitempty"`
	TransactionID string                    `json:"transactionId,omitempty"`
	TrackingID    string                    `json:"trackingId,omitempty"`
	ModifyParcel  *repository.UpdateOutcome `json:"modifyParcel,omitempty"`
	PaymentInfo   *PaymentInsert            `json:"paymentInfo,omitempty"`
	Replayed      bool                      `json:"-"`
}

type PaymentService struct {
	provider SessionProvider
	ledger   PaymentLedger
	parcels  ParcelStore
	tracking TrackingGenerator
	metrics  *metrics.Metrics
	now      func() time.Time

	writeTimeout time.Duration
}

const defaultWriteTimeout = 10 * time.Second

func NewPaymentService(provider SessionProvider, ledger PaymentLedger, parcels ParcelStore, tracking TrackingGenerator, m *metrics.Metrics) *PaymentService {
	return &PaymentService{
		provider: provider,
		ledger:   ledger,
		parcels:  parcels,
		tracking: tracking,
		metrics:  m,
		now:      time.Now,

		writeTimeout: defaultWriteTimeout,
	}
}

// Confirm turns a completed checkout session into exactly one payment record
// and one tracking id. Replays and concurrent duplicates return the stored
// tracking id. The ledger insert is the winner-selection step, so it runs
// before the parcel update. Once the provider has answered, the storage phase
// is detached from caller cancellation so the ledger and parcel writes are
// never split by a dropped connection.
func (s *PaymentService) Confirm(ctx context.Context, sessionRef string) (*ConfirmationResult, error) {
	sessionRef = strings.TrimSpace(sessionRef)
	if sessionRef == "" {
		return nil, ErrSessionRefRequired
	}
	log := logger.FromContext(ctx).With(zap.String("session_id", sessionRef))

	session, err := s.provider.RetrieveSession(ctx, sessionRef)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			log.Info("checkout session not found at provider")
			s.metrics.RecordConfirmation(metrics.OutcomeNotPaid)
			return &ConfirmationResult{Success: false}, nil
		}
		log.Error("retrieve checkout session failed", zap.Error(err))
		s.metrics.RecordConfirmation(metrics.OutcomeProviderError)
		return nil, fmt.Errorf("retrieve session: %w", err)
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	transactionID := strings.TrimSpace(session.PaymentIntent)
	log = log.With(zap.String("transaction_id", transactionID))

	if transactionID != "" {
		existing, err := s.ledger.FindByTransactionID(ctx, transactionID)
		switch {
		case err == nil:
			log.Info("payment already recorded", zap.String("tracking_id", existing.TrackingID))
			s.metrics.RecordConfirmation(metrics.OutcomeReplayed)
			return replayResult(existing), nil
		case !errors.Is(err, repository.ErrNotFound):
			log.Error("ledger lookup failed", zap.Error(err))
			s.metrics.RecordConfirmation(metrics.OutcomeStorageError)
			return nil, fmt.Errorf("%w: find payment: %v", ErrStorage, err)
		}
	}

	if !session.Paid() {
		log.Info("checkout session not paid", zap.String("payment_status", session.PaymentStatus))
		s.metrics.RecordConfirmation(metrics.OutcomeNotPaid)
		return &ConfirmationResult{Success: false}, nil
	}
	if transactionID == "" {
		log.Error("paid session without payment intent")
		s.metrics.RecordConfirmation(metrics.OutcomeProviderError)
		return nil, fmt.Errorf("%w: session %s", ErrInvalidSession, sessionRef)
	}

	parcelID := strings.TrimSpace(session.Metadata["parcelId"])
	payment := &models.Payment{
		TransactionID: transactionID,
		Amount:        float64(session.AmountTotal) / 100,
		Currency:      session.Currency,
		CustomerEmail: session.CustomerEmail,
		ParcelID:      parcelID,
		ParcelName:    session.Metadata["parcelName"],
		PaymentStatus: session.PaymentStatus,
		TrackingID:    s.tracking.Generate(),
		PaidAt:        s.now().UTC(),
	}
	log = log.With(zap.String("tracking_id", payment.TrackingID), zap.String("parcel_id", parcelID))

	insertedID, err := s.ledger.Insert(ctx, payment)
	if errors.Is(err, repository.ErrDuplicateKey) {
		winner, ferr := s.ledger.FindByTransactionID(ctx, transactionID)
		if ferr != nil {
			log.Error("ledger reread after duplicate failed", zap.Error(ferr))
			s.metrics.RecordConfirmation(metrics.OutcomeStorageError)
			return nil, fmt.Errorf("%w: reread payment: %v", ErrStorage, ferr)
		}
		log.Info("lost confirmation race, returning recorded payment", zap.String("recorded_tracking_id", winner.TrackingID))
		s.metrics.RecordConfirmation(metrics.OutcomeReplayed)
		return replayResult(winner), nil
	}
	if err != nil {
		log.Error("ledger insert failed", zap.Error(err))
		s.metrics.RecordConfirmation(metrics.OutcomeStorageError)
		return nil, fmt.Errorf("%w: insert payment: %v", ErrStorage, err)
	}

	outcome, err := s.applyToParcel(ctx, payment)
	if err != nil {
		s.recordParcelFailure(log, err)
		return nil, err
	}

	log.Info("payment confirmed")
	s.metrics.RecordConfirmation(metrics.OutcomeConfirmed)
	return &ConfirmationResult{
		Success:       true,
		TransactionID: transactionID,
		TrackingID:    payment.TrackingID,
		ModifyParcel:  &outcome,
		PaymentInfo:   &PaymentInsert{InsertedID: insertedID},
	}, nil
}

// Reconcile re-applies a recorded payment to its parcel using the stored
// tracking id. Only the paying customer may trigger it.
func (s *PaymentService) Reconcile(ctx context.Context, transactionID, callerEmail string) (*ConfirmationResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	log := logger.FromContext(ctx).With(zap.String("transaction_id", transactionID))

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	payment, err := s.ledger.FindByTransactionID(ctx, transactionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find payment: %v", ErrStorage, err)
	}
	if payment.CustomerEmail != callerEmail {
		return nil, ErrForbidden
	}

	log = log.With(zap.String("tracking_id", payment.TrackingID), zap.String("parcel_id", payment.ParcelID))
	outcome, err := s.applyToParcel(ctx, payment)
	if err != nil {
		s.recordParcelFailure(log, err)
		return nil, err
	}

	log.Info("payment reconciled", zap.Int64("modified", outcome.ModifiedCount))
	return &ConfirmationResult{
		Success:       true,
		TransactionID: payment.TransactionID,
		TrackingID:    payment.TrackingID,
		ModifyParcel:  &outcome,
	}, nil
}

// ListForCustomer returns payments newest first. An empty email lists all.
func (s *PaymentService) ListForCustomer(ctx context.Context, email string) ([]models.Payment, error) {
	payments, err := s.ledger.ListByCustomerEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: list payments: %v", ErrStorage, err)
	}
	return payments, nil
}

// writeContext keeps ctx values (request id) but not its cancellation, and
// bounds the whole storage phase instead.
func (s *PaymentService) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
}

func (s *PaymentService) applyToParcel(ctx context.Context, payment *models.Payment) (repository.UpdateOutcome, error) {
	consistency := func(cause error) error {
		return &ConsistencyError{TransactionID: payment.TransactionID, TrackingID: payment.TrackingID, ParcelID: payment.ParcelID, Err: cause}
	}
	partial := func(cause error) error {
		return &PartialFailureError{TransactionID: payment.TransactionID, TrackingID: payment.TrackingID, ParcelID: payment.ParcelID, Err: cause}
	}

	outcome, err := s.parcels.MarkPaid(ctx, payment.ParcelID, payment.TrackingID)
	if errors.Is(err, repository.ErrInvalidID) {
		return outcome, consistency(ErrParcelIDMalformed)
	}
	if err != nil {
		return outcome, partial(err)
	}
	if outcome.MatchedCount > 0 {
		return outcome, nil
	}

	parcel, err := s.parcels.Get(ctx, payment.ParcelID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return outcome, consistency(ErrParcelNotFound)
	case err != nil:
		return outcome, partial(err)
	case parcel.TrackingID != "" && parcel.TrackingID != payment.TrackingID:
		return outcome, consistency(fmt.Errorf("%w: %s", ErrParcelTracked, parcel.TrackingID))
	default:
		// Matched nothing yet the parcel is eligible: it changed under us.
		return outcome, partial(errors.New("parcel update matched no document"))
	}
}

func (s *PaymentService) recordParcelFailure(log *zap.Logger, err error) {
	var ce *ConsistencyError
	if errors.As(err, &ce) {
		log.Error("payment recorded but parcel inconsistent, needs manual reconciliation", zap.Error(err))
		s.metrics.RecordConfirmation(metrics.OutcomeInconsistent)
		return
	}
	log.Error("payment recorded but parcel update failed, reconcile by transaction id", zap.Error(err))
	s.metrics.RecordConfirmation(metrics.OutcomePartial)
}

func replayResult(p *models.Payment) *ConfirmationResult {
	return &ConfirmationResult{
		Success:       true,
		Message:       "already exists",
		TransactionID: p.TransactionID,
		TrackingID:    p.TrackingID,
		Replayed:      true,
	}
}
