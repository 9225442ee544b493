package repository

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

type MemoryParcelStore struct {
	mu sync.RWMutex
	m  map[primitive.ObjectID]models.Parcel
}

func NewMemoryParcelStore() *MemoryParcelStore {
	return &MemoryParcelStore{m: make(map[primitive.ObjectID]models.Parcel)}
}

func (r *MemoryParcelStore) List(_ context.Context, senderEmail string) ([]models.Parcel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Parcel, 0, len(r.m))
	for _, p := range r.m {
		if senderEmail != "" && p.SenderEmail != senderEmail {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryParcelStore) Get(_ context.Context, id string) (*models.Parcel, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.m[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryParcelStore) Create(_ context.Context, parcel *models.Parcel) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if parcel.ID.IsZero() {
		parcel.ID = primitive.NewObjectID()
	}
	if _, ok := r.m[parcel.ID]; ok {
		return "", ErrDuplicateKey
	}
	r.m[parcel.ID] = *parcel
	return parcel.ID.Hex(), nil
}

func (r *MemoryParcelStore) Delete(_ context.Context, id string) (int64, error) {
	oid, err := parseID(id)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[oid]; !ok {
		return 0, nil
	}
	delete(r.m, oid)
	return 1, nil
}

func (r *MemoryParcelStore) MarkPaid(_ context.Context, id, trackingID string) (UpdateOutcome, error) {
	oid, err := parseID(id)
	if err != nil {
		return UpdateOutcome{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.m[oid]
	if !ok || (p.TrackingID != "" && p.TrackingID != trackingID) {
		return UpdateOutcome{}, nil
	}
	out := UpdateOutcome{MatchedCount: 1}
	if p.PaymentStatus != models.PaymentStatusPaid || p.TrackingID != trackingID {
		out.ModifiedCount = 1
	}
	p.PaymentStatus = models.PaymentStatusPaid
	p.TrackingID = trackingID
	r.m[oid] = p
	return out, nil
}

type MemoryPaymentLedger struct {
	mu   sync.RWMutex
	byTx map[string]models.Payment
}

func NewMemoryPaymentLedger() *MemoryPaymentLedger {
	return &MemoryPaymentLedger{byTx: make(map[string]models.Payment)}
}

func (r *MemoryPaymentLedger) FindByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byTx[transactionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryPaymentLedger) Insert(_ context.Context, payment *models.Payment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTx[payment.TransactionID]; ok {
		return "", ErrDuplicateKey
	}
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	r.byTx[payment.TransactionID] = *payment
	return payment.ID.Hex(), nil
}

func (r *MemoryPaymentLedger) ListByCustomerEmail(_ context.Context, email string) ([]models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Payment, 0, len(r.byTx))
	for _, p := range r.byTx {
		if email != "" && p.CustomerEmail != email {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

// Len is the number of recorded payments.
func (r *MemoryPaymentLedger) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTx)
}

type MemoryUserStore struct {
	mu      sync.RWMutex
	byEmail map[string]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byEmail: make(map[string]models.User)}
}

func (r *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserStore) Insert(_ context.Context, user *models.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return "", ErrDuplicateKey
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.byEmail[user.Email] = *user
	return user.ID.Hex(), nil
}

type MemoryRiderStore struct {
	mu     sync.RWMutex
	riders []models.Rider
}

func NewMemoryRiderStore() *MemoryRiderStore {
	return &MemoryRiderStore{}
}

func (r *MemoryRiderStore) List(_ context.Context, status string) ([]models.Rider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Rider, 0, len(r.riders))
	for _, rd := range r.riders {
		if status != "" && rd.Status != status {
			continue
		}
		out = append(out, rd)
	}
	return out, nil
}

func (r *MemoryRiderStore) Insert(_ context.Context, rider *models.Rider) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rider.ID.IsZero() {
		rider.ID = primitive.NewObjectID()
	}
	r.riders = append(r.riders, *rider)
	return rider.ID.Hex(), nil
}
