package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/repository"
)

var ErrInvalidParcel = errors.New("invalid parcel")

type ParcelStore interface {
	List(ctx context.Context, senderEmail string) ([]models.Parcel, error)
	Get(ctx context.Context, id string) (*models.Parcel, error)
	Create(ctx context.Context, parcel *models.Parcel) (string, error)
	Delete(ctx context.Context, id string) (int64, error)
	MarkPaid(ctx context.Context, id, trackingID string) (repository.UpdateOutcome, error)
}

type ParcelService struct {
	store ParcelStore
}

func NewParcelService(store ParcelStore) *ParcelService {
	return &ParcelService{store: store}
}

// CreateParcel books an unpaid parcel. Payment fields supplied by the client
// are discarded: only payment confirmation may set them.
func (s *ParcelService) CreateParcel(ctx context.Context, parcel *models.Parcel) (string, error) {
	parcel.ParcelName = strings.TrimSpace(parcel.ParcelName)
	parcel.SenderEmail = strings.TrimSpace(parcel.SenderEmail)
	if parcel.ParcelName == "" {
		return "", fmt.Errorf("%w: parcelName is required", ErrInvalidParcel)
	}
	if parcel.SenderEmail == "" {
		return "", fmt.Errorf("%w: SenderEmail is required", ErrInvalidParcel)
	}
	if parcel.Cost < 0 {
		return "", fmt.Errorf("%w: cost must not be negative", ErrInvalidParcel)
	}

	parcel.ID = primitive.NilObjectID
	parcel.PaymentStatus = models.PaymentStatusUnpaid
	parcel.TrackingID = ""
	parcel.CreatedAt = time.Now().UTC()

	id, err := s.store.Create(ctx, parcel)
	if err != nil {
		return "", fmt.Errorf("%w: create parcel: %v", ErrStorage, err)
	}
	return id, nil
}

func (s *ParcelService) ListParcels(ctx context.Context, senderEmail string) ([]models.Parcel, error) {
	parcels, err := s.store.List(ctx, strings.TrimSpace(senderEmail))
	if err != nil {
		return nil, fmt.Errorf("%w: list parcels: %v", ErrStorage, err)
	}
	return parcels, nil
}

// GetParcel returns repository.ErrInvalidID or repository.ErrNotFound unwrapped.
func (s *ParcelService) GetParcel(ctx context.Context, id string) (*models.Parcel, error) {
	parcel, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidID) || errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get parcel: %v", ErrStorage, err)
	}
	return parcel, nil
}

func (s *ParcelService) DeleteParcel(ctx context.Context, id string) (int64, error) {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidID) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: delete parcel: %v", ErrStorage, err)
	}
	return n, nil
}
