package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

var ErrInvalidRider = errors.New("invalid rider")

type RiderStore interface {
	List(ctx context.Context, status string) ([]models.Rider, error)
	Insert(ctx context.Context, rider *models.Rider) (string, error)
}

type RiderService struct {
	store RiderStore
}

func NewRiderService(store RiderStore) *RiderService {
	return &RiderService{store: store}
}

func (s *RiderService) ListRiders(ctx context.Context, status string) ([]models.Rider, error) {
	riders, err := s.store.List(ctx, strings.TrimSpace(status))
	if err != nil {
		return nil, fmt.Errorf("%w: list riders: %v", ErrStorage, err)
	}
	return riders, nil
}

// RegisterRider stores an application in pending state.
func (s *RiderService) RegisterRider(ctx context.Context, rider *models.Rider) (string, error) {
	rider.Email = strings.TrimSpace(rider.Email)
	if rider.Email == "" || strings.TrimSpace(rider.Name) == "" {
		return "", fmt.Errorf("%w: name and email are required", ErrInvalidRider)
	}

	rider.ID = primitive.NilObjectID
	rider.Status = models.RiderStatusPending
	rider.CreatedAt = time.Now().UTC()

	id, err := s.store.Insert(ctx, rider)
	if err != nil {
		return "", fmt.Errorf("%w: insert rider: %v", ErrStorage, err)
	}
	return id, nil
}
