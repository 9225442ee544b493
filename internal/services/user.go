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

var ErrInvalidUser = errors.New("invalid user")

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) (string, error)
}

type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

// CreateUser inserts the user unless the email is already registered, in
// which case it returns the existing id and created=false.
func (s *UserService) CreateUser(ctx context.Context, user *models.User) (id string, created bool, err error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return "", false, fmt.Errorf("%w: email is required", ErrInvalidUser)
	}

	existing, err := s.store.FindByEmail(ctx, user.Email)
	if err == nil {
		return existing.ID.Hex(), false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", false, fmt.Errorf("%w: find user: %v", ErrStorage, err)
	}

	user.ID = primitive.NilObjectID
	user.Role = models.RoleUser
	user.CreatedAt = time.Now().UTC()

	id, err = s.store.Insert(ctx, user)
	if errors.Is(err, repository.ErrDuplicateKey) {
		// registered concurrently
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: insert user: %v", ErrStorage, err)
	}
	return id, true, nil
}
