package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// CreateUser registers a user on first sign-in. Repeat calls are harmless.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := decodeJSON(w, r, &user); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	id, created, err := h.service.CreateUser(r.Context(), &user)
	switch {
	case errors.Is(err, services.ErrInvalidUser):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case err != nil:
		logger.FromContext(r.Context()).Error("create user failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "storage_error", "failed to create user")
	case !created:
		writeMessage(w, r, http.StatusOK, "user exists")
	default:
		writeJSON(w, r, http.StatusCreated, map[string]string{"insertedId": id})
	}
}
