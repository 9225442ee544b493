package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type RiderHandler struct {
	service *services.RiderService
}

func NewRiderHandler(service *services.RiderService) *RiderHandler {
	return &RiderHandler{service: service}
}

func (h *RiderHandler) GetRiders(w http.ResponseWriter, r *http.Request) {
	riders, err := h.service.ListRiders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		logger.FromContext(r.Context()).Error("list riders failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "storage_error", "failed to fetch riders")
		return
	}
	writeJSON(w, r, http.StatusOK, riders)
}

func (h *RiderHandler) CreateRider(w http.ResponseWriter, r *http.Request) {
	var rider models.Rider
	if err := decodeJSON(w, r, &rider); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	id, err := h.service.RegisterRider(r.Context(), &rider)
	switch {
	case errors.Is(err, services.ErrInvalidRider):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case err != nil:
		logger.FromContext(r.Context()).Error("register rider failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "storage_error", "failed to register rider")
	default:
		writeJSON(w, r, http.StatusCreated, map[string]string{"insertedId": id})
	}
}
