package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/repository"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type ParcelHandler struct {
	service *services.ParcelService
}

func NewParcelHandler(service *services.ParcelService) *ParcelHandler {
	return &ParcelHandler{service: service}
}

func (h *ParcelHandler) GetParcels(w http.ResponseWriter, r *http.Request) {
	parcels, err := h.service.ListParcels(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		logger.FromContext(r.Context()).Error("list parcels failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "storage_error", "failed to fetch parcels")
		return
	}
	writeJSON(w, r, http.StatusOK, parcels)
}

func (h *ParcelHandler) GetParcel(w http.ResponseWriter, r *http.Request) {
	parcel, err := h.service.GetParcel(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		writeError(w, r, http.StatusBadRequest, "invalid_id", "malformed parcel id")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "parcel_not_found", "parcel not found")
	case err != nil:
		logger.FromContext(r.Context()).Error("get parcel failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "storage_error", "failed to fetch parcel")
	default:
		writeJSON(w, r, http.StatusOK, parcel)
	}
}

func (h *ParcelHandler) CreateParcel(w http.ResponseWriter, r *http.Request) {
	var parcel models.Parcel
	if err := decodeJSON(w, r, &parcel); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	id, err := h.service.CreateParcel(r.Context(), &parcel)
	switch {
	case errors.Is(err, services.ErrInvalidParcel):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case err != nil:
		logger.FromContext(r.Context()).Error("create parcel failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "storage_error", "failed to create parcel")
	default:
		writeJSON(w, r, http.StatusCreated, map[string]string{"insertedId": id})
	}
}

func (h *ParcelHandler) DeleteParcel(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.DeleteParcel(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		writeError(w, r, http.StatusBadRequest, "invalid_id", "malformed parcel id")
	case err != nil:
		logger.FromContext(r.Context()).Error("delete parcel failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "storage_error", "failed to delete parcel")
	default:
		writeJSON(w, r, http.StatusOK, map[string]int64{"deletedCount": n})
	}
}
