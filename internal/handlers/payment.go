package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type PaymentHandler struct {
	service *services.PaymentService
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type reconciliationBody struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId"`
	TrackingID    string `json:"trackingId"`
	ParcelID      string `json:"parcelId"`
}

// ConfirmPayment handles the checkout success redirect. It is safe to call any
// number of times for the same session.
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Confirm(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		h.writeConfirmError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// Reconcile re-applies a recorded payment to its parcel.
func (h *PaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeMessage(w, r, http.StatusUnauthorized, "unauthorized access")
		return
	}
	transactionID := mux.Vars(r)["transactionId"]

	result, err := h.service.Reconcile(r.Context(), transactionID, email)
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, result)
	case errors.Is(err, services.ErrPaymentNotFound):
		writeError(w, r, http.StatusNotFound, "payment_not_found", "no payment recorded for this transaction")
	case errors.Is(err, services.ErrForbidden):
		writeMessage(w, r, http.StatusForbidden, "forbidden access")
	default:
		h.writeConfirmError(w, r, err)
	}
}

// GetPayments lists the caller's payments. An email query that is not the
// caller's own is refused.
func (h *PaymentHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeMessage(w, r, http.StatusUnauthorized, "unauthorized access")
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		email = caller
	}
	if email != caller {
		writeMessage(w, r, http.StatusForbidden, "forbidden access")
		return
	}

	payments, err := h.service.ListForCustomer(r.Context(), email)
	if err != nil {
		logger.FromContext(r.Context()).Error("list payments failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "storage_error", "failed to fetch payments")
		return
	}
	writeJSON(w, r, http.StatusOK, payments)
}

func (h *PaymentHandler) writeConfirmError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		consistency *services.ConsistencyError
		partial     *services.PartialFailureError
	)
	switch {
	case errors.As(err, &consistency):
		writeJSON(w, r, http.StatusInternalServerError, reconciliationBody{
			Error:         "data_inconsistency",
			Message:       "payment recorded but parcel could not be updated",
			TransactionID: consistency.TransactionID,
			TrackingID:    consistency.TrackingID,
			ParcelID:      consistency.ParcelID,
		})
	case errors.As(err, &partial):
		writeJSON(w, r, http.StatusInternalServerError, reconciliationBody{
			Error:         "partial_failure",
			Message:       "payment recorded, retry or reconcile by transaction id",
			TransactionID: partial.TransactionID,
			TrackingID:    partial.TrackingID,
			ParcelID:      partial.ParcelID,
		})
	case errors.Is(err, services.ErrSessionRefRequired):
		writeError(w, r, http.StatusBadRequest, "invalid_request", "session_id is required")
	case errors.Is(err, services.ErrInvalidSession):
		writeError(w, r, http.StatusBadGateway, "invalid_session", "payment provider returned an incomplete session")
	case errors.Is(err, services.ErrProviderUnavailable):
		writeError(w, r, http.StatusBadGateway, "provider_error", "payment provider unavailable")
	case errors.Is(err, services.ErrStorage):
		writeError(w, r, http.StatusInternalServerError, "storage_error", "storage unavailable")
	default:
		logger.FromContext(r.Context()).Error("unexpected confirmation error", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
