package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

type CheckoutHandler struct {
	service *services.CheckoutService
}

func NewCheckoutHandler(service *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req services.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	url, err := h.service.CreateSession(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrInvalidCheckout):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case err != nil:
		logger.FromContext(r.Context()).Error("create checkout session failed", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "provider_error", "payment provider unavailable")
	default:
		writeJSON(w, r, http.StatusOK, map[string]string{"url": url})
	}
}
