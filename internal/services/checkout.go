package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidCheckout = errors.New("invalid checkout request")

type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error)
}

type CheckoutRequest struct {
	Cost        float64 `json:"cost"`
	ParcelID    string  `json:"parcelId"`
	ParcelName  string  `json:"parcelName"`
	SenderEmail string  `json:"SenderEmail"`
}

type CheckoutService struct {
	provider   CheckoutProvider
	siteDomain string
}

func NewCheckoutService(provider CheckoutProvider, siteDomain string) *CheckoutService {
	return &CheckoutService{provider: provider, siteDomain: strings.TrimRight(siteDomain, "/")}
}

// CreateSession opens a hosted checkout for a parcel and returns its URL.
func (s *CheckoutService) CreateSession(ctx context.Context, req CheckoutRequest) (string, error) {
	if req.Cost <= 0 {
		return "", fmt.Errorf("%w: cost must be positive", ErrInvalidCheckout)
	}
	if strings.TrimSpace(req.ParcelID) == "" || strings.TrimSpace(req.SenderEmail) == "" {
		return "", fmt.Errorf("%w: parcelId and SenderEmail are required", ErrInvalidCheckout)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutSessionParams{
		ProductName:   "please pay for: " + req.ParcelName,
		UnitAmount:    int64(math.Round(req.Cost * 100)),
		Currency:      "usd",
		CustomerEmail: strings.TrimSpace(req.SenderEmail),
		Metadata: map[string]string{
			"parcelId":   strings.TrimSpace(req.ParcelID),
			"parcelName": req.ParcelName,
		},
		SuccessURL: s.siteDomain + "/dashboard/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.siteDomain + "/dashboard/payment-cancelled",
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.URL, nil
}
