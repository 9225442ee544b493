package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
)

var (
	// ErrProviderUnavailable marks failures talking to the payment provider.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	// ErrSessionNotFound is returned when the provider does not know the session.
	ErrSessionNotFound = errors.New("checkout session not found")
)

// CheckoutSession is the provider's view of a checkout attempt.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// Paid reports whether the provider considers the session settled.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}

// CheckoutSessionParams describes a one-item hosted checkout.
type CheckoutSessionParams struct {
	ProductName   string
	UnitAmount    int64
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

type StripeClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
}

func NewStripeClient(secretKey, baseURL string) *StripeClient {
	return &StripeClient{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retries:    3,
		backoff:    time.Second,
	}
}

// CreateCheckoutSession posts a new session. Attempts share one
// Idempotency-Key so a retried request cannot open a second session.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", p.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.UnitAmount, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.ProductName)
	form.Set("customer_email", p.CustomerEmail)
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	for k, v := range p.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	body := form.Encode()
	idempotencyKey := uuid.NewString()

	log := logger.FromContext(ctx).With(
		zap.String("customer_email", logger.MaskEmail(p.CustomerEmail)),
		zap.Int64("unit_amount", p.UnitAmount),
	)

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build checkout request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Idempotency-Key", idempotencyKey)

		session, status, err := c.do(req)
		if err == nil {
			log.Info("checkout session created", zap.String("session_id", session.ID))
			return session, nil
		}
		lastErr = err
		log.Warn("checkout session request failed", zap.Int("attempt", attempt), zap.Int("status", status), zap.Error(err))
		if status >= 400 && status < 500 {
			break
		}
		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
	}
	return nil, lastErr
}

// RetrieveSession fetches the session truth record. It is not retried.
func (c *StripeClient) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	session, status, err := c.do(req)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, err
	}
	return session, nil
}

func (c *StripeClient) do(req *http.Request) (*CheckoutSession, int, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &apiErr)
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, apiErr.Error.Message)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: decode session: %v", ErrProviderUnavailable, err)
	}
	return &session, resp.StatusCode, nil
}
