package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"curbside/internal/checkout/app/core"
	"curbside/internal/config"
	"curbside/internal/mylogger"
	"curbside/pkg/models"
)

// Client talks to the external payment gateway. Every call is bounded by the
// configured timeout and carries the checkout idempotency key, so the
// gateway de-duplicates retried requests on its side as well.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	mylog   mylogger.Logger
}

func NewClient(cfg *config.Gateway, mylog mylogger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		mylog:   mylog,
	}
}

type authorizationRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type authorizationResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

func (c *Client) CreateAuthorization(ctx context.Context, amountCents int64, currency, idempotencyKey string) (models.PaymentAuthorization, error) {
	body, err := json.Marshal(authorizationRequest{AmountCents: amountCents, Currency: currency})
	if err != nil {
		return models.PaymentAuthorization{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/authorizations", bytes.NewReader(body))
	if err != nil {
		return models.PaymentAuthorization{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.mylog.Action("gateway_call_failed").Error("Payment gateway unreachable", err)
		return models.PaymentAuthorization{}, core.ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.PaymentAuthorization{}, core.ErrRateLimited
	case resp.StatusCode >= 500:
		return models.PaymentAuthorization{}, core.ErrGatewayUnavailable
	case resp.StatusCode >= 400:
		return models.PaymentAuthorization{}, fmt.Errorf("gateway rejected authorization: status %d", resp.StatusCode)
	}

	var out authorizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.PaymentAuthorization{}, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return models.PaymentAuthorization{
		ExternalID:   out.ID,
		ClientSecret: out.ClientSecret,
		AmountCents:  amountCents,
		Currency:     currency,
		Status:       out.Status,
	}, nil
}
