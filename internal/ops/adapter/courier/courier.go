package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"curbside/internal/config"
	"curbside/internal/mylogger"
	"curbside/internal/ops/app/core"
)

// Client talks to the external courier network. Calls are bounded by the
// configured timeout; a timeout fails the dispatch explicitly rather than
// leaving the job half-created.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	mylog   mylogger.Logger
}

func NewClient(cfg *config.Courier, mylog mylogger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		mylog:   mylog,
	}
}

func (c *Client) CreateDelivery(ctx context.Context, req core.CourierRequest) (core.CourierResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return core.CourierResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/deliveries", bytes.NewReader(body))
	if err != nil {
		return core.CourierResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-Idempotency-Token", req.IdempotencyToken)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.mylog.Action("courier_call_failed").Error("Courier network unreachable", err)
		return core.CourierResponse{}, core.ErrCourierUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return core.CourierResponse{}, core.ErrCourierRateLimited
	case resp.StatusCode >= 500:
		return core.CourierResponse{}, core.ErrCourierUnavailable
	case resp.StatusCode >= 400:
		return core.CourierResponse{}, fmt.Errorf("courier rejected delivery: status %d", resp.StatusCode)
	}

	var out core.CourierResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.CourierResponse{}, fmt.Errorf("failed to decode courier response: %w", err)
	}
	return out, nil
}
