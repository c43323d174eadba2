package core

import "errors"

// Checkout error kinds. Each maps to a distinct user-facing message; the
// handlers translate them to HTTP statuses.
var (
	ErrHelp = errors.New("")

	ErrDBConn = errors.New("db connection failure")

	ErrTenantNotFound     = errors.New("organization not found")
	ErrItemsUnavailable   = errors.New("some items in your cart are no longer available")
	ErrInvalidContact     = errors.New("invalid customer contact details")
	ErrStoreClosed        = errors.New("the store is closed for the next seven days")
	ErrMissingAddress     = errors.New("a delivery address is required for delivery orders")
	ErrMissingIdempotency = errors.New("idempotency key is required")

	// Retryable upstream failures. Safe to resubmit: the idempotency key
	// guarantees at most one authorization regardless of retries.
	ErrRateLimited        = errors.New("too many requests, try again shortly")
	ErrGatewayUnavailable = errors.New("payment service unavailable, try again shortly")

	// ErrAborted marks a client-navigation abort. It is swallowed by the
	// orchestrator and never surfaced or logged as a failure.
	ErrAborted = errors.New("checkout aborted by client navigation")
)
