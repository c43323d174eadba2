package core

import "errors"

var (
	ErrHelp = errors.New("")

	ErrDBConn = errors.New("db connection failure")

	ErrOrderNotFound = errors.New("order not found")

	// ErrStatusConflict means the order's persisted status changed between
	// read and write: another actor won the race. The transition is rejected
	// with no partial state change.
	ErrStatusConflict = errors.New("order status changed concurrently, reload and retry")

	// ErrCourierUnavailable is retryable: the order stays ready with no
	// delivery job, and the owner can retry dispatch manually.
	ErrCourierUnavailable = errors.New("courier network unavailable, try again shortly")

	ErrCourierRateLimited = errors.New("courier network rate limit exceeded, try again shortly")
)
