package core

type CheckoutParams struct {
	Port int
}

const (
	// in seconds, bound for request-scoped work
	WaitTime = 20
)
