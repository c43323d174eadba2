package core

type OpsParams struct {
	Port int
}

const (
	// in seconds, bound for request-scoped work
	WaitTime = 20
)

// Courier status vocabulary we map onto the order lifecycle. Anything else
// is stored verbatim on the job and otherwise ignored.
const (
	CourierStatusPickup    = "pickup_complete"
	CourierStatusEnroute   = "dropoff_enroute"
	CourierStatusDelivered = "delivered"
)
