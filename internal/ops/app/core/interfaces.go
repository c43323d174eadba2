package core

import (
	"context"

	"curbside/pkg/models"
)

type IOrderRepo interface {
	OrderByID(ctx context.Context, id int64) (models.Order, error)

	// TransitionStatus writes to -> status only if the persisted status still
	// equals from (optimistic check in the WHERE clause), appending an audit
	// row in the same transaction. ErrStatusConflict when the check fails.
	TransitionStatus(ctx context.Context, orderID int64, from, to, changedBy, note string) (models.Order, error)
}

type IDeliveryRepo interface {
	JobByOrderID(ctx context.Context, orderID int64) (models.DeliveryJob, bool, error)

	// Reserve inserts the reservation row for orderID. When the row already
	// exists (a concurrent caller won, or a previous attempt left one), the
	// existing row is returned with created=false.
	Reserve(ctx context.Context, job models.DeliveryJob) (models.DeliveryJob, bool, error)

	MarkDispatched(ctx context.Context, orderID int64, externalID, courierStatus, trackingURL string, feeCents int64) (models.DeliveryJob, error)
	MarkFailed(ctx context.Context, orderID int64, note string) error

	// UpdateCourierStatus records an inbound courier callback against the job
	// holding the given external delivery id.
	UpdateCourierStatus(ctx context.Context, externalID, courierStatus string) (models.DeliveryJob, error)
}

type IOrgRepo interface {
	OrganizationByID(ctx context.Context, id int64) (models.Organization, error)
}

// ICourier creates delivery jobs on the external courier network.
type ICourier interface {
	CreateDelivery(ctx context.Context, req CourierRequest) (CourierResponse, error)
}

// CourierRequest is the payload for the courier network's delivery-creation
// endpoint. IdempotencyToken is derived deterministically from the order id
// so the network de-duplicates transient retries on its side too.
type CourierRequest struct {
	IdempotencyToken string         `json:"idempotency_token"`
	Pickup           models.Address `json:"pickup"`
	Dropoff          models.Address `json:"dropoff"`
	ContactName      string         `json:"contact_name"`
	ContactPhone     string         `json:"contact_phone"`
}

type CourierResponse struct {
	DeliveryID  string `json:"delivery_id"`
	Status      string `json:"status"`
	TrackingURL string `json:"tracking_url"`
	FeeCents    int64  `json:"fee_cents"`
}

type INotifier interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}
