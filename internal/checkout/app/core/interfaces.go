package core

import (
	"context"

	"curbside/internal/checkout/domain/dto"
	"curbside/pkg/models"
)

// IOrderRepo persists draft orders and their payment authorizations. The
// insert-or-fetch semantics on the idempotency key are the concurrency
// mechanism: two racing calls with the same key both end with the same row.
type IOrderRepo interface {
	// CreateDraft inserts a draft order keyed by its idempotency key. When a
	// row with that key already exists the existing order is returned and
	// created is false; no second order is written.
	CreateDraft(ctx context.Context, draft dto.DraftOrder) (order models.Order, created bool, err error)

	// AuthorizationByKey returns the authorization created under the given
	// idempotency key, if any.
	AuthorizationByKey(ctx context.Context, key string) (models.PaymentAuthorization, bool, error)

	// AttachAuthorization stores the gateway authorization and moves the
	// order draft -> awaiting_payment.
	AttachAuthorization(ctx context.Context, orderID int64, auth models.PaymentAuthorization) error

	// MarkPaid moves awaiting_payment -> paid for the order holding the given
	// payment reference. The status check happens at write time.
	MarkPaid(ctx context.Context, paymentRef string) (models.Order, error)
}

// ICatalog reads tenant configuration and current product state. Menu CRUD
// belongs to another subsystem; this is the read-only collaborator surface.
type ICatalog interface {
	OrganizationBySlug(ctx context.Context, slug string) (models.Organization, error)
	ProductsByID(ctx context.Context, orgID int64, ids []int64) (map[int64]models.Product, error)
}

// IGateway creates payment authorizations upstream.
type IGateway interface {
	CreateAuthorization(ctx context.Context, amountCents int64, currency, idempotencyKey string) (models.PaymentAuthorization, error)
}

// INotifier broadcasts order events to the realtime feed.
type INotifier interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}
