package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"curbside/internal/checkout/app/core"
	"curbside/internal/checkout/domain/dto"
	"curbside/internal/mylogger"
	"curbside/internal/pricing"
	"curbside/pkg/models"
)

// IntentService turns a validated cart into a draft order plus a payment
// authorization, exactly once per idempotency key.
type IntentService struct {
	orderRepo core.IOrderRepo
	catalog   core.ICatalog
	gateway   core.IGateway
	notifier  core.INotifier
	validate  *validator.Validate
	mylog     mylogger.Logger
}

func NewIntentService(
	orderRepo core.IOrderRepo,
	catalog core.ICatalog,
	gateway core.IGateway,
	notifier core.INotifier,
	mylog mylogger.Logger,
) *IntentService {
	return &IntentService{
		orderRepo: orderRepo,
		catalog:   catalog,
		gateway:   gateway,
		notifier:  notifier,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		mylog:     mylog,
	}
}

// CreateIntent validates the request, recomputes totals from the current
// catalog (client totals are advisory only), snapshots the cart into a draft
// order and creates the gateway authorization. Calling it again with the
// same idempotency key returns the same client secret and order instead of
// creating duplicates.
func (s *IntentService) CreateIntent(ctx context.Context, req dto.IntentRequest) (dto.IntentResponse, error) {
	mylog := s.mylog.Action("create_intent").With("idempotency_key", req.IdempotencyKey)

	if err := s.ValidateIntent(req); err != nil {
		return dto.IntentResponse{}, err
	}

	org, err := s.catalog.OrganizationBySlug(ctx, req.OrgSlug)
	if err != nil {
		mylog.Error("Failed to resolve organization", err, "org_slug", req.OrgSlug)
		return dto.IntentResponse{}, err
	}

	items, err := s.snapshotItems(ctx, org.ID, req.Items)
	if err != nil {
		return dto.IntentResponse{}, err
	}

	totals := pricing.Quote(items, req.Fulfillment, org.TaxRateMilli, pricing.Fees{
		DeliveryCents: org.DeliveryCents,
		ServiceCents:  org.ServiceCents,
	})

	order, created, err := s.orderRepo.CreateDraft(ctx, dto.DraftOrder{
		OrgID:          org.ID,
		IdempotencyKey: req.IdempotencyKey,
		Fulfillment:    req.Fulfillment,
		Customer:       req.Customer,
		Items:          items,
		Totals:         totals,
		Currency:       org.Currency,
		ScheduledAt:    req.ScheduledAt,
		Address:        req.Address,
	})
	if err != nil {
		mylog.Error("Failed to create draft order", err)
		return dto.IntentResponse{}, err
	}
	if !created {
		mylog.Debug("Draft order already exists for key, reusing", "order_number", order.Number)
	}

	// A previous attempt with this key may already hold an authorization;
	// return it rather than asking the gateway for a second one.
	if auth, ok, err := s.orderRepo.AuthorizationByKey(ctx, req.IdempotencyKey); err != nil {
		return dto.IntentResponse{}, err
	} else if ok {
		return dto.IntentResponse{
			ClientSecret: auth.ClientSecret,
			OrderID:      order.ID,
			OrderNumber:  order.Number,
			Totals:       totals,
		}, nil
	}

	// The gateway receives the same key, so it de-duplicates on its side too
	// if this call is retried after a network failure.
	auth, err := s.gateway.CreateAuthorization(ctx, totals.TotalCents, org.Currency, req.IdempotencyKey)
	if err != nil {
		mylog.Error("Failed to create payment authorization", err, "order_number", order.Number)
		return dto.IntentResponse{}, err
	}
	auth.OrderID = order.ID
	auth.IdempotencyKey = req.IdempotencyKey

	if err := s.orderRepo.AttachAuthorization(ctx, order.ID, auth); err != nil {
		mylog.Error("Failed to attach authorization", err, "order_number", order.Number)
		return dto.IntentResponse{}, err
	}

	s.publishEvent(ctx, order, models.StatusDraft, models.StatusAwaitingPayment)

	mylog.Info("Payment intent created", "order_number", order.Number, "total_cents", totals.TotalCents)
	return dto.IntentResponse{
		ClientSecret: auth.ClientSecret,
		OrderID:      order.ID,
		OrderNumber:  order.Number,
		Totals:       totals,
	}, nil
}

// ConfirmPayment consumes the gateway's confirmation signal. A succeeded
// authorization moves the order awaiting_payment -> paid; a failed one
// leaves the order retryable under the same idempotency key.
func (s *IntentService) ConfirmPayment(ctx context.Context, req dto.ConfirmationRequest) (models.Order, error) {
	mylog := s.mylog.Action("confirm_payment").With("authorization_id", req.AuthorizationID)

	if err := s.validate.Struct(req); err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", core.ErrInvalidContact, err)
	}

	if req.Status != "succeeded" {
		mylog.Warn("Payment authorization failed upstream; order left awaiting payment")
		return models.Order{}, nil
	}

	order, err := s.orderRepo.MarkPaid(ctx, req.AuthorizationID)
	if err != nil {
		mylog.Error("Failed to mark order paid", err)
		return models.Order{}, err
	}

	s.publishEvent(ctx, order, models.StatusAwaitingPayment, models.StatusPaid)

	mylog.Info("Order paid", "order_number", order.Number)
	return order, nil
}

// Quote prices a cart against the current catalog without writing anything.
// The storefront shows this; the charge amount is still recomputed at
// intent-creation time.
func (s *IntentService) Quote(ctx context.Context, req dto.QuoteRequest) (models.Totals, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Totals{}, fmt.Errorf("%w: %v", core.ErrInvalidContact, err)
	}

	org, err := s.catalog.OrganizationBySlug(ctx, req.OrgSlug)
	if err != nil {
		return models.Totals{}, err
	}

	items, err := s.snapshotItems(ctx, org.ID, req.Items)
	if err != nil {
		return models.Totals{}, err
	}

	return pricing.Quote(items, req.Fulfillment, org.TaxRateMilli, pricing.Fees{
		DeliveryCents: org.DeliveryCents,
		ServiceCents:  org.ServiceCents,
	}), nil
}

// ValidateIntent checks the request shape before any write happens.
func (s *IntentService) ValidateIntent(req dto.IntentRequest) error {
	if req.IdempotencyKey == "" {
		return core.ErrMissingIdempotency
	}
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidContact, err)
	}
	if req.Fulfillment == models.FulfillmentDelivery && req.Address == nil {
		return core.ErrMissingAddress
	}
	return nil
}

// snapshotItems resolves the cart against the current catalog, freezing
// names and prices. Any missing or unavailable product rejects the cart.
func (s *IntentService) snapshotItems(ctx context.Context, orgID int64, lines []dto.CartLine) ([]models.Item, error) {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	products, err := s.catalog.ProductsByID(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(lines))
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok || !p.Available {
			return nil, fmt.Errorf("%w: product %d", core.ErrItemsUnavailable, line.ProductID)
		}
		items = append(items, models.Item{
			ProductID:      p.ID,
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			Quantity:       line.Quantity,
		})
	}
	return items, nil
}

func (s *IntentService) publishEvent(ctx context.Context, order models.Order, from, to string) {
	event := models.OrderEvent{
		OrderNumber:   order.Number,
		TrackingToken: order.TrackingToken,
		OrgID:         order.OrgID,
		OldStatus:     from,
		NewStatus:     to,
		ChangedBy:     models.RoleSystem,
		Timestamp:     time.Now().UTC(),
	}
	// The feed is best-effort; a broker outage must not fail checkout.
	if err := s.notifier.PublishOrderEvent(ctx, event); err != nil {
		s.mylog.Action("order_event_publish_failed").Error("Failed to publish order event", err,
			"order_number", order.Number)
	}
}
