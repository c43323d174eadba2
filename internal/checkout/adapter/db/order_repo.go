package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"curbside/internal/checkout/app/core"
	"curbside/internal/checkout/domain/dto"
	"curbside/internal/mylogger"
	"curbside/pkg/models"
)

type OrderRepo struct {
	pool  *pgxpool.Pool
	mylog mylogger.Logger
}

func NewOrderRepo(pool *pgxpool.Pool, mylog mylogger.Logger) *OrderRepo {
	return &OrderRepo{pool: pool, mylog: mylog}
}

// CreateDraft inserts the draft order under its idempotency key. The unique
// constraint on idempotency_key closes the race window: of two concurrent
// calls with the same key, one inserts and one falls through to the fetch.
func (r *OrderRepo) CreateDraft(ctx context.Context, draft dto.DraftOrder) (models.Order, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Order{}, false, core.ErrDBConn
	}
	defer tx.Rollback(ctx)

	currentDate := time.Now().UTC().Format("20060102")

	// Lock the organization row so concurrent drafts for the same store
	// mint distinct numbers; the UNIQUE (org_id, order_number) constraint
	// backs this up at the schema level.
	var lockedOrg int
	err = tx.QueryRow(ctx,
		`SELECT id FROM organizations WHERE id = $1 FOR UPDATE`,
		draft.OrgID,
	).Scan(&lockedOrg)
	if err != nil {
		return models.Order{}, false, fmt.Errorf("failed to lock organization %d: %w", draft.OrgID, err)
	}

	var orderCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE org_id = $1 AND created_at::DATE = CURRENT_DATE`,
		draft.OrgID,
	).Scan(&orderCount)
	if err != nil {
		return models.Order{}, false, fmt.Errorf("failed to count today's orders: %w", err)
	}
	orderNumber := fmt.Sprintf("ORD_%s_%03d", currentDate, orderCount+1)

	order := models.Order{
		OrgID:          draft.OrgID,
		Number:         orderNumber,
		TrackingToken:  uuid.NewString(),
		IdempotencyKey: draft.IdempotencyKey,
		Status:         models.StatusDraft,
		Fulfillment:    draft.Fulfillment,
		CustomerName:   draft.Customer.Name,
		CustomerEmail:  draft.Customer.Email,
		CustomerPhone:  draft.Customer.Phone,
		SubtotalCents:  draft.Totals.SubtotalCents,
		TaxCents:       draft.Totals.TaxCents,
		DeliveryCents:  draft.Totals.DeliveryCents,
		ServiceCents:   draft.Totals.ServiceCents,
		TotalCents:     draft.Totals.TotalCents,
		Currency:       draft.Currency,
		Address:        draft.Address,
		ScheduledAt:    draft.ScheduledAt,
		Items:          draft.Items,
	}

	addr := draft.Address
	if addr == nil {
		addr = &models.Address{}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			org_id, order_number, tracking_token, idempotency_key,
			status, fulfillment_type,
			customer_name, customer_email, customer_phone,
			subtotal_cents, tax_cents, delivery_fee_cents, service_fee_cents, total_cents, currency,
			street, city, region, postal, country, lat, lng, instructions,
			scheduled_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, created_at
	`,
		order.OrgID, order.Number, order.TrackingToken, order.IdempotencyKey,
		order.Status, order.Fulfillment,
		order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.SubtotalCents, order.TaxCents, order.DeliveryCents, order.ServiceCents, order.TotalCents, order.Currency,
		addr.Street, addr.City, addr.Region, addr.Postal, addr.Country, addr.Lat, addr.Lng, addr.Instructions,
		order.ScheduledAt,
	).Scan(&order.ID, &order.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race or this is a retry: hand back the existing order.
		existing, err := r.orderByKey(ctx, draft.IdempotencyKey)
		if err != nil {
			return models.Order{}, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return models.Order{}, false, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range draft.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, name_snapshot, unit_price_cents, quantity)
			VALUES ($1, $2, $3, $4, $5)
		`, order.ID, item.ProductID, item.Name, item.UnitPriceCents, item.Quantity)
		if err != nil {
			return models.Order{}, false, fmt.Errorf("failed to insert item: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at, note)
		VALUES ($1, '', $2, $3, $4, $5)
	`, order.ID, models.StatusDraft, models.RoleSystem, time.Now().UTC(), "checkout started")
	if err != nil {
		return models.Order{}, false, fmt.Errorf("failed to insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return order, true, nil
}

func (r *OrderRepo) AuthorizationByKey(ctx context.Context, key string) (models.PaymentAuthorization, bool, error) {
	var auth models.PaymentAuthorization
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, idempotency_key, external_id, client_secret, amount_cents, currency, status, created_at
		FROM payment_authorizations
		WHERE idempotency_key = $1
	`, key).Scan(
		&auth.ID, &auth.OrderID, &auth.IdempotencyKey, &auth.ExternalID,
		&auth.ClientSecret, &auth.AmountCents, &auth.Currency, &auth.Status, &auth.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PaymentAuthorization{}, false, nil
	}
	if err != nil {
		return models.PaymentAuthorization{}, false, fmt.Errorf("failed to query authorization: %w", err)
	}
	return auth, true, nil
}

// AttachAuthorization stores the authorization and advances the order to
// awaiting_payment. The unique key constraint keeps a concurrent duplicate
// from storing a second authorization.
func (r *OrderRepo) AttachAuthorization(ctx context.Context, orderID int64, auth models.PaymentAuthorization) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return core.ErrDBConn
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO payment_authorizations (order_id, idempotency_key, external_id, client_secret, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, orderID, auth.IdempotencyKey, auth.ExternalID, auth.ClientSecret, auth.AmountCents, auth.Currency, auth.Status)
	if err != nil {
		return fmt.Errorf("failed to insert authorization: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $1, payment_ref = $2
		WHERE id = $3 AND status = $4
	`, models.StatusAwaitingPayment, auth.ExternalID, orderID, models.StatusDraft)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 1 {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at, note)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, orderID, models.StatusDraft, models.StatusAwaitingPayment, models.RoleSystem, time.Now().UTC(), "authorization attached")
		if err != nil {
			return fmt.Errorf("failed to insert status log: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MarkPaid advances awaiting_payment -> paid. The status appears in the
// WHERE clause so a stale or duplicate confirmation cannot double-apply.
func (r *OrderRepo) MarkPaid(ctx context.Context, paymentRef string) (models.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Order{}, core.ErrDBConn
	}
	defer tx.Rollback(ctx)

	var order models.Order
	err = tx.QueryRow(ctx, `
		UPDATE orders SET status = $1
		WHERE payment_ref = $2 AND status = $3
		RETURNING id, org_id, order_number, tracking_token, status, fulfillment_type, total_cents, currency
	`, models.StatusPaid, paymentRef, models.StatusAwaitingPayment).Scan(
		&order.ID, &order.OrgID, &order.Number, &order.TrackingToken,
		&order.Status, &order.Fulfillment, &order.TotalCents, &order.Currency,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, fmt.Errorf("no awaiting_payment order for ref %s", paymentRef)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to mark order paid: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE payment_authorizations SET status = 'succeeded' WHERE external_id = $1
	`, paymentRef)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to update authorization: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.ID, models.StatusAwaitingPayment, models.StatusPaid, models.RoleSystem, time.Now().UTC(), "gateway confirmation")
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return order, nil
}

func (r *OrderRepo) orderByKey(ctx context.Context, key string) (models.Order, error) {
	var order models.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, org_id, order_number, tracking_token, idempotency_key, status, fulfillment_type,
		       subtotal_cents, tax_cents, delivery_fee_cents, service_fee_cents, total_cents, currency, created_at
		FROM orders
		WHERE idempotency_key = $1
	`, key).Scan(
		&order.ID, &order.OrgID, &order.Number, &order.TrackingToken, &order.IdempotencyKey,
		&order.Status, &order.Fulfillment,
		&order.SubtotalCents, &order.TaxCents, &order.DeliveryCents, &order.ServiceCents,
		&order.TotalCents, &order.Currency, &order.CreatedAt,
	)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to fetch order by key: %w", err)
	}
	return order, nil
}
