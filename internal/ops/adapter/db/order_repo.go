package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"curbside/internal/mylogger"
	"curbside/internal/ops/app/core"
	"curbside/pkg/models"
)

type OrderRepo struct {
	pool  *pgxpool.Pool
	mylog mylogger.Logger
}

func NewOrderRepo(pool *pgxpool.Pool, mylog mylogger.Logger) *OrderRepo {
	return &OrderRepo{pool: pool, mylog: mylog}
}

func (r *OrderRepo) OrderByID(ctx context.Context, id int64) (models.Order, error) {
	var (
		order models.Order
		addr  models.Address
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, org_id, order_number, tracking_token, status, fulfillment_type,
		       customer_name, customer_email, customer_phone,
		       subtotal_cents, tax_cents, delivery_fee_cents, service_fee_cents, total_cents, currency,
		       street, city, region, postal, country, lat, lng, instructions,
		       scheduled_at, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.OrgID, &order.Number, &order.TrackingToken, &order.Status, &order.Fulfillment,
		&order.CustomerName, &order.CustomerEmail, &order.CustomerPhone,
		&order.SubtotalCents, &order.TaxCents, &order.DeliveryCents, &order.ServiceCents,
		&order.TotalCents, &order.Currency,
		&addr.Street, &addr.City, &addr.Region, &addr.Postal, &addr.Country,
		&addr.Lat, &addr.Lng, &addr.Instructions,
		&order.ScheduledAt, &order.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, core.ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to query order: %w", err)
	}

	if order.Fulfillment == models.FulfillmentDelivery {
		order.Address = &addr
	}
	return order, nil
}

// TransitionStatus applies the status change with the expected current
// status in the WHERE clause. Zero rows affected means another actor moved
// the order first; nothing is written in that case.
func (r *OrderRepo) TransitionStatus(ctx context.Context, orderID int64, from, to, changedBy, note string) (models.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Order{}, core.ErrDBConn
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	var order models.Order
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $1,
		    ready_at = CASE WHEN $1 = 'ready' THEN $2 ELSE ready_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN $2 ELSE completed_at END
		WHERE id = $3 AND status = $4
		RETURNING id, org_id, order_number, tracking_token, status, fulfillment_type, total_cents, currency
	`, to, now, orderID, from).Scan(
		&order.ID, &order.OrgID, &order.Number, &order.TrackingToken,
		&order.Status, &order.Fulfillment, &order.TotalCents, &order.Currency,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, core.ErrStatusConflict
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to update order status: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, from, to, changedBy, now, note)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return order, nil
}
