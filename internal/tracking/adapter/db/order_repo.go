package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"curbside/internal/tracking/domain/dto"
	"curbside/pkg/models"
)

var ErrNotFound = errors.New("order not found")

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// SummaryByToken resolves the public tracking view. The token is the
// capability: there is no other authentication on this path, so nothing
// beyond the summary fields is ever selected here.
func (r *OrderRepo) SummaryByToken(ctx context.Context, token string) (dto.OrderSummary, error) {
	var (
		summary dto.OrderSummary
		orderID int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.order_number, o.status, o.fulfillment_type, o.scheduled_at, o.total_cents, o.currency,
		       COALESCE(dj.tracking_url, ''), COALESCE(dj.courier_status, '')
		FROM orders o
		LEFT JOIN delivery_jobs dj ON dj.order_id = o.id
		WHERE o.tracking_token = $1
	`, token).Scan(
		&orderID, &summary.OrderNumber, &summary.Status, &summary.Fulfillment,
		&summary.ScheduledAt, &summary.TotalCents, &summary.Currency,
		&summary.CourierTrackingURL, &summary.CourierStatus,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return dto.OrderSummary{}, ErrNotFound
	}
	if err != nil {
		return dto.OrderSummary{}, fmt.Errorf("failed to query order summary: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT from_status, to_status, changed_by, changed_at, COALESCE(note, '')
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at
	`, orderID)
	if err != nil {
		return dto.OrderSummary{}, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.StatusLog
		if err := rows.Scan(&entry.From, &entry.To, &entry.ChangedBy, &entry.ChangedAt, &entry.Note); err != nil {
			return dto.OrderSummary{}, fmt.Errorf("failed to scan status history: %w", err)
		}
		summary.History = append(summary.History, entry)
	}
	return summary, rows.Err()
}
