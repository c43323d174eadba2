package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"curbside/internal/mylogger"
	"curbside/internal/ops/app/core"
	"curbside/pkg/models"
)

type DeliveryRepo struct {
	pool  *pgxpool.Pool
	mylog mylogger.Logger
}

func NewDeliveryRepo(pool *pgxpool.Pool, mylog mylogger.Logger) *DeliveryRepo {
	return &DeliveryRepo{pool: pool, mylog: mylog}
}

const jobColumns = `
	order_id, status, courier_status, external_id, tracking_url, fee_cents,
	pickup_street, pickup_city, pickup_region, pickup_postal, pickup_country, pickup_lat, pickup_lng,
	dropoff_street, dropoff_city, dropoff_region, dropoff_postal, dropoff_country, dropoff_lat, dropoff_lng,
	created_at, updated_at`

func scanJob(row pgx.Row) (models.DeliveryJob, error) {
	var j models.DeliveryJob
	err := row.Scan(
		&j.OrderID, &j.Status, &j.CourierStatus, &j.ExternalID, &j.TrackingURL, &j.FeeCents,
		&j.Pickup.Street, &j.Pickup.City, &j.Pickup.Region, &j.Pickup.Postal, &j.Pickup.Country,
		&j.Pickup.Lat, &j.Pickup.Lng,
		&j.Dropoff.Street, &j.Dropoff.City, &j.Dropoff.Region, &j.Dropoff.Postal, &j.Dropoff.Country,
		&j.Dropoff.Lat, &j.Dropoff.Lng,
		&j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

func (r *DeliveryRepo) JobByOrderID(ctx context.Context, orderID int64) (models.DeliveryJob, bool, error) {
	job, err := scanJob(r.pool.QueryRow(ctx,
		`SELECT`+jobColumns+` FROM delivery_jobs WHERE order_id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DeliveryJob{}, false, nil
	}
	if err != nil {
		return models.DeliveryJob{}, false, fmt.Errorf("failed to query delivery job: %w", err)
	}
	return job, true, nil
}

// Reserve inserts the reservation row. The primary key on order_id is the
// lock: when the insert conflicts, the existing row is fetched and returned
// so the caller never issues a second external call for a dispatched job.
func (r *DeliveryRepo) Reserve(ctx context.Context, job models.DeliveryJob) (models.DeliveryJob, bool, error) {
	inserted, err := scanJob(r.pool.QueryRow(ctx, `
		INSERT INTO delivery_jobs (
			order_id, status,
			pickup_street, pickup_city, pickup_region, pickup_postal, pickup_country, pickup_lat, pickup_lng,
			dropoff_street, dropoff_city, dropoff_region, dropoff_postal, dropoff_country, dropoff_lat, dropoff_lng
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING`+jobColumns,
		job.OrderID, models.JobReserved,
		job.Pickup.Street, job.Pickup.City, job.Pickup.Region, job.Pickup.Postal, job.Pickup.Country,
		job.Pickup.Lat, job.Pickup.Lng,
		job.Dropoff.Street, job.Dropoff.City, job.Dropoff.Region, job.Dropoff.Postal, job.Dropoff.Country,
		job.Dropoff.Lat, job.Dropoff.Lng,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, ok, err := r.JobByOrderID(ctx, job.OrderID)
		if err != nil {
			return models.DeliveryJob{}, false, err
		}
		if !ok {
			// Row vanished between conflict and fetch; treat as a conflict
			// the caller should retry.
			return models.DeliveryJob{}, false, core.ErrStatusConflict
		}
		return existing, false, nil
	}
	if err != nil {
		return models.DeliveryJob{}, false, fmt.Errorf("failed to reserve delivery job: %w", err)
	}
	return inserted, true, nil
}

func (r *DeliveryRepo) MarkDispatched(ctx context.Context, orderID int64, externalID, courierStatus, trackingURL string, feeCents int64) (models.DeliveryJob, error) {
	job, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE delivery_jobs
		SET status = $1, external_id = $2, courier_status = $3, tracking_url = $4, fee_cents = $5, updated_at = NOW()
		WHERE order_id = $6
		RETURNING`+jobColumns,
		models.JobDispatched, externalID, courierStatus, trackingURL, feeCents, orderID,
	))
	if err != nil {
		return models.DeliveryJob{}, fmt.Errorf("failed to mark job dispatched: %w", err)
	}
	return job, nil
}

func (r *DeliveryRepo) MarkFailed(ctx context.Context, orderID int64, note string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE delivery_jobs
		SET status = $1, failure_note = $2, updated_at = NOW()
		WHERE order_id = $3 AND status = $4
	`, models.JobFailed, note, orderID, models.JobReserved)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) UpdateCourierStatus(ctx context.Context, externalID, courierStatus string) (models.DeliveryJob, error) {
	job, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE delivery_jobs
		SET courier_status = $1, updated_at = NOW()
		WHERE external_id = $2
		RETURNING`+jobColumns,
		courierStatus, externalID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DeliveryJob{}, core.ErrOrderNotFound
	}
	if err != nil {
		return models.DeliveryJob{}, fmt.Errorf("failed to update courier status: %w", err)
	}
	return job, nil
}
