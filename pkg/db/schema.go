package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the engine's tables when they do not exist yet.
// Every statement is idempotent, so each service runs it on startup and
// ordering between services does not matter.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id BIGSERIAL PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			tax_rate_milli BIGINT NOT NULL DEFAULT 0,
			delivery_fee_cents BIGINT NOT NULL DEFAULT 0,
			service_fee_cents BIGINT NOT NULL DEFAULT 0,
			prep_buffer_min INT NOT NULL DEFAULT 30,
			pickup_street TEXT NOT NULL DEFAULT '',
			pickup_city TEXT NOT NULL DEFAULT '',
			pickup_region TEXT NOT NULL DEFAULT '',
			pickup_postal TEXT NOT NULL DEFAULT '',
			pickup_country TEXT NOT NULL DEFAULT '',
			pickup_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			pickup_lng DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS business_hours (
			id BIGSERIAL PRIMARY KEY,
			org_id BIGINT NOT NULL REFERENCES organizations(id),
			weekday INT NOT NULL,
			open_min INT NOT NULL DEFAULT 0,
			close_min INT NOT NULL DEFAULT 0,
			closed BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE (org_id, weekday)
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			org_id BIGINT NOT NULL REFERENCES organizations(id),
			name TEXT NOT NULL,
			price_cents BIGINT NOT NULL,
			available BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			org_id BIGINT NOT NULL REFERENCES organizations(id),
			order_number TEXT NOT NULL,
			tracking_token TEXT NOT NULL UNIQUE,
			idempotency_key TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			fulfillment_type TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			customer_email TEXT NOT NULL,
			customer_phone TEXT NOT NULL,
			subtotal_cents BIGINT NOT NULL DEFAULT 0,
			tax_cents BIGINT NOT NULL DEFAULT 0,
			delivery_fee_cents BIGINT NOT NULL DEFAULT 0,
			service_fee_cents BIGINT NOT NULL DEFAULT 0,
			total_cents BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			street TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			postal TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			lng DOUBLE PRECISION NOT NULL DEFAULT 0,
			instructions TEXT NOT NULL DEFAULT '',
			scheduled_at TIMESTAMPTZ NOT NULL,
			payment_ref TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			ready_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			UNIQUE (org_id, order_number)
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id),
			product_id BIGINT NOT NULL,
			name_snapshot TEXT NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			quantity INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_status_log (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id),
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			changed_by TEXT NOT NULL,
			changed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			note TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS payment_authorizations (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id),
			idempotency_key TEXT NOT NULL UNIQUE,
			external_id TEXT NOT NULL,
			client_secret TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS delivery_jobs (
			order_id BIGINT PRIMARY KEY REFERENCES orders(id),
			status TEXT NOT NULL,
			courier_status TEXT NOT NULL DEFAULT '',
			external_id TEXT NOT NULL DEFAULT '',
			tracking_url TEXT NOT NULL DEFAULT '',
			fee_cents BIGINT NOT NULL DEFAULT 0,
			failure_note TEXT NOT NULL DEFAULT '',
			pickup_street TEXT NOT NULL DEFAULT '',
			pickup_city TEXT NOT NULL DEFAULT '',
			pickup_region TEXT NOT NULL DEFAULT '',
			pickup_postal TEXT NOT NULL DEFAULT '',
			pickup_country TEXT NOT NULL DEFAULT '',
			pickup_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			pickup_lng DOUBLE PRECISION NOT NULL DEFAULT 0,
			dropoff_street TEXT NOT NULL DEFAULT '',
			dropoff_city TEXT NOT NULL DEFAULT '',
			dropoff_region TEXT NOT NULL DEFAULT '',
			dropoff_postal TEXT NOT NULL DEFAULT '',
			dropoff_country TEXT NOT NULL DEFAULT '',
			dropoff_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			dropoff_lng DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_org_created ON orders (org_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_status_log_order ON order_status_log (order_id, changed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_jobs_external ON delivery_jobs (external_id)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
