package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"curbside/internal/checkout/app/core"
	"curbside/pkg/models"
)

// CatalogRepo is the read-only surface over tenant configuration and the
// product catalog. Writes happen elsewhere (menu CRUD is another subsystem).
type CatalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

func (r *CatalogRepo) OrganizationBySlug(ctx context.Context, slug string) (models.Organization, error) {
	var org models.Organization
	err := r.pool.QueryRow(ctx, `
		SELECT id, slug, name, currency, tax_rate_milli, delivery_fee_cents, service_fee_cents, prep_buffer_min,
		       pickup_street, pickup_city, pickup_region, pickup_postal, pickup_country, pickup_lat, pickup_lng
		FROM organizations
		WHERE slug = $1
	`, slug).Scan(
		&org.ID, &org.Slug, &org.Name, &org.Currency,
		&org.TaxRateMilli, &org.DeliveryCents, &org.ServiceCents, &org.PrepBufferMin,
		&org.PickupAddress.Street, &org.PickupAddress.City, &org.PickupAddress.Region,
		&org.PickupAddress.Postal, &org.PickupAddress.Country,
		&org.PickupAddress.Lat, &org.PickupAddress.Lng,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Organization{}, core.ErrTenantNotFound
	}
	if err != nil {
		return models.Organization{}, fmt.Errorf("failed to query organization: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT weekday, open_min, close_min, closed
		FROM business_hours
		WHERE org_id = $1
		ORDER BY weekday
	`, org.ID)
	if err != nil {
		return models.Organization{}, fmt.Errorf("failed to query business hours: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h models.BusinessHours
		var weekday int
		if err := rows.Scan(&weekday, &h.OpenMin, &h.CloseMin, &h.Closed); err != nil {
			return models.Organization{}, fmt.Errorf("failed to scan business hours: %w", err)
		}
		h.Weekday = time.Weekday(weekday)
		org.Hours = append(org.Hours, h)
	}
	return org, rows.Err()
}

func (r *CatalogRepo) ProductsByID(ctx context.Context, orgID int64, ids []int64) (map[int64]models.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, org_id, name, price_cents, available
		FROM products
		WHERE org_id = $1 AND id = ANY($2)
	`, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make(map[int64]models.Product, len(ids))
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.PriceCents, &p.Available); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}
