package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"curbside/internal/ops/app/core"
	"curbside/pkg/models"
)

type OrgRepo struct {
	pool *pgxpool.Pool
}

func NewOrgRepo(pool *pgxpool.Pool) *OrgRepo {
	return &OrgRepo{pool: pool}
}

func (r *OrgRepo) OrganizationByID(ctx context.Context, id int64) (models.Organization, error) {
	var org models.Organization
	err := r.pool.QueryRow(ctx, `
		SELECT id, slug, name, currency, tax_rate_milli, delivery_fee_cents, service_fee_cents, prep_buffer_min,
		       pickup_street, pickup_city, pickup_region, pickup_postal, pickup_country, pickup_lat, pickup_lng
		FROM organizations
		WHERE id = $1
	`, id).Scan(
		&org.ID, &org.Slug, &org.Name, &org.Currency,
		&org.TaxRateMilli, &org.DeliveryCents, &org.ServiceCents, &org.PrepBufferMin,
		&org.PickupAddress.Street, &org.PickupAddress.City, &org.PickupAddress.Region,
		&org.PickupAddress.Postal, &org.PickupAddress.Country,
		&org.PickupAddress.Lat, &org.PickupAddress.Lng,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Organization{}, core.ErrOrderNotFound
	}
	if err != nil {
		return models.Organization{}, fmt.Errorf("failed to query organization: %w", err)
	}
	return org, nil
}
