// Package pricing computes authoritative order totals in integer cents.
package pricing

import (
	"curbside/pkg/models"
)

// DefaultTaxRateMilli is applied when the organization has not configured a
// rate. Expressed in parts per 100,000 (8875 = 8.875%).
const DefaultTaxRateMilli = 8875

// rateScale is the denominator for TaxRateMilli.
const rateScale = 100_000

// Fees are the organization's flat fee configuration.
type Fees struct {
	DeliveryCents int64
	ServiceCents  int64
}

// Quote prices a cart. All math is integer minor-currency-unit arithmetic;
// the result is the only total trusted for charging. Client-side totals are
// advisory and must be recomputed through this function before any charge.
func Quote(items []models.Item, fulfillment string, taxRateMilli int64, fees Fees) models.Totals {
	if taxRateMilli <= 0 {
		taxRateMilli = DefaultTaxRateMilli
	}

	var subtotal int64
	for _, it := range items {
		subtotal += it.UnitPriceCents * int64(it.Quantity)
	}

	// Round half up.
	tax := (subtotal*taxRateMilli + rateScale/2) / rateScale

	var delivery int64
	if fulfillment == models.FulfillmentDelivery {
		delivery = fees.DeliveryCents
	}

	return models.Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		DeliveryCents: delivery,
		ServiceCents:  fees.ServiceCents,
		TotalCents:    subtotal + tax + delivery + fees.ServiceCents,
	}
}
