package dto

import (
	"time"

	"curbside/pkg/models"
)

// OrderSummary is the public view exposed to a tracking link holder.
// Customer contact details and internal payment references stay out.
type OrderSummary struct {
	OrderNumber        string             `json:"order_number"`
	Status             string             `json:"status"`
	Fulfillment        string             `json:"fulfillment_type"`
	ScheduledAt        *time.Time         `json:"scheduled_at,omitempty"`
	TotalCents         int64              `json:"total_cents"`
	Currency           string             `json:"currency"`
	CourierStatus      string             `json:"courier_status,omitempty"`
	CourierTrackingURL string             `json:"courier_tracking_url,omitempty"`
	History            []models.StatusLog `json:"history"`
}
