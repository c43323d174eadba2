package models

import (
	"time"
)

// Order statuses. Transitions between them are governed by the lifecycle
// package; nothing outside it should write a status directly.
const (
	StatusDraft           = "draft"
	StatusAwaitingPayment = "awaiting_payment"
	StatusPaid            = "paid"
	StatusAccepted        = "accepted"
	StatusPreparing       = "preparing"
	StatusReady           = "ready"
	StatusOutForDelivery  = "out_for_delivery"
	StatusCompleted       = "completed"
	StatusCanceled        = "canceled"
	StatusRefunded        = "refunded"
)

// Actor roles. The upstream session layer resolves the caller's role; the
// engine only checks it against the transition table.
const (
	RoleSystem  = "system"
	RoleCourier = "courier"
	RoleStaff   = "staff"
	RoleManager = "manager"
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
)

// Fulfillment types.
const (
	FulfillmentPickup   = "pickup"
	FulfillmentDelivery = "delivery"
)

// Delivery job local statuses. The courier network's own vocabulary is kept
// separately in CourierStatus as an opaque string.
const (
	JobReserved   = "reserved"
	JobDispatched = "dispatched"
	JobFailed     = "failed"
)

type Order struct {
	ID             int64      `json:"id"`
	OrgID          int64      `json:"org_id"`
	Number         string     `json:"number"`
	TrackingToken  string     `json:"tracking_token"`
	IdempotencyKey string     `json:"idempotency_key"`
	Status         string     `json:"status"`
	Fulfillment    string     `json:"fulfillment"`
	CustomerName   string     `json:"customer_name"`
	CustomerEmail  string     `json:"customer_email"`
	CustomerPhone  string     `json:"customer_phone"`
	SubtotalCents  int64      `json:"subtotal_cents"`
	TaxCents       int64      `json:"tax_cents"`
	DeliveryCents  int64      `json:"delivery_cents"`
	ServiceCents   int64      `json:"service_cents"`
	TotalCents     int64      `json:"total_cents"`
	Currency       string     `json:"currency"`
	Address        *Address   `json:"address,omitempty"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	PaymentRef     string     `json:"payment_ref,omitempty"`
	Items          []Item     `json:"items,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadyAt        *time.Time `json:"ready_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type Item struct {
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

type Address struct {
	Street       string  `json:"street"`
	City         string  `json:"city"`
	Region       string  `json:"region"`
	Postal       string  `json:"postal"`
	Country      string  `json:"country"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Instructions string  `json:"instructions,omitempty"`
}

type StatusLog struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	From      string    `json:"from_status"`
	To        string    `json:"to_status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Note      string    `json:"note,omitempty"`
}

// PaymentAuthorization is one attempt to collect funds for an order. At most
// one row exists per idempotency key.
type PaymentAuthorization struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"order_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	ExternalID     string    `json:"external_id"`
	ClientSecret   string    `json:"client_secret"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// DeliveryJob is the reservation row for a courier dispatch. OrderID is the
// idempotency key: the table holds at most one row per order.
type DeliveryJob struct {
	OrderID       int64     `json:"order_id"`
	Status        string    `json:"status"`
	CourierStatus string    `json:"courier_status,omitempty"`
	ExternalID    string    `json:"external_id,omitempty"`
	TrackingURL   string    `json:"tracking_url,omitempty"`
	FeeCents      int64     `json:"fee_cents"`
	Pickup        Address   `json:"pickup"`
	Dropoff       Address   `json:"dropoff"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	DeliveryCents int64 `json:"delivery_cents"`
	ServiceCents  int64 `json:"service_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// TimeSlot is a candidate fulfillment time, generated per checkout session
// and never persisted.
type TimeSlot struct {
	At    time.Time `json:"at"`
	Label string    `json:"label"`
}

// BusinessHours for one weekday. A weekday with no record is closed.
type BusinessHours struct {
	Weekday  time.Weekday `json:"weekday"`
	OpenMin  int          `json:"open_min"`  // minutes from midnight
	CloseMin int          `json:"close_min"` // minutes from midnight
	Closed   bool         `json:"closed"`
}

// Organization is the tenant profile consumed by the engine: pricing config,
// prep buffer and the pickup address handed to the courier network.
type Organization struct {
	ID            int64           `json:"id"`
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	TaxRateMilli  int64           `json:"tax_rate_milli"` // parts per 100_000, 14975 = 14.975%
	DeliveryCents int64           `json:"delivery_cents"`
	ServiceCents  int64           `json:"service_cents"`
	PrepBufferMin int             `json:"prep_buffer_min"`
	PickupAddress Address         `json:"pickup_address"`
	Hours         []BusinessHours `json:"hours,omitempty"`
}

type Product struct {
	ID         int64  `json:"id"`
	OrgID      int64  `json:"org_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Available  bool   `json:"available"`
}

// OrderEvent is the realtime feed payload. It is intentionally partial:
// consumers must re-fetch full order state by token rather than trust it.
type OrderEvent struct {
	OrderNumber   string    `json:"order_number"`
	TrackingToken string    `json:"tracking_token"`
	OrgID         int64     `json:"org_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	ChangedBy     string    `json:"changed_by"`
	Timestamp     time.Time `json:"timestamp"`
}
