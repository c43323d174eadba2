package dto

import (
	"time"

	"curbside/pkg/models"
)

type Customer struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,e164"`
}

type CartLine struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1,lte=20"`
}

// IntentRequest is one checkout submission. IdempotencyKey is generated once
// per checkout session by the client and reused on every retry of the same
// attempt.
type IntentRequest struct {
	OrgSlug        string          `json:"org_slug" validate:"required"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required,uuid4"`
	Fulfillment    string          `json:"fulfillment" validate:"required,oneof=pickup delivery"`
	Customer       Customer        `json:"customer"`
	Items          []CartLine      `json:"items" validate:"required,min=1,max=50,dive"`
	ScheduledAt    time.Time       `json:"scheduled_at" validate:"required"`
	Address        *models.Address `json:"address,omitempty"`
}

type IntentResponse struct {
	ClientSecret string        `json:"client_secret"`
	OrderID      int64         `json:"order_id"`
	OrderNumber  string        `json:"order_number"`
	Totals       models.Totals `json:"totals"`
}

// DraftOrder is the fully-priced order snapshot handed to the repository.
// Item names and prices are frozen here, immune to later catalog edits.
type DraftOrder struct {
	OrgID          int64
	IdempotencyKey string
	Fulfillment    string
	Customer       Customer
	Items          []models.Item
	Totals         models.Totals
	Currency       string
	ScheduledAt    time.Time
	Address        *models.Address
}

type QuoteRequest struct {
	OrgSlug     string     `json:"org_slug" validate:"required"`
	Fulfillment string     `json:"fulfillment" validate:"required,oneof=pickup delivery"`
	Items       []CartLine `json:"items" validate:"required,min=1,dive"`
}

// ConfirmationRequest is the payment gateway's confirmation callback.
type ConfirmationRequest struct {
	AuthorizationID string `json:"authorization_id" validate:"required"`
	Status          string `json:"status" validate:"required,oneof=succeeded failed"`
}

type SlotsResponse struct {
	Slots []models.TimeSlot `json:"slots"`
	// Closed is set when no day in the window yields a slot; the storefront
	// must block checkout progress on it.
	Closed bool `json:"closed"`
}
