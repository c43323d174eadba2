package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"curbside/internal/checkout/app/core"
	"curbside/internal/checkout/app/services"
	"curbside/internal/checkout/domain/dto"
	"curbside/internal/mylogger"
	"curbside/internal/slots"
	"curbside/pkg/models"
)

type CheckoutHandler struct {
	intents *services.IntentService
	catalog core.ICatalog
	mylog   mylogger.Logger
}

func NewCheckoutHandler(intents *services.IntentService, catalog core.ICatalog, mylog mylogger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		intents: intents,
		catalog: catalog,
		mylog:   mylog,
	}
}

// Slots returns the offered fulfillment times for a store. An empty window
// is not an error: the response carries closed=true and the storefront must
// block checkout on it.
func (h *CheckoutHandler) Slots() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")

		org, err := h.catalog.OrganizationBySlug(r.Context(), slug)
		if err != nil {
			h.writeError(w, err)
			return
		}

		now := time.Now()
		planned := slots.Plan(org.Hours, time.Duration(org.PrepBufferMin)*time.Minute, now, now.Location())

		jsonResponse(w, http.StatusOK, dto.SlotsResponse{
			Slots:  planned,
			Closed: len(planned) == 0,
		})
	}
}

func (h *CheckoutHandler) Quote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.QuoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		totals, err := h.intents.Quote(r.Context(), req)
		if err != nil {
			h.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, totals)
	}
}

func (h *CheckoutHandler) CreateIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.IntentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.mylog.Action("parse_failed").Error("Failed to parse intent request", err)
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		resp, err := h.intents.CreateIntent(ctx, req)
		if err != nil {
			h.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, resp)
	}
}

// Confirm receives the payment gateway's confirmation callback.
func (h *CheckoutHandler) Confirm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ConfirmationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := h.intents.ConfirmPayment(ctx, req)
		if err != nil {
			h.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]string{
			"order_number": order.Number,
			"status":       models.StatusPaid,
		})
	}
}

// writeError maps checkout error kinds to HTTP statuses and user-facing
// copy. Unknown errors stay generic 500s.
func (h *CheckoutHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrTenantNotFound):
		jsonError(w, http.StatusNotFound, err)
	case errors.Is(err, core.ErrItemsUnavailable):
		jsonError(w, http.StatusConflict, err)
	case errors.Is(err, core.ErrInvalidContact),
		errors.Is(err, core.ErrMissingAddress),
		errors.Is(err, core.ErrMissingIdempotency):
		jsonError(w, http.StatusBadRequest, err)
	case errors.Is(err, core.ErrRateLimited):
		jsonError(w, http.StatusTooManyRequests, err)
	case errors.Is(err, core.ErrGatewayUnavailable):
		jsonError(w, http.StatusBadGateway, err)
	case errors.Is(err, core.ErrDBConn):
		jsonError(w, http.StatusInternalServerError, err)
	default:
		h.mylog.Action("request_failed").Error("Unhandled checkout error", err)
		jsonError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
