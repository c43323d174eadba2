package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"curbside/internal/lifecycle"
	"curbside/internal/mylogger"
	"curbside/internal/ops/app/core"
	"curbside/internal/ops/app/services"
	"curbside/pkg/models"
)

type OrdersHandler struct {
	lifecycles *services.LifecycleService
	dispatch   *services.DispatchService
	mylog      mylogger.Logger
}

func NewOrdersHandler(lifecycles *services.LifecycleService, dispatch *services.DispatchService, mylog mylogger.Logger) *OrdersHandler {
	return &OrdersHandler{
		lifecycles: lifecycles,
		dispatch:   dispatch,
		mylog:      mylog,
	}
}

type transitionRequest struct {
	Target string `json:"target"`
}

type courierCallbackRequest struct {
	DeliveryID string `json:"delivery_id"`
	Status     string `json:"status"`
}

// Transition applies one status change. The actor's role and name come from
// the session layer upstream, forwarded as headers; role gating itself
// happens in the lifecycle table.
func (h *OrdersHandler) Transition() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("invalid order id"))
			return
		}

		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		role := r.Header.Get("X-Actor-Role")
		actor := r.Header.Get("X-Actor")

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		result, err := h.lifecycles.Transition(ctx, orderID, req.Target, role, actor)
		if err != nil {
			h.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, result)
	}
}

// Dispatch is the owner's manual retry for a failed courier dispatch.
func (h *OrdersHandler) Dispatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("invalid order id"))
			return
		}

		switch r.Header.Get("X-Actor-Role") {
		case models.RoleOwner, models.RoleManager, models.RoleAdmin:
		default:
			jsonError(w, http.StatusForbidden, errors.New("role lacks privilege to dispatch"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		job, err := h.dispatch.Dispatch(ctx, orderID)
		if err != nil {
			h.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, job)
	}
}

// CourierCallback receives asynchronous status updates from the courier
// network. Always answers 200 for known jobs so the network stops retrying.
func (h *OrdersHandler) CourierCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req courierCallbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		job, err := h.lifecycles.HandleCourierUpdate(ctx, req.DeliveryID, req.Status)
		if err != nil {
			h.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, job)
	}
}

func (h *OrdersHandler) writeError(w http.ResponseWriter, err error) {
	var forbidden *lifecycle.ForbiddenTransitionError
	switch {
	case errors.As(err, &forbidden):
		jsonError(w, http.StatusForbidden, err)
	case errors.Is(err, core.ErrOrderNotFound):
		jsonError(w, http.StatusNotFound, err)
	case errors.Is(err, core.ErrStatusConflict):
		jsonError(w, http.StatusConflict, err)
	case errors.Is(err, core.ErrCourierRateLimited):
		jsonError(w, http.StatusTooManyRequests, err)
	case errors.Is(err, core.ErrCourierUnavailable):
		jsonError(w, http.StatusBadGateway, err)
	case errors.Is(err, core.ErrDBConn):
		jsonError(w, http.StatusInternalServerError, err)
	default:
		h.mylog.Action("request_failed").Error("Unhandled operations error", err)
		jsonError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
