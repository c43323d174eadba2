package services

import (
	"context"
	"time"

	"curbside/internal/lifecycle"
	"curbside/internal/mylogger"
	"curbside/internal/ops/app/core"
	"curbside/pkg/models"
)

// TransitionResult is the outcome of one status transition. DispatchWarning
// is set when the transition itself committed but the post-transition
// dispatch hook failed; the order is ready and retryable, never blocked.
type TransitionResult struct {
	Order           models.Order        `json:"order"`
	Job             *models.DeliveryJob `json:"delivery_job,omitempty"`
	DispatchWarning string              `json:"dispatch_warning,omitempty"`
}

// LifecycleService drives role-gated order status transitions.
type LifecycleService struct {
	orders   core.IOrderRepo
	dispatch *DispatchService
	jobs     core.IDeliveryRepo
	notifier core.INotifier
	mylog    mylogger.Logger
}

func NewLifecycleService(
	orders core.IOrderRepo,
	dispatch *DispatchService,
	jobs core.IDeliveryRepo,
	notifier core.INotifier,
	mylog mylogger.Logger,
) *LifecycleService {
	return &LifecycleService{
		orders:   orders,
		dispatch: dispatch,
		jobs:     jobs,
		notifier: notifier,
		mylog:    mylog,
	}
}

// Transition validates and applies one status change on behalf of an actor.
// Legality is checked against the role table first, then against the
// persisted status at write time, so two staff racing the same order cannot
// double-apply. A ForbiddenTransitionError writes nothing.
func (s *LifecycleService) Transition(ctx context.Context, orderID int64, target, actorRole, actorName string) (TransitionResult, error) {
	mylog := s.mylog.Action("transition").With("order_id", orderID, "target", target, "role", actorRole)

	order, err := s.orders.OrderByID(ctx, orderID)
	if err != nil {
		return TransitionResult{}, err
	}

	if err := lifecycle.Validate(order.Fulfillment, order.Status, target, actorRole); err != nil {
		mylog.Warn("Transition rejected", "from", order.Status, "reason", err.Error())
		return TransitionResult{}, err
	}

	changedBy := actorName
	if changedBy == "" {
		changedBy = actorRole
	}

	from := order.Status
	updated, err := s.orders.TransitionStatus(ctx, orderID, from, target, changedBy, "")
	if err != nil {
		return TransitionResult{}, err
	}

	s.publishEvent(ctx, updated, from, target, changedBy)
	mylog.Info("Order transitioned", "order_number", updated.Number, "from", from, "to", target)

	result := TransitionResult{Order: updated}

	// Dispatch runs after the transition commits. Its failure is reported in
	// the result, never as the call's error: the kitchen is not blocked by a
	// courier outage and the owner gets an explicit manual retry.
	if lifecycle.TriggersDispatch(updated.Fulfillment, target) {
		job, err := s.dispatch.Dispatch(ctx, orderID)
		if err != nil {
			mylog.Action("dispatch_after_ready_failed").Error("Dispatch failed after ready transition", err,
				"order_number", updated.Number)
			result.DispatchWarning = core.ErrCourierUnavailable.Error()
		} else {
			result.Job = &job
		}
	}

	return result, nil
}

// HandleCourierUpdate consumes an inbound courier status callback, storing
// the opaque courier status and mapping the known milestones onto the order
// lifecycle.
func (s *LifecycleService) HandleCourierUpdate(ctx context.Context, externalID, courierStatus string) (models.DeliveryJob, error) {
	mylog := s.mylog.Action("courier_callback").With("external_id", externalID, "courier_status", courierStatus)

	job, err := s.jobs.UpdateCourierStatus(ctx, externalID, courierStatus)
	if err != nil {
		return models.DeliveryJob{}, err
	}

	// Callbacks are at-least-once with no ordering guarantee, so delivered
	// implies every milestone before it: a delivered callback arriving while
	// the order is still ready walks through out_for_delivery first instead
	// of stranding the order there.
	var targets []string
	switch courierStatus {
	case core.CourierStatusPickup, core.CourierStatusEnroute:
		targets = []string{models.StatusOutForDelivery}
	case core.CourierStatusDelivered:
		targets = []string{models.StatusOutForDelivery, models.StatusCompleted}
	default:
		// Opaque courier vocabulary: stored on the job, no lifecycle effect.
		mylog.Debug("Courier status stored without lifecycle mapping")
		return job, nil
	}

	for _, target := range targets {
		if _, err := s.Transition(ctx, job.OrderID, target, models.RoleCourier, "courier-network"); err != nil {
			// A repeat of an already-applied milestone is expected and not
			// an error worth failing the webhook.
			mylog.Debug("Courier-driven transition not applied", "target", target, "reason", err.Error())
		}
	}

	return job, nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, order models.Order, from, to, changedBy string) {
	event := models.OrderEvent{
		OrderNumber:   order.Number,
		TrackingToken: order.TrackingToken,
		OrgID:         order.OrgID,
		OldStatus:     from,
		NewStatus:     to,
		ChangedBy:     changedBy,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.notifier.PublishOrderEvent(ctx, event); err != nil {
		s.mylog.Action("order_event_publish_failed").Error("Failed to publish order event", err,
			"order_number", order.Number)
	}
}
