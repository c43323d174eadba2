package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"curbside/internal/mylogger"
	"curbside/internal/ops/app/core"
	"curbside/pkg/models"
)

// DispatchService creates at most one courier delivery job per order.
//
// The reservation row in delivery_jobs, keyed by order id, is inserted
// before the external call; its uniqueness constraint is the lock. Two
// concurrent dispatch attempts both end up observing the same job, and the
// courier network never sees a second creation request for the same order.
type DispatchService struct {
	orders  core.IOrderRepo
	jobs    core.IDeliveryRepo
	orgs    core.IOrgRepo
	courier core.ICourier
	mylog   mylogger.Logger
}

func NewDispatchService(
	orders core.IOrderRepo,
	jobs core.IDeliveryRepo,
	orgs core.IOrgRepo,
	courier core.ICourier,
	mylog mylogger.Logger,
) *DispatchService {
	return &DispatchService{
		orders:  orders,
		jobs:    jobs,
		orgs:    orgs,
		courier: courier,
		mylog:   mylog,
	}
}

// Dispatch reserves and creates the courier delivery for a ready order.
// Safe to call from the mark-ready hook and from a manual owner retry at
// the same time; the second caller gets the first caller's job.
func (s *DispatchService) Dispatch(ctx context.Context, orderID int64) (models.DeliveryJob, error) {
	mylog := s.mylog.Action("dispatch").With("order_id", orderID)

	if job, ok, err := s.jobs.JobByOrderID(ctx, orderID); err != nil {
		return models.DeliveryJob{}, err
	} else if ok && job.Status == models.JobDispatched {
		mylog.Debug("Delivery job already exists, returning it", "external_id", job.ExternalID)
		return job, nil
	}

	order, err := s.orders.OrderByID(ctx, orderID)
	if err != nil {
		return models.DeliveryJob{}, err
	}
	if order.Fulfillment != models.FulfillmentDelivery {
		return models.DeliveryJob{}, fmt.Errorf("order %s is not a delivery order", order.Number)
	}

	org, err := s.orgs.OrganizationByID(ctx, order.OrgID)
	if err != nil {
		return models.DeliveryJob{}, err
	}

	dropoff := models.Address{}
	if order.Address != nil {
		dropoff = *order.Address
	}

	job, created, err := s.jobs.Reserve(ctx, models.DeliveryJob{
		OrderID: orderID,
		Status:  models.JobReserved,
		Pickup:  org.PickupAddress,
		Dropoff: dropoff,
	})
	if err != nil {
		return models.DeliveryJob{}, err
	}
	if !created && job.Status != models.JobFailed {
		// A concurrent caller holds the reservation (or already finished):
		// return their job instead of calling the network twice.
		mylog.Debug("Lost dispatch race, returning existing job", "status", job.Status)
		return job, nil
	}

	// Reservation held (fresh, or a failed row being retried): call out.
	resp, err := s.courier.CreateDelivery(ctx, core.CourierRequest{
		IdempotencyToken: dispatchToken(orderID),
		Pickup:           org.PickupAddress,
		Dropoff:          dropoff,
		ContactName:      order.CustomerName,
		ContactPhone:     order.CustomerPhone,
	})
	if err != nil {
		mylog.Error("Courier delivery creation failed", err, "order_number", order.Number)
		if markErr := s.jobs.MarkFailed(ctx, orderID, err.Error()); markErr != nil {
			mylog.Error("Failed to mark reservation failed", markErr)
		}
		return models.DeliveryJob{}, err
	}

	job, err = s.jobs.MarkDispatched(ctx, orderID, resp.DeliveryID, resp.Status, resp.TrackingURL, resp.FeeCents)
	if err != nil {
		return models.DeliveryJob{}, err
	}

	mylog.Info("Delivery dispatched", "order_number", order.Number, "external_id", resp.DeliveryID)
	return job, nil
}

// dispatchToken derives the request-level idempotency token from the order
// id. One-way so the order id is not exposed to the courier network.
func dispatchToken(orderID int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("curbside-dispatch-%d", orderID)))
	return hex.EncodeToString(sum[:])
}
