// Package lifecycle defines the order status machine and its role gating.
//
// The table here is the single source of truth for which transitions exist
// and who may perform them. Persistence (the optimistic current-status check)
// lives with the repositories; this package is pure.
package lifecycle

import (
	"fmt"

	"curbside/pkg/models"
)

// ForbiddenTransitionError is returned when a transition is not legal from
// the current status, not defined for the order's fulfillment type, or the
// actor's role lacks the privilege. Nothing is written when it is returned.
type ForbiddenTransitionError struct {
	From   string
	To     string
	Role   string
	Reason string
}

func (e *ForbiddenTransitionError) Error() string {
	return fmt.Sprintf("forbidden transition %s -> %s (role %s): %s", e.From, e.To, e.Role, e.Reason)
}

type edge struct {
	from, to string
}

type rule struct {
	roles []string
	// fulfillment restricts the edge to one fulfillment type; empty means both.
	fulfillment string
}

var (
	systemOnly = []string{models.RoleSystem}
	courierOps = []string{models.RoleSystem, models.RoleCourier}
	staffUp    = []string{models.RoleStaff, models.RoleManager, models.RoleOwner, models.RoleAdmin}
	managerUp  = []string{models.RoleManager, models.RoleOwner, models.RoleAdmin}
	adminOnly  = []string{models.RoleAdmin}
)

var table = map[edge]rule{
	{models.StatusDraft, models.StatusAwaitingPayment}:    {roles: systemOnly},
	{models.StatusAwaitingPayment, models.StatusPaid}:     {roles: systemOnly},
	{models.StatusPaid, models.StatusAccepted}:            {roles: managerUp},
	{models.StatusAccepted, models.StatusPreparing}:       {roles: staffUp},
	{models.StatusPreparing, models.StatusReady}:          {roles: staffUp},
	{models.StatusReady, models.StatusCompleted}:          {roles: managerUp, fulfillment: models.FulfillmentPickup},
	{models.StatusReady, models.StatusOutForDelivery}:     {roles: courierOps, fulfillment: models.FulfillmentDelivery},
	{models.StatusOutForDelivery, models.StatusCompleted}: {roles: courierOps, fulfillment: models.FulfillmentDelivery},
	{models.StatusReady, models.StatusRefunded}:           {roles: adminOnly},
	{models.StatusCompleted, models.StatusRefunded}:       {roles: adminOnly},
	{models.StatusAwaitingPayment, models.StatusCanceled}: {roles: managerUp},
	{models.StatusPaid, models.StatusCanceled}:            {roles: managerUp},
	{models.StatusAccepted, models.StatusCanceled}:        {roles: managerUp},
	{models.StatusPreparing, models.StatusCanceled}:       {roles: managerUp},
}

// Validate reports whether role may move an order of the given fulfillment
// type from one status to another. A nil return means the edge is legal.
func Validate(fulfillment, from, to, role string) error {
	r, ok := table[edge{from, to}]
	if !ok {
		return &ForbiddenTransitionError{From: from, To: to, Role: role, Reason: "no such transition"}
	}
	if r.fulfillment != "" && r.fulfillment != fulfillment {
		return &ForbiddenTransitionError{From: from, To: to, Role: role,
			Reason: fmt.Sprintf("not defined for %s orders", fulfillment)}
	}
	for _, allowed := range r.roles {
		if allowed == role {
			return nil
		}
	}
	return &ForbiddenTransitionError{From: from, To: to, Role: role, Reason: "role lacks privilege"}
}

// TriggersDispatch reports whether completing this transition must kick off
// a courier dispatch. Dispatch is a post-transition hook: its failure never
// rolls the transition back.
func TriggersDispatch(fulfillment, to string) bool {
	return fulfillment == models.FulfillmentDelivery && to == models.StatusReady
}
