package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curbside/pkg/models"
)

func TestValidateLegalPath(t *testing.T) {
	cases := []struct {
		fulfillment, from, to, role string
	}{
		{models.FulfillmentPickup, models.StatusDraft, models.StatusAwaitingPayment, models.RoleSystem},
		{models.FulfillmentPickup, models.StatusAwaitingPayment, models.StatusPaid, models.RoleSystem},
		{models.FulfillmentPickup, models.StatusPaid, models.StatusAccepted, models.RoleOwner},
		{models.FulfillmentPickup, models.StatusAccepted, models.StatusPreparing, models.RoleStaff},
		{models.FulfillmentPickup, models.StatusPreparing, models.StatusReady, models.RoleStaff},
		{models.FulfillmentPickup, models.StatusReady, models.StatusCompleted, models.RoleManager},
		{models.FulfillmentDelivery, models.StatusReady, models.StatusOutForDelivery, models.RoleCourier},
		{models.FulfillmentDelivery, models.StatusOutForDelivery, models.StatusCompleted, models.RoleSystem},
		{models.FulfillmentPickup, models.StatusCompleted, models.StatusRefunded, models.RoleAdmin},
		{models.FulfillmentPickup, models.StatusReady, models.StatusRefunded, models.RoleAdmin},
		{models.FulfillmentDelivery, models.StatusPaid, models.StatusCanceled, models.RoleManager},
	}

	for _, tc := range cases {
		assert.NoError(t, Validate(tc.fulfillment, tc.from, tc.to, tc.role),
			"%s: %s -> %s as %s", tc.fulfillment, tc.from, tc.to, tc.role)
	}
}

func TestValidateRejectsSkippedStates(t *testing.T) {
	cases := []struct {
		from, to string
	}{
		{models.StatusPaid, models.StatusReady},
		{models.StatusPaid, models.StatusCompleted},
		{models.StatusAccepted, models.StatusReady},
		{models.StatusDraft, models.StatusPaid},
		{models.StatusAwaitingPayment, models.StatusAccepted},
	}

	for _, tc := range cases {
		err := Validate(models.FulfillmentPickup, tc.from, tc.to, models.RoleAdmin)
		var forbidden *ForbiddenTransitionError
		require.ErrorAs(t, err, &forbidden, "%s -> %s must be rejected even for admin", tc.from, tc.to)
	}
}

func TestValidateRoleGating(t *testing.T) {
	// Staff can move preparing -> ready but not ready -> completed.
	assert.NoError(t, Validate(models.FulfillmentPickup, models.StatusPreparing, models.StatusReady, models.RoleStaff))

	err := Validate(models.FulfillmentPickup, models.StatusPreparing, models.StatusCompleted, models.RoleStaff)
	var forbidden *ForbiddenTransitionError
	require.ErrorAs(t, err, &forbidden)

	err = Validate(models.FulfillmentPickup, models.StatusReady, models.StatusCompleted, models.RoleStaff)
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, "role lacks privilege", forbidden.Reason)

	// Refunds are admin only.
	err = Validate(models.FulfillmentPickup, models.StatusCompleted, models.StatusRefunded, models.RoleOwner)
	require.ErrorAs(t, err, &forbidden)
}

func TestValidateFulfillmentGating(t *testing.T) {
	// A delivery order completes through out_for_delivery, never directly.
	err := Validate(models.FulfillmentDelivery, models.StatusReady, models.StatusCompleted, models.RoleOwner)
	var forbidden *ForbiddenTransitionError
	require.ErrorAs(t, err, &forbidden)

	// A pickup order never goes out for delivery.
	err = Validate(models.FulfillmentPickup, models.StatusReady, models.StatusOutForDelivery, models.RoleSystem)
	require.ErrorAs(t, err, &forbidden)
}

func TestValidateNoUnRefund(t *testing.T) {
	for _, to := range []string{
		models.StatusPaid, models.StatusAccepted, models.StatusReady, models.StatusCompleted,
	} {
		assert.Error(t, Validate(models.FulfillmentPickup, models.StatusRefunded, to, models.RoleAdmin))
	}
}

func TestTriggersDispatch(t *testing.T) {
	assert.True(t, TriggersDispatch(models.FulfillmentDelivery, models.StatusReady))
	assert.False(t, TriggersDispatch(models.FulfillmentPickup, models.StatusReady))
	assert.False(t, TriggersDispatch(models.FulfillmentDelivery, models.StatusPreparing))
}
