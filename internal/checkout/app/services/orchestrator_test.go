package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"curbside/internal/checkout/app/core"
	"curbside/internal/checkout/domain/dto"
	"curbside/internal/mylogger"
	"curbside/pkg/models"
)

func newTestOrchestrator(t *testing.T, org models.Organization) (*Orchestrator, *fakeGateway) {
	t.Helper()

	mylog, err := mylogger.New("ERROR")
	require.NoError(t, err)

	catalog := &fakeCatalog{org: org, products: testProducts()}
	gateway := &fakeGateway{}
	intents := NewIntentService(newFakeOrderRepo(), catalog, gateway, &fakeNotifier{}, mylog)

	return NewOrchestrator(catalog, intents, NewMemoryKeyStore(), mylog), gateway
}

func openAllWeekOrg() models.Organization {
	org := testOrg()
	for d := time.Sunday; d <= time.Saturday; d++ {
		org.Hours = append(org.Hours, models.BusinessHours{
			Weekday: d, OpenMin: 11 * 60, CloseMin: 22 * 60,
		})
	}
	return org
}

func sessionFromRequest(s *Session, req dto.IntentRequest, slot models.TimeSlot) {
	s.Fulfillment = req.Fulfillment
	s.Customer = req.Customer
	s.Items = req.Items
	s.Address = req.Address
	s.Slot = &slot
}

func TestBeginReusesKeyPerSession(t *testing.T) {
	o, _ := newTestOrchestrator(t, openAllWeekOrg())

	first := o.Begin("sess-1", "mario-deli")
	again := o.Begin("sess-1", "mario-deli")
	other := o.Begin("sess-2", "mario-deli")

	require.Equal(t, first.IdempotencyKey, again.IdempotencyKey)
	require.NotEqual(t, first.IdempotencyKey, other.IdempotencyKey)
}

func TestFinishRotatesKey(t *testing.T) {
	o, _ := newTestOrchestrator(t, openAllWeekOrg())

	s := o.Begin("sess-1", "mario-deli")
	o.Finish(s)
	next := o.Begin("sess-1", "mario-deli")

	require.NotEqual(t, s.IdempotencyKey, next.IdempotencyKey)
}

func TestPlanSlotsClosedStore(t *testing.T) {
	org := testOrg()
	for d := time.Sunday; d <= time.Saturday; d++ {
		org.Hours = append(org.Hours, models.BusinessHours{Weekday: d, Closed: true})
	}
	o, _ := newTestOrchestrator(t, org)

	s := o.Begin("sess-1", "mario-deli")
	_, err := o.PlanSlots(context.Background(), s, time.Now())
	require.ErrorIs(t, err, core.ErrStoreClosed)
}

func TestPlanSlotsOpenStore(t *testing.T) {
	o, _ := newTestOrchestrator(t, openAllWeekOrg())

	s := o.Begin("sess-1", "mario-deli")
	planned, err := o.PlanSlots(context.Background(), s, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, planned)
}

func TestSubmitWithoutSlot(t *testing.T) {
	o, _ := newTestOrchestrator(t, openAllWeekOrg())

	s := o.Begin("sess-1", "mario-deli")
	_, err := o.Submit(context.Background(), s)
	require.ErrorIs(t, err, core.ErrStoreClosed)
}

func TestSubmitRetryKeepsOneOrder(t *testing.T) {
	o, _ := newTestOrchestrator(t, openAllWeekOrg())

	s := o.Begin("sess-1", "mario-deli")
	sessionFromRequest(s, testIntentRequest(s.IdempotencyKey), models.TimeSlot{At: time.Now().Add(2 * time.Hour)})

	first, err := o.Submit(context.Background(), s)
	require.NoError(t, err)

	second, err := o.Submit(context.Background(), s)
	require.NoError(t, err)

	require.Equal(t, first.OrderID, second.OrderID)
	require.Equal(t, first.ClientSecret, second.ClientSecret)
}

func TestSubmitAbortIsSilent(t *testing.T) {
	o, _ := newTestOrchestrator(t, openAllWeekOrg())

	s := o.Begin("sess-1", "mario-deli")
	sessionFromRequest(s, testIntentRequest(s.IdempotencyKey), models.TimeSlot{At: time.Now().Add(2 * time.Hour)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Submit(ctx, s)
	require.ErrorIs(t, err, core.ErrAborted)

	// The attempt stays resumable under the same key.
	resp, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.NotEmpty(t, resp.ClientSecret)
}
