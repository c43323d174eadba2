package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"curbside/internal/mylogger"
	"curbside/internal/ops/app/core"
	"curbside/pkg/models"
)

type fakeOrders struct {
	mu     sync.Mutex
	orders map[int64]*models.Order
}

func newFakeOrders(orders ...*models.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[int64]*models.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) OrderByID(_ context.Context, id int64) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return models.Order{}, core.ErrOrderNotFound
	}
	return *order, nil
}

func (f *fakeOrders) TransitionStatus(_ context.Context, orderID int64, from, to, changedBy, note string) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return models.Order{}, core.ErrOrderNotFound
	}
	if order.Status != from {
		return models.Order{}, core.ErrStatusConflict
	}
	order.Status = to
	return *order, nil
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[int64]*models.DeliveryJob
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[int64]*models.DeliveryJob)}
}

func (f *fakeJobs) JobByOrderID(_ context.Context, orderID int64) (models.DeliveryJob, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[orderID]
	if !ok {
		return models.DeliveryJob{}, false, nil
	}
	return *job, true, nil
}

func (f *fakeJobs) Reserve(_ context.Context, job models.DeliveryJob) (models.DeliveryJob, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.jobs[job.OrderID]; ok {
		return *existing, false, nil
	}
	job.CreatedAt = time.Now()
	f.jobs[job.OrderID] = &job
	return job, true, nil
}

func (f *fakeJobs) MarkDispatched(_ context.Context, orderID int64, externalID, courierStatus, trackingURL string, feeCents int64) (models.DeliveryJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[orderID]
	job.Status = models.JobDispatched
	job.ExternalID = externalID
	job.CourierStatus = courierStatus
	job.TrackingURL = trackingURL
	job.FeeCents = feeCents
	return *job, nil
}

func (f *fakeJobs) MarkFailed(_ context.Context, orderID int64, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[orderID]; ok && job.Status == models.JobReserved {
		job.Status = models.JobFailed
	}
	return nil
}

func (f *fakeJobs) UpdateCourierStatus(_ context.Context, externalID, courierStatus string) (models.DeliveryJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.ExternalID == externalID {
			job.CourierStatus = courierStatus
			return *job, nil
		}
	}
	return models.DeliveryJob{}, core.ErrOrderNotFound
}

type fakeOrgs struct {
	org models.Organization
}

func (f *fakeOrgs) OrganizationByID(_ context.Context, id int64) (models.Organization, error) {
	return f.org, nil
}

type fakeCourier struct {
	mu     sync.Mutex
	calls  int
	tokens []string
	fail   bool
}

func (f *fakeCourier) CreateDelivery(_ context.Context, req core.CourierRequest) (core.CourierResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.tokens = append(f.tokens, req.IdempotencyToken)
	if f.fail {
		return core.CourierResponse{}, core.ErrCourierUnavailable
	}
	return core.CourierResponse{
		DeliveryID:  "del_001",
		Status:      "courier_assigned",
		TrackingURL: "https://courier.example.com/t/del_001",
		FeeCents:    499,
	}, nil
}

func deliveryOrder(status string) *models.Order {
	return &models.Order{
		ID:            42,
		OrgID:         1,
		Number:        "ORD_20260901_042",
		Status:        status,
		Fulfillment:   models.FulfillmentDelivery,
		CustomerName:  "Dana Smith",
		CustomerPhone: "+15551234567",
		Address:       &models.Address{Street: "22 Elm St", City: "Montreal"},
	}
}

func newTestDispatch(t *testing.T, order *models.Order, courier *fakeCourier) (*DispatchService, *fakeJobs) {
	t.Helper()

	mylog, err := mylogger.New("ERROR")
	require.NoError(t, err)

	jobs := newFakeJobs()
	orgs := &fakeOrgs{org: models.Organization{
		ID:            1,
		PickupAddress: models.Address{Street: "1 Main St", City: "Montreal"},
	}}
	return NewDispatchService(newFakeOrders(order), jobs, orgs, courier, mylog), jobs
}

func TestDispatchCreatesOneJob(t *testing.T) {
	courier := &fakeCourier{}
	svc, _ := newTestDispatch(t, deliveryOrder(models.StatusReady), courier)

	job, err := svc.Dispatch(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, models.JobDispatched, job.Status)
	require.Equal(t, "del_001", job.ExternalID)

	again, err := svc.Dispatch(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, job.ExternalID, again.ExternalID)
	require.Equal(t, 1, courier.calls)
}

func TestDispatchConcurrentCallers(t *testing.T) {
	courier := &fakeCourier{}
	svc, jobs := newTestDispatch(t, deliveryOrder(models.StatusReady), courier)

	const callers = 6
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Dispatch(context.Background(), 42)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, courier.calls)
	require.Len(t, jobs.jobs, 1)
	require.Equal(t, models.JobDispatched, jobs.jobs[42].Status)
}

func TestDispatchRetryAfterCourierFailure(t *testing.T) {
	courier := &fakeCourier{fail: true}
	svc, jobs := newTestDispatch(t, deliveryOrder(models.StatusReady), courier)

	_, err := svc.Dispatch(context.Background(), 42)
	require.ErrorIs(t, err, core.ErrCourierUnavailable)
	require.Equal(t, models.JobFailed, jobs.jobs[42].Status)

	courier.fail = false
	job, err := svc.Dispatch(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, models.JobDispatched, job.Status)

	// Both attempts carry the same request token so the network can
	// de-duplicate if the first one actually landed.
	require.Equal(t, 2, courier.calls)
	require.Equal(t, courier.tokens[0], courier.tokens[1])
}

func TestDispatchRejectsPickupOrder(t *testing.T) {
	order := deliveryOrder(models.StatusReady)
	order.Fulfillment = models.FulfillmentPickup
	order.Address = nil
	courier := &fakeCourier{}
	svc, jobs := newTestDispatch(t, order, courier)

	_, err := svc.Dispatch(context.Background(), 42)
	require.Error(t, err)
	require.Empty(t, jobs.jobs)
	require.Equal(t, 0, courier.calls)
}
