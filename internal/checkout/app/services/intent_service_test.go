package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"curbside/internal/checkout/app/core"
	"curbside/internal/checkout/domain/dto"
	"curbside/internal/mylogger"
	"curbside/pkg/models"
)

type fakeCatalog struct {
	org      models.Organization
	products map[int64]models.Product
}

func (f *fakeCatalog) OrganizationBySlug(_ context.Context, slug string) (models.Organization, error) {
	if slug != f.org.Slug {
		return models.Organization{}, core.ErrTenantNotFound
	}
	return f.org, nil
}

func (f *fakeCatalog) ProductsByID(_ context.Context, _ int64, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	byKey  map[string]*models.Order
	auths  map[string]models.PaymentAuthorization
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		byKey: make(map[string]*models.Order),
		auths: make(map[string]models.PaymentAuthorization),
	}
}

func (f *fakeOrderRepo) CreateDraft(_ context.Context, draft dto.DraftOrder) (models.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.byKey[draft.IdempotencyKey]; ok {
		return *existing, false, nil
	}

	f.nextID++
	order := &models.Order{
		ID:             f.nextID,
		OrgID:          draft.OrgID,
		Number:         fmt.Sprintf("ORD_20260901_%03d", f.nextID),
		TrackingToken:  uuid.NewString(),
		IdempotencyKey: draft.IdempotencyKey,
		Status:         models.StatusDraft,
		Fulfillment:    draft.Fulfillment,
		CustomerName:   draft.Customer.Name,
		CustomerEmail:  draft.Customer.Email,
		CustomerPhone:  draft.Customer.Phone,
		SubtotalCents:  draft.Totals.SubtotalCents,
		TaxCents:       draft.Totals.TaxCents,
		DeliveryCents:  draft.Totals.DeliveryCents,
		ServiceCents:   draft.Totals.ServiceCents,
		TotalCents:     draft.Totals.TotalCents,
		Currency:       draft.Currency,
		Address:        draft.Address,
		ScheduledAt:    draft.ScheduledAt,
		Items:          draft.Items,
		CreatedAt:      time.Now(),
	}
	f.byKey[draft.IdempotencyKey] = order
	return *order, true, nil
}

func (f *fakeOrderRepo) AuthorizationByKey(_ context.Context, key string) (models.PaymentAuthorization, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	auth, ok := f.auths[key]
	return auth, ok, nil
}

func (f *fakeOrderRepo) AttachAuthorization(_ context.Context, orderID int64, auth models.PaymentAuthorization) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.auths[auth.IdempotencyKey] = auth
	for _, order := range f.byKey {
		if order.ID == orderID && order.Status == models.StatusDraft {
			order.Status = models.StatusAwaitingPayment
			order.PaymentRef = auth.ExternalID
		}
	}
	return nil
}

func (f *fakeOrderRepo) MarkPaid(_ context.Context, paymentRef string) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, order := range f.byKey {
		if order.PaymentRef == paymentRef && order.Status == models.StatusAwaitingPayment {
			order.Status = models.StatusPaid
			return *order, nil
		}
	}
	return models.Order{}, fmt.Errorf("no awaiting order for payment ref %s", paymentRef)
}

func (f *fakeOrderRepo) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byKey)
}

type fakeGateway struct {
	mu       sync.Mutex
	calls    int
	keys     []string
	failNext bool
}

func (f *fakeGateway) CreateAuthorization(ctx context.Context, amountCents int64, currency, idempotencyKey string) (models.PaymentAuthorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.PaymentAuthorization{}, err
	}

	f.calls++
	f.keys = append(f.keys, idempotencyKey)
	if f.failNext {
		f.failNext = false
		return models.PaymentAuthorization{}, core.ErrGatewayUnavailable
	}
	return models.PaymentAuthorization{
		ExternalID:   "auth_" + idempotencyKey[:8],
		ClientSecret: "secret_" + idempotencyKey,
		AmountCents:  amountCents,
		Currency:     currency,
		Status:       "requires_confirmation",
	}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (f *fakeNotifier) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func testOrg() models.Organization {
	return models.Organization{
		ID:            1,
		Slug:          "mario-deli",
		Name:          "Mario's Deli",
		Currency:      "USD",
		TaxRateMilli:  14975,
		DeliveryCents: 599,
		ServiceCents:  0,
		PrepBufferMin: 30,
	}
}

func testProducts() map[int64]models.Product {
	return map[int64]models.Product{
		10: {ID: 10, OrgID: 1, Name: "Margherita", PriceCents: 2800, Available: true},
		11: {ID: 11, OrgID: 1, Name: "Garlic Knots", PriceCents: 1200, Available: true},
		12: {ID: 12, OrgID: 1, Name: "Seasonal Special", PriceCents: 1500, Available: false},
	}
}

func testIntentRequest(key string) dto.IntentRequest {
	return dto.IntentRequest{
		OrgSlug:        "mario-deli",
		IdempotencyKey: key,
		Fulfillment:    models.FulfillmentDelivery,
		Customer: dto.Customer{
			Name:  "Dana Smith",
			Email: "dana@example.com",
			Phone: "+15551234567",
		},
		Items: []dto.CartLine{
			{ProductID: 10, Quantity: 1},
			{ProductID: 11, Quantity: 2},
		},
		ScheduledAt: time.Now().Add(2 * time.Hour),
		Address: &models.Address{
			Street:  "22 Elm St",
			City:    "Montreal",
			Region:  "QC",
			Postal:  "H2X 1Y5",
			Country: "CA",
		},
	}
}

func newTestIntentService(t *testing.T) (*IntentService, *fakeOrderRepo, *fakeGateway, *fakeNotifier) {
	t.Helper()

	mylog, err := mylogger.New("ERROR")
	require.NoError(t, err)

	repo := newFakeOrderRepo()
	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}
	catalog := &fakeCatalog{org: testOrg(), products: testProducts()}

	return NewIntentService(repo, catalog, gateway, notifier, mylog), repo, gateway, notifier
}

func TestCreateIntentComputesTotals(t *testing.T) {
	svc, _, _, _ := newTestIntentService(t)

	resp, err := svc.CreateIntent(context.Background(), testIntentRequest(uuid.NewString()))
	require.NoError(t, err)

	require.Equal(t, int64(5200), resp.Totals.SubtotalCents)
	require.Equal(t, int64(779), resp.Totals.TaxCents)
	require.Equal(t, int64(599), resp.Totals.DeliveryCents)
	require.Equal(t, int64(6578), resp.Totals.TotalCents)
	require.NotEmpty(t, resp.ClientSecret)
	require.NotEmpty(t, resp.OrderNumber)
}

func TestCreateIntentIdempotent(t *testing.T) {
	svc, repo, gateway, _ := newTestIntentService(t)
	key := uuid.NewString()

	first, err := svc.CreateIntent(context.Background(), testIntentRequest(key))
	require.NoError(t, err)

	second, err := svc.CreateIntent(context.Background(), testIntentRequest(key))
	require.NoError(t, err)

	require.Equal(t, first.OrderID, second.OrderID)
	require.Equal(t, first.OrderNumber, second.OrderNumber)
	require.Equal(t, first.ClientSecret, second.ClientSecret)
	require.Equal(t, 1, repo.orderCount())
	require.Equal(t, 1, gateway.calls)
}

func TestCreateIntentConcurrentSameKey(t *testing.T) {
	svc, repo, gateway, _ := newTestIntentService(t)
	key := uuid.NewString()

	const attempts = 8
	responses := make([]dto.IntentResponse, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i], errs[i] = svc.CreateIntent(context.Background(), testIntentRequest(key))
		}(i)
	}
	wg.Wait()

	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, responses[0].OrderID, responses[i].OrderID)
	}
	require.Equal(t, 1, repo.orderCount())
	// The gateway may see more than one call in a race, but always the same
	// key, so it de-duplicates downstream.
	for _, k := range gateway.keys {
		require.Equal(t, key, k)
	}
}

func TestCreateIntentRetryAfterGatewayFailure(t *testing.T) {
	svc, repo, gateway, _ := newTestIntentService(t)
	gateway.failNext = true
	key := uuid.NewString()

	_, err := svc.CreateIntent(context.Background(), testIntentRequest(key))
	require.ErrorIs(t, err, core.ErrGatewayUnavailable)
	require.Equal(t, 1, repo.orderCount())

	resp, err := svc.CreateIntent(context.Background(), testIntentRequest(key))
	require.NoError(t, err)
	require.NotEmpty(t, resp.ClientSecret)

	require.Equal(t, 1, repo.orderCount())
	require.Equal(t, 2, gateway.calls)
	require.Equal(t, gateway.keys[0], gateway.keys[1])
}

func TestCreateIntentRejectsUnavailableProduct(t *testing.T) {
	svc, repo, _, _ := newTestIntentService(t)

	req := testIntentRequest(uuid.NewString())
	req.Items = append(req.Items, dto.CartLine{ProductID: 12, Quantity: 1})

	_, err := svc.CreateIntent(context.Background(), req)
	require.ErrorIs(t, err, core.ErrItemsUnavailable)
	require.Equal(t, 0, repo.orderCount())
}

func TestCreateIntentRejectsUnknownProduct(t *testing.T) {
	svc, repo, _, _ := newTestIntentService(t)

	req := testIntentRequest(uuid.NewString())
	req.Items = []dto.CartLine{{ProductID: 999, Quantity: 1}}

	_, err := svc.CreateIntent(context.Background(), req)
	require.ErrorIs(t, err, core.ErrItemsUnavailable)
	require.Equal(t, 0, repo.orderCount())
}

func TestCreateIntentDeliveryRequiresAddress(t *testing.T) {
	svc, _, _, _ := newTestIntentService(t)

	req := testIntentRequest(uuid.NewString())
	req.Address = nil

	_, err := svc.CreateIntent(context.Background(), req)
	require.ErrorIs(t, err, core.ErrMissingAddress)
}

func TestCreateIntentMissingIdempotencyKey(t *testing.T) {
	svc, _, _, _ := newTestIntentService(t)

	_, err := svc.CreateIntent(context.Background(), testIntentRequest(""))
	require.ErrorIs(t, err, core.ErrMissingIdempotency)
}

func TestCreateIntentRejectsInvalidContact(t *testing.T) {
	svc, _, _, _ := newTestIntentService(t)

	req := testIntentRequest(uuid.NewString())
	req.Customer.Phone = "555-1234"

	_, err := svc.CreateIntent(context.Background(), req)
	require.ErrorIs(t, err, core.ErrInvalidContact)
}

func TestConfirmPaymentSucceeded(t *testing.T) {
	svc, _, _, notifier := newTestIntentService(t)
	key := uuid.NewString()

	resp, err := svc.CreateIntent(context.Background(), testIntentRequest(key))
	require.NoError(t, err)

	order, err := svc.ConfirmPayment(context.Background(), dto.ConfirmationRequest{
		AuthorizationID: "auth_" + key[:8],
		Status:          "succeeded",
	})
	require.NoError(t, err)
	require.Equal(t, resp.OrderID, order.ID)
	require.Equal(t, models.StatusPaid, order.Status)

	last := notifier.events[len(notifier.events)-1]
	require.Equal(t, models.StatusPaid, last.NewStatus)
	require.Equal(t, models.RoleSystem, last.ChangedBy)
}

func TestConfirmPaymentFailedLeavesOrderRetryable(t *testing.T) {
	svc, repo, _, _ := newTestIntentService(t)
	key := uuid.NewString()

	_, err := svc.CreateIntent(context.Background(), testIntentRequest(key))
	require.NoError(t, err)

	order, err := svc.ConfirmPayment(context.Background(), dto.ConfirmationRequest{
		AuthorizationID: "auth_" + key[:8],
		Status:          "failed",
	})
	require.NoError(t, err)
	require.Zero(t, order.ID)

	stored := repo.byKey[key]
	require.Equal(t, models.StatusAwaitingPayment, stored.Status)
}

func TestQuoteDoesNotWrite(t *testing.T) {
	svc, repo, gateway, _ := newTestIntentService(t)

	totals, err := svc.Quote(context.Background(), dto.QuoteRequest{
		OrgSlug:     "mario-deli",
		Fulfillment: models.FulfillmentPickup,
		Items:       []dto.CartLine{{ProductID: 10, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2800), totals.SubtotalCents)
	require.Zero(t, totals.DeliveryCents)
	require.Equal(t, 0, repo.orderCount())
	require.Equal(t, 0, gateway.calls)
}
