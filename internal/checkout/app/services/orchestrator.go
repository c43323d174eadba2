package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"curbside/internal/checkout/app/core"
	"curbside/internal/checkout/domain/dto"
	"curbside/internal/mylogger"
	"curbside/internal/slots"
	"curbside/pkg/models"
)

// Session is the explicit checkout state object. Nothing in it except the
// idempotency key is a source of truth for server writes; the server
// recomputes everything else at submit time.
type Session struct {
	ID             string
	OrgSlug        string
	IdempotencyKey string
	Fulfillment    string
	Customer       dto.Customer
	Items          []dto.CartLine
	Slot           *models.TimeSlot
	Address        *models.Address
}

// KeyStore persists idempotency keys per checkout session so a retry after
// a reload reuses the key of the attempt it continues.
type KeyStore interface {
	Get(sessionID string) (string, bool)
	Put(sessionID, key string)
	Drop(sessionID string)
}

// MemoryKeyStore is the in-process KeyStore used by the storefront runtime
// and by tests.
type MemoryKeyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]string)}
}

func (m *MemoryKeyStore) Get(sessionID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[sessionID]
	return key, ok
}

func (m *MemoryKeyStore) Put(sessionID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[sessionID] = key
}

func (m *MemoryKeyStore) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, sessionID)
}

// Orchestrator drives a checkout session from slot selection through payment
// intent creation. Every network step may be retried by the user; retries
// are safe because the session's idempotency key is fixed before the first
// attempt.
type Orchestrator struct {
	catalog core.ICatalog
	intents *IntentService
	keys    KeyStore
	mylog   mylogger.Logger
}

func NewOrchestrator(catalog core.ICatalog, intents *IntentService, keys KeyStore, mylog mylogger.Logger) *Orchestrator {
	return &Orchestrator{
		catalog: catalog,
		intents: intents,
		keys:    keys,
		mylog:   mylog,
	}
}

// Begin opens a session and fixes its idempotency key. An existing key for
// the same session id is reused, so resuming after a reload continues the
// same checkout attempt instead of starting a fresh one.
func (o *Orchestrator) Begin(sessionID, orgSlug string) *Session {
	key, ok := o.keys.Get(sessionID)
	if !ok {
		key = uuid.NewString()
		o.keys.Put(sessionID, key)
	}
	return &Session{
		ID:             sessionID,
		OrgSlug:        orgSlug,
		IdempotencyKey: key,
	}
}

// PlanSlots computes the offered fulfillment times for the session's store.
// ErrStoreClosed blocks progress: there is nothing to pick.
func (o *Orchestrator) PlanSlots(ctx context.Context, s *Session, now time.Time) ([]models.TimeSlot, error) {
	org, err := o.catalog.OrganizationBySlug(ctx, s.OrgSlug)
	if err != nil {
		return nil, err
	}

	planned := slots.Plan(org.Hours, time.Duration(org.PrepBufferMin)*time.Minute, now, now.Location())
	if len(planned) == 0 {
		return nil, core.ErrStoreClosed
	}
	return planned, nil
}

// Submit sends the session to the payment intent service. A context
// cancellation here is the user navigating away mid-checkout: it is
// deliberately silent, neither surfaced nor logged as an error, and the
// attempt can be resumed later under the same key.
func (o *Orchestrator) Submit(ctx context.Context, s *Session) (dto.IntentResponse, error) {
	if s.Slot == nil {
		return dto.IntentResponse{}, core.ErrStoreClosed
	}

	resp, err := o.intents.CreateIntent(ctx, dto.IntentRequest{
		OrgSlug:        s.OrgSlug,
		IdempotencyKey: s.IdempotencyKey,
		Fulfillment:    s.Fulfillment,
		Customer:       s.Customer,
		Items:          s.Items,
		ScheduledAt:    s.Slot.At,
		Address:        s.Address,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return dto.IntentResponse{}, core.ErrAborted
		}
		return dto.IntentResponse{}, err
	}

	return resp, nil
}

// Finish releases the session's key once payment is confirmed, so a future
// checkout starts a new attempt with a new key.
func (o *Orchestrator) Finish(s *Session) {
	o.keys.Drop(s.ID)
}
