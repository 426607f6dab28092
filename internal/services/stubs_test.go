package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/payments"
	"github.com/Genoux/website/internal/repositories"
)

type repoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e repoError) Error() string       { return "repo error" }
func (e repoError) IsNotFound() bool    { return e.notFound }
func (e repoError) IsConflict() bool    { return e.conflict }
func (e repoError) IsUnavailable() bool { return e.unavailable }

var errRepoNotFound = repoError{notFound: true}

type memoryEvents struct {
	list    []domain.Event
	listErr error
}

func (m *memoryEvents) List(context.Context) ([]domain.Event, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.Event(nil), m.list...), nil
}

func (m *memoryEvents) ListIDs(ctx context.Context) ([]string, error) {
	list, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list))
	for _, ev := range list {
		ids = append(ids, ev.ID)
	}
	return ids, nil
}

func (m *memoryEvents) FindByID(_ context.Context, id string) (domain.Event, error) {
	for _, ev := range m.list {
		if ev.ID == id {
			return ev, nil
		}
	}
	return domain.Event{}, errRepoNotFound
}

func (m *memoryEvents) FindBySlug(_ context.Context, slug string) (domain.Event, error) {
	for _, ev := range m.list {
		if ev.Slug != "" && ev.Slug == slug {
			return ev, nil
		}
	}
	return domain.Event{}, errRepoNotFound
}

func (m *memoryEvents) Upsert(_ context.Context, ev domain.Event) error {
	m.list = append(m.list, ev)
	return nil
}

type memoryRegistrations struct {
	mu        sync.Mutex
	items     map[string]domain.Registration
	insertErr error
	updates   []repositories.StatusUpdate
}

func newMemoryRegistrations() *memoryRegistrations {
	return &memoryRegistrations{items: map[string]domain.Registration{}}
}

func (m *memoryRegistrations) Insert(_ context.Context, reg domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.items[reg.ID]; ok {
		return repoError{conflict: true}
	}
	m.items[reg.ID] = reg
	return nil
}

func (m *memoryRegistrations) FindByID(_ context.Context, id string) (domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.items[id]
	if !ok {
		return domain.Registration{}, errRepoNotFound
	}
	return reg, nil
}

func (m *memoryRegistrations) FindByCheckoutSession(_ context.Context, sessionID string) (domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reg := range m.items {
		if reg.CheckoutSessionID != "" && reg.CheckoutSessionID == sessionID {
			return reg, nil
		}
	}
	return domain.Registration{}, errRepoNotFound
}

func (m *memoryRegistrations) AttachCheckoutSession(_ context.Context, id, sessionID string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.items[id]
	if !ok {
		return errRepoNotFound
	}
	reg.CheckoutSessionID = sessionID
	reg.UpdatedAt = updatedAt
	m.items[id] = reg
	return nil
}

func (m *memoryRegistrations) UpdateStatus(_ context.Context, id string, update repositories.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.items[id]
	if !ok {
		return errRepoNotFound
	}
	m.updates = append(m.updates, update)
	reg.Status = update.Status
	reg.UpdatedAt = update.UpdatedAt
	if update.PaymentIntentID != "" {
		reg.PaymentIntentID = update.PaymentIntentID
	}
	if update.PaidAt != nil {
		reg.PaidAt = update.PaidAt
	}
	m.items[id] = reg
	return nil
}

func (m *memoryRegistrations) ListByEvent(_ context.Context, eventID string) ([]domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Registration
	for _, reg := range m.items {
		if reg.EventID == eventID {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubPayments struct {
	createFunc  func(ctx context.Context, pc payments.PaymentContext, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	lookupFunc  func(ctx context.Context, pc payments.PaymentContext, sessionID string) (payments.SessionDetails, error)
	webhookFunc func(ctx context.Context, provider string, payload []byte, signature string) (payments.WebhookEvent, error)
}

func (s *stubPayments) CreateCheckoutSession(ctx context.Context, pc payments.PaymentContext, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	if s.createFunc == nil {
		return payments.CheckoutSession{}, errors.New("create not stubbed")
	}
	return s.createFunc(ctx, pc, req)
}

func (s *stubPayments) LookupSession(ctx context.Context, pc payments.PaymentContext, sessionID string) (payments.SessionDetails, error) {
	if s.lookupFunc == nil {
		return payments.SessionDetails{}, errors.New("lookup not stubbed")
	}
	return s.lookupFunc(ctx, pc, sessionID)
}

func (s *stubPayments) ParseWebhook(ctx context.Context, provider string, payload []byte, signature string) (payments.WebhookEvent, error) {
	if s.webhookFunc == nil {
		return payments.WebhookEvent{}, errors.New("webhook not stubbed")
	}
	return s.webhookFunc(ctx, provider, payload, signature)
}

type stubPublisher struct {
	messages []ConfirmationMessage
	err      error
}

func (s *stubPublisher) PublishConfirmation(_ context.Context, msg ConfirmationMessage) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.messages = append(s.messages, msg)
	return "msg-1", nil
}

type countingRecorder struct {
	sessions      map[string]int
	confirmations map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{sessions: map[string]int{}, confirmations: map[string]int{}}
}

func (c *countingRecorder) CheckoutSession(outcome string) { c.sessions[outcome]++ }
func (c *countingRecorder) Confirmation(status string)     { c.confirmations[status]++ }
