package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the session is open or the payment is still processing.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the PSP reports the payment as collected.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the session expired or the payment was cancelled.
	StatusFailed Status = "failed"
)

var (
	// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
	ErrUnsupportedProvider = errors.New("payments: unsupported provider")
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("payments: invalid webhook signature")
	// ErrSessionNotFound is returned when a checkout session id is unknown to the PSP.
	ErrSessionNotFound = errors.New("payments: checkout session not found")
)

// CheckoutLineItem describes a single line item to include in a checkout session.
type CheckoutLineItem struct {
	Name        string
	Description string
	Quantity    int64
	Amount      int64
	Currency    string
	ImageURL    string
}

// CheckoutSessionRequest captures the payload required to create a checkout session.
type CheckoutSessionRequest struct {
	Amount            int64
	Currency          string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Locale            string
	Metadata          map[string]string
	IdempotencyKey    string
	Items             []CheckoutLineItem
}

// CheckoutSession represents the PSP session the participant is redirected to.
type CheckoutSession struct {
	ID          string
	Provider    string
	RedirectURL string
	IntentID    string
	ExpiresAt   time.Time
}

// SessionDetails normalises a checkout session after the participant returns.
type SessionDetails struct {
	Provider          string
	SessionID         string
	IntentID          string
	Status            Status
	Amount            int64
	Currency          string
	CustomerEmail     string
	ClientReferenceID string
	ReceiptURL        string
	Metadata          map[string]string
}

// WebhookEventType names the PSP events the site reacts to.
type WebhookEventType string

const (
	WebhookCheckoutCompleted WebhookEventType = "checkout.session.completed"
	WebhookCheckoutExpired   WebhookEventType = "checkout.session.expired"
)

// WebhookEvent is a verified PSP notification.
type WebhookEvent struct {
	ID      string
	Type    WebhookEventType
	Session SessionDetails
}

// Provider defines the contract for PSP adapters to implement.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	LookupSession(ctx context.Context, sessionID string) (SessionDetails, error)
	ParseWebhook(ctx context.Context, payload []byte, signature string) (WebhookEvent, error)
}

// Manager coordinates provider selection and exposes the aggregated interface.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	currencyRoutes  map[string]string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the default provider for currencies without explicit routing.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = provider
	}
}

// WithCurrencyRoutes configures static currency to provider mappings.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.currencyRoutes == nil {
			m.currencyRoutes = make(map[string]string, len(routes))
		}
		for k, v := range routes {
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
}

// NewManager constructs a Manager over the supplied providers.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	copyMap := make(map[string]Provider, len(providers))
	for k, v := range providers {
		key := normaliseKey(k)
		if key == "" || v == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", k)
		}
		copyMap[key] = v
	}
	m := &Manager{providers: copyMap}
	if _, ok := copyMap["stripe"]; ok {
		m.defaultProvider = "stripe"
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// PaymentContext defines the hints available when selecting a provider.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
}

func (m *Manager) resolveProvider(ctx PaymentContext) (string, Provider, error) {
	if m == nil {
		return "", nil, errors.New("payments: manager is nil")
	}
	if provider := normaliseKey(ctx.PreferredProvider); provider != "" {
		if p, ok := m.providers[provider]; ok {
			return provider, p, nil
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(ctx.Currency))
	if currency != "" {
		if key, ok := m.currencyRoutes[currency]; ok {
			if p, ok := m.providers[normaliseKey(key)]; ok {
				return normaliseKey(key), p, nil
			}
		}
	}
	if def := normaliseKey(m.defaultProvider); def != "" {
		if p, ok := m.providers[def]; ok {
			return def, p, nil
		}
	}
	if len(m.providers) == 1 {
		for key, p := range m.providers {
			return key, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

// CreateCheckoutSession delegates to the resolved provider.
func (m *Manager) CreateCheckoutSession(ctx context.Context, paymentCtx PaymentContext, req CheckoutSessionRequest) (CheckoutSession, error) {
	key, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return CheckoutSession{}, err
	}
	session, err := provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return CheckoutSession{}, err
	}
	session.Provider = key
	return session, nil
}

// LookupSession delegates to the resolved provider.
func (m *Manager) LookupSession(ctx context.Context, paymentCtx PaymentContext, sessionID string) (SessionDetails, error) {
	key, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return SessionDetails{}, err
	}
	details, err := provider.LookupSession(ctx, sessionID)
	if err != nil {
		return SessionDetails{}, err
	}
	details.Provider = key
	return details, nil
}

// ParseWebhook verifies a webhook payload with the named provider.
func (m *Manager) ParseWebhook(ctx context.Context, providerKey string, payload []byte, signature string) (WebhookEvent, error) {
	if m == nil {
		return WebhookEvent{}, errors.New("payments: manager is nil")
	}
	provider, ok := m.providers[normaliseKey(providerKey)]
	if !ok {
		return WebhookEvent{}, ErrUnsupportedProvider
	}
	return provider.ParseWebhook(ctx, payload, signature)
}

func normaliseKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func copyMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
