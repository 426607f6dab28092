package payments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubProvider struct {
	lastOp  string
	session CheckoutSession
	details SessionDetails
	event   WebhookEvent
	err     error
}

func (f *stubProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	f.lastOp = "create"
	return f.session, f.err
}

func (f *stubProvider) LookupSession(ctx context.Context, sessionID string) (SessionDetails, error) {
	f.lastOp = "lookup"
	return f.details, f.err
}

func (f *stubProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (WebhookEvent, error) {
	f.lastOp = "webhook"
	return f.event, f.err
}

func TestManagerCreateCheckoutSessionUsesPreferredProvider(t *testing.T) {
	ctx := context.Background()
	stripe := &stubProvider{session: CheckoutSession{ID: "cs_stripe"}}
	fake := &stubProvider{session: CheckoutSession{ID: "cs_fake"}}

	mgr, err := NewManager(map[string]Provider{"stripe": stripe, "fake": fake})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	session, err := mgr.CreateCheckoutSession(ctx, PaymentContext{PreferredProvider: "FAKE"}, CheckoutSessionRequest{Currency: "CAD"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Provider != "fake" {
		t.Fatalf("expected provider 'fake', got %q", session.Provider)
	}
	if stripe.lastOp != "" {
		t.Fatalf("expected stripe provider to remain unused")
	}
}

func TestManagerRoutesByCurrency(t *testing.T) {
	ctx := context.Background()
	stripe := &stubProvider{}
	fake := &stubProvider{details: SessionDetails{SessionID: "cs_1"}}

	mgr, err := NewManager(
		map[string]Provider{"stripe": stripe, "fake": fake},
		WithCurrencyRoutes(map[string]string{" xts ": "fake"}),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	details, err := mgr.LookupSession(ctx, PaymentContext{Currency: "XTS"}, "cs_1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if details.Provider != "fake" || fake.lastOp != "lookup" {
		t.Fatalf("expected fake provider to handle lookup, got %+v", details)
	}
}

func TestManagerFallsBackToDefault(t *testing.T) {
	stripe := &stubProvider{}
	mgr, err := NewManager(map[string]Provider{"stripe": stripe, "fake": &stubProvider{}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := mgr.CreateCheckoutSession(context.Background(), PaymentContext{Currency: "CAD"}, CheckoutSessionRequest{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if stripe.lastOp != "create" {
		t.Fatalf("expected default stripe provider to handle call")
	}
}

func TestManagerUnsupportedProvider(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(map[string]Provider{"stripe": &stubProvider{}, "fake": &stubProvider{}}, WithDefaultProvider(""))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, err = mgr.CreateCheckoutSession(ctx, PaymentContext{PreferredProvider: "unknown"}, CheckoutSessionRequest{Currency: "CAD"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
	if _, err := mgr.ParseWebhook(ctx, "paypal", nil, ""); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider for webhook, got %v", err)
	}
}

func TestManagerPropagatesProviderErrors(t *testing.T) {
	boom := errors.New("psp down")
	mgr, err := NewManager(map[string]Provider{"stripe": &stubProvider{err: boom}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := mgr.CreateCheckoutSession(context.Background(), PaymentContext{}, CheckoutSessionRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNewManagerValidatesProviders(t *testing.T) {
	if _, err := NewManager(map[string]Provider{"bad": nil}); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := NewManager(nil); err == nil {
		t.Fatalf("expected error when providers empty")
	}
}

func TestFakeProviderCompletesImmediately(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := NewFakeProvider(func() time.Time { return now })

	session, err := fake.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		Currency:          "cad",
		ClientReferenceID: "reg_1",
		SuccessURL:        "https://lowping.test/cup/register/success?session_id=" + SessionIDPlaceholder,
		Items:             []CheckoutLineItem{{Name: "Cup", Amount: 1500, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(session.RedirectURL, "session_id="+session.ID) {
		t.Fatalf("expected redirect to success url with session id, got %q", session.RedirectURL)
	}
	if !session.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", session.ExpiresAt)
	}

	details, err := fake.LookupSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if details.Status != StatusSucceeded || details.Amount != 3000 || details.Currency != "CAD" || details.ClientReferenceID != "reg_1" {
		t.Fatalf("unexpected details %+v", details)
	}

	if _, err := fake.LookupSession(ctx, "cs_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestFakeProviderWebhook(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeProvider(nil)
	session, err := fake.CreateCheckoutSession(ctx, CheckoutSessionRequest{Currency: "CAD", Amount: 500})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","session_id":"` + session.ID + `"}`)

	if _, err := fake.ParseWebhook(ctx, payload, "nope"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	event, err := fake.ParseWebhook(ctx, payload, FakeSignature)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != WebhookCheckoutCompleted || event.Session.SessionID != session.ID {
		t.Fatalf("unexpected event %+v", event)
	}
}
