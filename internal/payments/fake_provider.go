package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionIDPlaceholder is substituted with the session id in success URLs,
// matching Stripe's template variable.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// FakeSignature is the only webhook signature FakeProvider accepts.
const FakeSignature = "local-dev"

// FakeProvider completes every checkout immediately. It backs local
// development when no Stripe key is configured.
type FakeProvider struct {
	mu       sync.Mutex
	sessions map[string]SessionDetails
	clock    func() time.Time
}

var _ Provider = (*FakeProvider)(nil)

// NewFakeProvider returns an in-memory provider. clock may be nil.
func NewFakeProvider(clock func() time.Time) *FakeProvider {
	if clock == nil {
		clock = time.Now
	}
	return &FakeProvider{sessions: make(map[string]SessionDetails), clock: clock}
}

func (f *FakeProvider) CreateCheckoutSession(_ context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	id := "cs_fake_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	amount := req.Amount
	if len(req.Items) > 0 {
		amount = 0
		for _, item := range req.Items {
			amount += item.Amount * max(item.Quantity, 1)
		}
	}

	f.mu.Lock()
	f.sessions[id] = SessionDetails{
		Provider:          "fake",
		SessionID:         id,
		IntentID:          "pi_fake_" + id[len("cs_fake_"):],
		Status:            StatusSucceeded,
		Amount:            amount,
		Currency:          strings.ToUpper(req.Currency),
		CustomerEmail:     req.CustomerEmail,
		ClientReferenceID: req.ClientReferenceID,
		Metadata:          copyMetadata(req.Metadata),
	}
	f.mu.Unlock()

	return CheckoutSession{
		ID:          id,
		Provider:    "fake",
		RedirectURL: strings.ReplaceAll(req.SuccessURL, SessionIDPlaceholder, id),
		IntentID:    "pi_fake_" + id[len("cs_fake_"):],
		ExpiresAt:   f.clock().UTC().Add(30 * time.Minute),
	}, nil
}

func (f *FakeProvider) LookupSession(_ context.Context, sessionID string) (SessionDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	details, ok := f.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return SessionDetails{}, fmt.Errorf("fake: lookup %s: %w", sessionID, ErrSessionNotFound)
	}
	return details, nil
}

// ParseWebhook accepts `{"id","type","session_id"}` payloads signed with FakeSignature.
func (f *FakeProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (WebhookEvent, error) {
	if signature != FakeSignature {
		return WebhookEvent{}, ErrInvalidSignature
	}
	var body struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return WebhookEvent{}, fmt.Errorf("fake: decode webhook: %w", err)
	}
	session, err := f.LookupSession(ctx, body.SessionID)
	if err != nil {
		return WebhookEvent{}, err
	}
	return WebhookEvent{ID: body.ID, Type: WebhookEventType(body.Type), Session: session}, nil
}
