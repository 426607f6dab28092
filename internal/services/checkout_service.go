package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/events"
	"github.com/Genoux/website/internal/payments"
	"github.com/Genoux/website/internal/repositories"
)

// freeSessionPrefix marks checkout sessions settled without the provider.
const freeSessionPrefix = "free_"

// checkoutPayments abstracts payments.Manager for easier testing.
type checkoutPayments interface {
	CreateCheckoutSession(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	LookupSession(ctx context.Context, paymentCtx payments.PaymentContext, sessionID string) (payments.SessionDetails, error)
	ParseWebhook(ctx context.Context, provider string, payload []byte, signature string) (payments.WebhookEvent, error)
}

// CheckoutRecorder receives checkout outcomes for metrics.
type CheckoutRecorder interface {
	CheckoutSession(outcome string)
	Confirmation(status string)
}

type nopRecorder struct{}

func (nopRecorder) CheckoutSession(string) {}
func (nopRecorder) Confirmation(string)    {}

// CheckoutServiceDeps wires the checkout service.
type CheckoutServiceDeps struct {
	Events          EventService
	Registrations   RegistrationService
	Store           repositories.RegistrationRepository
	Payments        checkoutPayments
	Publisher       ConfirmationPublisher
	Recorder        CheckoutRecorder
	DefaultCurrency string
	AssetBaseURL    string
	Locale          string
	Clock           func() time.Time
	Logger          Logger
}

type checkoutService struct {
	events          EventService
	registrations   RegistrationService
	store           repositories.RegistrationRepository
	payments        checkoutPayments
	publisher       ConfirmationPublisher
	recorder        CheckoutRecorder
	defaultCurrency string
	assetBaseURL    string
	locale          string
	now             func() time.Time
	logger          Logger
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService validates dependencies and builds a CheckoutService.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Events == nil {
		return nil, errors.New("checkout service: event service is required")
	}
	if deps.Registrations == nil {
		return nil, errors.New("checkout service: registration service is required")
	}
	if deps.Store == nil {
		return nil, errors.New("checkout service: registration repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = "CAD"
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutService{
		events:          deps.Events,
		registrations:   deps.Registrations,
		store:           deps.Store,
		payments:        deps.Payments,
		publisher:       deps.Publisher,
		recorder:        recorder,
		defaultCurrency: currency,
		assetBaseURL:    strings.TrimSpace(deps.AssetBaseURL),
		locale:          strings.TrimSpace(deps.Locale),
		now:             func() time.Time { return clock().UTC() },
		logger:          logger,
	}, nil
}

// StartCheckout creates (or reuses) the registration and a provider session.
// Free events are settled immediately and redirect straight to the success URL.
func (s *checkoutService) StartCheckout(ctx context.Context, cmd StartCheckoutCommand) (domain.CheckoutRedirect, error) {
	successURL := strings.TrimSpace(cmd.SuccessURL)
	cancelURL := strings.TrimSpace(cmd.CancelURL)
	if successURL == "" || cancelURL == "" {
		return domain.CheckoutRedirect{}, ErrRegistrationInvalidInput
	}
	ev, _, err := s.events.RegistrableEvent(ctx, cmd.EventRef)
	if err != nil {
		return domain.CheckoutRedirect{}, err
	}

	reg, err := s.resolveRegistration(ctx, ev, cmd)
	if err != nil {
		return domain.CheckoutRedirect{}, err
	}

	if ev.Price <= 0 {
		return s.settleFree(ctx, ev, reg, successURL)
	}

	currency := strings.ToUpper(strings.TrimSpace(ev.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	item := payments.CheckoutLineItem{
		Name:     ev.Name,
		Quantity: 1,
		Amount:   ev.Price,
		Currency: currency,
	}
	if poster := events.PosterURL(s.assetBaseURL, ev.Poster); strings.HasPrefix(poster, "http") {
		item.ImageURL = poster
	}
	session, err := s.payments.CreateCheckoutSession(ctx, payments.PaymentContext{Currency: currency}, payments.CheckoutSessionRequest{
		Amount:            ev.Price,
		Currency:          currency,
		CustomerEmail:     reg.Email,
		ClientReferenceID: reg.ID,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		Locale:            s.locale,
		IdempotencyKey:    "registration:" + reg.ID,
		Metadata: map[string]string{
			"registration_id": reg.ID,
			"event_id":        ev.ID,
		},
		Items: []payments.CheckoutLineItem{item},
	})
	if err != nil {
		s.recorder.CheckoutSession("failed")
		s.logger(ctx, "checkout.session_failed", map[string]any{
			"registrationId": reg.ID,
			"eventId":        ev.ID,
			"error":          err.Error(),
		})
		if errors.Is(err, payments.ErrUnsupportedProvider) {
			return domain.CheckoutRedirect{}, ErrCheckoutUnavailable
		}
		return domain.CheckoutRedirect{}, ErrPaymentFailed
	}

	if err := s.store.AttachCheckoutSession(ctx, reg.ID, session.ID, s.now()); err != nil {
		s.recorder.CheckoutSession("failed")
		s.logger(ctx, "checkout.attach_failed", map[string]any{
			"registrationId": reg.ID,
			"sessionId":      session.ID,
			"error":          err.Error(),
		})
		return domain.CheckoutRedirect{}, ErrCheckoutUnavailable
	}
	s.recorder.CheckoutSession("created")
	s.logger(ctx, "checkout.session_created", map[string]any{
		"registrationId": reg.ID,
		"sessionId":      session.ID,
		"provider":       session.Provider,
	})

	redirect := domain.CheckoutRedirect{
		RegistrationID: reg.ID,
		SessionID:      session.ID,
		RedirectURL:    session.RedirectURL,
	}
	if !session.ExpiresAt.IsZero() {
		expires := session.ExpiresAt.UTC()
		redirect.ExpiresAt = &expires
	}
	return redirect, nil
}

func (s *checkoutService) resolveRegistration(ctx context.Context, ev domain.Event, cmd StartCheckoutCommand) (domain.Registration, error) {
	if id := strings.TrimSpace(cmd.RegistrationID); id != "" {
		reg, err := s.registrations.GetRegistration(ctx, id)
		switch {
		case err == nil && reg.EventID == ev.ID && reg.Status == domain.RegistrationStatusPending:
			return reg, nil
		case err == nil, errors.Is(err, ErrRegistrationNotFound):
			// stale or settled; fall through and create a fresh one
		default:
			return domain.Registration{}, ErrCheckoutUnavailable
		}
	}
	receipt, err := s.registrations.CreateRegistration(ctx, CreateRegistrationCommand{
		EventID: ev.ID,
		Answers: cmd.Answers,
	})
	if err != nil {
		return domain.Registration{}, err
	}
	reg, err := s.registrations.GetRegistration(ctx, receipt.RegistrationID)
	if err != nil {
		return domain.Registration{}, ErrCheckoutUnavailable
	}
	return reg, nil
}

func (s *checkoutService) settleFree(ctx context.Context, ev domain.Event, reg domain.Registration, successURL string) (domain.CheckoutRedirect, error) {
	sessionID := freeSessionPrefix + reg.ID
	if err := s.store.AttachCheckoutSession(ctx, reg.ID, sessionID, s.now()); err != nil {
		return domain.CheckoutRedirect{}, ErrCheckoutUnavailable
	}
	reg.CheckoutSessionID = sessionID
	if _, err := s.markPaid(ctx, ev, reg, "", ""); err != nil {
		return domain.CheckoutRedirect{}, err
	}
	s.recorder.CheckoutSession("free")
	return domain.CheckoutRedirect{
		RegistrationID: reg.ID,
		SessionID:      sessionID,
		RedirectURL:    strings.ReplaceAll(successURL, payments.SessionIDPlaceholder, sessionID),
	}, nil
}

// CompleteCheckout reconciles the provider session on the success return path.
func (s *checkoutService) CompleteCheckout(ctx context.Context, cmd CompleteCheckoutCommand) (domain.RegistrationDetails, error) {
	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return domain.RegistrationDetails{}, ErrRegistrationNotFound
	}
	reg, err := s.store.FindByCheckoutSession(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.RegistrationDetails{}, ErrRegistrationNotFound
		}
		return domain.RegistrationDetails{}, ErrCheckoutUnavailable
	}
	ev, err := s.events.GetEvent(ctx, reg.EventID)
	if err != nil {
		return domain.RegistrationDetails{}, err
	}
	if !matchesRef(ev, cmd.EventRef) {
		return domain.RegistrationDetails{}, ErrRegistrationNotFound
	}

	if strings.HasPrefix(sessionID, freeSessionPrefix) {
		return domain.RegistrationDetails{Event: ev, Registration: reg}, nil
	}

	details, err := s.payments.LookupSession(ctx, payments.PaymentContext{Currency: ev.Currency}, sessionID)
	if err != nil {
		s.logger(ctx, "checkout.lookup_failed", map[string]any{
			"registrationId": reg.ID,
			"sessionId":      sessionID,
			"error":          err.Error(),
		})
		return domain.RegistrationDetails{}, ErrCheckoutUnavailable
	}

	switch details.Status {
	case payments.StatusSucceeded:
		reg, err = s.markPaid(ctx, ev, reg, details.IntentID, details.ReceiptURL)
		if err != nil {
			return domain.RegistrationDetails{}, err
		}
	case payments.StatusFailed:
		if _, err := s.markCancelled(ctx, reg); err != nil {
			return domain.RegistrationDetails{}, err
		}
		return domain.RegistrationDetails{}, ErrPaymentFailed
	}
	return domain.RegistrationDetails{Event: ev, Registration: reg, ReceiptURL: details.ReceiptURL}, nil
}

// CancelCheckout handles the cancel return path. A pending registration is
// cancelled; the event is returned even when the registration is unknown.
func (s *checkoutService) CancelCheckout(ctx context.Context, cmd CancelCheckoutCommand) (domain.RegistrationDetails, error) {
	ev, err := s.events.GetEvent(ctx, cmd.EventRef)
	if err != nil {
		return domain.RegistrationDetails{}, err
	}
	out := domain.RegistrationDetails{Event: ev}
	id := strings.TrimSpace(cmd.RegistrationID)
	if id == "" {
		return out, nil
	}
	reg, err := s.registrations.GetRegistration(ctx, id)
	if err != nil || reg.EventID != ev.ID {
		return out, nil
	}
	if reg, err = s.markCancelled(ctx, reg); err != nil {
		return domain.RegistrationDetails{}, err
	}
	out.Registration = reg
	return out, nil
}

// HandleWebhook applies verified provider notifications. Unknown sessions and
// event types are acknowledged without changes.
func (s *checkoutService) HandleWebhook(ctx context.Context, provider string, payload []byte, signature string) error {
	event, err := s.payments.ParseWebhook(ctx, provider, payload, signature)
	if err != nil {
		s.logger(ctx, "checkout.webhook_rejected", map[string]any{
			"provider": provider,
			"error":    err.Error(),
		})
		return errors.Join(ErrWebhookRejected, err)
	}

	switch event.Type {
	case payments.WebhookCheckoutCompleted, payments.WebhookCheckoutExpired:
	default:
		return nil
	}

	reg, err := s.store.FindByCheckoutSession(ctx, event.Session.SessionID)
	if err != nil && repositories.IsNotFound(err) && event.Session.ClientReferenceID != "" {
		reg, err = s.store.FindByID(ctx, event.Session.ClientReferenceID)
	}
	if err != nil {
		if repositories.IsNotFound(err) {
			s.logger(ctx, "checkout.webhook_unmatched", map[string]any{
				"eventId":   event.ID,
				"sessionId": event.Session.SessionID,
			})
			return nil
		}
		return ErrCheckoutUnavailable
	}

	if event.Type == payments.WebhookCheckoutExpired {
		_, err := s.markCancelled(ctx, reg)
		return err
	}
	if event.Session.Status != payments.StatusSucceeded {
		return nil
	}
	ev, err := s.events.GetEvent(ctx, reg.EventID)
	if err != nil {
		return err
	}
	_, err = s.markPaid(ctx, ev, reg, event.Session.IntentID, event.Session.ReceiptURL)
	return err
}

// markPaid is idempotent; the confirmation is published on the first transition only.
func (s *checkoutService) markPaid(ctx context.Context, ev domain.Event, reg domain.Registration, intentID, receiptURL string) (domain.Registration, error) {
	if reg.Status == domain.RegistrationStatusPaid {
		return reg, nil
	}
	now := s.now()
	update := repositories.StatusUpdate{
		Status:          domain.RegistrationStatusPaid,
		PaymentIntentID: intentID,
		PaidAt:          &now,
		UpdatedAt:       now,
	}
	if err := s.store.UpdateStatus(ctx, reg.ID, update); err != nil {
		s.logger(ctx, "checkout.mark_paid_failed", map[string]any{
			"registrationId": reg.ID,
			"error":          err.Error(),
		})
		return domain.Registration{}, ErrCheckoutUnavailable
	}
	reg.Status = domain.RegistrationStatusPaid
	reg.PaidAt = &now
	reg.UpdatedAt = now
	if intentID != "" {
		reg.PaymentIntentID = intentID
	}
	s.logger(ctx, "checkout.registration_paid", map[string]any{
		"registrationId": reg.ID,
		"eventId":        ev.ID,
	})
	s.publishConfirmation(ctx, ev, reg, receiptURL)
	return reg, nil
}

func (s *checkoutService) markCancelled(ctx context.Context, reg domain.Registration) (domain.Registration, error) {
	if reg.Status != domain.RegistrationStatusPending {
		return reg, nil
	}
	now := s.now()
	if err := s.store.UpdateStatus(ctx, reg.ID, repositories.StatusUpdate{
		Status:    domain.RegistrationStatusCancelled,
		UpdatedAt: now,
	}); err != nil {
		return domain.Registration{}, ErrCheckoutUnavailable
	}
	reg.Status = domain.RegistrationStatusCancelled
	reg.UpdatedAt = now
	s.logger(ctx, "checkout.registration_cancelled", map[string]any{"registrationId": reg.ID})
	return reg, nil
}

// publishConfirmation never fails the checkout; a lost message is logged.
func (s *checkoutService) publishConfirmation(ctx context.Context, ev domain.Event, reg domain.Registration, receiptURL string) {
	if s.publisher == nil {
		s.recorder.Confirmation("skipped")
		return
	}
	msg := ConfirmationMessage{
		RegistrationID: reg.ID,
		EventID:        ev.ID,
		EventName:      ev.Name,
		EventDate:      ev.Date,
		EventTime:      ev.Time,
		Name:           reg.Name,
		Email:          reg.Email,
		Locale:         s.locale,
		ReceiptURL:     receiptURL,
		IdempotencyKey: "confirmation:" + reg.ID,
	}
	if reg.PaidAt != nil {
		msg.PaidAt = reg.PaidAt.UTC()
	}
	id, err := s.publisher.PublishConfirmation(ctx, msg)
	if err != nil {
		s.recorder.Confirmation("failed")
		s.logger(ctx, "checkout.confirmation_failed", map[string]any{
			"registrationId": reg.ID,
			"error":          err.Error(),
		})
		return
	}
	s.recorder.Confirmation("published")
	s.logger(ctx, "checkout.confirmation_published", map[string]any{
		"registrationId": reg.ID,
		"messageId":      id,
	})
}

func matchesRef(ev domain.Event, ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref == "" || ref == ev.ID || (ev.Slug != "" && ref == ev.Slug)
}
