package services

import (
	"context"
	"time"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/events"
	"github.com/Genoux/website/internal/registration"
)

// Logger is the structured logging hook services emit through.
type Logger func(ctx context.Context, event string, fields map[string]any)

// EventService resolves and filters published events.
type EventService interface {
	ListEvents(ctx context.Context, selection events.Selection) ([]domain.Event, error)
	ListEventIDs(ctx context.Context) ([]string, error)
	// GetEvent resolves an event by id, falling back to slug.
	GetEvent(ctx context.Context, ref string) (domain.Event, error)
	// RegistrableEvent resolves an event and the form schema its registration uses.
	RegistrableEvent(ctx context.Context, ref string) (domain.Event, registration.Schema, error)
	Location() *time.Location
	Now() time.Time
}

// RegistrationService persists validated registrations.
type RegistrationService interface {
	CreateRegistration(ctx context.Context, cmd CreateRegistrationCommand) (domain.RegistrationReceipt, error)
	GetRegistration(ctx context.Context, id string) (domain.Registration, error)
}

// CheckoutService moves a registration through the payment provider.
type CheckoutService interface {
	StartCheckout(ctx context.Context, cmd StartCheckoutCommand) (domain.CheckoutRedirect, error)
	CompleteCheckout(ctx context.Context, cmd CompleteCheckoutCommand) (domain.RegistrationDetails, error)
	CancelCheckout(ctx context.Context, cmd CancelCheckoutCommand) (domain.RegistrationDetails, error)
	HandleWebhook(ctx context.Context, provider string, payload []byte, signature string) error
}

// SystemService reports service health.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}

// ConfirmationPublisher enqueues confirmation emails for paid registrations.
type ConfirmationPublisher interface {
	PublishConfirmation(ctx context.Context, msg ConfirmationMessage) (string, error)
}

// CreateRegistrationCommand carries raw form answers for one event.
type CreateRegistrationCommand struct {
	EventID string
	Answers map[string]string
}

// StartCheckoutCommand starts payment for a session at checkout review. When
// RegistrationID is set the registration is reused instead of created.
type StartCheckoutCommand struct {
	EventRef       string
	Answers        map[string]string
	RegistrationID string
	// SuccessURL may contain payments.SessionIDPlaceholder.
	SuccessURL string
	CancelURL  string
}

// CompleteCheckoutCommand is the success return path.
type CompleteCheckoutCommand struct {
	EventRef  string
	SessionID string
}

// CancelCheckoutCommand is the cancel return path.
type CancelCheckoutCommand struct {
	EventRef       string
	RegistrationID string
}

// ConfirmationMessage is the payload of the confirmation topic.
type ConfirmationMessage struct {
	RegistrationID string    `json:"registrationId"`
	EventID        string    `json:"eventId"`
	EventName      string    `json:"eventName"`
	EventDate      string    `json:"eventDate"`
	EventTime      string    `json:"eventTime"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Locale         string    `json:"locale"`
	ReceiptURL     string    `json:"receiptUrl,omitempty"`
	PaidAt         time.Time `json:"paidAt"`
	IdempotencyKey string    `json:"idempotencyKey"`
}
