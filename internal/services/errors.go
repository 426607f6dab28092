package services

import (
	"errors"

	"github.com/Genoux/website/internal/repositories"
)

var (
	// ErrEventNotFound indicates no event matches the id or slug.
	ErrEventNotFound = errors.New("events: not found")
	// ErrFormUnsupported indicates the event's form type has no schema.
	ErrFormUnsupported = errors.New("events: unsupported registration form")
	// ErrRegistrationNotFound indicates the registration does not exist or belongs to another event.
	ErrRegistrationNotFound = errors.New("registration: not found")
	// ErrRegistrationInvalidInput indicates missing identifiers on a command.
	ErrRegistrationInvalidInput = errors.New("registration: invalid input")
	// ErrCheckoutUnavailable indicates the store or provider could not be reached.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
	// ErrPaymentFailed indicates the provider rejected or abandoned the payment.
	ErrPaymentFailed = errors.New("checkout: payment failed")
	// ErrWebhookRejected indicates a webhook payload failed verification.
	ErrWebhookRejected = errors.New("checkout: webhook rejected")
	// ErrStoreUnavailable indicates the event store could not be reached.
	ErrStoreUnavailable = errors.New("store: unavailable")
)

func translateEventError(err error) error {
	switch {
	case err == nil:
		return nil
	case repositories.IsNotFound(err):
		return ErrEventNotFound
	default:
		return errors.Join(ErrStoreUnavailable, err)
	}
}
