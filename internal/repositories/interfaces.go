package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Genoux/website/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	Events() EventRepository
	Registrations() RegistrationRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// IsNotFound reports whether err is a repository not-found failure.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err is a repository conflict.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err is a transient backend failure.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}

// EventRepository reads and seeds published events.
type EventRepository interface {
	// List returns every event ordered by date then time, earliest first.
	List(ctx context.Context) ([]domain.Event, error)
	ListIDs(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id string) (domain.Event, error)
	FindBySlug(ctx context.Context, slug string) (domain.Event, error)
	Upsert(ctx context.Context, event domain.Event) error
}

// RegistrationRepository persists registrations through checkout.
type RegistrationRepository interface {
	Insert(ctx context.Context, registration domain.Registration) error
	FindByID(ctx context.Context, id string) (domain.Registration, error)
	FindByCheckoutSession(ctx context.Context, sessionID string) (domain.Registration, error)
	AttachCheckoutSession(ctx context.Context, id, sessionID string, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) error
	ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error)
}

// StatusUpdate moves a registration to a new status.
type StatusUpdate struct {
	Status          domain.RegistrationStatus
	PaymentIntentID string
	PaidAt          *time.Time
	UpdatedAt       time.Time
}

// HealthRepository collects dependency health for readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
