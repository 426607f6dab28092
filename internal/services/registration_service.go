package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/registration"
	"github.com/Genoux/website/internal/repositories"
)

// RegistrationServiceDeps wires the registration service.
type RegistrationServiceDeps struct {
	Events        EventService
	Registrations repositories.RegistrationRepository
	Copy          registration.Copy
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
}

type registrationService struct {
	events        EventService
	registrations repositories.RegistrationRepository
	copy          registration.Copy
	now           func() time.Time
	newID         func() string
	logger        Logger
}

var _ RegistrationService = (*registrationService)(nil)

// NewRegistrationService validates dependencies and builds a RegistrationService.
func NewRegistrationService(deps RegistrationServiceDeps) (RegistrationService, error) {
	if deps.Events == nil {
		return nil, errors.New("registration service: event service is required")
	}
	if deps.Registrations == nil {
		return nil, errors.New("registration service: registration repository is required")
	}
	wording := deps.Copy
	if wording.Preset == "" {
		wording = registration.CopyFor(registration.CopyFrench)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &registrationService{
		events:        deps.Events,
		registrations: deps.Registrations,
		copy:          wording,
		now:           func() time.Time { return clock().UTC() },
		newID:         idGen,
		logger:        logger,
	}, nil
}

// CreateRegistration validates answers against the event's schema and stores
// a pending registration. Validation failures return *registration.ValidationError.
func (s *registrationService) CreateRegistration(ctx context.Context, cmd CreateRegistrationCommand) (domain.RegistrationReceipt, error) {
	eventID := strings.TrimSpace(cmd.EventID)
	if eventID == "" {
		return domain.RegistrationReceipt{}, ErrRegistrationInvalidInput
	}
	ev, schema, err := s.events.RegistrableEvent(ctx, eventID)
	if err != nil {
		return domain.RegistrationReceipt{}, err
	}
	reg, err := s.build(ev, schema, cmd.Answers)
	if err != nil {
		return domain.RegistrationReceipt{}, err
	}
	if err := s.registrations.Insert(ctx, reg); err != nil {
		s.logger(ctx, "registration.insert_failed", map[string]any{
			"eventId": ev.ID,
			"error":   err.Error(),
		})
		return domain.RegistrationReceipt{}, ErrCheckoutUnavailable
	}
	s.logger(ctx, "registration.created", map[string]any{
		"registrationId": reg.ID,
		"eventId":        ev.ID,
		"formType":       string(schema.Type),
	})
	return domain.RegistrationReceipt{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		Status:         reg.Status,
		CreatedAt:      reg.CreatedAt,
	}, nil
}

func (s *registrationService) GetRegistration(ctx context.Context, id string) (domain.Registration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Registration{}, ErrRegistrationNotFound
	}
	reg, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Registration{}, ErrRegistrationNotFound
		}
		return domain.Registration{}, errors.Join(ErrStoreUnavailable, err)
	}
	return reg, nil
}

func (s *registrationService) build(ev domain.Event, schema registration.Schema, answers map[string]string) (domain.Registration, error) {
	clean, err := schema.Validate(answers, s.copy)
	if err != nil {
		return domain.Registration{}, err
	}
	now := s.now()
	return domain.Registration{
		ID:        s.newID(),
		EventID:   ev.ID,
		Name:      clean[registration.FieldName],
		Email:     clean[registration.FieldEmail],
		Discord:   clean[registration.FieldDiscord],
		RiotID:    clean[registration.FieldRiotID],
		Rank:      clean[registration.FieldRank],
		Fields:    clean,
		Status:    domain.RegistrationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
