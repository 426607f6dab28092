package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/events"
	"github.com/Genoux/website/internal/registration"
	"github.com/Genoux/website/internal/repositories"
)

// EventServiceDeps wires the event service.
type EventServiceDeps struct {
	Events   repositories.EventRepository
	Schemas  *registration.Schemas
	Location *time.Location
	Clock    func() time.Time
	Logger   Logger
}

type eventService struct {
	events  repositories.EventRepository
	schemas *registration.Schemas
	loc     *time.Location
	now     func() time.Time
	logger  Logger
}

var _ EventService = (*eventService)(nil)

// NewEventService validates dependencies and builds an EventService.
func NewEventService(deps EventServiceDeps) (EventService, error) {
	if deps.Events == nil {
		return nil, errors.New("event service: event repository is required")
	}
	schemas := deps.Schemas
	if schemas == nil {
		schemas = registration.DefaultSchemas()
	}
	loc := deps.Location
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation(events.DefaultTimezone); err != nil {
			return nil, err
		}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &eventService{
		events:  deps.Events,
		schemas: schemas,
		loc:     loc,
		now:     func() time.Time { return clock().UTC() },
		logger:  logger,
	}, nil
}

func (s *eventService) Location() *time.Location { return s.loc }

func (s *eventService) Now() time.Time { return s.now() }

func (s *eventService) ListEvents(ctx context.Context, selection events.Selection) ([]domain.Event, error) {
	list, err := s.events.List(ctx)
	if err != nil {
		s.logger(ctx, "events.list_failed", map[string]any{"error": err.Error()})
		return nil, translateEventError(err)
	}
	return events.Filter(list, selection, s.now(), s.loc)
}

func (s *eventService) ListEventIDs(ctx context.Context) ([]string, error) {
	ids, err := s.events.ListIDs(ctx)
	if err != nil {
		return nil, translateEventError(err)
	}
	return ids, nil
}

func (s *eventService) GetEvent(ctx context.Context, ref string) (domain.Event, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Event{}, ErrEventNotFound
	}
	ev, err := s.events.FindByID(ctx, ref)
	if err == nil {
		return ev, nil
	}
	if !repositories.IsNotFound(err) {
		s.logger(ctx, "events.lookup_failed", map[string]any{"ref": ref, "error": err.Error()})
		return domain.Event{}, translateEventError(err)
	}
	ev, err = s.events.FindBySlug(ctx, ref)
	if err != nil {
		return domain.Event{}, translateEventError(err)
	}
	return ev, nil
}

func (s *eventService) RegistrableEvent(ctx context.Context, ref string) (domain.Event, registration.Schema, error) {
	ev, err := s.GetEvent(ctx, ref)
	if err != nil {
		return domain.Event{}, registration.Schema{}, err
	}
	schema, err := s.schemas.Lookup(ev.FormType)
	if err != nil {
		s.logger(ctx, "events.form_unsupported", map[string]any{
			"eventId":  ev.ID,
			"formType": string(ev.FormType),
		})
		return domain.Event{}, registration.Schema{}, ErrFormUnsupported
	}
	return ev, schema, nil
}
