package firestore

import (
	"context"

	pfirestore "github.com/Genoux/website/internal/platform/firestore"
	"github.com/Genoux/website/internal/repositories"
)

// Registry bundles the Firestore repositories behind one provider.
type Registry struct {
	provider      *pfirestore.Provider
	events        *EventRepository
	registrations *RegistrationRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every Firestore repository on the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	events, err := NewEventRepository(provider)
	if err != nil {
		return nil, err
	}
	registrations, err := NewRegistrationRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{provider: provider, events: events, registrations: registrations}, nil
}

func (r *Registry) Events() repositories.EventRepository { return r.events }

func (r *Registry) Registrations() repositories.RegistrationRepository { return r.registrations }

func (r *Registry) Ping(ctx context.Context) error { return r.provider.Ping(ctx) }

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }
