package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Genoux/website/internal/domain"
	pfirestore "github.com/Genoux/website/internal/platform/firestore"
	"github.com/Genoux/website/internal/repositories"
)

const eventsCollection = "events"

type eventDocument struct {
	Slug        string    `firestore:"slug"`
	Name        string    `firestore:"name"`
	Date        string    `firestore:"date"`
	Time        string    `firestore:"time"`
	Price       int64     `firestore:"price"`
	Currency    string    `firestore:"currency,omitempty"`
	Poster      string    `firestore:"poster"`
	Game        string    `firestore:"game"`
	FormType    string    `firestore:"formType"`
	Description string    `firestore:"description,omitempty"`
	Location    string    `firestore:"location,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// EventRepository reads events from the "events" collection.
type EventRepository struct {
	docs *pfirestore.Collection[domain.Event]
}

var _ repositories.EventRepository = (*EventRepository)(nil)

// NewEventRepository constructs a Firestore-backed event repository.
func NewEventRepository(provider *pfirestore.Provider) (*EventRepository, error) {
	if provider == nil {
		return nil, errors.New("event repository requires firestore provider")
	}
	return &EventRepository{docs: pfirestore.NewCollection(provider, eventsCollection, encodeEvent, decodeEvent)}, nil
}

func (r *EventRepository) List(ctx context.Context) ([]domain.Event, error) {
	list, err := r.docs.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("date", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	// time is not indexed together with date; settle ties in memory
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date < list[j].Date
		}
		return list[i].Time < list[j].Time
	})
	return list, nil
}

func (r *EventRepository) ListIDs(ctx context.Context) ([]string, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list))
	for _, ev := range list {
		ids = append(ids, ev.ID)
	}
	return ids, nil
}

func (r *EventRepository) FindByID(ctx context.Context, id string) (domain.Event, error) {
	return r.docs.Get(ctx, strings.TrimSpace(id))
}

func (r *EventRepository) FindBySlug(ctx context.Context, slug string) (domain.Event, error) {
	slug = strings.TrimSpace(slug)
	list, err := r.docs.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.Event{}, err
	}
	if len(list) == 0 {
		return domain.Event{}, pfirestore.NotFound("events.by_slug", "event "+slug)
	}
	return list[0], nil
}

func (r *EventRepository) Upsert(ctx context.Context, event domain.Event) error {
	return r.docs.Set(ctx, event.ID, event)
}

func encodeEvent(ev domain.Event) (any, error) {
	return eventDocument{
		Slug:        ev.Slug,
		Name:        ev.Name,
		Date:        ev.Date,
		Time:        ev.Time,
		Price:       ev.Price,
		Currency:    ev.Currency,
		Poster:      ev.Poster,
		Game:        string(ev.Game),
		FormType:    string(ev.FormType),
		Description: ev.Description,
		Location:    ev.Location,
		CreatedAt:   ev.CreatedAt.UTC(),
		UpdatedAt:   ev.UpdatedAt.UTC(),
	}, nil
}

func decodeEvent(snap *firestore.DocumentSnapshot) (domain.Event, error) {
	var doc eventDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Event{}, err
	}
	return domain.Event{
		ID:          snap.Ref.ID,
		Slug:        doc.Slug,
		Name:        doc.Name,
		Date:        doc.Date,
		Time:        doc.Time,
		Price:       doc.Price,
		Currency:    doc.Currency,
		Poster:      doc.Poster,
		Game:        domain.GameTag(doc.Game),
		FormType:    domain.FormType(doc.FormType),
		Description: doc.Description,
		Location:    doc.Location,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}
