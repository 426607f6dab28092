package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Genoux/website/internal/domain"
	pfirestore "github.com/Genoux/website/internal/platform/firestore"
	"github.com/Genoux/website/internal/repositories"
)

const registrationsCollection = "event_registrations"

type registrationDocument struct {
	EventID           string            `firestore:"eventId"`
	Name              string            `firestore:"name"`
	Email             string            `firestore:"email"`
	Discord           string            `firestore:"discord,omitempty"`
	RiotID            string            `firestore:"riotId,omitempty"`
	Rank              string            `firestore:"rank,omitempty"`
	Fields            map[string]string `firestore:"fields,omitempty"`
	Status            string            `firestore:"status"`
	CheckoutSessionID string            `firestore:"checkoutSessionId,omitempty"`
	PaymentIntentID   string            `firestore:"paymentIntentId,omitempty"`
	CreatedAt         time.Time         `firestore:"createdAt"`
	UpdatedAt         time.Time         `firestore:"updatedAt"`
	PaidAt            *time.Time        `firestore:"paidAt,omitempty"`
}

// RegistrationRepository stores registrations in "event_registrations".
type RegistrationRepository struct {
	docs *pfirestore.Collection[domain.Registration]
}

var _ repositories.RegistrationRepository = (*RegistrationRepository)(nil)

// NewRegistrationRepository constructs a Firestore-backed registration repository.
func NewRegistrationRepository(provider *pfirestore.Provider) (*RegistrationRepository, error) {
	if provider == nil {
		return nil, errors.New("registration repository requires firestore provider")
	}
	return &RegistrationRepository{
		docs: pfirestore.NewCollection(provider, registrationsCollection, encodeRegistration, decodeRegistration),
	}, nil
}

func (r *RegistrationRepository) Insert(ctx context.Context, reg domain.Registration) error {
	return r.docs.Create(ctx, reg.ID, reg)
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (domain.Registration, error) {
	return r.docs.Get(ctx, strings.TrimSpace(id))
}

func (r *RegistrationRepository) FindByCheckoutSession(ctx context.Context, sessionID string) (domain.Registration, error) {
	list, err := r.docs.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("checkoutSessionId", "==", sessionID).Limit(1)
	})
	if err != nil {
		return domain.Registration{}, err
	}
	if len(list) == 0 {
		return domain.Registration{}, pfirestore.NotFound("event_registrations.by_session", "registration for session "+sessionID)
	}
	return list[0], nil
}

func (r *RegistrationRepository) AttachCheckoutSession(ctx context.Context, id, sessionID string, updatedAt time.Time) error {
	return r.docs.Update(ctx, id, []firestore.Update{
		{Path: "checkoutSessionId", Value: sessionID},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	})
}

func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, update repositories.StatusUpdate) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(update.Status)},
		{Path: "updatedAt", Value: update.UpdatedAt.UTC()},
	}
	if update.PaymentIntentID != "" {
		updates = append(updates, firestore.Update{Path: "paymentIntentId", Value: update.PaymentIntentID})
	}
	if update.PaidAt != nil {
		updates = append(updates, firestore.Update{Path: "paidAt", Value: update.PaidAt.UTC()})
	}
	return r.docs.Update(ctx, id, updates)
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	return r.docs.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("eventId", "==", eventID).OrderBy("createdAt", firestore.Asc)
	})
}

func encodeRegistration(reg domain.Registration) (any, error) {
	return registrationDocument{
		EventID:           reg.EventID,
		Name:              reg.Name,
		Email:             reg.Email,
		Discord:           reg.Discord,
		RiotID:            reg.RiotID,
		Rank:              reg.Rank,
		Fields:            reg.Fields,
		Status:            string(reg.Status),
		CheckoutSessionID: reg.CheckoutSessionID,
		PaymentIntentID:   reg.PaymentIntentID,
		CreatedAt:         reg.CreatedAt.UTC(),
		UpdatedAt:         reg.UpdatedAt.UTC(),
		PaidAt:            reg.PaidAt,
	}, nil
}

func decodeRegistration(snap *firestore.DocumentSnapshot) (domain.Registration, error) {
	var doc registrationDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Registration{}, err
	}
	return domain.Registration{
		ID:                snap.Ref.ID,
		EventID:           doc.EventID,
		Name:              doc.Name,
		Email:             doc.Email,
		Discord:           doc.Discord,
		RiotID:            doc.RiotID,
		Rank:              doc.Rank,
		Fields:            doc.Fields,
		Status:            domain.RegistrationStatus(doc.Status),
		CheckoutSessionID: doc.CheckoutSessionID,
		PaymentIntentID:   doc.PaymentIntentID,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
		PaidAt:            doc.PaidAt,
	}, nil
}
