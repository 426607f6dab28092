package domain

import (
	"time"
)

// GameTag identifies the title an event is played on.
type GameTag string

const (
	// GameLeagueOfLegends is League of Legends (Summoner's Rift).
	GameLeagueOfLegends GameTag = "lol"
	// GameTeamfightTactics is Teamfight Tactics.
	GameTeamfightTactics GameTag = "tft"
	// GameValorant is Valorant.
	GameValorant GameTag = "valorant"
)

// KnownGames lists the tags the catalogue can filter by, in display order.
func KnownGames() []GameTag {
	return []GameTag{GameLeagueOfLegends, GameTeamfightTactics, GameValorant}
}

// Valid reports whether the tag is one of the known games.
func (g GameTag) Valid() bool {
	for _, known := range KnownGames() {
		if g == known {
			return true
		}
	}
	return false
}

// FormType selects the registration form schema for an event.
type FormType string

const (
	FormTypeTFT      FormType = "tft"
	FormTypeSummoner FormType = "lol"
)

// Event is a published tournament as stored by the backend. Date and Time are
// kept as the organiser entered them and are interpreted in the site timezone.
type Event struct {
	ID          string
	Slug        string
	Name        string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	Price       int64  // minor currency units
	Currency    string
	Poster      string
	Game        GameTag
	FormType    FormType
	Description string
	Location    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RegistrationStatus tracks a registration through checkout.
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusPaid      RegistrationStatus = "paid"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

// Registration is one participant's entry for an event.
type Registration struct {
	ID                string
	EventID           string
	Name              string
	Email             string
	Discord           string
	RiotID            string
	Rank              string
	Fields            map[string]string
	Status            RegistrationStatus
	CheckoutSessionID string
	PaymentIntentID   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PaidAt            *time.Time
}

// RegistrationReceipt acknowledges a stored registration.
type RegistrationReceipt struct {
	RegistrationID string
	EventID        string
	Status         RegistrationStatus
	CreatedAt      time.Time
}

// RegistrationDetails is what the confirmation pages render.
type RegistrationDetails struct {
	Event        Event
	Registration Registration
	ReceiptURL   string
}

// CheckoutRedirect carries the provider-hosted payment page for a registration.
type CheckoutRedirect struct {
	RegistrationID string
	SessionID      string
	RedirectURL    string
	ExpiresAt      *time.Time
}
