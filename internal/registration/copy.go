package registration

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// CopyPreset selects the registration page wording.
type CopyPreset string

const (
	// CopyFrench uses French labels and shows the event summary card.
	CopyFrench CopyPreset = "fr"
	// CopyEnglish uses English labels without the summary card.
	CopyEnglish CopyPreset = "en"
)

// ParseCopyPreset resolves a preset name or any BCP 47 tag to a preset.
func ParseCopyPreset(raw string) (CopyPreset, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return CopyFrench, nil
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", fmt.Errorf("registration: unknown copy preset %q", raw)
	}
	matcher := language.NewMatcher([]language.Tag{language.French, language.English})
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return "", fmt.Errorf("registration: unsupported copy preset %q", raw)
	}
	if index == 1 {
		return CopyEnglish, nil
	}
	return CopyFrench, nil
}

// FieldCopy is the visible text of one form field.
type FieldCopy struct {
	Label       string
	Placeholder string
}

// Copy is every string rendered by the public pages.
type Copy struct {
	Preset      CopyPreset
	Locale      string
	ShowSummary bool

	Fields  map[string]FieldCopy
	Options map[string]string

	MinLength    string // label, minimum
	InvalidEmail string
	InvalidEnum  string

	EventLabel      string
	DateLabel       string
	TimeLabel       string
	PriceLabel      string
	ReviewHeading   string
	Continue        string
	Back            string
	Pay             string
	Processing      string
	SuccessTitle    string
	SuccessEmail    string // email
	ViewOrder       string
	AddToCalendar   string
	ReturnHome      string
	CancelledTitle  string
	CancelledDetail string
	NotFoundTitle   string
	NotFoundDetail  string
	CheckoutFailed  string
	Register        string
	Passed          string

	UnavailableTitle  string
	UnavailableDetail string

	Headline     string
	Explore      string
	FilterLabel  string
	EmptyCatalog string
	// Filters labels each selection by its wire form.
	Filters map[string]string
}

// CopyFor returns the wording for a preset.
func CopyFor(p CopyPreset) Copy {
	if p == CopyEnglish {
		return englishCopy()
	}
	return frenchCopy()
}

func frenchCopy() Copy {
	return Copy{
		Preset:      CopyFrench,
		Locale:      "fr-CA",
		ShowSummary: true,
		Fields: map[string]FieldCopy{
			FieldName:    {Label: "Nom", Placeholder: "Votre nom"},
			FieldEmail:   {Label: "Email", Placeholder: "votre@email.com"},
			FieldDiscord: {Label: "Discord", Placeholder: "Votre#0000"},
			FieldRiotID:  {Label: "Riot ID", Placeholder: "Pseudo#TAG"},
			FieldRank:    {Label: "Rang", Placeholder: "Sélectionnez votre rang"},
		},
		Options: map[string]string{
			"IRON": "Fer", "BRONZE": "Bronze", "SILVER": "Argent",
			"GOLD": "Or", "PLATINUM": "Platine", "DIAMOND": "Diamant",
		},
		MinLength:       "%s doit contenir au moins %d caractères",
		InvalidEmail:    "Email invalide",
		InvalidEnum:     "Sélection invalide",
		EventLabel:      "Événement",
		DateLabel:       "Date",
		TimeLabel:       "Heure",
		PriceLabel:      "RSVP",
		ReviewHeading:   "Vérifiez vos informations",
		Continue:        "Continuer",
		Back:            "Retour",
		Pay:             "Payer",
		Processing:      "Traitement...",
		SuccessTitle:    "Inscription confirmée",
		SuccessEmail:    "Un email de confirmation a été envoyé à %s",
		ViewOrder:       "Voir la commande",
		AddToCalendar:   "Ajouter au calendrier",
		ReturnHome:      "Retour",
		CancelledTitle:  "Paiement annulé",
		CancelledDetail: "Votre paiement a été annulé. Aucun montant n'a été prélevé.",
		NotFoundTitle:   "Événement introuvable",
		NotFoundDetail:  "Cet événement n'existe pas ou n'est plus disponible.",
		CheckoutFailed:  "Le paiement n'a pas pu être initialisé.",
		Register:        "S'inscrire",
		Passed:          "Terminé",

		UnavailableTitle:  "Service indisponible",
		UnavailableDetail: "Nous n'arrivons pas à charger cette page. Réessayez dans un instant.",

		Headline:     "Joueurs. Tournois. Compétition. Simple.",
		Explore:      "Prochain événement",
		FilterLabel:  "Afficher",
		EmptyCatalog: "Aucun événement pour le moment.",
		Filters: map[string]string{
			"all": "Tous", "upcoming": "À venir", "past": "Passés",
			"game:lol": "League of Legends", "game:tft": "Teamfight Tactics", "game:valorant": "Valorant",
		},
	}
}

func englishCopy() Copy {
	return Copy{
		Preset:      CopyEnglish,
		Locale:      "en-CA",
		ShowSummary: false,
		Fields: map[string]FieldCopy{
			FieldName:    {Label: "Name", Placeholder: "Your name"},
			FieldEmail:   {Label: "Email", Placeholder: "you@email.com"},
			FieldDiscord: {Label: "Discord", Placeholder: "User#0000"},
			FieldRiotID:  {Label: "Riot ID", Placeholder: "Name#TAG"},
			FieldRank:    {Label: "Rank", Placeholder: "Select your rank"},
		},
		Options: map[string]string{
			"IRON": "Iron", "BRONZE": "Bronze", "SILVER": "Silver",
			"GOLD": "Gold", "PLATINUM": "Platinum", "DIAMOND": "Diamond",
		},
		MinLength:       "%s must be at least %d characters",
		InvalidEmail:    "Invalid email",
		InvalidEnum:     "Invalid selection",
		EventLabel:      "Event",
		DateLabel:       "Date",
		TimeLabel:       "Time",
		PriceLabel:      "RSVP",
		ReviewHeading:   "Review your details",
		Continue:        "Continue",
		Back:            "Back",
		Pay:             "Pay",
		Processing:      "Processing...",
		SuccessTitle:    "Registration confirmed",
		SuccessEmail:    "A confirmation email was sent to %s",
		ViewOrder:       "View order",
		AddToCalendar:   "Add to calendar",
		ReturnHome:      "Back",
		CancelledTitle:  "Payment cancelled",
		CancelledDetail: "Your payment was cancelled. You have not been charged.",
		NotFoundTitle:   "Event not found",
		NotFoundDetail:  "This event does not exist or is no longer available.",
		CheckoutFailed:  "Payment could not be started.",
		Register:        "Register",
		Passed:          "Ended",

		UnavailableTitle:  "Service unavailable",
		UnavailableDetail: "We could not load this page. Please try again in a moment.",

		Headline:     "Players. Tournaments. Competition. Simple.",
		Explore:      "Next event",
		FilterLabel:  "Show",
		EmptyCatalog: "No events yet.",
		Filters: map[string]string{
			"all": "All", "upcoming": "Upcoming", "past": "Past",
			"game:lol": "League of Legends", "game:tft": "Teamfight Tactics", "game:valorant": "Valorant",
		},
	}
}
