package events

import (
	"time"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/motion"
)

// Tilt configures the pointer-follow tilt and glare effect on posters.
type Tilt struct {
	Enabled         bool    `json:"enabled"`
	Perspective     int     `json:"perspective"`
	Scale           float64 `json:"scale"`
	MaxAngle        float64 `json:"maxAngle"`
	GlareEnabled    bool    `json:"glareEnabled"`
	MaxGlare        float64 `json:"maxGlare"`
	GlareColor      string  `json:"glareColor"`
	GlareRadius     string  `json:"glareRadius"`
	TransitionSpeed int     `json:"transitionSpeed"`
}

// DefaultTilt is the poster effect before per-card overrides.
func DefaultTilt() Tilt {
	return Tilt{
		Enabled:         true,
		Perspective:     1000,
		Scale:           1.05,
		MaxAngle:        8,
		GlareEnabled:    true,
		MaxGlare:        0.5,
		GlareColor:      "rgba(255, 243, 230, 1)",
		GlareRadius:     "6px",
		TransitionSpeed: 800,
	}
}

// TiltOverrides adjusts the defaults; nil fields keep the default.
type TiltOverrides struct {
	MaxAngle        *float64
	MaxGlare        *float64
	TransitionSpeed *int
}

// ResolveTilt merges overrides onto the defaults. Tilt and glare are only
// enabled on desktop clients.
func ResolveTilt(o TiltOverrides, desktop bool) Tilt {
	t := DefaultTilt()
	if o.MaxAngle != nil {
		t.MaxAngle = *o.MaxAngle
	}
	if o.MaxGlare != nil {
		t.MaxGlare = *o.MaxGlare
	}
	if o.TransitionSpeed != nil {
		t.TransitionSpeed = *o.TransitionSpeed
	}
	t.Enabled = desktop
	t.GlareEnabled = desktop
	return t
}

// Card is the presentation of one catalogue entry.
type Card struct {
	Event       domain.Event
	Index       int
	Status      Status
	Passed      bool
	ShowCTA     bool
	Opacity     float64
	Tilt        Tilt
	Entrance    motion.Variant
	Hover       motion.Variant
	PosterURL   string
	RegisterURL string
	DateLabel   string
	TimeLabel   string
	PriceLabel  string
}

// CardOptions carries the request-scoped inputs of card derivation.
type CardOptions struct {
	Now             time.Time
	Location        *time.Location
	Desktop         bool
	AssetBaseURL    string
	DefaultCurrency string
	Formatter       Formatter
	Timeline        motion.Timeline
}

// Cards derives the grid presentation for events in the given order.
func Cards(list []domain.Event, opts CardOptions) ([]Card, error) {
	cards := make([]Card, 0, len(list))
	for i, ev := range list {
		card, err := NewCard(ev, i, opts)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// NewCard derives one card. Passed events are dimmed, lose their call to
// action and get a softer glare.
func NewCard(ev domain.Event, index int, opts CardOptions) (Card, error) {
	status := ClassifyEvent(ev, opts.Now, opts.Location)
	passed := status == StatusPassed

	glare := 0.2
	if passed {
		glare = 0.1
	}
	angle := 8.0
	speed := 800
	tilt := ResolveTilt(TiltOverrides{MaxAngle: &angle, MaxGlare: &glare, TransitionSpeed: &speed}, opts.Desktop)

	entrance, err := motion.CardVariant(opts.Timeline, index, passed)
	if err != nil {
		return Card{}, err
	}
	hover, err := motion.CardHoverVariant(opts.Timeline, passed)
	if err != nil {
		return Card{}, err
	}

	opacity := 1.0
	if passed {
		opacity = 0.6
	}
	return Card{
		Event:       ev,
		Index:       index,
		Status:      status,
		Passed:      passed,
		ShowCTA:     !passed,
		Opacity:     opacity,
		Tilt:        tilt,
		Entrance:    entrance,
		Hover:       hover,
		PosterURL:   PosterURL(opts.AssetBaseURL, ev.Poster),
		RegisterURL: RegisterPath(ev),
		DateLabel:   opts.Formatter.Date(ev),
		TimeLabel:   opts.Formatter.Time(ev),
		PriceLabel:  opts.Formatter.EventPrice(ev, opts.DefaultCurrency),
	}, nil
}
